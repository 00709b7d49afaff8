package analysis

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nvoss/leakscope/internal/models"
)

// DocumentInput is one uploaded file in a batch.
type DocumentInput struct {
	TextContent string `json:"textContent"`
	FileName    string `json:"fileName"`
	FileType    string `json:"fileType,omitempty"`
}

// admissionGate serializes gateway calls. The shared provider is rate limited,
// so at most one call may be in flight across a batch; this is an ordering
// guarantee, not a performance choice.
type admissionGate struct {
	slot chan struct{}
}

func newAdmissionGate() *admissionGate {
	return &admissionGate{slot: make(chan struct{}, 1)}
}

// Acquire blocks until the single slot is free or ctx is done.
func (g *admissionGate) Acquire(ctx context.Context) error {
	select {
	case g.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *admissionGate) Release() {
	<-g.slot
}

// Orchestrator sequences classification and extraction across a batch of
// documents under the single-admission gate.
type Orchestrator struct {
	classifier *Classifier
	extractor  *Extractor
	gate       *admissionGate
	logger     *zap.Logger
}

// NewOrchestrator creates a batch orchestrator.
func NewOrchestrator(classifier *Classifier, extractor *Extractor, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		classifier: classifier,
		extractor:  extractor,
		gate:       newAdmissionGate(),
		logger:     logger,
	}
}

// AnalyzeBatch runs classify-then-extract for each document, strictly
// sequentially. A per-document failure is recorded and the batch continues;
// successful results keep the input ordering. Cancellation stops consuming
// further documents but leaves already-accumulated results intact.
func (o *Orchestrator) AnalyzeBatch(ctx context.Context, inputs []DocumentInput) (*models.BatchResult, error) {
	result := &models.BatchResult{
		Results:  []models.DocumentResult{},
		Failures: []models.DocumentFailure{},
	}

	for _, input := range inputs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		doc := models.Document{
			ID:          uuid.NewString(),
			FileName:    input.FileName,
			FileType:    input.FileType,
			TextContent: input.TextContent,
		}

		classification, err := o.classify(ctx, doc)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			o.logger.Warn("Document classification failed, continuing batch",
				zap.String("file_name", doc.FileName),
				zap.Error(err))
			result.Failures = append(result.Failures, models.DocumentFailure{
				FileName: doc.FileName,
				Stage:    "classify",
				Error:    err.Error(),
			})
			continue
		}

		extraction, err := o.extract(ctx, doc)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			o.logger.Warn("Document extraction failed, continuing batch",
				zap.String("file_name", doc.FileName),
				zap.Error(err))
			result.Failures = append(result.Failures, models.DocumentFailure{
				FileName: doc.FileName,
				Stage:    "extract",
				Error:    err.Error(),
			})
			continue
		}

		classification.DocumentID = doc.ID
		extraction.DocumentID = doc.ID
		result.Results = append(result.Results, models.DocumentResult{
			Document:       doc,
			Classification: classification,
			Extraction:     extraction,
		})
	}

	o.logger.Info("Batch analysis completed",
		zap.Int("input_count", len(inputs)),
		zap.Int("success_count", len(result.Results)),
		zap.Int("failure_count", len(result.Failures)))

	return result, nil
}

// Context builds the read-only conversation projection from a batch result.
func (o *Orchestrator) Context(batch *models.BatchResult, recon *models.ReconciliationResult) models.ConversationContext {
	ctx := models.ConversationContext{
		FileNames:  make([]string, 0, len(batch.Results)),
		Categories: make(map[string]string, len(batch.Results)),
	}
	for _, r := range batch.Results {
		ctx.FileNames = append(ctx.FileNames, r.Document.FileName)
		ctx.Categories[r.Document.ID] = r.Classification.Category
	}
	if recon != nil {
		ctx.AnalysisResults = &models.AnalysisSnapshot{
			TotalLeaks:       len(recon.Discrepancies),
			TotalRecoverable: recon.TotalEstimatedRecovery.Value,
			Summary:          recon.Summary,
		}
	}
	return ctx
}

func (o *Orchestrator) classify(ctx context.Context, doc models.Document) (*models.Classification, error) {
	if err := o.gate.Acquire(ctx); err != nil {
		return nil, err
	}
	defer o.gate.Release()
	return o.classifier.Classify(ctx, doc.TextContent, doc.FileName)
}

func (o *Orchestrator) extract(ctx context.Context, doc models.Document) (*models.ExtractionSummary, error) {
	if err := o.gate.Acquire(ctx); err != nil {
		return nil, err
	}
	defer o.gate.Release()
	return o.extractor.Extract(ctx, doc.TextContent, doc.FileType)
}
