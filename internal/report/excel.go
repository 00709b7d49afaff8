// Package report renders reconciliation results as downloadable workbooks.
package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/nvoss/leakscope/internal/models"
)

const sheetName = "Discrepancies"

// ExcelWriter builds discrepancy report workbooks.
type ExcelWriter struct {
	logger *zap.Logger
}

// NewExcelWriter creates an Excel report writer.
func NewExcelWriter(logger *zap.Logger) *ExcelWriter {
	return &ExcelWriter{logger: logger}
}

// Write renders the reconciliation result as an xlsx workbook.
func (w *ExcelWriter) Write(result *models.ReconciliationResult) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}

	headers := []string{"Item", "Menu Price", "Charged Price", "Difference", "Type", "Estimated Loss", "Estimate?"}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		w.setCell(f, cell, header)
	}

	for row, d := range result.Discrepancies {
		values := []interface{}{
			d.ItemName,
			d.MenuPrice,
			d.ChargedPrice,
			d.Difference,
			d.Type,
			d.EstimatedLoss,
			d.IsEstimate,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			w.setCell(f, cell, v)
		}
	}

	totalRow := len(result.Discrepancies) + 3
	cell, _ := excelize.CoordinatesToCellName(1, totalRow)
	w.setCell(f, cell, "Total estimated recovery")
	cell, _ = excelize.CoordinatesToCellName(2, totalRow)
	w.setCell(f, cell, result.TotalEstimatedRecovery.Value)

	if result.Summary != "" {
		cell, _ = excelize.CoordinatesToCellName(1, totalRow+2)
		w.setCell(f, cell, result.Summary)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}

	w.logger.Info("Discrepancy workbook generated",
		zap.Int("discrepancy_count", len(result.Discrepancies)),
		zap.Int("size_bytes", buf.Len()))

	return buf, nil
}

func (w *ExcelWriter) setCell(f *excelize.File, cell string, value interface{}) {
	if err := f.SetCellValue(sheetName, cell, value); err != nil {
		w.logger.Warn("Failed to set cell value",
			zap.String("cell", cell),
			zap.Error(err))
	}
}
