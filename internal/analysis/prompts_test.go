package analysis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPromptsEmptyPathUsesDefaults(t *testing.T) {
	prompts, err := LoadPrompts("")
	require.NoError(t, err)
	assert.NotEmpty(t, prompts.Classification.System)
	assert.NotEmpty(t, prompts.Extraction.UserTemplate)
	assert.NotEmpty(t, prompts.Reconciliation.UserTemplate)
}

func TestLoadPromptsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	content := `classification:
  temperature: 0.3
  max_tokens: 256
  system: custom classifier
  user_template: "File: {{.FileName}}"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	prompts, err := LoadPrompts(path)
	require.NoError(t, err)
	assert.Equal(t, float32(0.3), prompts.Classification.Temperature)
	assert.Equal(t, "custom classifier", prompts.Classification.System)
}

func TestLoadPromptsMissingFile(t *testing.T) {
	_, err := LoadPrompts("/nonexistent/prompts.yaml")
	assert.Error(t, err)
}

func TestRenderTemplate(t *testing.T) {
	out, err := renderTemplate("File: {{.FileName}}, Content: {{.Content}}", map[string]string{
		"FileName": "a.csv",
		"Content":  "rows",
	})
	require.NoError(t, err)
	assert.Equal(t, "File: a.csv, Content: rows", out)
}

func TestRenderTemplateBadSyntax(t *testing.T) {
	_, err := renderTemplate("{{.Unclosed", nil)
	assert.Error(t, err)
}

func TestDefaultPromptsDemandExplicitEstimateFlags(t *testing.T) {
	prompts := DefaultPrompts()
	assert.Contains(t, prompts.Extraction.System, "isEstimate")
	assert.Contains(t, prompts.Extraction.UserTemplate, "isEstimate")
	assert.Contains(t, prompts.Reconciliation.UserTemplate, "undercharge")
}
