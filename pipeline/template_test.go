package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giridharan-1129/LLM-Evaluation-app/dataset"
)

// TestRenderTemplate verifies placeholder substitution against row values.
func TestRenderTemplate(t *testing.T) {
	row := dataset.Row{
		Columns: []string{"question", "context"},
		Values: map[string]string{
			"question": "What is the capital of France?",
			"context":  "France is in Europe.",
		},
	}

	rendered, err := renderTemplate("Context: {context}\nQ: {question}", row)
	require.NoError(t, err)
	assert.Equal(t, "Context: France is in Europe.\nQ: What is the capital of France?", rendered)
}

// TestRenderTemplateMissingField verifies the first unresolved
// placeholder aborts rendering with a typed error naming the field.
func TestRenderTemplateMissingField(t *testing.T) {
	row := dataset.Row{Columns: []string{"question"}, Values: map[string]string{"question": "Q"}}

	_, err := renderTemplate("{question} from {source}", row)
	require.Error(t, err)
	var tmplErr *TemplateError
	require.ErrorAs(t, err, &tmplErr)
	assert.Equal(t, "source", tmplErr.Field)
}

// TestRenderTemplateNoPlaceholders verifies literal templates pass
// through untouched.
func TestRenderTemplateNoPlaceholders(t *testing.T) {
	rendered, err := renderTemplate("no placeholders here", dataset.Row{})
	require.NoError(t, err)
	assert.Equal(t, "no placeholders here", rendered)
}
