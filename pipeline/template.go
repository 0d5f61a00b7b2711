package pipeline

import (
	"fmt"
	"regexp"

	"github.com/giridharan-1129/LLM-Evaluation-app/dataset"
)

// placeholderRE matches {field} placeholders in prompt templates.
var placeholderRE = regexp.MustCompile(`\{([^{}]+)\}`)

// TemplateError reports a placeholder with no matching column in the row.
// It fails the row it occurred on, never the run.
type TemplateError struct {
	Field string
}

// Error implements the error interface.
func (e *TemplateError) Error() string {
	return fmt.Sprintf("template variable %q not found in row data", e.Field)
}

// renderTemplate substitutes row values into {field} placeholders. The
// first placeholder without a matching column aborts the render with a
// TemplateError.
func renderTemplate(template string, row dataset.Row) (string, error) {
	var missing string
	rendered := placeholderRE.ReplaceAllStringFunc(template, func(match string) string {
		field := match[1 : len(match)-1]
		if value, ok := row.Get(field); ok {
			return value
		}
		if missing == "" {
			missing = field
		}
		return match
	})
	if missing != "" {
		return "", &TemplateError{Field: missing}
	}
	return rendered, nil
}
