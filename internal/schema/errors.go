package schema

import "strings"

// ValidationError is a single validation problem, tagged with the path
// it occurred at and, for unknown-key problems, a suggested fix.
type ValidationError struct {
	Path       string
	Message    string
	Suggestion string
	Example    string
}

func (e ValidationError) String() string {
	s := e.Path + ": " + e.Message
	if e.Suggestion != "" {
		s += " (did you mean `" + e.Suggestion + "`?"
		if e.Example != "" {
			s += " e.g. " + e.Example
		}
		s += ")"
	}
	return s
}

// Errors accumulates ValidationErrors during a single Validate call.
type Errors struct {
	Items []ValidationError
}

// Add records a plain validation error at path.
func (e *Errors) Add(path Path, message string) {
	e.Items = append(e.Items, ValidationError{Path: path.String(), Message: message})
}

// AddSuggestion records an unknown-key error with a proposed fix.
func (e *Errors) AddSuggestion(path Path, message, suggestion, example string) {
	e.Items = append(e.Items, ValidationError{
		Path: path.String(), Message: message, Suggestion: suggestion, Example: example,
	})
}

// HasErrors reports whether any problems were recorded.
func (e *Errors) HasErrors() bool { return e != nil && len(e.Items) > 0 }

// Error implements the error interface, joining every recorded problem.
func (e *Errors) Error() string {
	lines := make([]string, len(e.Items))
	for i, item := range e.Items {
		lines[i] = item.String()
	}
	return strings.Join(lines, "\n")
}
