package toolset

// Error is a handler failure with an optional recovery suggestion. The
// transport extracts the suggestion into the error envelope's data payload;
// plain errors surface with their message only.
type Error struct {
	Message    string
	Suggestion string
}

func (e *Error) Error() string { return e.Message }

// NewError builds a handler failure carrying a suggestion.
func NewError(message, suggestion string) *Error {
	return &Error{Message: message, Suggestion: suggestion}
}
