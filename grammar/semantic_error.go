package grammar

type SemanticError struct {
	message string
}

func newSemanticError(message string) *SemanticError {
	return &SemanticError{
		message: message,
	}
}

func (e *SemanticError) Error() string {
	return e.message
}

var (
	ErrAmbiguousOrEmptyGrammar = newSemanticError("the start symbol has no rules")
	ErrEmptySymbol             = newSemanticError("a symbol name must not be empty")
	ErrNilMatcher              = newSemanticError("a terminal needs a matcher")
	ErrTooManySymbols          = newSemanticError("a symbol number exceeds the limit")
	ErrDuplicateName           = newSemanticError("duplicate names are not allowed between terminals and non-terminals")
)
