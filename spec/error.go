package spec

import "fmt"

type SyntaxError struct {
	message string
}

func newSyntaxError(message string) *SyntaxError {
	return &SyntaxError{
		message: message,
	}
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error: %s", e.message)
}

var (
	synErrInvalidDescription = newSyntaxError("invalid grammar description")
	synErrUnclosedLiteral    = newSyntaxError("unclosed literal")
	synErrInvalidEscSeq      = newSyntaxError("invalid escape sequence; only \\' and \\\\ are allowed in a literal")
)

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
	semErrNoStart           = newSemanticError("a start symbol is required")
	semErrNoRule            = newSemanticError("a grammar must have at least one rule")
	semErrEmptyName         = newSemanticError("a name must not be empty")
	semErrEmptyPattern      = newSemanticError("a token needs a pattern")
	semErrEmptyLiteral      = newSemanticError("a literal must not be empty")
	semErrDuplicateKind     = newSemanticError("duplicate token kind")
	semErrKindIsNonTerminal = newSemanticError("a token kind cannot be the LHS of a rule")
	semErrUnknownRestart    = newSemanticError("a restart symbol must be the LHS of a rule")
	semErrNegativeBudget    = newSemanticError("max_repair must be non-negative")
	semErrInvalidLexSpec    = newSemanticError("invalid token definitions")
	semErrInvalidGrammar    = newSemanticError("invalid rules")
	semErrUndefinedSymbol   = newSemanticError("undefined symbols")
)
