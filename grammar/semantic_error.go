package grammar

// ErrorClass tells apart the two kinds of fatal errors the grammar builder reports.
type ErrorClass string

const (
	// ClassGrammarDefinition is the class of errors in the structure of a grammar, such as duplicate
	// productions, malformed right-hand sides, or non-terminals without productions.
	ClassGrammarDefinition = ErrorClass("grammar definition error")

	// ClassUnknownSymbol is the class of references to names that are neither terminals nor non-terminals.
	ClassUnknownSymbol = ErrorClass("unknown symbol error")
)

type SemanticError struct {
	message string
	class   ErrorClass
}

func newSemanticError(message string) *SemanticError {
	return &SemanticError{
		message: message,
		class:   ClassGrammarDefinition,
	}
}

func newUnknownSymbolError(message string) *SemanticError {
	return &SemanticError{
		message: message,
		class:   ClassUnknownSymbol,
	}
}

func (e *SemanticError) Error() string {
	return e.message
}

func (e *SemanticError) Class() ErrorClass {
	return e.class
}

var (
	semErrNoGrammarName         = newSemanticError("name is missing")
	semErrUnusedProduction      = newSemanticError("unused production")
	semErrUnusedTerminal        = newSemanticError("unused terminal")
	semErrTermCannotBeSkipped   = newSemanticError("a terminal used in productions cannot be skipped")
	semErrNonTermNoProduction   = newSemanticError("a non-terminal needs at least one production")
	semErrMalformedRHS          = newSemanticError("malformed right-hand side")
	semErrDuplicateProduction   = newSemanticError("duplicate production")
	semErrDuplicateTerminal     = newSemanticError("duplicate terminal")
	semErrDuplicateFragment     = newSemanticError("duplicate fragment")
	semErrDuplicateName         = newSemanticError("duplicate names are not allowed between terminals and non-terminals")
	semErrDuplicateAssoc        = newSemanticError("associativity and precedence cannot be specified multiple times for a symbol")
	semErrUndefinedPrec         = newSemanticError("symbol must has precedence")
	semErrDirInvalidName        = newSemanticError("invalid directive name")
	semErrDirInvalidParam       = newSemanticError("invalid parameter")
	semErrDuplicateDir          = newSemanticError("a directive must not be duplicated")
	semErrLexicalSpec           = newSemanticError("invalid lexical specification")
	semErrSpellingInconsistency = newSemanticError("the identifiers are treated as the same. please use the same spelling")

	semErrUndefinedSym = newUnknownSymbolError("undefined symbol")
)
