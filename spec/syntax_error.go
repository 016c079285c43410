package spec

type SyntaxError struct {
	message string
}

func newSyntaxError(message string) *SyntaxError {
	return &SyntaxError{
		message: message,
	}
}

func (e *SyntaxError) Error() string {
	return e.message
}

var (
	// lexical errors
	synErrIDInvalidChar            = newSyntaxError("an identifier can contain only the lower-case letter, the digits, and the underscore")
	synErrIDInvalidUnderscorePos   = newSyntaxError("the underscore cannot be placed at the beginning or end of an identifier")
	synErrIDConsecutiveUnderscores = newSyntaxError("the underscore cannot be placed consecutively")
	synErrIDInvalidDigitsPos       = newSyntaxError("the digits cannot be placed at the beginning of an identifier")
	synErrUnclosedTerminal         = newSyntaxError("unclosed terminal")
	synErrUnclosedString           = newSyntaxError("unclosed string")
	synErrUnclosedAction           = newSyntaxError("unclosed action")
	synErrIncompletedEscSeq        = newSyntaxError("incompleted escape sequence; unexpected EOF following a backslash")
	synErrEmptyPattern             = newSyntaxError("a pattern must include at least one character")
	synErrEmptyString              = newSyntaxError("a string must include at least one character")

	// syntax errors
	synErrInvalidToken           = newSyntaxError("invalid token")
	synErrNoProduction           = newSyntaxError("a grammar must have at least one production")
	synErrTopLevelDirNoSemicolon = newSyntaxError("a top-level directive must be followed by ;")
	synErrNoProductionName       = newSyntaxError("a production name is missing")
	synErrNoColon                = newSyntaxError("the colon must precede alternatives")
	synErrNoSemicolon            = newSyntaxError("the semicolon is missing at the last of an alternative")
	synErrNoDirectiveName        = newSyntaxError("a directive needs a name")
	synErrUnclosedDirGroup       = newSyntaxError("a directive group must be closed by )")
	synErrActionAfterDirective   = newSyntaxError("an action cannot follow directives")
	synErrFragmentNoPattern      = newSyntaxError("a fragment needs one pattern element")
)
