package lexer

import "mlsec/internal/ast"

// Kind enumerates lexical token kinds.
type Kind int

const (
	ILLEGAL Kind = iota - 1
	EOF
	IDENT
	NUMBER
	STRING
	// Keywords
	KwCapability
	KwResource
	KwAllow
	KwTo
	KwImport
	KwAs
	KwFunction
	KwIf
	KwElif
	KwElse
	KwWhile
	KwFor
	KwIn
	KwReturn
	KwTry
	KwExcept
	KwFinally
	KwBreak
	KwContinue
	KwTrue
	KwFalse
	KwNull
	// Punctuation & operators
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	LBRACKET
	RBRACKET
	COMMA
	COLON
	SEMI
	DOT
	ASSIGN
	PLUS
	MINUS
	STAR
	SLASH
	PERCENT
	BANG
	EQ
	NEQ
	LT
	LTE
	GT
	GTE
	AND
	OR
)

var keywords = map[string]Kind{
	"capability": KwCapability,
	"resource":   KwResource,
	"allow":      KwAllow,
	"to":         KwTo,
	"import":     KwImport,
	"as":         KwAs,
	"function":   KwFunction,
	"if":         KwIf,
	"elif":       KwElif,
	"else":       KwElse,
	"while":      KwWhile,
	"for":        KwFor,
	"in":         KwIn,
	"return":     KwReturn,
	"try":        KwTry,
	"except":     KwExcept,
	"finally":    KwFinally,
	"break":      KwBreak,
	"continue":   KwContinue,
	"true":       KwTrue,
	"false":      KwFalse,
	"null":       KwNull,
}

// Token is a single lexical unit: kind, raw lexeme, and source span.
type Token struct {
	Kind   Kind
	Lexeme string
	Span   ast.Span
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "UNKNOWN"
}

var kindNames = map[Kind]string{
	ILLEGAL: "ILLEGAL", EOF: "EOF", IDENT: "IDENT", NUMBER: "NUMBER", STRING: "STRING",
	KwCapability: "capability", KwResource: "resource", KwAllow: "allow", KwTo: "to",
	KwImport: "import", KwAs: "as", KwFunction: "function", KwIf: "if", KwElif: "elif",
	KwElse: "else", KwWhile: "while", KwFor: "for", KwIn: "in", KwReturn: "return",
	KwTry: "try", KwExcept: "except", KwFinally: "finally", KwBreak: "break",
	KwContinue: "continue", KwTrue: "true", KwFalse: "false", KwNull: "null",
	LPAREN: "(", RPAREN: ")", LBRACE: "{", RBRACE: "}", LBRACKET: "[", RBRACKET: "]",
	COMMA: ",", COLON: ":", SEMI: ";", DOT: ".", ASSIGN: "=",
	PLUS: "+", MINUS: "-", STAR: "*", SLASH: "/", PERCENT: "%", BANG: "!",
	EQ: "==", NEQ: "!=", LT: "<", LTE: "<=", GT: ">", GTE: ">=", AND: "&&", OR: "||",
}
