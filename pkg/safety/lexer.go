package safety

// tokenKind classifies the lexeme classes the read-only policy cares about.
// The lexer distinguishes unquoted words from string literals and quoted
// identifiers so that a keyword hiding inside 'a string' or "a column name"
// never influences the verdict.
type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenWord
	tokenString
	tokenQuotedIdent
	tokenNumber
	tokenSemicolon
	tokenSymbol
)

// token is a single lexeme with its byte offset in the input.
type token struct {
	kind    tokenKind
	literal string
	offset  int
}

// lexer tokenizes candidate SQL. It is deliberately smaller than a full SQL
// lexer: it only needs to delimit words, skip comments, and track statement
// separators with SQLite's quoting rules.
type lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
}

func newLexer(input string) *lexer {
	l := &lexer{input: input}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

// peekChar returns the next character without advancing.
func (l *lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// next returns the next token.
func (l *lexer) next() token {
	l.skipWhitespaceAndComments()

	tok := token{offset: l.pos}

	switch {
	case l.ch == 0:
		tok.kind = tokenEOF
		return tok
	case l.ch == ';':
		tok.kind = tokenSemicolon
		tok.literal = ";"
		l.readChar()
		return tok
	case l.ch == '\'':
		tok.kind = tokenString
		tok.literal = l.readString()
		return tok
	case l.ch == '"':
		tok.kind = tokenQuotedIdent
		tok.literal = l.readQuoted('"')
		return tok
	case l.ch == '`':
		// MySQL-style quoting, accepted by SQLite
		tok.kind = tokenQuotedIdent
		tok.literal = l.readQuoted('`')
		return tok
	case l.ch == '[':
		// MSSQL-style quoting, accepted by SQLite
		tok.kind = tokenQuotedIdent
		tok.literal = l.readBracketed()
		return tok
	case isLetter(l.ch) || l.ch == '_':
		tok.kind = tokenWord
		tok.literal = l.readWord()
		return tok
	case isDigit(l.ch):
		tok.kind = tokenNumber
		tok.literal = l.readNumber()
		return tok
	default:
		tok.kind = tokenSymbol
		tok.literal = string(l.ch)
		l.readChar()
		return tok
	}
}

// skipWhitespaceAndComments skips whitespace, line comments (-- ...) and
// block comments (/* ... */). An unterminated block comment consumes the
// rest of the input.
func (l *lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}

		if l.ch == '-' && l.peekChar() == '-' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}

		if l.ch == '/' && l.peekChar() == '*' {
			l.readChar() // skip '/'
			l.readChar() // skip '*'
			for l.ch != 0 {
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar() // skip '*'
					l.readChar() // skip '/'
					break
				}
				l.readChar()
			}
			continue
		}

		break
	}
}

// readString reads a single-quoted string literal.
// Handles doubled single quotes as escape: 'it''s' -> it's
func (l *lexer) readString() string {
	start := l.pos
	l.readChar() // skip opening quote

	for l.ch != 0 {
		if l.ch == '\'' {
			if l.peekChar() == '\'' {
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // skip closing quote
			break
		}
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readQuoted reads an identifier quoted with the given character, with
// doubled quotes as escape.
func (l *lexer) readQuoted(quote byte) string {
	start := l.pos
	l.readChar() // skip opening quote

	for l.ch != 0 {
		if l.ch == quote {
			if l.peekChar() == quote {
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // skip closing quote
			break
		}
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readBracketed reads a [bracketed] identifier.
func (l *lexer) readBracketed() string {
	start := l.pos
	for l.ch != 0 && l.ch != ']' {
		l.readChar()
	}
	if l.ch == ']' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readWord reads an unquoted identifier or keyword.
func (l *lexer) readWord() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal, loosely: digits plus any trailing
// alphanumerics (hex, exponents). Precision does not matter for the policy,
// only that the characters are consumed as a non-word unit.
func (l *lexer) readNumber() string {
	start := l.pos
	for isDigit(l.ch) || isLetter(l.ch) || l.ch == '.' || l.ch == '_' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch >= 0x80
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
