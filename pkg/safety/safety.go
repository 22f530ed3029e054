// Package safety is the gate between model-generated SQL and the database.
//
// Generated SQL is untrusted input: it may be malformed, contain multiple
// statements, or smuggle a write behind a harmless-looking SELECT. Vet
// tokenizes the candidate statement rather than substring-matching, so a
// column named updated_at or the word DROP inside a string literal never
// causes a false verdict, while a second statement hidden after a comment
// cannot slip through.
package safety

import (
	"fmt"
	"strings"
)

// forbidden lists keywords that mutate data or schema, or otherwise escape
// the read-only sandbox. Matching is case-insensitive and applies to
// unquoted words only.
var forbidden = map[string]struct{}{
	"insert":   {},
	"update":   {},
	"delete":   {},
	"drop":     {},
	"alter":    {},
	"create":   {},
	"replace":  {},
	"truncate": {},
	"attach":   {},
	"detach":   {},
	"pragma":   {},
	"vacuum":   {},
}

// UnsafeError reports why a candidate statement was rejected. The offending
// SQL is retained for display.
type UnsafeError struct {
	Reason string
	SQL    string
}

func (e *UnsafeError) Error() string {
	return fmt.Sprintf("unsafe or non-SELECT statement: %s", e.Reason)
}

// Vet decides whether candidate SQL is permissible to execute under the
// read-only policy. On acceptance it returns the normalized statement:
// surrounding whitespace and a single trailing semicolon stripped, the text
// otherwise unchanged. Vet is pure and idempotent: vetting an already-vetted
// statement returns it unmodified.
//
// A statement is accepted when all of the following hold:
//   - after comments and whitespace, it begins with SELECT, or with WITH
//     leading into a SELECT
//   - no forbidden keyword (INSERT, UPDATE, DELETE, DROP, ALTER, CREATE,
//     REPLACE, TRUNCATE, ATTACH, DETACH, PRAGMA, VACUUM) appears as an
//     unquoted word anywhere in the statement
//   - no statement separator is followed by further content
func Vet(candidate string) (string, error) {
	reject := func(reason string) (string, error) {
		return "", &UnsafeError{Reason: reason, SQL: candidate}
	}

	l := newLexer(candidate)
	var tokens []token
	for {
		tok := l.next()
		tokens = append(tokens, tok)
		if tok.kind == tokenEOF {
			break
		}
	}

	first := tokens[0]
	if first.kind == tokenEOF {
		return reject("empty statement")
	}

	sawSelect := false
	semiAt := -1
	for i, tok := range tokens {
		switch tok.kind {
		case tokenWord:
			word := strings.ToLower(tok.literal)
			if _, ok := forbidden[word]; ok {
				return reject(fmt.Sprintf("forbidden keyword %s", strings.ToUpper(word)))
			}
			if word == "select" {
				sawSelect = true
			}
		case tokenSemicolon:
			if semiAt >= 0 {
				return reject("multiple statements")
			}
			semiAt = i
		case tokenEOF, tokenString, tokenQuotedIdent, tokenNumber, tokenSymbol:
		}
	}

	switch {
	case first.kind != tokenWord:
		return reject("statement must begin with SELECT")
	case strings.EqualFold(first.literal, "select"):
	case strings.EqualFold(first.literal, "with"):
		if !sawSelect {
			return reject("WITH clause does not lead into a SELECT")
		}
	default:
		return reject("statement must begin with SELECT")
	}

	if semiAt >= 0 {
		// The separator itself is tolerated only as a trailer. Anything after
		// it, comments included, is treated as a second statement attempt.
		if tokens[semiAt+1].kind != tokenEOF {
			return reject("multiple statements")
		}
		sep := tokens[semiAt]
		if rest := strings.TrimSpace(candidate[sep.offset+1:]); rest != "" {
			return reject("content after statement separator")
		}
		return strings.TrimSpace(candidate[:sep.offset]), nil
	}

	return strings.TrimSpace(candidate), nil
}
