// Package classify decides what a submitted SQL statement is allowed to do
// before any connection is touched. Classification is a conservative lexical
// scan over literal-stripped text, not a SQL parser: anything it cannot
// recognize fails closed.
package classify

import (
	"regexp"
	"strings"

	"github.com/sqlgate/sqlgate/internal/dialect"
	"github.com/sqlgate/sqlgate/internal/gateerr"
)

// Class is the derived classification of a statement. It is computed once
// and never revised.
type Class string

const (
	ReadOnly    Class = "read-only"
	Mutating    Class = "mutating"
	SchemaAlter Class = "schema-altering"
	Disallowed  Class = "disallowed"
)

var leadingKeyword = map[string]Class{
	"SELECT":   ReadOnly,
	"WITH":     ReadOnly,
	"SHOW":     ReadOnly,
	"DESCRIBE": ReadOnly,
	"DESC":     ReadOnly,
	"EXPLAIN":  ReadOnly,
	"VALUES":   ReadOnly,
	"TABLE":    ReadOnly,
	"PRAGMA":   ReadOnly, // write pragmas are caught by the sqlite forbidden rules

	"INSERT": Mutating,
	"UPDATE": Mutating,
	"DELETE": Mutating,
	"MERGE":  Mutating,

	"CREATE":   SchemaAlter,
	"ALTER":    SchemaAlter,
	"DROP":     SchemaAlter,
	"TRUNCATE": SchemaAlter,
	"RENAME":   SchemaAlter,
	"GRANT":    SchemaAlter,
	"REVOKE":   SchemaAlter,
	"COMMENT":  SchemaAlter,
}

// mutatingInBody catches WITH ... INSERT/UPDATE/DELETE and similar forms
// where the mutation hides behind a read-looking prefix.
var mutatingInBody = regexp.MustCompile(`(?i)(?:^|[^a-zA-Z_])(INSERT|UPDATE|DELETE|MERGE)(?:[^a-zA-Z_]|$)`)

// Classify derives the statement class. The returned error, when non-nil,
// explains why the statement was rejected; the class is still meaningful
// (Disallowed for anything rejected during scanning).
func Classify(sqlText string, d dialect.Dialect) (Class, error) {
	trimmed := strings.TrimSpace(sqlText)
	if trimmed == "" {
		return Disallowed, gateerr.New(gateerr.KindValidation, "empty statement")
	}

	cleaned := d.StripLiterals(trimmed)

	// Stacked queries: a terminator followed by anything else.
	if idx := strings.Index(cleaned, ";"); idx >= 0 {
		if strings.TrimSpace(cleaned[idx+1:]) != "" {
			return Disallowed, gateerr.New(gateerr.KindValidation, "multiple statements are not allowed")
		}
	}

	first := firstToken(cleaned)
	class, ok := leadingKeyword[strings.ToUpper(first)]
	if !ok {
		return Disallowed, gateerr.Newf(gateerr.KindValidation, "unrecognized statement %q", first)
	}

	// A read-looking prefix (WITH, EXPLAIN) does not make a statement
	// read-only if a mutation keyword appears in the body.
	if class == ReadOnly && mutatingInBody.MatchString(cleaned) {
		class = Mutating
	}

	// Dialect-specific dangerous constructs are rejected regardless of class.
	for _, r := range d.Forbidden() {
		if r.Pattern.MatchString(cleaned) {
			return Disallowed, gateerr.Newf(gateerr.KindValidation, "forbidden construct: %s", r.Desc)
		}
	}

	return class, nil
}

// CheckParams verifies that the caller supplied exactly as many parameters
// as the statement has placeholders. Runs before any connection is acquired.
func CheckParams(sqlText string, params []any, d dialect.Dialect) error {
	cleaned := d.StripLiterals(sqlText)
	want := dialect.CountPlaceholders(cleaned, d.Placeholders())
	if want != len(params) {
		return gateerr.Newf(gateerr.KindValidation,
			"statement expects %d parameters, got %d", want, len(params))
	}
	return nil
}

func firstToken(s string) string {
	s = strings.TrimSpace(s)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_') {
			return s[:i]
		}
	}
	return s
}
