// Package encode converts execution outcomes into the structured response
// shape the transport returns to the caller. Values are normalized to a small
// set of scalar kinds; everything else is rendered as annotated text rather
// than failing the response.
package encode

import (
	"fmt"
	"time"

	"github.com/sqlgate/sqlgate/internal/classify"
	"github.com/sqlgate/sqlgate/internal/gateerr"
	"github.com/sqlgate/sqlgate/internal/logging"
)

// OutcomeKind tags which variant of Outcome is populated.
type OutcomeKind int

const (
	// RowsReturned carries a bounded result set.
	RowsReturned OutcomeKind = iota
	// RowsAffected carries a mutation count.
	RowsAffected
	// Failed carries an error.
	Failed
)

// Outcome is the terminal artifact of executing one request. Exactly one
// variant is meaningful, selected by Kind.
type Outcome struct {
	Kind  OutcomeKind
	Class classify.Class

	Columns   []string
	Rows      []map[string]any
	Truncated bool

	Affected int64

	Err error
}

// Failure builds an error outcome.
func Failure(class classify.Class, err error) Outcome {
	return Outcome{Kind: Failed, Class: class, Err: err}
}

// ErrorPayload is the structured error half of a response.
type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Response is the encoded form returned to the caller. It always carries the
// classification, counts, and truncation flag, and either data or an error,
// never both.
type Response struct {
	Classification string           `json:"classification"`
	Columns        []string         `json:"columns,omitempty"`
	Rows           []map[string]any `json:"rows,omitempty"`
	RowCount       int              `json:"row_count"`
	RowsAffected   int64            `json:"rows_affected"`
	Truncated      bool             `json:"truncated"`
	Error          *ErrorPayload    `json:"error,omitempty"`
}

// Encode converts an outcome into the response shape.
func Encode(o Outcome) *Response {
	resp := &Response{Classification: string(o.Class)}
	switch o.Kind {
	case Failed:
		// Wrapped driver text can carry a DSN; mask it like the log lines.
		resp.Error = &ErrorPayload{
			Kind:    string(gateerr.KindOf(o.Err)),
			Message: logging.Mask(gateerr.MessageOf(o.Err)),
		}
	case RowsAffected:
		resp.RowsAffected = o.Affected
	default:
		resp.Columns = o.Columns
		resp.Rows = o.Rows
		resp.RowCount = len(o.Rows)
		resp.Truncated = o.Truncated
	}
	return resp
}

// Scalar normalizes one database value to a response scalar: nil, bool,
// int64, float64, or text. Driver byte slices cover text and exact numerics;
// rendering them as text preserves decimal precision. Unknown types become
// annotated text instead of failing the row.
func Scalar(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case bool, int64, float64, string:
		return val
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case []byte:
		return string(append([]byte(nil), val...))
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v (%T)", val, val)
	}
}
