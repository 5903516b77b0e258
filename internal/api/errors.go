package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Kind classifies every failure the client can report.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindUnprocessable
	KindBadGateway
	KindServer
	KindTransport
	KindCancelled
)

var kindNames = map[Kind]string{
	KindValidation:    "validation",
	KindUnauthorized:  "unauthorized",
	KindForbidden:     "forbidden",
	KindNotFound:      "not found",
	KindConflict:      "conflict",
	KindUnprocessable: "unprocessable content",
	KindBadGateway:    "bad gateway",
	KindServer:        "server error",
	KindTransport:     "transport",
	KindCancelled:     "cancelled",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the only error type returned by Client operations.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	// Fields maps a field path to its messages. Set for local validation
	// failures and for 422 responses that report field errors.
	Fields map[string][]string
	// Problems holds the structured list behind Fields for local validation.
	Problems field.ErrorList
	Err      error
}

// Sentinels for errors.Is. Any *Error of the same Kind matches.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrUnauthorized  = &Error{Kind: KindUnauthorized}
	ErrForbidden     = &Error{Kind: KindForbidden}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrConflict      = &Error{Kind: KindConflict}
	ErrUnprocessable = &Error{Kind: KindUnprocessable}
	ErrBadGateway    = &Error{Kind: KindBadGateway}
	ErrServer        = &Error{Kind: KindServer}
	ErrTransport     = &Error{Kind: KindTransport}
	ErrCancelled     = &Error{Kind: KindCancelled}
)

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Status > 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of err, or zero when err is not an *Error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}

// IsCancelled reports whether err only records a caller cancellation.
// Callers drop such outcomes instead of logging or displaying them.
func IsCancelled(err error) bool {
	return KindOf(err) == KindCancelled
}

type errorBody struct {
	Message string                     `json:"message"`
	Errors  map[string]json.RawMessage `json:"errors"`
}

// MapError classifies a non-2xx response. The mapping only looks at the
// status; the body contributes the message and, for 422, field errors.
func MapError(status int, body []byte) *Error {
	e := &Error{Kind: kindForStatus(status), Status: status}

	var payload errorBody
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && json.Unmarshal(trimmed, &payload) == nil {
		e.Message = strings.TrimSpace(payload.Message)
		if e.Kind == KindUnprocessable {
			e.Fields = flattenFieldMessages(payload.Errors)
		}
	}
	if e.Message == "" {
		e.Message = strings.ToLower(http.StatusText(status))
	}
	if e.Message == "" {
		e.Message = "unexpected status"
	}
	return e
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusUnprocessableEntity:
		return KindUnprocessable
	case http.StatusBadGateway:
		return KindBadGateway
	default:
		return KindServer
	}
}

// flattenFieldMessages accepts both {"title": "msg"} and {"title": ["a", "b"]}.
func flattenFieldMessages(raw map[string]json.RawMessage) map[string][]string {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string][]string, len(raw))
	for key, value := range raw {
		var single string
		if err := json.Unmarshal(value, &single); err == nil {
			out[key] = []string{single}
			continue
		}
		var many []string
		if err := json.Unmarshal(value, &many); err == nil {
			out[key] = many
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func validationError(op string, problems field.ErrorList) *Error {
	fields := make(map[string][]string, len(problems))
	for _, p := range problems {
		fields[p.Field] = append(fields[p.Field], p.ErrorBody())
	}
	return &Error{
		Kind:     KindValidation,
		Op:       op,
		Message:  problems.ToAggregate().Error(),
		Fields:   fields,
		Problems: problems,
	}
}

// transportError separates caller cancellation from network failures.
func transportError(ctx context.Context, op string, err error) *Error {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return cancelledError(op)
	}
	return &Error{Kind: KindTransport, Op: op, Message: err.Error(), Err: err}
}

func cancelledError(op string) *Error {
	return &Error{Kind: KindCancelled, Op: op, Message: "request cancelled", Err: context.Canceled}
}
