package apiclient

import (
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const maxErrorBodyBytes = 1024

// Response is the outcome of one API call. Elapsed is always set, even when
// the call failed before a status line arrived.
type Response struct {
	Operation  string
	StatusCode int
	Body       []byte
	Elapsed    time.Duration
	Err        error
}

// ID returns the "id" field of a JSON body, or "" when absent.
func (r Response) ID() string {
	if len(r.Body) == 0 || !gjson.ValidBytes(r.Body) {
		return ""
	}
	return strings.TrimSpace(gjson.GetBytes(r.Body, "id").String())
}

// Expect returns the transport error, a *StatusError when the code differs,
// or nil.
func (r Response) Expect(code int) error {
	if r.Err != nil {
		return r.Err
	}
	if r.StatusCode != code {
		return newStatusError(r.Operation, code, r.StatusCode, r.Body)
	}
	return nil
}

// StatusError reports an unexpected HTTP status.
type StatusError struct {
	Operation string
	Expected  int
	Got       int
	Body      string
}

func newStatusError(op string, expected, got int, body []byte) *StatusError {
	snippet := body
	if len(snippet) > maxErrorBodyBytes {
		snippet = snippet[:maxErrorBodyBytes]
	}
	return &StatusError{
		Operation: op,
		Expected:  expected,
		Got:       got,
		Body:      strings.TrimSpace(string(snippet)),
	}
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: HTTP %d, want %d", e.Operation, e.Got, e.Expected)
	}
	return fmt.Sprintf("%s: HTTP %d, want %d: %s", e.Operation, e.Got, e.Expected, e.Body)
}
