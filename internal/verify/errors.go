// internal/verify/errors.go
package verify

import (
	"fmt"
	"strings"
)

// RejectionError is a terminal verification failure. Kind is one of the domain
// sentinels; Expected and Actual carry the compared values when there are any.
type RejectionError struct {
	Kind      error
	Signature string
	Expected  string
	Actual    string
	Reason    string
}

func (e *RejectionError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Expected != "" || e.Actual != "" {
		fmt.Fprintf(&b, " (expected %s, actual %s)", e.Expected, e.Actual)
	}
	return b.String()
}

func (e *RejectionError) Unwrap() error {
	return e.Kind
}

// Details returns the structured fields for API responses.
func (e *RejectionError) Details() map[string]string {
	d := make(map[string]string, 3)
	if e.Signature != "" {
		d["signature"] = e.Signature
	}
	if e.Expected != "" {
		d["expected"] = e.Expected
	}
	if e.Actual != "" {
		d["actual"] = e.Actual
	}
	return d
}

func reject(kind error, signature, reason string) *RejectionError {
	return &RejectionError{Kind: kind, Signature: signature, Reason: reason}
}
