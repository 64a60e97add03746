package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		kind Kind
	}{
		{Configuration("missing key"), KindConfiguration},
		{Transport(stderrors.New("dial refused"), "store unreachable"), KindTransport},
		{Validation("amount must be positive"), KindValidation},
		{NotFound("section %s", "s-1"), KindNotFound},
		{Unauthorized("bad token"), KindUnauthorized},
		{stderrors.New("plain"), ""},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.kind {
			t.Errorf("KindOf(%v) = %q, want %q", tc.err, got, tc.kind)
		}
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("save devotional: %w", Transport(stderrors.New("timeout"), "verse api"))
	if !IsTransport(err) {
		t.Errorf("wrapped transport error not detected: %v", err)
	}
	if IsValidation(err) {
		t.Errorf("wrapped error misclassified as validation")
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := Transport(cause, "subscribe")
	if !stderrors.Is(err, cause) {
		t.Error("Transport error should unwrap to its cause")
	}
}

func TestError_Message(t *testing.T) {
	err := NotFound("item %s in section %s", "i-2", "s-1")
	want := "not_found: item i-2 in section s-1"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
