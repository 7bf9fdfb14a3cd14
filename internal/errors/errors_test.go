package errors

import (
	"context"
	"fmt"
	"testing"
)

func TestIsTransient(t *testing.T) {
	if !IsTransient(TransientErrorf(fmt.Errorf("reset"), "fetch")) {
		t.Error("transient error should be transient")
	}
	if IsTransient(InputError("bad range")) {
		t.Error("input error is not transient")
	}
	if !IsTransient(fmt.Errorf("call: %w", context.DeadlineExceeded)) {
		t.Error("a deadline expiry on an external call counts as transient")
	}
	if IsTransient(nil) {
		t.Error("nil is not transient")
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(InputError("start after end")) {
		t.Error("input errors are fatal")
	}
	if IsFatal(ConfigConflict("explicit strategy vs shape")) {
		t.Error("config conflicts are warnings, not fatal")
	}
	if IsFatal(DataGap(nil, "artifact source down")) {
		t.Error("data gaps degrade, they are not fatal")
	}
}

func TestWrappingPreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := TransientError(cause, "fetch commits")

	if err.Unwrap() != cause {
		t.Error("cause lost in wrapping")
	}
	if err.Error() != "fetch commits: connection refused" {
		t.Errorf("unexpected message: %s", err.Error())
	}
	if GetType(err) != ErrorTypeTransient {
		t.Error("type lost in wrapping")
	}
}
