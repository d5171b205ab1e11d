package defs

import "testing"

func TestToErrorZeroIsNil(t *testing.T) {
	if Err_t(0).ToError() != nil {
		t.Fatal("expected zero Err_t to convert to nil error")
	}
}

func TestToErrorNonzeroMessage(t *testing.T) {
	err := EFAULT.ToError()
	if err == nil {
		t.Fatal("expected nonzero Err_t to convert to a non-nil error")
	}
	if err.Error() != "bad address" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestErrorUnknownCode(t *testing.T) {
	if got := Err_t(-999).Error(); got != "errno -999" {
		t.Fatalf("want fallback format, got %q", got)
	}
}
