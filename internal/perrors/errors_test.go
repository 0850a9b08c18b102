package perrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesWrappedKind(t *testing.T) {
	base := New(StoreError, "insert failed")
	wrapped := fmt.Errorf("bundle store: %w", base)

	if !Is(wrapped, StoreError) {
		t.Error("expected Is to match wrapped StoreError")
	}
	if Is(wrapped, BlobError) {
		t.Error("did not expect Is to match BlobError")
	}
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(StoreError, "commit failed", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
}

func TestWrapItemIncludesItemInMessage(t *testing.T) {
	err := WrapItem(NoSuchItem, "bundle missing", "00000000-0000-0000-0000-000000000001", nil)
	if got := err.Error(); !contains(got, "00000000-0000-0000-0000-000000000001") {
		t.Errorf("expected item in message, got %q", got)
	}
}

func contains(s, sub string) bool {
	return len(s) >= len(sub) && (func() bool {
		for i := 0; i+len(sub) <= len(s); i++ {
			if s[i:i+len(sub)] == sub {
				return true
			}
		}
		return false
	})()
}

func TestParsePolicy(t *testing.T) {
	p := ParsePolicy("mv")
	if !p.LenientMixins || !p.Verbose || p.LenientMissingChild {
		t.Errorf("unexpected policy: %+v", p)
	}
	if ParsePolicy("").String() != "" {
		t.Error("expected empty policy to round-trip to empty string")
	}
}
