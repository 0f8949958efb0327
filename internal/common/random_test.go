package common

import (
	"encoding/base64"
	"testing"
)

func TestMakeRandBase64String_Length(t *testing.T) {
	t.Parallel()

	s, err := MakeRandBase64String(64)
	if err != nil {
		t.Fatalf("MakeRandBase64String error: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		t.Fatalf("result is not valid base64: %v", err)
	}
	if len(raw) != 64 {
		t.Fatalf("decoded length: got %d want 64", len(raw))
	}
}

func TestMakeRandBase64String_Unique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		s, err := MakeRandBase64String(64)
		if err != nil {
			t.Fatalf("MakeRandBase64String error: %v", err)
		}
		if _, ok := seen[s]; ok {
			t.Fatalf("duplicate token generated: %q", s)
		}
		seen[s] = struct{}{}
	}
}
