package token

import (
	"errors"
	"testing"
)

func TestSingleTokenLookup(t *testing.T) {
	tests := []struct {
		index int
		value string
	}{
		{3, "s.whatsapp.net"},
		{4, "type"},
		{8, "id"},
		{25, "iq"},
		{41, "get"},
		{85, "1"},
	}
	for _, tt := range tests {
		got, err := GetSingleToken(tt.index)
		if err != nil {
			t.Fatalf("GetSingleToken(%d) error = %v", tt.index, err)
		}
		if got != tt.value {
			t.Errorf("GetSingleToken(%d) = %q, want %q", tt.index, got, tt.value)
		}
		idx, ok := IndexOfSingleToken(tt.value)
		if !ok || int(idx) != tt.index {
			t.Errorf("IndexOfSingleToken(%q) = %d, %v; want %d", tt.value, idx, ok, tt.index)
		}
	}
}

func TestSingleTokenBounds(t *testing.T) {
	for _, i := range []int{-1, 0, len(SingleByteTokens), 255} {
		if _, err := GetSingleToken(i); !errors.Is(err, ErrInvalidIndex) {
			t.Errorf("GetSingleToken(%d) error = %v, want ErrInvalidIndex", i, err)
		}
	}
	if _, ok := IndexOfSingleToken(""); ok {
		t.Error("empty string must not map to a token")
	}
}

func TestSingleTokensFitBelowMarkers(t *testing.T) {
	if len(SingleByteTokens) > Dictionary0 {
		t.Fatalf("single byte table has %d entries, overlaps marker %d", len(SingleByteTokens), Dictionary0)
	}
	seen := make(map[string]int)
	for i, tok := range SingleByteTokens[1:] {
		if prev, ok := seen[tok]; ok {
			t.Errorf("token %q at %d duplicates %d", tok, i+1, prev)
		}
		seen[tok] = i + 1
	}
}

func TestDoubleTokenLookup(t *testing.T) {
	for d, dict := range DoubleByteTokens {
		for i, tok := range dict {
			got, err := GetDoubleToken(d, i)
			if err != nil || got != tok {
				t.Fatalf("GetDoubleToken(%d, %d) = %q, %v", d, i, got, err)
			}
			if _, single := IndexOfSingleToken(tok); single {
				continue
			}
			gotDict, gotIndex, ok := IndexOfDoubleByteToken(tok)
			if !ok {
				t.Errorf("IndexOfDoubleByteToken(%q) not found", tok)
				continue
			}
			back, _ := GetDoubleToken(int(gotDict), int(gotIndex))
			if back != tok {
				t.Errorf("IndexOfDoubleByteToken(%q) points at %q", tok, back)
			}
		}
	}
}

func TestDoubleTokenBounds(t *testing.T) {
	tests := []struct{ dict, index int }{
		{-1, 0},
		{len(DoubleByteTokens), 0},
		{0, -1},
		{0, len(DoubleByteTokens[0])},
		{3, 255},
	}
	for _, tt := range tests {
		if _, err := GetDoubleToken(tt.dict, tt.index); !errors.Is(err, ErrInvalidIndex) {
			t.Errorf("GetDoubleToken(%d, %d) error = %v, want ErrInvalidIndex", tt.dict, tt.index, err)
		}
	}
}
