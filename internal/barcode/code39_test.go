package barcode

import (
	"testing"

	"github.com/MeKo-Tech/metascan/internal/metadata"
	"github.com/stretchr/testify/assert"
)

func TestCode39CheckChar(t *testing.T) {
	c, ok := code39CheckChar("ABC")
	assert.True(t, ok)
	assert.Equal(t, byte('X'), c)

	_, ok = code39CheckChar("abc")
	assert.False(t, ok)
}

func TestSplitCode39Mod43(t *testing.T) {
	tests := []struct {
		name, in, data string
		ok             bool
	}{
		{"valid", "ABCX", "ABC", true},
		{"wrong check", "ABCY", "ABCY", false},
		{"too short", "X", "X", false},
		{"outside alphabet", "abcX", "abcX", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, ok := splitCode39Mod43(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.data, data)
		})
	}
}

func TestApplyCode39Mod43(t *testing.T) {
	checked := Result{Type: metadata.TypeCode39Code, Text: "ABCX"}

	// plain Code 39 requested: leave the text alone
	assert.Equal(t, checked, applyCode39Mod43(checked, DefaultOptions()))

	opts := DefaultOptions()
	opts.Code39Mod43 = true
	got := applyCode39Mod43(checked, opts)
	assert.Equal(t, metadata.TypeCode39Mod43Code, got.Type)
	assert.Equal(t, "ABC", got.Text)

	onlyMod43 := Options{Formats: []metadata.Type{metadata.TypeCode39Mod43Code}}
	assert.Equal(t, metadata.TypeCode39Mod43Code, applyCode39Mod43(checked, onlyMod43).Type)

	unchecked := Result{Type: metadata.TypeCode39Code, Text: "ABCY"}
	assert.Equal(t, metadata.TypeCode39Code, applyCode39Mod43(unchecked, opts).Type)

	qr := Result{Type: metadata.TypeQRCode, Text: "ABCX"}
	assert.Equal(t, qr, applyCode39Mod43(qr, opts))
}
