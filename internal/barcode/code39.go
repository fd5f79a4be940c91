package barcode

import (
	"strings"

	"github.com/MeKo-Tech/metascan/internal/metadata"
)

const code39Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ-. $/+%"

// code39CheckChar returns the mod 43 check character for data.
func code39CheckChar(data string) (byte, bool) {
	sum := 0
	for i := 0; i < len(data); i++ {
		v := strings.IndexByte(code39Alphabet, data[i])
		if v < 0 {
			return 0, false
		}
		sum += v
	}
	return code39Alphabet[sum%43], true
}

// splitCode39Mod43 strips a trailing mod 43 check character from text and
// reports whether it was valid.
func splitCode39Mod43(text string) (string, bool) {
	if len(text) < 2 {
		return text, false
	}
	data, check := text[:len(text)-1], text[len(text)-1]
	want, ok := code39CheckChar(data)
	if !ok || want != check {
		return text, false
	}
	return data, true
}

// applyCode39Mod43 retypes Code 39 results carrying a valid check character.
// It applies when Code39Mod43 is set or when only the checked variant was requested.
func applyCode39Mod43(r Result, opts Options) Result {
	if r.Type != metadata.TypeCode39Code {
		return r
	}
	if !opts.Code39Mod43 && opts.wants(metadata.TypeCode39Code) {
		return r
	}
	data, ok := splitCode39Mod43(r.Text)
	if !ok {
		return r
	}
	r.Type = metadata.TypeCode39Mod43Code
	r.Text = data
	return r
}
