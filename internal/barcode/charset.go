package barcode

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/ianaindex"
)

// textValue decides the string value of a result. Engine text is kept when it
// is printable UTF-8; otherwise the raw payload is decoded with the charset
// hint. It returns false when neither yields readable text.
func textValue(r Result, charset string) (string, bool) {
	if r.Text != "" && printable(r.Text) {
		return r.Text, true
	}
	if charset == "" || len(r.Raw) == 0 {
		return "", false
	}
	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil || enc == nil {
		return "", false
	}
	decoded, err := enc.NewDecoder().Bytes(r.Raw)
	if err != nil {
		return "", false
	}
	s := string(decoded)
	if s == "" || !printable(s) {
		return "", false
	}
	return s, true
}

func printable(s string) bool {
	if !utf8.ValidString(s) || strings.ContainsRune(s, utf8.RuneError) {
		return false
	}
	for _, r := range s {
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
