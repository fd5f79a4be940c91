package metadata

import (
	"fmt"
	"strings"
)

// Type identifies the kind of a metadata object. Consumers filter collections
// of objects by comparing against the constants below.
type Type string

const (
	TypeFace            Type = "face"
	TypeUPCECode        Type = "org.gs1.UPC-E"
	TypeCode39Code      Type = "org.iso.Code39"
	TypeCode39Mod43Code Type = "org.iso.Code39Mod43"
	TypeEAN13Code       Type = "org.gs1.EAN-13"
	TypeEAN8Code        Type = "org.gs1.EAN-8"
	TypeCode93Code      Type = "com.intermec.Code93"
	TypeCode128Code     Type = "org.iso.Code128"
	TypePDF417Code      Type = "org.iso.PDF417"
	TypeQRCode          Type = "org.iso.QRCode"
	TypeAztecCode       Type = "org.iso.Aztec"
)

// Kind groups types by the descriptor variant that carries them.
type Kind int

const (
	KindUnknown Kind = iota
	KindFace
	KindMachineReadableCode
)

func (k Kind) String() string {
	switch k {
	case KindFace:
		return "face"
	case KindMachineReadableCode:
		return "code"
	default:
		return "unknown"
	}
}

var codeTypes = []Type{
	TypeUPCECode,
	TypeCode39Code,
	TypeCode39Mod43Code,
	TypeEAN13Code,
	TypeEAN8Code,
	TypeCode93Code,
	TypeCode128Code,
	TypePDF417Code,
	TypeQRCode,
	TypeAztecCode,
}

// aliases accepted by ParseType, keyed by lower-case spelling.
var aliases = map[string]Type{
	"face":        TypeFace,
	"upce":        TypeUPCECode,
	"upc-e":       TypeUPCECode,
	"code39":      TypeCode39Code,
	"code-39":     TypeCode39Code,
	"code39mod43": TypeCode39Mod43Code,
	"code-39-43":  TypeCode39Mod43Code,
	"ean13":       TypeEAN13Code,
	"ean-13":      TypeEAN13Code,
	"upca":        TypeEAN13Code,
	"upc-a":       TypeEAN13Code,
	"ean8":        TypeEAN8Code,
	"ean-8":       TypeEAN8Code,
	"code93":      TypeCode93Code,
	"code-93":     TypeCode93Code,
	"code128":     TypeCode128Code,
	"code-128":    TypeCode128Code,
	"pdf417":      TypePDF417Code,
	"qr":          TypeQRCode,
	"qrcode":      TypeQRCode,
	"aztec":       TypeAztecCode,
}

// KnownTypes returns the closed type vocabulary, face first.
func KnownTypes() []Type {
	return append([]Type{TypeFace}, codeTypes...)
}

// CodeTypes returns the machine-readable code symbologies.
func CodeTypes() []Type {
	return append([]Type(nil), codeTypes...)
}

// Kind reports which descriptor variant carries t.
func (t Type) Kind() Kind {
	if t == TypeFace {
		return KindFace
	}
	for _, c := range codeTypes {
		if t == c {
			return KindMachineReadableCode
		}
	}
	return KindUnknown
}

// IsKnown reports whether t belongs to the closed vocabulary.
func (t Type) IsKnown() bool { return t.Kind() != KindUnknown }

// IsCode reports whether t is a machine-readable code symbology.
func (t Type) IsCode() bool { return t.Kind() == KindMachineReadableCode }

// ShortName returns a compact lower-case alias, e.g. "qr" or "ean13".
func (t Type) ShortName() string {
	switch t {
	case TypeFace:
		return "face"
	case TypeUPCECode:
		return "upce"
	case TypeCode39Code:
		return "code39"
	case TypeCode39Mod43Code:
		return "code39mod43"
	case TypeEAN13Code:
		return "ean13"
	case TypeEAN8Code:
		return "ean8"
	case TypeCode93Code:
		return "code93"
	case TypeCode128Code:
		return "code128"
	case TypePDF417Code:
		return "pdf417"
	case TypeQRCode:
		return "qr"
	case TypeAztecCode:
		return "aztec"
	default:
		return string(t)
	}
}

// ParseType resolves a canonical tag or a short alias.
func ParseType(s string) (Type, error) {
	trimmed := strings.TrimSpace(s)
	if t := Type(trimmed); t.IsKnown() {
		return t, nil
	}
	if t, ok := aliases[strings.ToLower(trimmed)]; ok {
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// ParseTypes resolves a list of tags, skipping empty entries.
func ParseTypes(ss []string) ([]Type, error) {
	out := make([]Type, 0, len(ss))
	for _, s := range ss {
		if strings.TrimSpace(s) == "" {
			continue
		}
		t, err := ParseType(s)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
