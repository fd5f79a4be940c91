package codec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/MeKo-Tech/metascan/internal/geometry"
	"github.com/MeKo-Tech/metascan/internal/mediatime"
	"github.com/MeKo-Tech/metascan/internal/metadata"
	"gopkg.in/yaml.v3"
)

// Format selects an output rendering.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatText Format = "text"
)

// ParseFormat validates an output format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatYAML, FormatText:
		return f, nil
	case "yml":
		return FormatYAML, nil
	case "":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s (must be one of: json, yaml, text)", s)
	}
}

// Frame groups the descriptors found in one source, e.g. an image file or PDF page.
type Frame struct {
	Source  string
	Objects []metadata.Object
}

type jsonFrame struct {
	Source  string     `json:"source"`
	Objects []Document `json:"objects"`
}

// yamlDocument mirrors Document with the payload as base64 text.
type yamlDocument struct {
	Type        string           `yaml:"type"`
	Time        mediatime.Time   `yaml:"time"`
	Duration    mediatime.Time   `yaml:"duration"`
	Bounds      geometry.Rect    `yaml:"bounds"`
	FaceID      *int64           `yaml:"face_id,omitempty"`
	RollAngle   *float64         `yaml:"roll_angle,omitempty"`
	YawAngle    *float64         `yaml:"yaw_angle,omitempty"`
	Corners     []geometry.Point `yaml:"corners,omitempty"`
	StringValue *string          `yaml:"string_value,omitempty"`
	Payload     string           `yaml:"payload,omitempty"`
	Mirrored    bool             `yaml:"mirrored,omitempty"`
}

type yamlFrame struct {
	Source  string         `yaml:"source"`
	Objects []yamlDocument `yaml:"objects"`
}

// Write renders frames to w in the requested format.
func Write(w io.Writer, format Format, frames []Frame) error {
	switch format {
	case FormatJSON, "":
		return writeJSON(w, frames)
	case FormatYAML:
		return writeYAML(w, frames)
	case FormatText:
		return writeText(w, frames)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func writeJSON(w io.Writer, frames []Frame) error {
	out := make([]jsonFrame, 0, len(frames))
	for _, f := range frames {
		docs, err := EncodeAll(f.Objects)
		if err != nil {
			return fmt.Errorf("%s: %w", f.Source, err)
		}
		out = append(out, jsonFrame{Source: f.Source, Objects: docs})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeYAML(w io.Writer, frames []Frame) error {
	out := make([]yamlFrame, 0, len(frames))
	for _, f := range frames {
		docs, err := EncodeAll(f.Objects)
		if err != nil {
			return fmt.Errorf("%s: %w", f.Source, err)
		}
		yf := yamlFrame{Source: f.Source, Objects: make([]yamlDocument, 0, len(docs))}
		for _, d := range docs {
			yd := yamlDocument{
				Type:        string(d.Type),
				Time:        d.Time,
				Duration:    d.Duration,
				Bounds:      d.Bounds,
				FaceID:      d.FaceID,
				RollAngle:   d.RollAngle,
				YawAngle:    d.YawAngle,
				Corners:     d.Corners,
				StringValue: d.StringValue,
				Mirrored:    d.Mirrored,
			}
			if len(d.Payload) > 0 {
				yd.Payload = base64.StdEncoding.EncodeToString(d.Payload)
			}
			yf.Objects = append(yf.Objects, yd)
		}
		out = append(out, yf)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}

func writeText(w io.Writer, frames []Frame) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, f := range frames {
		fmt.Fprintf(tw, "# %s (%d objects)\n", f.Source, len(f.Objects))
		if len(f.Objects) == 0 {
			continue
		}
		fmt.Fprintln(tw, "TYPE\tTIME\tBOUNDS\tDETAIL")
		for _, o := range f.Objects {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", o.Type().ShortName(), o.Time(), o.Bounds(), detail(o))
		}
	}
	return tw.Flush()
}

func detail(o metadata.Object) string {
	switch v := o.(type) {
	case *metadata.Face:
		parts := []string{fmt.Sprintf("id=%d", v.FaceID())}
		if d, ok := v.Roll().Degrees(); ok {
			parts = append(parts, fmt.Sprintf("roll=%.1f", d))
		}
		if d, ok := v.Yaw().Degrees(); ok {
			parts = append(parts, fmt.Sprintf("yaw=%.1f", d))
		}
		return strings.Join(parts, " ")
	case *metadata.Code:
		s, ok := v.StringValue()
		if !ok {
			s = fmt.Sprintf("<%d bytes, no text>", len(v.Payload()))
		} else {
			s = fmt.Sprintf("%q", s)
		}
		if v.IsMirrored() {
			s += " mirrored"
		}
		return s
	default:
		return ""
	}
}
