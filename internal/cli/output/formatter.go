package output

import (
	"fmt"
	"io"
	"sort"
)

// Format represents the output format.
type Format string

const (
	FormatRaw  Format = "raw"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Formatter formats data for output.
type Formatter interface {
	Format(w io.Writer, data any) error
}

// Rawer is implemented by values with their own raw rendering.
type Rawer interface {
	Raw() string
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatRaw, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want raw, json or yaml)", s)
	}
}

// NewFormatter creates a formatter for the given format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &RawFormatter{}
	}
}

// RawFormatter prints values as plain text.
type RawFormatter struct{}

// Format writes data followed by a newline. Maps print one "key: value"
// line per entry in key order.
func (f *RawFormatter) Format(w io.Writer, data any) error {
	switch v := data.(type) {
	case nil:
		return nil
	case Rawer:
		_, err := fmt.Fprintln(w, v.Raw())
		return err
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, err := fmt.Fprintf(w, "%s: %v\n", k, v[k]); err != nil {
				return err
			}
		}
		return nil
	default:
		_, err := fmt.Fprintln(w, v)
		return err
	}
}
