package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/itchyny/gojq"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	// FormatYAML outputs as YAML (default)
	FormatYAML OutputFormat = "yaml"
	// FormatJSON outputs as JSON
	FormatJSON OutputFormat = "json"
	// FormatTable outputs Tabler results as a table and anything else as YAML
	FormatTable OutputFormat = "table"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case FormatYAML, FormatJSON, FormatTable:
		return f, nil
	case "":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported output format: %s", s)
}

// OutputOptions configures output behavior
type OutputOptions struct {
	Format OutputFormat

	// Query is a jq program applied to the JSON form of the result before
	// rendering. A query yielding one value outputs that value; otherwise
	// the values are output as a list.
	Query string

	// Writer defaults to os.Stdout.
	Writer io.Writer

	// Styles for table output; zero means NewStyles(DefaultTheme).
	Styles *Styles
}

// Output writes the result in the configured format.
func Output(result any, opts OutputOptions) error {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}
	if opts.Query != "" {
		var err error
		if result, err = applyQuery(opts.Query, result); err != nil {
			return err
		}
	}

	switch opts.Format {
	case FormatJSON:
		return outputJSON(w, result)
	case FormatYAML, "":
		return outputYAML(w, result)
	case FormatTable:
		t, ok := result.(Tabler)
		if !ok {
			return outputYAML(w, result)
		}
		st := opts.Styles
		if st == nil {
			s := NewStyles(DefaultTheme)
			st = &s
		}
		_, err := io.WriteString(w, t.Table().Render(*st))
		return err
	default:
		return fmt.Errorf("unsupported output format: %s", opts.Format)
	}
}

// applyQuery runs a jq program over the JSON form of result.
func applyQuery(expr string, result any) (any, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression %q: %w", expr, err)
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result for jq: %w", err)
	}
	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, err
	}
	var out []any
	iter := query.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return nil, fmt.Errorf("jq error: %w", err)
		}
		out = append(out, v)
	}
	if len(out) == 1 {
		return out[0], nil
	}
	return out, nil
}

func outputJSON(w io.Writer, result any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func outputYAML(w io.Writer, result any) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// PrintSuccess prints a success message with checkmark to stderr, keeping
// stdout for results.
func PrintSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "✓ "+format+"\n", args...)
}

// PrintError prints an error message to stderr
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// PrintInfo prints an info message to stderr
func PrintInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "ℹ "+format+"\n", args...)
}
