package output

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	sigsyaml "sigs.k8s.io/yaml"
)

// SerializeYAML converts v to YAML bytes. Keys follow the json tags of v
// and are sorted alphabetically.
func SerializeYAML(v any) ([]byte, error) {
	b, err := sigsyaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("serializing YAML: %w", err)
	}

	return ensureNewline(b), nil
}

// SerializeJSON converts v to indented JSON bytes.
func SerializeJSON(v any, indent string) ([]byte, error) {
	if indent == "" {
		indent = "  "
	}

	b, err := json.MarshalIndent(v, "", indent)
	if err != nil {
		return nil, fmt.Errorf("serializing JSON: %w", err)
	}

	return ensureNewline(b), nil
}

// WriteTable renders the visible entries of r as an aligned table followed
// by a summary line.
func WriteTable(w io.Writer, r *Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	_, _ = fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tSINCE")

	for _, e := range r.Visible {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ID, e.DisplayName, dash(e.Category), dash(e.Since))
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("writing table: %w", err)
	}

	scope := r.Scope
	if scope == "" {
		scope = r.ScopeType
	}

	_, err := fmt.Fprintf(w, "\n%d of %d descriptors visible in %s (%d hidden)\n", len(r.Visible), r.Total, scope, r.Hidden())

	return err
}

func dash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}

func ensureNewline(b []byte) []byte {
	if len(b) > 0 && b[len(b)-1] != '\n' {
		b = append(b, '\n')
	}

	return b
}
