package docs

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/hupe1980/descvis/internal/scope"
)

// Formatter renders a DocModel to a writer.
type Formatter interface {
	Format(w io.Writer, model *DocModel) error
}

// NewFormatter returns a formatter for the given format name.
func NewFormatter(format string) (Formatter, error) {
	switch strings.ToLower(format) {
	case "markdown", "md":
		return &MarkdownFormatter{}, nil
	case "html":
		return &HTMLFormatter{}, nil
	case "asciidoc", "adoc":
		return &AsciiDocFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported docs format: %s", format)
	}
}

func mark(visible bool) string {
	if visible {
		return "yes"
	}

	return "-"
}

// ---------------------------------------------------------------------------
// Markdown
// ---------------------------------------------------------------------------

// MarkdownFormatter renders documentation as Markdown.
type MarkdownFormatter struct{}

func (f *MarkdownFormatter) Format(w io.Writer, model *DocModel) error {
	fmt.Fprintf(w, "# %s\n\n", model.title())
	fmt.Fprintf(w, "**Profile:** `%s`  \n", orDash(model.Profile))
	fmt.Fprintf(w, "**Filters:** %s  \n", markdownCodeList(model.Filters))
	fmt.Fprintf(w, "**Descriptors:** %d  \n", len(model.Descriptors))
	fmt.Fprintln(w)

	if len(model.Descriptors) > 0 {
		fmt.Fprintf(w, "## Visibility by Scope Kind\n\n")
		fmt.Fprintln(w, "Type-level checks only; instance checks depend on the concrete scope.")
		fmt.Fprintln(w)

		tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

		header := "| Descriptor\t|"
		rule := "|---\t|"

		for _, k := range model.Kinds {
			header += " " + string(k) + "\t|"
			rule += "---\t|"
		}

		fmt.Fprintln(tw, header)
		fmt.Fprintln(tw, rule)

		for _, d := range model.Descriptors {
			row := "| `" + d.ID + "`\t|"
			for _, k := range model.Kinds {
				row += " " + mark(d.Visible(k)) + "\t|"
			}

			fmt.Fprintln(tw, row)
		}

		tw.Flush()

		fmt.Fprintln(w)

		fmt.Fprintf(w, "## Descriptors\n\n")
		fmt.Fprintln(w, "| ID | Display Name | Category | Since | Applicable To | Labels |")
		fmt.Fprintln(w, "|----|--------------|----------|-------|---------------|--------|")

		for _, d := range model.Descriptors {
			fmt.Fprintf(w, "| `%s` | %s | %s | %s | %s | %s |\n",
				d.ID, d.DisplayName, orDash(d.Category), orDash(d.Since),
				joinKinds(d.ApplicableTo), orDash(strings.Join(d.LabelList(), ", ")))
		}

		fmt.Fprintln(w)
	}

	if model.IncludeExamples {
		example, err := GenerateExampleYAML(model)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "## Example\n\n```yaml\n%s```\n", example)
	}

	return nil
}

func markdownCodeList(items []string) string {
	if len(items) == 0 {
		return "-"
	}

	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "`" + s + "`"
	}

	return strings.Join(quoted, ", ")
}

// ---------------------------------------------------------------------------
// HTML
// ---------------------------------------------------------------------------

// HTMLFormatter renders documentation as a standalone HTML page.
type HTMLFormatter struct{}

var htmlTpl = template.Must(template.New("docs").Funcs(template.FuncMap{
	"join":      strings.Join,
	"joinKinds": joinKinds,
	"orDash":    orDash,
	"mark":      mark,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body{font-family:sans-serif;margin:2em;line-height:1.6}
table{border-collapse:collapse;width:100%;margin-bottom:1em}
th,td{border:1px solid #ddd;padding:8px;text-align:left}
th{background:#f5f5f5}
code{background:#f0f0f0;padding:2px 4px;border-radius:3px}
pre{background:#f5f5f5;padding:1em;border-radius:4px;overflow-x:auto}
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p><strong>Profile:</strong> <code>{{orDash .Profile}}</code></p>
<p><strong>Filters:</strong> {{if .Filters}}<code>{{join .Filters ", "}}</code>{{else}}-{{end}}</p>
<p><strong>Descriptors:</strong> {{len .Descriptors}}</p>

{{if .Descriptors}}
<h2>Visibility by Scope Kind</h2>
<table>
<tr><th>Descriptor</th>{{range .Kinds}}<th>{{.}}</th>{{end}}</tr>
{{range .Rows}}<tr><td><code>{{.ID}}</code></td>{{range .Marks}}<td>{{.}}</td>{{end}}</tr>
{{end}}
</table>

<h2>Descriptors</h2>
<table>
<tr><th>ID</th><th>Display Name</th><th>Category</th><th>Since</th><th>Applicable To</th><th>Labels</th></tr>
{{range .Descriptors}}<tr><td><code>{{.ID}}</code></td><td>{{.DisplayName}}</td><td>{{orDash .Category}}</td><td>{{orDash .Since}}</td><td>{{joinKinds .ApplicableTo}}</td><td>{{orDash (join .LabelList ", ")}}</td></tr>
{{end}}
</table>
{{end}}

{{if .ExampleYAML}}
<h2>Example</h2>
<pre><code>{{.ExampleYAML}}</code></pre>
{{end}}

</body>
</html>
`))

type htmlRow struct {
	ID    string
	Marks []string
}

// htmlModel wraps DocModel with helper fields for the HTML template.
type htmlModel struct {
	*DocModel
	Title       string
	Rows        []htmlRow
	ExampleYAML string
}

func (f *HTMLFormatter) Format(w io.Writer, model *DocModel) error {
	m := htmlModel{
		DocModel: model,
		Title:    model.title(),
		Rows:     matrixRows(model),
	}

	if model.IncludeExamples {
		example, err := GenerateExampleYAML(model)
		if err != nil {
			return err
		}

		m.ExampleYAML = example
	}

	return htmlTpl.Execute(w, m)
}

func matrixRows(model *DocModel) []htmlRow {
	rows := make([]htmlRow, len(model.Descriptors))

	for i, d := range model.Descriptors {
		rows[i] = htmlRow{ID: d.ID, Marks: make([]string, len(model.Kinds))}
		for j, k := range model.Kinds {
			rows[i].Marks[j] = mark(d.Visible(k))
		}
	}

	return rows
}

// ---------------------------------------------------------------------------
// AsciiDoc
// ---------------------------------------------------------------------------

// AsciiDocFormatter renders documentation as AsciiDoc.
type AsciiDocFormatter struct{}

func (f *AsciiDocFormatter) Format(w io.Writer, model *DocModel) error {
	fmt.Fprintf(w, "= %s\n\n", model.title())
	fmt.Fprintf(w, "*Profile:* `%s` +\n", orDash(model.Profile))
	fmt.Fprintf(w, "*Filters:* %s +\n", orDash(strings.Join(model.Filters, ", ")))
	fmt.Fprintf(w, "*Descriptors:* %d +\n", len(model.Descriptors))
	fmt.Fprintln(w)

	if len(model.Descriptors) > 0 {
		fmt.Fprintf(w, "== Visibility by Scope Kind\n\n")
		fmt.Fprintf(w, "[cols=\"2%s\", options=\"header\"]\n", strings.Repeat(",1", len(model.Kinds)))
		fmt.Fprintln(w, "|===")
		fmt.Fprintf(w, "| Descriptor%s\n", asciiDocHeader(model.Kinds))

		for _, d := range model.Descriptors {
			fmt.Fprintf(w, "\n| `%s`\n", d.ID)

			for _, k := range model.Kinds {
				fmt.Fprintf(w, "| %s\n", mark(d.Visible(k)))
			}
		}

		fmt.Fprintln(w, "|===")
		fmt.Fprintln(w)

		fmt.Fprintf(w, "== Descriptors\n\n")
		fmt.Fprintln(w, "[cols=\"1,1,1,1,1,2\", options=\"header\"]")
		fmt.Fprintln(w, "|===")
		fmt.Fprintln(w, "| ID | Display Name | Category | Since | Applicable To | Labels")

		for _, d := range model.Descriptors {
			fmt.Fprintf(w, "\n| `%s`\n| %s\n| %s\n| %s\n| %s\n| %s\n",
				d.ID, d.DisplayName, orDash(d.Category), orDash(d.Since),
				joinKinds(d.ApplicableTo), orDash(strings.Join(d.LabelList(), ", ")))
		}

		fmt.Fprintln(w, "|===")
		fmt.Fprintln(w)
	}

	if model.IncludeExamples {
		example, err := GenerateExampleYAML(model)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "== Example\n\n[source,yaml]\n----\n%s----\n", example)
	}

	return nil
}

func asciiDocHeader(kinds []scope.Kind) string {
	var b strings.Builder
	for _, k := range kinds {
		b.WriteString(" | ")
		b.WriteString(string(k))
	}

	return b.String()
}
