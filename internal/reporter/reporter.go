// Package reporter renders response envelopes for the terminal or for
// machine consumption.
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fenilsonani/diskscope/internal/preview"
	"github.com/fenilsonani/diskscope/internal/response"
	"github.com/fenilsonani/diskscope/internal/scanner"
	"github.com/fenilsonani/diskscope/pkg/utils"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatTable   OutputFormat = "table"
	FormatJSON    OutputFormat = "json"
	FormatYAML    OutputFormat = "yaml"
	FormatSummary OutputFormat = "summary"
)

// Formats lists every supported format
func Formats() []OutputFormat {
	return []OutputFormat{FormatSummary, FormatTable, FormatJSON, FormatYAML}
}

// ParseFormat validates a format name
func ParseFormat(name string) (OutputFormat, error) {
	for _, f := range Formats() {
		if string(f) == strings.ToLower(name) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported format: %s", name)
}

// Reporter handles report generation
type Reporter struct {
	writer io.Writer
	format OutputFormat
	width  int
	styles styles
}

type styles struct {
	title   lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	info    lipgloss.Style
	label   lipgloss.Style
	size    lipgloss.Style
	path    lipgloss.Style
}

// New creates a new Reporter. Colours and path shortening are enabled only
// when writer is a terminal.
func New(writer io.Writer, format OutputFormat) *Reporter {
	r := &Reporter{
		writer: writer,
		format: format,
	}
	if f, ok := writer.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			r.width = w
		}
	}

	renderer := lipgloss.NewRenderer(writer)
	r.styles = styles{
		title:   renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")),
		success: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("#10B981")),
		failure: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444")),
		info:    renderer.NewStyle().Foreground(lipgloss.Color("#3B82F6")),
		label:   renderer.NewStyle().Foreground(lipgloss.Color("#9CA3AF")),
		size:    renderer.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
		path:    renderer.NewStyle().Foreground(lipgloss.Color("#3B82F6")),
	}
	return r
}

// Report renders env in the reporter's format
func (r *Reporter) Report(env response.Envelope) error {
	switch r.format {
	case FormatTable:
		return r.reportTable(env)
	case FormatJSON:
		return r.reportJSON(env)
	case FormatYAML:
		return r.reportYAML(env)
	case FormatSummary:
		return r.reportSummary(env)
	default:
		return fmt.Errorf("unsupported format: %s", r.format)
	}
}

// =============================================================================
// Summary
// =============================================================================

func (r *Reporter) reportSummary(env response.Envelope) error {
	fmt.Fprintln(r.writer, r.statusStyle(env.Status).Render(env.Message))

	switch data := env.Data.(type) {
	case response.Object[scanner.Summary]:
		r.line("Total Files", fmt.Sprint(data.V.FileCount))
		r.line("Total Size", r.styles.size.Render(utils.FormatBytes(data.V.TotalSize)))

	case response.Object[preview.Preview]:
		r.line("Name", data.V.Name)
		r.line("Type", string(data.V.Type))
		if data.V.Content != "" {
			fmt.Fprintf(r.writer, "\n%s\n", data.V.Content)
		}

	case response.Text:
		if data != "" {
			r.line("Count", string(data))
		}

	default:
		rows, _, total, ok := rowsOf(env.Data)
		if !ok {
			return nil
		}
		r.line("Total Files", fmt.Sprint(len(rows)))
		r.line("Total Size", r.styles.size.Render(utils.FormatBytes(total)))
		for i, row := range rows {
			if i == 10 {
				fmt.Fprintf(r.writer, "  ... and %d more\n", len(rows)-10)
				break
			}
			fmt.Fprintf(r.writer, "  %s  %s\n",
				r.styles.size.Render(fmt.Sprintf("%10s", row[1])),
				r.styles.path.Render(r.shorten(fmt.Sprint(row[0]), r.width-14)))
		}
	}

	return nil
}

func (r *Reporter) line(label, value string) {
	fmt.Fprintf(r.writer, "%s %s\n", r.styles.label.Render(label+":"), value)
}

func (r *Reporter) statusStyle(status response.Status) lipgloss.Style {
	switch status {
	case response.StatusError:
		return r.styles.failure
	case response.StatusInfo:
		return r.styles.info
	}
	return r.styles.success
}

// =============================================================================
// Table
// =============================================================================

func (r *Reporter) reportTable(env response.Envelope) error {
	t := table.NewWriter()
	t.SetOutputMirror(r.writer)

	switch data := env.Data.(type) {
	case response.Object[scanner.Summary]:
		t.AppendHeader(table.Row{"Files", "Total Size"})
		t.AppendRow(table.Row{data.V.FileCount, utils.FormatBytes(data.V.TotalSize)})

	case response.Object[preview.Preview]:
		t.AppendHeader(table.Row{"Name", "Path", "Type"})
		t.AppendRow(table.Row{data.V.Name, r.shorten(data.V.Path, r.width/2), data.V.Type})

	default:
		rows, header, total, ok := rowsOf(env.Data)
		if !ok {
			t.AppendHeader(table.Row{"Status", "Message"})
			t.AppendRow(table.Row{env.Status, env.Message})
			break
		}
		for i := range rows {
			rows[i][0] = r.shorten(fmt.Sprint(rows[i][0]), r.width/2)
		}
		t.AppendHeader(header)
		t.AppendRows(rows)
		t.AppendFooter(table.Row{fmt.Sprintf("Total: %d files", len(rows)), utils.FormatBytes(total)})
	}

	t.Render()
	return nil
}

// rowsOf converts a list payload into table rows whose first two columns
// are the path and the formatted size.
func rowsOf(data response.Payload) ([]table.Row, table.Row, uint64, bool) {
	var (
		rows  []table.Row
		total uint64
	)

	switch list := data.(type) {
	case response.List[scanner.CacheFile]:
		for _, f := range list {
			rows = append(rows, table.Row{f.Path, utils.FormatBytes(f.Size), f.Modified.String()})
			total += f.Size
		}
		return rows, table.Row{"Path", "Size", "Modified"}, total, true

	case response.List[scanner.LogFile]:
		for _, f := range list {
			rows = append(rows, table.Row{f.Path, utils.FormatBytes(f.Size), f.Modified.String()})
			total += f.Size
		}
		return rows, table.Row{"Path", "Size", "Modified"}, total, true

	case response.List[scanner.TrashFile]:
		for _, f := range list {
			rows = append(rows, table.Row{f.Path, utils.FormatBytes(f.Size), f.DeletedDate.String()})
			total += f.Size
		}
		return rows, table.Row{"Path", "Size", "Deleted"}, total, true

	case response.List[scanner.LargeFile]:
		for _, f := range list {
			rows = append(rows, table.Row{f.Path, utils.FormatBytes(f.Size), f.Modified.String()})
			total += f.Size
		}
		return rows, table.Row{"Path", "Size", "Modified"}, total, true
	}

	return nil, nil, 0, false
}

// shorten keeps the tail of a path that does not fit in limit columns
func (r *Reporter) shorten(path string, limit int) string {
	if limit <= 3 || len(path) <= limit {
		return path
	}
	return "..." + path[len(path)-(limit-3):]
}

// =============================================================================
// Machine formats
// =============================================================================

func (r *Reporter) reportJSON(env response.Envelope) error {
	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(env)
}

func (r *Reporter) reportYAML(env response.Envelope) error {
	encoder := yaml.NewEncoder(r.writer)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(env)
}

// SaveToFile writes the report to a file
func SaveToFile(env response.Envelope, path string, format OutputFormat) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return New(file, format).Report(env)
}
