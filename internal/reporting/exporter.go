// internal/reporting/exporter.go
// Turns an accumulated event stream plus final ledger state into a durable
// report. Export is only meaningful after the run has stopped; the report
// data is assembled by the caller at that point.
package reporting

import (
	"fmt"
	"html/template"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/tasker-cli/api/schemas"
)

// Supported export formats.
const (
	FormatJSON = "json"
	FormatHTML = "html"
)

var (
	// ErrUnsupportedFormat is returned for formats the exporter cannot
	// produce.
	ErrUnsupportedFormat = fmt.Errorf("unsupported export format")
	// ErrWrite wraps failures to persist a report to its destination.
	ErrWrite = fmt.Errorf("failed to write report")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Report is the serializable account of one run: the lifecycle events in
// emission order plus the final ledger state and any verification answers.
type Report struct {
	Instruction string                     `json:"instruction"`
	Success     bool                       `json:"success"`
	GeneratedAt time.Time                  `json:"generated_at"`
	Events      []schemas.Event            `json:"events"`
	Todos       []schemas.Todo             `json:"todos"`
	Summary     map[schemas.TodoStatus]int `json:"summary"`
	Checks      []schemas.CheckResult      `json:"checks,omitempty"`
}

// Exporter writes a Report in one of the supported formats.
type Exporter struct {
	report Report
	logger *zap.Logger
}

var _ schemas.Exporter = (*Exporter)(nil)

// NewExporter wraps the given report.
func NewExporter(report Report, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{report: report, logger: logger.Named("exporter")}
}

// Export serializes the report to path in the requested format.
func (e *Exporter) Export(format, path string) error {
	var (
		data []byte
		err  error
	)

	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(e.report, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
	case FormatHTML:
		data, err = e.renderHTML()
		if err != nil {
			return fmt.Errorf("render report: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q (supported: %s, %s)", ErrUnsupportedFormat, format, FormatHTML, FormatJSON)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}

	e.logger.Info("Report exported",
		zap.String("format", format),
		zap.String("path", path),
		zap.Int("events", len(e.report.Events)),
	)
	return nil
}

func (e *Exporter) renderHTML() ([]byte, error) {
	var buf templateBuffer
	if err := reportTemplate.Execute(&buf, e.report); err != nil {
		return nil, err
	}
	return buf.bytes, nil
}

// templateBuffer avoids pulling in bytes.Buffer's full surface for a single
// write target.
type templateBuffer struct {
	bytes []byte
}

func (b *templateBuffer) Write(p []byte) (int, error) {
	b.bytes = append(b.bytes, p...)
	return len(p), nil
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Execution History</title>
<style>
  body { font-family: sans-serif; margin: 2em; color: #222; }
  h1 { font-size: 1.4em; }
  .success { color: #1a7f37; }
  .failure { color: #b42318; }
  table { border-collapse: collapse; margin: 1em 0; }
  th, td { border: 1px solid #ccc; padding: 0.4em 0.8em; text-align: left; }
  .event { margin: 0.2em 0; }
  .kind { display: inline-block; min-width: 7em; font-weight: bold; }
  .ts { color: #777; font-size: 0.85em; }
</style>
</head>
<body>
<h1>Execution History</h1>
<p>Task: {{.Instruction}}</p>
<p>Overall result: {{if .Success}}<span class="success">success</span>{{else}}<span class="failure">failure</span>{{end}}</p>
<p class="ts">Generated at {{.GeneratedAt.Format "2006-01-02T15:04:05Z07:00"}}</p>

<h2>Events</h2>
{{range .Events}}<div class="event"><span class="kind">{{.Kind}}</span> {{.Label}} <span class="ts">{{.Timestamp.Format "15:04:05.000"}}</span></div>
{{else}}<p>No events recorded.</p>
{{end}}

<h2>Final Todo Status</h2>
<table>
<tr><th>#</th><th>Description</th><th>Status</th></tr>
{{range $i, $t := .Todos}}<tr><td>{{$i}}</td><td>{{$t.Description}}</td><td>{{$t.Status}}</td></tr>
{{end}}
</table>

<h2>Status Summary</h2>
<table>
<tr><th>Status</th><th>Count</th></tr>
{{range $status, $count := .Summary}}<tr><td>{{$status}}</td><td>{{$count}}</td></tr>
{{end}}
</table>

{{if .Checks}}<h2>Verification</h2>
<table>
<tr><th>Todo</th><th>Question</th><th>Answer</th></tr>
{{range .Checks}}<tr><td>{{.TodoIndex}}</td><td>{{.Question}}</td><td>{{if .Err}}error: {{.Err}}{{else}}{{.Answer}}{{end}}</td></tr>
{{end}}
</table>
{{end}}
</body>
</html>
`))
