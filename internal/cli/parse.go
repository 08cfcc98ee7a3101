package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/lognorm/internal/logstore"
	"github.com/telhawk-systems/lognorm/internal/metrics"
	"github.com/telhawk-systems/lognorm/internal/model"
	"github.com/telhawk-systems/lognorm/internal/normalizer"
	"github.com/telhawk-systems/lognorm/internal/pipeline"
	"github.com/telhawk-systems/lognorm/pkg/color"
)

const tableDescriptionLen = 60

type parseOptions struct {
	format    string
	severity  string
	eventType string
	search    string
	source    string
	status    int
	since     string
	until     string
	page      int
	perPage   int
	summary   bool
	publish   bool
	index     bool
	textfile  string
}

// parseResult is the structured (json/yaml) rendering of a parse run.
type parseResult struct {
	Batch   model.BatchResult `json:"batch" yaml:"batch"`
	Page    logstore.Page     `json:"page" yaml:"page"`
	Summary *logstore.Summary `json:"summary,omitempty" yaml:"summary,omitempty"`
}

func newParseCmd(a *app) *cobra.Command {
	opts := &parseOptions{}

	cmd := &cobra.Command{
		Use:   "parse [file...]",
		Short: "Normalize log files",
		Long: `Normalize one or more log files into uniform records and display them.

With no file, or with "-", the log text is read from standard input. Files are
read one at a time; if any file cannot be read nothing is kept.`,
		Example: `  lognorm parse --format web access.log
  lognorm parse -f json --severity high --search login events.jsonl
  cat app.log | lognorm parse --summary -o json
  lognorm parse -f csv --publish --index export.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("format") {
				opts.format = a.cfg.Parse.DefaultFormat
			}
			if !cmd.Flags().Changed("per-page") {
				opts.perPage = a.cfg.Parse.PageSize
			}
			return a.runParse(cmd, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.format, "format", "f", "generic", "input format: json, csv, web, generic")
	f.StringVar(&opts.severity, "severity", "", "only show records of this severity")
	f.StringVar(&opts.eventType, "event-type", "", "only show records of this event type")
	f.StringVarP(&opts.search, "search", "s", "", "case-insensitive text search")
	f.StringVar(&opts.source, "source", "", "case-insensitive source substring")
	f.IntVar(&opts.status, "status", 0, "only show records with this status code")
	f.StringVar(&opts.since, "since", "", "only show records at or after this time (RFC 3339 or YYYY-MM-DD)")
	f.StringVar(&opts.until, "until", "", "only show records at or before this time (RFC 3339 or YYYY-MM-DD)")
	f.IntVar(&opts.page, "page", 1, "page to display")
	f.IntVar(&opts.perPage, "per-page", 10, "records per page")
	f.BoolVar(&opts.summary, "summary", false, "show counts per severity and event type")
	f.BoolVar(&opts.publish, "publish", false, "publish records to NATS")
	f.BoolVar(&opts.index, "index", false, "index records into OpenSearch")
	f.StringVar(&opts.textfile, "metrics-textfile", "", "write Prometheus metrics to this file")

	return cmd
}

func (o *parseOptions) filter() (logstore.Filter, error) {
	f := logstore.Filter{
		SearchText: o.search,
		Source:     o.source,
		StatusCode: o.status,
	}

	if o.severity != "" {
		sev, ok := model.ParseSeverity(o.severity)
		if !ok {
			return f, fmt.Errorf("invalid --severity %q (use high, medium, low or info)", o.severity)
		}
		f.Severity = sev
	}
	if o.eventType != "" {
		et, ok := model.ParseEventType(o.eventType)
		if !ok {
			return f, fmt.Errorf("invalid --event-type %q", o.eventType)
		}
		f.EventType = et
	}

	var err error
	if f.Start, err = parseTimeFlag("since", o.since, false); err != nil {
		return f, err
	}
	if f.End, err = parseTimeFlag("until", o.until, true); err != nil {
		return f, err
	}
	return f, nil
}

// parseTimeFlag accepts RFC 3339 or a bare date. A bare date used as an upper
// bound covers the whole day.
func parseTimeFlag(name, value string, endOfDay bool) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q (use RFC 3339 or YYYY-MM-DD)", name, value)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func (a *app) runParse(cmd *cobra.Command, opts *parseOptions, args []string) error {
	ctx := cmd.Context()

	filter, err := opts.filter()
	if err != nil {
		return err
	}
	format := model.ParseFormat(opts.format)

	sinks, closeSinks, err := a.openSinks(opts.publish, opts.index)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSinks(); err != nil {
			a.logger.Warn("failed to close sink", "error", err)
		}
	}()

	p := pipeline.New(
		normalizer.New(normalizer.WithLogger(a.logger)),
		logstore.New(),
		pipeline.WithLogger(a.logger),
		pipeline.WithSinks(sinks...),
	)

	var result model.BatchResult
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		result, err = p.IngestReader(ctx, format, "stdin", a.stdin)
	} else {
		result, err = p.IngestFiles(ctx, format, args...)
	}

	var sinkErr *pipeline.SinkError
	if err != nil && !errors.As(err, &sinkErr) {
		return err
	}
	ingestErr := err

	store := p.Store()
	res := parseResult{
		Batch: result,
		Page:  store.Query(filter, opts.page, opts.perPage),
	}
	if opts.summary {
		s := store.Summarize(filter)
		res.Summary = &s
	}

	if err := a.printer.Value(res, func() { a.renderParse(res) }); err != nil {
		return err
	}

	textfile := opts.textfile
	if textfile == "" {
		textfile = a.cfg.Metrics.Textfile
	}
	if textfile != "" {
		if err := metrics.WriteTextfile(textfile); err != nil {
			return err
		}
	}

	return ingestErr
}

func (a *app) renderParse(res parseResult) {
	b := res.Batch
	a.printer.Info("Parsed %d records from %d lines (%d dropped) in %s",
		b.Records, b.Lines, b.Dropped, b.Elapsed.Round(time.Millisecond))

	if len(res.Page.Records) == 0 {
		a.printer.Warn("No records match")
	} else {
		table := a.printer.NewTable("TIME", "SEVERITY", "EVENT", "SOURCE", "STATUS", "DESCRIPTION")
		for _, rec := range res.Page.Records {
			status := "-"
			if rec.HasStatus() {
				status = strconv.Itoa(rec.Status())
			}
			table.AddRow(
				rec.Timestamp.Format(time.DateTime),
				color.Severity(string(rec.Severity)).Sprint(string(rec.Severity)),
				rec.EventType.Label(),
				rec.Source,
				status,
				oneLine(model.Truncate(rec.Description, tableDescriptionLen)),
			)
		}
		table.Render()
		a.printer.Info("Page %d of %d (%d matching records)", res.Page.Page, max(res.Page.TotalPages, 1), res.Page.Total)
	}

	if res.Summary != nil {
		a.renderSummary(*res.Summary)
	}
}

func (a *app) renderSummary(s logstore.Summary) {
	a.printer.Info("\n%d records, %d uploaded", s.Total, s.Uploaded)

	table := a.printer.NewTable("SEVERITY", "COUNT")
	for _, sev := range model.Severities {
		table.AddRow(color.Severity(string(sev)).Sprint(string(sev)), strconv.Itoa(s.BySeverity[sev]))
	}
	table.Render()

	table = a.printer.NewTable("EVENT TYPE", "COUNT")
	for _, et := range model.EventTypes {
		if n := s.ByEventType[et]; n > 0 {
			table.AddRow(et.Label(), strconv.Itoa(n))
		}
	}
	table.Render()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
