package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/lognorm/internal/history"
	"github.com/telhawk-systems/lognorm/pkg/color"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage the scan history",
		Long:  "List, record and clear the most recent security scans (a rolling window of the configured capacity)",
	}
	cmd.AddCommand(
		newHistoryListCmd(a),
		newHistoryAddCmd(a),
		newHistoryShowCmd(a),
		newHistoryClearCmd(a),
	)
	return cmd
}

func newHistoryListCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent scans, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, closeFn, err := a.openHistory(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			scans := h.Recent(limit)
			return a.printer.Value(scans, func() {
				if len(scans) == 0 {
					a.printer.Info("No scans recorded")
					return
				}
				table := a.printer.NewTable("ID", "URL", "SCORE", "LEVEL", "SCANNED")
				for _, s := range scans {
					table.AddRow(
						shortID(s.ID),
						s.URL,
						color.Score(s.OverallScore).Sprint(strconv.Itoa(s.OverallScore)),
						s.Level(),
						s.Timestamp.Local().Format(time.DateTime),
					)
				}
				table.Render()
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum scans to show (0 = all)")
	return cmd
}

func newHistoryAddCmd(a *app) *cobra.Command {
	var checks []string

	cmd := &cobra.Command{
		Use:     "add <url>",
		Short:   "Record a scan",
		Example: `  lognorm history add https://example.com --check "HTTPS:pass:100" --check "Headers:65"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := make([]history.CheckResult, 0, len(checks))
			for _, c := range checks {
				r, err := parseCheck(c)
				if err != nil {
					return err
				}
				results = append(results, r)
			}

			h, closeFn, err := a.openHistory(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			rec, err := h.Add(cmd.Context(), args[0], results)
			if err != nil {
				return err
			}

			return a.printer.Value(rec, func() {
				a.printer.Success("Recorded scan %s of %s: %d (%s)", shortID(rec.ID), rec.URL, rec.OverallScore, rec.Level())
			})
		},
	}
	cmd.Flags().StringArrayVar(&checks, "check", nil, `check result as "title:score" or "title:status:score" (repeatable)`)
	return cmd
}

func newHistoryShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one scan with its checks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, closeFn, err := a.openHistory(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			rec, err := findScan(h, args[0])
			if err != nil {
				return err
			}

			return a.printer.Value(rec, func() {
				a.printer.Info("%s  %s", rec.URL, rec.Timestamp.Local().Format(time.DateTime))
				a.printer.Info("Overall score: %s (%s)", color.Score(rec.OverallScore).Sprint(rec.OverallScore), rec.Level())
				if len(rec.Results) == 0 {
					return
				}
				table := a.printer.NewTable("CHECK", "STATUS", "SCORE")
				for _, r := range rec.Results {
					table.AddRow(r.Title, r.Status, strconv.Itoa(r.Score))
				}
				table.Render()
			})
		},
	}
}

func newHistoryClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every recorded scan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, closeFn, err := a.openHistory(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			if err := h.Clear(cmd.Context()); err != nil {
				return err
			}
			a.printer.Success("Scan history cleared")
			return nil
		},
	}
}

// findScan resolves a full ID or a unique ID prefix.
func findScan(h *history.History, id string) (history.ScanRecord, error) {
	if rec, err := h.Get(id); err == nil {
		return rec, nil
	}

	var matches []history.ScanRecord
	for _, rec := range h.Recent(0) {
		if strings.HasPrefix(rec.ID, id) {
			matches = append(matches, rec)
		}
	}
	switch len(matches) {
	case 0:
		return history.ScanRecord{}, fmt.Errorf("%w: %s", history.ErrScanNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return history.ScanRecord{}, fmt.Errorf("scan id %q is ambiguous (%d matches)", id, len(matches))
	}
}

// parseCheck reads "title:score" or "title:status:score". The title may itself
// contain colons; status defaults from the score.
func parseCheck(arg string) (history.CheckResult, error) {
	idx := strings.LastIndex(arg, ":")
	if idx <= 0 {
		return history.CheckResult{}, fmt.Errorf("invalid --check %q (use title:score or title:status:score)", arg)
	}
	score, err := strconv.Atoi(strings.TrimSpace(arg[idx+1:]))
	if err != nil {
		return history.CheckResult{}, fmt.Errorf("invalid --check %q: score must be an integer", arg)
	}

	title := arg[:idx]
	status := ""
	if j := strings.LastIndex(title, ":"); j > 0 {
		title, status = title[:j], strings.TrimSpace(title[j+1:])
	}
	if status == "" {
		status = statusForScore(score)
	}

	return history.CheckResult{Title: strings.TrimSpace(title), Status: status, Score: score}, nil
}

func statusForScore(score int) string {
	switch {
	case score >= 80:
		return "pass"
	case score >= 60:
		return "warn"
	default:
		return "fail"
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
