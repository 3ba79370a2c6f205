package main

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hamed0406/uptimekeeper/internal/domain"
)

// monitorView mirrors domain.MonitorResult with the report status kept as
// text.
type monitorView struct {
	Ping       domain.PingOutcome `json:"ping"`
	HTTPStatus int                `json:"http_status"`
	LatencyMS  float64            `json:"latency_ms"`
	Reason     string             `json:"reason"`
	Report     struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"report"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest cycle and per-monitor results",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newAPIClient()
		var cycle domain.CycleSummary
		code, err := c.do(cmd.Context(), http.MethodGet, "/api/cycles/latest", nil, &cycle)
		if code == http.StatusNotFound {
			color.Yellow("no cycle has finished yet")
			return nil
		}
		if err != nil {
			return err
		}
		var monitors []monitorView
		if _, err := c.do(cmd.Context(), http.MethodGet, "/api/monitors", nil, &monitors); err != nil {
			return err
		}
		printStatus(cmd.OutOrStdout(), cycle, monitors)
		return nil
	},
}

func printStatus(w io.Writer, c domain.CycleSummary, monitors []monitorView) {
	if c.ListFailed {
		fmt.Fprintln(w, color.RedString("last cycle could not list monitors"))
	}
	fmt.Fprintf(w, "cycle %s took %s: %d monitors, %d up, %d down, %d reported, %d failed\n",
		c.StartedAt.Format(time.RFC3339), c.Duration.Round(time.Millisecond),
		c.Total, c.Up, c.Down, c.Reported, c.Failed)
	for _, m := range monitors {
		name := m.Ping.DisplayName()
		report := m.Report.Status
		if report != domain.ReportRecorded.String() {
			report = color.YellowString(report)
			if m.Report.Reason != "" {
				report += " (" + m.Report.Reason + ")"
			}
		}
		fmt.Fprintf(w, "  %-4s %-30s %-40s %4d %6.0fms  %s\n",
			upDown(m.Ping.Success), name, m.Ping.URL, m.HTTPStatus, m.LatencyMS, report)
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
