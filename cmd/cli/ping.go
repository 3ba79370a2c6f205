package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hamed0406/uptimekeeper/internal/probe"
)

type pingResponse struct {
	OK         bool   `json:"ok"`
	Status     int    `json:"status"`
	StatusText string `json:"statusText"`
	Redirected *bool  `json:"redirected,omitempty"`
	URL        string `json:"url,omitempty"`
	Snippet    string `json:"snippet,omitempty"`
	Error      string `json:"error,omitempty"`
}

var pingDebug bool

var pingCmd = &cobra.Command{
	Use:   "ping <url>",
	Short: "Ask the keeper to probe a URL once",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]any{"url": args[0], "debug": pingDebug}
		var out pingResponse
		if _, err := newAPIClient().do(cmd.Context(), http.MethodPost, "/api/ping", body, &out); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %d %s\n", upDown(out.OK), out.Status, out.StatusText)
		if out.Redirected != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "final url: %s (redirected=%t)\n", out.URL, *out.Redirected)
		}
		if out.Snippet != "" {
			color.New(color.Faint).Fprintln(cmd.OutOrStdout(), out.Snippet)
		}
		return nil
	},
}

var probeTimeout time.Duration

var probeCmd = &cobra.Command{
	Use:   "probe <url>",
	Short: "Probe a URL from this machine without a keeper",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		res := probe.NewHTTPChecker(probeTimeout, probe.WithDebug(0)).Check(cmd.Context(), args[0])
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%.0fms)\n", upDown(res.Success), res.Message, res.LatencyMS)
		if res.DNSClass != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "dns: %s\n", color.YellowString(res.DNSClass))
		}
	},
}

func init() {
	pingCmd.Flags().BoolVar(&pingDebug, "debug", false, "include final URL and a body snippet")
	probeCmd.Flags().DurationVar(&probeTimeout, "timeout", 10*time.Second, "probe timeout")
	rootCmd.AddCommand(pingCmd, probeCmd)
}
