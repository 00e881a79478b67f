package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var (
		metricsURL string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Summarize the running daemon's decision counters",
		Long: `Fetch the daemon's Prometheus metrics endpoint and print a summary of
admission decisions, event dispositions and scan activity.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), metricsURL, timeout)
		},
	}

	cmd.Flags().StringVar(&metricsURL, "metrics-url", "http://127.0.0.1:9095/metrics", "Daemon metrics endpoint")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Fetch timeout")

	return cmd
}

func runStatus(ctx context.Context, metricsURL string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metricsURL, http.NoBody)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", metricsURL, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: unexpected status %s", metricsURL, resp.Status)
	}

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(resp.Body)
	if err != nil {
		return fmt.Errorf("parsing metrics: %w", err)
	}

	colorHeader.Println("Admission") //nolint:errcheck
	t := newStyledTable()
	t.AppendHeader(table.Row{"Outcome", "Count"})
	t.AppendRow(table.Row{"pass", counterValue(families["lvm_admit_admission_decisions_total"], "outcome", "pass")})
	t.AppendRow(table.Row{"reject", counterValue(families["lvm_admit_admission_decisions_total"], "outcome", "reject")})
	t.Render()
	fmt.Println()

	colorHeader.Println("Scanning") //nolint:errcheck
	t = newStyledTable()
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRow(table.Row{"uevents received", counterValue(families["lvm_admit_uevents_total"], "", "")})
	t.AppendRow(table.Row{"scan jobs ok", counterValue(families["lvm_admit_scan_jobs_total"], "status", "success")})
	t.AppendRow(table.Row{"scan jobs failed", counterValue(families["lvm_admit_scan_jobs_total"], "status", "error")})
	t.AppendRow(table.Row{"scan jobs dropped", counterValue(families["lvm_admit_scan_jobs_total"], "status", "dropped")})
	t.AppendRow(table.Row{"queue depth", gaugeValue(families["lvm_admit_scan_queue_depth"])})
	t.Render()

	return nil
}

// counterValue sums the counter samples of a family, optionally filtered on
// one label value. An empty label name sums everything.
func counterValue(family *dto.MetricFamily, label, value string) float64 {
	if family == nil {
		return 0
	}
	var total float64
	for _, m := range family.GetMetric() {
		if label != "" && !hasLabel(m, label, value) {
			continue
		}
		total += m.GetCounter().GetValue()
	}
	return total
}

// gaugeValue returns the first gauge sample of a family.
func gaugeValue(family *dto.MetricFamily) float64 {
	if family == nil || len(family.GetMetric()) == 0 {
		return 0
	}
	return family.GetMetric()[0].GetGauge().GetValue()
}

func hasLabel(m *dto.Metric, name, value string) bool {
	for _, l := range m.GetLabel() {
		if l.GetName() == name && l.GetValue() == value {
			return true
		}
	}
	return false
}
