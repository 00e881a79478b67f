package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/prajnoha/lvm2/pkg/config"
	"github.com/prajnoha/lvm2/pkg/filter"
)

func newPatternsCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Show the compiled filter pattern table",
		Long: `Compile the configured filter patterns and show them in evaluation
precedence order, together with the matcher index each pattern lands on
after the reverse-order compilation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPatterns(*configPath)
		},
	}
	return cmd
}

func runPatterns(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	sections := []struct {
		title    string
		patterns []string
	}{
		{title: "global_filter", patterns: cfg.Devices.GlobalFilter},
		{title: "filter", patterns: cfg.Devices.Filter},
	}

	for _, section := range sections {
		if len(section.patterns) == 0 {
			continue
		}
		ps, err := filter.Compile(section.patterns)
		if err != nil {
			return err
		}

		colorHeader.Println(section.title) //nolint:errcheck
		t := newStyledTable()
		t.AppendHeader(table.Row{"Position", "Polarity", "Pattern", "Matcher Index"})
		count := ps.Len()
		for i, p := range ps.Patterns() {
			t.AppendRow(table.Row{i, polarityBadge(bool(p.Polarity)), p.Body, count - 1 - i})
		}
		t.Render()
	}

	if len(cfg.Devices.Filter) == 0 && len(cfg.Devices.GlobalFilter) == 0 {
		colorMuted.Println("No filter patterns configured; every device passes.") //nolint:errcheck
	}
	return nil
}
