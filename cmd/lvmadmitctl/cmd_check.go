package main

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/prajnoha/lvm2/pkg/config"
	"github.com/prajnoha/lvm2/pkg/device"
	"github.com/prajnoha/lvm2/pkg/filter"
)

func newCheckCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <device>...",
		Short: "Evaluate device names against the configured filter",
		Long: `Evaluate one or more device names against the configured filter patterns
and report the admission decision for each.

Names given for one device should be passed as one comma-separated argument
when the device has several aliases:

  lvmadmitctl check /dev/sdb
  lvmadmitctl check /dev/sdq1,/dev/disk/by-id/wwn-0x5000c500
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(*configPath, args)
		},
	}
	return cmd
}

func runCheck(configPath string, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	globalFilter, err := filter.New(cfg.Devices.GlobalFilter, false, len(cfg.Devices.GlobalFilter) > 0)
	if err != nil {
		return err
	}
	devFilter, err := filter.New(cfg.Devices.Filter, len(cfg.Devices.Filter) > 0, false)
	if err != nil {
		return err
	}

	t := newStyledTable()
	t.AppendHeader(table.Row{"Device", "Result", "Preferred Alias"})

	by := cfg.Bypass()
	for _, arg := range args {
		dev := &device.Device{Aliases: splitAliases(arg)}

		pass := globalFilter.Evaluate(dev, by) == filter.Pass &&
			devFilter.Evaluate(dev, by) == filter.Pass

		preferred := dev.PreferredAlias
		if preferred == "" {
			preferred = colorMuted.Sprint("-")
		}
		t.AppendRow(table.Row{dev.Name(), admissionBadge(pass), preferred})
	}

	t.Render()
	return nil
}

// splitAliases splits a comma-separated alias list, keeping order and
// dropping empty entries.
func splitAliases(arg string) []string {
	var aliases []string
	for _, a := range strings.Split(arg, ",") {
		if a != "" {
			aliases = append(aliases, a)
		}
	}
	return aliases
}
