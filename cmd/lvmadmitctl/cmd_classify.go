package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prajnoha/lvm2/pkg/config"
	"github.com/prajnoha/lvm2/pkg/device"
	"github.com/prajnoha/lvm2/pkg/events"
	"github.com/prajnoha/lvm2/pkg/scan"
)

//nolint:govet // field alignment not critical for a flag holder
type classifyFlags struct {
	action       string
	class        string
	name         string
	prevFS       string
	fs           string
	artificial   bool
	activeSignal bool
	partition    bool
	activated    bool
	probeReady   bool
}

func newClassifyCmd(configPath *string) *cobra.Command {
	var flags classifyFlags

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Dry-run the scan decision for a device event",
		Long: `Run the event classifier and scan-trigger coordinator on a synthetic
event and print the resulting action, without touching any device.

Examples:
  # A new array member that has not been assembled yet
  lvmadmitctl classify --class array --action add --fs LVM2_member

  # The same array after its state became readable
  lvmadmitctl classify --class array --action change --fs LVM2_member --probe-ready

  # A member losing its signature
  lvmadmitctl classify --action change --prev-fs LVM2_member`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(*configPath, flags)
		},
	}

	cmd.Flags().StringVar(&flags.action, "action", "add", "Event action: add, change or remove")
	cmd.Flags().StringVar(&flags.class, "class", "other", "Device class: composite, array, loop or other")
	cmd.Flags().StringVar(&flags.name, "name", "/dev/sdx", "Device name")
	cmd.Flags().StringVar(&flags.prevFS, "prev-fs", "", "Previously recorded filesystem type")
	cmd.Flags().StringVar(&flags.fs, "fs", "", "Current filesystem type")
	cmd.Flags().BoolVar(&flags.artificial, "artificial", false, "Treat the event as replayed/synthesized")
	cmd.Flags().BoolVar(&flags.activeSignal, "active-signal", false, "Composite activation signal present")
	cmd.Flags().BoolVar(&flags.partition, "partition", false, "Event is for a partition of an array device")
	cmd.Flags().BoolVar(&flags.activated, "activated", false, "Device activation already recorded")
	cmd.Flags().BoolVar(&flags.probeReady, "probe-ready", false, "Class liveness probe succeeds")

	return cmd
}

func runClassify(configPath string, flags classifyFlags) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	class, err := parseClass(flags.class)
	if err != nil {
		return err
	}

	probes := events.Probes{
		ArrayReady: func(string) bool { return flags.probeReady },
		LoopReady:  func(string) bool { return flags.probeReady },
	}
	classifier := events.NewClassifier(probes, cfg.ScanActions())
	coordinator := scan.NewCoordinator(scan.Mode(cfg.Scan.Mode), classifier)

	ev := events.Event{
		Action:       events.Action(flags.action),
		Artificial:   flags.artificial,
		Class:        class,
		ActiveSignal: flags.activeSignal,
		Partition:    flags.partition,
		Name:         flags.name,
	}
	props := &device.Properties{Activated: flags.activated, FSType: flags.prevFS}

	action := coordinator.Decide(ev, props, flags.prevFS, flags.fs)

	fmt.Printf("%s %s\n", colorHeader.Sprint("Scan action:"), scanActionBadge(action))
	fmt.Printf("%s %v\n", colorHeader.Sprint("Readiness:  "), props.Ready)
	fmt.Printf("%s %v\n", colorHeader.Sprint("Activated:  "), props.Activated)
	return nil
}

func parseClass(s string) (events.Class, error) {
	switch s {
	case "composite":
		return events.ClassComposite, nil
	case "array":
		return events.ClassArray, nil
	case "loop":
		return events.ClassLoop, nil
	case "other":
		return events.ClassOther, nil
	default:
		return events.ClassOther, fmt.Errorf("unknown device class %q", s)
	}
}

func scanActionBadge(a scan.Action) string {
	switch a {
	case scan.DirectScan:
		return colorSuccess.Sprint("direct scan")
	case scan.DeferredScan:
		return colorSuccess.Sprint("deferred scan")
	default:
		return colorMuted.Sprint("suppress")
	}
}
