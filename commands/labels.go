package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vipertrack/vipertrack/internal/core/label"
)

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "Inspect and validate label definitions",
}

var labelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured labels",
	RunE:  runLabelsList,
}

var labelsValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a labels file without loading it",
	Long: `validate parses the labels file and checks every condition tree: known
leaf kinds, compilable regular expressions, well-formed time ranges, and the
nesting depth limit. Exits non-zero when any label is rejected.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLabelsValidate,
}

var labelsOverrideCmd = &cobra.Command{
	Use:   "override <id> <on|off|clear>",
	Short: "Pin or clear a manual override for a label",
	Long: `override pins a label on or off in the labels file, winning over its rule
on every bucket. A running tracker picks the change up through the labels
file watcher. "clear" removes the pin.`,
	Args: cobra.ExactArgs(2),
	RunE: runLabelsOverride,
}

func init() {
	labelsCmd.AddCommand(labelsListCmd)
	labelsCmd.AddCommand(labelsValidateCmd)
	labelsCmd.AddCommand(labelsOverrideCmd)
	rootCmd.AddCommand(labelsCmd)
}

func runLabelsList(cmd *cobra.Command, args []string) error {
	labels, err := label.LoadFile(expandPath(cfg.Labels.Path))
	if err != nil {
		return fmt.Errorf("load labels: %w", err)
	}

	if len(labels) == 0 {
		fmt.Println("No labels configured")
		return nil
	}

	for _, lbl := range labels {
		state := "active"
		if !lbl.Active {
			state = "disabled"
		}
		rule := "manual only"
		if lbl.Condition != nil {
			rule = "rule-driven"
		}
		if lbl.Override != "" {
			rule += ", forced " + lbl.Override
		}
		fmt.Printf("%-20s %-24s %-10s %s\n", lbl.ID, lbl.Name, state, rule)
	}
	return nil
}

func runLabelsOverride(cmd *cobra.Command, args []string) error {
	id := args[0]
	state, err := label.ParseOverrideState(args[1])
	if err != nil {
		return err
	}

	path := expandPath(cfg.Labels.Path)
	labels, err := label.LoadFile(path)
	if err != nil {
		return fmt.Errorf("load labels: %w", err)
	}

	found := false
	for i := range labels {
		if labels[i].ID != id {
			continue
		}
		found = true
		switch state {
		case label.OverrideUnset:
			labels[i].Override = ""
		case label.OverrideForcedOn:
			labels[i].Override = "on"
		case label.OverrideForcedOff:
			labels[i].Override = "off"
		}
	}
	if !found {
		return fmt.Errorf("unknown label id %q", id)
	}

	if err := label.SaveFile(path, labels); err != nil {
		return err
	}
	fmt.Printf("%s: override %s\n", id, state)
	return nil
}

func runLabelsValidate(cmd *cobra.Command, args []string) error {
	path := expandPath(cfg.Labels.Path)
	if len(args) == 1 {
		path = expandPath(args[0])
	}

	labels, err := label.LoadFile(path)
	if err != nil {
		return fmt.Errorf("load labels: %w", err)
	}

	registry := label.NewRegistry(cfg.Labels.MaxDepth)
	if _, err := registry.Load(labels); err != nil {
		return err
	}

	fmt.Printf("%s: %d labels OK\n", path, len(labels))
	return nil
}
