package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/glucoalert/alertcore/internal/alerting"
	"github.com/glucoalert/alertcore/internal/conf"
	"github.com/glucoalert/alertcore/internal/units"
)

var (
	entriesUnit string
	entriesType string
)

var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "Manage per-kind alert schedules",
}

var entriesListCmd = &cobra.Command{
	Use:   "list KIND",
	Short: "List a kind's schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runEntriesList,
}

var entriesAddCmd = &cobra.Command{
	Use:   "add KIND HH:MM [VALUE]",
	Short: "Add a schedule entry",
	Long: `Add an entry to a kind's schedule starting at HH:MM. VALUE is in the display
unit and defaults to the kind's default. The alert type defaults to the one of
the entry in effect at that time.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runEntriesAdd,
}

var entriesDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a schedule entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runEntriesDelete,
}

var entriesSetStartCmd = &cobra.Command{
	Use:   "set-start ID HH:MM",
	Short: "Move a schedule entry",
	Args:  cobra.ExactArgs(2),
	RunE:  runEntriesSetStart,
}

var entriesSetValueCmd = &cobra.Command{
	Use:   "set-value ID VALUE",
	Short: "Change a schedule entry's threshold",
	Args:  cobra.ExactArgs(2),
	RunE:  runEntriesSetValue,
}

func init() {
	rootCmd.AddCommand(entriesCmd)
	entriesCmd.AddCommand(entriesListCmd, entriesAddCmd, entriesDeleteCmd, entriesSetStartCmd, entriesSetValueCmd)

	entriesCmd.PersistentFlags().StringVarP(&entriesUnit, "unit", "u", "", "Display unit (default: display.unit)")
	entriesAddCmd.Flags().StringVarP(&entriesType, "type", "t", "", "Alert type id or name")
}

func runEntriesList(cmd *cobra.Command, args []string) error {
	k, err := parseKind(args[0])
	if err != nil {
		return err
	}
	unit, err := displayUnit(entriesUnit)
	if err != nil {
		return err
	}
	a, err := openApp(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.svc.Schedule.ListForKind(cmd.Context(), k.Code)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTART\tVALUE\tALERT TYPE")
	for i := range entries {
		e := &entries[i]
		value := "-"
		if k.NeedsValue {
			value = k.FormatValue(e.Value, unit)
			if text := k.UnitText(unit); text != "" {
				value += " " + text
			}
		}
		typeName := strconv.FormatUint(uint64(e.AlertTypeID), 10)
		if e.AlertType != nil {
			typeName = e.AlertType.Name
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", e.ID, conf.TimeOfDay(e.Start), value, typeName)
	}
	return w.Flush()
}

func runEntriesAdd(cmd *cobra.Command, args []string) error {
	k, err := parseKind(args[0])
	if err != nil {
		return err
	}
	start, err := conf.ParseTimeOfDay(args[1])
	if err != nil {
		return err
	}
	unit, err := displayUnit(entriesUnit)
	if err != nil {
		return err
	}
	value := k.DefaultValue
	if len(args) == 3 {
		if value, err = parseValue(k, args[2], unit); err != nil {
			return err
		}
	}

	a, err := openApp(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	var typeID uint
	if entriesType != "" {
		t, err := resolveType(ctx, a.svc, entriesType)
		if err != nil {
			return err
		}
		typeID = t.ID
	} else {
		active, err := a.svc.Evaluator.ActiveEntry(ctx, k.Code, start.Minutes())
		if err != nil {
			return fmt.Errorf("no alert type given and none in effect at %s: %w", start, err)
		}
		typeID = active.AlertTypeID
	}

	entry, err := a.svc.Schedule.Create(ctx, k.Code, start.Minutes(), value, typeID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s entry %d at %s\n", k.Name, entry.ID, start)
	return nil
}

// parseValue reads a threshold in the display unit.
func parseValue(k alerting.Kind, raw string, unit units.Unit) (int, error) {
	if !k.NeedsValue {
		return 0, fmt.Errorf("%w: %s", alerting.ErrKindHasNoValue, k.Name)
	}
	if k.NeedsMmolConversion {
		return units.ParseDisplay(raw, unit)
	}
	return units.ParseDisplay(raw, units.MgDL)
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid entry id %q", s)
	}
	return uint(id), nil
}

func runEntriesDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	a, err := openApp(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.svc.Schedule.Delete(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted entry %d\n", id)
	return nil
}

func runEntriesSetStart(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	start, err := conf.ParseTimeOfDay(args[1])
	if err != nil {
		return err
	}
	a, err := openApp(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.svc.Schedule.SetStart(cmd.Context(), id, start.Minutes()); err != nil {
		if b, berr := a.svc.Schedule.EditableBounds(cmd.Context(), id); berr == nil && !b.Immutable {
			return fmt.Errorf("%w (allowed %s to %s)", err, conf.TimeOfDay(b.Min), conf.TimeOfDay(b.Max))
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "moved entry %d to %s\n", id, start)
	return nil
}

func runEntriesSetValue(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	unit, err := displayUnit(entriesUnit)
	if err != nil {
		return err
	}
	a, err := openApp(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	entry, err := a.svc.Schedule.Get(ctx, id)
	if err != nil {
		return err
	}
	k, err := alerting.Lookup(entry.Kind)
	if err != nil {
		return err
	}
	value, err := parseValue(k, args[1], unit)
	if err != nil {
		return err
	}
	if err := a.svc.Schedule.SetValue(ctx, id, value); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "set entry %d to %s\n", id, k.FormatValue(value, unit))
	return nil
}
