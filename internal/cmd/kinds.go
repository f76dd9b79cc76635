package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/glucoalert/alertcore/internal/alerting"
	"github.com/glucoalert/alertcore/internal/units"
)

var kindsUnit string

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List the alert kinds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		unit, err := displayUnit(kindsUnit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CODE\tNAME\tTITLE\tDEFAULT\tUNIT\tTRIGGER")
		for _, k := range alerting.Kinds() {
			def := "-"
			if k.NeedsValue {
				def = k.FormatValue(k.DefaultValue, unit)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", k.Code, k.Name, k.Title, def, k.UnitText(unit), k.Trigger)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(kindsCmd)

	kindsCmd.Flags().StringVarP(&kindsUnit, "unit", "u", "", "Display unit (default: display.unit)")
}

// displayUnit returns the parsed override or the configured unit.
func displayUnit(override string) (units.Unit, error) {
	if override == "" {
		return settings.DisplayUnit(), nil
	}
	return units.ParseUnit(override)
}

// parseKind accepts a kind code or name.
func parseKind(s string) (alerting.Kind, error) {
	if code, err := strconv.Atoi(s); err == nil {
		return alerting.Lookup(code)
	}
	return alerting.LookupName(s)
}
