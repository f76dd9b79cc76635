package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glucoalert/alertcore/internal/units"
)

var convertUnit string

var convertCmd = &cobra.Command{
	Use:   "convert VALUE",
	Short: "Convert a glucose value between mg/dL and mmol/L",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		unit, err := displayUnit(convertUnit)
		if err != nil {
			return err
		}
		native, err := units.ParseDisplay(args[0], unit)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s %s\n",
			units.Format(native, units.MgDL), units.MgDL.Label(),
			units.Format(native, units.MmolL), units.MmolL.Label())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVarP(&convertUnit, "unit", "u", "", "Unit of VALUE (default: display.unit)")
}
