package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"expediente/internal/vigencia"
)

func newStatesCommand(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "states",
		Short: "List the validity rules of the 32 states",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rules := vigencia.SortedRules(a.engine.Rules())
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rules)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ESTADO\tMODELO\tREFRENDO\tHUECO\tEXCEPCIONES")
			for _, r := range rules {
				var names []string
				for _, o := range a.engine.Overrides(r.State) {
					names = append(names, o.Name)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					r.Name, r.Model, yesNo(r.RequiresRefrendo), yesNo(r.DocumentationGap), strings.Join(names, ", "))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "sí"
	}
	return "no"
}
