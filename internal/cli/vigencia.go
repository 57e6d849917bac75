package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"expediente/internal/vigencia"
	"expediente/pkg/platform/dates"
)

func newVigenciaCommand(a *app) *cobra.Command {
	var (
		state, expedition, platesDate, asOf string
		vehicleYear                         int
	)
	cmd := &cobra.Command{
		Use:   "vigencia",
		Short: "Check one circulation certificate against the state rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			facts := vigencia.Facts{State: state}
			var err error
			if facts.Expedition, err = optionalDate("expedicion", expedition); err != nil {
				return err
			}
			if facts.PlatesDate, err = optionalDate("fecha-placas", platesDate); err != nil {
				return err
			}
			if vehicleYear > 0 {
				facts.VehicleYear = &vehicleYear
			}
			at, err := a.referenceDate(asOf)
			if err != nil {
				return err
			}
			if at.IsZero() {
				at = dates.Day(time.Now())
			}

			verdict := a.engine.EvaluateFacts(facts, at)
			a.logger.Debug("vigencia evaluated", "estado", state, "as_of", dates.Format(at), "modelo", verdict.Model)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(verdict)
		},
	}
	cmd.Flags().StringVar(&state, "estado", "", "issuing state, e.g. \"Nuevo León\"")
	cmd.Flags().StringVar(&expedition, "expedicion", "", "expedition date")
	cmd.Flags().IntVar(&vehicleYear, "modelo-anio", 0, "vehicle model year")
	cmd.Flags().StringVar(&platesDate, "fecha-placas", "", "plates issue date")
	cmd.Flags().StringVar(&asOf, "as-of", "", "reference date; default today")
	_ = cmd.MarkFlagRequired("estado")
	return cmd
}

func optionalDate(flag, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, ok := dates.Parse(value)
	if !ok {
		return nil, fmt.Errorf("invalid --%s date %q", flag, value)
	}
	return &t, nil
}
