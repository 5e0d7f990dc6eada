package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/efarmer/subsidy/common/eligibility"
	"github.com/efarmer/subsidy/common/models"
)

func newSchemesCmd() *cobra.Command {
	var (
		land             string
		crop, soil, zone string
	)

	cmd := &cobra.Command{
		Use:     "schemes",
		Short:   "Run the eligibility advisor for a profile",
		Example: `  subsidyctl schemes --land 1.5 --crop Paddy --soil Red --zone Low`,
		RunE: func(cmd *cobra.Command, args []string) error {
			advisor, err := eligibility.NewAdvisor()
			if err != nil {
				return err
			}

			suggestions, err := advisor.Suggest(&models.Farmer{
				LandArea:     models.ParseAmount(land),
				CropType:     crop,
				SoilType:     soil,
				RainfallZone: zone,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, s := range suggestions {
				fmt.Fprintf(out, "%-40s %-20s %s\n", s.Name, s.Status, s.Reason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&land, "land", "0", "Land area in acres")
	cmd.Flags().StringVar(&crop, "crop", "", "Crop type")
	cmd.Flags().StringVar(&soil, "soil", "", "Soil type")
	cmd.Flags().StringVar(&zone, "zone", "", "Rainfall zone")
	return cmd
}
