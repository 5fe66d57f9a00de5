package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baladia/taxe/internal/models"
	"github.com/baladia/taxe/internal/tax"
)

type quoteOptions struct {
	propertyType   string
	density        string
	otherServices  string
	services       []string
	coveredSurface float64
	totalSurface   float64
}

func newQuoteCmd() *cobra.Command {
	var opts quoteOptions

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Compute the yearly tax of a property without storing anything",
		Example: `  taxctl quote --type built --covered-surface 120 --service public_lighting
  taxctl quote --type "non bâti" --total-surface 1000 --density haute`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			breakdown, err := quote(opts)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), breakdown)
		},
	}

	cmd.Flags().StringVar(&opts.propertyType, "type", "", "Property type: built or unbuilt (required)")
	cmd.Flags().Float64Var(&opts.coveredSurface, "covered-surface", 0, "Covered surface in m² (built)")
	cmd.Flags().Float64Var(&opts.totalSurface, "total-surface", 0, "Total surface in m² (unbuilt)")
	cmd.Flags().StringVar(&opts.density, "density", "", "Urban density: high, medium or low (unbuilt)")
	cmd.Flags().StringSliceVar(&opts.services, "service", nil, "Declared municipal service, repeatable (built)")
	cmd.Flags().StringVar(&opts.otherServices, "other", "", "Free-text other services (built)")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func quote(opts quoteOptions) (tax.Breakdown, error) {
	t, err := models.ParsePropertyType(opts.propertyType)
	if err != nil {
		return tax.Breakdown{}, err
	}

	p := &models.Property{
		Type:          t,
		Services:      opts.services,
		OtherServices: opts.otherServices,
	}
	if t == models.PropertyTypeBuilt {
		p.CoveredSurface = &opts.coveredSurface
	} else {
		p.TotalSurface = &opts.totalSurface
		if opts.density != "" {
			d, err := models.ParseDensity(opts.density)
			if err != nil {
				return tax.Breakdown{}, err
			}
			p.Density = &d
		}
	}
	p.Normalize()

	for _, id := range p.Services {
		if !models.IsKnownService(id) {
			return tax.Breakdown{}, fmt.Errorf("unknown service %q", id)
		}
	}
	attrs := tax.AttributesOf(p)
	if err := tax.ValidateAttributes(attrs); err != nil {
		return tax.Breakdown{}, err
	}
	return tax.Explain(t, attrs), nil
}
