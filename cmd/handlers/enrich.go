package handlers

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/citegap/citegap/internal/logger"
)

// NewEnrichCmd creates the competitor profile enrichment command.
func NewEnrichCmd() *cobra.Command {
	var brandID string

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Crawl competitor homepages and refresh their profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			brands, err := resolveBrands(ctx, a, brandID)
			if err != nil {
				return err
			}
			for _, id := range brands {
				enriched, err := a.enricher.EnrichBrand(ctx, id)
				if err != nil {
					return err
				}
				logger.Get().Info().Str("brand", id).Int("enriched", enriched).Msg("enrichment pass finished")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&brandID, "brand", "", "brand id (default: all brands)")
	return cmd
}
