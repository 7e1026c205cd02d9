package handlers

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/citegap/citegap/internal/pipeline"
)

// NewDigestCmd creates the on-demand digest command.
func NewDigestCmd() *cobra.Command {
	var brandID string

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Compute and deliver the daily digest now",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.orch.Process(ctx, pipeline.Event{Type: pipeline.EventDigestDue, BrandID: brandID})
		},
	}

	cmd.Flags().StringVar(&brandID, "brand", "", "brand id (default: all brands)")
	return cmd
}
