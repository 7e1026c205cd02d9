package handlers

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/citegap/citegap/internal/pipeline"
)

// NewPipelineCmd creates the one-shot pipeline command: gap analysis,
// discovery, and generation fan-out over the recent scan window.
func NewPipelineCmd() *cobra.Command {
	var brandID string

	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Analyze the recent scan window and generate memos for gaps",
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
				if err := a.orch.Process(ctx, pipeline.Event{Type: pipeline.EventScanWindowReady, BrandID: id}); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&brandID, "brand", "", "brand id (default: all brands)")
	return cmd
}

// resolveBrands expands an empty brand flag to every stored brand.
func resolveBrands(ctx context.Context, a *app, brandID string) ([]string, error) {
	if brandID != "" {
		return []string{brandID}, nil
	}
	brands, err := a.store.ListBrands(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(brands))
	for _, b := range brands {
		ids = append(ids, b.ID)
	}
	return ids, nil
}
