package handlers

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/citegap/citegap/internal/pipeline"
)

// NewBacklinkCmd creates the cross-link refresh command.
func NewBacklinkCmd() *cobra.Command {
	var (
		brandID string
		memoID  string
	)

	cmd := &cobra.Command{
		Use:   "backlink",
		Short: "Refresh cross-links for one memo or a whole brand",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			ev := pipeline.Event{Type: pipeline.EventBacklinkBatch, BrandID: brandID}
			if memoID != "" {
				ev = pipeline.Event{Type: pipeline.EventBacklinkMemo, BrandID: brandID, MemoID: memoID}
			}
			return a.orch.Process(ctx, ev)
		},
	}

	cmd.Flags().StringVar(&brandID, "brand", "", "brand id")
	cmd.Flags().StringVar(&memoID, "memo", "", "memo id (default: whole-brand batch)")
	cmd.MarkFlagRequired("brand")
	return cmd
}
