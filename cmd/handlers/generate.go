package handlers

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/citegap/citegap/internal/core"
	"github.com/citegap/citegap/internal/generator"
	"github.com/citegap/citegap/internal/pipeline"
)

// NewGenerateCmd creates the single-memo generation command. Going through
// the orchestrator gives the memo its backlink passes.
func NewGenerateCmd() *cobra.Command {
	var (
		brandID      string
		memoType     string
		competitorID string
		queryID      string
		topic        string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one memo for a brand",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			mt := core.MemoType(memoType)
			switch mt {
			case core.MemoComparison, core.MemoAlternative, core.MemoIndustry,
				core.MemoHowTo, core.MemoResponse, core.MemoGapFill:
			default:
				return fmt.Errorf("unknown memo type %q", memoType)
			}

			return a.orch.Process(ctx, pipeline.Event{
				Type:    pipeline.EventMemoRequested,
				BrandID: brandID,
				GenRequest: &generator.Request{
					BrandID:      brandID,
					MemoType:     mt,
					CompetitorID: competitorID,
					QueryID:      queryID,
					TopicHint:    topic,
				},
			})
		},
	}

	cmd.Flags().StringVar(&brandID, "brand", "", "brand id")
	cmd.Flags().StringVar(&memoType, "type", "comparison", "memo type: comparison|alternative|industry|how_to|response|gap_fill")
	cmd.Flags().StringVar(&competitorID, "competitor", "", "competitor id (comparison/alternative)")
	cmd.Flags().StringVar(&queryID, "query", "", "triggering query id")
	cmd.Flags().StringVar(&topic, "topic", "", "topic hint (industry/how_to)")
	cmd.MarkFlagRequired("brand")
	return cmd
}
