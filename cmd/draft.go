package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/CristopherRL/talent-inbound-os/internal/model"
	"github.com/CristopherRL/talent-inbound-os/internal/pipeline"
)

var (
	draftResponseType string
	draftLanguage     string
	draftInstructions string
)

var draftCmd = &cobra.Command{
	Use:   "draft <opportunity-id>",
	Short: "Generate a reply draft for an opportunity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		draft, err := env.Drafts.Generate(ctx, pipeline.DraftRequest{
			OpportunityID:          args[0],
			ResponseType:           model.ResponseType(draftResponseType),
			Language:               draftLanguage,
			AdditionalInstructions: draftInstructions,
		})
		if err != nil {
			return err
		}

		zap.L().Info("draft saved",
			zap.String("draft_id", draft.ID),
			zap.String("response_type", string(draft.ResponseType)),
		)
		fmt.Println(draft.Content)
		return nil
	},
}

func init() {
	draftCmd.Flags().StringVar(&draftResponseType, "type", string(model.ResponseExpressInterest), "response type: REQUEST_INFO, EXPRESS_INTEREST, or DECLINE")
	draftCmd.Flags().StringVar(&draftLanguage, "language", "", "ISO 639-1 reply language (default: the opportunity's detected language)")
	draftCmd.Flags().StringVar(&draftInstructions, "instructions", "", "additional free-text instructions for the draft")
	rootCmd.AddCommand(draftCmd)
}
