package main

import (
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	processAll         bool
	processConcurrency int
)

var processCmd = &cobra.Command{
	Use:   "process [interaction-id]",
	Short: "Run the pipeline for one interaction, or all pending with --all",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if !processAll {
			if len(args) != 1 {
				return eris.New("an interaction id is required unless --all is set")
			}
			return env.Processor.Process(ctx, args[0])
		}

		pending, err := env.Store.ListPendingInteractions(ctx)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			zap.L().Info("no pending interactions")
			return nil
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(processConcurrency)

		var succeeded, failed atomic.Int64
		for _, interaction := range pending {
			id := interaction.ID
			g.Go(func() error {
				if err := env.Processor.Process(gctx, id); err != nil {
					failed.Add(1)
					zap.L().Error("processing failed",
						zap.String("interaction_id", id),
						zap.Error(err),
					)
					return nil
				}
				succeeded.Add(1)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		zap.L().Info("batch processing complete",
			zap.Int64("succeeded", succeeded.Load()),
			zap.Int64("failed", failed.Load()),
		)
		return nil
	},
}

func init() {
	processCmd.Flags().BoolVar(&processAll, "all", false, "process every pending interaction")
	processCmd.Flags().IntVar(&processConcurrency, "concurrency", 4, "max concurrent pipeline runs with --all")
	rootCmd.AddCommand(processCmd)
}
