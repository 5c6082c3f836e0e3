/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"os/signal"
	"syscall"

	"github.com/cbr-records/apiserver/config"
	"github.com/cbr-records/apiserver/internal/mq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// watchModerationCmd represents the watch-moderation command.
var watchModerationCmd = &cobra.Command{
	Use:   "watch-moderation",
	Short: "Log submissions awaiting moderation as they arrive",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		events, err := mq.NewFromConfig(cmd.Context(), cfg.MQ)
		if err != nil {
			return err
		}
		if events == nil {
			return errors.New("MQ_BACKEND is required")
		}
		defer func() { _ = events.Close() }()

		log, err := zap.NewProduction()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log.Info("watching moderation channel", zap.String("channel", mq.ModerationChannel))
		err = events.Subscribe(ctx, mq.ModerationChannel, func(ctx context.Context, msg mq.Message) error {
			var event mq.ModerationEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				log.Warn("undecodable moderation event", zap.String("id", msg.ID), zap.Error(err))
				return nil
			}
			log.Info("submission awaiting moderation",
				zap.String("kind", event.Kind),
				zap.Int("id", event.ID),
			)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchModerationCmd)
}
