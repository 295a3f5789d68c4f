package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	storyverse "github.com/opd-ai/storyverse/src"
	"github.com/opd-ai/storyverse/srv/util"
)

type rootOptions struct {
	envFile string
}

// app is what every command that talks to a model needs.
type app struct {
	cfg    *storyverse.Config
	logger *zap.Logger
}

func loadApp(opts *rootOptions, logOutput string) (*app, error) {
	cfg, err := storyverse.LoadConfig(opts.envFile)
	if err != nil {
		return nil, err
	}
	logger, err := util.NewLogger(util.LogConfig{
		Level:      cfg.LogLevel,
		Encoding:   cfg.LogEncoding,
		OutputPath: logOutput,
	})
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger}, nil
}

// collaborators builds the text engine and the illustrator from config.
func (a *app) collaborators(ctx context.Context) (*storyverse.Engine, *storyverse.Illustrator, error) {
	text, err := a.cfg.NewTextGenerator(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("text generator: %w", err)
	}
	images, err := a.cfg.NewImageClient(ctx, a.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("image client: %w", err)
	}
	a.logger.Info("collaborators ready",
		zap.String("text_provider", a.cfg.TextProvider),
		zap.String("image_provider", a.cfg.ImageProvider),
		zap.String("protocol", string(a.cfg.Protocol)))
	return storyverse.NewEngine(text, a.logger), storyverse.NewIllustrator(images, a.logger), nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "storyverse",
		Short:         "Write a story together with an AI co-author",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env", ".env", "dotenv file to load before reading the environment")

	root.AddCommand(newWriteCmd(opts), newServeCmd(opts), newExportCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
