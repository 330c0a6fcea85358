package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/timmy/gallery/internal/client"
	"github.com/timmy/gallery/internal/config"
	"github.com/timmy/gallery/internal/gallery"
	"github.com/timmy/gallery/internal/logger"
	"github.com/timmy/gallery/internal/notify"
	"github.com/timmy/gallery/internal/storage"
	"github.com/timmy/gallery/internal/upload"
)

// app holds state shared by subcommands after the config is loaded.
type app struct {
	configPath string
	cfg        *config.Config
	images     *client.ImageClient
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "gallery",
		Short:         "Browse and upload gallery images",
		Long:          "gallery lists the image feed page by page and uploads new images to it.",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to config file")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newListCmd(a))
	root.AddCommand(newUploadCmd(a))
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gallery %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg

	logger.SetDefaultLogger(logger.New(cfg.Log.LoggerConfig("gallery")))

	a.images = client.NewImageClient(&client.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		UserAgent: cfg.API.UserAgent,
	})
	return nil
}

// newSession builds a session. blobs may be nil for read-only commands.
func (a *app) newSession(cmd *cobra.Command, blobs upload.BlobStore) (*gallery.Session, error) {
	policy, err := upload.ParseFailurePolicy(a.cfg.Gallery.SubmitFailurePolicy)
	if err != nil {
		return nil, err
	}
	notifier := notify.Multi{notify.LogNotifier{}, notify.NewWriterNotifier(cmd.ErrOrStderr())}
	return gallery.NewSession(a.images, blobs, a.images, &gallery.Options{
		Notifier:      notifier,
		DedupeItems:   a.cfg.Gallery.DedupeItems,
		FailurePolicy: policy,
	}), nil
}

func (a *app) blobStore() (*storage.BlobStore, error) {
	blobs, err := storage.NewBlobStoreFromConfig(&a.cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("configuring storage: %w", err)
	}
	return blobs, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
