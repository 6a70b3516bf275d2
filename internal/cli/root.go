// Package cli implements the knowflow commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Rrens/knowflow/internal/apiclient"
	"github.com/Rrens/knowflow/internal/config"
	"github.com/Rrens/knowflow/internal/domain"
	"github.com/Rrens/knowflow/internal/logger"
	"github.com/Rrens/knowflow/internal/repository"
	"github.com/Rrens/knowflow/internal/store"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// skipProfile marks commands that must not refresh the profile on startup
const skipProfile = "skip-profile"

var (
	configPath string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:           "knowflow",
	Short:         "Ask questions about your documents",
	Long:          "A terminal client for the knowflow document Q&A service: sign in, upload and index documents, and chat with them.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if formatFlag != "json" && formatFlag != "text" {
			return fmt.Errorf("unknown format %q: use json or text", formatFlag)
		}
		slot, ok := slotFrom(cmd.Context())
		if !ok {
			return errors.New("knowflow commands must run through cli.Execute")
		}
		e, err := openEnv(cmd.Context(), cmd.Annotations[skipProfile] == "true")
		if err != nil {
			return err
		}
		slot.env = e
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $KNOWFLOW_CONFIG or <user config dir>/knowflow/config.yaml)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "text", "Output format: json or text")
}

type env struct {
	cfg    *config.Config
	tokens domain.KeyValueStore
	app    *store.App
	logs   io.Closer
}

func (e *env) close() {
	if err := e.tokens.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close token storage")
	}
	e.logs.Close()
}

func (e *env) requireAuth() error {
	if !e.app.Auth.Snapshot().IsAuthenticated {
		return errNotSignedIn
	}
	return nil
}

type envKey struct{}

// envSlot travels in the command context; the root pre-run fills it and
// Execute closes it
type envSlot struct {
	env *env
}

func slotFrom(ctx context.Context) (*envSlot, bool) {
	slot, ok := ctx.Value(envKey{}).(*envSlot)
	return slot, ok
}

// envFrom returns the environment opened for this invocation
func envFrom(cmd *cobra.Command) *env {
	slot, _ := slotFrom(cmd.Context())
	return slot.env
}

func openEnv(ctx context.Context, skip bool) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logs, err := logger.Setup(cfg.Logging)
	if err != nil {
		return nil, err
	}

	tokens, err := repository.Open(ctx, cfg)
	if err != nil {
		logs.Close()
		return nil, err
	}

	client := apiclient.New(cfg.API.BaseURL, cfg.API.Timeout, tokens)
	app := store.NewApp(client, tokens)
	if !skip {
		app.Start(ctx)
	}

	log.Debug().
		Str("api", client.BaseURL()).
		Str("storage", cfg.Storage.Driver).
		Msg("client ready")

	return &env{cfg: cfg, tokens: tokens, app: app, logs: logs}, nil
}

// Execute runs the command line and releases resources afterwards
func Execute(ctx context.Context) error {
	slot := &envSlot{}
	defer func() {
		if slot.env != nil {
			slot.env.close()
		}
	}()
	return RootCmd.ExecuteContext(context.WithValue(ctx, envKey{}, slot))
}

var errNotSignedIn = errors.New("not signed in: run `knowflow login` first")

// storeError turns a store's recorded error into a command failure
func storeError(msg, fallback string) error {
	if msg == "" {
		msg = fallback
	}
	return errors.New(msg)
}
