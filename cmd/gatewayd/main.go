// Command gatewayd runs the gateway listener, session dispatcher, and
// messenger poller as one long-lived process.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agentrun/gateway/internal/config"
	"github.com/agentrun/gateway/internal/conversation"
	"github.com/agentrun/gateway/internal/cron"
	"github.com/agentrun/gateway/internal/listener"
	"github.com/agentrun/gateway/internal/looper"
	"github.com/agentrun/gateway/internal/messenger"
	"github.com/agentrun/gateway/internal/providers"
	"github.com/agentrun/gateway/internal/session"
	"github.com/agentrun/gateway/internal/skills"
	"github.com/agentrun/gateway/internal/toolcatalog"
	"github.com/agentrun/gateway/internal/tools"
	"github.com/agentrun/gateway/internal/vault"
)

var (
	version = "dev"

	configPath  string
	listenAddr  string
	settingsDir string
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := buildRootCmd(logger).Execute(); err != nil {
		logger.Error("gatewayd exited with error", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:          "gatewayd",
		Short:        "Local agent gateway daemon",
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), logger)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.toml", "path to config.toml")
	root.PersistentFlags().StringVar(&listenAddr, "listen", "", "override listen_addr from config")
	root.PersistentFlags().StringVar(&settingsDir, "settings-dir", "", "override settings_dir from config")
	return root
}

func runServe(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if settingsDir != "" {
		cfg.SettingsDir = settingsDir
	}

	engine, pollerAdapters, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}

	dispatcher := session.NewDispatcher(engine, "gatewayd", cfg.SettingsDir, logger)
	gw := listener.New(cfg.ListenAddr, dispatcher, logger)

	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		logger.Info("gateway listener starting", "addr", cfg.ListenAddr)
		errCh <- gw.Run(runCtx)
	}()

	if len(pollerAdapters) > 0 {
		poller := &messenger.Poller{
			Engine:      engine,
			Adapters:    pollerAdapters,
			Logger:      logger,
			ProviderID:  cfg.Provider.Provider,
			Model:       cfg.Provider.Model,
			BaseURL:     cfg.Provider.BaseURL,
			MaxTokens:   cfg.Provider.MaxTokens,
			Temperature: cfg.Provider.Temperature,
		}
		switch cfg.Provider.Provider {
		case "anthropic":
			poller.APIKey = cfg.Credentials.AnthropicAPIKey
		case "openai":
			poller.APIKey = cfg.Credentials.OpenAIAPIKey
		case "google":
			poller.APIKey = cfg.Credentials.GoogleAPIKey
		}
		go func() {
			logger.Info("messenger poller starting", "adapters", len(pollerAdapters))
			errCh <- poller.Run(runCtx)
		}()
	}

	err = <-errCh
	cancel()
	return err
}

func buildEngine(cfg *config.Config, logger *slog.Logger) (*looper.Engine, []messenger.Adapter, error) {
	var v *vault.Vault
	var err error
	if cfg.Vault.Mode == "passphrase" {
		v, err = vault.Open(cfg.Vault.Path, os.Getenv("AGENTRUN_VAULT_PASSPHRASE"), logger)
	} else {
		v, err = vault.OpenKeyfile(cfg.Vault.Path, cfg.Vault.KeyfilePath, logger)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open vault: %w", err)
	}

	skillsRegistry := skills.NewRegistry(cfg.SkillsDir, v, logger)
	store := conversation.New(0)
	catalog := toolcatalog.New()

	tools.RegisterFileTool(catalog)
	tools.RegisterWebTool(catalog)
	tools.RegisterPatchTool(catalog)
	tools.RegisterMemoryTool(catalog)
	tools.RegisterSessionTool(catalog, store)
	tools.RegisterVaultToolDefs(catalog)
	tools.RegisterSkillToolDefs(catalog)
	shellMgr := tools.NewShellManager()
	tools.RegisterShellTool(catalog, shellMgr)
	tools.RegisterProcessTool(catalog, shellMgr)

	scheduler := cron.NewScheduler(func(ctx context.Context, job *cron.Job) error {
		logger.Info("cron job fired", "id", job.ID, "name", job.Name)
		return nil
	}, logger)
	tools.RegisterCronTool(catalog, scheduler)

	registry := providers.NewRegistry()

	engine := &looper.Engine{
		Store:     store,
		Providers: registry,
		Catalog:   catalog,
		Vault:     v,
		Skills:    skillsRegistry,
		MaxRounds: cfg.MaxRounds,
		Logger:    logger,
	}

	adapters, err := buildMessengerAdapters(cfg)
	if err != nil {
		return nil, nil, err
	}
	return engine, adapters, nil
}

func buildMessengerAdapters(cfg *config.Config) ([]messenger.Adapter, error) {
	var adapters []messenger.Adapter

	if cfg.Messengers.Telegram.Enabled {
		a, err := messenger.NewTelegramAdapter(cfg.Credentials.TelegramToken)
		if err != nil {
			return nil, fmt.Errorf("telegram adapter: %w", err)
		}
		adapters = append(adapters, a)
	}
	if cfg.Messengers.Discord.Enabled {
		a, err := messenger.NewDiscordAdapter(cfg.Credentials.DiscordToken, cfg.Messengers.Discord.ChannelIDs)
		if err != nil {
			return nil, fmt.Errorf("discord adapter: %w", err)
		}
		adapters = append(adapters, a)
	}
	if cfg.Messengers.Matrix.Enabled {
		a, err := messenger.NewMatrixAdapter(cfg.Messengers.Matrix.Homeserver, cfg.Messengers.Matrix.UserID, os.Getenv("MATRIX_ACCESS_TOKEN"))
		if err != nil {
			return nil, fmt.Errorf("matrix adapter: %w", err)
		}
		adapters = append(adapters, a)
	}
	if cfg.Messengers.Webhook.Enabled {
		replyURL := cfg.Messengers.Webhook.ReplyURL
		if replyURL == "" {
			replyURL = cfg.Credentials.WebhookURL
		}
		adapters = append(adapters, messenger.NewWebhookAdapter(cfg.Messengers.Webhook.ListenAddr, replyURL))
	}
	if cfg.Messengers.Signal.Enabled {
		a, err := messenger.NewSignalAdapter(cfg.Messengers.Signal.CLIPath, cfg.Messengers.Signal.Account)
		if err != nil {
			return nil, fmt.Errorf("signal adapter: %w", err)
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}
