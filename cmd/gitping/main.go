package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/gitping/gitping/pkg/api"
	"github.com/gitping/gitping/pkg/chat"
	"github.com/gitping/gitping/pkg/config"
	"github.com/gitping/gitping/pkg/dispatch"
	"github.com/gitping/gitping/pkg/event"
	"github.com/gitping/gitping/pkg/log"
	"github.com/gitping/gitping/pkg/registry"
	"github.com/gitping/gitping/pkg/storage"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gitping",
	Short: "GitPing - GitLab webhook relay for browser subscribers",
	Long: `GitPing receives GitLab webhooks and relays them as real-time
notifications to subscribed browser clients over Server-Sent Events.

Subscribers register with their GitLab user ID; push, merge request,
issue and pipeline events are routed to the users they concern.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"GitPing version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("GitPing version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook relay server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("config", "", "Path to YAML config file")
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.Log.Level),
		JSONOutput: cfg.Log.JSON,
	})
	logger := log.WithComponent("main")

	reg := registry.New()

	var store storage.Store
	if cfg.History.Enabled {
		bs, err := storage.NewBoltStore(cfg.History.DataDir)
		if err != nil {
			return fmt.Errorf("failed to open event store: %w", err)
		}
		defer bs.Close()
		store = bs

		pruner := cron.New()
		retention := cfg.History.Retention.Std()
		if _, err := pruner.AddFunc(cfg.History.PruneSchedule, func() {
			removed, err := bs.PruneBefore(time.Now().Add(-retention))
			if err != nil {
				logger.Error().Err(err).Msg("event history prune failed")
				return
			}
			logger.Info().Int("removed", removed).Msg("pruned event history")
		}); err != nil {
			return fmt.Errorf("invalid prune schedule %q: %w", cfg.History.PruneSchedule, err)
		}
		pruner.Start()
		defer pruner.Stop()
	}

	notifier := chat.New(cfg.Chat.WebhookURL, cfg.Chat.RatePerSec)
	normalizer := event.NewNormalizer(cfg.Gitlab.InternalHostPatterns, reg)
	processor := dispatch.NewProcessor(normalizer, dispatch.NewDispatcher(reg), notifier, store)
	server := api.NewServer(cfg, reg, processor, store)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info().
		Str("addr", cfg.Server.Addr()).
		Str("version", Version).
		Bool("token_check", cfg.Webhook.SecretToken != "").
		Bool("chat", notifier.Enabled()).
		Bool("history", store != nil).
		Msg("gitping relay started")
	if ip := localIP(); ip != "" {
		logger.Info().
			Str("webhook", fmt.Sprintf("http://%s:%d/webhook/gitlab", ip, cfg.Server.Port)).
			Str("events", fmt.Sprintf("http://%s:%d/events", ip, cfg.Server.Port)).
			Msg("reachable at")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown: %w", err)
	}

	logger.Info().Msg("shutdown complete")
	return nil
}

// localIP returns the first non-loopback IPv4 address of this host
func localIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, addr := range addrs {
		if ipNet, ok := addr.(*net.IPNet); ok && !ipNet.IP.IsLoopback() && ipNet.IP.To4() != nil {
			return ipNet.IP.String()
		}
	}
	return ""
}
