package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pairpad/pairpad/internal/api"
	"github.com/pairpad/pairpad/internal/metrics"
	"github.com/pairpad/pairpad/internal/storage"
	"github.com/pairpad/pairpad/pkg/config"
)

var (
	configFile string
	httpAddr   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "pairpad-server",
	Short: "PairPad Server - collaborative code editing backend",
	Long: `PairPad Server hosts shared projects: accounts, file storage,
presence tracking, change feeds and a live preview gateway.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pairpad-server %s\n", config.Version)
		fmt.Printf("  commit: %s\n", config.Commit)
		fmt.Printf("  built:  %s\n", config.BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	var cfg *Config

	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}

	// Override with CLI flags
	if httpAddr != "" {
		cfg.Server.HTTPAddress = httpAddr
	}
	cfg.Verbose = verbose

	// Token signing secret comes from the environment, never from config
	jwtSecret := os.Getenv("PAIRPAD_JWT_SECRET")
	if jwtSecret == "" {
		return fmt.Errorf("PAIRPAD_JWT_SECRET environment variable is required")
	}

	// Auto-create data directory
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	store := storage.NewSQLiteStorage(cfg.Database.Path)
	if err := store.Open(); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	log.Printf("database initialized at %s", cfg.Database.Path)

	srv, err := api.New(&api.Config{
		Address:           cfg.Server.HTTPAddress,
		JWTSecret:         []byte(jwtSecret),
		AccessTokenTTL:    cfg.Server.AccessTokenTTL,
		LoginRatePerMin:   cfg.Server.LoginRatePerMin,
		LivenessWindow:    cfg.Presence.LivenessWindow,
		StreamMaxDuration: cfg.Server.StreamMaxLife,
		ReapInterval:      cfg.Presence.ReapInterval,
		Verbose:           cfg.Verbose,
	}, store)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	metricsSrv := metrics.NewServer(cfg.Server.MetricsAddress)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	log.Printf("starting pairpad-server %s", config.Version)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gCtx)
	})
	g.Go(func() error {
		return metricsSrv.Start()
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run server: %w", err)
	}

	log.Printf("server stopped")
	return nil
}
