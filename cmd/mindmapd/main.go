package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/mindmapforge/cdn"
	"github.com/hrygo/mindmapforge/core/concept"
	"github.com/hrygo/mindmapforge/core/embedvec"
	"github.com/hrygo/mindmapforge/core/pipeline"
	"github.com/hrygo/mindmapforge/embedclient"
	"github.com/hrygo/mindmapforge/internal/profile"
	"github.com/hrygo/mindmapforge/internal/version"
	"github.com/hrygo/mindmapforge/llmclient"
	"github.com/hrygo/mindmapforge/metrics"
	"github.com/hrygo/mindmapforge/scrape"
	"github.com/hrygo/mindmapforge/server"
	"github.com/hrygo/mindmapforge/store"
	"github.com/hrygo/mindmapforge/store/db"
)

const shutdownTimeout = 10 * time.Second

var rootCmd = &cobra.Command{
	Use:   "mindmapd",
	Short: `Turns raw text into a force-directed 3-D concept mind map, served over a small HTTP API.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if !isRunningAsSystemdService() {
			_ = godotenv.Load()
		}
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{
			Mode:   viper.GetString("mode"),
			Addr:   viper.GetString("addr"),
			Port:   viper.GetInt("port"),
			Data:   viper.GetString("data"),
			Driver: viper.GetString("driver"),
			DSN:    viper.GetString("dsn"),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			slog.Error("failed to validate profile", "error", err)
			os.Exit(1)
		}

		if !instanceProfile.IsAIEnabled() {
			slog.Error("no LLM API key configured, set MINDMAP_LLM_API_KEY")
			os.Exit(1)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		driver, err := db.NewDriver(ctx, instanceProfile)
		if err != nil {
			printDatabaseError(err, instanceProfile)
			slog.Error("failed to create db driver", "error", err)
			os.Exit(1)
		}
		storeInstance := store.New(driver)
		defer storeInstance.Close()

		llmSvc, err := llmclient.NewService(llmclient.Config{
			Provider: instanceProfile.LLMProvider,
			Model:    instanceProfile.LLMModel,
			APIKey:   instanceProfile.LLMAPIKey,
			BaseURL:  instanceProfile.LLMBaseURL,
			Timeout:  instanceProfile.LLMTimeout,
		})
		if err != nil {
			slog.Error("failed to create llm client", "error", err)
			os.Exit(1)
		}

		embedSvc, err := embedclient.NewService(embedclient.Config{
			Provider: instanceProfile.EmbeddingProvider,
			Model:    instanceProfile.EmbeddingModel,
			APIKey:   instanceProfile.EmbeddingAPIKey,
			BaseURL:  instanceProfile.EmbeddingBaseURL,
		})
		if err != nil {
			slog.Error("failed to create embedding client", "error", err)
			os.Exit(1)
		}

		exporter := metrics.NewPrometheusExporter(metrics.DefaultConfig())

		p := pipeline.New(
			concept.NewExtractor(llmSvc),
			embedvec.NewGenerator(embedSvc),
			storeInstance,
		).WithMetrics(exporter, instanceProfile.LLMProvider, instanceProfile.EmbeddingProvider)

		var scraper *scrape.Scraper
		if viper.GetBool("enable-scrape") {
			scraper = scrape.New()
		}

		if instanceProfile.IsCDNEnabled() {
			if _, ok := cdn.New(cdn.Config{
				Token: instanceProfile.GitHubToken,
				Owner: instanceProfile.GitHubOwner,
				Repo:  instanceProfile.GitHubRepo,
			}); ok {
				slog.Info("cdn: github credentials configured; no pipeline stage uploads texts", "owner", instanceProfile.GitHubOwner)
			}
		}

		srv := server.New(p, storeInstance, scraper)
		e := srv.NewEcho(exporter.Handler())

		addr := fmt.Sprintf("%s:%d", instanceProfile.Addr, instanceProfile.Port)

		go func() {
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("server stopped unexpectedly", "error", err)
				cancel()
			}
		}()

		printGreetings(instanceProfile, addr)

		c := make(chan os.Signal, 1)
		signal.Notify(c, terminationSignals...)

		select {
		case <-c:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			slog.Error("graceful shutdown failed", "error", err)
		}
	},
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 8585)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8585, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver (postgres, sqlite)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")
	rootCmd.PersistentFlags().Bool("enable-scrape", true, "allow vectorize requests to fetch a source URL")

	for _, name := range []string{"mode", "addr", "port", "data", "driver", "dsn", "enable-scrape"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("mindmap")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func printGreetings(p *profile.Profile, addr string) {
	fmt.Printf("mindmapd %s started successfully!\n", version.GetCurrentVersion(p.Mode))
	fmt.Printf("Mode: %s\n", p.Mode)
	fmt.Printf("Database driver: %s\n", p.Driver)
	fmt.Printf("Listening on http://%s\n", addr)
	fmt.Println("\nEndpoints:")
	fmt.Println("  POST /api/vectorize")
	fmt.Println("  GET  /api/texts-by-concept")
	fmt.Println("  POST /api/scenes")
	fmt.Println("  GET  /api/scenes/:id")
	fmt.Println("  GET  /metrics")
}

// isRunningAsSystemdService detects if the process is running under systemd.
func isRunningAsSystemdService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("WATCHDOG_USEC") != ""
}

func printDatabaseError(err error, p *profile.Profile) {
	fmt.Fprintln(os.Stderr, "\nDatabase connection failed")
	errMsg := err.Error()
	switch {
	case strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no such host"):
		fmt.Fprintln(os.Stderr, "PostgreSQL is not reachable.")
		if p.Driver == "postgres" {
			fmt.Fprintln(os.Stderr, "  Start it, or switch to sqlite: MINDMAP_DB_DRIVER=sqlite")
		}
	case strings.Contains(errMsg, "sslmode"):
		fmt.Fprintln(os.Stderr, "Add ?sslmode=disable to your DSN for local development.")
	default:
		fmt.Fprintln(os.Stderr, errMsg)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
