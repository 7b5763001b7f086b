package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/piaaz/botfleet/internal/bot"
	"github.com/piaaz/botfleet/internal/config"
	"github.com/piaaz/botfleet/internal/llm"
	"github.com/piaaz/botfleet/internal/platform"
	"github.com/piaaz/botfleet/internal/server"
	"github.com/piaaz/botfleet/internal/tts"
	"github.com/piaaz/botfleet/internal/webhook"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the botfleet server",
	Long:  `Starts the botfleet HTTP server: the management API for the dashboard and the public webhook endpoints for Telegram and Meta.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		generator := llm.NewGenerator(llm.Options{
			Model:      cfg.OpenAI.Model,
			BaseURL:    cfg.OpenAI.BaseURL,
			Timeout:    time.Duration(cfg.OpenAI.TimeoutSeconds) * time.Second,
			Retries:    cfg.OpenAI.Retries,
			Backoff:    time.Duration(cfg.OpenAI.BackoffSeconds * float64(time.Second)),
			MaxHistory: cfg.OpenAI.MaxHistory,
			MaxUserLen: cfg.OpenAI.MaxUserLen,
		})

		voices := tts.NewClient(tts.Options{
			BaseURL:  cfg.Eleven.BaseURL,
			Timeout:  time.Duration(cfg.Eleven.TimeoutSeconds) * time.Second,
			Retries:  cfg.Eleven.Retries,
			Backoff:  time.Duration(cfg.Eleven.BackoffSeconds * float64(time.Second)),
			MaxChars: cfg.Eleven.MaxChars,
		})

		factory := platform.NewFactory(platform.Deps{
			Generator:        generator,
			TTS:              voices,
			PublicBase:       cfg.Server.PublicBase,
			GraphBaseURL:     cfg.Meta.GraphBaseURL,
			TelegramEndpoint: cfg.Telegram.APIEndpoint,
			SessionMax:       cfg.Session.MaxEntries,
		})

		registry := bot.NewRegistry(factory)
		router := webhook.NewRouter(registry, cfg.Routing.Unmatched)

		srv := server.New(cfg.Server)
		bot.RegisterRoutes(srv.API(), bot.NewHandler(registry))
		webhook.RegisterRoutes(srv.Public(), webhook.NewHandler(router, cfg.Meta.VerifyToken, cfg.Meta.AppSecret))

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		fmt.Fprintf(os.Stderr, "botfleet v%s starting on port %d\n", Version, cfg.Server.Port)
		if verbose {
			fmt.Fprintf(os.Stderr, "  Config file: %s\n", cfgFile)
			fmt.Fprintf(os.Stderr, "  Public base: %s\n", cfg.Server.PublicBase)
			fmt.Fprintf(os.Stderr, "  Chat model: %s\n", cfg.OpenAI.Model)
			fmt.Fprintf(os.Stderr, "  Unmatched routing policy: %s\n", cfg.Routing.Unmatched)
		}

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
