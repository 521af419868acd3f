package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mljr/facematch/pkg/logging"
	"github.com/mljr/facematch/pkg/models"
	"github.com/mljr/facematch/pkg/recognition"
	"github.com/mljr/facematch/pkg/storage"
	"github.com/mljr/facematch/pkg/web"
	"github.com/mljr/facematch/pkg/web/handlers"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web demo server",
	Long: `Start the facematch web server. The browser page uploads a reference
photo, captures a webcam frame and shows the similarity between the
two faces.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "port to listen on (overrides config)")
	serveCmd.Flags().String("host", "", "host to bind to (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Server.Host = host
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	history, err := storage.NewHistoryStore(cfg.HistoryPath(), cfg.Storage.HistoryLimit,
		cfg.Storage.EncryptionEnabled)
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}

	recognizer := recognition.NewRecognizer(cfg.Recognition.Threshold)
	defer func() { _ = recognizer.Close() }()

	tracker := handlers.NewStatusTracker()
	server := web.NewServer(cfg, recognizer, tracker, history)

	// Model loading happens in the background so the page can show a
	// loading indicator. A failure leaves the API up but not ready.
	go loadModels(recognizer, tracker)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logging.Infof("Received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

func loadModels(recognizer *recognition.Recognizer, tracker *handlers.StatusTracker) {
	if err := models.Verify(cfg.Recognition.ModelPath); err != nil {
		logging.WithError(err).Error("Model files missing")
		tracker.SetFailed(err)
		return
	}

	if err := recognizer.LoadModels(cfg.Recognition.ModelPath); err != nil {
		logging.WithError(err).Error("Model loading failed")
		tracker.SetFailed(err)
		return
	}

	tracker.SetReady()
}
