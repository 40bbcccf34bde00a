package graphrag

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

	"github.com/oakmoss/graphrag/pkg/httpapi"
)

var (
	serveHost string
	servePort int
	serveMode string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "start the HTTP API over a single working directory session",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "server host (overrides server.host)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (overrides server.port)")
	serveCmd.Flags().StringVar(&serveMode, "mode", "", "gin mode: debug, release, test (overrides server.mode)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if serveMode != "" {
		cfg.Server.Mode = serveMode
	}

	session, err := newSession(cfg)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	defer session.Close()

	srv := httpapi.New(session, cfg.Server.Mode)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("serve: %w", err)
	case <-sigChan:
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("serve: shutdown: %w", err)
		}
		return nil
	}
}
