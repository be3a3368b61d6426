package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/HimanshuPBohra/chatbotfrontend/internal/config"
	"github.com/HimanshuPBohra/chatbotfrontend/internal/conversation"
	"github.com/HimanshuPBohra/chatbotfrontend/internal/logging"
	"github.com/HimanshuPBohra/chatbotfrontend/internal/prompts"
	"github.com/HimanshuPBohra/chatbotfrontend/internal/render"
	"github.com/HimanshuPBohra/chatbotfrontend/internal/server"
	"github.com/HimanshuPBohra/chatbotfrontend/internal/tui"
)

func main() {
	cobra.CheckErr(newRootCommand().Execute())
}

func newRootCommand() *cobra.Command {
	var (
		port       string
		backendURL string
		logLevel   string
	)
	var cfg config.Config
	root := &cobra.Command{
		Use:          "hrms-assistant",
		Short:        "UKNOWVA HRMS leave assistant",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg = config.Load()
			if port != "" {
				cfg.Port = port
			}
			if backendURL != "" {
				cfg.BackendURL = backendURL
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
		},
	}
	root.PersistentFlags().StringVar(&backendURL, "backend-url", "", "HRMS backend base URL (overrides HRMS_BACKEND_URL)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat widget API",
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogConsole)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := server.NewServer(ctx, cfg)
			if err != nil {
				return errors.Wrap(err, "create server")
			}
			defer s.Close()
			return s.Run(ctx, ":"+cfg.Port)
		},
	}
	serve.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")

	chat := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			logFile, err := openChatLog()
			if err != nil {
				return err
			}
			defer logFile.Close()
			logging.Setup(logFile, cfg.LogLevel, true)
			return runChat(cmd.Context(), cfg)
		},
	}

	root.AddCommand(serve, chat)
	return root
}

func runChat(ctx context.Context, cfg config.Config) error {
	catalog, err := prompts.Load(cfg.PromptsFile)
	if err != nil {
		return err
	}
	client, err := server.NewHRMSClient(ctx, cfg)
	if err != nil {
		return err
	}
	ctl, err := conversation.New(client,
		conversation.WithCatalog(catalog),
		conversation.WithUserID(cfg.UserID),
		conversation.WithCallTimeout(cfg.HRMSTimeout),
		conversation.WithLogger(log.Logger),
	)
	if err != nil {
		return err
	}
	return tui.Run(ctx, ctl, render.New(catalog))
}

// openChatLog keeps log lines out of the alternate screen.
func openChatLog() (io.WriteCloser, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	dir = filepath.Join(dir, "hrms-assistant")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "create log dir")
	}
	f, err := os.OpenFile(filepath.Join(dir, "chat.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, errors.Wrap(err, "open chat log")
	}
	return f, nil
}
