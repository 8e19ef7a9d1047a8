package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kb_rag/internal/app"
	"kb_rag/internal/config"
	"kb_rag/internal/logger"
)

type rootFlags struct {
	envFile string
	kbDir   string
	dataDir string
}

func main() {
	// Контекст с сигналами завершения
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:           "kb_rag",
		Short:         "Question answering over a markdown knowledge base",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "optional .env file")
	rootCmd.PersistentFlags().StringVar(&flags.kbDir, "kb", "", "knowledge base directory (overrides KB_DIR)")
	rootCmd.PersistentFlags().StringVar(&flags.dataDir, "data", "", "data directory (overrides DATA_DIR)")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "ingest",
			Short: "Rebuild the vector index from the knowledge base",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd, flags, true, func(ctx context.Context, a *app.App) error {
					m, err := a.Ingest(ctx)
					if err != nil {
						return err
					}
					cmd.Printf("Indexed %d chunks from %d documents\n", m.Chunks, m.Documents)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "ask [question]",
			Short: "Answer one question",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, flags, true, func(ctx context.Context, a *app.App) error {
					return a.AskAndPrint(ctx, strings.Join(args, " "))
				})
			},
		},
		&cobra.Command{
			Use:   "chat",
			Short: "Interactive question loop over stdin",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd, flags, true, func(ctx context.Context, a *app.App) error {
					return a.Run(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the last ingestion and the index size",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd, flags, false, func(ctx context.Context, a *app.App) error {
					return a.PrintStatus(ctx)
				})
			},
		},
	)
	return rootCmd
}

// withApp загружает конфиг, создаёт логгер и приложение, запускает fn
func withApp(cmd *cobra.Command, flags *rootFlags, bootstrap bool, fn func(context.Context, *app.App) error) error {
	ctx := cmd.Context()

	// Загружаем .env (опционально)
	if err := godotenv.Load(flags.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", flags.envFile, err)
	}
	if flags.kbDir != "" {
		_ = os.Setenv("KB_DIR", flags.kbDir)
	}
	if flags.dataDir != "" {
		_ = os.Setenv("DATA_DIR", flags.dataDir)
	}

	cfg := config.Config{}
	if err := config.Init(&cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Debug("config loaded",
		zap.String("kb_dir", cfg.KnowledgeDir),
		zap.String("data_dir", cfg.DataDir),
		zap.String("index_backend", cfg.Index.Backend))

	a, err := app.New(ctx, &cfg, log, app.WithIO(cmd.InOrStdin(), cmd.OutOrStdout()))
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if bootstrap {
		// Проверка Ollama и моделей
		if err := a.Init(ctx); err != nil {
			return err
		}
	}
	return fn(ctx, a)
}
