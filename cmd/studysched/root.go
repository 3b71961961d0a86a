package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/example/study-scheduler/internal/config"
	"github.com/example/study-scheduler/internal/shell"
)

type rootFlags struct {
	configPath string
	envFile    string
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "studysched",
		Short:         "Pairwise study session scheduler",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if flags.envFile == "" {
				return nil
			}
			if err := godotenv.Load(flags.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load %s: %w", flags.envFile, err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "optional YAML configuration file")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before configuration; missing files are ignored")

	root.AddCommand(newServeCommand(flags), newShellCommand(flags))
	return root
}

func newServeCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFile(flags.configPath)
			if err != nil {
				return err
			}
			logger := newLogger(cmd.OutOrStdout(), cfg)

			a, err := newApp(cmd.Context(), cfg, logger, appOptions{})
			if err != nil {
				logger.Error("failed to start", "error", err)
				return err
			}
			runErr := runServe(cmd.Context(), a)
			if err := a.Close(); err != nil {
				logger.Error("failed to persist state", "error", err)
				return errors.Join(runErr, err)
			}
			return runErr
		},
	}
}

func newShellCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run the interactive shell on stdin and stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFile(flags.configPath)
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg)

			a, err := newApp(cmd.Context(), cfg, logger, appOptions{})
			if err != nil {
				return err
			}
			sh := shell.New(shell.Services{
				Auth:     a.auth,
				Profiles: a.profiles,
				Sessions: a.sessions,
				Matches:  a.matches,
			}, cmd.InOrStdin(), cmd.OutOrStdout(), logger)

			runErr := sh.Run(cmd.Context())
			return errors.Join(runErr, a.Close())
		},
	}
}

func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel}))
}
