package app

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd はkeyholeのルートコマンドを生成する。
// サブコマンドなしで起動した場合はserveとして動作する。
func NewRootCmd(w io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "keyhole",
		Short:         "Keyhole - session based sign-in for server rendered apps",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := Init(w)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.SetOut(w)

	cmd.AddCommand(newServeCmd(w))
	cmd.AddCommand(newMigrateCmd(w))
	cmd.AddCommand(newSeedCmd(w))
	cmd.AddCommand(newHealthcheckCmd())

	return cmd
}

func newServeCmd(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := Init(w)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
}

func newMigrateCmd(w io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply all pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := Init(w)
			if err != nil {
				return err
			}
			return runMigrate(cfg)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back database migrations",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := Init(w)
			if err != nil {
				return err
			}
			return runRollback(cfg, steps)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back (0 rolls back all)")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the current migration version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := Init(w)
			if err != nil {
				return err
			}
			return printMigrationVersion(cmd.OutOrStdout(), cfg)
		},
	}

	cmd.AddCommand(down, version)
	return cmd
}

func newSeedCmd(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the initial user",
		Long: `Creates the initial user when the users table is empty.
This command is idempotent - it will not create duplicates if run multiple times.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := Init(w)
			if err != nil {
				return err
			}
			return runSeed(cmd.Context(), cfg)
		},
	}
}

// newHealthcheckCmd はヘルスチェックのサブコマンドを生成する。
// 軽量サブコマンドのため、フル初期化をスキップする。
func newHealthcheckCmd() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Check that the local server responds on /health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if url == "" {
				port := os.Getenv("SERVER_PORT")
				if port == "" {
					port = "8080"
				}
				url = "http://localhost:" + port
			}
			return runHealthcheck(cmd.Context(), url)
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "base URL of the server (default http://localhost:$SERVER_PORT)")
	return cmd
}
