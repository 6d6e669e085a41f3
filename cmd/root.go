// Package cmd implements the article-ingestor command-line interface.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonesrussell/north-cloud/article-ingestor/cmd/common"
	"github.com/jonesrussell/north-cloud/article-ingestor/cmd/httpd"
	"github.com/jonesrussell/north-cloud/article-ingestor/cmd/ingest"
	"github.com/jonesrussell/north-cloud/article-ingestor/cmd/migrate"
	"github.com/jonesrussell/north-cloud/article-ingestor/internal/config"
)

// Version is set at build time.
var Version = "dev"

const (
	keyConfig = "config"
	keyDebug  = "debug"
)

// NewRootCommand builds the command tree. v receives the bound flags and environment.
func NewRootCommand(v *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:           "article-ingestor",
		Short:         "Ingest news articles and serve them over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindFlags(v, cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().String(keyConfig, "", "config file (default $CONFIG_PATH or ./"+config.DefaultPath+")")
	root.PersistentFlags().Bool(keyDebug, false, "enable debug logging")

	options := func() common.Options {
		return common.Options{
			ConfigPath: v.GetString(keyConfig),
			Debug:      v.GetBool(keyDebug),
		}
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "article-ingestor %s\n", Version)
		},
	})
	root.AddCommand(ingest.Command(options))
	root.AddCommand(httpd.Command(options))
	root.AddCommand(migrate.Command(options))

	return root
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if err := v.BindPFlag(keyConfig, cmd.Root().PersistentFlags().Lookup(keyConfig)); err != nil {
		return fmt.Errorf("bind config flag: %w", err)
	}
	if err := v.BindPFlag(keyDebug, cmd.Root().PersistentFlags().Lookup(keyDebug)); err != nil {
		return fmt.Errorf("bind debug flag: %w", err)
	}
	if err := v.BindEnv(keyConfig, "CONFIG_PATH"); err != nil {
		return fmt.Errorf("bind CONFIG_PATH: %w", err)
	}
	if err := v.BindEnv(keyDebug, "APP_DEBUG"); err != nil {
		return fmt.Errorf("bind APP_DEBUG: %w", err)
	}
	return nil
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCommand(viper.New()).ExecuteContext(ctx)
}
