// Package main is the kouho CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	app               = "kouho"
	defaultConfigPath = "/usr/local/etc/kouho/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// Actual version can be specified in build command.
var version = "dev"

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	debug      bool
	serverURL  string
	output     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           app,
		Short:         "kouho matches resumes against job descriptions by semantic similarity",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath, "config file path")
	root.PersistentFlags().BoolVarP(&opts.debug, "debug", "d", false, "enable debug logging")
	root.PersistentFlags().StringVar(&opts.serverURL, "server", defaultServerURL,
		`server URL (use --server "" to open the store directly when the server is not running)`)
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "text", "output format: text, compact, or json")

	root.AddCommand(
		newServerCmd(opts),
		newUploadCmd(opts),
		newRankCmd(opts),
		newExplainCmd(opts),
		newDeleteCmd(opts),
		newRebuildCmd(opts),
		newListCmd(opts),
		newStatusCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", app, version)
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
