package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/kouho/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}
	cmd.AddCommand(newConfigInitCmd(opts), newConfigShowCmd(opts))
	return cmd
}

func newConfigInitCmd(opts *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with every default filled in to --config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := opts.configPath
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return fmt.Errorf("create config dir: %w", err)
			}
			if err := config.Save(path, config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newConfigShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective config as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, resolved, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			if resolved == "" {
				resolved = "built-in defaults"
			}
			if cfg.Embedding.APIKey != "" {
				cfg.Embedding.APIKey = "********"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", resolved)
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
