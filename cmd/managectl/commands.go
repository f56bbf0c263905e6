package main

import (
	"fmt"

	"github.com/danmuck/managectl/internal/config"
	"github.com/danmuck/managectl/internal/manage"
	"github.com/spf13/cobra"
)

func (a *cli) commandsCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "commands",
		Short: "List supported manage.py subcommands and their parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeDocument(cmd.OutOrStdout(), output, manage.Catalog())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", formatYAML, "output format: json or yaml")
	return cmd
}

func (a *cli) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write or check agent configuration",
	}

	var (
		initPath string
		force    bool
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if initPath == "-" {
				data, err := config.Template()
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := config.WriteTemplate(initPath, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", initPath)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&initPath, "output", "o", "managectl.toml", "destination path, - for stdout")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	var checkPath string
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Load a config and report problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(checkPath)
			if err != nil {
				return err
			}
			if _, err := cfg.Registry(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d hosts, %d apps)\n", checkPath, len(cfg.Hosts), len(cfg.Apps))
			return nil
		},
	}
	validateCmd.Flags().StringVarP(&checkPath, "config", "c", "managectl.toml", "config file to check")

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}
