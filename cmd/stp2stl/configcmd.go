package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"stp2stl/internal/config"
)

var (
	configForce bool
	configLocal bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the stp2stl configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented default configuration file",
	Long: `Create a configuration file listing every setting with its default value.
Without --local the file is placed in the per-user config directory.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")
	configInitCmd.Flags().BoolVar(&configLocal, "local", false, "Write ./"+config.LocalConfigName+" instead of the per-user file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	target := config.LocalConfigName
	if !configLocal {
		dir, err := config.StateDir()
		if err != nil {
			return err
		}
		target = filepath.Join(dir, "config.toml")
	}
	if err := config.WriteDefault(target, configForce); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", target)
	return nil
}
