package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ocrforge/pdfsandwich/internal/config"
	"github.com/ocrforge/pdfsandwich/internal/userconfig"
)

var configInitCmd = &cobra.Command{
	Use:   "config-init [path]",
	Short: "Write a starter config file",
	Long: `Writes a YAML config file populated with the built-in defaults.
With no path argument, it writes to the user config directory
(~/.config/pdfsandwich/pdfsandwich.yaml).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else {
			dir, err := userconfig.New("")
			if err != nil {
				return err
			}
			if err := dir.EnsureExists(); err != nil {
				return err
			}
			path = dir.ConfigPath()
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configInitCmd)
}
