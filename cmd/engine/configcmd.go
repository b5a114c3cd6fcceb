package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"techflow-engine/internal/config"
)

func configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or rewrite the engine config file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the config file and print warnings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, cfg, err := readConfigFile()
			if err != nil {
				return err
			}
			_, vr := config.NormalizeAndValidate(cfg)
			out := cmd.OutOrStdout()
			for _, w := range vr.Warnings {
				fmt.Fprintln(out, "warning:", w)
			}
			if !vr.OK() {
				return fmt.Errorf("invalid config %s: %w", path, vr)
			}
			fmt.Fprintln(out, "ok:", path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "normalize",
		Short: "Rewrite the config file in normalized form, keeping a .bak copy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, cfg, err := readConfigFile()
			if err != nil {
				return err
			}
			// env overrides stay out of the file
			if err := config.SaveAtomic(path, cfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "rewrote", path)
			return nil
		},
	})
	return cmd
}

// readConfigFile loads the config file as written, without environment
// overrides.
func readConfigFile() (string, config.Config, error) {
	path := flags.cfgFile
	if path == "" {
		dataDir, err := resolveDataDir()
		if err != nil {
			return "", config.Config{}, err
		}
		if path, err = config.EnsureUserConfig(dataDir); err != nil {
			return "", config.Config{}, err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return "", config.Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	return path, cfg, nil
}
