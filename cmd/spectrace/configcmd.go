package main

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/spectrace/config"
	"github.com/c360studio/spectrace/render"
)

func configCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage spectrace configuration",
	}
	cmd.AddCommand(configInitCmd())
	cmd.AddCommand(configShowCmd(configPath))
	return cmd
}

func configInitCmd() *cobra.Command {
	var (
		user  bool
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user {
				return config.NewLoader(slog.Default()).EnsureUserConfig()
			}

			path := config.ProjectConfigFile
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.DefaultConfig().SaveToFile(path); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&user, "user", false, "Create the user config (~/.config/spectrace/config.yaml) instead")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func configShowCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadEffectiveConfig(*configPath, nil)
			if err != nil {
				return err
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			fmt.Print(string(data))
			return nil
		},
	}
}

func formatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List report output formats",
		Run: func(cmd *cobra.Command, args []string) {
			names := make([]string, 0, len(render.FormatRegistry))
			for name := range render.FormatRegistry {
				names = append(names, string(name))
			}
			sort.Strings(names)

			for _, name := range names {
				info := render.FormatRegistry[render.Format(name)]
				fmt.Printf("%-10s %-18s %s\n", info.Name, info.MIMEType, info.Description)
			}
		},
	}
}
