package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"crost/internal/config"
	"crost/internal/notifications"
	"crost/internal/services"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("check config path: %w", err)
				}
			}
			if err := config.CreateSample(target, overwrite); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set opensubtitles.api_key and the trakt credentials (or export OPENSUBTITLES_API_KEY, TRAKT_CLIENT_ID and TRAKT_ACCESS_TOKEN) before scrobbling.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and report missing credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			checks := []statusCheck{configFileCheck(ctx)}
			if err := cfg.EnsureDirectories(); err != nil {
				checks = append(checks, statusCheck{Label: "State dir", Kind: statusError, Message: err.Error()})
			} else {
				checks = append(checks, statusCheck{Label: "State dir", Kind: statusOK, Message: cfg.Paths.StateDir})
			}
			checks = append(checks, credentialCheck("OpenSubtitles", cfg.RequireOpenSubtitles()))
			checks = append(checks, traktCheck(cfg))
			if notifications.Enabled(notifications.NewService(cfg)) {
				checks = append(checks, statusCheck{Label: "Notifications", Kind: statusOK, Message: "ntfy topic configured"})
			} else {
				checks = append(checks, statusCheck{Label: "Notifications", Kind: statusInfo, Message: "disabled"})
			}

			out := cmd.OutOrStdout()
			for _, line := range renderChecks(checks, shouldColorize(out)) {
				fmt.Fprintln(out, line)
			}
			if worstKind(checks) == statusError {
				return services.Wrap(services.ErrConfiguration, "", "validate", "configuration is not usable", nil)
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func configFileCheck(ctx *commandContext) statusCheck {
	if !ctx.configExists {
		return statusCheck{Label: "Config file", Kind: statusWarn, Message: "not found, using defaults (" + ctx.configPath + ")"}
	}
	return statusCheck{Label: "Config file", Kind: statusOK, Message: ctx.configPath}
}

func credentialCheck(label string, err error) statusCheck {
	if err != nil {
		return statusCheck{Label: label, Kind: statusError, Message: err.Error()}
	}
	return statusCheck{Label: label, Kind: statusOK, Message: "credentials present"}
}

// traktCheck downgrades a missing access token to a warning since dry runs
// work without one.
func traktCheck(cfg *config.Config) statusCheck {
	if err := cfg.RequireTrakt(true); err != nil {
		return statusCheck{Label: "Trakt", Kind: statusError, Message: err.Error()}
	}
	if err := cfg.RequireTrakt(false); err != nil {
		return statusCheck{Label: "Trakt", Kind: statusWarn, Message: "no access token, only --dry-run will work"}
	}
	if cfg.Trakt.DryRun {
		return statusCheck{Label: "Trakt", Kind: statusOK, Message: "credentials present (dry_run enabled)"}
	}
	return statusCheck{Label: "Trakt", Kind: statusOK, Message: "credentials present"}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			data, err := cfg.Encode()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if ctx.configExists {
				fmt.Fprintf(out, "# %s\n", ctx.configPath)
			} else {
				fmt.Fprintln(out, "# defaults (no config file found)")
			}
			_, err = out.Write(data)
			return err
		},
	}
}
