package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/danmuck/scoreboard/internal/config"
	"github.com/danmuck/scoreboard/internal/logging"
	"github.com/danmuck/scoreboard/internal/scoreboard"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "scoreboard.toml"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "scoreboardctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "scoreboardctl",
		Short:         "Two-team scoreboard controller",
		Version:       scoreboard.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCommand())
	root.AddCommand(newSelfTestCommand())
	root.AddCommand(newConfigCommand())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "scoreboardctl %s\n", scoreboard.Version)
		},
	})
	return root
}

// resolveSettings loads path, or defaults when path is the implicit default
// and no such file exists.
func resolveSettings(path string, explicit bool) (settings, error) {
	if !explicit {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return settings{Service: scoreboard.DefaultServiceConfig()}, nil
		}
	}
	return loadSettings(path)
}

func newRunCommand() *cobra.Command {
	var (
		path string
		sim  bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scoreboard until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := resolveSettings(path, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			if sim {
				s.Service.Board.Driver = config.DriverSim
			}
			logging.ConfigureRuntime(s.LogFile)
			return scoreboard.NewServiceWithConfig(s.Service).Run()
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", defaultConfigPath, "service config file")
	cmd.Flags().BoolVar(&sim, "sim", false, "use the simulated board")
	return cmd
}

func newSelfTestCommand() *cobra.Command {
	var (
		path string
		step time.Duration
	)
	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Light every segment on every digit, then blank the display",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := resolveSettings(path, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			logging.ConfigureRuntime(s.LogFile)
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return scoreboard.NewServiceWithConfig(s.Service).SelfTest(ctx, step)
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", defaultConfigPath, "service config file")
	cmd.Flags().DurationVar(&step, "step", 300*time.Millisecond, "time each pattern is shown")
	return cmd
}

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write or check config files",
	}

	var (
		kind  string
		force bool
	)
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a config template",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := defaultTarget(kind)
			if len(args) == 1 {
				target = args[0]
			}
			if err := config.WriteTemplate(target, kind, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s config to %s\n", kind, target)
			return nil
		},
	}
	initCmd.Flags().StringVar(&kind, "kind", config.KindService, "config kind: service|board")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	var validateKind string
	validateCmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Load and validate a config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := defaultTarget(validateKind)
			if len(args) == 1 {
				target = args[0]
			}
			if err := validateFile(target, validateKind); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "validated %s config at %s\n", validateKind, target)
			return nil
		},
	}
	validateCmd.Flags().StringVar(&validateKind, "kind", config.KindService, "config kind: service|board")

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}

func defaultTarget(kind string) string {
	if strings.EqualFold(strings.TrimSpace(kind), config.KindBoard) {
		return "board.toml"
	}
	return defaultConfigPath
}

func validateFile(path, kind string) error {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case config.KindBoard:
		cfg, err := config.LoadBoardConfig(path)
		if err != nil {
			return err
		}
		return config.ValidateBoardConfig(cfg)
	case config.KindService:
		s, err := loadSettings(path)
		if err != nil {
			return err
		}
		return s.Service.Validate()
	default:
		return fmt.Errorf("unknown config kind: %s", kind)
	}
}
