package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/spf13/cobra"

	"breathe/audio"
	"breathe/config"
	"breathe/doctor"
	"breathe/log"
	"breathe/rewards"
)

var version = "dev"

type globalFlags struct {
	logPath    string
	configPath string
	ledgerPath string
}

func main() {
	err := newRootCmd().Execute()
	log.Close()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var g globalFlags

	run := newRunCmd(&g)
	root := &cobra.Command{
		Use:           "breathe",
		Short:         "Calm-breathing balloon game driven by your microphone",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run.RunE,
	}
	root.Flags().AddFlagSet(run.Flags())
	root.PersistentFlags().StringVar(&g.logPath, "logpath", "", "log directory (default: OS-specific location, use ./ for current dir)")
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&g.ledgerPath, "ledger", "", "rewards database path (overrides config)")
	root.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		return setupLogging(g.logPath)
	}
	root.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		log.Close()
	}

	root.AddCommand(run)
	root.AddCommand(newReplayCmd(&g))
	root.AddCommand(newDevicesCmd())
	root.AddCommand(newPointsCmd(&g))
	root.AddCommand(newDoctorCmd(&g))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "breathe %s\n", version)
		},
	})
	return root
}

// setupLogging resolves the log directory, opens the diagnostics logs and
// routes Go runtime crashes into crash_log.txt.
func setupLogging(flagPath string) error {
	logPath, err := log.ResolveDir(flagPath)
	if err != nil {
		return fmt.Errorf("failed to resolve log directory: %w", err)
	}
	log.SetDir(logPath)

	if err := log.EnsureDir(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
		return nil
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if err := log.Init(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	return nil
}

func loadConfig(g *globalFlags) (config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if g.ledgerPath != "" {
		cfg.LedgerPath = g.ledgerPath
	}
	return cfg, nil
}

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List capture devices",
		RunE: func(cmd *cobra.Command, _ []string) error {
			actx, err := audio.NewContext()
			if err != nil {
				return fmt.Errorf("audio init: %w", err)
			}
			defer actx.Close()

			devices, err := actx.Devices()
			if err != nil {
				return err
			}
			if len(devices) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no capture devices")
				return nil
			}
			for _, d := range devices {
				bt := ""
				if audio.IsBluetooth(d.Name) {
					bt = "\t(bluetooth)"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", d.Name, bt)
			}
			return nil
		},
	}
}

func newPointsCmd(g *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "points",
		Short: "Show the points balance and recent rewards",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			ledger, err := rewards.Open(cfg.LedgerPath)
			if err != nil {
				return err
			}
			defer ledger.Close()

			ctx := context.Background()
			balance, err := ledger.Balance(ctx)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "balance: %d points\n", balance)

			history, err := ledger.History(ctx, limit)
			if err != nil {
				return err
			}
			for _, r := range history {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t+%d\t%.1fs calm\t%s\n",
					r.At.Format("2006-01-02 15:04"), r.Points, r.Calm.Seconds(), r.SessionID)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of recent rewards to show")
	return cmd
}

func newDoctorCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the microphone, breath detection and storage",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			code := doctor.Run(doctor.Options{
				Detector:   cfg.Session.Detector,
				Interval:   cfg.Session.Sampler.Interval,
				LogDir:     log.Dir(),
				LedgerPath: cfg.LedgerPath,
			})
			if code != 0 {
				return errors.New("doctor found failing checks")
			}
			return nil
		},
	}
}
