package main

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"breathe/audio"
	"breathe/beep"
	"breathe/log"
	"breathe/rewards"
	"breathe/session"
	"breathe/shutdown"
)

type runFlags struct {
	device string
	setup  bool
}

func newRunCmd(g *globalFlags) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Play a live session with the microphone (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLive(cmd.Context(), g, f)
		},
	}
	cmd.Flags().StringVar(&f.device, "device", "", "use the named microphone")
	cmd.Flags().BoolVar(&f.setup, "setup", false, "pick the microphone interactively")
	return cmd
}

func resolveDevice(actx audio.Context, f runFlags) (*audio.DeviceInfo, error) {
	switch {
	case f.device != "":
		return audio.FindDevice(actx, f.device)
	case f.setup:
		dev, err := audio.SelectDevice(actx)
		if errors.Is(err, audio.ErrSelectionCancelled) {
			return nil, err
		}
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
			return nil, nil
		}
		return dev, nil
	}
	return nil, nil
}

func runLive(parent context.Context, g *globalFlags, f runFlags) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	if !cfg.Sounds {
		beep.Disable()
	}
	beep.Init()

	actx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		return fmt.Errorf("audio init: %w", err)
	}
	defer actx.Close()

	device, err := resolveDevice(actx, f)
	if err != nil {
		return err
	}

	ledger, err := rewards.Open(cfg.LedgerPath)
	if err != nil {
		return err
	}
	defer ledger.Close()

	var prog atomic.Pointer[tea.Program]
	sess, err := session.New(cfg.Session, session.Deps{
		Audio:   actx,
		Device:  device,
		Rewards: ledger,
		OnComplete: func(c session.Completion) {
			if p := prog.Load(); p != nil {
				p.Send(completedMsg(c))
			}
		},
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, stop := shutdown.NotifyContext(parent)
	defer stop()

	p := tea.NewProgram(newTUIModel(ctx, sess, deviceLabel(device)), tea.WithAltScreen(), tea.WithContext(ctx))
	prog.Store(p)

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) && !errors.Is(err, context.Canceled) {
		log.Errorf("TUI error: %v", err)
		return err
	}
	return nil
}

func deviceLabel(dev *audio.DeviceInfo) string {
	name := "system default"
	suffix := ""
	if dev != nil {
		name = dev.Name
		if audio.IsBluetooth(dev.Name) {
			suffix = " (BT!)"
		}
	}
	return "mic: " + name + suffix
}
