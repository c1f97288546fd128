package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"breathe/audio"
	"breathe/beep"
	"breathe/log"
	"breathe/rewards"
	"breathe/session"
)

// replayTail keeps the session running after the audio ends so the last
// breath can decay before the outcome is judged.
const replayTail = 500 * time.Millisecond

func newReplayCmd(g *globalFlags) *cobra.Command {
	var every time.Duration
	cmd := &cobra.Command{
		Use:   "replay <file.wav>",
		Short: "Run a session against a recorded 16kHz mono WAV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			fake, err := audio.NewFakeContext(args[0], true)
			if err != nil {
				return fmt.Errorf("loading WAV: %w", err)
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			return runReplay(ctx, cfg.Session, fake, every, cmd.OutOrStdout())
		},
	}
	cmd.Flags().DurationVar(&every, "every", 250*time.Millisecond, "interval between progress lines")
	return cmd
}

// runReplay drives a session from fake until the goal completes or the audio
// runs out, printing the pipeline state as it goes.
func runReplay(ctx context.Context, cfg session.Config, fake *audio.FakeContext, every time.Duration, out io.Writer) error {
	beep.Disable()

	if every <= 0 {
		every = 250 * time.Millisecond
	}

	done := make(chan session.Completion, 1)
	sess, err := session.New(cfg, session.Deps{
		Audio:   fake,
		Rewards: rewards.Discard,
		OnComplete: func(c session.Completion) {
			select {
			case done <- c:
			default:
			}
		},
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.Start(ctx); err != nil {
		return err
	}
	began := time.Now()

	deadline := time.NewTimer(fake.Duration() + replayTail)
	defer deadline.Stop()
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sess.Stop()
			return ctx.Err()
		case c := <-done:
			printSnapshot(out, time.Since(began), sess.Snapshot())
			_, _ = fmt.Fprintf(out, "complete: %.1fs calm, %d points\n", c.Calm.Seconds(), c.Points)
			return nil
		case <-deadline.C:
			snap := sess.Snapshot()
			sess.Stop()
			printSnapshot(out, time.Since(began), snap)
			_, _ = fmt.Fprintf(out, "stopped: end of audio after %.1fs calm of %.0fs\n",
				snap.Calm.Seconds(), snap.Goal.Seconds())
			log.Info("replay ended before goal")
			return nil
		case <-ticker.C:
			printSnapshot(out, time.Since(began), sess.Snapshot())
		}
	}
}

func printSnapshot(out io.Writer, at time.Duration, s session.Snapshot) {
	_, _ = fmt.Fprintf(out, "t=%5.2fs strength=%5.1f breathing=%-5t band=%-10s scale=%.3f calm=%.2fs %s\n",
		at.Seconds(), s.Frame.Strength, s.Frame.Breathing, s.Band, s.Scale, s.Calm.Seconds(), s.Feedback)
}
