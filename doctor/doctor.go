package doctor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"breathe/audio"
	"breathe/breath"
	"breathe/rewards"
	"breathe/sampler"
)

type Options struct {
	Detector   breath.Config
	Interval   time.Duration // sampler poll interval
	Listen     time.Duration // how long to listen for a breath
	LogDir     string
	LedgerPath string
}

// Run executes interactive diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run(opts Options) int {
	resetTerminal()
	setupInterruptHandler()

	actx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: cannot connect to audio: %v\n", err)
		return 1
	}
	defer actx.Close()

	return run(context.Background(), actx, opts, os.Stdin, os.Stdout)
}

func run(ctx context.Context, actx audio.Context, opts Options, in io.Reader, out io.Writer) int {
	if opts.Listen <= 0 {
		opts.Listen = 3 * time.Second
	}
	if opts.Interval <= 0 {
		opts.Interval = sampler.DefaultConfig().Interval
	}

	fmt.Fprintln(out, "breathe doctor - interactive system diagnostics")
	fmt.Fprintln(out, "===============================================")

	reader := bufio.NewReader(in)
	allPass := true

	device, ok := checkMicrophone(ctx, actx, reader, out)
	if !ok {
		allPass = false
	}
	if allPass && !checkBreath(ctx, actx, device, opts, reader, out) {
		allPass = false
	}
	if !checkStorage(opts, out) {
		allPass = false
	}

	fmt.Fprintln(out)
	if allPass {
		fmt.Fprintln(out, "All checks passed!")
		return 0
	}
	fmt.Fprintln(out, "Some checks failed. See details above.")
	return 1
}

func checkMicrophone(ctx context.Context, actx audio.Context, reader *bufio.Reader, out io.Writer) (*audio.DeviceInfo, bool) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "[1/3] Microphone")

	devices, err := actx.Devices()
	if err != nil {
		fmt.Fprintf(out, "  FAIL: cannot list devices: %v\n", err)
		return nil, false
	}
	if len(devices) == 0 {
		fmt.Fprintln(out, "  FAIL: no capture devices found")
		return nil, false
	}

	var device *audio.DeviceInfo
	if len(devices) == 1 {
		device = &devices[0]
		fmt.Fprintf(out, "Using device: %s\n", device.Name)
	} else {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Select input device:")
		for i, d := range devices {
			fmt.Fprintf(out, "  %d. %s\n", i+1, d.Name)
		}
		fmt.Fprintf(out, "Choice [1-%d]: ", len(devices))

		devChoice, _ := reader.ReadString('\n')
		devChoice = strings.TrimSpace(devChoice)
		idx := 0
		if devChoice != "" {
			fmt.Sscanf(devChoice, "%d", &idx)
			idx--
		}
		if idx < 0 || idx >= len(devices) {
			fmt.Fprintln(out, "  FAIL: invalid choice")
			return nil, false
		}
		device = &devices[idx]
		fmt.Fprintf(out, "Selected: %s\n", device.Name)
	}
	if audio.IsBluetooth(device.Name) {
		fmt.Fprintln(out, "  Warning: bluetooth headsets often switch to a low quality profile while recording")
	}

	if err := actx.RequestPermission(ctx); err != nil {
		fmt.Fprintf(out, "  FAIL: %v\n", err)
		return nil, false
	}
	fmt.Fprintln(out, "  PASS: microphone available")
	return device, true
}

func checkBreath(ctx context.Context, actx audio.Context, device *audio.DeviceInfo, opts Options, reader *bufio.Reader, out io.Writer) bool {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "[2/3] Breath detection")
	fmt.Fprintf(out, "Press Enter, then blow gently at the microphone for %.0f seconds...", opts.Listen.Seconds())
	reader.ReadString('\n')

	var (
		mu        sync.Mutex
		det       = breath.NewDetector(opts.Detector)
		samples   int
		breaths   int
		peakDB    = math.Inf(-1)
		peakForce float64
	)
	smp := sampler.New(actx, device, sampler.Config{Interval: opts.Interval}, func(db float64) {
		mu.Lock()
		defer mu.Unlock()
		samples++
		peakDB = math.Max(peakDB, db)
		if f, ok := det.Process(db); ok {
			peakForce = math.Max(peakForce, f.Strength)
			if f.Breathing {
				breaths++
			}
		}
	})
	if err := smp.Start(ctx); err != nil {
		fmt.Fprintf(out, "\n  FAIL: capture error: %v\n", err)
		return false
	}

	fmt.Fprint(out, "  Listening")
	deadline := time.After(opts.Listen)
	dots := time.NewTicker(500 * time.Millisecond)
listen:
	for {
		select {
		case <-deadline:
			break listen
		case <-ctx.Done():
			break listen
		case <-dots.C:
			fmt.Fprint(out, ".")
		}
	}
	dots.Stop()
	smp.Stop()
	fmt.Fprintln(out, " done")

	mu.Lock()
	defer mu.Unlock()
	if samples == 0 {
		fmt.Fprintln(out, "  FAIL: no audio levels captured")
		return false
	}
	fmt.Fprintf(out, "  %d readings, peak level %.1f dB, peak strength %.0f\n", samples, peakDB, peakForce)
	if peakDB <= audio.MeterFloorDB {
		fmt.Fprintln(out, "  FAIL: microphone is silent (muted or wrong device?)")
		return false
	}
	if breaths == 0 {
		fmt.Fprintln(out, "  FAIL: no breath detected, try blowing closer to the microphone")
		return false
	}
	fmt.Fprintf(out, "  PASS: %d breathing readings\n", breaths)
	return true
}

func checkStorage(opts Options, out io.Writer) bool {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "[3/3] Storage")

	pass := true
	if opts.LogDir != "" {
		if err := os.MkdirAll(opts.LogDir, 0o755); err != nil {
			fmt.Fprintf(out, "  FAIL: log dir %s: %v\n", opts.LogDir, err)
			pass = false
		} else if f, err := os.CreateTemp(opts.LogDir, ".doctor-*"); err != nil {
			fmt.Fprintf(out, "  FAIL: log dir %s not writable: %v\n", opts.LogDir, err)
			pass = false
		} else {
			f.Close()
			os.Remove(f.Name())
			fmt.Fprintf(out, "  PASS: logs in %s\n", opts.LogDir)
		}
	}

	if opts.LedgerPath != "" {
		ledger, err := rewards.Open(opts.LedgerPath)
		if err != nil {
			fmt.Fprintf(out, "  FAIL: rewards ledger: %v\n", err)
			return false
		}
		defer ledger.Close()
		balance, err := ledger.Balance(context.Background())
		if err != nil {
			fmt.Fprintf(out, "  FAIL: rewards ledger: %v\n", err)
			return false
		}
		fmt.Fprintf(out, "  PASS: rewards ledger %s (%d points)\n", filepath.Clean(opts.LedgerPath), balance)
	}
	return pass
}
