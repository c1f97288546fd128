package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog     zerolog.Logger
	diagFile    *os.File
	sessionFile *os.File
	logMu       sync.Mutex
	logReady    bool
	pid         int
	dir         string
)

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: --logpath flag
	if flagPath != "" {
		return absolute(flagPath)
	}

	// Priority 2: BREATHE_LOG_PATH environment variable
	if envPath := os.Getenv("BREATHE_LOG_PATH"); envPath != "" {
		return absolute(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	sessionPath := filepath.Join(dir, "sessions_log.txt")
	sessionFile, err = os.OpenFile(sessionPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if sessionFile != nil {
		sessionFile.Close()
		sessionFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func SessionStart(id, device string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("session", id).
		Str("device", device).
		Msg("session_start")
}

// SessionEnd records the diagnostics event and appends the one-line summary
// to sessions_log.txt.
func SessionEnd(id string, calm time.Duration, completed bool, skipped int64) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("session", id).
		Float64("calm_s", calm.Seconds()).
		Bool("completed", completed).
		Int64("skipped_ticks", skipped).
		Msg("session_end")

	outcome := "stopped"
	if completed {
		outcome = "complete"
	}
	logMu.Lock()
	defer logMu.Unlock()
	if sessionFile == nil {
		return
	}
	line := fmt.Sprintf("%s\t[%d]\t%s\t%s\t%.1fs\n",
		time.Now().Format("2006-01-02 15:04:05"), pid, id, outcome, calm.Seconds())
	sessionFile.WriteString(line)
}

func Completion(id string, points int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("session", id).
		Int("points", points).
		Msg("session_complete")
}

// Classifier logs a verdict. A non-nil err marks a classifier failure, which
// never changes the session outcome.
func Classifier(id string, score float64, err error) {
	if !logReady {
		return
	}
	if err != nil {
		diagLog.Warn().
			Str("session", id).
			Err(err).
			Msg("classifier_failure")
		return
	}
	diagLog.Info().
		Str("session", id).
		Float64("score", score).
		Msg("classifier_verdict")
}
