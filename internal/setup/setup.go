// Package setup performs first-run installation of the tracefmt settings
// file in the background.
package setup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/bjaus/tracefmt"
	"go.uber.org/zap"
)

// ErrGaveUp is returned when every attempt allowed by the backoff failed.
var ErrGaveUp = errors.New("setup: gave up")

// Backoff is an exponential retry schedule.
type Backoff struct {
	Initial  time.Duration
	Max      time.Duration
	Factor   float64
	Attempts int // 0 means unlimited
}

// DefaultBackoff starts at 100ms, doubles up to 1s, and allows 10 attempts.
func DefaultBackoff() Backoff {
	return Backoff{Initial: 100 * time.Millisecond, Max: time.Second, Factor: 2, Attempts: 10}
}

// Delay returns the wait before attempt n+1, given n failed attempts.
func (b Backoff) Delay(n int) time.Duration {
	d := float64(b.Initial)
	for i := 1; i < n; i++ {
		d *= b.Factor
		if b.Max > 0 && d >= float64(b.Max) {
			return b.Max
		}
	}
	if b.Max > 0 && time.Duration(d) > b.Max {
		return b.Max
	}
	return time.Duration(d)
}

// AttemptFunc tries to complete installation on s. It reports whether the
// install is done; errors are logged and retried.
type AttemptFunc func(ctx context.Context, s *tracefmt.Settings) (bool, error)

// Installer writes default settings on first run.
type Installer struct {
	Path    string
	Attempt AttemptFunc // nil means InstallDefaultTheme
	Backoff Backoff
	Logger  *zap.Logger
}

// InstallDefaultTheme fills in every theme colour missing from s.
func InstallDefaultTheme(_ context.Context, s *tracefmt.Settings) (bool, error) {
	theme := tracefmt.DefaultTheme()
	if s.Theme.Colors == nil {
		s.Theme.Colors = make(map[string]string, len(theme.Colors))
	}
	if s.Theme.Name == "" {
		s.Theme.Name = theme.Name
	}
	for tt, c := range theme.Colors {
		if _, ok := s.Theme.Colors[tt.String()]; !ok {
			s.Theme.Colors[tt.String()] = c
		}
	}
	return true, nil
}

// Run installs the settings file unless it exists with first_install
// unset. It blocks until installation succeeds, ctx is done, or the
// backoff runs out of attempts.
func (in *Installer) Run(ctx context.Context) error {
	log := in.Logger
	if log == nil {
		log = zap.NewNop()
	}
	attempt := in.Attempt
	if attempt == nil {
		attempt = InstallDefaultTheme
	}
	backoff := in.Backoff
	if backoff.Initial <= 0 {
		backoff = DefaultBackoff()
	}

	s, err := tracefmt.LoadSettings(in.Path)
	switch {
	case err == nil && !s.FirstInstall:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		s = tracefmt.DefaultSettings()
	case err != nil:
		log.Warn("unreadable settings, reinstalling defaults", zap.String("path", in.Path), zap.Error(err))
		s = tracefmt.DefaultSettings()
	}

	for n := 1; ; n++ {
		done, err := attempt(ctx, &s)
		if err == nil && done {
			s.FirstInstall = false
			err = tracefmt.SaveSettings(in.Path, s)
			if err == nil {
				log.Info("installed settings", zap.String("path", in.Path), zap.Int("attempts", n))
				return nil
			}
		}
		if err != nil {
			log.Debug("install attempt failed", zap.Int("attempt", n), zap.Error(err))
		}
		if backoff.Attempts > 0 && n >= backoff.Attempts {
			return fmt.Errorf("%w after %d attempts", ErrGaveUp, n)
		}

		t := time.NewTimer(backoff.Delay(n))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Task is a running installer.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Start runs the installer in a goroutine.
func (in *Installer) Start(ctx context.Context) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		defer cancel()
		t.err = in.Run(ctx)
	}()
	return t
}

// Done is closed when the task has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the task finishes and returns its error.
func (t *Task) Wait() error {
	<-t.done
	return t.err
}

// Stop cancels the task and waits for it to exit.
func (t *Task) Stop() error {
	t.cancel()
	return t.Wait()
}
