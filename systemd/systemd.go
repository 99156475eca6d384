// Package systemd restarts units through systemctl and tracks per-unit
// restart cooldowns so the monitor cannot flap a service.
package systemd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// restartTimeout bounds how long a single systemctl invocation may run.
const restartTimeout = 60 * time.Second

// Controller is the restart surface the monitor depends on.
type Controller interface {
	// Restart restarts the unit. A successful restart starts the unit's
	// cooldown window.
	Restart(ctx context.Context, unit string) error
	// InCooldown reports whether the unit was successfully restarted
	// within the cooldown window ending at now.
	InCooldown(unit string, now time.Time) bool
}

// runnerFunc executes a command and returns its combined output. Swapped
// out in tests.
type runnerFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// SystemctlController shells out to systemctl. Cooldowns are recorded
// only for restarts that succeed, so a failed restart stays immediately
// retryable.
type SystemctlController struct {
	cooldown time.Duration
	logger   *slog.Logger
	run      runnerFunc
	now      func() time.Time

	mu          sync.Mutex
	lastRestart map[string]time.Time
}

// NewSystemctlController creates a controller with the given cooldown
// window. If logger is nil, a no-op logger is used.
func NewSystemctlController(cooldown time.Duration, logger *slog.Logger) *SystemctlController {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SystemctlController{
		cooldown:    cooldown,
		logger:      logger,
		run:         runCommand,
		now:         time.Now,
		lastRestart: make(map[string]time.Time),
	}
}

// Restart runs systemctl restart with a hard timeout. On success the
// unit's cooldown window starts at the completion time.
func (c *SystemctlController) Restart(ctx context.Context, unit string) error {
	if unit == "" {
		return fmt.Errorf("systemd: empty unit name")
	}

	ctx, cancel := context.WithTimeout(ctx, restartTimeout)
	defer cancel()

	start := c.now()
	out, err := c.run(ctx, "systemctl", "restart", unit)
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("systemd: restart %s: %w: %s", unit, err, msg)
		}
		return fmt.Errorf("systemd: restart %s: %w", unit, err)
	}

	c.mu.Lock()
	c.lastRestart[unit] = c.now()
	c.mu.Unlock()

	c.logger.Info("unit restarted", "unit", unit, "took", c.now().Sub(start).String())
	return nil
}

// InCooldown reports whether the unit's last successful restart is still
// within the cooldown window.
func (c *SystemctlController) InCooldown(unit string, now time.Time) bool {
	c.mu.Lock()
	last, ok := c.lastRestart[unit]
	c.mu.Unlock()
	if !ok {
		return false
	}
	return now.Sub(last) < c.cooldown
}

// LastRestart returns when the unit was last successfully restarted,
// false when it never was.
func (c *SystemctlController) LastRestart(unit string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	last, ok := c.lastRestart[unit]
	return last, ok
}
