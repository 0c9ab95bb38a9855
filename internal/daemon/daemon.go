// Package daemon implements the supervisor state machine that repeatedly
// invokes the containerized agent until its output signals completion.
//
// State flow:
//
//	init ──▶ check_ctx ──▶ run_agent ──▶ observe ──▶ (run_agent | idle)
//	  │                                      │
//	  └──────────────▶ idle ◀────────────────┘
//
// There is no terminal state; the loop runs until the surrounding context is
// cancelled. Failures mark the persisted state as errored and park the loop
// in idle until a new instruction arrives.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"vigil/internal/config"
	"vigil/internal/executor"
	"vigil/internal/notify"
	"vigil/internal/snapshot"
	"vigil/internal/state"
	"vigil/internal/verdict"
)

// State is a supervisor state machine state.
type State string

const (
	StateInit     State = "init"
	StateCheckCtx State = "check_ctx"
	StateRunAgent State = "run_agent"
	StateObserve  State = "observe"
	StateIdle     State = "idle"
)

// Daemon drives one workspace. Only one daemon may supervise a given
// workspace at a time; single-instance deployment is the operator's job.
type Daemon struct {
	cfg      *config.Config
	store    *state.Store
	exec     executor.Executor
	reporter *notify.Reporter
	logger   *slog.Logger

	state State

	// Task context, created at check_ctx and discarded when the task ends.
	topic        string
	taskStart    time.Time
	lastSnapshot snapshot.Snapshot
	lastProgress time.Time
	stallWarned  bool

	// Result of the most recent invocation, consumed by observe.
	lastOK bool

	// Overridable in tests.
	now  func() time.Time
	idle func(ctx context.Context)
}

// New creates a daemon. The reporter may have no sinks; it must not be nil.
func New(cfg *config.Config, store *state.Store, exec executor.Executor, reporter *notify.Reporter, logger *slog.Logger) *Daemon {
	d := &Daemon{
		cfg:      cfg,
		store:    store,
		exec:     exec,
		reporter: reporter,
		logger:   logger,
		state:    StateInit,
		now:      time.Now,
	}
	d.idle = func(ctx context.Context) {
		select {
		case <-ctx.Done():
		case <-time.After(cfg.IdleInterval()):
		}
	}
	return d
}

// Run executes the supervisor loop until ctx is cancelled. Cancellation is
// observed at iteration boundaries only; an invocation already in flight ends
// through its own timeout.
func (d *Daemon) Run(ctx context.Context) {
	d.logger.Info("daemon started", "workspace", d.cfg.Workspace, "container", d.cfg.Container)

	for ctx.Err() == nil {
		if err := d.step(ctx); err != nil {
			d.fail(err)
			d.idle(ctx)
		}
	}

	d.logger.Info("daemon stopped")
}

// fail records a terminal iteration failure and parks the loop in idle,
// awaiting a fresh instruction. The failed instruction is not replayed.
func (d *Daemon) fail(err error) {
	d.logger.Error("supervisor step failed", "state", d.state, "error", err)
	if saveErr := d.store.MarkError(err.Error()); saveErr != nil {
		d.logger.Error("failed to persist error state", "error", saveErr)
	}
	d.clearTask()
	d.state = StateIdle
}

func (d *Daemon) step(ctx context.Context) error {
	switch d.state {
	case StateInit:
		return d.handleInit()
	case StateCheckCtx:
		return d.handleCheckCtx()
	case StateRunAgent:
		return d.handleRunAgent(ctx)
	case StateObserve:
		return d.handleObserve()
	case StateIdle:
		d.handleIdle(ctx)
		return nil
	default:
		return fmt.Errorf("unknown state %q", d.state)
	}
}

func (d *Daemon) handleInit() error {
	st := d.store.Load()
	if st.Instruction() != "" {
		d.logger.Info("found pending instruction", "preview", head(st.Instruction(), 50))
		d.state = StateCheckCtx
	} else {
		d.state = StateIdle
	}
	return nil
}

// handleCheckCtx verifies the workspace is usable and opens a fresh task
// context: new topic, baseline snapshot, progress clock reset.
func (d *Daemon) handleCheckCtx() error {
	info, err := os.Stat(d.cfg.Workspace)
	if err != nil {
		return fmt.Errorf("workspace unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("workspace unavailable: %s is not a directory", d.cfg.Workspace)
	}

	if err := os.MkdirAll(d.store.Dir(), 0700); err != nil {
		return fmt.Errorf("workspace unavailable: %w", err)
	}

	snap, err := snapshot.Capture(d.cfg.Workspace, d.cfg.Ignore)
	if err != nil {
		return fmt.Errorf("failed to capture baseline snapshot: %w", err)
	}

	now := d.now()
	d.topic = newTopic(now)
	d.taskStart = now
	d.lastSnapshot = snap
	d.lastProgress = now
	d.stallWarned = false

	d.logger.Info("task context ready", "topic", d.topic, "files", len(snap))
	d.state = StateRunAgent
	return nil
}

func (d *Daemon) handleRunAgent(ctx context.Context) error {
	st := d.store.Load()
	instruction := st.Instruction()
	if instruction == "" {
		// Instruction was cleared externally mid-task
		d.clearTask()
		d.state = StateIdle
		return nil
	}

	if err := d.store.MarkRunning(); err != nil {
		return fmt.Errorf("failed to mark running: %w", err)
	}

	iteration := st.IterationCount + 1
	d.logger.Info("running agent", "topic", d.topic, "iteration", iteration)
	d.reporter.ExecStart(d.topic, iteration, instruction)

	output, ok := d.exec.Execute(ctx, instruction, d.cfg.Workspace, d.cfg.Timeout())
	d.lastOK = ok

	if err := d.store.UpdateOutput(output); err != nil {
		return fmt.Errorf("failed to persist output: %w", err)
	}

	d.logger.Info("agent finished", "topic", d.topic, "iteration", iteration, "ok", ok)
	d.state = StateObserve
	return nil
}

// handleObserve parses the completion signal, tracks workspace progress, and
// decides whether the task loops, completes, or times out.
func (d *Daemon) handleObserve() error {
	if !d.lastOK {
		st := d.store.Load()
		return fmt.Errorf("agent invocation failed: %s", tail(deref(st.LastOutput), 500))
	}

	st := d.store.Load()
	output := deref(st.LastOutput)
	iteration := st.IterationCount

	v := verdict.Parse(output, d.store.ConsumeDoneFlag)
	d.reporter.ExecOutput(d.topic, v.Marker(), tail(output, 500))

	if err := d.observeProgress(); err != nil {
		return err
	}

	switch {
	case v == verdict.Done:
		d.logger.Info("completion signal detected", "topic", d.topic, "iterations", iteration)
		d.reporter.TaskDone(d.topic, iteration)
		if err := d.store.MarkIdle(); err != nil {
			return fmt.Errorf("failed to mark idle: %w", err)
		}
		d.clearTask()
		d.state = StateIdle

	case d.now().Sub(d.taskStart) >= d.cfg.Timeout():
		// Time budget exhausted: a terminal stop for the task, not an error
		elapsed := d.now().Sub(d.taskStart).Round(time.Second)
		d.logger.Warn("task time budget exhausted", "topic", d.topic, "elapsed", elapsed)
		d.reporter.TaskTimeout(d.topic, iteration, elapsed.String())
		if err := d.store.MarkIdle(); err != nil {
			return fmt.Errorf("failed to mark idle: %w", err)
		}
		d.clearTask()
		d.state = StateIdle

	default:
		d.logger.Info("continuation signal detected", "topic", d.topic)
		d.state = StateRunAgent
	}
	return nil
}

// observeProgress diffs the workspace against the last snapshot, advances the
// progress clock on change, and fires at most one stall warning per episode.
func (d *Daemon) observeProgress() error {
	current, err := snapshot.Capture(d.cfg.Workspace, d.cfg.Ignore)
	if err != nil {
		return fmt.Errorf("failed to capture snapshot: %w", err)
	}

	changed := snapshot.Diff(d.lastSnapshot, current)
	d.lastSnapshot = current

	if len(changed) > 0 {
		d.logger.Info("workspace changed", "topic", d.topic, "files", len(changed))
		d.reporter.FileChange(d.topic, changed)
		d.lastProgress = d.now()
		d.stallWarned = false
		return nil
	}

	sinceProgress := d.now().Sub(d.lastProgress)
	if !d.stallWarned && sinceProgress >= d.cfg.StallThreshold() {
		minutes := int(sinceProgress.Minutes())
		d.logger.Warn("no progress detected", "topic", d.topic, "minutes", minutes)
		d.reporter.StallWarning(d.topic, minutes)
		d.stallWarned = true
	}
	return nil
}

func (d *Daemon) handleIdle(ctx context.Context) {
	d.idle(ctx)

	st := d.store.Load()
	if st.Instruction() != "" {
		d.logger.Info("new instruction detected", "preview", head(st.Instruction(), 50))
		d.state = StateCheckCtx
	}
}

func (d *Daemon) clearTask() {
	d.topic = ""
	d.taskStart = time.Time{}
	d.lastSnapshot = nil
	d.lastProgress = time.Time{}
	d.stallWarned = false
	d.lastOK = false
}

// newTopic builds the per-task correlation identifier, stable across all
// iterations of one instruction.
func newTopic(now time.Time) string {
	return fmt.Sprintf("task-%s-%s", now.UTC().Format("20060102-150405"), uuid.New().String()[:8])
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
