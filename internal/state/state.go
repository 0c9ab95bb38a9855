package state

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"vigil/internal/fsutil"
)

// Status represents the externally observable run status.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusError   Status = "error"
)

const (
	// BookkeepingDir is the hidden directory inside the workspace that holds
	// the state document and the completion flag.
	BookkeepingDir = ".vigil"

	stateFileName = "state.json"
	doneFlagName  = "done.flag"

	// OutputCap bounds last_output to the tail of the most recent executor
	// output so the state document stays small.
	OutputCap = 5000
)

// RunState is the persisted supervisor state, one document per workspace.
// Optional fields marshal as null when absent.
type RunState struct {
	Status             Status     `json:"status"`
	CurrentInstruction *string    `json:"current_instruction"`
	WorkspacePath      string     `json:"workspace_path"`
	StartedAt          *time.Time `json:"started_at"`
	LastOutput         *string    `json:"last_output"`
	IterationCount     int        `json:"iteration_count"`
	Error              *string    `json:"error"`
}

// Instruction returns the pending instruction, or "" when none is set.
func (s *RunState) Instruction() string {
	if s.CurrentInstruction == nil {
		return ""
	}
	return *s.CurrentInstruction
}

// Store reads and writes the state document for one workspace.
//
// Single-writer: only the supervisor process calls the Mark*/UpdateOutput
// mutators. External tooling sets the instruction and reads the document;
// concurrent external writes to other fields are not guarded against.
type Store struct {
	workspace string
	logger    *slog.Logger
}

// NewStore creates a store bound to the given workspace directory.
func NewStore(workspace string, logger *slog.Logger) *Store {
	return &Store{workspace: workspace, logger: logger}
}

// Dir returns the bookkeeping directory path.
func (s *Store) Dir() string {
	return filepath.Join(s.workspace, BookkeepingDir)
}

// Path returns the state document path.
func (s *Store) Path() string {
	return filepath.Join(s.Dir(), stateFileName)
}

// DoneFlagPath returns the completion marker file path.
func (s *Store) DoneFlagPath() string {
	return filepath.Join(s.Dir(), doneFlagName)
}

func (s *Store) defaultState() *RunState {
	return &RunState{
		Status:        StatusIdle,
		WorkspacePath: s.workspace,
	}
}

// Load reads the state document. A missing or corrupt document yields a
// fresh idle record; corruption is logged, never propagated.
func (s *Store) Load() *RunState {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read state document, using defaults", "path", s.Path(), "error", err)
		}
		return s.defaultState()
	}

	var st RunState
	if err := json.Unmarshal(data, &st); err != nil {
		s.logger.Warn("state document is corrupt, using defaults", "path", s.Path(), "error", err)
		return s.defaultState()
	}

	if st.WorkspacePath == "" {
		st.WorkspacePath = s.workspace
	}
	return &st
}

// Save writes the state document atomically.
func (s *Store) Save(st *RunState) error {
	return fsutil.AtomicWriteJSON(s.Path(), st)
}

// SetInstruction stores a new instruction and marks the run pending.
// The iteration counter and any previous error are reset.
func (s *Store) SetInstruction(instruction string) error {
	st := s.Load()
	st.CurrentInstruction = &instruction
	st.Status = StatusPending
	st.StartedAt = nil
	st.IterationCount = 0
	st.Error = nil
	return s.Save(st)
}

// MarkRunning flags the executor as in flight. The start timestamp is set
// once per task, on the first iteration.
func (s *Store) MarkRunning() error {
	st := s.Load()
	st.Status = StatusRunning
	if st.StartedAt == nil {
		now := time.Now().UTC()
		st.StartedAt = &now
	}
	return s.Save(st)
}

// MarkIdle clears the instruction and returns the run to idle.
func (s *Store) MarkIdle() error {
	st := s.Load()
	st.Status = StatusIdle
	st.CurrentInstruction = nil
	return s.Save(st)
}

// MarkError records a terminal failure. The instruction is cleared so the
// failed task is not replayed; a new instruction must be supplied to retry.
func (s *Store) MarkError(msg string) error {
	st := s.Load()
	st.Status = StatusError
	st.CurrentInstruction = nil
	st.Error = &msg
	return s.Save(st)
}

// UpdateOutput stores the tail of the most recent executor output and
// increments the iteration counter.
func (s *Store) UpdateOutput(output string) error {
	st := s.Load()
	if len(output) > OutputCap {
		output = output[len(output)-OutputCap:]
	}
	st.LastOutput = &output
	st.IterationCount++
	return s.Save(st)
}

// ConsumeDoneFlag reports whether the completion marker file exists and
// deletes it, so a stale flag cannot re-trigger completion for a later task
// sharing the same workspace.
func (s *Store) ConsumeDoneFlag() bool {
	path := s.DoneFlagPath()
	if _, err := os.Stat(path); err != nil {
		return false
	}
	if err := os.Remove(path); err != nil {
		s.logger.Warn("failed to remove done flag", "path", path, "error", err)
	}
	return true
}
