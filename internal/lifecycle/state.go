// Package lifecycle runs the fixed, ordered sequence of initialization
// phases, maintains the application lifecycle state, and broadcasts the
// readiness/failure signals. Phases are black-box functions supplied by
// external collaborators; on any failure the completed phases are
// unwound in reverse through their rollback hooks.
package lifecycle

import "sync"

// Canonical lifecycle phase names. Transitions are monotonic within one
// boot attempt: idle → starting_init_process → the phase names in order
// → initialized_idle, with failed_idle the terminal failure state
// reachable from any in-progress phase.
const (
	PhaseIdle             = "idle"
	PhaseStarting         = "starting_init_process"
	PhaseServicesBasic    = "services:basic"
	PhaseServicesAdvanced = "services:advanced"
	PhaseErrors           = "errors"
	PhaseCore             = "core"
	PhaseAuth             = "auth"
	PhaseUI               = "ui"
	PhaseInitialized      = "initialized_idle"
	PhaseFailed           = "failed_idle"
)

// Snapshot is a point-in-time copy of the lifecycle state.
type Snapshot struct {
	Initializing     bool   `json:"initializing"`
	Initialized      bool   `json:"initialized"`
	IsReady          bool   `json:"isReady"`
	CurrentPhase     string `json:"currentPhase"`
	IsAuthenticated  bool   `json:"isAuthenticated"`
	CurrentUser      any    `json:"currentUser,omitempty"`
	CurrentProjectID string `json:"currentProjectId,omitempty"`
	CurrentProject   any    `json:"currentProject,omitempty"`
}

// State is the application lifecycle state. It is mutated only by the
// orchestrator and, through the narrow setters, by the auth and project
// collaborators. isReady is true only while currentPhase is
// initialized_idle and is forced false in failed_idle.
type State struct {
	mu sync.RWMutex
	s  Snapshot
}

// NewState creates an idle lifecycle state.
func NewState() *State {
	return &State{s: Snapshot{CurrentPhase: PhaseIdle}}
}

// Snapshot returns a copy of the current state.
func (st *State) Snapshot() Snapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s
}

// CurrentPhase returns the current phase name.
func (st *State) CurrentPhase() string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s.CurrentPhase
}

// IsReady reports application readiness.
func (st *State) IsReady() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s.IsReady
}

// Initializing reports whether a boot attempt is in progress.
func (st *State) Initializing() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s.Initializing
}

// Initialized reports whether the last boot attempt completed.
func (st *State) Initialized() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s.Initialized
}

// SetAuthenticated records the auth collaborator's outcome.
func (st *State) SetAuthenticated(authenticated bool, user any) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.IsAuthenticated = authenticated
	st.s.CurrentUser = user
	if !authenticated {
		st.s.CurrentUser = nil
	}
}

// SetCurrentProject records the project collaborator's selection.
func (st *State) SetCurrentProject(id string, project any) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.CurrentProjectID = id
	st.s.CurrentProject = project
}

// beginInit marks the start of a boot attempt.
func (st *State) beginInit() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.Initializing = true
	st.s.Initialized = false
	st.s.IsReady = false
	st.s.CurrentPhase = PhaseStarting
}

// setPhase records the phase currently running. Readiness is pinned to
// the two terminal phases and cleared everywhere else.
func (st *State) setPhase(phase string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.CurrentPhase = phase
	if phase != PhaseInitialized {
		st.s.IsReady = false
	}
}

// completeInit marks a fully successful boot.
func (st *State) completeInit() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.Initializing = false
	st.s.Initialized = true
	st.s.CurrentPhase = PhaseInitialized
	st.s.IsReady = true
}

// failInit marks the terminal failure state.
func (st *State) failInit() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.Initializing = false
	st.s.Initialized = false
	st.s.CurrentPhase = PhaseFailed
	st.s.IsReady = false
}

// reset clears everything back to idle, for deliberate teardown.
func (st *State) reset() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s = Snapshot{CurrentPhase: PhaseIdle}
}
