package follow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skylarkuav/go-follow/internal/log"
)

// State is the manager's follow-session state.
type State string

// Manager states.
const (
	StateIdle       State = "IDLE"
	StateActive     State = "ACTIVE"
	StateLostTarget State = "LOST_TARGET"
)

// CommandSink is the vehicle-actuation boundary. Dispatch must not block:
// implementations hand the command to their own channel or transport
// internally and report a failure without stalling the control loop.
type CommandSink interface {
	Supports(controlType ControlType) bool
	Dispatch(cmd ControlCommand) error
}

// ManagerConfig holds the control-loop settings resolved from the session
// configuration.
type ManagerConfig struct {
	// CycleInterval is the control cadence (10-50 Hz).
	CycleInterval time.Duration

	// StaleAfter is how long a silent tracker feed is tolerated before the
	// manager treats the target as lost.
	StaleAfter time.Duration

	// Limits are the session safety bounds applied to every new law.
	Limits SafetyLimits

	// Parameters resolves guidance parameters for a canonical mode name.
	// Nil means no parameters are configured for any mode.
	Parameters func(mode string) Parameters

	// WarnInterval bounds hot-path warning output.
	WarnInterval time.Duration
}

func (c *ManagerConfig) fillDefaults() {
	if c.CycleInterval <= 0 {
		c.CycleInterval = 50 * time.Millisecond
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 2 * c.CycleInterval
	}
	if c.WarnInterval <= 0 {
		c.WarnInterval = 2 * time.Second
	}
}

// Snapshot is the telemetry view polled by status surfaces.
type Snapshot struct {
	SessionID        string                        `json:"session_id,omitempty"`
	Mode             string                        `json:"mode,omitempty"`
	State            State                         `json:"state"`
	TrackingActive   bool                          `json:"tracking_active"`
	Degraded         bool                          `json:"degraded"`
	Faults           uint64                        `json:"faults"`
	DispatchFailures uint64                        `json:"dispatch_failures"`
	SmartMode        bool                          `json:"smart_mode"`
	Segmentation     bool                          `json:"segmentation"`
	LastCommand      *ControlCommand               `json:"last_command,omitempty"`
	Violations       map[ViolationCategory]uint64  `json:"violations,omitempty"`
}

type triggerKind int

const (
	triggerActivate triggerKind = iota
	triggerStop
)

type trigger struct {
	kind     triggerKind
	follower Follower
	session  string
	reason   string
}

// Manager drives the control loop: it owns the active guidance-law
// instance, applies mode-change triggers at cycle boundaries, consumes the
// most recent tracker output, and dispatches finalized commands to the
// vehicle sink. One Manager instance is owned by the process entry point;
// there is no ambient global.
type Manager struct {
	cfg      ManagerConfig
	registry *Registry
	sink     CommandSink
	gate     *log.Gate

	triggers chan trigger

	latestMu  sync.Mutex
	latest    TrackerOutput
	latestAt  time.Time
	hasLatest bool

	mu               sync.RWMutex
	state            State
	active           Follower
	sessionID        string
	lastCommand      ControlCommand
	hasLastCommand   bool
	trackingActive   bool
	degraded         bool
	faults           uint64
	dispatchFailures uint64
	smartMode        bool
	segmentation     bool

	// RedetectFunc asks the vision collaborator to re-acquire the target.
	// Optional; set before Run.
	RedetectFunc func()

	// SegmentationFunc and SmartModeFunc forward the orthogonal vision
	// toggles. Optional; set before Run.
	SegmentationFunc func(enabled bool)
	SmartModeFunc    func(enabled bool)
}

// NewManager creates a manager over the given registry and vehicle sink.
func NewManager(cfg ManagerConfig, registry *Registry, sink CommandSink) *Manager {
	cfg.fillDefaults()
	return &Manager{
		cfg:      cfg,
		registry: registry,
		sink:     sink,
		gate:     log.NewGate(cfg.WarnInterval),
		triggers: make(chan trigger, 16),
		state:    StateIdle,
	}
}

// Offer stores a tracker update as the newest available output. Older
// unconsumed updates are discarded: the loop always reads the latest.
func (m *Manager) Offer(out TrackerOutput) {
	m.latestMu.Lock()
	m.latest = out
	m.latestAt = time.Now()
	m.hasLatest = true
	m.latestMu.Unlock()
}

// StartTracking activates a follower mode. Construction happens here so
// factory errors surface synchronously to the caller; the instance swap
// itself is applied at the next cycle boundary. Requesting the mode that
// is already active is a no-op.
func (m *Manager) StartTracking(mode string) error {
	profile, err := m.registry.Resolve(mode)
	if err != nil {
		return err
	}

	m.mu.RLock()
	already := m.state != StateIdle && m.active != nil && m.active.Profile().Name == profile.Name
	m.mu.RUnlock()
	if already {
		return nil
	}

	var params Parameters
	if m.cfg.Parameters != nil {
		params = m.cfg.Parameters(profile.Name)
	}

	var supports func(ControlType) bool
	if m.sink != nil {
		supports = m.sink.Supports
	}

	f, err := m.registry.Create(mode, CreateOptions{
		Limits:     m.cfg.Limits,
		Parameters: params,
		Supports:   supports,
		Gate:       m.gate,
	})
	if err != nil {
		return err
	}

	return m.enqueue(trigger{
		kind:     triggerActivate,
		follower: f,
		session:  uuid.NewString(),
	})
}

// StopTracking ends the active session: the guidance-law instance is
// destroyed at the next cycle boundary and one final neutral command is
// emitted. Idempotent when already idle.
func (m *Manager) StopTracking() error {
	m.mu.RLock()
	idle := m.state == StateIdle
	m.mu.RUnlock()
	if idle {
		return nil
	}
	return m.enqueue(trigger{kind: triggerStop, reason: "stop_tracking"})
}

// CancelActivities aborts everything in flight; equivalent to stop for the
// follow state machine but always enqueued so an in-flight activation is
// cancelled too.
func (m *Manager) CancelActivities() error {
	return m.enqueue(trigger{kind: triggerStop, reason: "cancel"})
}

// Redetect forwards a re-acquisition request to the vision collaborator.
// It does not change follower state.
func (m *Manager) Redetect() {
	if m.RedetectFunc != nil {
		m.RedetectFunc()
	}
}

// ToggleSegmentation flips the segmentation flag consumed by the tracker
// collaborator and returns the new value.
func (m *Manager) ToggleSegmentation() bool {
	m.mu.Lock()
	m.segmentation = !m.segmentation
	enabled := m.segmentation
	m.mu.Unlock()

	if m.SegmentationFunc != nil {
		m.SegmentationFunc(enabled)
	}
	return enabled
}

// ToggleSmartMode flips the smart-mode flag consumed by the tracker
// collaborator and returns the new value.
func (m *Manager) ToggleSmartMode() bool {
	m.mu.Lock()
	m.smartMode = !m.smartMode
	enabled := m.smartMode
	m.mu.Unlock()

	if m.SmartModeFunc != nil {
		m.SmartModeFunc(enabled)
	}
	return enabled
}

// Status returns the current telemetry snapshot.
func (m *Manager) Status() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{
		SessionID:        m.sessionID,
		State:            m.state,
		TrackingActive:   m.trackingActive,
		Degraded:         m.degraded,
		Faults:           m.faults,
		DispatchFailures: m.dispatchFailures,
		SmartMode:        m.smartMode,
		Segmentation:     m.segmentation,
	}
	if m.active != nil {
		snap.Mode = m.active.Profile().Name
		snap.Violations = m.active.safetyManager().Counters()
	}
	if m.hasLastCommand {
		cmd := m.lastCommand
		snap.LastCommand = &cmd
	}
	return snap
}

// Profiles lists the registered follower profiles.
func (m *Manager) Profiles() []Profile {
	return m.registry.Profiles()
}

// Run executes the control loop until the context is cancelled. Exactly
// one update happens per tick; triggers are applied only at the cycle
// boundary so a cycle always observes a stable law/limits pair.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.CycleInterval)
	defer ticker.Stop()

	log.Info("follower manager started",
		"cycle_ms", m.cfg.CycleInterval.Milliseconds(),
		"stale_after_ms", m.cfg.StaleAfter.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			m.deactivate("shutdown")
			return
		case <-ticker.C:
			m.applyTriggers()
			m.step()
		}
	}
}

func (m *Manager) enqueue(t trigger) error {
	select {
	case m.triggers <- t:
		return nil
	default:
		return fmt.Errorf("follow: trigger queue full")
	}
}

// applyTriggers drains queued mode changes at the cycle boundary.
func (m *Manager) applyTriggers() {
	for {
		select {
		case t := <-m.triggers:
			switch t.kind {
			case triggerActivate:
				m.activate(t.follower, t.session)
			case triggerStop:
				m.deactivate(t.reason)
			}
		default:
			return
		}
	}
}

func (m *Manager) activate(f Follower, session string) {
	m.mu.Lock()
	m.active = f
	m.state = StateActive
	m.sessionID = session
	m.faults = 0
	m.dispatchFailures = 0
	m.degraded = false
	m.hasLastCommand = false
	m.mu.Unlock()

	log.Info("follow session started",
		"session", session,
		"mode", f.Profile().Name,
		"control_type", string(f.Profile().ControlType),
	)
}

// deactivate tears down the active session and emits one final neutral
// command. Cancellation always succeeds in issuing the neutral command,
// even when the previous cycle's computation failed.
func (m *Manager) deactivate(reason string) {
	m.mu.Lock()
	if m.active == nil {
		m.mu.Unlock()
		return
	}
	controlType := m.active.Profile().ControlType
	mode := m.active.Profile().Name
	session := m.sessionID
	m.active = nil
	m.state = StateIdle
	m.sessionID = ""
	m.trackingActive = false
	neutral := NeutralCommand(controlType)
	m.lastCommand = neutral
	m.hasLastCommand = true
	m.mu.Unlock()

	if m.sink != nil {
		if err := m.sink.Dispatch(neutral); err != nil {
			log.Warn("final neutral dispatch failed", "error", err)
		}
	}

	log.Info("follow session ended", "session", session, "mode", mode, "reason", reason)
}

// step runs one control cycle.
func (m *Manager) step() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return
	}

	out, fresh := m.latestOutput()
	if !fresh {
		// A missing update within the cycle deadline reads as lost.
		out = InactiveOutput(nowSeconds())
	}

	// State transitions follow the tracker's lock flag; confidence gating
	// below that is the guidance law's concern.
	switch {
	case out.TrackingActive() && m.state == StateLostTarget:
		m.state = StateActive
		log.Info("target redetected", "session", m.sessionID)
	case !out.TrackingActive() && m.state == StateActive:
		m.state = StateLostTarget
		log.Info("target lost, holding", "session", m.sessionID)
	}
	m.trackingActive = out.TrackingActive()

	cmd, err := FollowTarget(m.active, out)
	if err != nil {
		// One bad cycle must not stop the loop: substitute neutral.
		m.faults++
		m.gate.Warn("guidance computation failed", "error", err, "faults", m.faults)
		cmd = NeutralCommand(m.active.Profile().ControlType)
	}

	m.lastCommand = cmd
	m.hasLastCommand = true

	if m.sink == nil {
		return
	}
	if err := m.sink.Dispatch(cmd); err != nil {
		m.dispatchFailures++
		m.degraded = true
		m.gate.Warn("actuation dispatch failed", "error", err, "failures", m.dispatchFailures)
	} else {
		m.degraded = false
	}
}

func (m *Manager) latestOutput() (TrackerOutput, bool) {
	m.latestMu.Lock()
	defer m.latestMu.Unlock()

	if !m.hasLatest {
		return TrackerOutput{}, false
	}
	if time.Since(m.latestAt) > m.cfg.StaleAfter {
		return TrackerOutput{}, false
	}
	return m.latest, true
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
