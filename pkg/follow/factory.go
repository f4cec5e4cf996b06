package follow

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/skylarkuav/go-follow/internal/log"
)

// Profile is the static descriptor of a guidance-law variant: its
// canonical name, aliases, required control type, and the parameters that
// must be present in configuration before it can be instantiated.
type Profile struct {
	Name               string      `json:"name"`
	Aliases            []string    `json:"aliases,omitempty"`
	ControlType        ControlType `json:"control_type"`
	RequiredParameters []string    `json:"required_parameters,omitempty"`
	Description        string      `json:"description,omitempty"`
}

// Constructor builds a guidance-law instance for a profile.
type Constructor func(profile Profile, safety *SafetyManager, params Parameters) (Follower, error)

// CreateOptions carries the per-session inputs resolved from external
// configuration before start_tracking.
type CreateOptions struct {
	// Limits are the session safety bounds; validated at creation.
	Limits SafetyLimits

	// Parameters are the mode's guidance parameters.
	Parameters Parameters

	// Supports reports whether the connected vehicle interface accepts a
	// control type. Nil means every type is accepted.
	Supports func(ControlType) bool

	// Gate rate-limits safety warnings; may be nil.
	Gate *log.Gate
}

type registryEntry struct {
	profile Profile
	build   Constructor
}

// Registry maps follower mode names and aliases to guidance-law
// constructors. It holds only profiles, never live instances; construction
// is lazy and happens in Create.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*registryEntry // canonical name -> entry
	names   map[string]string         // name or alias -> canonical name
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*registryEntry),
		names:   make(map[string]string),
	}
}

// NewDefaultRegistry creates a registry with every built-in guidance law
// registered.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	if err := RegisterBuiltins(r); err != nil {
		// Built-in profiles are static; a failure here is a programming
		// error, not a runtime condition.
		panic(err)
	}
	return r
}

// Register adds a profile and its constructor under the canonical name and
// every alias. Duplicate names, invalid control types, and nil
// constructors are rejected.
func (r *Registry) Register(profile Profile, build Constructor) error {
	if profile.Name == "" {
		return fmt.Errorf("follow: profile name required")
	}
	if !profile.ControlType.Valid() {
		return fmt.Errorf("follow: profile %q has invalid control type %q", profile.Name, profile.ControlType)
	}
	if build == nil {
		return fmt.Errorf("follow: profile %q has nil constructor", profile.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	keys := append([]string{profile.Name}, profile.Aliases...)
	for _, key := range keys {
		key = strings.ToLower(key)
		if existing, ok := r.names[key]; ok {
			return fmt.Errorf("%w: %q (already mapped to %q)", ErrDuplicateMode, key, existing)
		}
	}

	r.entries[profile.Name] = &registryEntry{profile: profile, build: build}
	for _, key := range keys {
		r.names[strings.ToLower(key)] = profile.Name
	}
	return nil
}

// Resolve returns the profile for a mode name or alias.
func (r *Registry) Resolve(mode string) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	canonical, ok := r.names[strings.ToLower(strings.TrimSpace(mode))]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	return r.entries[canonical].profile, nil
}

// Profiles returns every registered profile sorted by canonical name.
func (r *Registry) Profiles() []Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Profile, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.profile)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Create resolves a mode name or alias and builds a guidance-law instance
// for it. It fails with ErrUnknownMode for unregistered names,
// ErrControlTypeMismatch when the vehicle interface rejects the profile's
// control type, ErrMissingParameter for absent required parameters, and
// ErrInvalidLimit for bad safety bounds.
func (r *Registry) Create(mode string, opts CreateOptions) (Follower, error) {
	profile, err := r.Resolve(mode)
	if err != nil {
		return nil, err
	}

	if opts.Supports != nil && !opts.Supports(profile.ControlType) {
		return nil, fmt.Errorf("%w: %s needs %s", ErrControlTypeMismatch, profile.Name, profile.ControlType)
	}

	params := opts.Parameters
	if params == nil {
		params = Parameters{}
	}
	if err := params.require(profile.RequiredParameters...); err != nil {
		return nil, fmt.Errorf("mode %s: %w", profile.Name, err)
	}

	safety, err := NewSafetyManager(opts.Limits, opts.Gate)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	build := r.entries[profile.Name].build
	r.mu.RUnlock()

	f, err := build(profile, safety, params)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", profile.Name, err)
	}

	// The implementation's declared schema must match the profile; checked
	// here because only a live instance knows its setpoint schema.
	if got := f.Setpoints().ControlType(); got != profile.ControlType {
		return nil, fmt.Errorf("follow: %s declares %s but profile requires %s",
			profile.Name, got, profile.ControlType)
	}
	return f, nil
}

// RegisterBuiltins registers every built-in guidance-law variant.
func RegisterBuiltins(r *Registry) error {
	builtins := []struct {
		profile Profile
		build   Constructor
	}{
		{
			Profile{
				Name:        "mc_velocity_chase",
				Aliases:     []string{"chase", "pn_chase"},
				ControlType: ControlTypeVelocityBodyOffboard,
				Description: "Proportional-navigation chase on LOS rate",
			},
			newVelocityChase,
		},
		{
			Profile{
				Name:        "mc_velocity_pid",
				Aliases:     []string{"pid_follow"},
				ControlType: ControlTypeVelocityBodyOffboard,
				Description: "Per-axis PID pursuit on normalized offset",
			},
			newVelocityPID,
		},
		{
			Profile{
				Name:        "mc_position_hold",
				Aliases:     []string{"position_hold"},
				ControlType: ControlTypeVelocityBodyOffboard,
				Description: "Hold the target at a configured frame set-point",
			},
			newPositionHold,
		},
		{
			Profile{
				Name:               "mc_standoff",
				Aliases:            []string{"standoff", "follow_distance"},
				ControlType:        ControlTypeVelocityBodyOffboard,
				RequiredParameters: []string{"standoff_distance"},
				Description:        "Hold a slant-range stand-off distance",
			},
			newStandoff,
		},
		{
			Profile{
				Name:        "mc_bbox_scale",
				Aliases:     []string{"bbox_follow"},
				ControlType: ControlTypeVelocityBodyOffboard,
				Description: "Close range from apparent bounding-box size",
			},
			newBBoxScale,
		},
		{
			Profile{
				Name:        "mc_attitude_rate",
				Aliases:     []string{"mc_rates"},
				ControlType: ControlTypeAttitudeRate,
				Description: "Direct body-rate pursuit for GPS-denied flight",
			},
			newMCAttitudeRate,
		},
		{
			Profile{
				Name:               "fw_attitude_rate",
				Aliases:            []string{"fixed_wing", "fw", "l1_tecs"},
				ControlType:        ControlTypeAttitudeRate,
				RequiredParameters: []string{"airspeed_target"},
				Description:        "L1 lateral + total-energy longitudinal fixed-wing pursuit",
			},
			newFixedWingAttitude,
		},
		{
			Profile{
				Name:        "gimbal_pid",
				Aliases:     []string{"gimbal_pid_pursuit"},
				ControlType: ControlTypeVelocityBody,
				Description: "PID pursuit from gimbal angular error",
			},
			newGimbalPID,
		},
		{
			Profile{
				Name:        "gimbal_vector",
				Aliases:     []string{"gimbal_vector_pursuit"},
				ControlType: ControlTypeVelocityBody,
				Description: "Velocity vector along the gimbal line of sight",
			},
			newGimbalVector,
		},
		{
			Profile{
				Name:        "gimbal_angular",
				Aliases:     []string{"gimbal_rates"},
				ControlType: ControlTypeVelocityBody,
				Description: "Yaw-only pointing for gimbal-only rigs",
			},
			newGimbalAngular,
		},
	}

	for _, b := range builtins {
		if err := r.Register(b.profile, b.build); err != nil {
			return err
		}
	}
	return nil
}
