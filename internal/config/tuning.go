package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults/tuning.yaml
var defaultTuningYAML []byte

// Tuning holds the netcode thresholds shared by host, guests and relay.
type Tuning struct {
	TickRateHz int `yaml:"tick_rate_hz" json:"tick_rate_hz"`

	Snapshot struct {
		CartBroadcastHz int `yaml:"cart_broadcast_hz" json:"cart_broadcast_hz"`
	} `yaml:"snapshot" json:"snapshot"`

	Reconcile struct {
		OwnSnapDistance    float64 `yaml:"own_snap_distance" json:"own_snap_distance"`
		RemoteSnapDistance float64 `yaml:"remote_snap_distance" json:"remote_snap_distance"`
		RemoteSmoothing    float64 `yaml:"remote_smoothing" json:"remote_smoothing"`
		CartSnapDistance   float64 `yaml:"cart_snap_distance" json:"cart_snap_distance"`
		CartSmoothing      float64 `yaml:"cart_smoothing" json:"cart_smoothing"`
		CartStaleAfterMs   int     `yaml:"cart_stale_after_ms" json:"cart_stale_after_ms"`
	} `yaml:"reconcile" json:"reconcile"`

	Authority struct {
		ClaimRadius  float64 `yaml:"claim_radius" json:"claim_radius"`
		ClaimSpeed   float64 `yaml:"claim_speed" json:"claim_speed"`
		ReleaseSpeed float64 `yaml:"release_speed" json:"release_speed"`
	} `yaml:"authority" json:"authority"`

	Session struct {
		JoinTimeoutMs int `yaml:"join_timeout_ms" json:"join_timeout_ms"`
	} `yaml:"session" json:"session"`

	World struct {
		PickupRadius    float64 `yaml:"pickup_radius" json:"pickup_radius"`
		PickupRetryMs   int     `yaml:"pickup_retry_ms" json:"pickup_retry_ms"`
		CartEnterRadius float64 `yaml:"cart_enter_radius" json:"cart_enter_radius"`
		Carts           int     `yaml:"carts" json:"carts"`
	} `yaml:"world" json:"world"`
}

func (t Tuning) TickInterval() time.Duration {
	return time.Second / time.Duration(t.TickRateHz)
}

func (t Tuning) CartBroadcastInterval() time.Duration {
	return time.Second / time.Duration(t.Snapshot.CartBroadcastHz)
}

func (t Tuning) CartStaleAfter() time.Duration {
	return time.Duration(t.Reconcile.CartStaleAfterMs) * time.Millisecond
}

func (t Tuning) JoinTimeout() time.Duration {
	return time.Duration(t.Session.JoinTimeoutMs) * time.Millisecond
}

func (t Tuning) PickupRetry() time.Duration {
	return time.Duration(t.World.PickupRetryMs) * time.Millisecond
}

// Validate rejects values that would break the reconciliation policies.
func (t Tuning) Validate() error {
	var errs []error
	if t.TickRateHz <= 0 {
		errs = append(errs, errors.New("tick_rate_hz must be positive"))
	}
	if t.Snapshot.CartBroadcastHz <= 0 || t.Snapshot.CartBroadcastHz > t.TickRateHz {
		errs = append(errs, fmt.Errorf("cart_broadcast_hz must be in 1..%d", t.TickRateHz))
	}
	r := t.Reconcile
	if r.OwnSnapDistance <= 0 || r.RemoteSnapDistance <= 0 || r.CartSnapDistance <= 0 {
		errs = append(errs, errors.New("snap distances must be positive"))
	}
	if r.RemoteSmoothing <= 0 || r.RemoteSmoothing > 1 || r.CartSmoothing <= 0 || r.CartSmoothing > 1 {
		errs = append(errs, errors.New("smoothing factors must be in (0,1]"))
	}
	if r.CartStaleAfterMs <= 0 {
		errs = append(errs, errors.New("cart_stale_after_ms must be positive"))
	}
	a := t.Authority
	if a.ReleaseSpeed < 0 || a.ClaimSpeed < a.ReleaseSpeed {
		errs = append(errs, errors.New("claim_speed must be >= release_speed >= 0"))
	}
	if a.ClaimRadius <= 0 {
		errs = append(errs, errors.New("claim_radius must be positive"))
	}
	if t.Session.JoinTimeoutMs <= 0 {
		errs = append(errs, errors.New("join_timeout_ms must be positive"))
	}
	if t.World.Carts < 0 || t.World.Carts > 8 {
		errs = append(errs, errors.New("carts must be in 0..8"))
	}
	return errors.Join(errs...)
}

// DefaultTuning returns the embedded defaults.
func DefaultTuning() Tuning {
	var t Tuning
	if err := yaml.Unmarshal(defaultTuningYAML, &t); err != nil {
		panic(fmt.Sprintf("embedded tuning: %v", err))
	}
	return t
}

// LoadTuning loads netcode tuning.
// Search order: customPath -> ./configs/tuning.yaml -> embedded default.
// Keys missing from a file keep their default values.
func LoadTuning(customPath string) (Tuning, error) {
	t := DefaultTuning()

	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			return t, fmt.Errorf("failed to read tuning %s: %w", customPath, err)
		}
		if err := yaml.Unmarshal(data, &t); err != nil {
			return t, fmt.Errorf("failed to parse tuning %s: %w", customPath, err)
		}
		return t, t.Validate()
	}

	if data, err := os.ReadFile("configs/tuning.yaml"); err == nil {
		local := t
		if err := yaml.Unmarshal(data, &local); err == nil && local.Validate() == nil {
			return local, nil
		}
	}

	return t, nil
}
