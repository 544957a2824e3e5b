package game

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds the physics coefficients for a world.
type Tuning struct {
	Gravity         float64 `yaml:"gravity" json:"gravity"`
	Restitution     float64 `yaml:"restitution" json:"restitution"`
	WallRestitution float64 `yaml:"wall_restitution" json:"wall_restitution"`
	ContactFriction float64 `yaml:"contact_friction" json:"contact_friction"`
	FrictionAir     float64 `yaml:"friction_air" json:"friction_air"`
	SubSteps        int     `yaml:"sub_steps" json:"sub_steps"`
}

// DefaultTuning returns the coefficients for a row count. Air friction drops
// as rows grow so that denser boards, which bounce more, take about as long
// to fall as sparse ones.
func DefaultTuning(rows int) Tuning {
	return Tuning{
		Gravity:         Gravity,
		Restitution:     BallRestitution,
		WallRestitution: WallRestitution,
		ContactFriction: ContactFriction,
		FrictionAir:     0.045 - 0.0015*float64(rows),
		SubSteps:        SubSteps,
	}
}

// TuningFile is the YAML form of per-row physics overrides:
//
//	defaults:
//	  gravity: 1000
//	rows:
//	  12:
//	    friction_air: 0.026
type TuningFile struct {
	Defaults Tuning         `yaml:"defaults"`
	Rows     map[int]Tuning `yaml:"rows"`
}

// LoadTuningFile reads a YAML tuning file.
func LoadTuningFile(path string) (*TuningFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tuning file: %w", err)
	}
	var tf TuningFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse tuning file %s: %w", path, err)
	}
	return &tf, nil
}

// For returns the tuning for rows: built-in defaults, then file defaults,
// then the per-row entry. Zero fields do not override.
func (tf *TuningFile) For(rows int) Tuning {
	t := DefaultTuning(rows)
	if tf == nil {
		return t
	}
	t = t.merge(tf.Defaults)
	if r, ok := tf.Rows[rows]; ok {
		t = t.merge(r)
	}
	return t
}

func (t Tuning) merge(o Tuning) Tuning {
	if o.Gravity != 0 {
		t.Gravity = o.Gravity
	}
	if o.Restitution != 0 {
		t.Restitution = o.Restitution
	}
	if o.WallRestitution != 0 {
		t.WallRestitution = o.WallRestitution
	}
	if o.ContactFriction != 0 {
		t.ContactFriction = o.ContactFriction
	}
	if o.FrictionAir != 0 {
		t.FrictionAir = o.FrictionAir
	}
	if o.SubSteps != 0 {
		t.SubSteps = o.SubSteps
	}
	return t
}
