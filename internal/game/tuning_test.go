package game

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultTuningFrictionDecreasesWithRows(t *testing.T) {
	prev := DefaultTuning(MinRows).FrictionAir
	for rows := MinRows + 1; rows <= MaxRows; rows++ {
		f := DefaultTuning(rows).FrictionAir
		if f >= prev || f <= 0 {
			t.Errorf("rows=%d: friction %.4f (previous %.4f)", rows, f, prev)
		}
		prev = f
	}
}

func TestLoadTuningFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	doc := `
defaults:
  gravity: 1200
rows:
  12:
    friction_air: 0.02
    sub_steps: 6
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	tf, err := LoadTuningFile(path)
	if err != nil {
		t.Fatal(err)
	}

	twelve := tf.For(12)
	if twelve.Gravity != 1200 || twelve.FrictionAir != 0.02 || twelve.SubSteps != 6 {
		t.Errorf("rows=12 tuning %+v", twelve)
	}
	if twelve.Restitution != BallRestitution {
		t.Errorf("unset field overridden: %+v", twelve)
	}
	eight := tf.For(8)
	if eight.Gravity != 1200 || eight.FrictionAir != DefaultTuning(8).FrictionAir {
		t.Errorf("rows=8 tuning %+v", eight)
	}

	var none *TuningFile
	if none.For(10) != DefaultTuning(10) {
		t.Error("nil tuning file should give defaults")
	}
}

func TestLoadTuningFileErrors(t *testing.T) {
	if _, err := LoadTuningFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file loaded")
	}
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(bad, []byte("rows: [1, 2"), 0o644)
	if _, err := LoadTuningFile(bad); err == nil {
		t.Error("malformed yaml loaded")
	}
}
