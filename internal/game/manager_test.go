package game

import (
	"testing"
	"time"
)

func TestBoardManagerSetOptions(t *testing.T) {
	m := NewBoardManager(NewPathLibrary(0), PlayerOptions{GuidedGain: 1})
	before := m.Controller("old")

	m.SetOptions(PlayerOptions{GuidedGain: 3, ReplaySpeed: 2})
	if got := m.Options(); got.GuidedGain != 3 || got.ReplaySpeed != 2 {
		t.Errorf("Options() = %+v", got)
	}
	if before.opts.GuidedGain != 1 {
		t.Errorf("existing board changed options: %+v", before.opts)
	}
	if m.Controller("old") != before {
		t.Error("existing board was replaced")
	}
	if after := m.Controller("new"); after.opts.GuidedGain != 3 || after.opts.ReplaySpeed != 2 {
		t.Errorf("new board options %+v", after.opts)
	}
}

func TestBoardManagerEvictIdle(t *testing.T) {
	m := NewBoardManager(NewPathLibrary(0), PlayerOptions{})
	m.Controller("a")
	m.Controller("b")
	if n := m.EvictIdle(time.Now().Add(-time.Hour)); n != 0 {
		t.Errorf("evicted %d fresh boards", n)
	}
	if n := m.EvictIdle(time.Now().Add(time.Second)); n != 2 || len(m.Boards()) != 0 {
		t.Errorf("evicted %d, %d left", n, len(m.Boards()))
	}
}
