package game

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

type fixedSource struct {
	slot *int
	err  error
	hits int
}

func (f *fixedSource) TargetSlot(ctx context.Context, rows int, risk Risk, bet float64) (*int, error) {
	f.hits++
	return f.slot, f.err
}

func intPtr(v int) *int { return &v }

func TestDropReplaysRecordedCenter(t *testing.T) {
	b, _ := BuildBoard(10)
	lib := NewPathLibrary(5)
	lib.Append(10, 5, straightPath(b, 5), 0)

	c := NewDropController(lib, &fixedSource{slot: intPtr(5)}, PlayerOptions{}, 1)
	res, err := c.Drop(context.Background(), DropRequest{BetAmount: 10, Rows: 10, Risk: RiskMedium})
	if err != nil {
		t.Fatal(err)
	}
	want, _ := Multipliers(10, RiskMedium)
	if res.Slot != 5 || res.Multiplier != want[5] || res.Multiplier != 0.4 {
		t.Errorf("result %+v", res)
	}
	if res.Strategy != PlaybackReplay || res.Discrepancy {
		t.Errorf("strategy=%s discrepancy=%v", res.Strategy, res.Discrepancy)
	}
	if res.Payout != 4 || res.Profit != -6 || res.Won {
		t.Errorf("payout=%v profit=%v won=%v", res.Payout, res.Profit, res.Won)
	}
}

func TestDropGuidedEdgeIsConsistent(t *testing.T) {
	c := NewDropController(NewPathLibrary(5), nil, PlayerOptions{}, 2)
	res, err := c.Drop(context.Background(), DropRequest{BetAmount: 3, Rows: 8, Risk: RiskHigh, TargetSlot: intPtr(0)})
	if err != nil {
		t.Fatal(err)
	}
	if res.Strategy != PlaybackGuided {
		t.Errorf("strategy=%s, want guided", res.Strategy)
	}
	table, _ := Multipliers(8, RiskHigh)
	if res.Slot < 0 || res.Slot > 8 {
		t.Fatalf("slot %d out of range", res.Slot)
	}
	if res.Multiplier != table[res.Slot] || math.Abs(res.Payout-3*table[res.Slot]) > 1e-9 {
		t.Errorf("inconsistent result %+v", res)
	}
	if res.Discrepancy != (res.Slot != 0) {
		t.Errorf("discrepancy=%v for slot %d", res.Discrepancy, res.Slot)
	}
	if res.Won != (res.Multiplier >= 1) {
		t.Errorf("won=%v with multiplier %v", res.Won, res.Multiplier)
	}
}

func TestDropFreeAnyTable(t *testing.T) {
	c := NewDropController(nil, nil, PlayerOptions{}, 3)
	for _, rows := range SupportedRows() {
		for _, risk := range []Risk{RiskLow, RiskMedium, RiskHigh} {
			res, err := c.Drop(context.Background(), DropRequest{BetAmount: 1, Rows: rows, Risk: risk})
			if err != nil {
				t.Fatalf("rows=%d risk=%s: %v", rows, risk, err)
			}
			if res.Slot < 0 || res.Slot > rows {
				t.Errorf("rows=%d risk=%s: slot %d", rows, risk, res.Slot)
			}
			if res.Strategy != PlaybackFree || res.TargetSlot != nil || res.Discrepancy {
				t.Errorf("rows=%d risk=%s: %+v", rows, risk, res)
			}
		}
	}
}

func TestDropRequestTargetOverridesSource(t *testing.T) {
	src := &fixedSource{slot: intPtr(2)}
	c := NewDropController(nil, src, PlayerOptions{MaxSteps: 1}, 4)
	c.Drop(context.Background(), DropRequest{Rows: 8, TargetSlot: intPtr(3)})
	if src.hits != 0 {
		t.Error("source consulted despite an explicit target")
	}
	reqSrc := &fixedSource{}
	c.Drop(context.Background(), DropRequest{Rows: 8, Source: reqSrc})
	if reqSrc.hits != 1 || src.hits != 0 {
		t.Error("request source did not take priority over the controller's")
	}
}

func TestDropValidation(t *testing.T) {
	c := NewDropController(nil, nil, PlayerOptions{}, 5)
	ctx := context.Background()
	cases := []struct {
		name string
		req  DropRequest
		want error
	}{
		{"negative bet", DropRequest{BetAmount: -1, Rows: 8}, ErrInvalidBet},
		{"unsupported rows", DropRequest{Rows: 9}, ErrUnsupportedTable},
		{"unknown risk", DropRequest{Rows: 8, Risk: Risk(5)}, ErrUnsupportedTable},
		{"target too high", DropRequest{Rows: 8, TargetSlot: intPtr(9)}, ErrInvalidSlot},
		{"target negative", DropRequest{Rows: 8, TargetSlot: intPtr(-1)}, ErrInvalidSlot},
		{"source out of range", DropRequest{Rows: 8, Source: &fixedSource{slot: intPtr(20)}}, ErrInvalidSlot},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := c.Drop(ctx, tc.req); !errors.Is(err, tc.want) {
				t.Errorf("err=%v, want %v", err, tc.want)
			}
		})
	}

	boom := errors.New("beacon down")
	if _, err := c.Drop(ctx, DropRequest{Rows: 8, Source: &fixedSource{err: boom}}); !errors.Is(err, boom) {
		t.Errorf("source error not surfaced: %v", err)
	}
}

func TestDropSurfacesNoLanding(t *testing.T) {
	c := NewDropController(nil, nil, PlayerOptions{MaxSteps: 2}, 6)
	if _, err := c.Drop(context.Background(), DropRequest{Rows: 8}); !errors.Is(err, ErrNoLanding) {
		t.Fatalf("err=%v, want ErrNoLanding", err)
	}
	if c.Busy() {
		t.Error("controller still busy after a failed drop")
	}
}

func TestDropWaitsForPreviousBall(t *testing.T) {
	c := NewDropController(nil, nil, PlayerOptions{}, 7)
	c.sem <- struct{}{}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Drop(ctx, DropRequest{Rows: 8}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err=%v, want deadline while another drop is in flight", err)
	}
	<-c.sem

	res, err := c.Drop(context.Background(), DropRequest{Rows: 8})
	if err != nil || res == nil {
		t.Fatalf("drop after release: %v", err)
	}
}

func TestDropStreamsFrames(t *testing.T) {
	c := NewDropController(nil, nil, PlayerOptions{SettleSteps: 4}, 8)
	var frames []Frame
	res, err := c.DropWithSink(context.Background(), DropRequest{Rows: 8}, FrameSinkFunc(func(f Frame) { frames = append(frames, f) }))
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) < res.Steps {
		t.Errorf("got %d frames for a %d-step drop", len(frames), res.Steps)
	}
	final := frames[len(frames)-1]
	if len(final.Balls) != 1 || final.Balls[0].X != res.Landing.X {
		t.Errorf("last frame does not show the settled ball: %+v", final)
	}
}
