package game

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestMultiplierTableShape(t *testing.T) {
	for _, rows := range SupportedRows() {
		for _, risk := range []Risk{RiskLow, RiskMedium, RiskHigh} {
			row, err := Multipliers(rows, risk)
			if err != nil {
				t.Fatalf("Multipliers(%d, %s): %v", rows, risk, err)
			}
			if len(row) != rows+1 {
				t.Errorf("rows=%d risk=%s: len=%d, want %d", rows, risk, len(row), rows+1)
				continue
			}
			max, maxAt := math.Inf(-1), -1
			min := math.Inf(1)
			for i, v := range row {
				if v != row[len(row)-1-i] {
					t.Errorf("rows=%d risk=%s: not symmetric at %d", rows, risk, i)
				}
				if v > max {
					max, maxAt = v, i
				}
				if v < min {
					min = v
				}
			}
			if maxAt != 0 && maxAt != rows {
				t.Errorf("rows=%d risk=%s: max %.2f at index %d, want an edge", rows, risk, max, maxAt)
			}
			if center := row[rows/2]; center != min {
				t.Errorf("rows=%d risk=%s: center %.2f is not the minimum %.2f", rows, risk, center, min)
			}
			if risk != RiskLow && row[rows/2] >= 1 {
				t.Errorf("rows=%d risk=%s: center %.2f should be below 1", rows, risk, row[rows/2])
			}
		}
	}
}

func TestMultiplierHouseEdge(t *testing.T) {
	for _, rows := range SupportedRows() {
		for _, risk := range []Risk{RiskLow, RiskMedium, RiskHigh} {
			row, _ := Multipliers(rows, risk)
			ev := 0.0
			for k, m := range row {
				ev += binomial(rows, k) * m
			}
			ev /= math.Pow(2, float64(rows))
			if ev < 0.9 || ev > 1.0 {
				t.Errorf("rows=%d risk=%s: expected return %.4f outside [0.90, 1.00]", rows, risk, ev)
			}
		}
	}
}

func binomial(n, k int) float64 {
	r := 1.0
	for i := 1; i <= k; i++ {
		r = r * float64(n-k+i) / float64(i)
	}
	return r
}

func TestMultiplierReferenceValues(t *testing.T) {
	if m, _ := Multiplier(10, RiskMedium, 5); m != 0.4 {
		t.Errorf("10/medium center = %v, want 0.4", m)
	}
	if m, _ := Multiplier(12, RiskHigh, 0); m != 75 {
		t.Errorf("12/high edge = %v, want 75", m)
	}
}

func TestMultipliersFailClosed(t *testing.T) {
	if _, err := Multipliers(9, RiskLow); !errors.Is(err, ErrUnsupportedTable) {
		t.Errorf("rows=9: err=%v", err)
	}
	if _, err := Multipliers(10, Risk(7)); !errors.Is(err, ErrUnsupportedTable) {
		t.Errorf("risk=7: err=%v", err)
	}
	if _, err := Multiplier(8, RiskLow, 9); !errors.Is(err, ErrInvalidSlot) {
		t.Errorf("slot 9 on 8 rows: err=%v", err)
	}
}

func TestMultipliersReturnsCopy(t *testing.T) {
	a, _ := Multipliers(8, RiskHigh)
	a[0] = 0
	b, _ := Multipliers(8, RiskHigh)
	if b[0] == 0 {
		t.Fatal("Multipliers exposed the shared table")
	}
}

func TestParseRisk(t *testing.T) {
	cases := map[string]Risk{"low": RiskLow, "Medium": RiskMedium, " HIGH ": RiskHigh, "0": RiskLow, "1": RiskMedium, "2": RiskHigh}
	for in, want := range cases {
		got, err := ParseRisk(in)
		if err != nil || got != want {
			t.Errorf("ParseRisk(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseRisk("extreme"); !errors.Is(err, ErrUnknownRisk) {
		t.Errorf("ParseRisk(extreme) err=%v", err)
	}
}

func TestRiskJSON(t *testing.T) {
	var req DropRequest
	if err := json.Unmarshal([]byte(`{"bet_amount":1,"rows":8,"risk":"High"}`), &req); err != nil {
		t.Fatal(err)
	}
	if req.Risk != RiskHigh {
		t.Errorf("risk = %v", req.Risk)
	}
	if err := json.Unmarshal([]byte(`{"risk":"extreme"}`), &req); !errors.Is(err, ErrUnknownRisk) {
		t.Errorf("err = %v", err)
	}
	out, err := json.Marshal(DropRequest{Rows: 8, Risk: RiskMedium})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `"risk":"medium"`) {
		t.Errorf("marshalled %s", out)
	}
}
