package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/plinko/internal/config"
	"github.com/playmatatu/plinko/internal/fairness"
	"github.com/playmatatu/plinko/internal/game"
	"github.com/playmatatu/plinko/internal/service"
)

func newTestRouter() (*gin.Engine, *service.DropService) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{MaxBetAmount: 50, TickRate: 0}
	svc := service.NewDropService(game.NewBoardManager(game.NewPathLibrary(0), game.PlayerOptions{}), fairness.NewRegistry(nil), nil, cfg.MaxBetAmount)

	r := gin.New()
	r.GET("/board/:rows", GetBoard)
	r.GET("/multipliers/:rows/:risk", GetMultipliers)
	r.POST("/drop", Drop(svc))
	r.GET("/fairness/:board_id", GetFairness(svc))
	r.POST("/fairness/:board_id/rotate", RotateSeed(svc))
	r.POST("/fairness/verify", VerifyRoll)
	r.GET("/config", GetConfig(cfg))
	return r, svc
}

func do(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBoardEndpoints(t *testing.T) {
	r, _ := newTestRouter()

	w := do(r, http.MethodGet, "/board/12", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("board status %d", w.Code)
	}
	var board game.BoardConfig
	if err := json.Unmarshal(w.Body.Bytes(), &board); err != nil {
		t.Fatal(err)
	}
	if board.Rows != 12 || len(board.LastRowXCoords) != 13 {
		t.Errorf("board rows=%d coords=%d", board.Rows, len(board.LastRowXCoords))
	}

	if w := do(r, http.MethodGet, "/board/30", nil); w.Code != http.StatusBadRequest {
		t.Errorf("unsupported rows status %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/board/abc", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad rows status %d", w.Code)
	}

	w = do(r, http.MethodGet, "/multipliers/8/high", nil)
	var mult struct {
		Risk        string    `json:"risk"`
		Multipliers []float64 `json:"multipliers"`
	}
	json.Unmarshal(w.Body.Bytes(), &mult)
	if w.Code != http.StatusOK || mult.Risk != "high" || len(mult.Multipliers) != 9 || mult.Multipliers[0] != 28 {
		t.Errorf("multipliers %d %+v", w.Code, mult)
	}
	if w := do(r, http.MethodGet, "/multipliers/8/extreme", nil); w.Code != http.StatusBadRequest {
		t.Errorf("unknown risk status %d", w.Code)
	}
}

func TestDropEndpoint(t *testing.T) {
	r, _ := newTestRouter()

	w := do(r, http.MethodPost, "/drop", map[string]interface{}{"board_id": "h1", "bet_amount": 5, "rows": 8, "risk": "medium", "mode": "free"})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d body %s", w.Code, w.Body)
	}
	var out struct {
		Slot       int     `json:"slot"`
		Multiplier float64 `json:"multiplier"`
		Payout     float64 `json:"payout"`
		Strategy   string  `json:"strategy"`
	}
	json.Unmarshal(w.Body.Bytes(), &out)
	want, _ := game.Multiplier(8, game.RiskMedium, out.Slot)
	if out.Strategy != "free" || out.Multiplier != want || out.Payout != 5*want {
		t.Errorf("drop %+v", out)
	}

	cases := []struct {
		body map[string]interface{}
		want int
	}{
		{map[string]interface{}{"bet_amount": 1, "rows": 8, "risk": "low"}, http.StatusBadRequest},
		{map[string]interface{}{"board_id": "h1", "bet_amount": 500, "rows": 8, "risk": "low"}, http.StatusBadRequest},
		{map[string]interface{}{"board_id": "h1", "bet_amount": 1, "rows": 11, "risk": "low"}, http.StatusBadRequest},
		{map[string]interface{}{"board_id": "h1", "bet_amount": 1, "rows": 8, "risk": "wild"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		if w := do(r, http.MethodPost, "/drop", tc.body); w.Code != tc.want {
			t.Errorf("%v: status %d, want %d", tc.body, w.Code, tc.want)
		}
	}
}

func TestFairnessEndpoints(t *testing.T) {
	r, _ := newTestRouter()

	w := do(r, http.MethodGet, "/fairness/f1?client_seed=abc", nil)
	var before struct {
		State fairness.SeedState `json:"state"`
	}
	json.Unmarshal(w.Body.Bytes(), &before)
	if before.State.ServerSeed != "" || before.State.ClientSeed != "abc" || before.State.ServerSeedHash == "" {
		t.Fatalf("state %+v", before.State)
	}

	w = do(r, http.MethodPost, "/drop", map[string]interface{}{"board_id": "f1", "bet_amount": 1, "rows": 8, "risk": "low", "client_seed": "abc"})
	var drop struct {
		Slot     int           `json:"slot"`
		Fairness fairness.Roll `json:"fairness"`
	}
	json.Unmarshal(w.Body.Bytes(), &drop)

	w = do(r, http.MethodPost, "/fairness/f1/rotate", nil)
	var rotated struct {
		Revealed fairness.SeedState `json:"revealed"`
	}
	json.Unmarshal(w.Body.Bytes(), &rotated)
	if rotated.Revealed.ServerSeedHash != before.State.ServerSeedHash || rotated.Revealed.ServerSeed == "" {
		t.Fatalf("revealed %+v", rotated.Revealed)
	}

	w = do(r, http.MethodPost, "/fairness/verify", map[string]interface{}{
		"server_seed":      rotated.Revealed.ServerSeed,
		"server_seed_hash": rotated.Revealed.ServerSeedHash,
		"client_seed":      "abc",
		"nonce":            drop.Fairness.Nonce,
		"rows":             8,
		"slot":             drop.Fairness.Slot,
	})
	var verify struct {
		Valid        bool `json:"valid"`
		ComputedSlot int  `json:"computed_slot"`
	}
	json.Unmarshal(w.Body.Bytes(), &verify)
	if !verify.Valid || verify.ComputedSlot != drop.Fairness.Slot {
		t.Errorf("verify %+v for roll %+v", verify, drop.Fairness)
	}

	do(r, http.MethodPost, "/drop", map[string]interface{}{"board_id": "f1", "bet_amount": 1, "rows": 8, "risk": "low", "client_seed": "abc"})
	committed := do(r, http.MethodGet, "/fairness/f1", nil)
	var current struct {
		State fairness.SeedState `json:"state"`
	}
	json.Unmarshal(committed.Body.Bytes(), &current)

	w = do(r, http.MethodGet, "/fairness/f1?client_seed=xyz", nil)
	var switched struct {
		State    fairness.SeedState `json:"state"`
		Previous fairness.SeedState `json:"previous"`
	}
	json.Unmarshal(w.Body.Bytes(), &switched)
	if switched.Previous.ServerSeedHash != current.State.ServerSeedHash || switched.Previous.ServerSeed == "" {
		t.Errorf("client seed change did not reveal %s: %+v", current.State.ServerSeedHash, switched.Previous)
	}
	if switched.State.ServerSeedHash == current.State.ServerSeedHash || switched.State.Nonce != 0 {
		t.Errorf("state after client seed change %+v", switched.State)
	}
}

func TestGetConfig(t *testing.T) {
	r, _ := newTestRouter()
	w := do(r, http.MethodGet, "/config", nil)
	var cfg struct {
		SupportedRows []int    `json:"supported_rows"`
		Risks         []string `json:"risks"`
	}
	json.Unmarshal(w.Body.Bytes(), &cfg)
	if len(cfg.SupportedRows) == 0 || len(cfg.Risks) != 3 || cfg.Risks[2] != "high" {
		t.Errorf("config %+v", cfg)
	}
}
