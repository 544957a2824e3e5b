package fairness

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/playmatatu/plinko/internal/game"
)

func TestServerSeedCommitment(t *testing.T) {
	seed, hash, err := GenerateServerSeed()
	if err != nil {
		t.Fatal(err)
	}
	if len(seed) != 64 || len(hash) != 64 {
		t.Fatalf("seed=%q hash=%q", seed, hash)
	}
	if !VerifySeed(seed, hash) {
		t.Error("seed does not verify against its own hash")
	}
	if VerifySeed(seed+"0", hash) {
		t.Error("tampered seed verified")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestServerSeedEntropyFailure(t *testing.T) {
	orig := seedReader
	seedReader = failingReader{}
	defer func() { seedReader = orig }()

	if seed, hash, err := GenerateServerSeed(); err == nil || seed != "" || hash != "" {
		t.Errorf("got seed=%q hash=%q err=%v, want error", seed, hash, err)
	}
	if s, err := NewSeededSource("a"); err == nil || s != nil {
		t.Error("NewSeededSource succeeded without entropy")
	}
	if _, err := NewRegistry(nil).Source(context.Background(), "b", ""); err == nil {
		t.Error("Registry.Source succeeded without entropy")
	}
}

func newSource(t *testing.T, clientSeed string) *SeededSource {
	t.Helper()
	s, err := NewSeededSource(clientSeed)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestFloatsDeterministicAndInRange(t *testing.T) {
	a := Floats("server", "client", 3, 20)
	b := Floats("server", "client", 3, 20)
	if len(a) != 20 {
		t.Fatalf("got %d floats", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("float %d differs between runs", i)
		}
		if a[i] < 0 || a[i] >= 1 {
			t.Errorf("float %d out of range: %v", i, a[i])
		}
	}
	c := Floats("server", "client", 4, 20)
	same := 0
	for i := range a {
		if a[i] == c[i] {
			same++
		}
	}
	if same == len(a) {
		t.Error("different nonces gave identical floats")
	}
	// The first eight floats come from round 0 regardless of count.
	if short := Floats("server", "client", 3, 8); short[7] != a[7] {
		t.Error("float stream depends on requested count")
	}
}

func TestDeriveSlotIsBinomial(t *testing.T) {
	const rows, n = 8, 4000
	counts := make([]int, rows+1)
	for nonce := uint64(0); nonce < n; nonce++ {
		slot := DeriveSlot("server-seed", "client-seed", nonce, rows)
		if slot < 0 || slot > rows {
			t.Fatalf("slot %d out of range", slot)
		}
		counts[slot]++
	}
	mean := 0.0
	for k, c := range counts {
		mean += float64(k * c)
	}
	mean /= n
	if math.Abs(mean-rows/2.0) > 0.15 {
		t.Errorf("mean slot %.3f, want about %d", mean, rows/2)
	}
	if counts[rows/2] < counts[0] || counts[rows/2] < counts[rows] {
		t.Errorf("center slot not the most common: %v", counts)
	}
}

func TestSeededSourceRotateAndVerify(t *testing.T) {
	s := newSource(t, "lucky")
	before := s.State()
	if before.ServerSeed != "" {
		t.Fatal("State leaked the server seed")
	}

	var slots []int
	for i := 0; i < 3; i++ {
		slot, err := s.TargetSlot(context.Background(), 12, game.RiskHigh, 1)
		if err != nil || slot == nil {
			t.Fatalf("TargetSlot: %v %v", slot, err)
		}
		slots = append(slots, *slot)
	}
	last, ok := s.LastRoll()
	if !ok || last.Nonce != 2 || last.Slot != slots[2] {
		t.Errorf("last roll %+v", last)
	}

	revealed, err := s.Rotate()
	if err != nil {
		t.Fatal(err)
	}
	if revealed.ServerSeedHash != before.ServerSeedHash || revealed.Nonce != 3 {
		t.Errorf("revealed %+v, committed %+v", revealed, before)
	}
	for nonce, slot := range slots {
		if !Verify(revealed.ServerSeed, revealed.ServerSeedHash, "lucky", uint64(nonce), 12, slot) {
			t.Errorf("nonce %d slot %d does not verify", nonce, slot)
		}
	}
	if after := s.State(); after.ServerSeedHash == before.ServerSeedHash || after.Nonce != 0 {
		t.Errorf("rotation did not commit a new seed: %+v", after)
	}
}

func TestSetClientSeedBeforeFirstRoll(t *testing.T) {
	s := newSource(t, "a")
	hash := s.State().ServerSeedHash
	revealed, err := s.SetClientSeed("b")
	if err != nil || revealed != nil {
		t.Fatalf("revealed %+v err %v", revealed, err)
	}
	if st := s.State(); st.ServerSeedHash != hash || st.ClientSeed != "b" || st.Nonce != 0 {
		t.Errorf("state %+v", st)
	}
	if _, ok := s.Previous(); ok {
		t.Error("unused seed was revealed")
	}
}

func TestSetClientSeedCannotReplayRolls(t *testing.T) {
	type key struct {
		hash, client string
		nonce        uint64
	}
	s := newSource(t, "a")
	seen := map[key]bool{}
	roll := func() Roll {
		t.Helper()
		if _, err := s.TargetSlot(context.Background(), 8, game.RiskLow, 1); err != nil {
			t.Fatal(err)
		}
		r, _ := s.LastRoll()
		k := key{r.ServerSeedHash, r.ClientSeed, r.Nonce}
		if seen[k] {
			t.Fatalf("roll repeated for %+v", k)
		}
		seen[k] = true
		return r
	}

	first := roll()
	roll()
	if revealed, err := s.SetClientSeed("a"); err != nil || revealed != nil || s.State().Nonce != 2 {
		t.Fatalf("same client seed changed state: %+v %v", revealed, err)
	}

	revealed, err := s.SetClientSeed("b")
	if err != nil || revealed == nil {
		t.Fatalf("switching client seed did not rotate: %v", err)
	}
	if revealed.ServerSeedHash != first.ServerSeedHash || revealed.ClientSeed != "a" || revealed.Nonce != 2 {
		t.Errorf("revealed %+v", revealed)
	}
	if !VerifySeed(revealed.ServerSeed, first.ServerSeedHash) {
		t.Error("revealed seed does not match its commitment")
	}
	if prev, ok := s.Previous(); !ok || prev.ServerSeedHash != first.ServerSeedHash {
		t.Errorf("previous %+v", prev)
	}
	roll()

	if _, err := s.SetClientSeed("a"); err != nil {
		t.Fatal(err)
	}
	back := roll()
	if back.ServerSeedHash == first.ServerSeedHash {
		t.Error("returning to the first client seed reused its server seed")
	}
	if back.Nonce != 0 || back.ClientSeed != "a" {
		t.Errorf("roll after switching back %+v", back)
	}
}

func TestRandomSourceRange(t *testing.T) {
	s := NewRandomSource(1)
	for i := 0; i < 500; i++ {
		slot, _ := s.TargetSlot(context.Background(), 16, game.RiskMedium, 1)
		if *slot < 0 || *slot > 16 {
			t.Fatalf("slot %d out of range", *slot)
		}
	}
	if slot, err := (FreeSource{}).TargetSlot(context.Background(), 8, game.RiskLow, 1); slot != nil || err != nil {
		t.Errorf("FreeSource returned %v, %v", slot, err)
	}
}

func TestRegistryInMemory(t *testing.T) {
	r := NewRegistry(nil)
	ctx := context.Background()
	a, err := r.Source(ctx, "board-1", "")
	if err != nil {
		t.Fatal(err)
	}
	if a.State().ClientSeed != "board-1" {
		t.Errorf("default client seed %q", a.State().ClientSeed)
	}
	if b, err := r.Source(ctx, "board-1", "mine"); err != nil || b != a || b.State().ClientSeed != "mine" {
		t.Error("registry did not reuse the board's source")
	}
	hash := a.State().ServerSeedHash
	revealed, err := r.Rotate(ctx, "board-1")
	if err != nil {
		t.Fatal(err)
	}
	if revealed.ServerSeedHash != hash || !VerifySeed(revealed.ServerSeed, hash) {
		t.Errorf("revealed %+v", revealed)
	}
	if err := r.Save(ctx, "board-1"); err != nil {
		t.Errorf("Save without redis: %v", err)
	}
}

func TestRegistryClientSeedChangeRotates(t *testing.T) {
	r := NewRegistry(nil)
	ctx := context.Background()
	s, err := r.Source(ctx, "board-2", "a")
	if err != nil {
		t.Fatal(err)
	}
	hash := s.State().ServerSeedHash
	if _, err := s.TargetSlot(ctx, 8, game.RiskLow, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Source(ctx, "board-2", "b"); err != nil {
		t.Fatal(err)
	}
	st := s.State()
	if st.ServerSeedHash == hash || st.ClientSeed != "b" || st.Nonce != 0 {
		t.Errorf("state after client seed change %+v", st)
	}
	if prev, ok := s.Previous(); !ok || !VerifySeed(prev.ServerSeed, hash) {
		t.Errorf("previous %+v", prev)
	}
}
