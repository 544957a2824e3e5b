package fairness

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// seedReader is the entropy source for server seeds.
var seedReader io.Reader = rand.Reader

// GenerateServerSeed returns a fresh random server seed and its sha256
// commitment. The hash is published before any drop; the seed is revealed on
// rotation.
func GenerateServerSeed() (seed string, hash string, err error) {
	bytes := make([]byte, 32)
	if _, err := io.ReadFull(seedReader, bytes); err != nil {
		return "", "", fmt.Errorf("generate server seed: %w", err)
	}

	seed = hex.EncodeToString(bytes)
	return seed, HashSeed(seed), nil
}

// HashSeed returns the hex sha256 of seed.
func HashSeed(seed string) string {
	h := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(h[:])
}

// VerifySeed checks a revealed seed against its commitment.
func VerifySeed(seed, hash string) bool {
	return hmac.Equal([]byte(HashSeed(seed)), []byte(hash))
}

// Floats derives count uniform floats in [0, 1) from the seed pair and nonce.
// Each HMAC-SHA256(serverSeed, "clientSeed:nonce:round") block yields eight
// floats of four bytes each.
func Floats(serverSeed, clientSeed string, nonce uint64, count int) []float64 {
	out := make([]float64, 0, count)
	for round := 0; len(out) < count; round++ {
		mac := hmac.New(sha256.New, []byte(serverSeed))
		fmt.Fprintf(mac, "%s:%d:%d", clientSeed, nonce, round)
		block := mac.Sum(nil)
		for i := 0; i+4 <= len(block) && len(out) < count; i += 4 {
			f := 0.0
			div := 256.0
			for _, b := range block[i : i+4] {
				f += float64(b) / div
				div *= 256
			}
			out = append(out, f)
		}
	}
	return out
}

// SlotFromFloats treats each float as one pin: >= 0.5 bounces right. The slot
// is the number of right bounces.
func SlotFromFloats(floats []float64) int {
	slot := 0
	for _, f := range floats {
		if f >= 0.5 {
			slot++
		}
	}
	return slot
}

// DeriveSlot computes the slot a seeded drop must land in.
func DeriveSlot(serverSeed, clientSeed string, nonce uint64, rows int) int {
	return SlotFromFloats(Floats(serverSeed, clientSeed, nonce, rows))
}
