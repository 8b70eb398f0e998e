package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// SHA256Hasher is the default content checksum. The same hasher backs
// download verification and patch idempotency probes.
type SHA256Hasher struct{}

func (SHA256Hasher) Sum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (SHA256Hasher) SumBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
