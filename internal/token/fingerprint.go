package token

import (
	"encoding/hex"
	"os"

	"github.com/zeebo/blake3"
)

// Fingerprint derives a locally generated, stable-enough identifier for
// this installation: the same host and store path hash to the same
// fingerprint across restarts, and two installations sharing a machine get
// distinct ones through their store paths.
func Fingerprint(storePath string) string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown-host"
	}
	sum := blake3.Sum256([]byte(hostname + "|" + storePath))
	return hex.EncodeToString(sum[:16])
}
