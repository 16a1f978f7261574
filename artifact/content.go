package artifact

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// ContentID returns the content-addressed identifier for data: a hex
// encoded BLAKE3 digest. Two Put calls with identical bytes (even across
// sessions) resolve to the same ArtifactID, so repeated offloads of the
// same payload within a session are de-duplicated for free.
func ContentID(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
