package conversation

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// InRollout deterministically buckets a user into a percentage rollout.
// The same user id always lands in the same bucket, so widening the
// percentage only ever adds users.
func InRollout(userID string, pct int) bool {
	if pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}

	sum := sha256.Sum256([]byte(userID))
	digest := hex.EncodeToString(sum[:])
	val, err := strconv.ParseUint(digest[:8], 16, 64)
	if err != nil {
		return false
	}
	return int(val%100) < pct
}
