// Package signing builds the per-request authentication pair expected by the
// telemetry API. Every request carries a millisecond timestamp and an MD5
// digest over the endpoint identifier, the secret token, and that timestamp;
// the remote side uses the pair to reject replayed requests.
package signing

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"time"
)

// Pair is a single-use (signature, timestamp) pair. It must be attached to
// exactly one request and never reused.
type Pair struct {
	// Signature is the hex-encoded MD5 digest.
	Signature string

	// Timestamp is the sampling time as a base-10 millisecond string.
	Timestamp string
}

// Signer produces request signatures for a fixed endpoint and token.
type Signer struct {
	endpoint string
	token    string
	now      func() time.Time
}

// New creates a signer for the given endpoint identifier and secret token.
func New(endpoint, token string) *Signer {
	return &Signer{
		endpoint: endpoint,
		token:    token,
		now:      time.Now,
	}
}

// Sign samples a fresh timestamp and derives the signature for it.
func (s *Signer) Sign() Pair {
	ts := strconv.FormatInt(s.now().UnixMilli(), 10)
	return Pair{
		Signature: Digest(s.endpoint, s.token, ts),
		Timestamp: ts,
	}
}

// Digest computes the hex-encoded MD5 digest over
// endpoint || token || timestamp, concatenated with no separators.
func Digest(endpoint, token, timestamp string) string {
	sum := md5.Sum([]byte(endpoint + token + timestamp))
	return hex.EncodeToString(sum[:])
}

// SetClock overrides the timestamp source (for testing).
func (s *Signer) SetClock(now func() time.Time) {
	s.now = now
}
