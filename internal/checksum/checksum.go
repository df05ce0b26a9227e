package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Tracker remembers the digest of the last content this process wrote per
// file name, so file-system events caused by our own writes can be ignored.
type Tracker struct {
	mu   sync.Mutex
	sums map[string]string
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{sums: make(map[string]string)}
}

// Record stores the digest of data as the latest self-write of name.
func (t *Tracker) Record(name string, data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sums[name] = Sum(data)
}

// Forget drops what is known about name.
func (t *Tracker) Forget(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sums, name)
}

// Matches reports whether data is exactly what this process last wrote to name.
func (t *Tracker) Matches(name string, data []byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	sum, ok := t.sums[name]
	return ok && sum == Sum(data)
}

// Known reports whether name was written or removed by this process and not
// forgotten since.
func (t *Tracker) Known(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.sums[name]
	return ok
}
