package memory

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
)

// Error fingerprinting: two error strings that differ only in volatile
// detail (when it happened, which process, which port, which hash) must
// collide, so recurrence counting works across runs.
var volatilePatterns = []*regexp.Regexp{
	// ISO timestamps, with optional fraction and zone.
	regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:?\d{2})?`),
	// Bare clock times.
	regexp.MustCompile(`\b\d{2}:\d{2}:\d{2}\b`),
	// UUIDs.
	regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`),
	// 0x-prefixed hex blobs.
	regexp.MustCompile(`0x[0-9a-fA-F]+`),
	// Bare hex runs long enough to be hashes or addresses.
	regexp.MustCompile(`\b[0-9a-fA-F]{7,64}\b`),
	// Process IDs in their usual spellings.
	regexp.MustCompile(`(?i)\bpid[:=\s]*\d+`),
	// Port suffixes.
	regexp.MustCompile(`:\d{2,5}\b`),
	// All whitespace last, so the survivors pack tightly.
	regexp.MustCompile(`\s+`),
}

// Fingerprint returns a stable MD5 hex digest of errText with timestamps,
// PIDs, ports, UUIDs, hex blobs, and whitespace stripped.
func Fingerprint(errText string) string {
	cleaned := errText
	for _, re := range volatilePatterns {
		cleaned = re.ReplaceAllString(cleaned, "")
	}
	sum := md5.Sum([]byte(cleaned))
	return hex.EncodeToString(sum[:])
}
