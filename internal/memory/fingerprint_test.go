package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint_CollidesOnVolatileDetail(t *testing.T) {
	t.Parallel()

	a := Fingerprint("2026-01-21T14:55:13.123Z ERROR PID:123 connection refused 0xdead")
	b := Fingerprint("2026-02-02T09:00:00.000Z ERROR PID:8 connection refused 0xbeef")
	assert.Equal(t, a, b)
}

func TestFingerprint_Classes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b string
	}{
		{
			name: "whitespace",
			a:    "socket   closed\n\tunexpectedly",
			b:    "socket closed unexpectedly",
		},
		{
			name: "uuid",
			a:    "session 6f1e0ad2-58c7-4f2b-9d1a-0c9f6a8b1234 not found",
			b:    "session 00000000-0000-0000-0000-000000000000 not found",
		},
		{
			name: "port",
			a:    "dial tcp 127.0.0.1:8080 refused",
			b:    "dial tcp 127.0.0.1:9999 refused",
		},
		{
			name: "bare clock",
			a:    "at 14:55:13 worker died",
			b:    "at 09:00:00 worker died",
		},
		{
			name: "commit hash",
			a:    "checkout failed at deadbeefcafe1234",
			b:    "checkout failed at 0123456789abcdef",
		},
		{
			name: "pid spellings",
			a:    "killed pid=4242",
			b:    "killed PID 7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, Fingerprint(tt.a), Fingerprint(tt.b))
		})
	}
}

func TestFingerprint_DistinguishesRealDifferences(t *testing.T) {
	t.Parallel()

	assert.NotEqual(t,
		Fingerprint("connection refused"),
		Fingerprint("permission denied"),
	)
}

func TestFingerprint_Deterministic(t *testing.T) {
	t.Parallel()

	s := "ImportError: no module named requests"
	assert.Equal(t, Fingerprint(s), Fingerprint(s))
	assert.Len(t, Fingerprint(s), 32)
}
