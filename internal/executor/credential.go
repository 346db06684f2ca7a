package executor

import (
	"log/slog"
)

const redacted = "[REDACTED]"

// Secret holds the elevation credential in memory. It never formats or logs
// its contents.
type Secret struct {
	b []byte
}

// NewSecret copies s into a Secret.
func NewSecret(s string) Secret {
	if s == "" {
		return Secret{}
	}
	return Secret{b: []byte(s)}
}

// SecretFromBytes takes ownership of b. The caller must not reuse it.
func SecretFromBytes(b []byte) Secret {
	return Secret{b: b}
}

// IsZero reports whether the secret is empty.
func (s Secret) IsZero() bool {
	return len(s.b) == 0
}

// line returns a fresh copy of the secret followed by a newline, which is
// what sudo -S expects on stdin.
func (s Secret) line() []byte {
	buf := make([]byte, len(s.b)+1)
	copy(buf, s.b)
	buf[len(s.b)] = '\n'
	return buf
}

// Wipe overwrites the secret in place.
func (s Secret) Wipe() {
	wipe(s.b)
}

func (s Secret) String() string {
	return redacted
}

func (s Secret) GoString() string {
	return redacted
}

// LogValue implements slog.LogValuer.
func (s Secret) LogValue() slog.Value {
	return slog.StringValue(redacted)
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
