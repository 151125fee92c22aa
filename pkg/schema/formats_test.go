package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const testJWT = "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9." +
	"eyJzdWIiOiIxMjM0NTY3ODkwIiwibmFtZSI6IkpvaG4gRG9lIiwiaWF0IjoxNTE2MjM5MDIyfQ." +
	"SflKxwRJSMeKKF2QT4fwpMeJf36POk6yJV_adQssw5c"

func TestValidateFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format string
		value  string
		valid  bool
	}{
		{"email", "user@example.com", true},
		{"email", "User <user@example.com>", false},
		{"email", "user@localhost", false},
		{"uuid", "550e8400-e29b-41d4-a716-446655440000", true},
		{"uuid", "550e8400e29b41d4a716446655440000", false},
		{"uuid", "not-a-uuid", false},
		{"date", "2024-02-29", true},
		{"date", "2024-02-30", false},
		{"date-time", "2024-01-15T10:30:00Z", true},
		{"datetime", "2024-01-15 10:30:00", true},
		{"date-time", "yesterday", false},
		{"uri", "https://example.com/path", true},
		{"uri", "/relative", false},
		{"ipv4", "192.168.1.1", true},
		{"ipv4", "::1", false},
		{"ipv6", "::1", true},
		{"ip", "10.0.0.1", true},
		{"hostname", "api.example.com", true},
		{"hostname", "-bad-.com", false},
		{"jwt", testJWT, true},
		{"jwt", "Bearer " + testJWT, true},
		{"jwt", "Bearer abc.def", false},
		{"jwt", "a.b.c", false},
		{"EMAIL", "user@example.com", true},
		{"unknown-format", "anything", true},
	}

	for _, tt := range tests {
		t.Run(tt.format+"/"+tt.value, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.valid, ValidateFormat(tt.format, tt.value))
		})
	}
}

func TestRegisterFormat(t *testing.T) {
	RegisterFormat("even-length", func(value string) bool { return len(value)%2 == 0 })

	assert.True(t, IsKnownFormat("Even-Length"))
	assert.True(t, ValidateFormat("even-length", "ab"))
	assert.False(t, ValidateFormat("even-length", "abc"))
	assert.False(t, IsKnownFormat("odd-length"))
}
