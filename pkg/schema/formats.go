package schema

import (
	"net"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// FormatValidator reports whether value is in a named format.
type FormatValidator func(value string) bool

var (
	formatsMu sync.RWMutex

	// formats maps format names to their validation functions
	formats = map[string]FormatValidator{
		"email":     validateEmail,
		"uuid":      validateUUID,
		"date":      validateDate,
		"datetime":  validateDateTime,
		"date-time": validateDateTime,
		"uri":       validateURI,
		"url":       validateURI,
		"ipv4":      validateIPv4,
		"ipv6":      validateIPv6,
		"ip":        validateIP,
		"hostname":  validateHostname,
		"jwt":       validateJWT,
	}
)

// ValidateFormat checks if a value matches the specified format. Unknown
// formats pass.
func ValidateFormat(format, value string) bool {
	formatsMu.RLock()
	fn, ok := formats[strings.ToLower(format)]
	formatsMu.RUnlock()
	if !ok {
		return true
	}
	return fn(value)
}

// IsKnownFormat returns true if the format is recognized
func IsKnownFormat(format string) bool {
	formatsMu.RLock()
	defer formatsMu.RUnlock()
	_, ok := formats[strings.ToLower(format)]
	return ok
}

// RegisterFormat adds or replaces a named format.
func RegisterFormat(name string, fn FormatValidator) {
	formatsMu.Lock()
	defer formatsMu.Unlock()
	formats[strings.ToLower(name)] = fn
}

// Email validation using RFC 5322
func validateEmail(value string) bool {
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return false
	}
	at := strings.LastIndexByte(value, '@')
	return at > 0 && strings.Contains(value[at+1:], ".")
}

// validateUUID accepts the canonical 8-4-4-4-12 form only.
func validateUUID(value string) bool {
	return len(value) == 36 && uuid.Validate(value) == nil
}

// Date validation (ISO 8601: YYYY-MM-DD)
func validateDate(value string) bool {
	_, err := time.Parse(time.DateOnly, value)
	return err == nil
}

var dateTimeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	time.DateTime,
}

// DateTime validation (RFC 3339 and common variants)
func validateDateTime(value string) bool {
	for _, layout := range dateTimeLayouts {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}

// URI validation (RFC 3986)
func validateURI(value string) bool {
	u, err := url.Parse(value)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

func validateIPv4(value string) bool {
	ip := net.ParseIP(value)
	return ip != nil && ip.To4() != nil
}

func validateIPv6(value string) bool {
	ip := net.ParseIP(value)
	return ip != nil && ip.To4() == nil
}

func validateIP(value string) bool {
	return net.ParseIP(value) != nil
}

// Hostname validation (RFC 1123)
var hostnamePattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

func validateHostname(value string) bool {
	if len(value) > 253 {
		return false
	}
	return hostnamePattern.MatchString(value)
}

// validateJWT checks that value is a well-formed JWT, optionally preceded
// by "Bearer ". The signature is not verified.
func validateJWT(value string) bool {
	token := value
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if strings.Count(token, ".") != 2 {
		return false
	}
	_, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	return err == nil
}
