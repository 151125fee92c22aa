package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ohler55/ojg/jp"
)

// root is the JSONPath of the validated value itself.
func root() jp.Expr {
	return jp.R()
}

// child returns p extended by key. p is never modified.
func child(p jp.Expr, key string) jp.Expr {
	out := make(jp.Expr, len(p), len(p)+1)
	copy(out, p)
	return append(out, jp.Child(key))
}

// index returns p extended by an array index. p is never modified.
func index(p jp.Expr, i int) jp.Expr {
	out := make(jp.Expr, len(p), len(p)+1)
	copy(out, p)
	return append(out, jp.Nth(i))
}

// fromPointer converts JSON pointer segments ("items", "0", "name") to a
// JSONPath.
func fromPointer(parts []string) jp.Expr {
	p := root()
	for _, part := range parts {
		if part == "" {
			continue
		}
		if n, err := strconv.Atoi(part); err == nil && n >= 0 {
			p = index(p, n)
			continue
		}
		p = child(p, part)
	}
	return p
}

// parsePointer splits an RFC 6901 pointer such as "/items/0/a~1b".
func parsePointer(ptr string) []string {
	ptr = strings.TrimPrefix(ptr, "#")
	if ptr == "" || ptr == "/" {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(ptr, "/"), "/")
	for i, part := range parts {
		part = strings.ReplaceAll(part, "~1", "/")
		parts[i] = strings.ReplaceAll(part, "~0", "~")
	}
	return parts
}

// label renders p for messages: "items[0].name", or "value" for the root.
func label(p jp.Expr) string {
	var sb strings.Builder
	for _, frag := range p {
		switch f := frag.(type) {
		case jp.Child:
			if sb.Len() > 0 {
				sb.WriteByte('.')
			}
			sb.WriteString(string(f))
		case jp.Nth:
			sb.WriteByte('[')
			sb.WriteString(strconv.Itoa(int(f)))
			sb.WriteByte(']')
		}
	}
	if sb.Len() == 0 {
		return "value"
	}
	return sb.String()
}

// detail builds a Detail for the value at p. The message is prefixed with
// the quoted label.
func detail(p jp.Expr, code, format string, args ...any) Detail {
	name := label(p)
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return Detail{
		Path:    p.String(),
		Field:   name,
		Code:    code,
		Message: strconv.Quote(name) + " " + msg,
	}
}
