package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// DefaultMaxBodyBytes limits how much of a request body is read for
// validation.
const DefaultMaxBodyBytes = 10 << 20

// Body encodings understood by the middleware.
const (
	encodingJSON = "json"
	encodingForm = "form"
)

// requestError is a failure to read a request target before it can be
// validated.
type requestError struct {
	status int
	msg    string
	err    error
}

func (e *requestError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *requestError) Unwrap() error   { return e.err }
func (e *requestError) StatusCode() int { return e.status }

// Collect returns the raw value of a request target in the shape handed to
// schemas: params, query and headers as map[string]any (repeated keys as
// []any, header names lower-cased), the body as decoded JSON or a form map.
// The request body is restored after reading.
func Collect(r *http.Request, t Target) (any, error) {
	return collect(r, t, DefaultMaxBodyBytes)
}

func collect(r *http.Request, t Target, maxBody int64) (any, error) {
	switch t {
	case TargetParams:
		return pathParams(r), nil
	case TargetQuery:
		return valuesToMap(r.URL.Query(), false), nil
	case TargetHeaders:
		return valuesToMap(url.Values(r.Header), true), nil
	case TargetBody:
		return readBody(r, maxBody)
	}
	return nil, fmt.Errorf("validation: %q is not a request target", t)
}

// fieldNamer is implemented by schemas that declare their field names,
// such as schema.Object.
type fieldNamer interface {
	FieldNames() []string
}

// matchHeaderNames renames collected lower-case header keys to the field
// names a header schema declares, so "Authorization" matches
// "authorization".
func matchHeaderNames(headers any, s Schema) any {
	fn, ok := s.(fieldNamer)
	if !ok {
		return headers
	}
	m, ok := headers.(map[string]any)
	if !ok {
		return headers
	}
	for _, name := range fn.FieldNames() {
		lower := strings.ToLower(name)
		if lower == name {
			continue
		}
		if v, ok := m[lower]; ok {
			delete(m, lower)
			m[name] = v
		}
	}
	return m
}

// pathParams reads the wildcards of the pattern that routed r.
func pathParams(r *http.Request) map[string]any {
	params := make(map[string]any)
	for _, name := range patternWildcards(r.Pattern) {
		params[name] = r.PathValue(name)
	}
	return params
}

// patternWildcards lists the wildcard names of a ServeMux pattern such as
// "GET example.com/users/{id}/{path...}".
func patternWildcards(pattern string) []string {
	i := strings.IndexByte(pattern, '/')
	if i < 0 {
		return nil
	}
	var names []string
	for _, seg := range strings.Split(pattern[i:], "/") {
		if len(seg) < 3 || seg[0] != '{' || seg[len(seg)-1] != '}' {
			continue
		}
		name := strings.TrimSuffix(seg[1:len(seg)-1], "...")
		if name == "" || name == "$" {
			continue
		}
		names = append(names, name)
	}
	return names
}

func valuesToMap(values map[string][]string, lowerKeys bool) map[string]any {
	m := make(map[string]any, len(values))
	for k, vs := range values {
		if lowerKeys {
			k = strings.ToLower(k)
		}
		switch len(vs) {
		case 0:
			continue
		case 1:
			m[k] = vs[0]
		default:
			list := make([]any, len(vs))
			for i, v := range vs {
				list[i] = v
			}
			m[k] = list
		}
	}
	return m
}

func bodyEncoding(r *http.Request) (string, error) {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return encodingJSON, nil
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return "", &requestError{status: http.StatusBadRequest, msg: "invalid Content-Type", err: err}
	}
	switch {
	case mediaType == "application/json", strings.HasSuffix(mediaType, "+json"):
		return encodingJSON, nil
	case mediaType == "application/x-www-form-urlencoded":
		return encodingForm, nil
	}
	return "", &requestError{
		status: http.StatusUnsupportedMediaType,
		msg:    fmt.Sprintf("unsupported body media type %q", mediaType),
	}
}

// readBody decodes the request body and puts the bytes back on r. An absent
// or blank body is an empty object.
func readBody(r *http.Request, maxBody int64) (any, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return map[string]any{}, nil
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
	_ = r.Body.Close()
	if err != nil {
		return nil, &requestError{status: http.StatusBadRequest, msg: "failed to read request body", err: err}
	}
	if int64(len(data)) > maxBody {
		return nil, &requestError{
			status: http.StatusRequestEntityTooLarge,
			msg:    fmt.Sprintf("request body exceeds %d bytes", maxBody),
		}
	}
	r.Body = io.NopCloser(bytes.NewReader(data))

	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}

	encoding, err := bodyEncoding(r)
	if err != nil {
		return nil, err
	}
	if encoding == encodingForm {
		form, err := url.ParseQuery(string(data))
		if err != nil {
			return nil, &requestError{status: http.StatusBadRequest, msg: "invalid form body", err: err}
		}
		return valuesToMap(form, false), nil
	}

	var body any
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, &requestError{status: http.StatusBadRequest, msg: "invalid JSON body", err: err}
	}
	return body, nil
}

// apply writes a coerced target value back onto the request.
func apply(r *http.Request, t Target, value any) error {
	if t == TargetBody {
		return applyBody(r, value)
	}

	m, err := toMap(value)
	if err != nil {
		return fmt.Errorf("cannot apply %s: %w", t, err)
	}
	switch t {
	case TargetParams:
		for k, v := range m {
			r.SetPathValue(k, stringify(v))
		}
	case TargetQuery:
		r.URL.RawQuery = encodeValues(m).Encode()
	case TargetHeaders:
		h := make(http.Header, len(m))
		for k, vs := range encodeValues(m) {
			for _, v := range vs {
				h.Add(k, v)
			}
		}
		r.Header = h
	}
	return nil
}

func applyBody(r *http.Request, value any) error {
	encoding, err := bodyEncoding(r)
	if err != nil {
		encoding = encodingJSON
	}

	var data []byte
	if encoding == encodingForm {
		m, err := toMap(value)
		if err != nil {
			return fmt.Errorf("cannot apply body: %w", err)
		}
		data = []byte(encodeValues(m).Encode())
	} else {
		data, err = json.Marshal(value)
		if err != nil {
			return fmt.Errorf("cannot apply body: %w", err)
		}
	}
	r.Body = io.NopCloser(bytes.NewReader(data))
	r.ContentLength = int64(len(data))
	if r.Header.Get("Content-Length") != "" {
		r.Header.Set("Content-Length", strconv.Itoa(len(data)))
	}
	return nil
}

// toMap converts a coerced value to map[string]any, going through JSON for
// typed values such as structs.
func toMap(value any) (map[string]any, error) {
	switch v := value.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%T is not an object", value)
	}
	return m, nil
}

func encodeValues(m map[string]any) url.Values {
	values := make(url.Values, len(m))
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := m[k].(type) {
		case nil:
			continue
		case []any:
			for _, item := range v {
				values.Add(k, stringify(item))
			}
		case []string:
			values[k] = append(values[k], v...)
		default:
			values.Set(k, stringify(v))
		}
	}
	return values
}

// stringify renders a scalar the way it would appear in a URL or header.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case fmt.Stringer:
		return t.String()
	}
	if data, err := json.Marshal(v); err == nil {
		return string(data)
	}
	return fmt.Sprint(v)
}
