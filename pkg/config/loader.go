package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/getmockd/routeval/pkg/validation"
)

// Common errors for configuration loading.
var (
	ErrFileNotFound     = errors.New("configuration file not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidJSON      = errors.New("invalid JSON syntax")
	ErrInvalidYAML      = errors.New("invalid YAML syntax")
	ErrEmptyFile        = errors.New("configuration file is empty")
	ErrNoRoutes         = errors.New("no routes defined")
)

// Load reads routes from a route file or an OpenAPI document, which is
// recognized by its top-level "openapi" key. http(s) URLs are loaded as
// OpenAPI documents. Every schema is compiled, so a nil error means every
// route is usable.
func Load(source string) (map[string]*validation.Config, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		doc, err := LoadSpecFromURL(source)
		if err != nil {
			return nil, err
		}
		return RoutesFromOpenAPI(doc)
	}

	data, err := readFile(source)
	if err != nil {
		return nil, err
	}

	if isOpenAPI(data, source) {
		doc, err := LoadSpec(source)
		if err != nil {
			return nil, err
		}
		return RoutesFromOpenAPI(doc)
	}

	file, err := parse(data, source)
	if err != nil {
		return nil, err
	}
	return file.Build()
}

// LoadFromFile reads a RouteFile from a JSON or YAML file.
// The format is auto-detected based on file extension (.yaml, .yml for YAML, otherwise JSON).
// Returns wrapped errors for common failure cases.
func LoadFromFile(path string) (*RouteFile, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return parse(data, path)
}

func parse(data []byte, path string) (*RouteFile, error) {
	var (
		file *RouteFile
		err  error
	)
	if isYAML(path) {
		file, err = ParseYAML(data)
	} else {
		if !json.Valid(data) {
			return nil, fmt.Errorf("%w in file: %s", ErrInvalidJSON, path)
		}
		file, err = ParseJSON(data)
	}
	if err != nil {
		return nil, err
	}

	file.dir = filepath.Dir(path)
	return file, nil
}

func readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}
	return data, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// isOpenAPI reports whether data is an OpenAPI document rather than a
// route file.
func isOpenAPI(data []byte, path string) bool {
	var head struct {
		OpenAPI string `json:"openapi" yaml:"openapi"`
	}
	if isYAML(path) {
		_ = yaml.Unmarshal(data, &head)
	} else {
		_ = json.Unmarshal(data, &head)
	}
	return head.OpenAPI != ""
}

// ParseJSON parses JSON bytes into a RouteFile with validation.
func ParseJSON(data []byte) (*RouteFile, error) {
	var file RouteFile

	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if err := file.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &file, nil
}

// ParseYAML parses YAML bytes into a RouteFile with validation.
func ParseYAML(data []byte) (*RouteFile, error) {
	var file RouteFile

	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	if err := file.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &file, nil
}
