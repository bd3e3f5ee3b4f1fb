// Package config loads the key=value text configuration file.
// One k = v pair per line; '#' starts a comment that runs to
// end of line (including the trailing-comment form "k = v # comment"),
// blank lines are skipped, and whitespace around '=' is trimmed.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config is an immutable snapshot of a parsed key=value file.
type Config struct {
	values map[string]string
}

// Load reads and parses the file at path. It mirrors the original
// implementation's fail-fast startup behavior: a missing file or a line
// that isn't in k=v form is a fatal configuration error.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrConfig, path, err)
	}
	defer f.Close()

	values := make(map[string]string)
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if pos := strings.IndexByte(line, '#'); pos >= 0 {
			line = line[:pos]
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: %s:%d: %q is not a k=v line", ErrConfig, path, lineNo, line)
		}
		k := strings.TrimSpace(parts[0])
		v := strings.TrimSpace(parts[1])
		values[k] = v
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrConfig, path, err)
	}
	return &Config{values: values}, nil
}

// With returns a copy of c with k set to v, mirroring the original's
// builder-style override used to seed test fixtures and CLI overlays.
func (c *Config) With(k, v string) *Config {
	out := make(map[string]string, len(c.values)+1)
	for key, val := range c.values {
		out[key] = val
	}
	out[k] = v
	return &Config{values: out}
}

// String returns the raw value for k, if present.
func (c *Config) String(k string) (string, bool) {
	v, ok := c.values[k]
	return v, ok
}

// Int returns k parsed as an int, if present and well-formed.
func (c *Config) Int(k string) (int, bool) {
	v, ok := c.values[k]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Float returns k parsed as a float32, if present and well-formed.
func (c *Config) Float(k string) (float32, bool) {
	v, ok := c.values[k]
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return 0, false
	}
	return float32(n), true
}

// Bool returns whether k is present and equal to "true".
func (c *Config) Bool(k string) bool {
	return c.values[k] == "true"
}

// MustInt returns k parsed as an int or panics. Used only at startup in
// cmd/hubd, mirroring the original's .unwrap() fail-fast style: a missing
// or malformed required key should abort the process immediately rather
// than propagate a zero value into the runtime.
func (c *Config) MustInt(k string) int {
	n, ok := c.Int(k)
	if !ok {
		panic(fmt.Sprintf("config: required int key %q missing or invalid", k))
	}
	return n
}

// MustString returns k or panics.
func (c *Config) MustString(k string) string {
	v, ok := c.String(k)
	if !ok {
		panic(fmt.Sprintf("config: required string key %q missing", k))
	}
	return v
}

// IntOr returns k parsed as an int, or def if absent/invalid.
func (c *Config) IntOr(k string, def int) int {
	if n, ok := c.Int(k); ok {
		return n
	}
	return def
}

// StringOr returns k, or def if absent.
func (c *Config) StringOr(k string, def string) string {
	if v, ok := c.String(k); ok {
		return v
	}
	return def
}
