package dfskit

import (
	"sort"
	"strconv"
)

// Well-known configuration keys understood by the core layer.
// Backend packages document their own keys (e.g. "hdfs.user", "s3.region").
const (
	// ConfigBufferSize sets the buffer size, in bytes, for line readers
	// and writers. Default: 65536.
	ConfigBufferSize = "io.buffer.size"
)

// Config is an immutable set of string key/value options controlling
// filesystem resolution and stream behavior. The zero value is a valid
// empty configuration.
//
// Config is explicitly passed to operations rather than held as process
// global state; use With to derive modified copies.
type Config struct {
	kv map[string]string
}

// DefaultConfig returns an empty configuration. All keys fall back to
// their documented defaults.
func DefaultConfig() Config {
	return Config{}
}

// NewConfig returns a configuration holding a copy of the given key/value set.
func NewConfig(kv map[string]string) Config {
	if len(kv) == 0 {
		return Config{}
	}
	m := make(map[string]string, len(kv))
	for k, v := range kv {
		m[k] = v
	}
	return Config{kv: m}
}

// With returns a copy of the configuration with one key set.
// The receiver is not modified.
func (c Config) With(key, value string) Config {
	m := make(map[string]string, len(c.kv)+1)
	for k, v := range c.kv {
		m[k] = v
	}
	m[key] = value
	return Config{kv: m}
}

// Get returns the value for a key and whether it was set.
func (c Config) Get(key string) (string, bool) {
	v, ok := c.kv[key]
	return v, ok
}

// GetDefault returns the value for a key, or def when unset.
func (c Config) GetDefault(key, def string) string {
	if v, ok := c.kv[key]; ok {
		return v
	}
	return def
}

// Int returns the integer value for a key, or def when unset or unparsable.
func (c Config) Int(key string, def int) int {
	v, ok := c.kv[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Bool returns the boolean value for a key, or def when unset.
// Any value other than "false" and "0" is true.
func (c Config) Bool(key string, def bool) bool {
	v, ok := c.kv[key]
	if !ok {
		return def
	}
	return v != "false" && v != "0"
}

// Keys returns the set keys in sorted order.
func (c Config) Keys() []string {
	keys := make([]string, 0, len(c.kv))
	for k := range c.kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
