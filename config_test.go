package dfskit_test

import (
	"reflect"
	"testing"

	"github.com/dfskit/dfskit"
)

func TestConfigWithImmutable(t *testing.T) {
	base := dfskit.NewConfig(map[string]string{"a": "1"})
	derived := base.With("b", "2")

	if _, ok := base.Get("b"); ok {
		t.Error("With modified the receiver")
	}
	if v, ok := derived.Get("a"); !ok || v != "1" {
		t.Errorf("derived lost inherited key: (%q, %v)", v, ok)
	}
	if v, ok := derived.Get("b"); !ok || v != "2" {
		t.Errorf("derived missing new key: (%q, %v)", v, ok)
	}
}

func TestNewConfigCopies(t *testing.T) {
	m := map[string]string{"k": "v"}
	cfg := dfskit.NewConfig(m)
	m["k"] = "mutated"

	if v, _ := cfg.Get("k"); v != "v" {
		t.Errorf("NewConfig shares caller map: got %q", v)
	}
}

func TestConfigAccessors(t *testing.T) {
	cfg := dfskit.DefaultConfig().
		With("str", "hello").
		With("num", "42").
		With("bad", "not-a-number").
		With("off", "false").
		With("zero", "0").
		With("on", "true")

	if got := cfg.GetDefault("str", "def"); got != "hello" {
		t.Errorf("GetDefault = %q", got)
	}
	if got := cfg.GetDefault("missing", "def"); got != "def" {
		t.Errorf("GetDefault missing = %q", got)
	}
	if got := cfg.Int("num", 7); got != 42 {
		t.Errorf("Int = %d", got)
	}
	if got := cfg.Int("bad", 7); got != 7 {
		t.Errorf("Int unparsable = %d, want default", got)
	}
	if got := cfg.Int("missing", 7); got != 7 {
		t.Errorf("Int missing = %d, want default", got)
	}
	if cfg.Bool("off", true) || cfg.Bool("zero", true) {
		t.Error("Bool: false/0 should be false")
	}
	if !cfg.Bool("on", false) {
		t.Error("Bool: true should be true")
	}
	if !cfg.Bool("missing", true) {
		t.Error("Bool: missing should use default")
	}
}

func TestConfigKeysSorted(t *testing.T) {
	cfg := dfskit.DefaultConfig().With("z", "1").With("a", "2").With("m", "3")
	want := []string{"a", "m", "z"}
	if got := cfg.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys = %v, want %v", got, want)
	}
}
