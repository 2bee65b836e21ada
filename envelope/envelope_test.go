package envelope

import (
	"strings"
	"testing"
	"time"

	"logpipe/level"
)

func fixedBuilder() *Builder {
	b := NewBuilder("test-logger", OriginNative)
	b.Clock = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 6000000, time.UTC) }
	var n int
	b.NewID = func() string {
		n++
		return "id-" + string(rune('0'+n))
	}
	return b
}

func TestBuild_RequiredFieldsNeverMissing(t *testing.T) {
	b := fixedBuilder()
	e := b.Build(level.Info, "hello", nil, nil, nil)

	if e.SchemaVersion != SchemaVersion {
		t.Errorf("SchemaVersion = %q, want %q", e.SchemaVersion, SchemaVersion)
	}
	if e.MessageID == "" {
		t.Error("MessageID should never be empty")
	}
	if e.Timestamp.IsZero() {
		t.Error("Timestamp should never be zero")
	}
	if e.Message != "hello" {
		t.Errorf("Message = %q, want %q", e.Message, "hello")
	}
}

func TestBuild_CorrelationIDAlwaysPresent(t *testing.T) {
	b := fixedBuilder()
	e := b.Build(level.Info, "hello", nil, nil, nil)

	v, ok := e.Context["correlation_id"]
	if !ok {
		t.Fatal("correlation_id should always be present in context")
	}
	if v != nil {
		t.Errorf("correlation_id = %v, want nil when unbound", v)
	}
}

func TestBuild_DataFlattenedNotNested(t *testing.T) {
	b := fixedBuilder()
	data := Map{"already": "there"}
	e := b.Build(level.Info, "hello", nil, data, nil)

	if e.Data["already"] != "there" {
		t.Errorf("expected data.already to be preserved, got %v", e.Data)
	}
	if _, ok := e.Data["data"]; ok {
		t.Error("data must not be nested under data.data")
	}
}

func TestBuild_SensitiveMaskedRecursively(t *testing.T) {
	b := fixedBuilder()
	sensitive := Map{"ssn": "123-45-6789", "nested": Map{"pin": "4321"}}
	e := b.Build(level.Info, "hello", nil, nil, sensitive)

	got, ok := e.Data["sensitive"].(Map)
	if !ok {
		t.Fatalf("expected data.sensitive to be a Map, got %T", e.Data["sensitive"])
	}
	if got["ssn"] != maskedValue {
		t.Errorf("ssn = %v, want masked", got["ssn"])
	}
	nested, ok := got["nested"].(Map)
	if !ok {
		t.Fatalf("expected nested sensitive map to survive masking, got %T", got["nested"])
	}
	if nested["pin"] != maskedValue {
		t.Errorf("nested.pin = %v, want masked", nested["pin"])
	}
}

func TestBuild_SensitiveNeverLeaksPlaintext(t *testing.T) {
	b := fixedBuilder()
	e := b.Build(level.Info, "hello", nil, nil, Map{"ssn": "123-45-6789"})

	out, err := Serialize(e)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	if strings.Contains(string(out), "123-45-6789") {
		t.Error("serialized output must not contain plaintext sensitive value")
	}
}

func TestSerializeParse_RoundTrip(t *testing.T) {
	b := fixedBuilder()
	e := b.Build(level.Error, "boom", Map{"request_id": "r-1"}, Map{"count": float64(3)}, nil)

	raw, err := Serialize(e)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	w, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if w.SchemaVersion != e.SchemaVersion {
		t.Errorf("SchemaVersion round-trip = %q, want %q", w.SchemaVersion, e.SchemaVersion)
	}
	if w.MessageID != e.MessageID {
		t.Errorf("MessageID round-trip = %q, want %q", w.MessageID, e.MessageID)
	}
	if w.Message != e.Message {
		t.Errorf("Message round-trip = %q, want %q", w.Message, e.Message)
	}
	if w.Level != e.Level.Name() {
		t.Errorf("Level round-trip = %q, want %q", w.Level, e.Level.Name())
	}
}

func TestMapMerge_NestedMapsMergeRecursively(t *testing.T) {
	base := Map{"a": Map{"x": 1, "y": 2}}
	merged := base.Merge(Map{"a": Map{"y": 3, "z": 4}})

	a, ok := merged["a"].(Map)
	if !ok {
		t.Fatalf("expected merged.a to be a Map, got %T", merged["a"])
	}
	if a["x"] != 1 || a["y"] != 3 || a["z"] != 4 {
		t.Errorf("merge result = %v, want {x:1 y:3 z:4}", a)
	}
	if _, ok := base["a"].(Map)["z"]; ok {
		t.Error("Merge must not mutate the receiver")
	}
}

func TestMapClone_DeepCopyIndependent(t *testing.T) {
	base := Map{"nested": Map{"v": 1}}
	clone := base.Clone()
	clone["nested"].(Map)["v"] = 2

	if base["nested"].(Map)["v"] != 1 {
		t.Error("Clone must produce an independent deep copy")
	}
}
