package monitoring

import "testing"

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) { got = format })
	Logf("frame type %#x", 0x1B)
	if got != "frame type %#x" {
		t.Errorf("custom logger got %q", got)
	}

	// nil installs a no-op, not a nil function.
	SetLogger(nil)
	if Logf == nil {
		t.Fatal("Logf is nil after SetLogger(nil)")
	}
	got = ""
	Logf("dropped")
	if got != "" {
		t.Errorf("no-op logger leaked call %q", got)
	}
}

func TestDefaultLogger(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf should default to a usable logger")
	}
	Logf("default logger: %s", "ok")
}
