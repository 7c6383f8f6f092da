package logger

import "testing"

func TestNewSetsGlobals(t *testing.T) {
	old := SetServiceName("test")
	defer SetServiceName(old)

	l, err := New("debug")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if InfoLogger != l || FatalLogger != l {
		t.Fatal("globals not set")
	}
	Info("hello %s", "world")

	if _, err := New("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
