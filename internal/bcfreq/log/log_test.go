package log

import "testing"

func TestRecoverPanicRunsCleanup(t *testing.T) {
	called := false
	func() {
		defer RecoverPanic("test", func() { called = true })
		panic("boom")
	}()
	if !called {
		t.Fatal("cleanup not called after panic")
	}
}

func TestRecoverPanicNoPanic(t *testing.T) {
	called := false
	func() {
		defer RecoverPanic("test", func() { called = true })
	}()
	if called {
		t.Fatal("cleanup called without a panic")
	}
}

func TestSetupOnce(t *testing.T) {
	Setup("warn", false)
	Setup("debug", true)
	if !Initialized() {
		t.Fatal("Initialized() = false after Setup")
	}
	if err := Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
