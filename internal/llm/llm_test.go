package llm

import (
	"context"
	"testing"
)

type fakeProvider struct{ name string }

func (p *fakeProvider) Name() string { return p.name }
func (p *fakeProvider) Complete(_ context.Context, prompt string) (string, error) {
	return "echo: " + prompt, nil
}

func TestProbe_Absent(t *testing.T) {
	cap := Probe("")
	if cap.Present() {
		t.Fatal("expected absent capability for empty backend name")
	}
}

func TestProbe_UnregisteredBackend(t *testing.T) {
	cap := Probe("no_such_backend")
	if cap.Present() {
		t.Fatal("expected absent capability for unregistered backend")
	}
}

func TestProbe_RegisteredBackend(t *testing.T) {
	RegisterProvider("test_backend", func() (Provider, error) {
		return &fakeProvider{name: "test_backend"}, nil
	})

	cap := Probe("test_backend")
	if !cap.Present() {
		t.Fatal("expected present capability")
	}
	if cap.Provider().Name() != "test_backend" {
		t.Fatalf("expected test_backend, got %s", cap.Provider().Name())
	}
}

func TestProbe_CaseInsensitiveName(t *testing.T) {
	RegisterProvider("Bedrock", func() (Provider, error) {
		return &fakeProvider{name: "bedrock"}, nil
	})

	if !Probe("bedrock").Present() {
		t.Fatal("expected lookup to be case-insensitive")
	}
}
