package persona

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuiltin(t *testing.T) {
	r := Builtin()

	if r.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", r.Len())
	}

	wantOrder := []string{"buffett", "munger", "inamori", "dalio", "naval", "musk", "socrates", "zeng", "jung", "nietzsche"}
	for i, p := range r.All() {
		if p.ID != wantOrder[i] {
			t.Errorf("All()[%d].ID = %q, want %q", i, p.ID, wantOrder[i])
		}
		if p.Instruction == "" {
			t.Errorf("persona %q has no instruction", p.ID)
		}
	}
}

func TestDefaults(t *testing.T) {
	got := Builtin().Defaults()
	want := []string{"buffett", "munger", "inamori"}
	if len(got) != len(want) {
		t.Fatalf("Defaults() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Defaults()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDefaults_SmallRegistry(t *testing.T) {
	r, err := New([]Persona{
		{ID: "a", Instruction: "x"},
		{ID: "b", Instruction: "y"},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := r.Defaults(); len(got) != 2 {
		t.Errorf("Defaults() = %v, want 2 entries", got)
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name     string
		personas []Persona
		wantErr  string
	}{
		{"empty", nil, "empty"},
		{"missing id", []Persona{{Instruction: "x"}}, "id is required"},
		{"duplicate id", []Persona{{ID: "a", Instruction: "x"}, {ID: "a", Instruction: "y"}}, "duplicate"},
		{"missing instruction", []Persona{{ID: "a"}}, "instruction is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.personas)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestGetAndName(t *testing.T) {
	r := Builtin()

	p, ok := r.Get("socrates")
	if !ok {
		t.Fatal("socrates should exist")
	}
	if p.Name != "苏格拉底" {
		t.Errorf("Name = %q", p.Name)
	}
	if r.Name("nobody") != "" {
		t.Error("unknown id should have empty name")
	}
	if r.Has("nobody") {
		t.Error("Has(nobody) = true")
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	r := Builtin()
	all := r.All()
	all[0].Name = "changed"

	if r.Name("buffett") == "changed" {
		t.Error("mutating All() result must not change the registry")
	}
}

func TestCatalog(t *testing.T) {
	r, err := New([]Persona{
		{ID: "a", Name: "Alpha", Description: "first", Instruction: "x"},
		{ID: "b", Name: "Beta", Description: "second", Instruction: "y"},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	want := "a: Alpha (first)\nb: Beta (second)"
	if got := r.Catalog(); got != want {
		t.Errorf("Catalog() = %q, want %q", got, want)
	}
}

func TestLoad(t *testing.T) {
	r, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if r.Len() != Builtin().Len() {
		t.Error("empty path should load builtin registry")
	}

	path := filepath.Join(t.TempDir(), "personas.yaml")
	body := "- id: stoic\n  name: Marcus\n  instruction: Be calm.\n"
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	r, err = Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if r.Len() != 1 || r.Name("stoic") != "Marcus" {
		t.Errorf("unexpected registry: %+v", r.All())
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should error")
	}
}
