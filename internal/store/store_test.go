package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nvandessel/pneumatic/internal/document"
)

func sampleDoc(shape string) document.Doc {
	return document.Doc{
		"levels": []any{
			document.Doc{"circuit": document.Doc{"elements": []any{
				document.Doc{"type": "pipe", "shape": shape},
				document.Doc{"type": "valve", "dir": 1},
			}}},
		},
	}
}

// testSlotStore runs the behaviour every SlotStore must share.
func testSlotStore(t *testing.T, s SlotStore) {
	t.Helper()
	ctx := context.Background()

	got, err := s.Load(ctx, "missing")
	if err != nil {
		t.Fatalf("Load(missing) error = %v", err)
	}
	if got != nil {
		t.Fatalf("Load(missing) = %+v, want nil", got)
	}

	if err := s.Save(ctx, "alpha", sampleDoc("NS")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	first, err := s.Load(ctx, "alpha")
	if err != nil || first == nil {
		t.Fatalf("Load(alpha) = %v, %v", first, err)
	}
	if first.Name != "alpha" {
		t.Errorf("Name = %q, want alpha", first.Name)
	}
	if len(first.ContentHash) != 64 {
		t.Errorf("ContentHash = %q, want 64 hex chars", first.ContentHash)
	}
	levels := document.GetList(first.Doc, "levels")
	if len(levels) != 1 {
		t.Fatalf("levels = %v, want 1 entry", levels)
	}
	elems := document.GetList(document.GetMap(document.AsMap(levels[0]), "circuit"), "elements")
	if len(elems) != 2 {
		t.Fatalf("elements = %v", elems)
	}
	if got := document.GetString(document.AsMap(elems[0]), "shape", ""); got != "NS" {
		t.Errorf("shape = %q, want NS", got)
	}
	if got := document.GetInt(document.AsMap(elems[1]), "dir", -1); got != 1 {
		t.Errorf("dir = %d, want 1", got)
	}

	time.Sleep(2 * time.Millisecond)
	if err := s.Save(ctx, "alpha", sampleDoc("EW")); err != nil {
		t.Fatalf("Save() overwrite error = %v", err)
	}
	second, err := s.Load(ctx, "alpha")
	if err != nil || second == nil {
		t.Fatalf("Load(alpha) = %v, %v", second, err)
	}
	if second.ContentHash == first.ContentHash {
		t.Error("content hash unchanged after overwrite")
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt changed: %v -> %v", first.CreatedAt, second.CreatedAt)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("UpdatedAt not advanced: %v -> %v", first.UpdatedAt, second.UpdatedAt)
	}

	if err := s.Save(ctx, "beta", sampleDoc("EW")); err != nil {
		t.Fatalf("Save(beta) error = %v", err)
	}
	infos, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(infos) != 2 || infos[0].Name != "alpha" || infos[1].Name != "beta" {
		t.Fatalf("List() = %+v, want alpha, beta", infos)
	}
	if infos[0].ContentHash != infos[1].ContentHash {
		t.Error("equal documents should have equal hashes")
	}
	if infos[0].Size == 0 {
		t.Error("Size = 0")
	}

	if err := s.Delete(ctx, "alpha"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, "alpha"); err != nil {
		t.Fatalf("Delete() twice error = %v", err)
	}
	if got, _ := s.Load(ctx, "alpha"); got != nil {
		t.Error("slot still present after Delete")
	}

	for _, bad := range []string{"", "has space", "a/b", strings.Repeat("x", MaxNameLength+1)} {
		if err := s.Save(ctx, bad, sampleDoc("NS")); err == nil {
			t.Errorf("Save(%q) should fail", bad)
		}
	}
	if err := s.Save(ctx, "nil", nil); err == nil {
		t.Error("Save(nil doc) should fail")
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "default", false},
		{"dashes", "level-3_try2", false},
		{"empty", "", true},
		{"tab", "a\tb", true},
		{"backslash", `a\b`, true},
		{"max length", strings.Repeat("n", MaxNameLength), false},
		{"too long", strings.Repeat("n", MaxNameLength+1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateName(tt.input); (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
