package app

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bft-labs/logjam/internal/domain"
)

func fixedNormalizer() *Normalizer {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return NewNormalizer(NormalizerConfig{
		Path:  "/checkout",
		Href:  "https://shop.example/checkout",
		Now:   func() time.Time { return now },
		NewID: func() string { return "id-1" },
	})
}

func TestNormalizer_Shapes(t *testing.T) {
	tests := []struct {
		name     string
		raw      any
		wantCode string
		wantInfo string
	}{
		{"string", "click", "click", ""},
		{"int", 404, "404", ""},
		{"bool", false, "false", ""},
		{"empty string", "", domain.UnknownCode, ""},
		{"map with code", map[string]any{"code": "buy", "info": "cart"}, "buy", "cart"},
		{"map without code", map[string]any{"data": 1}, domain.UnknownCode, ""},
		{"string map", map[string]string{"code": "s"}, "s", ""},
		{"event", domain.Event{Code: "typed", Info: "x"}, "typed", "x"},
		{"nil", nil, domain.UnknownCode, ""},
		{"slice", []int{1, 2}, domain.UnknownCode, "[1,2]"},
		{"struct", struct{ A int }{A: 1}, domain.UnknownCode, `{"A":1}`},
		{"func", func() {}, domain.UnknownCode, ""},
	}

	n := fixedNormalizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := n.Normalize(tt.raw)
			if e.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", e.Code, tt.wantCode)
			}
			if tt.name != "func" && e.Info != tt.wantInfo {
				t.Errorf("Info = %q, want %q", e.Info, tt.wantInfo)
			}
			if e.Time != 1709294400 {
				t.Errorf("Time = %d, want 1709294400", e.Time)
			}
		})
	}
}

func TestNormalizer_EngineFieldsOverwriteCaller(t *testing.T) {
	n := fixedNormalizer()

	e := n.Normalize(map[string]any{
		"code":  "x",
		"time":  int64(1),
		"id":    "caller-id",
		"extra": "kept",
		"metadata": map[string]any{
			"timeISO": "caller",
			"path":    "/caller",
			"tenant":  "acme",
		},
	})

	if e.ID != "id-1" {
		t.Errorf("ID = %q, want engine id", e.ID)
	}
	if e.Time != 1709294400 {
		t.Errorf("Time = %d, caller value must be overwritten", e.Time)
	}
	want := map[string]any{
		domain.MetaTimeUnix: int64(1709294400),
		domain.MetaTimeISO:  "2024-03-01T12:00:00.000Z",
		domain.MetaPath:     "/checkout",
		domain.MetaHref:     "https://shop.example/checkout",
		domain.MetaUserID:   nil,
		"tenant":            "acme",
	}
	if diff := cmp.Diff(want, e.Metadata); diff != "" {
		t.Errorf("Metadata mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"extra": "kept"}, e.Extra); diff != "" {
		t.Errorf("Extra mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizer_UserAndLocation(t *testing.T) {
	n := fixedNormalizer()
	n.SetUserID("u-42")
	n.SetLocation("/done", "https://shop.example/done")

	e := n.Normalize("paid")

	if e.UserID() != "u-42" {
		t.Errorf("UserID() = %q, want u-42", e.UserID())
	}
	if e.Metadata[domain.MetaPath] != "/done" {
		t.Errorf("path = %v, want /done", e.Metadata[domain.MetaPath])
	}

	n.SetUserID("")
	if got := n.Normalize("x").Metadata[domain.MetaUserID]; got != nil {
		t.Errorf("userId = %v after clearing, want nil", got)
	}
}

func TestNormalizer_DoesNotMutateInput(t *testing.T) {
	n := fixedNormalizer()
	meta := map[string]any{"tenant": "acme"}
	in := map[string]any{"code": "x", "metadata": meta}

	n.Normalize(in)

	if len(meta) != 1 {
		t.Errorf("caller metadata mutated: %v", meta)
	}
}

func TestNormalizer_DefaultID(t *testing.T) {
	n := NewNormalizer(NormalizerConfig{})
	a, b := n.Normalize("a"), n.Normalize("b")
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("ids %q, %q should be unique and non-empty", a.ID, b.ID)
	}
}
