package nsengine

import (
	"encoding/json"
	"testing"
)

func TestDocument_JSONRoundtrip(t *testing.T) {
	doc := Document{
		Path:        "src/main.go",
		Content:     "package main\n\nfunc main() {}\n",
		Symbols:     "main",
		Lang:        "go",
		SizeBytes:   31,
		MtimeNs:     1700000000000000000,
		IndexedAtNs: 1700000000100000000,
	}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Document
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.Path != doc.Path {
		t.Errorf("Path mismatch: got %q, want %q", decoded.Path, doc.Path)
	}
	if decoded.Symbols != doc.Symbols {
		t.Errorf("Symbols mismatch: got %q, want %q", decoded.Symbols, doc.Symbols)
	}
	if decoded.Lang != doc.Lang {
		t.Errorf("Lang mismatch: got %q, want %q", decoded.Lang, doc.Lang)
	}
	if decoded.SizeBytes != doc.SizeBytes {
		t.Errorf("SizeBytes mismatch: got %d, want %d", decoded.SizeBytes, doc.SizeBytes)
	}
	// Content is excluded from JSON (json:"-"); it is never round-tripped.
	if decoded.Content != "" {
		t.Errorf("expected Content to be excluded from JSON, got %q", decoded.Content)
	}
}

func TestFieldConstants(t *testing.T) {
	tests := []struct {
		name     string
		constant string
		want     string
	}{
		{"FieldPath", FieldPath, "path"},
		{"FieldContent", FieldContent, "content"},
		{"FieldSymbols", FieldSymbols, "symbols"},
		{"FieldLang", FieldLang, "lang"},
		{"FieldSizeBytes", FieldSizeBytes, "size_bytes"},
		{"FieldMtimeNs", FieldMtimeNs, "mtime_ns"},
		{"FieldIndexedAtNs", FieldIndexedAtNs, "indexed_at_ns"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.constant != tt.want {
				t.Errorf("%s = %q, want %q", tt.name, tt.constant, tt.want)
			}
		})
	}
}

func TestBoostWeights(t *testing.T) {
	if SymbolBoost != 3.0 {
		t.Errorf("SymbolBoost = %v, want 3.0", SymbolBoost)
	}
	if ContentBoost != 1.0 {
		t.Errorf("ContentBoost = %v, want 1.0", ContentBoost)
	}
}
