package validate

import (
	"testing"

	"github.com/ivlasov/claimfold/internal/model"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"curly quotes", "“Hello” and ‘world’", `"hello" and 'world'`},
		{"whitespace runs", "a  b\t\nc", "a b c"},
		{"case folding", "MiXeD Case", "mixed case"},
		{"dashes", "pre–war — era", "pre-war - era"},
		{"empty", "", ""},
		{"only whitespace", " \t\n ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsGrounded(t *testing.T) {
	source := "The central bank raised rates by 50 basis points on Tuesday, citing “persistent inflation”."

	tests := []struct {
		name  string
		quote string
		want  bool
	}{
		{"verbatim quote", "raised rates by 50 basis points", true},
		{"curly quotes in source", `citing "persistent inflation"`, true},
		{"different case", "The Central Bank RAISED rates", true},
		{"extra whitespace in quote", "raised  rates   by 50", true},
		{"absent text", "rates were cut sharply", false},
		{"empty quote", "", false},
		{"whitespace-only quote", "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claim := model.Claim{Text: "x", SupportingQuote: tt.quote, SourceID: "s1"}
			if got := IsGrounded(claim, source); got != tt.want {
				t.Errorf("IsGrounded(%q) = %v, want %v", tt.quote, got, tt.want)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	sourceTexts := map[string]string{
		"s1": "Rates rose by 50 basis points.",
		"s2": "Unemployment fell to a record low.",
	}
	claims := []model.Claim{
		{ID: "s1#0", Text: "Rates increased", SupportingQuote: "rose by 50 basis points", SourceID: "s1"},
		{ID: "s1#1", Text: "Invented fact", SupportingQuote: "rates were cut", SourceID: "s1"},
		{ID: "s2#0", Text: "Jobs improved", SupportingQuote: "Unemployment fell", SourceID: "s2"},
		{ID: "s3#0", Text: "Orphan", SupportingQuote: "anything", SourceID: "s3"},
	}

	kept, dropped := Filter(claims, sourceTexts)

	if len(kept) != 2 {
		t.Fatalf("Expected 2 grounded claims, got %d", len(kept))
	}
	if kept[0].ID != "s1#0" || kept[1].ID != "s2#0" {
		t.Errorf("Unexpected kept claims: %v, %v", kept[0].ID, kept[1].ID)
	}

	if len(dropped) != 2 {
		t.Fatalf("Expected 2 dropped claims, got %d", len(dropped))
	}
	for _, c := range dropped {
		if c.ID != "s1#1" && c.ID != "s3#0" {
			t.Errorf("Unexpected dropped claim %s", c.ID)
		}
	}
}

func TestFilter_Empty(t *testing.T) {
	kept, dropped := Filter(nil, nil)
	if len(kept) != 0 || len(dropped) != 0 {
		t.Errorf("Expected empty results for empty input, got %d kept, %d dropped", len(kept), len(dropped))
	}
}
