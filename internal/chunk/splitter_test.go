package chunk

import (
	"strings"
	"testing"

	"github.com/ivlasov/claimfold/internal/model"
)

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	s := NewSplitter(800, 150)
	chunks := s.Split("A short paragraph that fits easily.")
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
}

func TestSplit_EmptyText(t *testing.T) {
	s := NewSplitter(800, 150)
	if chunks := s.Split("   \n\n "); chunks != nil {
		t.Errorf("Expected nil for blank text, got %v", chunks)
	}
}

func TestSplit_PrefersParagraphBoundaries(t *testing.T) {
	para1 := strings.Repeat("alpha ", 20) // ~120 chars
	para2 := strings.Repeat("beta ", 20)
	text := strings.TrimSpace(para1) + "\n\n" + strings.TrimSpace(para2)

	s := NewSplitter(150, 0)
	chunks := s.Split(text)
	if len(chunks) != 2 {
		t.Fatalf("Expected split at paragraph boundary into 2 chunks, got %d: %v", len(chunks), chunks)
	}
	if !strings.HasPrefix(chunks[0], "alpha") || !strings.HasPrefix(chunks[1], "beta") {
		t.Errorf("Expected paragraphs kept whole, got %q / %q", chunks[0], chunks[1])
	}
}

func TestSplit_RespectsSizeLimit(t *testing.T) {
	text := strings.Repeat("word ", 1000)
	s := NewSplitter(200, 40)

	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 200 {
			t.Errorf("Chunk %d exceeds size limit: %d chars", i, len(c))
		}
	}
}

func TestSplit_OverlapCarriesText(t *testing.T) {
	text := strings.Repeat("word ", 200)
	s := NewSplitter(100, 30)

	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}
	// The start of each chunk must appear near the end of its predecessor
	for i := 1; i < len(chunks); i++ {
		head := chunks[i]
		if len(head) > 20 {
			head = head[:20]
		}
		if !strings.Contains(chunks[i-1], strings.TrimSpace(head)) {
			t.Errorf("Chunk %d does not overlap its predecessor", i)
		}
	}
}

func TestSplit_NoCharactersLost(t *testing.T) {
	text := "First sentence here. Second sentence follows. Third one closes."
	s := NewSplitter(30, 0)

	chunks := s.Split(text)
	joined := strings.Join(chunks, " ")
	for _, word := range strings.Fields(text) {
		if !strings.Contains(joined, strings.TrimSuffix(word, ".")) {
			t.Errorf("Word %q missing from chunks %v", word, chunks)
		}
	}
}

func TestChunkSource(t *testing.T) {
	s := NewSplitter(100, 0)
	src := &model.Source{
		Meta:        model.SourceMeta{SourceID: "s1"},
		CleanedText: strings.Repeat("content here ", 30),
	}

	chunks := s.ChunkSource(src)
	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}

	seen := make(map[string]bool)
	for i, c := range chunks {
		if c.SourceID != "s1" {
			t.Errorf("Chunk %d has wrong source id %q", i, c.SourceID)
		}
		if c.Index != i {
			t.Errorf("Chunk %d has index %d", i, c.Index)
		}
		if c.ChunkID == "" || seen[c.ChunkID] {
			t.Errorf("Chunk %d has missing or duplicate id %q", i, c.ChunkID)
		}
		seen[c.ChunkID] = true
	}
}
