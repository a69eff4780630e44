package model

// SourceStatus tracks a source through ingestion
type SourceStatus string

const (
	StatusSuccess SourceStatus = "success" // Fetched and non-empty
	StatusEmpty   SourceStatus = "empty"   // Fetched but no usable text
	StatusFailed  SourceStatus = "failed"  // Fetch or read error
)

// SourceMeta describes where a source came from and how ingestion went
type SourceMeta struct {
	SourceID   string       `json:"source_id"`       // Short hash of the URL or path
	SourceType string       `json:"source_type"`     // "url" or "local"
	SourcePath string       `json:"source_path"`     // Original URL or file path
	Title      string       `json:"title,omitempty"` // Page title or file name
	CharLength int          `json:"char_length"`     // Raw text length
	Status     SourceStatus `json:"status"`
	Error      string       `json:"error,omitempty"`
}

// Chunk is a contiguous slice of a source's cleaned text
type Chunk struct {
	SourceID string `json:"source_id"`
	ChunkID  string `json:"chunk_id"`
	Content  string `json:"content"`
	Index    int    `json:"index"` // Position within the source
}

// Source carries one document through the pipeline. RawText is filled
// by ingestion, the remaining fields by successive stages.
type Source struct {
	Meta        SourceMeta `json:"meta"`
	RawText     string     `json:"-"`
	CleanedText string     `json:"-"`
	Summary     string     `json:"summary,omitempty"`
	Chunks      []Chunk    `json:"-"`
	Claims      []Claim    `json:"claims,omitempty"`
}
