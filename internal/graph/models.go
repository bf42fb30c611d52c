package graph

// Node labels for the graph schema. These are part of the store's external
// contract and must not change: exploration tooling matches on them.
const (
	LabelFile      = "File"
	LabelCodeChunk = "CodeChunk"
	LabelClass     = "Class"
	LabelFunction  = "Function"
	LabelInterface = "Interface"
	LabelPackage   = "Package"
)

// Relationship types for the graph schema.
const (
	RelContains      = "CONTAINS"       // container -> member
	RelContainsChunk = "CONTAINS_CHUNK" // File -> CodeChunk
	RelInherits      = "INHERITS"       // Class -> Class
	RelImplements    = "IMPLEMENTS"     // Class -> Interface
	RelCalls         = "CALLS"          // caller -> Function
	RelImports       = "IMPORTS"        // File/Package -> Package
	RelDependsOn     = "DEPENDS_ON"     // File/Package -> File/Package
	RelRepresents    = "REPRESENTS"     // CodeChunk -> Class/Function/Interface
	RelPartOfFile    = "PART_OF_FILE"   // CodeChunk -> structural unit or File
)

// EntityLabels are the structural entity labels the extractor may produce.
// File is handled separately: file nodes come from ingestion, not extraction.
var EntityLabels = []string{LabelClass, LabelFunction, LabelInterface, LabelPackage}

// IsEntityLabel reports whether label names a structural entity kind.
func IsEntityLabel(label string) bool {
	for _, l := range EntityLabels {
		if l == label {
			return true
		}
	}
	return false
}

// IsStructuralRel reports whether rel is one of the structural relationship
// kinds the extractor may produce. Bridge and chunk linkage relationships
// are created by the core itself, never by the extractor.
func IsStructuralRel(rel string) bool {
	switch rel {
	case RelContains, RelInherits, RelImplements, RelCalls, RelImports, RelDependsOn:
		return true
	}
	return false
}

// FileNode represents an ingested source file.
type FileNode struct {
	// Path is the file path, unique across the graph.
	Path string `json:"path"`

	// Name is the file name without directories.
	Name string `json:"name"`

	// Extension is the file extension including the dot.
	Extension string `json:"extension"`

	// Language is the programming language derived from the extension.
	Language string `json:"language"`

	// TotalChunks is the number of chunks the file produced, recomputed
	// on every ingestion pass.
	TotalChunks int `json:"total_chunks"`

	// TotalLines is the number of lines in the file content.
	TotalLines int `json:"total_lines"`
}

// ChunkNode represents one chunk of a source file.
type ChunkNode struct {
	// ChunkID is the unique chunk identifier: "<file_path>:<padded index>".
	ChunkID string `json:"chunk_id"`

	// FilePath is the owning file's path.
	FilePath string `json:"file_path"`

	// Text is the chunk content.
	Text string `json:"text"`

	// Language is the owning file's language.
	Language string `json:"language"`

	// Index is the chunk position within the file, starting at 0.
	Index int `json:"index"`

	// StartLine and EndLine are 1-based inclusive line numbers.
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`

	// HasEmbedding reports whether a vector is stored for this chunk.
	// Chunks without a vector are excluded from similarity search.
	HasEmbedding bool `json:"has_embedding"`
}

// EntityNode represents a structural entity derived from code.
// Identity is the (Label, NormalizedName) pair, not a surrogate key.
type EntityNode struct {
	// Label is the entity kind: Class, Function, Interface, or Package.
	Label string `json:"label"`

	// Name is the entity identifier with its original casing.
	Name string `json:"name"`

	// NormalizedName is the lowercased, whitespace-trimmed identifier
	// used for merging.
	NormalizedName string `json:"normalized_name"`

	// FilePath is the file the entity was extracted from.
	FilePath string `json:"file_path"`

	// StartLine and EndLine are the declared span when the extractor
	// reported one; both zero means no span is known.
	StartLine int `json:"start_line,omitempty"`
	EndLine   int `json:"end_line,omitempty"`
}

// HasSpan reports whether the entity carries a declared line span.
func (e EntityNode) HasSpan() bool {
	return e.StartLine > 0 && e.EndLine >= e.StartLine
}

// Relationship is one structural edge between two entities.
type Relationship struct {
	// SourceLabel and SourceName identify the source entity.
	SourceLabel string `json:"source_label"`
	SourceName  string `json:"source_name"`

	// Kind is the relationship type.
	Kind string `json:"kind"`

	// TargetLabel and TargetName identify the target entity.
	TargetLabel string `json:"target_label"`
	TargetName  string `json:"target_name"`
}

// ChunkMatch is one similarity search result.
type ChunkMatch struct {
	Chunk ChunkNode `json:"chunk"`

	// Score is the cosine similarity to the query vector.
	Score float64 `json:"score"`
}

// Anchor is the structural entity a chunk is bridged to.
type Anchor struct {
	// ChunkID is the bridged chunk.
	ChunkID string `json:"chunk_id"`

	// Rel is the bridge relationship followed: REPRESENTS or PART_OF_FILE.
	Rel string `json:"rel"`

	// Entity is the anchor entity. For a file-level fallback anchor the
	// Label is File and Name holds the file path.
	Entity EntityNode `json:"entity"`
}

// Neighbor is one entity reached during graph expansion, with the
// relationship that led to it.
type Neighbor struct {
	// Rel is the relationship kind traversed.
	Rel string `json:"rel"`

	// Outgoing is true when the edge points away from the source entity.
	Outgoing bool `json:"outgoing"`

	// Entity is the neighboring entity.
	Entity EntityNode `json:"entity"`
}

// QueryResult contains the rows of a raw Cypher query.
type QueryResult struct {
	// Rows are the result rows.
	Rows [][]any

	// Stats contains query execution statistics.
	Stats QueryStats
}

// QueryStats contains statistics about query execution.
type QueryStats struct {
	NodesCreated     int
	NodesDeleted     int
	RelationsCreated int
	RelationsDeleted int
	PropertiesSet    int
	ExecutionTimeMs  float64
}

// StoreStats is a point-in-time summary of graph contents.
type StoreStats struct {
	// Nodes maps node label to count.
	Nodes map[string]int `json:"nodes"`

	// Relationships maps relationship kind to count.
	Relationships map[string]int `json:"relationships"`

	// EmbeddedChunks is the number of chunks carrying a vector.
	EmbeddedChunks int `json:"embedded_chunks"`

	// VectorIndexPresent reports whether the similarity index exists.
	VectorIndexPresent bool `json:"vector_index_present"`
}
