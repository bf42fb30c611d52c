package graph

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Host != "localhost" {
		t.Errorf("Host = %q, want %q", cfg.Host, "localhost")
	}
	if cfg.Port != 6379 {
		t.Errorf("Port = %d, want %d", cfg.Port, 6379)
	}
	if cfg.GraphName != "codegraph" {
		t.Errorf("GraphName = %q, want %q", cfg.GraphName, "codegraph")
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want %d", cfg.MaxRetries, 3)
	}
	if cfg.RetryDelay != time.Second {
		t.Errorf("RetryDelay = %v, want %v", cfg.RetryDelay, time.Second)
	}
	if cfg.EmbeddingDimension != 3072 {
		t.Errorf("EmbeddingDimension = %d, want %d", cfg.EmbeddingDimension, 3072)
	}
}

func TestNewFalkorDBStore(t *testing.T) {
	s := NewFalkorDBStore()

	if s == nil {
		t.Fatal("NewFalkorDBStore returned nil")
	}
	if s.config.Host != "localhost" {
		t.Errorf("config.Host = %q, want %q", s.config.Host, "localhost")
	}
	if s.logger == nil {
		t.Error("logger should not be nil")
	}
	if s.writeQueue == nil {
		t.Error("writeQueue should not be nil")
	}
	if s.IsConnected() {
		t.Error("new store should not report connected")
	}
}

func TestNewFalkorDBStoreWithOptions(t *testing.T) {
	customConfig := Config{
		Host:               "custom-host",
		Port:               6380,
		GraphName:          "custom-graph",
		MaxRetries:         5,
		RetryDelay:         2 * time.Second,
		EmbeddingDimension: 1536,
	}

	s := NewFalkorDBStore(WithConfig(customConfig))

	if s.config.Host != "custom-host" {
		t.Errorf("config.Host = %q, want %q", s.config.Host, "custom-host")
	}
	if s.config.Port != 6380 {
		t.Errorf("config.Port = %d, want %d", s.config.Port, 6380)
	}
	if s.Dimension() != 1536 {
		t.Errorf("Dimension() = %d, want %d", s.Dimension(), 1536)
	}
}

func TestEscapeString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello", "hello"},
		{"single quote", "it's", "it\\'s"},
		{"backslash", `a\b`, `a\\b`},
		{"newline", "a\nb", "a\\nb"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escapeString(tt.input); got != tt.want {
				t.Errorf("escapeString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"OrcBlacksmith", "orcblacksmith"},
		{"  Blacksmith  ", "blacksmith"},
		{"already_lower", "already_lower"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeName(tt.input); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestVectorLiteral(t *testing.T) {
	got := vectorLiteral([]float32{0.5, -1, 0.25})

	if !strings.HasPrefix(got, "vecf32([") || !strings.HasSuffix(got, "])") {
		t.Fatalf("vectorLiteral = %q, want vecf32([...]) form", got)
	}
	if got != "vecf32([0.5,-1,0.25])" {
		t.Errorf("vectorLiteral = %q, want %q", got, "vecf32([0.5,-1,0.25])")
	}
}

func TestBuildUpsertChunkQuery(t *testing.T) {
	chunk := &ChunkNode{
		ChunkID:   "src/main.py:0003",
		FilePath:  "src/main.py",
		Text:      "def main():",
		Language:  "python",
		Index:     3,
		StartLine: 40,
		EndLine:   52,
	}

	query := buildUpsertChunkQuery(chunk)

	if !strings.Contains(query, "MERGE (c:CodeChunk {chunk_id: 'src/main.py:0003'})") {
		t.Error("query should merge chunk by chunk_id")
	}
	if !strings.Contains(query, "MERGE (f)-[:CONTAINS_CHUNK]->(c)") {
		t.Error("query should merge CONTAINS_CHUNK edge")
	}
	if strings.Contains(query, "embedding") {
		t.Error("chunk upsert must not touch the embedding property")
	}
}

func TestBuildExtractionQuery(t *testing.T) {
	entities := []EntityNode{
		{Label: LabelClass, Name: "OrcBlacksmith", NormalizedName: "orcblacksmith", StartLine: 10, EndLine: 30},
		{Label: LabelClass, Name: "Blacksmith", NormalizedName: "blacksmith"},
	}
	rels := []Relationship{
		{SourceLabel: LabelClass, SourceName: "OrcBlacksmith", Kind: RelInherits, TargetLabel: LabelClass, TargetName: "Blacksmith"},
	}

	query := buildExtractionQuery("src/smith.java", entities, rels)

	if !strings.Contains(query, "MERGE (e0:Class {normalized_name: 'orcblacksmith'})") {
		t.Error("entities should merge by normalized name")
	}
	if !strings.Contains(query, "e0.start_line = 10") {
		t.Error("declared spans should be persisted")
	}
	if strings.Contains(query, "e1.start_line") {
		t.Error("entities without a span must not get span properties")
	}
	if !strings.Contains(query, "MERGE (rs0)-[:INHERITS]->(rt0)") {
		t.Error("relationship should merge by (source, kind, target)")
	}

	// Re-building from identical input yields the identical statement,
	// so repeated extraction converges instead of duplicating.
	if again := buildExtractionQuery("src/smith.java", entities, rels); again != query {
		t.Error("extraction query should be deterministic")
	}
}

func TestBuildReplaceBridgeQuery(t *testing.T) {
	entity := &EntityNode{Label: LabelFunction, NormalizedName: "parse_config"}

	t.Run("entity match", func(t *testing.T) {
		query := buildReplaceBridgeQuery("cfg.py:0001", "cfg.py", entity)

		if !strings.Contains(query, "OPTIONAL MATCH (c)-[r:REPRESENTS]->()") {
			t.Error("query should delete existing REPRESENTS edges")
		}
		if !strings.Contains(query, "MERGE (c)-[:REPRESENTS]->(e)") {
			t.Error("query should create the REPRESENTS edge")
		}
		if !strings.Contains(query, "MERGE (c)-[:PART_OF_FILE]->(e)") {
			t.Error("query should anchor the chunk at the entity")
		}
	})

	t.Run("file fallback", func(t *testing.T) {
		query := buildReplaceBridgeQuery("cfg.py:0001", "cfg.py", nil)

		if strings.Contains(query, "REPRESENTS]->(e)") {
			t.Error("fallback must not create a REPRESENTS edge")
		}
		if !strings.Contains(query, "MATCH (f:File {path: 'cfg.py'})") {
			t.Error("fallback should match the owning file")
		}
		if !strings.Contains(query, "MERGE (c)-[:PART_OF_FILE]->(f)") {
			t.Error("fallback should anchor the chunk at the file")
		}
	})
}

func TestBuildEntitiesForFileQuery(t *testing.T) {
	query := buildEntitiesForFileQuery(LabelClass, "src/o'brien.py")

	if !strings.Contains(query, `MATCH (e:Class {file_path: 'src/o\'brien.py'})`) {
		t.Error("query should match by escaped file path")
	}
	if !strings.Contains(query, "ORDER BY e.normalized_name") {
		t.Error("results must be ordered so equal-score tie-breaks are stable")
	}
}

func TestEntityMatchClause(t *testing.T) {
	entity := EntityNode{Label: LabelClass, NormalizedName: "blacksmith"}
	if got := entityMatchClause("s", entity); got != "(s:Class {normalized_name: 'blacksmith'})" {
		t.Errorf("entityMatchClause = %q", got)
	}

	file := EntityNode{Label: LabelFile, FilePath: "src/a.py"}
	if got := entityMatchClause("s", file); got != "(s:File {path: 'src/a.py'})" {
		t.Errorf("entityMatchClause for file = %q", got)
	}
}

func TestIsEntityLabel(t *testing.T) {
	for _, label := range []string{LabelClass, LabelFunction, LabelInterface, LabelPackage} {
		if !IsEntityLabel(label) {
			t.Errorf("IsEntityLabel(%q) = false, want true", label)
		}
	}
	for _, label := range []string{LabelFile, LabelCodeChunk, "Module", ""} {
		if IsEntityLabel(label) {
			t.Errorf("IsEntityLabel(%q) = true, want false", label)
		}
	}
}

func TestIsStructuralRel(t *testing.T) {
	for _, rel := range []string{RelContains, RelInherits, RelImplements, RelCalls, RelImports, RelDependsOn} {
		if !IsStructuralRel(rel) {
			t.Errorf("IsStructuralRel(%q) = false, want true", rel)
		}
	}
	for _, rel := range []string{RelRepresents, RelPartOfFile, RelContainsChunk, "EXTENDS"} {
		if IsStructuralRel(rel) {
			t.Errorf("IsStructuralRel(%q) = true, want false", rel)
		}
	}
}

func TestEntityNodeHasSpan(t *testing.T) {
	tests := []struct {
		name   string
		entity EntityNode
		want   bool
	}{
		{"with span", EntityNode{StartLine: 5, EndLine: 10}, true},
		{"single line", EntityNode{StartLine: 5, EndLine: 5}, true},
		{"no span", EntityNode{}, false},
		{"inverted", EntityNode{StartLine: 10, EndLine: 5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entity.HasSpan(); got != tt.want {
				t.Errorf("HasSpan() = %v, want %v", got, tt.want)
			}
		})
	}
}
