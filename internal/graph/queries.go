package graph

import (
	"fmt"
	"strings"
)

// Cypher builders. Kept free of connection state so upsert and bridge
// semantics can be verified without a live database.

// buildUpsertFileQuery merges a file node by path. Counters are set on
// every pass; they are recomputed by ingestion.
func buildUpsertFileQuery(file *FileNode) string {
	return fmt.Sprintf(`
		MERGE (f:File {path: '%s'})
		SET f.name = '%s',
			f.extension = '%s',
			f.language = '%s',
			f.total_chunks = %d,
			f.total_lines = %d
	`, escapeString(file.Path),
		escapeString(file.Name),
		escapeString(file.Extension),
		escapeString(file.Language),
		file.TotalChunks,
		file.TotalLines)
}

// buildUpsertChunkQuery merges a chunk node by chunk_id and its single
// CONTAINS_CHUNK edge from the owning file. The embedding property is
// deliberately absent: it is immutable once written.
func buildUpsertChunkQuery(chunk *ChunkNode) string {
	return fmt.Sprintf(`
		MERGE (f:File {path: '%s'})
		MERGE (c:CodeChunk {chunk_id: '%s'})
		SET c.file_path = '%s',
			c.text = '%s',
			c.language = '%s',
			c.index = %d,
			c.start_line = %d,
			c.end_line = %d
		MERGE (f)-[:CONTAINS_CHUNK]->(c)
	`, escapeString(chunk.FilePath),
		escapeString(chunk.ChunkID),
		escapeString(chunk.FilePath),
		escapeString(chunk.Text),
		escapeString(chunk.Language),
		chunk.Index,
		chunk.StartLine,
		chunk.EndLine)
}

// buildExtractionQuery merges one chunk's entities and relationships in a
// single statement. Entities merge by normalized name, relationships by
// the (source, kind, target) triple, so concurrent workers extracting
// different chunks of the same file converge instead of duplicating.
func buildExtractionQuery(filePath string, entities []EntityNode, rels []Relationship) string {
	var b strings.Builder

	for i, e := range entities {
		v := fmt.Sprintf("e%d", i)
		fmt.Fprintf(&b, "MERGE (%s:%s {normalized_name: '%s'})\n",
			v, e.Label, escapeString(e.NormalizedName))
		fmt.Fprintf(&b, "SET %s.name = '%s', %s.file_path = '%s'\n",
			v, escapeString(e.Name), v, escapeString(filePath))
		if e.HasSpan() {
			fmt.Fprintf(&b, "SET %s.start_line = %d, %s.end_line = %d\n",
				v, e.StartLine, v, e.EndLine)
		}
	}

	for i, r := range rels {
		sv := fmt.Sprintf("rs%d", i)
		tv := fmt.Sprintf("rt%d", i)
		fmt.Fprintf(&b, "MERGE (%s:%s {normalized_name: '%s'})\n",
			sv, r.SourceLabel, escapeString(NormalizeName(r.SourceName)))
		fmt.Fprintf(&b, "MERGE (%s:%s {normalized_name: '%s'})\n",
			tv, r.TargetLabel, escapeString(NormalizeName(r.TargetName)))
		fmt.Fprintf(&b, "MERGE (%s)-[:%s]->(%s)\n", sv, r.Kind, tv)
	}

	return b.String()
}

// buildReplaceBridgeQuery deletes a chunk's existing bridge edges and
// creates the replacements, all in one statement. Re-running the linker
// therefore replaces edges rather than accumulating them.
func buildReplaceBridgeQuery(chunkID, filePath string, entity *EntityNode) string {
	var b strings.Builder

	fmt.Fprintf(&b, "MATCH (c:CodeChunk {chunk_id: '%s'})\n", escapeString(chunkID))
	b.WriteString("OPTIONAL MATCH (c)-[r:REPRESENTS]->()\n")
	b.WriteString("DELETE r\n")
	b.WriteString("WITH c\n")
	b.WriteString("OPTIONAL MATCH (c)-[p:PART_OF_FILE]->()\n")
	b.WriteString("DELETE p\n")
	b.WriteString("WITH c\n")

	if entity != nil {
		fmt.Fprintf(&b, "MATCH (e:%s {normalized_name: '%s'})\n",
			entity.Label, escapeString(entity.NormalizedName))
		b.WriteString("MERGE (c)-[:REPRESENTS]->(e)\n")
		b.WriteString("MERGE (c)-[:PART_OF_FILE]->(e)\n")
	} else {
		fmt.Fprintf(&b, "MATCH (f:File {path: '%s'})\n", escapeString(filePath))
		b.WriteString("MERGE (c)-[:PART_OF_FILE]->(f)\n")
	}

	return b.String()
}

// buildEntitiesForFileQuery lists one label's entities for a file. Ordered
// by normalized name so downstream tie-breaks over equal-score entities
// resolve the same way on every run.
func buildEntitiesForFileQuery(label, filePath string) string {
	return fmt.Sprintf(`
		MATCH (e:%s {file_path: '%s'})
		RETURN e.name, e.normalized_name, e.start_line, e.end_line
		ORDER BY e.normalized_name
	`, label, escapeString(filePath))
}

// entityMatchClause returns a MATCH pattern for an entity. File-level
// anchors match by path; structural entities by normalized name.
func entityMatchClause(v string, entity EntityNode) string {
	if entity.Label == LabelFile {
		return fmt.Sprintf("(%s:File {path: '%s'})", v, escapeString(entity.FilePath))
	}
	return fmt.Sprintf("(%s:%s {normalized_name: '%s'})",
		v, entity.Label, escapeString(entity.NormalizedName))
}
