package extract

import (
	"encoding/json"
	"strings"

	"github.com/codegraph-labs/codegraph/internal/errs"
	"github.com/codegraph-labs/codegraph/internal/graph"
)

// rawExtraction mirrors the JSON the completion service is instructed to
// return. Everything in it is untrusted until parseExtraction has
// validated it against the fixed schema.
type rawExtraction struct {
	Entities      []rawEntity       `json:"entities"`
	Relationships []rawRelationship `json:"relationships"`
}

type rawEntity struct {
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	StartLine int    `json:"start_line,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`
}

type rawRelationship struct {
	SourceKind string `json:"source_kind"`
	Source     string `json:"source"`
	Kind       string `json:"kind"`
	TargetKind string `json:"target_kind"`
	Target     string `json:"target"`
}

// parsed is the validated output of one extraction response.
type parsed struct {
	Entities      []graph.EntityNode
	Relationships []graph.Relationship

	// Quarantined counts items dropped for carrying a kind outside the
	// schema. They are logged, never persisted.
	Quarantined int
}

// entityKinds maps the kinds the service may emit for entities to node
// labels. File is deliberately absent: file nodes come from ingestion.
var entityKinds = map[string]string{
	"class":     graph.LabelClass,
	"function":  graph.LabelFunction,
	"method":    graph.LabelFunction,
	"interface": graph.LabelInterface,
	"package":   graph.LabelPackage,
	"module":    graph.LabelPackage,
}

// endpointKinds additionally admits File, which relationships may
// reference as a source or target.
func endpointLabel(kind string) (string, bool) {
	k := strings.ToLower(strings.TrimSpace(kind))
	if k == "file" {
		return graph.LabelFile, true
	}
	label, ok := entityKinds[k]
	return label, ok
}

// parseExtraction validates a completion response against the extraction
// schema. Unknown entity or relationship kinds are quarantined rather than
// persisted; a response that is not valid JSON at all is a ParseError.
func parseExtraction(chunkID, filePath, content string) (*parsed, error) {
	var raw rawExtraction
	if err := json.Unmarshal([]byte(stripFences(content)), &raw); err != nil {
		return nil, &errs.ParseError{
			ChunkID: chunkID,
			Message: "response is not valid JSON",
			Err:     err,
		}
	}

	out := &parsed{}
	seen := make(map[string]bool)

	for _, re := range raw.Entities {
		name := strings.TrimSpace(re.Name)
		if name == "" {
			out.Quarantined++
			continue
		}
		kind := strings.ToLower(strings.TrimSpace(re.Kind))
		if kind == "file" {
			// The file node already exists; nothing to merge.
			continue
		}
		label, ok := entityKinds[kind]
		if !ok {
			out.Quarantined++
			continue
		}

		normalized := graph.NormalizeName(name)
		key := label + ":" + normalized
		if seen[key] {
			continue
		}
		seen[key] = true

		entity := graph.EntityNode{
			Label:          label,
			Name:           name,
			NormalizedName: normalized,
			FilePath:       filePath,
		}
		if re.StartLine > 0 && re.EndLine >= re.StartLine {
			entity.StartLine = re.StartLine
			entity.EndLine = re.EndLine
		}
		out.Entities = append(out.Entities, entity)
	}

	seenRels := make(map[string]bool)
	for _, rr := range raw.Relationships {
		kind := strings.ToUpper(strings.TrimSpace(rr.Kind))
		if !graph.IsStructuralRel(kind) {
			out.Quarantined++
			continue
		}

		srcLabel, ok := endpointLabel(rr.SourceKind)
		if !ok {
			out.Quarantined++
			continue
		}
		tgtLabel, ok := endpointLabel(rr.TargetKind)
		if !ok {
			out.Quarantined++
			continue
		}

		src := strings.TrimSpace(rr.Source)
		tgt := strings.TrimSpace(rr.Target)
		// A File endpoint always resolves to the chunk's own file.
		if srcLabel == graph.LabelFile {
			src = filePath
		}
		if tgtLabel == graph.LabelFile {
			tgt = filePath
		}
		if src == "" || tgt == "" {
			out.Quarantined++
			continue
		}

		rel := graph.Relationship{
			SourceLabel: srcLabel,
			SourceName:  src,
			Kind:        kind,
			TargetLabel: tgtLabel,
			TargetName:  tgt,
		}
		key := srcLabel + ":" + graph.NormalizeName(src) + "|" + kind + "|" + tgtLabel + ":" + graph.NormalizeName(tgt)
		if seenRels[key] {
			continue
		}
		seenRels[key] = true
		out.Relationships = append(out.Relationships, rel)
	}

	return out, nil
}

// stripFences removes a markdown code fence wrapper if the service added
// one despite the JSON response format instruction.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
