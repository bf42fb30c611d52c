package extract

import (
	"fmt"

	"github.com/codegraph-labs/codegraph/internal/chunker"
)

// extractionSystemPrompt pins the completion service to the fixed schema.
// Kinds outside the two closed sets are quarantined by the parser, so the
// prompt and parseExtraction must stay in agreement.
const extractionSystemPrompt = `You are a code analysis engine. Given a fragment of source code, extract the structural entities it declares or references and the relationships between them.

Respond with a single JSON object, no prose, in exactly this shape:

{
  "entities": [
    {"kind": "class", "name": "OrcBlacksmith", "start_line": 12, "end_line": 40}
  ],
  "relationships": [
    {"source_kind": "class", "source": "OrcBlacksmith", "kind": "INHERITS", "target_kind": "class", "target": "Blacksmith"}
  ]
}

Rules:
- "kind" for entities must be one of: class, function, interface, package.
- "kind" for relationships must be one of: CONTAINS, INHERITS, IMPLEMENTS, CALLS, IMPORTS, DEPENDS_ON.
- Relationship endpoints may additionally use kind "file" to mean the file the fragment belongs to.
- "start_line" and "end_line" are line numbers within the whole file; omit them when the declaration is not fully visible in the fragment.
- Only report entities declared in the fragment or directly referenced by a relationship. Do not invent names.
- If the fragment declares or references nothing structural, return {"entities": [], "relationships": []}.`

// buildExtractionPrompt renders the per-chunk user message.
func buildExtractionPrompt(chunk chunker.Chunk) string {
	return fmt.Sprintf("File: %s\nLanguage: %s\nLines %d-%d of the file.\n\nCode:\n%s",
		chunk.FilePath, chunk.Language, chunk.StartLine, chunk.EndLine, chunk.Text)
}
