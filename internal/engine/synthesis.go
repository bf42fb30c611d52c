package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/codegraph-labs/codegraph/internal/providers"
)

const (
	synthesisTemperature = 0.7
	synthesisMaxTokens   = 1000

	// maxQuotedChunks bounds how many chunks are quoted in the prompt.
	maxQuotedChunks = 3

	// chunkTruncateAt caps quoted chunk text; truncation prefers the last
	// newline past chunkTruncateFloor so quotes end on a whole line.
	chunkTruncateAt    = 1000
	chunkTruncateFloor = 800
)

const noResultsAnswer = "I couldn't find any relevant code for that question. " +
	"Try rephrasing, or ingest more of the repository first."

const synthesisSystemPrompt = `You are a code assistant answering questions about a codebase. You are given retrieved code fragments and, when available, structural context about the classes, functions, and files involved. Answer the question grounded strictly in that material. Quote identifiers and file paths exactly as given. If the context does not contain the answer, say so rather than guessing.`

// synthesize asks the completion service for a grounded answer over the
// retrieved context.
func (e *Engine) synthesize(ctx context.Context, query string, result *Result) (string, error) {
	req := providers.CompletionRequest{
		System:      synthesisSystemPrompt,
		Prompt:      buildSynthesisPrompt(query, result),
		Temperature: synthesisTemperature,
		MaxTokens:   synthesisMaxTokens,
	}
	res, err := e.semantic.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	return res.Content, nil
}

// buildSynthesisPrompt renders the retrieved context and the question.
func buildSynthesisPrompt(query string, result *Result) string {
	var b strings.Builder

	b.WriteString("Retrieved code:\n\n")
	quoted := result.Chunks
	if len(quoted) > maxQuotedChunks {
		quoted = quoted[:maxQuotedChunks]
	}
	for i, m := range quoted {
		fmt.Fprintf(&b, "[%d] %s (lines %d-%d, similarity %.2f):\n%s\n\n",
			i+1, m.Chunk.FilePath, m.Chunk.StartLine, m.Chunk.EndLine, m.Score,
			truncateChunkText(m.Chunk.Text))
	}

	if len(result.Entities) > 0 {
		b.WriteString("Structural context:\n")
		for _, entity := range result.Entities {
			fmt.Fprintf(&b, "- %s %s (%s)\n", entity.Label, entity.Name, entity.FilePath)
		}
		b.WriteString("\n")
	}

	if len(result.Relationships) > 0 {
		b.WriteString("Relationships:\n")
		for _, rel := range result.Relationships {
			fmt.Fprintf(&b, "- %s %s %s (%s -> %s)\n",
				rel.SourceName, rel.Kind, rel.TargetName, rel.SourceLabel, rel.TargetLabel)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Question: %s", query)
	return b.String()
}

// truncateChunkText caps chunk text for prompting. Past the cap, the
// break lands on the last newline after chunkTruncateFloor when one
// exists, so the quote ends on a complete line.
func truncateChunkText(text string) string {
	if len(text) <= chunkTruncateAt {
		return text
	}
	cut := text[:chunkTruncateAt]
	if i := strings.LastIndex(cut, "\n"); i > chunkTruncateFloor {
		cut = cut[:i]
	}
	return cut + "\n..."
}

// fallbackAnswer summarizes the retrieved context when synthesis is
// unavailable: the retrieval still happened, so the caller gets the
// pointers even without prose.
func fallbackAnswer(result *Result) string {
	if len(result.Chunks) == 0 {
		return noResultsAnswer
	}

	var b strings.Builder
	fmt.Fprintf(&b, "I found %d relevant code chunk", len(result.Chunks))
	if len(result.Chunks) != 1 {
		b.WriteString("s")
	}
	b.WriteString(" but couldn't generate a full answer. Most relevant files:\n")
	for _, f := range result.Files {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	return b.String()
}
