package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/codegraph-labs/codegraph/internal/engine"
	"github.com/codegraph-labs/codegraph/internal/graph"
)

type stubQuerier struct {
	result *engine.Result
	err    error
	asked  []string
}

func (s *stubQuerier) Query(ctx context.Context, req engine.Request) (*engine.Result, error) {
	s.asked = append(s.asked, req.Query)
	return s.result, s.err
}

func sized(m Model) Model {
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(Model)
}

func TestEnterSubmitsQuestion(t *testing.T) {
	q := &stubQuerier{result: &engine.Result{Answer: "hi", Found: true}}
	m := sized(NewModel(q, engine.Request{K: 3}))

	m.input.SetValue("where is the router?")
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	if !m.waiting {
		t.Error("model should be waiting after submit")
	}
	if len(m.messages) != 1 || m.messages[0].role != "user" {
		t.Fatalf("messages = %+v, want one user message", m.messages)
	}
	if cmd == nil {
		t.Fatal("submit must produce a command")
	}
}

func TestEmptyInputIgnored(t *testing.T) {
	q := &stubQuerier{}
	m := sized(NewModel(q, engine.Request{}))

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	if m.waiting || cmd != nil || len(m.messages) != 0 {
		t.Error("empty input must be a no-op")
	}
}

func TestResultAppendsAssistantMessage(t *testing.T) {
	q := &stubQuerier{}
	m := sized(NewModel(q, engine.Request{}))
	m.waiting = true

	result := &engine.Result{
		Answer:   "The router is in app.py.",
		Found:    true,
		Degraded: true,
		Chunks: []graph.ChunkMatch{
			{Chunk: graph.ChunkNode{ChunkID: "app.py:0000"}, Score: 0.91},
		},
	}
	updated, _ := m.Update(resultMsg{result: result})
	m = updated.(Model)

	if m.waiting {
		t.Error("waiting should clear on result")
	}
	last := m.messages[len(m.messages)-1]
	if last.role != "assistant" || !last.degraded {
		t.Errorf("message = %+v, want degraded assistant message", last)
	}
	if len(last.sources) != 1 || !strings.Contains(last.sources[0], "app.py:0000") {
		t.Errorf("sources = %v", last.sources)
	}
}

func TestQueryErrorRendered(t *testing.T) {
	q := &stubQuerier{}
	m := sized(NewModel(q, engine.Request{}))
	m.waiting = true

	updated, _ := m.Update(resultMsg{err: errors.New("store unreachable")})
	m = updated.(Model)

	last := m.messages[len(m.messages)-1]
	if !last.err || !strings.Contains(last.text, "store unreachable") {
		t.Errorf("message = %+v, want rendered error", last)
	}
}

func TestEscQuits(t *testing.T) {
	m := sized(NewModel(&stubQuerier{}, engine.Request{}))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("esc should produce quit command")
	}
	if msg := cmd(); msg != tea.Quit() {
		t.Errorf("cmd() = %v, want tea.Quit", msg)
	}
}

func TestRenderTranscript(t *testing.T) {
	out := renderTranscript([]message{
		{role: "user", text: "question?"},
		{role: "assistant", text: "answer.", sources: []string{"a.py:0000 (0.90)"}},
	}, 80)

	for _, want := range []string{"question?", "answer.", "a.py:0000"} {
		if !strings.Contains(out, want) {
			t.Errorf("transcript missing %q", want)
		}
	}
}
