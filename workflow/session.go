package workflow

import (
	"context"
	"sync"
	"time"
)

// Turn 记录一次指令及其结果。
type Turn struct {
	Instruction string    `json:"instruction"`
	Result      Result    `json:"result"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Snapshot is a copy of a session's state.
type Snapshot struct {
	ID        string    `json:"id"`
	Document  string    `json:"document"`
	History   []Turn    `json:"history"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session 持有一份文档的当前版本和修改历史。Edits are serialized: each one
// consumes the current document and produces the next.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	document string
	history  []Turn
	editor   *Editor
}

// NewSession 创建 session，尚未执行任何指令。
func NewSession(id, document string, ed *Editor) *Session {
	if ed == nil {
		ed = New(nil, nil)
	}
	return &Session{
		ID:        id,
		CreatedAt: ed.now(),
		document:  document,
		editor:    ed,
	}
}

// Edit applies instruction to the current document and records the turn.
func (s *Session) Edit(ctx context.Context, instruction string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, res := s.editor.edit(ctx, s.ID, s.document, instruction)
	s.document = doc
	s.history = append(s.history, Turn{
		Instruction: instruction,
		Result:      res,
		CreatedAt:   s.editor.now(),
	})
	return res
}

// Batch applies instructions in order.
func (s *Session) Batch(ctx context.Context, instructions []string) []Result {
	results := make([]Result, 0, len(instructions))
	for _, instruction := range instructions {
		if ctx.Err() != nil {
			break
		}
		results = append(results, s.Edit(ctx, instruction))
	}
	return results
}

// Document returns the current document.
func (s *Session) Document() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.document
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := make([]Turn, len(s.history))
	copy(history, s.history)
	return Snapshot{ID: s.ID, Document: s.document, History: history, CreatedAt: s.CreatedAt}
}
