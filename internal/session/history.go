package session

import (
	"encoding/json"
	"fmt"
	"strings"
)

// defaultHistoryTurns bounds the prior-turn context when the config leaves
// it unset.
const defaultHistoryTurns = 15

// Turn is one completed question/answer pair, as exposed to the CLI.
type Turn struct {
	Question string
	SQL      string
	Preview  [][]any
}

type turn struct {
	question string
	sql      string
	preview  [][]any
}

// history keeps the most recent turns for follow-up context.
type history struct {
	turns []turn
	max   int
}

func newHistory(max int) *history {
	if max <= 0 {
		max = defaultHistoryTurns
	}
	return &history{max: max}
}

func (h *history) add(t turn) {
	h.turns = append(h.turns, t)
	if len(h.turns) > h.max {
		h.turns = h.turns[len(h.turns)-h.max:]
	}
}

func (h *history) clear() {
	h.turns = nil
}

func (h *history) list() []Turn {
	out := make([]Turn, len(h.turns))
	for i, t := range h.turns {
		out[i] = Turn{Question: t.question, SQL: t.sql, Preview: t.preview}
	}
	return out
}

// context renders the recorded turns as compact prompt text, oldest first.
// Previews are capped at three rows per turn.
func (h *history) context() string {
	if len(h.turns) == 0 {
		return ""
	}

	var b strings.Builder
	for i, t := range h.turns {
		preview := t.preview
		if len(preview) > 3 {
			preview = preview[:3]
		}
		previewJSON, err := json.Marshal(preview)
		if err != nil {
			previewJSON = []byte("[]")
		}

		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "Turn %d:\nQ: %s\nSQL: %s\nPreviewRows: %s\n", i+1, t.question, t.sql, previewJSON)
	}
	return b.String()
}
