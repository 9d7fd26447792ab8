package planning

import (
	"slices"
	"sync"

	"github.com/urbanize/urbanize-backend/internal/gateway/assistant"
)

// Greeting opens every transcript.
const Greeting = "Hello! I'm your AI Urban Planning Assistant. I can help you with urban optimization, " +
	"traffic predictions, zone analysis and general planning questions."

// Transcript is an append-only chat log.
type Transcript struct {
	mu   sync.Mutex
	msgs []assistant.Message
}

func NewTranscript() *Transcript {
	return &Transcript{msgs: []assistant.Message{{Role: "assistant", Content: Greeting}}}
}

func (t *Transcript) Append(role, content string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.msgs = append(t.msgs, assistant.Message{Role: role, Content: content})
}

func (t *Transcript) Messages() []assistant.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.msgs)
}

func (t *Transcript) Last() assistant.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.msgs) == 0 {
		return assistant.Message{}
	}
	return t.msgs[len(t.msgs)-1]
}
