package generator

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type GenerationState string

const (
	StateIdle       GenerationState = "idle"
	StateGenerating GenerationState = "generating"
	StateCompleted  GenerationState = "completed"
	StateError      GenerationState = "error"
	StateConcluded  GenerationState = "concluded"
)

// maxHistory bounds the messages replayed to a newly connected socket.
const maxHistory = 200

// Progress tracks one story session's generation activity and fans its
// messages out to connected websockets.
type Progress struct {
	mu          sync.RWMutex
	SessionID   string
	State       GenerationState
	Output      string
	StartTime   time.Time
	history     []WSMessage
	subscribers map[chan WSMessage]struct{}
	logger      *zap.Logger
}

func NewProgress(sessionID string, logger *zap.Logger) *Progress {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Progress{
		SessionID:   sessionID,
		State:       StateIdle,
		StartTime:   time.Now(),
		subscribers: make(map[chan WSMessage]struct{}),
		logger:      logger.With(zap.String("session", sessionID)),
	}
}

// SendUpdate records message and pushes it to every subscriber. Slow
// subscribers miss messages rather than block the writer.
func (p *Progress) SendUpdate(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	msg := NewWSMessage("update", string(p.State), message, p.Output)
	p.history = append(p.history, msg)
	if len(p.history) > maxHistory {
		p.history = p.history[len(p.history)-maxHistory:]
	}
	for ch := range p.subscribers {
		select {
		case ch <- msg:
		default:
			p.logger.Warn("dropping websocket message for slow subscriber", zap.String("message", message))
		}
	}
}

func (p *Progress) UpdateState(state GenerationState) {
	p.mu.Lock()
	oldState := p.State
	p.State = state
	p.mu.Unlock()
	p.logger.Debug("state transition", zap.String("from", string(oldState)), zap.String("to", string(state)))

	message := ""
	switch state {
	case StateGenerating:
		message = "✍️ Writing..."
	case StateCompleted:
		message = "✨ Ready!"
	case StateError:
		message = "❌ The muse is unavailable, try again."
	case StateConcluded:
		message = "📖 The End."
	}
	if message != "" {
		p.SendUpdate(message)
	}
}

// UpdateOutput reports a progress line.
func (p *Progress) UpdateOutput(output string) {
	p.mu.Lock()
	p.Output = output
	p.mu.Unlock()
	p.SendUpdate(output)
}

func (p *Progress) GetState() GenerationState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.State
}

// History returns a copy of the recorded messages.
func (p *Progress) History() []WSMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	messages := make([]WSMessage, len(p.history))
	copy(messages, p.history)
	return messages
}

// Subscribe registers a buffered channel for future messages and returns
// the history recorded so far. Call cancel to unsubscribe.
func (p *Progress) Subscribe(buffer int) (history []WSMessage, updates <-chan WSMessage, cancel func()) {
	ch := make(chan WSMessage, buffer)
	p.mu.Lock()
	history = make([]WSMessage, len(p.history))
	copy(history, p.history)
	p.subscribers[ch] = struct{}{}
	p.mu.Unlock()

	var once sync.Once
	cancel = func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subscribers, ch)
			p.mu.Unlock()
			close(ch)
		})
	}
	return history, ch, cancel
}

type WSMessage struct {
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Output    string    `json:"output"`
	Timestamp time.Time `json:"timestamp"`
}

func NewWSMessage(msgType, status, message, output string) WSMessage {
	return WSMessage{
		Type:      msgType,
		Status:    status,
		Message:   message,
		Output:    output,
		Timestamp: time.Now(),
	}
}
