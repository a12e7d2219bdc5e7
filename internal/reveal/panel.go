package reveal

import (
	"strings"
	"sync"
)

type EventKind string

const (
	EventReset    EventKind = "reset"
	EventAppend   EventKind = "append"
	EventComplete EventKind = "complete"
	EventStopped  EventKind = "stopped"
	// EventGenerating announces that new text is being produced.
	EventGenerating EventKind = "generating"
	// EventFailed ends a generating phase that produced no text.
	EventFailed EventKind = "failed"
)

// Event describes one change of a Panel. For reset events Text holds the
// full visible text, for append events the appended character.
type Event struct {
	Kind     EventKind `json:"kind"`
	Text     string    `json:"text"`
	Revision uint64    `json:"revision"`
}

var _ Surface = (*Panel)(nil)
var _ Finisher = (*Panel)(nil)

// Panel is an in-memory display surface that fans changes out to
// subscribers.
type Panel struct {
	mu     sync.Mutex
	text   strings.Builder
	rev    uint64
	state  State
	// generating is set between a report request and its reveal or failure
	generating bool
	subs       map[int]chan Event
	nextID int
}

func NewPanel() *Panel {
	return &Panel{subs: make(map[int]chan Event)}
}

func (p *Panel) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.text.Reset()
	p.rev++
	p.state = Revealing
	p.generating = false
	p.publish(Event{Kind: EventReset, Revision: p.rev})
}

func (p *Panel) Append(r rune) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.text.WriteRune(r)
	p.rev++
	p.publish(Event{Kind: EventAppend, Text: string(r), Revision: p.rev})
}

func (p *Panel) Finish(final State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = final
	kind := EventComplete
	if final == Stopped {
		kind = EventStopped
	}
	p.publish(Event{Kind: kind, Revision: p.rev})
}

// Generating marks the panel as waiting for new text. The visible text and
// any reveal in progress are left alone.
func (p *Panel) Generating() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generating = true
	p.publish(Event{Kind: EventGenerating, Revision: p.rev})
}

// Failed ends a generating phase without new text.
func (p *Panel) Failed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.generating {
		return
	}
	p.generating = false
	p.publish(Event{Kind: EventFailed, Revision: p.rev})
}

// Snapshot returns the visible text, its revision and the reveal state.
// While text is being generated and nothing is revealing the state is
// Generating.
func (p *Panel) Snapshot() (string, uint64, State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.text.String(), p.rev, p.currentState()
}

// unused reports whether the panel has no subscribers and no pending text.
func (p *Panel) unused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.generating && len(p.subs) == 0
}

func (p *Panel) currentState() State {
	if p.generating && p.state != Revealing {
		return Generating
	}
	return p.state
}

// Subscribe returns a channel that first receives a reset event carrying
// the current text, followed by a generating event if text is being
// produced, then every later change. A subscriber that falls more
// than buffer events behind is dropped and its channel closed.
func (p *Panel) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer+2)

	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = ch
	ch <- Event{Kind: EventReset, Text: p.text.String(), Revision: p.rev}
	if p.generating {
		ch <- Event{Kind: EventGenerating, Revision: p.rev}
	}
	p.mu.Unlock()

	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if c, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

func (p *Panel) publish(ev Event) {
	for id, ch := range p.subs {
		select {
		case ch <- ev:
		default:
			delete(p.subs, id)
			close(ch)
		}
	}
}
