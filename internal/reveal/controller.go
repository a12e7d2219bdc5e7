package reveal

import (
	"sync"
	"time"
)

// DefaultInterval is the delay between two revealed characters.
const DefaultInterval = 50 * time.Millisecond

type State int

const (
	Idle State = iota
	Revealing
	Complete
	Stopped
	// Generating is only reported by Panel while report text is being
	// produced; the Controller never enters it.
	Generating
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Revealing:
		return "revealing"
	case Complete:
		return "complete"
	case Stopped:
		return "stopped"
	case Generating:
		return "generating"
	default:
		return "unknown"
	}
}

// Surface receives the revealed text one character at a time.
type Surface interface {
	Reset()
	Append(r rune)
}

// Finisher is implemented by surfaces that want to know how a reveal ended.
type Finisher interface {
	Finish(final State)
}

// Controller reveals text on a Surface at a fixed cadence. At most one
// reveal runs at a time; starting a new one stops the previous first.
type Controller struct {
	surface  Surface
	interval time.Duration

	// runMu serializes Start and Stop; it is held while waiting for the
	// reveal goroutine to exit, so the goroutine never takes it.
	runMu sync.Mutex
	stop  chan struct{}
	done  chan struct{}

	mu    sync.Mutex
	state State
}

func NewController(surface Surface, interval time.Duration) *Controller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Controller{surface: surface, interval: interval}
}

// Start cancels any reveal in progress, clears the surface and begins
// revealing text.
func (c *Controller) Start(text string) {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	c.halt()

	c.setState(Revealing)
	c.surface.Reset()

	stop := make(chan struct{})
	done := make(chan struct{})
	c.stop, c.done = stop, done
	go c.run([]rune(text), stop, done)
}

// Stop ends the current reveal. No character is appended after Stop
// returns. Calling it again is a no-op.
func (c *Controller) Stop() {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	c.halt()

	c.mu.Lock()
	prev := c.state
	if prev == Revealing || prev == Complete {
		c.state = Stopped
	}
	c.mu.Unlock()

	if prev == Revealing || prev == Complete {
		c.finish(Stopped)
	}
}

// halt stops the running goroutine, if any, and waits for it.
func (c *Controller) halt() {
	if c.stop == nil {
		return
	}
	close(c.stop)
	<-c.done
	c.stop, c.done = nil, nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) finish(s State) {
	if f, ok := c.surface.(Finisher); ok {
		f.Finish(s)
	}
}

func (c *Controller) run(text []rune, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for _, r := range text {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		// a tick and a stop may be ready together
		select {
		case <-stop:
			return
		default:
		}
		c.surface.Append(r)
	}

	c.setState(Complete)
	c.finish(Complete)
}
