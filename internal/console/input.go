package console

// readResult is the one-shot outcome of a pending read.
type readResult struct {
	text      string
	delivered bool
}

// pendingRead is a single-slot rendezvous between one waiting program and one
// resolver. The channel is buffered so resolution never blocks.
type pendingRead struct {
	prompt string
	result chan readResult
}

func newPendingRead(prompt string) *pendingRead {
	return &pendingRead{prompt: prompt, result: make(chan readResult, 1)}
}

func (p *pendingRead) resolve(text string, deliver bool) {
	if p == nil {
		return
	}
	select {
	case p.result <- readResult{text: text, delivered: deliver}:
	default:
	}
}

// inputGate holds at most one pending read plus the draft text the presentation
// is editing. Guarded by the owning Session's mutex.
type inputGate struct {
	pending *pendingRead
	draft   string
}

// open installs a new pending read, rejecting a second concurrent request.
func (g *inputGate) open(prompt string) (*pendingRead, error) {
	if g.pending != nil {
		return nil, ErrInputPending
	}
	g.pending = newPendingRead(prompt)
	return g.pending, nil
}

// take removes and returns the pending read, if any.
func (g *inputGate) take() *pendingRead {
	pending := g.pending
	g.pending = nil
	return pending
}

// forget clears the slot only when it still holds p.
func (g *inputGate) forget(p *pendingRead) {
	if g.pending == p {
		g.pending = nil
	}
}
