package web

import "sync"

const maxPendingAlerts = 20

// AlertQueue collects alerts for one viewer until a page or the live
// socket shows them.
type AlertQueue struct {
	mu   sync.Mutex
	msgs []string
}

func (q *AlertQueue) Alert(message string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.msgs) == maxPendingAlerts {
		q.msgs = q.msgs[1:]
	}
	q.msgs = append(q.msgs, message)
}

// Drain returns and forgets the pending alerts
func (q *AlertQueue) Drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	msgs := q.msgs
	q.msgs = nil
	return msgs
}

// confirmGate answers the controller's confirmation prompt with the
// operator's answer carried by the current request. An answer is used at
// most once.
type confirmGate struct {
	mu     sync.Mutex
	answer bool
	prompt string
}

func (g *confirmGate) Confirm(prompt string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	a := g.answer
	g.answer = false
	g.prompt = prompt
	return a
}

func (g *confirmGate) set(answer bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.answer = answer
}

func (g *confirmGate) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.prompt
}
