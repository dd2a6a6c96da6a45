package ssh

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Pending is the eventual terminal outcome of an invocation. It resolves
// exactly once; later resolution attempts are ignored.
type Pending struct {
	id   string
	done chan struct{}
	once sync.Once

	result *Result
	err    error

	attempts atomic.Int32
	resolved atomic.Int32
}

func newPending() *Pending {
	return &Pending{
		id:   uuid.NewString(),
		done: make(chan struct{}),
	}
}

// resolve records the outcome if none was recorded yet and reports whether
// this call won. A failure never carries a result.
func (p *Pending) resolve(result *Result, err error) bool {
	p.attempts.Add(1)
	won := false
	p.once.Do(func() {
		if err != nil {
			result = nil
		}
		p.result = result
		p.err = err
		p.resolved.Add(1)
		won = true
		close(p.done)
	})
	return won
}

// ID identifies the invocation in logs
func (p *Pending) ID() string {
	return p.id
}

// Done is closed once the outcome is known
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the outcome is known and returns it
func (p *Pending) Wait() (*Result, error) {
	<-p.done
	return p.result, p.err
}
