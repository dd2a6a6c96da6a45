package ssh

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"golang.org/x/crypto/ssh"
)

const readBufferSize = 32 * 1024

// sessionChannel adapts an x/crypto channel to Channel. One goroutine reads
// each stream and one drains channel requests; Events is closed once all
// three are done, which only happens after the channel was closed.
type sessionChannel struct {
	ch     ssh.Channel
	kind   string
	events chan StreamEvent
	quit   chan struct{}
	active atomic.Bool

	closeOnce sync.Once

	mu         sync.Mutex
	exitStatus *int
	exitSignal string
}

func newSessionChannel(ch ssh.Channel, reqs <-chan *ssh.Request, kind string) *sessionChannel {
	c := &sessionChannel{
		ch:     ch,
		kind:   kind,
		events: make(chan StreamEvent),
		quit:   make(chan struct{}),
	}
	c.active.Store(true)

	var wg sync.WaitGroup
	wg.Add(3)
	go c.read(ch, Stdout, &wg)
	go c.read(ch.Stderr(), Stderr, &wg)
	go c.handleRequests(reqs, &wg)
	go func() {
		wg.Wait()
		c.active.Store(false)
		close(c.events)
	}()

	return c
}

func (c *sessionChannel) read(r io.Reader, kind StreamKind, wg *sync.WaitGroup) {
	defer wg.Done()

	buf := make([]byte, readBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case c.events <- StreamEvent{Data: data, Kind: kind}:
			case <-c.quit:
				// Nobody is listening anymore; keep draining so the
				// transport is not blocked on a full window.
				_, _ = io.Copy(io.Discard, r)
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// exitSignalMsg is the payload of an "exit-signal" request (RFC 4254 6.10)
type exitSignalMsg struct {
	Signal     string
	CoreDumped bool
	Error      string
	Lang       string
}

func (c *sessionChannel) handleRequests(reqs <-chan *ssh.Request, wg *sync.WaitGroup) {
	defer wg.Done()

	for req := range reqs {
		switch req.Type {
		case "exit-status":
			var msg struct{ Status uint32 }
			if err := ssh.Unmarshal(req.Payload, &msg); err == nil {
				status := int(msg.Status)
				c.mu.Lock()
				c.exitStatus = &status
				c.mu.Unlock()
			}
		case "exit-signal":
			var msg exitSignalMsg
			if err := ssh.Unmarshal(req.Payload, &msg); err == nil {
				c.mu.Lock()
				c.exitSignal = msg.Signal
				c.mu.Unlock()
			}
		}
		if req.WantReply {
			_ = req.Reply(false, nil)
		}
	}
}

func (c *sessionChannel) Kind() string {
	return c.kind
}

func (c *sessionChannel) Active() bool {
	return c.active.Load()
}

func (c *sessionChannel) SendExec(command string, wantReply bool) error {
	payload := ssh.Marshal(struct{ Command string }{command})
	ok, err := c.ch.SendRequest("exec", wantReply, payload)
	if err != nil {
		return fmt.Errorf("failed to send exec request: %w", err)
	}
	if wantReply && !ok {
		return errors.New("exec request rejected by server")
	}
	return nil
}

func (c *sessionChannel) SendSignal(sig Signal) error {
	payload := ssh.Marshal(struct{ Signal string }{string(sig)})
	if _, err := c.ch.SendRequest("signal", false, payload); err != nil {
		return fmt.Errorf("failed to send signal %s: %w", sig, err)
	}
	return nil
}

func (c *sessionChannel) Events() <-chan StreamEvent {
	return c.events
}

func (c *sessionChannel) Exit() (*int, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitStatus, c.exitSignal
}

// Close asks the server to close the channel. Events keeps running until
// the server confirms or the connection goes away.
func (c *sessionChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.quit)
		err = c.ch.Close()
	})
	return err
}
