package ssh

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"
)

// fakeDialer hands out a single scripted connection
type fakeDialer struct {
	conn  *fakeConn
	err   error
	dials atomic.Int32
}

func (d *fakeDialer) Dial(ctx context.Context, target Target, timeout time.Duration) (Conn, error) {
	d.dials.Add(1)
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

type fakeConn struct {
	// hostKey, when set, is presented to the host key validator
	hostKey ssh.PublicKey
	authErr error
	session *fakeSession

	mu      sync.Mutex
	gotAuth AuthConfig
	closed  atomic.Int32
}

func (c *fakeConn) Authenticate(ctx context.Context, cfg AuthConfig) (Session, error) {
	c.mu.Lock()
	c.gotAuth = cfg
	c.mu.Unlock()

	if c.hostKey != nil {
		if err := cfg.HostKey.Validate("example.com:22", nil, c.hostKey); err != nil {
			return nil, err
		}
	}
	if c.authErr != nil {
		return nil, c.authErr
	}
	return c.session, nil
}

func (c *fakeConn) Close() error {
	c.closed.Add(1)
	return nil
}

type fakeSession struct {
	channel *fakeChannel
	openErr error

	opened    atomic.Int32
	closed    atomic.Int32
	connErr   chan error
	done      chan struct{}
	closeOnce sync.Once
}

func newFakeSession(ch *fakeChannel) *fakeSession {
	return &fakeSession{
		channel: ch,
		connErr: make(chan error, 1),
		done:    make(chan struct{}),
	}
}

func (s *fakeSession) OpenChannel(kind string) (Channel, error) {
	s.opened.Add(1)
	if s.openErr != nil {
		return nil, s.openErr
	}
	return s.channel, nil
}

func (s *fakeSession) Wait() error {
	select {
	case err := <-s.connErr:
		return err
	case <-s.done:
		return nil
	}
}

// Close tears down the connection, which closes its channels too
func (s *fakeSession) Close() error {
	s.closed.Add(1)
	s.closeOnce.Do(func() {
		close(s.done)
		if s.channel != nil {
			s.channel.finish()
		}
	})
	return nil
}

// fail simulates a transport failure reported out of band
func (s *fakeSession) fail(err error) {
	s.connErr <- err
}

type fakeChannel struct {
	kind string

	// confirmClose makes the remote acknowledge a local Close
	confirmClose bool
	execErr      error
	signalErr    error
	// script runs in its own goroutine once the command is dispatched
	script func(c *fakeChannel)

	events chan StreamEvent
	active atomic.Bool

	mu         sync.Mutex
	finished   bool
	execs      []string
	wantReply  []bool
	signals    []Signal
	exitStatus *int
	closeCalls atomic.Int32
}

func newFakeChannel(script func(c *fakeChannel)) *fakeChannel {
	c := &fakeChannel{
		kind:         ChannelSession,
		confirmClose: true,
		script:       script,
		events:       make(chan StreamEvent, 64),
	}
	c.active.Store(true)
	return c
}

func (c *fakeChannel) Kind() string { return c.kind }

func (c *fakeChannel) Active() bool { return c.active.Load() }

func (c *fakeChannel) SendExec(command string, wantReply bool) error {
	c.mu.Lock()
	c.execs = append(c.execs, command)
	c.wantReply = append(c.wantReply, wantReply)
	c.mu.Unlock()

	if c.execErr != nil {
		return c.execErr
	}
	if c.script != nil {
		go c.script(c)
	}
	return nil
}

func (c *fakeChannel) SendSignal(sig Signal) error {
	c.mu.Lock()
	c.signals = append(c.signals, sig)
	c.mu.Unlock()
	return c.signalErr
}

func (c *fakeChannel) Events() <-chan StreamEvent { return c.events }

func (c *fakeChannel) Exit() (*int, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitStatus, ""
}

func (c *fakeChannel) Close() error {
	c.closeCalls.Add(1)
	if c.confirmClose {
		c.finish()
	}
	return nil
}

// emit delivers output as the remote would; dropped once closed
func (c *fakeChannel) emit(kind StreamKind, data string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finished {
		return
	}
	c.events <- StreamEvent{Data: []byte(data), Kind: kind}
}

// exit reports a status and closes the channel from the remote side
func (c *fakeChannel) exit(status int) {
	c.mu.Lock()
	c.exitStatus = &status
	c.mu.Unlock()
	c.finish()
}

func (c *fakeChannel) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finished {
		return
	}
	c.finished = true
	c.active.Store(false)
	close(c.events)
}

func (c *fakeChannel) sentSignals() []Signal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Signal(nil), c.signals...)
}

func (c *fakeChannel) sentExecs() ([]string, []bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.execs...), append([]bool(nil), c.wantReply...)
}

// fakeTransport wires a dialer, connection, session and channel together
type fakeTransport struct {
	dialer  *fakeDialer
	conn    *fakeConn
	session *fakeSession
	channel *fakeChannel
}

func newFakeTransport(script func(c *fakeChannel)) *fakeTransport {
	ch := newFakeChannel(script)
	session := newFakeSession(ch)
	conn := &fakeConn{session: session}
	return &fakeTransport{
		dialer:  &fakeDialer{conn: conn},
		conn:    conn,
		session: session,
		channel: ch,
	}
}

func newTestSigner(t *testing.T) ssh.Signer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatalf("failed to create signer: %v", err)
	}
	return signer
}
