package ssh

import (
	"context"
	"time"
)

// ChannelSession is the only channel kind used to run commands
const ChannelSession = "session"

// Dialer opens transport connections. TCPDialer is the production
// implementation; tests substitute in-memory doubles.
type Dialer interface {
	Dial(ctx context.Context, target Target, timeout time.Duration) (Conn, error)
}

// Conn is an established but not yet authenticated connection
type Conn interface {
	// Authenticate runs the protocol handshake. The host key validator is
	// consulted before the credentials are offered.
	Authenticate(ctx context.Context, cfg AuthConfig) (Session, error)
	Close() error
}

// AuthConfig carries the authentication and server trust decisions for one
// handshake
type AuthConfig struct {
	Credentials Credentials
	HostKey     HostKeyValidator
	Timeout     time.Duration
}

// Session is an authenticated connection able to open channels
type Session interface {
	OpenChannel(kind string) (Channel, error)

	// Wait blocks until the connection shuts down and returns the error
	// that caused it
	Wait() error

	Close() error
}

// Channel is a single logical stream used for exactly one command
type Channel interface {
	// Kind reports the channel type actually obtained from the transport
	Kind() string

	// Active is false once the channel has been closed by either side
	Active() bool

	SendExec(command string, wantReply bool) error
	SendSignal(sig Signal) error

	// Events delivers output in transport order. It is closed after the
	// channel closed and every pending chunk was delivered.
	Events() <-chan StreamEvent

	// Exit returns the exit status and signal reported by the server. Only
	// meaningful once Events is closed.
	Exit() (status *int, signal string)

	Close() error
}
