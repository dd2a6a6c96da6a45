package ssh

import (
	"net"
	"strconv"
	"time"

	"github.com/yoanbernabeu/sshinvoke/internal/constants"
)

// Target is the remote SSH endpoint of one invocation
type Target struct {
	Host string
	Port int
}

// NewTarget returns a Target, defaulting the port to 22 when zero
func NewTarget(host string, port int) Target {
	if port == 0 {
		port = constants.DefaultPort
	}
	return Target{Host: host, Port: port}
}

// Validate checks the target before any I/O is attempted
func (t Target) Validate() error {
	if t.Host == "" {
		return ErrInvalidHostname
	}
	if t.Port < 0 || t.Port > 65535 {
		return ErrInvalidPort
	}
	return nil
}

// Addr returns the host:port dial address
func (t Target) Addr() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

func (t Target) String() string {
	return t.Addr()
}

// StreamKind identifies which remote stream a chunk of output came from
type StreamKind int

const (
	Stdout StreamKind = iota
	Stderr
)

func (k StreamKind) String() string {
	switch k {
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	default:
		return "unknown"
	}
}

// StreamEvent is one chunk of output as delivered by the transport.
// Data is owned by the receiver; transports never reuse it.
type StreamEvent struct {
	Data []byte
	Kind StreamKind
}

// StreamHandler receives output chunks in arrival order
type StreamHandler func(StreamEvent)

// Signal is a remote signal name as defined by RFC 4254 section 6.10
type Signal string

const (
	SignalKill      Signal = "KILL"
	SignalInterrupt Signal = "INT"
)

// ExecutionRequest describes the command to run and how to collect its output
type ExecutionRequest struct {
	Command string

	// Timeout is the hard execution deadline. Zero disables it.
	Timeout time.Duration

	// WantResult enables accumulation of stdout and stderr into a Result.
	// When false no buffer is ever allocated.
	WantResult bool

	// MaxOutput caps the accumulated bytes across both streams. Zero means
	// unbounded: a remote command producing endless output grows memory
	// without limit.
	MaxOutput int64
}

// Result holds the accumulated output of a command
type Result struct {
	Stdout []byte
	Stderr []byte

	// ExitStatus is set when the server reported one
	ExitStatus *int

	// ExitSignal is set when the remote process was terminated by a signal
	ExitSignal string
}

// StdoutString returns stdout as a string
func (r *Result) StdoutString() string {
	if r == nil {
		return ""
	}
	return string(r.Stdout)
}

// StderrString returns stderr as a string
func (r *Result) StderrString() string {
	if r == nil {
		return ""
	}
	return string(r.Stderr)
}

// Invocation bundles everything needed to run one command on one host
type Invocation struct {
	Target         Target
	Trust          ServerTrustPolicy
	ConnectTimeout time.Duration
	Credentials    Credentials
	Request        ExecutionRequest

	// OnOutput, when set, receives every output chunk independently of
	// accumulation. It runs on the invocation goroutine and must not block
	// for long.
	OnOutput StreamHandler
}
