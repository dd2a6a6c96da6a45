package ssh

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/yoanbernabeu/sshinvoke/internal/constants"
	"github.com/yoanbernabeu/sshinvoke/internal/logging"
	"github.com/yoanbernabeu/sshinvoke/internal/security"
)

// connErrWindow is how long a channel closed without exit information
// waits for the connection to report a failure
const connErrWindow = 100 * time.Millisecond

// Invoker runs one command per invocation on a remote host and resolves a
// single terminal outcome, whichever stage fails first.
type Invoker struct {
	dialer     Dialer
	logger     zerolog.Logger
	closeGrace time.Duration
}

// InvokerOption configures an Invoker
type InvokerOption func(*Invoker)

// WithDialer replaces the default TCP transport
func WithDialer(d Dialer) InvokerOption {
	return func(inv *Invoker) {
		if d != nil {
			inv.dialer = d
		}
	}
}

// WithLogger sets the logger used for stage transitions
func WithLogger(l zerolog.Logger) InvokerOption {
	return func(inv *Invoker) {
		inv.logger = l
	}
}

// WithCloseGrace sets how long to wait for the server to confirm a channel
// close after a kill before tearing down the whole connection. Zero waits
// indefinitely.
func WithCloseGrace(d time.Duration) InvokerOption {
	return func(inv *Invoker) {
		inv.closeGrace = d
	}
}

// NewInvoker creates an Invoker using the x/crypto SSH transport by default
func NewInvoker(opts ...InvokerOption) *Invoker {
	inv := &Invoker{
		dialer:     TCPDialer{},
		logger:     logging.Component("invoker"),
		closeGrace: constants.DefaultCloseGrace,
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Run executes the invocation and waits for its outcome
func (inv *Invoker) Run(ctx context.Context, in Invocation) (*Result, error) {
	return inv.Start(ctx, in).Wait()
}

// Start validates the invocation and runs it in the background. Validation
// failures resolve immediately, before any connection attempt.
//
// Cancelling ctx aborts a pending connection and, once the command runs,
// triggers the same kill escalation as the execution timeout.
func (inv *Invoker) Start(ctx context.Context, in Invocation) *Pending {
	p := newPending()

	if err := in.Target.Validate(); err != nil {
		inv.logger.Debug().
			Str("invocation", p.ID()).
			Str("kind", Kind(err)).
			Msg("invalid target")
		p.resolve(nil, err)
		return p
	}

	go inv.run(ctx, in, p)
	return p
}

func (inv *Invoker) run(ctx context.Context, in Invocation, p *Pending) {
	log := inv.logger.With().
		Str("invocation", p.ID()).
		Str("target", in.Target.Addr()).
		Logger()

	connectTimeout := in.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = constants.DefaultConnectTimeout
	}

	log.Debug().Str("stage", "connect").Dur("timeout", connectTimeout).Msg("dialing")
	conn, err := inv.dialer.Dial(ctx, in.Target, connectTimeout)
	if err != nil {
		inv.fail(log, p, "connect", err)
		return
	}

	log.Debug().Str("stage", "authenticate").Msg("handshaking")
	session, err := conn.Authenticate(ctx, AuthConfig{
		Credentials: in.Credentials,
		HostKey:     NewHostKeyValidator(in.Trust),
		Timeout:     connectTimeout,
	})
	if err != nil {
		closeQuietly(log, "connection", conn)
		inv.fail(log, p, "authenticate", err)
		return
	}

	log.Debug().Str("stage", "open_channel").Msg("opening session channel")
	ch, err := session.OpenChannel(ChannelSession)
	if err != nil {
		closeQuietly(log, "connection", session)
		inv.fail(log, p, "open_channel", err)
		return
	}
	if ch.Kind() != ChannelSession {
		closeQuietly(log, "channel", ch)
		closeQuietly(log, "connection", session)
		inv.fail(log, p, "open_channel", ErrInvalidChannelType)
		return
	}

	log.Debug().
		Str("stage", "exec").
		Str("command", security.SanitizeCommandForLog(in.Request.Command)).
		Msg("dispatching command")
	if err := ch.SendExec(in.Request.Command, false); err != nil {
		closeQuietly(log, "channel", ch)
		closeQuietly(log, "connection", session)
		inv.fail(log, p, "exec", err)
		return
	}

	result, err := inv.execute(ctx, log, in, session, ch)

	// The connection is closed whatever the outcome; close errors are not
	// part of it.
	closeQuietly(log, "connection", session)

	if err != nil {
		inv.fail(log, p, "execute", err)
		return
	}
	log.Debug().Str("stage", "closed").Msg("command finished")
	p.resolve(result, nil)
}

// execute drives the running command until its channel closes or the
// connection fails. It is the only place that touches the channel, the
// accumulator and the escalation state.
func (inv *Invoker) execute(ctx context.Context, log zerolog.Logger, in Invocation, session Session, ch Channel) (*Result, error) {
	acc := newAccumulator(in.Request.WantResult, in.Request.MaxOutput)

	connErrs := make(chan error, 1)
	go func() {
		connErrs <- session.Wait()
	}()
	connErr := (<-chan error)(connErrs)

	var timeout <-chan time.Time
	if in.Request.Timeout > 0 {
		timer := time.NewTimer(in.Request.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	var (
		cause    error
		grace    <-chan time.Time
		canceled = ctx.Done()
		events   = ch.Events()
	)

	// escalate kills the remote process and closes the channel. The outcome
	// is decided later, when the close is observed.
	escalate := func(reason error) {
		if cause != nil {
			return
		}
		if !ch.Active() {
			log.Debug().Err(reason).Msg("channel already inactive, skipping signal")
			return
		}
		cause = reason
		log.Debug().Str("stage", "signal").Err(reason).Str("signal", string(SignalKill)).Msg("terminating remote process")
		if err := ch.SendSignal(SignalKill); err != nil {
			log.Warn().Err(err).Msg("failed to send signal")
		}
		if err := ch.Close(); err != nil {
			log.Debug().Err(err).Msg("failed to close channel")
		}
		if inv.closeGrace > 0 {
			grace = time.After(inv.closeGrace)
		}
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				// A transport failure tears channels down too; it takes
				// precedence over whatever the close would report. The
				// transport closes channels before Wait returns, so a close
				// without exit information waits briefly for that error.
				status, signal := ch.Exit()
				noExit := cause == nil && status == nil && signal == ""
				if err := pendingConnErr(connErr, noExit); err != nil {
					return nil, err
				}
				if cause != nil {
					return nil, cause
				}
				return acc.finish(status, signal), nil
			}
			if in.OnOutput != nil {
				in.OnOutput(ev)
			}
			if err := acc.append(ev); err != nil {
				escalate(err)
			}

		case <-timeout:
			timeout = nil
			escalate(ErrScriptExecutionTimeout)

		case <-canceled:
			canceled = nil
			escalate(ctx.Err())

		case err := <-connErr:
			connErr = nil
			if err == nil {
				// A clean shutdown closes the channel too; its close
				// decides the outcome.
				log.Debug().Msg("connection closed")
				continue
			}
			log.Debug().Err(err).Msg("connection failed")
			closeQuietly(log, "channel", ch)
			return nil, err

		case <-grace:
			grace = nil
			connErr = nil
			log.Warn().Dur("grace", inv.closeGrace).Msg("channel close not confirmed, closing connection")
			closeQuietly(log, "connection", session)
		}
	}
}

// pendingConnErr returns the transport error already reported on connErr.
// With wait set it gives the transport connErrWindow to report one.
func pendingConnErr(connErr <-chan error, wait bool) error {
	if connErr == nil {
		return nil
	}
	if !wait {
		select {
		case err := <-connErr:
			return err
		default:
			return nil
		}
	}

	timer := time.NewTimer(connErrWindow)
	defer timer.Stop()
	select {
	case err := <-connErr:
		return err
	case <-timer.C:
		return nil
	}
}

func (inv *Invoker) fail(log zerolog.Logger, p *Pending, stage string, err error) {
	log.Debug().Str("stage", stage).Str("kind", Kind(err)).Err(err).Msg("invocation failed")
	p.resolve(nil, err)
}

func closeQuietly(log zerolog.Logger, what string, c io.Closer) {
	if err := c.Close(); err != nil {
		log.Debug().Err(err).Str("resource", what).Msg("close failed")
	}
}
