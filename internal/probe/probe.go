package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/yoanbernabeu/sshinvoke/internal/logging"
	"github.com/yoanbernabeu/sshinvoke/internal/ssh"
)

// DefaultCommand is run when no probe command is configured
const DefaultCommand = "true"

// Prober waits for a host to accept SSH connections and run a command
type Prober struct {
	runner   ssh.Runner
	in       ssh.Invocation
	timeout  time.Duration
	retries  int
	interval time.Duration
	logger   zerolog.Logger
}

// NewProber creates a prober for the given invocation. An empty command is
// replaced with DefaultCommand.
func NewProber(runner ssh.Runner, in ssh.Invocation) *Prober {
	if in.Request.Command == "" {
		in.Request.Command = DefaultCommand
	}
	in.Request.WantResult = true
	in.OnOutput = nil

	return &Prober{
		runner:   runner,
		in:       in,
		timeout:  30 * time.Second,
		retries:  5,
		interval: 2 * time.Second,
		logger:   logging.Component("probe"),
	}
}

// SetTimeout sets the overall timeout
func (p *Prober) SetTimeout(timeout time.Duration) {
	p.timeout = timeout
}

// SetRetries sets the number of attempts
func (p *Prober) SetRetries(retries int) {
	p.retries = retries
}

// SetInterval sets the pause between attempts
func (p *Prober) SetInterval(interval time.Duration) {
	p.interval = interval
}

// Result contains the outcome of a probe
type Result struct {
	Ready        bool
	ExitStatus   int // -1 when the command was killed by a signal
	ExitSignal   string
	Message      string
	ResponseTime time.Duration
	Attempts     int
	LastErr      error // error of the last failed attempt, if any
}

// Check runs the probe command until it exits 0, the attempts are used up
// or the timeout is reached. The timeout also bounds a running attempt.
// Errors that retrying cannot fix, such as a rejected host key, are
// returned immediately.
func (p *Prober) Check(ctx context.Context) (*Result, error) {
	result := &Result{}

	waitCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// timedOut reports whether the probe deadline, not the caller, ended
	// the wait
	timedOut := func() bool {
		return ctx.Err() == nil && waitCtx.Err() != nil
	}

	for attempt := 1; attempt <= p.retries; attempt++ {
		result.Attempts = attempt

		if timedOut() {
			result.Message = "probe timeout"
			return result, nil
		}

		start := time.Now()
		res, err := p.runner.Run(waitCtx, p.in)
		result.ResponseTime = time.Since(start)

		switch {
		case err == nil:
			result.LastErr = nil
			result.ExitStatus = 0
			if res != nil && res.ExitStatus != nil {
				result.ExitStatus = *res.ExitStatus
			}
			switch {
			case res != nil && res.ExitStatus == nil && res.ExitSignal != "":
				result.ExitStatus = -1
				result.ExitSignal = res.ExitSignal
				result.Message = fmt.Sprintf("command killed by signal %s", res.ExitSignal)
			case result.ExitStatus == 0:
				result.Ready = true
				result.Message = "ready"
				return result, nil
			default:
				result.Message = fmt.Sprintf("command exited with status %d", result.ExitStatus)
			}
		case ctx.Err() != nil:
			return result, ctx.Err()
		case timedOut():
			result.LastErr = err
			result.Message = "probe timeout"
			return result, nil
		case isPermanent(err):
			result.LastErr = err
			result.Message = err.Error()
			return result, err
		default:
			result.LastErr = err
			result.Message = fmt.Sprintf("connection failed: %v", err)
		}

		p.logger.Debug().
			Int("attempt", attempt).
			Str("target", p.in.Target.String()).
			Str("message", result.Message).
			Msg("Probe attempt failed")

		if attempt == p.retries {
			break
		}
		if err := sleep(waitCtx, p.interval); err != nil {
			if timedOut() {
				result.Message = "probe timeout"
				return result, nil
			}
			return result, err
		}
	}

	return result, nil
}

// isPermanent reports whether err will not go away by trying again
func isPermanent(err error) bool {
	switch {
	case errors.Is(err, ssh.ErrInvalidHostname),
		errors.Is(err, ssh.ErrInvalidPort),
		errors.Is(err, ssh.ErrPasswordAuthenticationNotSupported),
		errors.Is(err, ssh.ErrUnsupportedCredentials),
		errors.Is(err, ssh.ErrInvalidEnteredServerPublicKey),
		errors.Is(err, ssh.ErrDisallowedRemoteServerPublicKey),
		errors.Is(err, ssh.ErrInvalidChannelType):
		return true
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
