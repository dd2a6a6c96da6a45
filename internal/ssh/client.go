package ssh

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// TCPDialer connects to SSH servers over TCP using golang.org/x/crypto/ssh
type TCPDialer struct {
	// KeepAlive is passed to net.Dialer; zero keeps the Go default
	KeepAlive time.Duration
}

// Dial establishes the TCP connection. The SSH handshake happens later in
// Authenticate.
func (d TCPDialer) Dial(ctx context.Context, target Target, timeout time.Duration) (Conn, error) {
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: d.KeepAlive,
	}

	addr := target.Addr()
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}

	return &tcpConn{conn: conn, addr: addr}, nil
}

type tcpConn struct {
	conn net.Conn
	addr string
}

func (c *tcpConn) Authenticate(ctx context.Context, cfg AuthConfig) (Session, error) {
	sshConn, chans, reqs, err := handshake(ctx, c.conn, c.addr, cfg)
	if err != nil {
		return nil, err
	}
	return &clientSession{client: ssh.NewClient(sshConn, chans, reqs)}, nil
}

func (c *tcpConn) Close() error {
	return c.conn.Close()
}

// handshake runs the SSH handshake over conn. The policy decisions taken in
// the callbacks are recorded so that they are reported as-is rather than
// through the library's wrapped handshake error.
func handshake(ctx context.Context, conn net.Conn, addr string, cfg AuthConfig) (ssh.Conn, <-chan ssh.NewChannel, <-chan *ssh.Request, error) {
	if cfg.Credentials == nil {
		return nil, nil, nil, ErrUnsupportedCredentials
	}

	hostKey := cfg.HostKey
	if hostKey == nil {
		hostKey = NewHostKeyValidator(nil)
	}

	var (
		mu       sync.Mutex
		trustErr error
		authErr  error
		offered  bool
	)

	config := &ssh.ClientConfig{
		User: cfg.Credentials.User(),
		Auth: []ssh.AuthMethod{
			// x/crypto only calls this when the server lists "password"
			ssh.PasswordCallback(func() (string, error) {
				offer, err := NextAuthOffer([]string{AuthMethodPassword}, cfg.Credentials)
				mu.Lock()
				defer mu.Unlock()
				offered = true
				if err != nil {
					authErr = err
					return "", err
				}
				return offer.Password, nil
			}),
		},
		HostKeyCallback: func(hostname string, remote net.Addr, key ssh.PublicKey) error {
			err := hostKey.Validate(hostname, remote, key)
			if err != nil {
				mu.Lock()
				trustErr = err
				mu.Unlock()
			}
			return err
		},
		Timeout: cfg.Timeout,
	}

	if cfg.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(cfg.Timeout))
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	stop()
	if err != nil {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case trustErr != nil:
			return nil, nil, nil, trustErr
		case authErr != nil:
			return nil, nil, nil, authErr
		case !offered && isNoSupportedMethods(err):
			if _, policyErr := NextAuthOffer(nil, cfg.Credentials); policyErr != nil {
				return nil, nil, nil, policyErr
			}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, nil, ctxErr
		}
		return nil, nil, nil, err
	}

	_ = conn.SetDeadline(time.Time{})
	return sshConn, chans, reqs, nil
}

// isNoSupportedMethods reports whether the handshake failed because none of
// the configured methods were offered by the server
func isNoSupportedMethods(err error) bool {
	return strings.Contains(err.Error(), "no supported methods remain")
}

type clientSession struct {
	client *ssh.Client
}

func (s *clientSession) OpenChannel(kind string) (Channel, error) {
	ch, reqs, err := s.client.OpenChannel(kind, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s channel: %w", kind, err)
	}
	return newSessionChannel(ch, reqs, kind), nil
}

func (s *clientSession) Wait() error {
	return s.client.Wait()
}

func (s *clientSession) Close() error {
	return s.client.Close()
}
