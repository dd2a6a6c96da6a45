package ssh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// errHostKeyCaptured aborts the handshake once the host key is known
var errHostKeyCaptured = errors.New("host key captured")

// HostKeyInfo describes a server host key
type HostKeyInfo struct {
	Key            ssh.PublicKey
	Type           string // Key algorithm (e.g., "ssh-ed25519")
	Fingerprint    string // SHA256 fingerprint as printed by ssh-keygen -l
	AuthorizedLine string // Key in authorized_keys format, usable with --host-key
}

// FetchHostKey connects to the target and returns its host key without
// authenticating. The handshake is aborted as soon as the key is received.
func FetchHostKey(ctx context.Context, target Target, timeout time.Duration) (*HostKeyInfo, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", target.Addr())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", target.Addr(), err)
	}
	defer conn.Close()

	if timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(timeout))
	}

	var captured ssh.PublicKey
	config := &ssh.ClientConfig{
		User: "sshinvoke",
		HostKeyCallback: func(_ string, _ net.Addr, key ssh.PublicKey) error {
			captured = key
			return errHostKeyCaptured
		},
		Timeout: timeout,
	}

	_, _, _, err = ssh.NewClientConn(conn, target.Addr(), config)
	if captured == nil {
		if err == nil {
			err = errors.New("server presented no host key")
		}
		return nil, fmt.Errorf("failed to read host key: %w", err)
	}

	return DescribeHostKey(captured), nil
}

// DescribeHostKey returns the printable forms of key
func DescribeHostKey(key ssh.PublicKey) *HostKeyInfo {
	return &HostKeyInfo{
		Key:            key,
		Type:           key.Type(),
		Fingerprint:    ssh.FingerprintSHA256(key),
		AuthorizedLine: FormatAuthorizedKey(key),
	}
}

// FormatAuthorizedKey renders key as a single authorized_keys line without
// the trailing newline
func FormatAuthorizedKey(key ssh.PublicKey) string {
	return strings.TrimSpace(string(ssh.MarshalAuthorizedKey(key)))
}

// DefaultKnownHostsPath returns ~/.ssh/known_hosts
func DefaultKnownHostsPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".ssh", "known_hosts"), nil
}

// newKnownHostsCallback creates a host key callback from a known_hosts file
func newKnownHostsCallback(path string) (ssh.HostKeyCallback, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return knownhosts.New(path)
}

// expandHome expands a leading ~/ in path
func expandHome(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
