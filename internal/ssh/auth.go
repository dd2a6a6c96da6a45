package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// AuthMethodPassword is the RFC 4252 name of password authentication
const AuthMethodPassword = "password"

// Credentials identify the client to the server.
// Implemented by Password and PublicKey.
type Credentials interface {
	User() string
	isCredentials()
}

// Password authenticates with a username and password
type Password struct {
	Username string
	Password string
}

func (p Password) User() string { return p.Username }
func (Password) isCredentials() {}

// PublicKey is reserved for key based client authentication, which is not
// implemented: the authentication policy always rejects it.
type PublicKey struct {
	Username   string
	PrivateKey []byte
}

func (k PublicKey) User() string { return k.Username }
func (PublicKey) isCredentials() {}

// CredentialsProvider supplies credentials on demand, decoupling the
// invocation from the way they are obtained (flags, env, terminal prompt)
type CredentialsProvider interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// CredentialsFunc adapts a function to CredentialsProvider
type CredentialsFunc func(ctx context.Context) (Credentials, error)

func (f CredentialsFunc) Credentials(ctx context.Context) (Credentials, error) {
	return f(ctx)
}

// StaticCredentials returns a provider that always yields c
func StaticCredentials(c Credentials) CredentialsProvider {
	return CredentialsFunc(func(context.Context) (Credentials, error) {
		return c, nil
	})
}

// AuthOffer is what the client proposes to the server for one
// authentication attempt
type AuthOffer struct {
	Username string
	Method   string
	Password string
}

// NextAuthOffer picks an authentication offer among the methods the server
// reported as available
func NextAuthOffer(available []string, creds Credentials) (*AuthOffer, error) {
	switch c := creds.(type) {
	case Password:
		if !slices.Contains(available, AuthMethodPassword) {
			return nil, ErrPasswordAuthenticationNotSupported
		}
		return &AuthOffer{
			Username: c.Username,
			Method:   AuthMethodPassword,
			Password: c.Password,
		}, nil
	default:
		return nil, ErrUnsupportedCredentials
	}
}

// ServerTrustPolicy decides whether the host key presented by the server is
// acceptable. Implemented by AllowAll, PinnedPublicKey and KnownHosts.
type ServerTrustPolicy interface {
	isTrustPolicy()
}

// AllowAll accepts any host key.
// SECURITY: vulnerable to man-in-the-middle attacks, use for testing only.
type AllowAll struct{}

// PinnedPublicKey accepts exactly one host key, given in authorized_keys
// format: "algorithm base64-key [comment]"
type PinnedPublicKey struct {
	Key string
}

// KnownHosts accepts host keys listed in an OpenSSH known_hosts file
type KnownHosts struct {
	Path string
}

func (AllowAll) isTrustPolicy()        {}
func (PinnedPublicKey) isTrustPolicy() {}
func (KnownHosts) isTrustPolicy()      {}

// HostKeyValidator is consulted once per connection during the handshake
type HostKeyValidator interface {
	Validate(hostname string, remote net.Addr, key ssh.PublicKey) error
}

// HostKeyValidatorFunc adapts a function to HostKeyValidator
type HostKeyValidatorFunc func(hostname string, remote net.Addr, key ssh.PublicKey) error

func (f HostKeyValidatorFunc) Validate(hostname string, remote net.Addr, key ssh.PublicKey) error {
	return f(hostname, remote, key)
}

// NewHostKeyValidator returns the validator implementing policy. A nil
// policy behaves like AllowAll.
func NewHostKeyValidator(policy ServerTrustPolicy) HostKeyValidator {
	switch p := policy.(type) {
	case nil, AllowAll:
		return HostKeyValidatorFunc(func(string, net.Addr, ssh.PublicKey) error {
			return nil
		})
	case PinnedPublicKey:
		return &pinnedValidator{encoded: p.Key}
	case KnownHosts:
		return &knownHostsValidator{path: p.Path}
	default:
		return HostKeyValidatorFunc(func(string, net.Addr, ssh.PublicKey) error {
			return fmt.Errorf("%w: unknown trust policy %T", ErrInvalidEnteredServerPublicKey, policy)
		})
	}
}

type pinnedValidator struct {
	encoded string

	once     sync.Once
	pinned   ssh.PublicKey
	parseErr error
}

func (v *pinnedValidator) Validate(_ string, _ net.Addr, key ssh.PublicKey) error {
	v.once.Do(func() {
		v.pinned, v.parseErr = ParsePublicKey(v.encoded)
	})
	if v.parseErr != nil {
		return ErrInvalidEnteredServerPublicKey
	}
	if !KeysEqual(v.pinned, key) {
		return ErrDisallowedRemoteServerPublicKey
	}
	return nil
}

type knownHostsValidator struct {
	path string

	once     sync.Once
	callback ssh.HostKeyCallback
	loadErr  error
}

func (v *knownHostsValidator) Validate(hostname string, remote net.Addr, key ssh.PublicKey) error {
	v.once.Do(func() {
		v.callback, v.loadErr = newKnownHostsCallback(expandHome(v.path))
	})
	if v.loadErr != nil {
		return fmt.Errorf("%w: failed to read known_hosts: %v", ErrInvalidEnteredServerPublicKey, v.loadErr)
	}
	if err := v.callback(hostname, remote, key); err != nil {
		var keyErr *knownhosts.KeyError
		if errors.As(err, &keyErr) && len(keyErr.Want) == 0 {
			return fmt.Errorf("%w: host %s not found in %s", ErrDisallowedRemoteServerPublicKey, hostname, v.path)
		}
		return fmt.Errorf("%w: %v", ErrDisallowedRemoteServerPublicKey, err)
	}
	return nil
}

// ParsePublicKey parses a key in authorized_keys format
func ParsePublicKey(encoded string) (ssh.PublicKey, error) {
	key, _, _, _, err := ssh.ParseAuthorizedKey([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return key, nil
}

// KeysEqual compares two public keys by their wire encoding
func KeysEqual(a, b ssh.PublicKey) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Type() == b.Type() && bytes.Equal(a.Marshal(), b.Marshal())
}
