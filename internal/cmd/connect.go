package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/yoanbernabeu/sshinvoke/internal/config"
	"github.com/yoanbernabeu/sshinvoke/internal/constants"
	"github.com/yoanbernabeu/sshinvoke/internal/security"
	"github.com/yoanbernabeu/sshinvoke/internal/ssh"
)

// connectOptions are the connection flags shared by run and hostkey
type connectOptions struct {
	User           string
	Port           int
	HostKey        string
	KnownHosts     string
	Insecure       bool
	ConnectTimeout time.Duration
	PasswordStdin  bool
}

// RemoteHost is a fully resolved connection target
type RemoteHost struct {
	// Alias is empty when the host was given directly
	Alias  string
	User   string
	Target ssh.Target
	Trust  ssh.ServerTrustPolicy
}

// parseHostSpec splits [user@]host
func parseHostSpec(spec string) (user, host string) {
	if i := strings.LastIndex(spec, "@"); i >= 0 {
		return spec[:i], spec[i+1:]
	}
	return "", spec
}

// ResolveHost turns an alias or [user@]host into a RemoteHost. Flags win
// over the host alias, which wins over the config defaults.
func ResolveHost(cfg *config.GlobalConfig, spec string, opts connectOptions, getenv func(string) string) (*RemoteHost, error) {
	user, name := parseHostSpec(spec)
	if name == "" {
		return nil, fmt.Errorf("no host given")
	}

	alias := ""
	if _, err := cfg.GetHost(name); err == nil {
		alias = name
	}
	hostCfg := cfg.Resolve(name)

	if user == "" {
		user = hostCfg.User
	}
	if opts.User != "" {
		user = opts.User
	}
	if user == "" {
		user = constants.DefaultUser
	}

	port := hostCfg.Port
	if opts.Port != 0 {
		port = opts.Port
	}

	if err := security.ValidateHostname(hostCfg.Host); err != nil {
		return nil, fmt.Errorf("invalid host: %w", err)
	}
	if err := security.ValidateUsername(user); err != nil {
		return nil, fmt.Errorf("invalid user: %w", err)
	}

	trust, err := resolveTrustPolicy(opts, hostCfg, getenv)
	if err != nil {
		return nil, err
	}

	return &RemoteHost{
		Alias:  alias,
		User:   user,
		Target: ssh.NewTarget(hostCfg.Host, port),
		Trust:  trust,
	}, nil
}

// resolveTrustPolicy picks the host key policy. Order: flags, then
// environment, then the host alias, then ~/.ssh/known_hosts.
func resolveTrustPolicy(opts connectOptions, host config.HostConfig, getenv func(string) string) (ssh.ServerTrustPolicy, error) {
	if opts.HostKey != "" && opts.Insecure {
		return nil, fmt.Errorf("--host-key and --insecure are mutually exclusive")
	}

	switch {
	case opts.HostKey != "":
		return ssh.PinnedPublicKey{Key: opts.HostKey}, nil
	case opts.Insecure:
		return ssh.AllowAll{}, nil
	case opts.KnownHosts != "":
		return ssh.KnownHosts{Path: opts.KnownHosts}, nil
	}

	if key := getenv(constants.EnvHostKey); key != "" {
		return ssh.PinnedPublicKey{Key: key}, nil
	}
	if skip, _ := strconv.ParseBool(getenv(constants.EnvSkipHostCheck)); skip {
		return ssh.AllowAll{}, nil
	}
	if path := getenv(constants.EnvKnownHosts); path != "" {
		return ssh.KnownHosts{Path: path}, nil
	}

	switch {
	case host.HostKey != "":
		return ssh.PinnedPublicKey{Key: host.HostKey}, nil
	case host.Insecure:
		return ssh.AllowAll{}, nil
	case host.KnownHosts != "":
		return ssh.KnownHosts{Path: host.KnownHosts}, nil
	}

	path, err := ssh.DefaultKnownHostsPath()
	if err != nil {
		return nil, err
	}
	return ssh.KnownHosts{Path: path}, nil
}

// passwordCredentials returns a provider resolving the password from
// --password-stdin, then SSHINVOKE_PASSWORD, then an interactive prompt
func passwordCredentials(user string, opts connectOptions, stdin io.Reader, getenv func(string) string, interactive bool) ssh.CredentialsProvider {
	return ssh.CredentialsFunc(func(context.Context) (ssh.Credentials, error) {
		var (
			password string
			err      error
		)
		switch {
		case opts.PasswordStdin:
			password, err = readSecretLine(stdin)
		case getenv(constants.EnvPassword) != "":
			password = getenv(constants.EnvPassword)
		case interactive:
			password, err = PromptPassword(fmt.Sprintf("Password for %s", user))
		default:
			err = fmt.Errorf("no password provided (use --password-stdin or %s)", constants.EnvPassword)
		}
		if err != nil {
			return nil, err
		}
		return ssh.Password{Username: user, Password: password}, nil
	})
}
