package ssh

import (
	"context"
	"errors"
)

var (
	ErrInvalidHostname                    = errors.New("invalid hostname")
	ErrInvalidPort                        = errors.New("invalid port")
	ErrPasswordAuthenticationNotSupported = errors.New("password authentication not supported by server")
	ErrUnsupportedCredentials             = errors.New("unsupported credentials type")
	ErrInvalidEnteredServerPublicKey      = errors.New("invalid server public key")
	ErrDisallowedRemoteServerPublicKey    = errors.New("remote server public key not allowed")
	ErrInvalidChannelType                 = errors.New("invalid channel type")
	ErrScriptExecutionTimeout             = errors.New("script execution timeout")
	ErrOutputLimitExceeded                = errors.New("output limit exceeded")
)

// IsTimeout reports whether err is an execution timeout
func IsTimeout(err error) bool {
	return errors.Is(err, ErrScriptExecutionTimeout)
}

// Kind returns a short stable name for the error class, used in logs and
// CLI output. Errors coming from the transport are reported as "transport".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidHostname):
		return "invalid_hostname"
	case errors.Is(err, ErrInvalidPort):
		return "invalid_port"
	case errors.Is(err, ErrPasswordAuthenticationNotSupported):
		return "password_auth_not_supported"
	case errors.Is(err, ErrUnsupportedCredentials):
		return "unsupported_credentials"
	case errors.Is(err, ErrInvalidEnteredServerPublicKey):
		return "invalid_server_public_key"
	case errors.Is(err, ErrDisallowedRemoteServerPublicKey):
		return "disallowed_server_public_key"
	case errors.Is(err, ErrInvalidChannelType):
		return "invalid_channel_type"
	case errors.Is(err, ErrScriptExecutionTimeout):
		return "timeout"
	case errors.Is(err, ErrOutputLimitExceeded):
		return "output_limit"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "transport"
	}
}
