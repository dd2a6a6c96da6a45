package ssh

import "context"

// Runner abstracts remote script execution for testability.
type Runner interface {
	Run(ctx context.Context, in Invocation) (*Result, error)
}

var _ Runner = (*Invoker)(nil)
