package ssh

// accumulator collects output into a Result. With want == false it is a
// pure pass-through: result stays nil and nothing is ever allocated.
type accumulator struct {
	want   bool
	limit  int64
	total  int64
	result *Result
}

func newAccumulator(want bool, limit int64) *accumulator {
	return &accumulator{want: want, limit: limit}
}

// append adds ev to the buffer of its stream. It returns
// ErrOutputLimitExceeded when the chunk would cross the limit, in which
// case the chunk is not retained.
func (a *accumulator) append(ev StreamEvent) error {
	if !a.want {
		return nil
	}

	if a.limit > 0 && a.total+int64(len(ev.Data)) > a.limit {
		return ErrOutputLimitExceeded
	}
	a.total += int64(len(ev.Data))

	if a.result == nil {
		a.result = &Result{}
	}
	switch ev.Kind {
	case Stdout:
		a.result.Stdout = append(a.result.Stdout, ev.Data...)
	case Stderr:
		a.result.Stderr = append(a.result.Stderr, ev.Data...)
	}
	return nil
}

// finish returns the accumulated result, or nil when accumulation is off.
// A command that produced no output still yields an empty Result.
func (a *accumulator) finish(exitStatus *int, exitSignal string) *Result {
	if !a.want {
		return nil
	}
	if a.result == nil {
		a.result = &Result{}
	}
	a.result.ExitStatus = exitStatus
	a.result.ExitSignal = exitSignal
	return a.result
}
