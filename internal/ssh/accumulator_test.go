package ssh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulator_Disabled(t *testing.T) {
	acc := newAccumulator(false, 0)

	require.NoError(t, acc.append(StreamEvent{Data: []byte("ignored"), Kind: Stdout}))
	assert.Nil(t, acc.result, "nothing is allocated without accumulation")

	status := 0
	assert.Nil(t, acc.finish(&status, ""))
}

func TestAccumulator_PerKindOrder(t *testing.T) {
	acc := newAccumulator(true, 0)

	events := []StreamEvent{
		{Data: []byte("a"), Kind: Stdout},
		{Data: []byte("1"), Kind: Stderr},
		{Data: []byte("b"), Kind: Stdout},
		{Data: []byte("2"), Kind: Stderr},
		{Data: []byte("c"), Kind: Stdout},
	}
	for _, ev := range events {
		require.NoError(t, acc.append(ev))
	}

	status := 7
	result := acc.finish(&status, "")
	require.NotNil(t, result)
	assert.Equal(t, "abc", string(result.Stdout))
	assert.Equal(t, "12", string(result.Stderr))
	assert.Equal(t, &status, result.ExitStatus)
}

func TestAccumulator_EmptyResult(t *testing.T) {
	acc := newAccumulator(true, 0)

	result := acc.finish(nil, "TERM")
	require.NotNil(t, result)
	assert.Empty(t, result.Stdout)
	assert.Empty(t, result.Stderr)
	assert.Nil(t, result.ExitStatus)
	assert.Equal(t, "TERM", result.ExitSignal)
}

func TestAccumulator_Limit(t *testing.T) {
	acc := newAccumulator(true, 10)

	require.NoError(t, acc.append(StreamEvent{Data: []byte("12345"), Kind: Stdout}))
	require.NoError(t, acc.append(StreamEvent{Data: []byte("67890"), Kind: Stderr}), "reaching the limit exactly is allowed")

	err := acc.append(StreamEvent{Data: []byte("x"), Kind: Stdout})
	assert.ErrorIs(t, err, ErrOutputLimitExceeded)

	result := acc.finish(nil, "")
	assert.Equal(t, "12345", string(result.Stdout), "the chunk crossing the limit is not kept")
	assert.Equal(t, "67890", string(result.Stderr))
}

func TestAccumulator_Unbounded(t *testing.T) {
	acc := newAccumulator(true, 0)

	chunk := make([]byte, 1<<16)
	for i := 0; i < 64; i++ {
		require.NoError(t, acc.append(StreamEvent{Data: chunk, Kind: Stdout}))
	}
	assert.Len(t, acc.finish(nil, "").Stdout, 64<<16)
}
