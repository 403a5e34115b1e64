package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	cause := New("boom")

	t.Run("nil is success", func(t *testing.T) {
		assert.Equal(t, ExitOK, ExitCode(nil))
	})

	t.Run("taxonomy maps to distinct codes", func(t *testing.T) {
		assert.Equal(t, ExitConfig, ExitCode(Config("monitors.cve.webhook_url", cause)))
		assert.Equal(t, ExitFetch, ExitCode(Fetch("kev", cause)))
		assert.Equal(t, ExitLedger, ExitCode(Ledger("/tmp/cve.log", cause)))
		assert.Equal(t, ExitOther, ExitCode(cause))
	})

	t.Run("wrapped errors keep their kind", func(t *testing.T) {
		err := Wrap(Fetch("fbi", cause), "run fbi")
		assert.Equal(t, ExitFetch, ExitCode(err))
		assert.Equal(t, "fetch", Kind(err))

		err = fmt.Errorf("outer: %w", Ledger("x", cause))
		assert.Equal(t, "ledger", Kind(err))
	})
}

func TestDispatchError(t *testing.T) {
	err := Dispatch(503, true, New("service unavailable"))

	var de *DispatchError
	require.True(t, As(err, &de))
	assert.True(t, de.Retryable)
	assert.Equal(t, 503, de.Status)
	assert.Contains(t, err.Error(), "status 503")
	assert.Equal(t, "dispatch", Kind(err))
	assert.Equal(t, ExitOther, ExitCode(err))
}

func TestConstructorsCarryStack(t *testing.T) {
	err := Fetch("kev", New("bad gateway"))
	assert.NotNil(t, GetStack(err))
}
