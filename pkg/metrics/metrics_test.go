package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrAndQuery(t *testing.T) {
	require.NoError(t, InitMetrics(t.TempDir()))
	t.Cleanup(func() { _ = Close() })

	Incr(RegisterTotal)
	Incr(RegisterTotal)
	SetGauge(ProcessMemUse, 42)

	assert.Equal(t, int64(2), Counter(RegisterTotal))

	now := time.Now()
	points, err := Query(ProcessMemUse, now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, float64(42), points[0].Value)
}

func TestWithoutStorage(t *testing.T) {
	Incr(RegisterFailed)
	assert.Equal(t, int64(1), Counter(RegisterFailed))

	points, err := Query(RegisterFailed, time.Now().Add(-time.Minute), time.Now())
	assert.NoError(t, err)
	assert.Nil(t, points)
	assert.NoError(t, Close())
}
