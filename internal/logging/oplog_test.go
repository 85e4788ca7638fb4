package logging

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOperationLogNewestFirst(t *testing.T) {
	t.Parallel()

	log := NewOperationLog(nil, 10)
	for i := 0; i < 3; i++ {
		log.LogOperation("https://acme.com", "ext-1", fmt.Sprintf("stage-%d", i), "success", "", time.Second)
	}

	recent := log.RecentOperations(2)
	require.Len(t, recent, 2)
	require.Equal(t, "stage-2", recent[0].Stage)
	require.Equal(t, "stage-1", recent[1].Stage)
	require.Equal(t, int64(1000), recent[0].DurationMs)

	all := log.RecentOperations(0)
	require.Len(t, all, 3)
}

func TestOperationLogBoundedCapacity(t *testing.T) {
	t.Parallel()

	log := NewOperationLog(nil, 5)
	for i := 0; i < 12; i++ {
		log.LogError("https://acme.com", "ext-1", fmt.Sprintf("kind-%d", i), "boom", "")
	}

	recent := log.RecentErrors(100)
	require.Len(t, recent, 5)
	require.Equal(t, "kind-11", recent[0].Kind)
	require.Equal(t, "kind-7", recent[4].Kind)
}

func TestOperationLogDefaultCapacity(t *testing.T) {
	t.Parallel()

	log := NewOperationLog(nil, 0)
	require.Equal(t, defaultRingSize, log.capacity)
}
