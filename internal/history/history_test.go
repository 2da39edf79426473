package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Atiyakh/dyright/internal/dispatch"
)

func TestRecordAndRecent(t *testing.T) {
	t.Parallel()

	s, err := Open(context.Background(), 10)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Record(context.Background(), "pandas.DataFrame", dispatch.Response{
		ID: "a", Success: true, Result: "preview", Elapsed: 12 * time.Millisecond,
	}))
	require.NoError(t, s.Record(context.Background(), "numpy.ndarray", dispatch.Response{
		ID: "b", Success: false, Error: "inspection timed out after 100ms", Kind: dispatch.KindTimeout,
	}))

	recs, err := s.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	// Newest first.
	assert.Equal(t, "b", recs[0].InspectionID)
	assert.Equal(t, "numpy.ndarray", recs[0].TypeName)
	assert.False(t, recs[0].Success)
	assert.Equal(t, "timeout", recs[0].ErrorKind)

	assert.Equal(t, "a", recs[1].InspectionID)
	assert.True(t, recs[1].Success)
	assert.InDelta(t, 12.0, recs[1].ElapsedMS, 0.1)
}

func TestRetentionPrunes(t *testing.T) {
	t.Parallel()

	s, err := Open(context.Background(), 3)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	for i := 0; i < 8; i++ {
		require.NoError(t, s.Record(context.Background(), "pkg.T", dispatch.Response{
			ID: fmt.Sprintf("id-%d", i), Success: true,
		}))
	}

	recs, err := s.Recent(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "id-7", recs[0].InspectionID)
	assert.Equal(t, "id-5", recs[2].InspectionID)
}

func TestOpenRejectsBadRetention(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), 0)
	assert.Error(t, err)
}
