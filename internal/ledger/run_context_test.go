package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	saved []Entries
	err   error
}

func (s *recordingSink) SaveEntries(_ context.Context, _ string, e Entries) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, e)
	return nil
}

func TestRunContextFlushesOnlyWhenDirty(t *testing.T) {
	sink := &recordingSink{}
	rc := NewRunContext("imp-1", sink, Entries{Log: []string{"uploaded"}}, nil)
	ctx := context.Background()

	require.NoError(t, rc.Flush(ctx))
	assert.Empty(t, sink.saved)

	rc.Logf("row %d", 1)
	rc.Warnf("row %d: check", 2)
	require.NoError(t, rc.Flush(ctx))
	require.NoError(t, rc.Flush(ctx))

	require.Len(t, sink.saved, 1)
	assert.Equal(t, []string{"uploaded", "row 1"}, sink.saved[0].Log)
	assert.Equal(t, []string{"row 2: check"}, sink.saved[0].Warnings)
	assert.False(t, rc.HasErrors())

	rc.Errorf("broken")
	assert.True(t, rc.HasErrors())
	assert.Equal(t, "imp-1", rc.ID())
}

func TestRunContextFlushFailureStaysDirty(t *testing.T) {
	sink := &recordingSink{err: errors.New("db down")}
	rc := NewRunContext("imp-1", sink, Entries{}, nil)
	ctx := context.Background()

	rc.Errorf("row failed")
	assert.Error(t, rc.Flush(ctx))

	sink.err = nil
	require.NoError(t, rc.Flush(ctx))
	require.Len(t, sink.saved, 1)
	assert.Equal(t, []string{"row failed"}, sink.saved[0].Errors)
}

func TestSnapshotIsACopy(t *testing.T) {
	seed := Entries{Log: []string{"a"}}
	rc := NewRunContext("x", nil, seed, nil)
	rc.Logf("b")

	snap := rc.Snapshot()
	snap.Log[0] = "changed"
	assert.Equal(t, []string{"a", "b"}, rc.Snapshot().Log)
	assert.Equal(t, []string{"a"}, seed.Log)
	assert.NoError(t, rc.Flush(context.Background()))
}
