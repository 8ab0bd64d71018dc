package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	pruned  int64
	cutoffs []time.Time
	err     error
}

func (f *fakeRecorder) Record(context.Context, Entry) error { return nil }

func (f *fakeRecorder) List(context.Context, Filter) ([]Entry, error) { return nil, nil }

func (f *fakeRecorder) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.pruned, f.err
}

func TestNewRetentionJob_RejectsNonPositiveRetention(t *testing.T) {
	_, err := NewRetentionJob(&fakeRecorder{}, 0, "0 3 * * *", nil)
	assert.Error(t, err)
}

func TestRetentionJob_RunOnce(t *testing.T) {
	recorder := &fakeRecorder{pruned: 3}
	job, err := NewRetentionJob(recorder, 90, "0 3 * * *", nil)
	require.NoError(t, err)

	require.NoError(t, job.RunOnce(context.Background()))
	require.Len(t, recorder.cutoffs, 1)

	expected := time.Now().Add(-90 * 24 * time.Hour)
	assert.WithinDuration(t, expected, recorder.cutoffs[0], time.Minute)
}

func TestRetentionJob_RunOncePropagatesError(t *testing.T) {
	recorder := &fakeRecorder{err: errors.New("db down")}
	job, err := NewRetentionJob(recorder, 30, "0 3 * * *", nil)
	require.NoError(t, err)

	assert.Error(t, job.RunOnce(context.Background()))
}

func TestRetentionJob_StartRejectsBadSchedule(t *testing.T) {
	job, err := NewRetentionJob(&fakeRecorder{}, 30, "not a schedule", nil)
	require.NoError(t, err)

	assert.Error(t, job.Start())
}

func TestRetentionJob_StartStop(t *testing.T) {
	job, err := NewRetentionJob(&fakeRecorder{}, 30, "0 3 * * *", nil)
	require.NoError(t, err)

	require.NoError(t, job.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, job.Stop(ctx))
}
