package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRing_PushEvictsOldestAtCapacity(t *testing.T) {
	ring := NewFrameRing(3)

	for i := 0; i < 5; i++ {
		ring.Push(Frame{Timestamp: float64(i)})
	}

	require.Equal(t, 3, ring.Len())
	frames := ring.Snapshot()
	require.Len(t, frames, 3)

	// Frames 0 and 1 were evicted first-in-first-out.
	assert.Equal(t, 2.0, frames[0].Timestamp)
	assert.Equal(t, 3.0, frames[1].Timestamp)
	assert.Equal(t, 4.0, frames[2].Timestamp)
}

func TestFrameRing_SnapshotIsOldestFirst(t *testing.T) {
	ring := NewFrameRing(4)
	ring.Push(Frame{Timestamp: 10})
	ring.Push(Frame{Timestamp: 20})

	frames := ring.Snapshot()
	require.Len(t, frames, 2)
	assert.Equal(t, 10.0, frames[0].Timestamp)
	assert.Equal(t, 20.0, frames[1].Timestamp)
}

func TestFrameRing_DefaultCapacity(t *testing.T) {
	assert.Equal(t, RecentFrameCapacity, NewFrameRing(0).Cap())
	assert.Equal(t, RecentFrameCapacity, NewFrameRing(-1).Cap())
}

func TestGroupAccumulator_SeriesStayAligned(t *testing.T) {
	acc := NewGroupAccumulator()

	acc.AddAudioSample(35, AudioDetail{DBValue: 115, InitialScore: 25, HighFreqPercentage: 90, FinalScore: 35}, 1.0)
	acc.AddAudioSample(0, AudioDetail{DBValue: 65}, 2.0)

	require.Len(t, acc.AudioScores, 2)
	require.Len(t, acc.AudioDetails, 2)
	require.Len(t, acc.Timestamps, 2)
}

func TestGroupAccumulator_BestMomentTimestamp(t *testing.T) {
	tests := []struct {
		name       string
		scores     []float64
		timestamps []float64
		want       float64
		wantOK     bool
	}{
		{
			name:       "picks timestamp of highest score",
			scores:     []float64{5, 42, 10},
			timestamps: []float64{1, 2, 3},
			want:       2,
			wantOK:     true,
		},
		{
			name:       "first occurrence wins on equal scores",
			scores:     []float64{42, 42},
			timestamps: []float64{1, 2},
			want:       1,
			wantOK:     true,
		},
		{
			name:   "empty series has no best moment",
			wantOK: false,
		},
		{
			name:       "misaligned series have no best moment",
			scores:     []float64{1, 2},
			timestamps: []float64{1},
			wantOK:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := NewGroupAccumulator()
			acc.AudioScores = tt.scores
			acc.Timestamps = tt.timestamps

			got, ok := acc.BestMomentTimestamp()
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestSession_MarkFinalizedWinsOnce(t *testing.T) {
	s := &Session{ID: "s1"}

	require.False(t, s.Finalized())
	assert.True(t, s.MarkFinalized())
	assert.False(t, s.MarkFinalized(), "second finalize must lose the check-and-set")
	assert.True(t, s.Finalized())

	s.UnmarkFinalized()
	assert.True(t, s.MarkFinalized(), "rollback must allow a retry")
}
