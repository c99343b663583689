package activity

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/saleflow/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Append(ctx context.Context, entry *models.ActivityLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockSink) Recent(ctx context.Context, actorID string, limit int) ([]models.ActivityLog, error) {
	args := m.Called(ctx, actorID, limit)
	return args.Get(0).([]models.ActivityLog), args.Error(1)
}

func TestRecorderRecord(t *testing.T) {
	ctx := context.Background()
	actor := Actor{ID: "E01", Name: "An"}

	t.Run("logged", func(t *testing.T) {
		sink := new(MockSink)
		sink.On("Append", ctx, mock.MatchedBy(func(e *models.ActivityLog) bool {
			return e.ActorID == "E01" && e.Action == models.ActionCreate && e.TargetType == models.TargetRevenue && e.ID != ""
		})).Return(nil)

		res := NewRecorder(sink).Record(ctx, actor, models.ActionCreate, models.TargetRevenue, "R1", "Thêm doanh thu")
		assert.True(t, res.OK())
		assert.NotEmpty(t, res.ID)
		sink.AssertExpectations(t)
	})

	t.Run("sink failure is reported not returned", func(t *testing.T) {
		sink := new(MockSink)
		sink.On("Append", ctx, mock.Anything).Return(errors.New("connection refused"))

		res := NewRecorder(sink).Record(ctx, actor, models.ActionDelete, models.TargetAppointment, "A1", "Xóa lịch hẹn")
		assert.Equal(t, StatusFailed, res.Status)
		assert.Contains(t, res.Error, "connection refused")
		sink.AssertExpectations(t)
	})

	t.Run("no sink or no actor skips", func(t *testing.T) {
		assert.Equal(t, StatusSkipped, NewRecorder(nil).Record(ctx, actor, models.ActionCreate, models.TargetSystem, "", "x").Status)

		sink := new(MockSink)
		res := NewRecorder(sink).Record(ctx, Actor{}, models.ActionCreate, models.TargetSystem, "", "x")
		assert.Equal(t, StatusSkipped, res.Status)
		sink.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})
}

func TestRecorderRecentUsesLimit(t *testing.T) {
	ctx := context.Background()
	sink := new(MockSink)
	sink.On("Recent", ctx, "", RecentLimit).Return([]models.ActivityLog{{ID: "1"}}, nil)

	got, err := NewRecorder(sink).Recent(ctx, "")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	sink.AssertExpectations(t)
}

func TestMemorySinkNewestFirstAndCapped(t *testing.T) {
	ctx := context.Background()
	sink := NewMemorySink()
	rec := NewRecorder(sink)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < RecentLimit+5; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		rec.now = func() time.Time { return at }
		actor := Actor{ID: "E01", Name: "An"}
		if i%2 == 1 {
			actor = Actor{ID: "E02", Name: "Bình"}
		}
		res := rec.Record(ctx, actor, models.ActionUpdate, models.TargetProject, fmt.Sprint(i), "")
		require.True(t, res.OK())
	}

	all, err := rec.Recent(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, RecentLimit)
	assert.Equal(t, fmt.Sprint(RecentLimit+4), all[0].TargetID)

	mine, err := rec.Recent(ctx, "E02")
	require.NoError(t, err)
	assert.Len(t, mine, (RecentLimit+5)/2)
	for _, e := range mine {
		assert.Equal(t, "E02", e.ActorID)
	}
}
