// Package activity writes the audit trail. Logging is best effort: a failed
// write is reported back to the caller and to the application log but never
// fails the operation that triggered it.
package activity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/saleflow/backend/internal/logger"
	"github.com/saleflow/backend/internal/models"
)

// RecentLimit caps how many entries a listing returns.
const RecentLimit = 200

// Sink is where audit entries end up.
type Sink interface {
	Append(ctx context.Context, entry *models.ActivityLog) error
	// Recent returns at most limit entries, newest first. An empty actorID
	// returns entries from everyone.
	Recent(ctx context.Context, actorID string, limit int) ([]models.ActivityLog, error)
}

// Actor identifies who performed a mutation.
type Actor struct {
	ID   string
	Name string
}

func ActorOf(u models.User) Actor {
	return Actor{ID: u.ID, Name: u.Name}
}

type Status string

const (
	StatusLogged  Status = "logged"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Result tells the caller what happened to the audit write.
type Result struct {
	Status Status `json:"status"`
	ID     string `json:"id,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (r Result) OK() bool { return r.Status == StatusLogged }

type Recorder struct {
	sink Sink
	now  func() time.Time
}

// NewRecorder returns a recorder writing to sink. A nil sink skips every write.
func NewRecorder(sink Sink) *Recorder {
	return &Recorder{sink: sink, now: time.Now}
}

func (r *Recorder) Record(ctx context.Context, actor Actor, action models.ActivityAction, target models.ActivityTarget, targetID, description string) Result {
	if r == nil || r.sink == nil || actor.ID == "" {
		return Result{Status: StatusSkipped}
	}
	entry := &models.ActivityLog{
		ID:          uuid.NewString(),
		ActorID:     actor.ID,
		ActorName:   actor.Name,
		Action:      action,
		TargetType:  target,
		TargetID:    targetID,
		Description: description,
		Timestamp:   models.Timestamp(r.now()),
	}
	if err := r.sink.Append(ctx, entry); err != nil {
		logger.WithError(err, "activity").WithField("actor_id", actor.ID).Warn("Failed to record activity")
		return Result{Status: StatusFailed, Error: err.Error()}
	}
	return Result{Status: StatusLogged, ID: entry.ID}
}

// Recent lists entries for actorID, or for everyone when actorID is empty.
func (r *Recorder) Recent(ctx context.Context, actorID string) ([]models.ActivityLog, error) {
	if r == nil || r.sink == nil {
		return []models.ActivityLog{}, nil
	}
	return r.sink.Recent(ctx, actorID, RecentLimit)
}
