package models

import "time"

// TimestampLayout matches ISO-8601 UTC with milliseconds so timestamps sort lexicographically.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Timestamp formats t in TimestampLayout.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

type ActivityAction string

const (
	ActionCreate ActivityAction = "TẠO"
	ActionUpdate ActivityAction = "CẬP NHẬT"
	ActionDelete ActivityAction = "XÓA"
)

type ActivityTarget string

const (
	TargetAppointment  ActivityTarget = "HẸN"
	TargetConsultation ActivityTarget = "TƯ VẤN"
	TargetRevenue      ActivityTarget = "DOANH THU"
	TargetProject      ActivityTarget = "DỰ ÁN"
	TargetSystem       ActivityTarget = "HỆ THỐNG"
)

// ActivityLog is an append-only audit entry. It is stored either in postgres or in mongo.
type ActivityLog struct {
	ID          string         `json:"id" gorm:"primaryKey" bson:"_id"`
	ActorID     string         `json:"actorId" gorm:"index;not null" bson:"actorId"`
	ActorName   string         `json:"actorName" bson:"actorName"`
	Action      ActivityAction `json:"action" bson:"action"`
	TargetType  ActivityTarget `json:"targetType" bson:"targetType"`
	TargetID    string         `json:"targetId,omitempty" bson:"targetId,omitempty"`
	Description string         `json:"description" bson:"description"`
	Timestamp   string         `json:"timestamp" gorm:"index" bson:"timestamp"`
}

func (ActivityLog) TableName() string {
	return "activities"
}
