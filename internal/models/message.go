package models

import (
	"github.com/lib/pq"
)

type ReceiverKind string

const (
	ReceiverUser ReceiverKind = "user"
	ReceiverAll  ReceiverKind = "all"
	ReceiverList ReceiverKind = "list"
)

// BroadcastAll is the literal receiver id used for company-wide notices.
const BroadcastAll = "ALL"

type Message struct {
	ID           string         `json:"id" gorm:"primaryKey"`
	SenderID     string         `json:"senderId" gorm:"index;not null"`
	SenderName   string         `json:"senderName"`
	ReceiverKind ReceiverKind   `json:"receiverKind" gorm:"not null;default:'user'"`
	ReceiverID   string         `json:"receiverId,omitempty" gorm:"index"`
	ReceiverIDs  pq.StringArray `json:"receiverIds,omitempty" gorm:"type:text[]"`
	Content      string         `json:"content"`
	Timestamp    string         `json:"timestamp" gorm:"index"`
	IsRead       bool           `json:"isRead"`
	ParentID     string         `json:"parentId,omitempty"`
}

func (Message) TableName() string {
	return "messages"
}

// AddressedTo reports whether userID is among the receivers.
func (m Message) AddressedTo(userID string) bool {
	switch m.ReceiverKind {
	case ReceiverAll:
		return true
	case ReceiverList:
		for _, id := range m.ReceiverIDs {
			if id == userID {
				return true
			}
		}
		return false
	default:
		return m.ReceiverID == userID
	}
}
