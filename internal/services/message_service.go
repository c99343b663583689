package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/saleflow/backend/internal/logger"
	"github.com/saleflow/backend/internal/messaging"
	"github.com/saleflow/backend/internal/models"
	"github.com/saleflow/backend/internal/store"
)

type DirectMessageRequest struct {
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
	ParentID   string `json:"parentId"`
}

type BroadcastRequest struct {
	Target   messaging.TargetKind `json:"target"`
	TargetID string               `json:"targetId"`
	Content  string               `json:"content"`
}

type MessageService struct {
	store store.Store
	dir   *Directory
	now   func() time.Time
}

func NewMessageService(st store.Store, dir *Directory) *MessageService {
	return &MessageService{store: st, dir: dir, now: time.Now}
}

// Fetch loads every message. It is what the poller refreshes with.
func (s *MessageService) Fetch(ctx context.Context) ([]models.Message, error) {
	msgs, err := s.store.ListMessages(ctx)
	if err != nil {
		return nil, storeErr("list messages", err)
	}
	return msgs, nil
}

func (s *MessageService) newMessage(sender models.User, content string) models.Message {
	return models.Message{
		ID:         "MSG_" + uuid.NewString(),
		SenderID:   sender.ID,
		SenderName: sender.Name,
		Content:    content,
		Timestamp:  models.Timestamp(s.now()),
	}
}

// Send writes a direct message from actor to req.ReceiverID.
func (s *MessageService) Send(ctx context.Context, actor models.User, req DirectMessageRequest) (models.Message, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" || req.ReceiverID == "" {
		return models.Message{}, invalid("Thiếu người nhận hoặc nội dung.")
	}
	if req.ReceiverID != models.AdminID {
		if _, err := s.store.GetUser(ctx, req.ReceiverID); err != nil {
			return models.Message{}, storeErr("load receiver", err)
		}
	}

	m := s.newMessage(actor, content)
	m.ReceiverKind = models.ReceiverUser
	m.ReceiverID = req.ReceiverID
	m.ParentID = req.ParentID
	if err := s.store.CreateMessage(ctx, &m); err != nil {
		return models.Message{}, storeErr("send message", err)
	}
	return m, nil
}

// Broadcast sends one notice to every resolved recipient.
func (s *MessageService) Broadcast(ctx context.Context, actorID string, req BroadcastRequest) (models.Message, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return models.Message{}, invalid("Thiếu nội dung thông báo.")
	}
	switch req.Target {
	case messaging.TargetAll, messaging.TargetDept, messaging.TargetUser:
	default:
		return models.Message{}, invalid("Đối tượng nhận không hợp lệ.")
	}

	actor, ix, err := s.dir.Actor(ctx, actorID)
	if err != nil {
		return models.Message{}, err
	}
	if actor.Role.Rank() < models.RoleTeamLeader.Rank() {
		return models.Message{}, forbidden("Bạn không có quyền gửi thông báo.")
	}
	recipients := messaging.BroadcastRecipients(ix, actor, req.Target, req.TargetID)
	if len(recipients) == 0 {
		return models.Message{}, invalid("Không tìm thấy người nhận phù hợp!")
	}

	m := s.newMessage(actor, content)
	m.ReceiverKind = models.ReceiverList
	m.ReceiverIDs = recipients
	if err := s.store.CreateMessage(ctx, &m); err != nil {
		return models.Message{}, storeErr("send broadcast", err)
	}
	logger.WithUser(actor.ID, "message_service").WithField("recipients", len(recipients)).Info("Broadcast sent")
	return m, nil
}

func (s *MessageService) Conversation(ctx context.Context, actor models.User, otherID string) ([]models.Message, error) {
	msgs, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return messaging.Conversation(actor, otherID, msgs), nil
}

func (s *MessageService) Inbox(ctx context.Context, actor models.User) ([]models.Message, error) {
	msgs, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return messaging.Inbox(actor, msgs), nil
}

func (s *MessageService) Contacts(ctx context.Context, actor models.User, q messaging.ContactQuery) ([]models.User, error) {
	msgs, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, storeErr("list users", err)
	}
	return messaging.ChatContacts(actor, users, msgs, q), nil
}

// MarkRead marks message id read. Only a recipient of the message may do so.
func (s *MessageService) MarkRead(ctx context.Context, actor models.User, id string) error {
	msgs, err := s.Fetch(ctx)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		if m.ID != id {
			continue
		}
		if !messaging.Receives(actor, m) {
			return forbidden("Tin nhắn không gửi cho bạn.")
		}
		return storeErr("mark message read", s.store.MarkMessageRead(ctx, id))
	}
	return &Error{Kind: ErrNotFound, Msg: "Không tìm thấy tin nhắn."}
}
