package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saleflow/backend/internal/logger"
	"github.com/saleflow/backend/internal/messaging"
	"github.com/saleflow/backend/internal/middleware"
	"github.com/saleflow/backend/internal/models"
	"github.com/saleflow/backend/internal/services"
)

type MessageController struct {
	messages *services.MessageService
	hub      *messaging.Hub
	poller   *messaging.Poller
}

func NewMessageController(messages *services.MessageService, hub *messaging.Hub, poller *messaging.Poller) *MessageController {
	return &MessageController{messages: messages, hub: hub, poller: poller}
}

// nudge refreshes subscribers right after a write instead of waiting for the
// next tick. A refresh already in flight is enough.
func (mc *MessageController) nudge(ctx context.Context) {
	if mc.poller == nil {
		return
	}
	go mc.poller.Refresh(context.WithoutCancel(ctx))
}

func (mc *MessageController) SendMessage(c *gin.Context) {
	var req services.DirectMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	msg, err := mc.messages.Send(c.Request.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		respondError(c, "message_controller", err)
		return
	}
	mc.nudge(c.Request.Context())
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": msg})
}

func (mc *MessageController) Broadcast(c *gin.Context) {
	var req services.BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	msg, err := mc.messages.Broadcast(c.Request.Context(), middleware.CurrentUser(c).ID, req)
	if err != nil {
		respondError(c, "message_controller", err)
		return
	}
	mc.nudge(c.Request.Context())
	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"message":    msg,
		"recipients": len(msg.ReceiverIDs),
	})
}

// GetConversation returns the direct thread between the caller and :userId.
func (mc *MessageController) GetConversation(c *gin.Context) {
	msgs, err := mc.messages.Conversation(c.Request.Context(), middleware.CurrentUser(c), c.Param("userId"))
	if err != nil {
		respondError(c, "message_controller", err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func (mc *MessageController) GetInbox(c *gin.Context) {
	inbox, err := mc.messages.Inbox(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		respondError(c, "message_controller", err)
		return
	}
	c.JSON(http.StatusOK, messaging.InboxUpdate{Unread: messaging.UnreadCount(inbox), Messages: inbox})
}

func (mc *MessageController) GetContacts(c *gin.Context) {
	var q messaging.ContactQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	contacts, err := mc.messages.Contacts(c.Request.Context(), middleware.CurrentUser(c), q)
	if err != nil {
		respondError(c, "message_controller", err)
		return
	}
	c.JSON(http.StatusOK, contacts)
}

func (mc *MessageController) MarkRead(c *gin.Context) {
	if err := mc.messages.MarkRead(c.Request.Context(), middleware.CurrentUser(c), c.Param("id")); err != nil {
		respondError(c, "message_controller", err)
		return
	}
	mc.nudge(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Stream upgrades to a websocket that receives the caller's inbox whenever
// it changes.
func (mc *MessageController) Stream(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var snapshot []models.Message
	if mc.poller != nil {
		snapshot = mc.poller.Snapshot()
	}
	if snapshot == nil {
		msgs, err := mc.messages.Fetch(c.Request.Context())
		if err != nil {
			respondError(c, "message_controller", err)
			return
		}
		snapshot = msgs
	}

	if err := mc.hub.ServeWS(c.Writer, c.Request, user, snapshot); err != nil {
		logger.WithError(err, "message_controller").Warn("Websocket upgrade failed")
	}
}
