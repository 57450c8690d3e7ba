package api

import (
	"context"
	"net/http"

	"balmar-shop/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type startConversationRequest struct {
	ProductID string `json:"product_id" binding:"required"`
}

type offerResponseRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) startConversation(c *gin.Context) {
	var req startConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	conv, err := h.messaging.StartConversation(c.Request.Context(), currentUser(c), req.ProductID)
	if err != nil {
		h.renderError(c, "Failed to start conversation", err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (h *Handler) listConversations(c *gin.Context) {
	convs, err := h.messaging.ListConversations(c.Request.Context(), currentUser(c))
	if err != nil {
		h.renderError(c, "Failed to list conversations", err)
		return
	}
	c.JSON(http.StatusOK, convs)
}

// listMessages returns the thread and marks it read for the caller
func (h *Handler) listMessages(c *gin.Context) {
	msgs, err := h.messaging.Messages(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		h.renderError(c, "Failed to list messages", err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *Handler) sendMessage(c *gin.Context) {
	var req service.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	req.ConversationID = c.Param("id")
	req.SenderID = currentUser(c)

	msg, err := h.messaging.SendMessage(c.Request.Context(), &req)
	if err != nil {
		h.renderError(c, "Failed to send message", err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *Handler) respondToOffer(c *gin.Context) {
	var req offerResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	msg, err := h.messaging.RespondToOffer(c.Request.Context(), c.Param("id"), currentUser(c), req.Status)
	if err != nil {
		h.renderError(c, "Failed to respond to offer", err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *Handler) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range h.opts.AllowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}
}

// conversationSocket pushes every new message of a conversation to the client
func (h *Handler) conversationSocket(c *gin.Context) {
	conversationID := c.Param("id")
	if err := h.messaging.Subscribable(c.Request.Context(), conversationID, currentUser(c)); err != nil {
		h.renderError(c, "Cannot join conversation", err)
		return
	}
	if h.conversations == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Live updates are unavailable"})
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sub, err := h.conversations.Subscribe(ctx, conversationID)
	if err != nil {
		h.renderError(c, "Failed to subscribe", err)
		return
	}
	defer sub.Close()

	conn, err := h.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// The client never sends anything we need; reading detects the close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	updates := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				h.logger.Debug("websocket write failed",
					zap.String("conversation_id", conversationID),
					zap.Error(err),
				)
				return
			}
		}
	}
}
