package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cppla/chatdesk/services"
	"github.com/cppla/chatdesk/utils"
)

// ChatController serves the chat page and transcript endpoints.
type ChatController struct {
	chat *services.ChatService
}

// NewChatController creates a new ChatController instance.
func NewChatController(chat *services.ChatService) *ChatController {
	return &ChatController{chat: chat}
}

// Index renders the chat page with a fresh session id.
func (c *ChatController) Index(ctx *gin.Context) {
	ctx.HTML(200, "index.html", gin.H{"session_id": uuid.NewString()})
}

// Chat relays one user message and returns the assistant reply.
func (c *ChatController) Chat(ctx *gin.Context) {
	var req struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidJSON(ctx)
		return
	}

	res, err := c.chat.Chat(ctx.Request.Context(), req.SessionID, req.Message)
	if err != nil {
		respondError(ctx, err, 50010)
		return
	}
	utils.Success(ctx, res)
}

// History returns the transcript of a session.
func (c *ChatController) History(ctx *gin.Context) {
	sessionID := ctx.Query("session_id")
	turns, err := c.chat.History(ctx.Request.Context(), sessionID)
	if err != nil {
		respondError(ctx, err, 50011)
		return
	}
	utils.Success(ctx, gin.H{
		"chat_history":  turns,
		"message_count": len(turns),
		"session_id":    sessionID,
	})
}

// Clear drops the transcript of a session.
func (c *ChatController) Clear(ctx *gin.Context) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidJSON(ctx)
		return
	}
	if err := c.chat.Clear(ctx.Request.Context(), req.SessionID); err != nil {
		respondError(ctx, err, 50012)
		return
	}
	utils.Success(ctx, gin.H{
		"status":     "success",
		"message":    "Chat history cleared",
		"session_id": req.SessionID,
	})
}

// Sessions lists every known session. Diagnostic only: ids and previews are sensitive.
func (c *ChatController) Sessions(ctx *gin.Context) {
	list, err := c.chat.Sessions(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err, 50013)
		return
	}
	sessions := make(map[string]gin.H, len(list))
	for _, s := range list {
		sessions[s.ID] = gin.H{
			"message_count": s.MessageCount,
			"last_message":  s.LastMessage,
		}
	}
	utils.Success(ctx, gin.H{
		"active_sessions": len(list),
		"sessions":        sessions,
	})
}
