// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"science-chat-go/internal/service"
	"science-chat-go/pkg/log"
)

// ChatHandler 处理对话回合相关的 API 请求。
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

type chatRequest struct {
	Message  string `json:"message" binding:"required"`
	ThreadID string `json:"thread_id"`
	UseAgent bool   `json:"use_agent"`
}

// Chat 处理提交一轮对话的请求。
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "请求参数无效: message 不能为空",
			"data":    nil,
		})
		return
	}

	reply, threadID, summary, err := h.chatService.HandleTurn(c.Request.Context(), req.ThreadID, req.Message, req.UseAgent)
	if err != nil {
		log.Errorf("处理对话回合失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "对话服务暂时不可用，请稍后重试",
			"data":    nil,
		})
		return
	}

	modeName := "echo"
	if req.UseAgent {
		modeName = "agent"
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data": gin.H{
			"reply":     reply,
			"thread_id": threadID,
			"mode":      modeName,
			"thread":    summary,
		},
	})
}
