// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"science-chat-go/internal/repository"
	"science-chat-go/internal/service"
	"science-chat-go/pkg/log"
)

// ThreadHandler 处理线程查询与管理相关的 API 请求。
type ThreadHandler struct {
	threadService service.ThreadService
}

// NewThreadHandler 创建一个新的 ThreadHandler。
func NewThreadHandler(threadService service.ThreadService) *ThreadHandler {
	return &ThreadHandler{threadService: threadService}
}

// ListThreads 处理分页查询线程列表的请求。
func (h *ThreadHandler) ListThreads(c *gin.Context) {
	limit, err1 := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, err2 := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err1 != nil || err2 != nil || limit < 0 || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "分页参数必须为非负整数",
			"data":    nil,
		})
		return
	}

	summaries, err := h.threadService.ListThreads(c.Request.Context(), limit, offset)
	if err != nil {
		log.Errorf("查询线程列表失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "查询线程列表失败",
			"data":    nil,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    summaries,
	})
}

// GetThread 处理查询单个线程摘要的请求。
func (h *ThreadHandler) GetThread(c *gin.Context) {
	threadID := c.Param("threadId")

	summary, err := h.threadService.GetThread(c.Request.Context(), threadID)
	if err != nil {
		if errors.Is(err, repository.ErrThreadNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    http.StatusNotFound,
				"message": "线程不存在",
				"data":    nil,
			})
			return
		}
		log.Errorf("查询线程失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "查询线程失败",
			"data":    nil,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    summary,
	})
}

// DeleteThread 处理删除线程的请求。删除不存在的线程同样返回成功。
func (h *ThreadHandler) DeleteThread(c *gin.Context) {
	threadID := c.Param("threadId")

	if err := h.threadService.DeleteThread(c.Request.Context(), threadID); err != nil {
		log.Errorf("删除线程失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "删除线程失败",
			"data":    nil,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    nil,
	})
}

// GetThreadMessages 处理查询线程展示消息的请求。
func (h *ThreadHandler) GetThreadMessages(c *gin.Context) {
	threadID := c.Param("threadId")

	messages, err := h.threadService.GetThreadMessages(c.Request.Context(), threadID)
	if err != nil {
		if errors.Is(err, repository.ErrThreadNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    http.StatusNotFound,
				"message": "线程不存在",
				"data":    nil,
			})
			return
		}
		log.Errorf("查询线程消息失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "查询线程消息失败",
			"data":    nil,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    messages,
	})
}
