package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"meme-guard-go/internal/engine"
	"meme-guard-go/internal/model"
	"meme-guard-go/internal/service"
	"meme-guard-go/pkg/classifier"
	"meme-guard-go/pkg/log"
)

// ModerationHandler 结构体定义了审核相关的处理器。
type ModerationHandler struct {
	moderationService service.ModerationService
}

// NewModerationHandler 创建一个新的 ModerationHandler 实例。
func NewModerationHandler(moderationService service.ModerationService) *ModerationHandler {
	return &ModerationHandler{
		moderationService: moderationService,
	}
}

// GetDecision 返回帖子的处置决策。帖子不在在线索引中时返回 404 和 ERROR_NOT_FOUND。
func (h *ModerationHandler) GetDecision(c *gin.Context) {
	postID := c.Param("postId")
	decision := h.moderationService.Decide(c.Request.Context(), postID)

	status := http.StatusOK
	if decision.Action == model.ActionErrorNotFound {
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"code": status, "data": decision, "message": string(decision.Action)})
}

// Train 用当前离线日志重新训练模型。
func (h *ModerationHandler) Train(c *gin.Context) {
	err := h.moderationService.Retrain(c.Request.Context())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"code": 200, "data": gin.H{"trained": true}, "message": "success"})
	case errors.Is(err, engine.ErrNoTrainingData), errors.Is(err, classifier.ErrSingleClass):
		log.Warnf("[ModerationHandler] 训练条件不满足, 使用规则兜底: %v", err)
		c.JSON(http.StatusConflict, gin.H{"code": http.StatusConflict, "data": gin.H{"trained": false}, "message": err.Error()})
	default:
		log.Errorf("[ModerationHandler] 训练失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "训练失败"})
	}
}

// SearchFeatures 在已索引的特征行上做全文检索。
func (h *ModerationHandler) SearchFeatures(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的查询参数"})
		return
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", "10"))
	if err != nil || size <= 0 {
		size = 10
	}

	hits, err := h.moderationService.SearchFeatures(c.Request.Context(), query, size)
	if errors.Is(err, service.ErrSearchDisabled) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "特征检索未启用"})
		return
	}
	if err != nil {
		log.Errorf("[ModerationHandler] 特征检索失败, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "搜索失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": hits, "message": "success"})
}

// Register 把审核路由挂到 api 路由组下。
func (h *ModerationHandler) Register(api *gin.RouterGroup) {
	api.GET("/moderation/:postId", h.GetDecision)
	api.POST("/moderation/train", h.Train)
	api.GET("/features/search", h.SearchFeatures)
}
