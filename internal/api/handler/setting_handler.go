package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"gympulse/backend/internal/dto"
	"gympulse/backend/internal/service"
	"gympulse/backend/pkg/response"
)

// SettingHandler 场馆配置 HTTP 处理器
type SettingHandler struct {
	settingSvc service.SettingService
}

// NewSettingHandler 创建 SettingHandler
func NewSettingHandler(settingSvc service.SettingService) *SettingHandler {
	return &SettingHandler{settingSvc: settingSvc}
}

// List 全部配置项
// GET /api/v1/settings
func (h *SettingHandler) List(c *gin.Context) {
	list, err := h.settingSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// Update 更新单个配置项
// PUT /api/v1/settings/:key
func (h *SettingHandler) Update(c *gin.Context) {
	var req dto.UpdateSettingRequest
	if !bindJSON(c, &req) {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	setting, err := h.settingSvc.Update(c.Request.Context(), c.Param("key"), *req.Value, callerID)
	if err != nil {
		h.handleSettingError(c, err)
		return
	}

	response.OK(c, setting)
}

func (h *SettingHandler) handleSettingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidSettingKey):
		response.BadRequest(c, 14001, err.Error())
	case errors.Is(err, service.ErrInvalidSettingValue):
		// 消息中带有具体的校验失败原因
		response.BadRequest(c, 14002, err.Error())
	default:
		response.InternalError(c)
	}
}
