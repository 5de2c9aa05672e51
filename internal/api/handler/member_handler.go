package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gympulse/backend/internal/dto"
	"gympulse/backend/internal/service"
	"gympulse/backend/pkg/response"
)

// MemberHandler 会员模块 HTTP 处理器
type MemberHandler struct {
	memberSvc service.MemberService
}

// NewMemberHandler 创建 MemberHandler
func NewMemberHandler(memberSvc service.MemberService) *MemberHandler {
	return &MemberHandler{memberSvc: memberSvc}
}

// List 会员列表
// GET /api/v1/members
func (h *MemberHandler) List(c *gin.Context) {
	var req dto.MemberListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "Validation failed")
		return
	}

	list, total, err := h.memberSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleMemberError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Get 会员详情，会员只能查看本人
// GET /api/v1/members/:id
func (h *MemberHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	member, err := h.memberSvc.Get(c.Request.Context(), id, callerID, role)
	if err != nil {
		h.handleMemberError(c, err)
		return
	}

	response.OK(c, member)
}

// Create 创建会员及其登录账号
// POST /api/v1/members
func (h *MemberHandler) Create(c *gin.Context) {
	var req dto.CreateMemberRequest
	if !bindJSON(c, &req) {
		return
	}

	member, err := h.memberSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleMemberError(c, err)
		return
	}

	response.Created(c, member)
}

// Update 更新会员档案
// PATCH /api/v1/members/:id
func (h *MemberHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateMemberRequest
	if !bindJSON(c, &req) {
		return
	}

	member, err := h.memberSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleMemberError(c, err)
		return
	}

	response.OK(c, member)
}

// ToggleFreeze 冻结 / 解冻会员
// POST /api/v1/members/:id/freeze
func (h *MemberHandler) ToggleFreeze(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	member, err := h.memberSvc.ToggleFreeze(c.Request.Context(), id)
	if err != nil {
		h.handleMemberError(c, err)
		return
	}

	response.OK(c, member)
}

func (h *MemberHandler) handleMemberError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMemberNotFound):
		response.NotFound(c, 12001, err.Error())
	case errors.Is(err, service.ErrMemberProfileNotFound):
		response.NotFound(c, 12002, err.Error())
	case errors.Is(err, service.ErrMemberForbidden):
		response.Forbidden(c, 12003, err.Error())
	case errors.Is(err, service.ErrUsernameTaken):
		response.Error(c, http.StatusConflict, 12004, err.Error())
	case errors.Is(err, service.ErrInvalidMonthlyFee):
		response.BadRequest(c, 12005, err.Error())
	default:
		response.InternalError(c)
	}
}
