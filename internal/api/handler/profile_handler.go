package handler

import (
	"github.com/gin-gonic/gin"

	"gympulse/backend/internal/dto"
	"gympulse/backend/internal/model"
	"gympulse/backend/internal/service"
	"gympulse/backend/pkg/response"
)

// ProfileHandler 会员自助 HTTP 处理器
//
// 所有接口均以当前登录账号关联的会员档案为准，没有档案时返回 404。
type ProfileHandler struct {
	memberSvc     service.MemberService
	attendanceSvc service.AttendanceService
	exportSvc     service.ExportService
}

// NewProfileHandler 创建 ProfileHandler
func NewProfileHandler(memberSvc service.MemberService, attendanceSvc service.AttendanceService, exportSvc service.ExportService) *ProfileHandler {
	return &ProfileHandler{
		memberSvc:     memberSvc,
		attendanceSvc: attendanceSvc,
		exportSvc:     exportSvc,
	}
}

// Me 本人会员档案
// GET /api/v1/profile/me
func (h *ProfileHandler) Me(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	member, err := h.memberSvc.GetProfile(c.Request.Context(), userID)
	if err != nil {
		handleSelfAttendanceError(c, err)
		return
	}

	response.OK(c, member)
}

// CheckIn 自助签到
// POST /api/v1/profile/check-in
func (h *ProfileHandler) CheckIn(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	record, err := h.attendanceSvc.SelfCheckIn(c.Request.Context(), userID)
	if err != nil {
		handleSelfAttendanceError(c, err)
		return
	}

	response.Created(c, record)
}

// CheckOut 自助签出
// POST /api/v1/profile/check-out
func (h *ProfileHandler) CheckOut(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	record, err := h.attendanceSvc.SelfCheckOut(c.Request.Context(), userID)
	if err != nil {
		handleSelfAttendanceError(c, err)
		return
	}

	response.OK(c, record)
}

// CheckStatus 本人当前是否在馆
// GET /api/v1/profile/check-status
func (h *ProfileHandler) CheckStatus(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	status, err := h.attendanceSvc.CheckStatus(c.Request.Context(), userID)
	if err != nil {
		handleSelfAttendanceError(c, err)
		return
	}

	response.OK(c, status)
}

// Attendance 本人到馆历史
// GET /api/v1/profile/attendance?from=&to=
func (h *ProfileHandler) Attendance(c *gin.Context) {
	var req dto.HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "Validation failed")
		return
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	// 以会员身份查询，员工账号在此也只看到本人记录
	list, err := h.attendanceSvc.History(c.Request.Context(), &req, userID, model.RoleMember)
	if err != nil {
		handleSelfAttendanceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// AttendanceICS 本人到馆记录导出为日历
// GET /api/v1/profile/attendance.ics
func (h *ProfileHandler) AttendanceICS(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	member, err := h.memberSvc.GetProfile(c.Request.Context(), userID)
	if err != nil {
		handleSelfAttendanceError(c, err)
		return
	}

	buf, filename, err := h.exportSvc.AttendanceICS(c.Request.Context(), member.ID)
	if err != nil {
		handleExportError(c, err)
		return
	}

	writeAttachment(c, filename, contentTypeICS, buf.Bytes())
}
