package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"gympulse/backend/internal/dto"
	"gympulse/backend/internal/model"
	"gympulse/backend/internal/service"
	"gympulse/backend/pkg/response"
)

// AttendanceHandler 到馆模块 HTTP 处理器（员工代操作与公共查询）
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc}
}

// CheckIn 员工代签到（不受容量限制）
// POST /api/v1/attendance/check-in
func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	var req dto.CheckInRequest
	if !bindJSON(c, &req) {
		return
	}

	record, err := h.attendanceSvc.CheckIn(c.Request.Context(), req.MemberID)
	if err != nil {
		handleStaffAttendanceError(c, err)
		return
	}

	response.Created(c, record)
}

// CheckOut 员工代签出
// POST /api/v1/attendance/check-out
func (h *AttendanceHandler) CheckOut(c *gin.Context) {
	var req dto.CheckOutRequest
	if !bindJSON(c, &req) {
		return
	}

	record, err := h.attendanceSvc.CheckOut(c.Request.Context(), req.MemberID)
	if err != nil {
		handleStaffAttendanceError(c, err)
		return
	}

	response.OK(c, record)
}

// Live 实时在馆人数，仅员工可见在馆名单
// GET /api/v1/attendance/live
func (h *AttendanceHandler) Live(c *gin.Context) {
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	staff := model.IsStaff(role)
	live, err := h.attendanceSvc.Live(c.Request.Context(), staff)
	if err != nil {
		response.InternalError(c)
		return
	}

	if !staff {
		response.OK(c, live.Snapshot)
		return
	}
	if live.Attendees == nil {
		live.Attendees = []dto.LiveAttendee{}
	}
	response.OK(c, live)
}

// History 到馆历史
// GET /api/v1/attendance/history?member_id=&from=&to=
func (h *AttendanceHandler) History(c *gin.Context) {
	var req dto.HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "Validation failed")
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

	list, err := h.attendanceSvc.History(c.Request.Context(), &req, callerID, role)
	if err != nil {
		handleSelfAttendanceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// handleStaffAttendanceError 员工代操作：会员不存在或状态异常属于请求错误
func handleStaffAttendanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMemberNotFound):
		response.BadRequest(c, 13001, err.Error())
	default:
		handleAttendanceError(c, err)
	}
}

// handleSelfAttendanceError 会员自助：缺少会员档案返回 404
func handleSelfAttendanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMemberProfileNotFound):
		response.NotFound(c, 13002, err.Error())
	default:
		handleAttendanceError(c, err)
	}
}

func handleAttendanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMemberNotActive):
		response.BadRequest(c, 13003, err.Error())
	case errors.Is(err, service.ErrGymAtCapacity):
		response.BadRequest(c, 13004, err.Error())
	case errors.Is(err, service.ErrAlreadyCheckedIn):
		response.BadRequest(c, 13005, err.Error())
	case errors.Is(err, service.ErrNoActiveCheckIn):
		response.BadRequest(c, 13006, err.Error())
	case errors.Is(err, service.ErrInvalidDateRange):
		response.BadRequest(c, 13007, err.Error())
	default:
		response.InternalError(c)
	}
}
