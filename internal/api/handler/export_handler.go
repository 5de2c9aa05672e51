package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"gympulse/backend/internal/dto"
	"gympulse/backend/internal/service"
	"gympulse/backend/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// AttendanceXLSX 导出到馆历史
// GET /api/v1/export/attendance?member_id=&from=&to=
func (h *ExportHandler) AttendanceXLSX(c *gin.Context) {
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

	buf, filename, err := h.exportSvc.AttendanceXLSX(c.Request.Context(), &req, callerID, role)
	if err != nil {
		handleExportError(c, err)
		return
	}

	writeAttachment(c, filename, contentTypeXLSX, buf.Bytes())
}

// AttendanceICS 导出指定会员的到馆日历
// GET /api/v1/export/attendance.ics?member_id=xxx
func (h *ExportHandler) AttendanceICS(c *gin.Context) {
	var req dto.HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil || req.MemberID == nil {
		response.BadRequest(c, 10001, "member_id is required")
		return
	}

	buf, filename, err := h.exportSvc.AttendanceICS(c.Request.Context(), *req.MemberID)
	if err != nil {
		handleExportError(c, err)
		return
	}

	writeAttachment(c, filename, contentTypeICS, buf.Bytes())
}

// writeAttachment 设置下载响应头并写入文件内容
func writeAttachment(c *gin.Context, filename, contentType string, data []byte) {
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, contentType, data)
}

func handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMemberNotFound):
		response.NotFound(c, 16001, err.Error())
	case errors.Is(err, service.ErrMemberProfileNotFound):
		response.NotFound(c, 16002, err.Error())
	case errors.Is(err, service.ErrInvalidDateRange):
		response.BadRequest(c, 16003, err.Error())
	default:
		response.InternalError(c)
	}
}
