package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gympulse/backend/config"
	"gympulse/backend/internal/dto"
	"gympulse/backend/internal/model"
	"gympulse/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("Failed to generate export file")
)

const icsProductID = "-//GymPulse//Attendance//EN"

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response。
// 时间均按场馆时区呈现。
type ExportService interface {
	// AttendanceXLSX 到馆历史导出为 Excel，每条记录一行；筛选规则与 History 一致
	AttendanceXLSX(ctx context.Context, req *dto.HistoryRequest, callerID uint, role string) (*bytes.Buffer, string, error)
	// AttendanceICS 单个会员的到馆记录导出为 iCalendar，每次到馆一个 VEVENT
	AttendanceICS(ctx context.Context, memberID uint) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
	loc    *time.Location
	now    func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(cfg *config.GymConfig, repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{
		repo:   repo,
		logger: logger,
		loc:    cfg.Location(),
		now:    time.Now,
	}
}

// ═══════════════════════════════════════════════════════════
// AttendanceXLSX
// ═══════════════════════════════════════════════════════════
//
// 列：日期 | 会员编号 | 会员 | 签到 | 签出 | 时长（分钟）| 自动签出
// 未签出的记录签出与时长留空。

var attendanceHeaders = []string{"Date", "Member ID", "Member", "Check-in", "Check-out", "Duration (min)", "Auto-closed"}

func (s *exportService) AttendanceXLSX(ctx context.Context, req *dto.HistoryRequest, callerID uint, role string) (*bytes.Buffer, string, error) {
	filter, err := historyFilter(ctx, s.repo, req, callerID, role)
	if err != nil {
		return nil, "", err
	}

	recs, err := s.repo.Attendance.History(ctx, filter)
	if err != nil {
		s.logger.Error("查询到馆历史失败", zap.Error(err))
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Attendance"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 12)
	f.SetColWidth(sheetName, "B", "B", 10)
	f.SetColWidth(sheetName, "C", "C", 24)
	f.SetColWidth(sheetName, "D", "E", 20)
	f.SetColWidth(sheetName, "F", "G", 14)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 表头
	for i, h := range attendanceHeaders {
		f.SetCellValue(sheetName, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheetName, "A1", cell(colName(len(attendanceHeaders)-1), 1), headerStyle)
	f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	// 数据行
	for i := range recs {
		rec := &recs[i]
		row := i + 2

		name := ""
		if rec.Member != nil {
			name = rec.Member.FullName
		}

		f.SetCellValue(sheetName, cell("A", row), string(rec.AttendanceDate))
		f.SetCellValue(sheetName, cell("B", row), rec.MemberID)
		f.SetCellValue(sheetName, cell("C", row), name)
		f.SetCellValue(sheetName, cell("D", row), s.formatTime(rec.CheckInTime))
		if rec.CheckOutTime != nil {
			f.SetCellValue(sheetName, cell("E", row), s.formatTime(*rec.CheckOutTime))
			f.SetCellValue(sheetName, cell("F", row), int(rec.CheckOutTime.Sub(rec.CheckInTime).Minutes()))
		}
		f.SetCellValue(sheetName, cell("G", row), rec.AutoClosed)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("attendance_%s.xlsx", s.now().In(s.loc).Format("20060102"))
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// AttendanceICS
// ═══════════════════════════════════════════════════════════

func (s *exportService) AttendanceICS(ctx context.Context, memberID uint) (*bytes.Buffer, string, error) {
	member, err := s.repo.Member.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrMemberNotFound
		}
		s.logger.Error("查询会员失败", zap.Uint("member_id", memberID), zap.Error(err))
		return nil, "", err
	}

	recs, err := s.repo.Attendance.History(ctx, repository.AttendanceFilter{MemberID: &memberID})
	if err != nil {
		s.logger.Error("查询到馆历史失败", zap.Uint("member_id", memberID), zap.Error(err))
		return nil, "", err
	}

	gymName := s.gymName(ctx)
	now := s.now().UTC()

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)
	cal.SetXWRCalName(fmt.Sprintf("%s visits - %s", gymName, member.FullName))
	cal.SetXWRTimezone(s.loc.String())

	for i := range recs {
		rec := &recs[i]

		// 未签出的到馆以当前时刻为结束
		end := now
		if rec.CheckOutTime != nil {
			end = *rec.CheckOutTime
		}
		if end.Before(rec.CheckInTime) {
			end = rec.CheckInTime
		}

		evt := cal.AddEvent(fmt.Sprintf("attendance-%d@gympulse", rec.ID))
		evt.SetDtStampTime(now)
		evt.SetStartAt(rec.CheckInTime)
		evt.SetEndAt(end)
		evt.SetSummary(fmt.Sprintf("%s visit", gymName))
		evt.SetLocation(gymName)
		if rec.AutoClosed {
			evt.SetDescription("Checked out automatically at end of day")
		}
	}

	buf := bytes.NewBufferString(cal.Serialize())
	filename := fmt.Sprintf("attendance_member_%d.ics", memberID)
	return buf, filename, nil
}

// ── 辅助函数 ──

func (s *exportService) formatTime(t time.Time) string {
	return t.In(s.loc).Format("2006-01-02 15:04:05")
}

func (s *exportService) gymName(ctx context.Context) string {
	setting, err := s.repo.Setting.Get(ctx, model.SettingGymName)
	if err != nil || setting.Value == "" {
		return "Gym"
	}
	return setting.Value
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
