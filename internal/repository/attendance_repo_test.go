package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gympulse/backend/internal/model"
	pkgerrors "gympulse/backend/pkg/errors"
)

// ── 测试辅助 ──

// newTestDB 每个测试独立的内存 SQLite，结构由 AutoMigrate 生成（含部分唯一索引）
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("打开 SQLite 失败: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取 sql.DB 失败: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(&model.User{}, &model.Member{}, &model.Attendance{}, &model.Setting{}); err != nil {
		t.Fatalf("AutoMigrate 失败: %v", err)
	}
	return db
}

func createTestMember(t *testing.T, repo *Repository, username string) *model.Member {
	t.Helper()

	user := &model.User{
		Username:     username,
		PasswordHash: "$2a$10$placeholder",
		Role:         model.RoleMember,
		IsActive:     true,
	}
	member := &model.Member{
		FullName:        "Member " + username,
		Gender:          "other",
		PlanType:        model.PlanClassic,
		MonthlyFee:      decimal.RequireFromString("29.99"),
		JoinDate:        "2026-01-01",
		NextDueDate:     "2026-02-01",
		GracePeriodDays: model.DefaultGracePeriodDays,
		Status:          model.MemberStatusActive,
	}
	if err := repo.Member.CreateWithUser(context.Background(), user, member); err != nil {
		t.Fatalf("创建会员失败: %v", err)
	}
	return member
}

func openRecord(memberID uint, date model.Date, at time.Time) *model.Attendance {
	return &model.Attendance{MemberID: memberID, AttendanceDate: date, CheckInTime: at}
}

var baseTime = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

// ── 开放会话唯一性 ──

func TestAttendanceRepo_Create_RejectsSecondOpenSession(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	m := createTestMember(t, repo, "alice")

	if err := repo.Attendance.Create(ctx, openRecord(m.ID, "2026-10-19", baseTime)); err != nil {
		t.Fatalf("首次签到应成功: %v", err)
	}

	err := repo.Attendance.Create(ctx, openRecord(m.ID, "2026-10-19", baseTime.Add(time.Minute)))
	if !errors.Is(err, pkgerrors.ErrOpenSessionExists) {
		t.Fatalf("期望 ErrOpenSessionExists，实际: %v", err)
	}

	// 其他会员互不影响
	other := createTestMember(t, repo, "bob")
	if err := repo.Attendance.Create(ctx, openRecord(other.ID, "2026-10-19", baseTime)); err != nil {
		t.Errorf("其他会员签到应成功: %v", err)
	}
}

func TestAttendanceRepo_Create_RejectsOpenSessionAcrossDays(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	m := createTestMember(t, repo, "alice")

	// 午夜前的签到晚于午夜后的遗留清理提交：仍由索引拒绝第二条未签出记录
	late := openRecord(m.ID, "2026-10-18", baseTime.Add(-9*time.Hour))
	if err := repo.Attendance.Create(ctx, late); err != nil {
		t.Fatalf("前一天签到应成功: %v", err)
	}
	err := repo.Attendance.Create(ctx, openRecord(m.ID, "2026-10-19", baseTime))
	if !errors.Is(err, pkgerrors.ErrOpenSessionExists) {
		t.Fatalf("跨日第二条未签出记录期望 ErrOpenSessionExists，实际: %v", err)
	}

	// 遗留记录关闭后次日签到成功
	if err := repo.Attendance.Close(ctx, late.ID, baseTime.Add(-8*time.Hour), true); err != nil {
		t.Fatalf("补签出失败: %v", err)
	}
	if err := repo.Attendance.Create(ctx, openRecord(m.ID, "2026-10-19", baseTime)); err != nil {
		t.Errorf("关闭遗留记录后签到应成功: %v", err)
	}
}

func TestAttendanceRepo_Create_AllowsNewSessionAfterClose(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	m := createTestMember(t, repo, "alice")

	for i := 0; i < 3; i++ {
		rec := openRecord(m.ID, "2026-10-19", baseTime.Add(time.Duration(i)*time.Hour))
		if err := repo.Attendance.Create(ctx, rec); err != nil {
			t.Fatalf("第 %d 次签到失败: %v", i+1, err)
		}
		if err := repo.Attendance.Close(ctx, rec.ID, rec.CheckInTime.Add(30*time.Minute), false); err != nil {
			t.Fatalf("第 %d 次签出失败: %v", i+1, err)
		}
	}

	history, err := repo.Attendance.History(ctx, AttendanceFilter{MemberID: &m.ID})
	if err != nil {
		t.Fatalf("History 失败: %v", err)
	}
	if len(history) != 3 {
		t.Errorf("期望 3 条历史记录，实际 %d", len(history))
	}
}

func TestAttendanceRepo_Create_ConcurrentSameMember(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	m := createTestMember(t, repo, "alice")

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- repo.Attendance.Create(ctx, openRecord(m.ID, "2026-10-19", baseTime.Add(time.Duration(i)*time.Second)))
		}(i)
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, pkgerrors.ErrOpenSessionExists):
		default:
			t.Errorf("意外错误: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("期望恰好 1 次签到成功，实际 %d", succeeded)
	}

	n, err := repo.Attendance.CountOpenByDate(ctx, "2026-10-19")
	if err != nil {
		t.Fatalf("CountOpenByDate 失败: %v", err)
	}
	if n != 1 {
		t.Errorf("期望 1 条未签出记录，实际 %d", n)
	}
}

// ── 签出 ──

func TestAttendanceRepo_Close_Twice(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	m := createTestMember(t, repo, "alice")

	rec := openRecord(m.ID, "2026-10-19", baseTime)
	if err := repo.Attendance.Create(ctx, rec); err != nil {
		t.Fatalf("签到失败: %v", err)
	}
	if err := repo.Attendance.Close(ctx, rec.ID, baseTime.Add(time.Hour), false); err != nil {
		t.Fatalf("首次签出失败: %v", err)
	}
	err := repo.Attendance.Close(ctx, rec.ID, baseTime.Add(2*time.Hour), false)
	if !errors.Is(err, pkgerrors.ErrSessionAlreadyClosed) {
		t.Fatalf("期望 ErrSessionAlreadyClosed，实际: %v", err)
	}

	got, err := repo.Attendance.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID 失败: %v", err)
	}
	if got.CheckOutTime == nil || !got.CheckOutTime.Equal(baseTime.Add(time.Hour)) {
		t.Errorf("签出时间不应被第二次签出覆盖: %v", got.CheckOutTime)
	}
}

func TestAttendanceRepo_FindOpen(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	m := createTestMember(t, repo, "alice")

	if _, err := repo.Attendance.FindOpen(ctx, m.ID, "2026-10-19"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("期望 ErrRecordNotFound，实际: %v", err)
	}

	closed := openRecord(m.ID, "2026-10-19", baseTime)
	repo.Attendance.Create(ctx, closed)
	repo.Attendance.Close(ctx, closed.ID, baseTime.Add(time.Hour), false)

	open := openRecord(m.ID, "2026-10-19", baseTime.Add(2*time.Hour))
	repo.Attendance.Create(ctx, open)

	got, err := repo.Attendance.FindOpen(ctx, m.ID, "2026-10-19")
	if err != nil {
		t.Fatalf("FindOpen 失败: %v", err)
	}
	if got.ID != open.ID {
		t.Errorf("期望返回未签出记录 %d，实际 %d", open.ID, got.ID)
	}
}

func TestAttendanceRepo_ListOpenBefore(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	m := createTestMember(t, repo, "alice")

	closed := openRecord(m.ID, "2026-10-17", baseTime.Add(-48*time.Hour))
	repo.Attendance.Create(ctx, closed)
	repo.Attendance.Close(ctx, closed.ID, closed.CheckInTime.Add(time.Hour), false)
	repo.Attendance.Create(ctx, openRecord(m.ID, "2026-10-18", baseTime.Add(-24*time.Hour)))

	stale, err := repo.Attendance.ListOpenBefore(ctx, m.ID, "2026-10-19")
	if err != nil {
		t.Fatalf("ListOpenBefore 失败: %v", err)
	}
	if len(stale) != 1 || stale[0].AttendanceDate != "2026-10-18" {
		t.Fatalf("期望 1 条 2026-10-18 的遗留记录，实际 %+v", stale)
	}

	if none, _ := repo.Attendance.ListOpenBefore(ctx, m.ID, "2026-10-18"); len(none) != 0 {
		t.Errorf("当天的未签出记录不应视为遗留，实际 %d 条", len(none))
	}
}

// ── 实时与历史 ──

func TestAttendanceRepo_ListOpenByDate_PreloadsMember(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	alice := createTestMember(t, repo, "alice")
	bob := createTestMember(t, repo, "bob")

	repo.Attendance.Create(ctx, openRecord(alice.ID, "2026-10-19", baseTime))
	left := openRecord(bob.ID, "2026-10-19", baseTime.Add(time.Minute))
	repo.Attendance.Create(ctx, left)
	repo.Attendance.Close(ctx, left.ID, baseTime.Add(time.Hour), false)
	repo.Attendance.Create(ctx, openRecord(bob.ID, "2026-10-18", baseTime.Add(-24*time.Hour)))

	live, err := repo.Attendance.ListOpenByDate(ctx, "2026-10-19")
	if err != nil {
		t.Fatalf("ListOpenByDate 失败: %v", err)
	}
	if len(live) != 1 {
		t.Fatalf("期望 1 人在馆，实际 %d", len(live))
	}
	if live[0].Member == nil || live[0].Member.FullName != "Member alice" {
		t.Errorf("期望预加载会员 alice，实际 %+v", live[0].Member)
	}
}

func TestAttendanceRepo_History_OrderAndFilter(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	alice := createTestMember(t, repo, "alice")
	bob := createTestMember(t, repo, "bob")

	seed := []struct {
		member uint
		date   model.Date
		at     time.Time
	}{
		{alice.ID, "2026-10-17", baseTime.Add(-48 * time.Hour)},
		{bob.ID, "2026-10-19", baseTime},
		{alice.ID, "2026-10-18", baseTime.Add(-24 * time.Hour)},
		{bob.ID, "2026-10-17", baseTime.Add(-47 * time.Hour)},
	}
	for _, s := range seed {
		rec := openRecord(s.member, s.date, s.at)
		if err := repo.Attendance.Create(ctx, rec); err != nil {
			t.Fatalf("造数失败: %v", err)
		}
		repo.Attendance.Close(ctx, rec.ID, s.at.Add(time.Hour), false)
	}

	all, err := repo.Attendance.History(ctx, AttendanceFilter{})
	if err != nil {
		t.Fatalf("History 失败: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("期望 4 条记录，实际 %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].AttendanceDate < all[i].AttendanceDate {
			t.Errorf("历史记录未按日期倒序: %s 在 %s 之前", all[i-1].AttendanceDate, all[i].AttendanceDate)
		}
	}
	// 同日按签到时间倒序：bob 08:00-47h 晚于 alice 08:00-48h
	if all[2].MemberID != bob.ID || all[3].MemberID != alice.ID {
		t.Errorf("同日记录未按签到时间倒序")
	}

	onlyAlice, _ := repo.Attendance.History(ctx, AttendanceFilter{MemberID: &alice.ID})
	if len(onlyAlice) != 2 {
		t.Fatalf("期望 alice 2 条记录，实际 %d", len(onlyAlice))
	}
	for _, r := range onlyAlice {
		if r.MemberID != alice.ID {
			t.Errorf("筛选结果混入其他会员: %d", r.MemberID)
		}
	}
	if onlyAlice[0].AttendanceDate != "2026-10-18" {
		t.Errorf("期望最新记录日期 2026-10-18，实际 %s", onlyAlice[0].AttendanceDate)
	}

	from, to := model.Date("2026-10-18"), model.Date("2026-10-19")
	ranged, _ := repo.Attendance.History(ctx, AttendanceFilter{From: &from, To: &to})
	if len(ranged) != 2 {
		t.Errorf("期望区间内 2 条记录，实际 %d", len(ranged))
	}
}

// ── 会员与配置 ──

func TestMemberRepo_CreateWithUser_DuplicateUsername(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()
	m := createTestMember(t, repo, "alice")

	got, err := repo.Member.GetByUserID(ctx, m.UserID)
	if err != nil {
		t.Fatalf("GetByUserID 失败: %v", err)
	}
	if got.ID != m.ID || got.User == nil || got.User.Username != "alice" {
		t.Errorf("GetByUserID 返回不符: %+v", got)
	}
	if !got.MonthlyFee.Equal(decimal.RequireFromString("29.99")) {
		t.Errorf("期望月费 29.99，实际 %s", got.MonthlyFee)
	}

	dupUser := &model.User{Username: "alice", PasswordHash: "x", Role: model.RoleMember, IsActive: true}
	dupMember := &model.Member{FullName: "Dup", Gender: "other", PlanType: model.PlanClassic, JoinDate: "2026-01-01", NextDueDate: "2026-02-01", Status: model.MemberStatusActive}
	err = repo.Member.CreateWithUser(ctx, dupUser, dupMember)
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("期望 ErrDuplicatedKey，实际: %v", err)
	}
}

func TestSettingRepo_Upsert(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	if err := repo.Setting.Upsert(ctx, &model.Setting{Key: model.SettingGymCapacity, Value: "50"}); err != nil {
		t.Fatalf("首次写入失败: %v", err)
	}
	admin := uint(1)
	if err := repo.Setting.Upsert(ctx, &model.Setting{Key: model.SettingGymCapacity, Value: "80", UpdatedBy: &admin}); err != nil {
		t.Fatalf("覆盖写入失败: %v", err)
	}

	got, err := repo.Setting.Get(ctx, model.SettingGymCapacity)
	if err != nil {
		t.Fatalf("Get 失败: %v", err)
	}
	if got.Value != "80" {
		t.Errorf("期望 value=80，实际 %s", got.Value)
	}

	all, _ := repo.Setting.List(ctx)
	if len(all) != 1 {
		t.Errorf("Upsert 不应产生重复键，实际 %d 条", len(all))
	}
}
