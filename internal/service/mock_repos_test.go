package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"gympulse/backend/internal/model"
	"gympulse/backend/internal/repository"
	pkgerrors "gympulse/backend/pkg/errors"
	"gympulse/backend/pkg/occupancy"
)

var errMockStorage = errors.New("mock storage failure")

// ── Mock UserRepository ──

type mockUserRepo struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uint]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.ID == 0 {
		m.nextID++
		user.ID = m.nextID + 1000
	}
	user.CreatedAt = time.Now()
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uint) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return nil
}

// ── Mock MemberRepository ──

type mockMemberRepo struct {
	mu      sync.Mutex
	nextID  uint
	members map[uint]*model.Member
	users   *mockUserRepo
	getErr  error
}

func newMockMemberRepo(users *mockUserRepo) *mockMemberRepo {
	return &mockMemberRepo{members: make(map[uint]*model.Member), users: users}
}

// seed 直接写入会员（绕过账号创建）
func (m *mockMemberRepo) seed(id, userID uint, status string) *model.Member {
	m.mu.Lock()
	defer m.mu.Unlock()
	member := &model.Member{
		ID:              id,
		UserID:          userID,
		FullName:        fmt.Sprintf("Member %d", id),
		Gender:          "other",
		PlanType:        model.PlanClassic,
		JoinDate:        "2026-01-01",
		NextDueDate:     "2026-02-01",
		GracePeriodDays: model.DefaultGracePeriodDays,
		Status:          status,
	}
	m.members[id] = member
	return member
}

func (m *mockMemberRepo) CreateWithUser(ctx context.Context, user *model.User, member *model.Member) error {
	if err := m.users.Create(ctx, user); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	member.ID = m.nextID
	member.UserID = user.ID
	member.User = user
	member.CreatedAt = time.Now()
	m.members[member.ID] = member
	return nil
}

func (m *mockMemberRepo) GetByID(_ context.Context, id uint) (*model.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if mem, ok := m.members[id]; ok {
		cp := *mem
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockMemberRepo) GetByUserID(_ context.Context, userID uint) (*model.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, mem := range m.members {
		if mem.UserID == userID {
			cp := *mem
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockMemberRepo) ListByIDs(_ context.Context, ids []uint) ([]model.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Member
	for _, id := range ids {
		if mem, ok := m.members[id]; ok {
			result = append(result, *mem)
		}
	}
	return result, nil
}

func (m *mockMemberRepo) List(_ context.Context, filter repository.MemberFilter, offset, limit int) ([]model.Member, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Member
	for _, mem := range m.members {
		if filter.Status != "" && mem.Status != filter.Status {
			continue
		}
		if filter.Keyword != "" && !strings.Contains(mem.FullName, filter.Keyword) {
			continue
		}
		all = append(all, *mem)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	total := int64(len(all))
	if offset >= len(all) {
		return []model.Member{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockMemberRepo) Update(_ context.Context, member *model.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *member
	m.members[member.ID] = &cp
	return nil
}

// ── Mock AttendanceRepository ──

// mockAttendanceRepo 与部分唯一索引一致：同一会员同一天至多一条未签出记录
type mockAttendanceRepo struct {
	mu      sync.Mutex
	nextID  uint
	recs    map[uint]*model.Attendance
	members *mockMemberRepo
}

func newMockAttendanceRepo(members *mockMemberRepo) *mockAttendanceRepo {
	return &mockAttendanceRepo{recs: make(map[uint]*model.Attendance), members: members}
}

func (m *mockAttendanceRepo) Create(_ context.Context, rec *model.Attendance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.recs {
		if r.MemberID == rec.MemberID && r.CheckOutTime == nil {
			return pkgerrors.ErrOpenSessionExists
		}
	}
	m.nextID++
	rec.ID = m.nextID
	cp := *rec
	cp.Member = nil
	m.recs[rec.ID] = &cp
	return nil
}

func (m *mockAttendanceRepo) GetByID(_ context.Context, id uint) (*model.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.recs[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) FindOpen(_ context.Context, memberID uint, date model.Date) (*model.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *model.Attendance
	for _, r := range m.recs {
		if r.MemberID == memberID && r.AttendanceDate == date && r.CheckOutTime == nil {
			if latest == nil || r.CheckInTime.After(latest.CheckInTime) {
				latest = r
			}
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *mockAttendanceRepo) ListOpenBefore(_ context.Context, memberID uint, date model.Date) ([]model.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Attendance
	for _, r := range m.recs {
		if r.MemberID == memberID && r.AttendanceDate < date && r.CheckOutTime == nil {
			result = append(result, *r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AttendanceDate < result[j].AttendanceDate })
	return result, nil
}

func (m *mockAttendanceRepo) Close(_ context.Context, id uint, at time.Time, autoClosed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recs[id]
	if !ok || r.CheckOutTime != nil {
		return pkgerrors.ErrSessionAlreadyClosed
	}
	t := at
	r.CheckOutTime = &t
	r.AutoClosed = autoClosed
	return nil
}

func (m *mockAttendanceRepo) ListOpenByDate(ctx context.Context, date model.Date) ([]model.Attendance, error) {
	m.mu.Lock()
	var result []model.Attendance
	for _, r := range m.recs {
		if r.AttendanceDate == date && r.CheckOutTime == nil {
			result = append(result, *r)
		}
	}
	m.mu.Unlock()

	sort.Slice(result, func(i, j int) bool { return result[i].CheckInTime.Before(result[j].CheckInTime) })
	m.attachMembers(ctx, result)
	return result, nil
}

func (m *mockAttendanceRepo) CountOpenByDate(_ context.Context, date model.Date) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.recs {
		if r.AttendanceDate == date && r.CheckOutTime == nil {
			n++
		}
	}
	return n, nil
}

func (m *mockAttendanceRepo) History(ctx context.Context, filter repository.AttendanceFilter) ([]model.Attendance, error) {
	m.mu.Lock()
	var result []model.Attendance
	for _, r := range m.recs {
		if filter.MemberID != nil && r.MemberID != *filter.MemberID {
			continue
		}
		if filter.From != nil && r.AttendanceDate < *filter.From {
			continue
		}
		if filter.To != nil && r.AttendanceDate > *filter.To {
			continue
		}
		result = append(result, *r)
	}
	m.mu.Unlock()

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.AttendanceDate != b.AttendanceDate {
			return a.AttendanceDate > b.AttendanceDate
		}
		if !a.CheckInTime.Equal(b.CheckInTime) {
			return a.CheckInTime.After(b.CheckInTime)
		}
		return a.ID > b.ID
	})
	m.attachMembers(ctx, result)
	return result, nil
}

func (m *mockAttendanceRepo) attachMembers(ctx context.Context, recs []model.Attendance) {
	if m.members == nil {
		return
	}
	for i := range recs {
		if mem, err := m.members.GetByID(ctx, recs[i].MemberID); err == nil {
			recs[i].Member = mem
		}
	}
}

// put 直接写入记录，用于构造历史数据
func (m *mockAttendanceRepo) put(rec model.Attendance) *model.Attendance {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	rec.ID = m.nextID
	m.recs[rec.ID] = &rec
	return &rec
}

func (m *mockAttendanceRepo) all() []model.Attendance {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]model.Attendance, 0, len(m.recs))
	for _, r := range m.recs {
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// ── Mock SettingRepository ──

type mockSettingRepo struct {
	mu       sync.Mutex
	settings map[string]*model.Setting
	getErr   error
}

func newMockSettingRepo() *mockSettingRepo {
	return &mockSettingRepo{settings: make(map[string]*model.Setting)}
}

func (m *mockSettingRepo) set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = &model.Setting{Key: key, Value: value}
}

func (m *mockSettingRepo) List(_ context.Context) ([]model.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Setting
	for _, s := range m.settings {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

func (m *mockSettingRepo) Get(_ context.Context, key string) (*model.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if s, ok := m.settings[key]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSettingRepo) Upsert(_ context.Context, setting *model.Setting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	setting.UpdatedAt = time.Now()
	if existing, ok := m.settings[setting.Key]; ok {
		setting.CreatedAt = existing.CreatedAt
	} else {
		setting.CreatedAt = setting.UpdatedAt
	}
	cp := *setting
	m.settings[setting.Key] = &cp
	return nil
}

// ── Mock LiveNotifier / TokenBlacklist ──

type recordingNotifier struct {
	mu        sync.Mutex
	snapshots []occupancy.Snapshot
}

func (n *recordingNotifier) Publish(s occupancy.Snapshot) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.snapshots = append(n.snapshots, s)
}

func (n *recordingNotifier) last() (occupancy.Snapshot, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.snapshots) == 0 {
		return occupancy.Snapshot{}, false
	}
	return n.snapshots[len(n.snapshots)-1], true
}

type mockBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func newMockBlacklist() *mockBlacklist {
	return &mockBlacklist{revoked: make(map[string]time.Duration)}
}

func (b *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ttl > 0 {
		b.revoked[jti] = ttl
	}
	return nil
}

func (b *mockBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.revoked[jti]
	return ok, nil
}

// ── Repository 组装 ──

type mockRepos struct {
	users      *mockUserRepo
	members    *mockMemberRepo
	attendance *mockAttendanceRepo
	settings   *mockSettingRepo
}

func newMockRepos() (*repository.Repository, *mockRepos) {
	users := newMockUserRepo()
	members := newMockMemberRepo(users)
	m := &mockRepos{
		users:      users,
		members:    members,
		attendance: newMockAttendanceRepo(members),
		settings:   newMockSettingRepo(),
	}
	repo := &repository.Repository{
		User:       m.users,
		Member:     m.members,
		Attendance: m.attendance,
		Setting:    m.settings,
	}
	return repo, m
}
