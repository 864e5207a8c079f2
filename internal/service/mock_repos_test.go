package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/Themath93/gather-management-app/internal/model"
	"github.com/Themath93/gather-management-app/internal/repository"
	pkgerrors "github.com/Themath93/gather-management-app/pkg/errors"
)

// mockStore 四个 Mock Repository 共享的内存数据
type mockStore struct {
	users   map[string]*model.User
	groups  map[string]*model.Group
	records map[string]*model.AttendanceRecord // key: group|user|part
	teams   map[string]*model.Team
	members []model.TeamMember
	seq     int
}

func newMockStore() *mockStore {
	return &mockStore{
		users:   make(map[string]*model.User),
		groups:  make(map[string]*model.Group),
		records: make(map[string]*model.AttendanceRecord),
		teams:   make(map[string]*model.Team),
	}
}

func (s *mockStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func recordKey(groupID, userID string, part model.Part) string {
	return groupID + "|" + userID + "|" + string(part)
}

// newMockRepository 组装 Mock 聚合（db 为 nil，Transaction 直接执行）
func newMockRepository(store *mockStore) *repository.Repository {
	return &repository.Repository{
		User:       &mockUserRepo{store: store},
		Group:      &mockGroupRepo{store: store},
		Attendance: &mockAttendanceRepo{store: store},
		Team:       &mockTeamRepo{store: store},
	}
}

// ── Mock UserRepository ──

type mockUserRepo struct {
	store *mockStore
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.store.users {
		if u.Username == user.Username || u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.UserID == "" {
		user.UserID = m.store.nextID("user")
	}
	if user.Version == 0 {
		user.Version = 1
	}
	cp := *user
	m.store.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.store.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.User, error) {
	return m.GetByID(ctx, id)
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range m.store.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.store.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) sorted() []model.User {
	result := make([]model.User, 0, len(m.store.users))
	for _, u := range m.store.users {
		result = append(result, *u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result
}

func (m *mockUserRepo) List(_ context.Context, offset, limit int) ([]model.User, int64, error) {
	all := m.sorted()
	total := int64(len(all))
	if offset >= len(all) {
		return []model.User{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockUserRepo) ListIDs(_ context.Context) ([]string, error) {
	var ids []string
	for _, u := range m.sorted() {
		ids = append(ids, u.UserID)
	}
	return ids, nil
}

func (m *mockUserRepo) updateVersioned(user *model.User, apply func(stored *model.User)) error {
	stored, ok := m.store.users[user.UserID]
	if !ok || stored.Version != user.Version {
		return pkgerrors.ErrOptimisticLock
	}
	apply(stored)
	stored.Version++
	user.Version = stored.Version
	return nil
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, user *model.User) error {
	return m.updateVersioned(user, func(stored *model.User) {
		stored.Email = user.Email
		stored.Gender = user.Gender
		stored.Interests = user.Interests
		stored.Role = user.Role
	})
}

func (m *mockUserRepo) UpdateAttendanceStats(_ context.Context, user *model.User) error {
	return m.updateVersioned(user, func(stored *model.User) {
		stored.AttendanceCount = user.AttendanceCount
		if user.LastAttended != nil {
			d := *user.LastAttended
			stored.LastAttended = &d
		} else {
			stored.LastAttended = nil
		}
	})
}

// ── Mock GroupRepository ──

type mockGroupRepo struct {
	store *mockStore
}

func (m *mockGroupRepo) Create(_ context.Context, group *model.Group) error {
	for _, g := range m.store.groups {
		if g.Date.Equal(group.Date) {
			return gorm.ErrDuplicatedKey
		}
	}
	if group.GroupID == "" {
		group.GroupID = m.store.nextID("group")
	}
	cp := *group
	m.store.groups[group.GroupID] = &cp
	return nil
}

func (m *mockGroupRepo) GetByID(_ context.Context, id string) (*model.Group, error) {
	if g, ok := m.store.groups[id]; ok {
		cp := *g
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockGroupRepo) GetByDate(_ context.Context, date time.Time) (*model.Group, error) {
	d := model.TruncateDate(date)
	for _, g := range m.store.groups {
		if g.Date.Equal(d) {
			cp := *g
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockGroupRepo) List(_ context.Context) ([]model.Group, error) {
	result := make([]model.Group, 0, len(m.store.groups))
	for _, g := range m.store.groups {
		result = append(result, *g)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (m *mockGroupRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.store.groups[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.store.groups, id)
	return nil
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct {
	store *mockStore
}

func (m *mockAttendanceRepo) Get(_ context.Context, groupID, userID string, part model.Part) (*model.AttendanceRecord, error) {
	if r, ok := m.store.records[recordKey(groupID, userID, part)]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) Create(_ context.Context, record *model.AttendanceRecord) error {
	key := recordKey(record.GroupID, record.UserID, record.Part)
	if _, ok := m.store.records[key]; ok {
		return gorm.ErrDuplicatedKey
	}
	if record.AttendanceID == "" {
		record.AttendanceID = m.store.nextID("att")
	}
	cp := *record
	m.store.records[key] = &cp
	return nil
}

func (m *mockAttendanceRepo) UpdateStatus(_ context.Context, attendanceID string, status model.AttendanceStatus) error {
	for _, r := range m.store.records {
		if r.AttendanceID == attendanceID {
			r.Status = status
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) LatestAttendedDate(_ context.Context, userID string) (*time.Time, error) {
	var latest *time.Time
	for _, r := range m.store.records {
		if r.UserID != userID || r.Status != model.StatusAttending {
			continue
		}
		g, ok := m.store.groups[r.GroupID]
		if !ok {
			continue
		}
		if latest == nil || g.Date.After(*latest) {
			d := g.Date
			latest = &d
		}
	}
	return latest, nil
}

func (m *mockAttendanceRepo) CountAttendingByUser(_ context.Context, userID string) (int64, error) {
	var n int64
	for _, r := range m.store.records {
		if r.UserID == userID && r.Status == model.StatusAttending {
			n++
		}
	}
	return n, nil
}

func (m *mockAttendanceRepo) ListAttendees(_ context.Context, groupID string, part model.Part) ([]model.User, error) {
	var users []model.User
	for _, r := range m.store.records {
		if r.GroupID == groupID && r.Part == part && r.Status == model.StatusAttending {
			if u, ok := m.store.users[r.UserID]; ok {
				users = append(users, *u)
			}
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (m *mockAttendanceRepo) CountByGroups(_ context.Context, groupIDs []string) ([]repository.PartRoleCount, error) {
	wanted := make(map[string]bool, len(groupIDs))
	for _, id := range groupIDs {
		wanted[id] = true
	}
	type key struct {
		group string
		part  model.Part
		role  model.Role
	}
	counts := make(map[key]int64)
	for _, r := range m.store.records {
		if !wanted[r.GroupID] || r.Status != model.StatusAttending {
			continue
		}
		u, ok := m.store.users[r.UserID]
		if !ok {
			continue
		}
		counts[key{r.GroupID, r.Part, u.Role}]++
	}
	var rows []repository.PartRoleCount
	for k, n := range counts {
		rows = append(rows, repository.PartRoleCount{GroupID: k.group, Part: k.part, Role: k.role, Count: n})
	}
	return rows, nil
}

func (m *mockAttendanceRepo) ListUserIDsByGroup(_ context.Context, groupID string) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string
	for _, r := range m.store.records {
		if r.GroupID == groupID && !seen[r.UserID] {
			seen[r.UserID] = true
			ids = append(ids, r.UserID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *mockAttendanceRepo) DeleteByGroup(_ context.Context, groupID string) error {
	for k, r := range m.store.records {
		if r.GroupID == groupID {
			delete(m.store.records, k)
		}
	}
	return nil
}

// ── Mock TeamRepository ──

type mockTeamRepo struct {
	store *mockStore
	locks []string
}

func (m *mockTeamRepo) LockGroupPart(_ context.Context, groupID string, part model.Part) error {
	m.locks = append(m.locks, groupID+"|"+string(part))
	return nil
}

func (m *mockTeamRepo) deleteWhere(match func(groupID string, part model.Part) bool) {
	kept := m.store.members[:0]
	for _, mem := range m.store.members {
		if !match(mem.GroupID, mem.Part) {
			kept = append(kept, mem)
		}
	}
	m.store.members = kept
	for id, t := range m.store.teams {
		if match(t.GroupID, t.Part) {
			delete(m.store.teams, id)
		}
	}
}

func (m *mockTeamRepo) DeleteByGroupAndPart(_ context.Context, groupID string, part model.Part) error {
	m.deleteWhere(func(g string, p model.Part) bool { return g == groupID && p == part })
	return nil
}

func (m *mockTeamRepo) DeleteByGroup(_ context.Context, groupID string) error {
	m.deleteWhere(func(g string, _ model.Part) bool { return g == groupID })
	return nil
}

func (m *mockTeamRepo) Create(_ context.Context, team *model.Team) error {
	if team.TeamID == "" {
		team.TeamID = m.store.nextID("team")
	}
	cp := *team
	cp.Members = nil
	m.store.teams[team.TeamID] = &cp
	return nil
}

func (m *mockTeamRepo) BatchCreateMembers(_ context.Context, members []model.TeamMember) error {
	for _, mem := range members {
		for _, existing := range m.store.members {
			if existing.GroupID == mem.GroupID && existing.Part == mem.Part && existing.UserID == mem.UserID {
				return gorm.ErrDuplicatedKey
			}
		}
		if mem.TeamMemberID == "" {
			mem.TeamMemberID = m.store.nextID("member")
		}
		m.store.members = append(m.store.members, mem)
	}
	return nil
}

func (m *mockTeamRepo) ListByGroup(_ context.Context, groupID string) ([]model.Team, error) {
	var teams []model.Team
	for _, t := range m.store.teams {
		if t.GroupID != groupID {
			continue
		}
		cp := *t
		for _, mem := range m.store.members {
			if mem.TeamID != t.TeamID {
				continue
			}
			if u, ok := m.store.users[mem.UserID]; ok {
				uc := *u
				mem.User = &uc
			}
			cp.Members = append(cp.Members, mem)
		}
		sort.SliceStable(cp.Members, func(i, j int) bool { return cp.Members[i].IsLeader && !cp.Members[j].IsLeader })
		teams = append(teams, cp)
	}
	sort.Slice(teams, func(i, j int) bool {
		if teams[i].Part != teams[j].Part {
			return teams[i].Part < teams[j].Part
		}
		return teams[i].Number < teams[j].Number
	})
	return teams, nil
}

func (m *mockTeamRepo) FindMemberships(_ context.Context, groupID, userID string) ([]repository.Membership, error) {
	var result []repository.Membership
	for _, mem := range m.store.members {
		if mem.GroupID != groupID || mem.UserID != userID {
			continue
		}
		t := m.store.teams[mem.TeamID]
		result = append(result, repository.Membership{
			TeamID:   mem.TeamID,
			Part:     mem.Part,
			Number:   t.Number,
			IsLeader: mem.IsLeader,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Part < result[j].Part })
	return result, nil
}

func (m *mockTeamRepo) GroupIDsByUser(_ context.Context, userID string) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string
	for _, mem := range m.store.members {
		if mem.UserID == userID && !seen[mem.GroupID] {
			seen[mem.GroupID] = true
			ids = append(ids, mem.GroupID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ── Mock Cache ──

type mockCache struct {
	data    map[string][]byte
	deletes []string
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (c *mockCache) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *mockCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

func (c *mockCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.data, k)
		c.deletes = append(c.deletes, k)
	}
	return nil
}

// ── 测试数据辅助 ──

func addUser(store *mockStore, username string, role model.Role, gender model.Gender) *model.User {
	u := &model.User{
		UserID:   "uid-" + username,
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
		Gender:   gender,
		VersionedModel: model.VersionedModel{
			Version: 1,
		},
	}
	store.users[u.UserID] = u
	return u
}

func addGroup(store *mockStore, date string) *model.Group {
	d, err := model.ParseDate(date)
	if err != nil {
		panic(err)
	}
	g := &model.Group{GroupID: "gid-" + date, Date: d}
	store.groups[g.GroupID] = g
	return g
}
