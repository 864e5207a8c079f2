package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Themath93/gather-management-app/config"
	"github.com/Themath93/gather-management-app/internal/model"
	"github.com/Themath93/gather-management-app/internal/repository"
	"github.com/Themath93/gather-management-app/pkg/database"
	pkgerrors "github.com/Themath93/gather-management-app/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup：每个用例独立的 SQLite 内存库
// ═══════════════════════════════════════════════════════════

func newTestRepo(t *testing.T) *repository.Repository {
	t.Helper()
	logger := zap.NewNop()
	db, err := database.NewDB(&config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}, "error", logger)
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db, logger, model.All()...))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return repository.NewRepository(db)
}

func seedUser(t *testing.T, repo *repository.Repository, username string, role model.Role, gender model.Gender) *model.User {
	t.Helper()
	u := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$2a$10$placeholder",
		Role:         role,
		Gender:       gender,
	}
	require.NoError(t, repo.User.Create(context.Background(), u))
	return u
}

func seedGroup(t *testing.T, repo *repository.Repository, date string) *model.Group {
	t.Helper()
	d, err := model.ParseDate(date)
	require.NoError(t, err)
	g := &model.Group{Date: d}
	require.NoError(t, repo.Group.Create(context.Background(), g))
	return g
}

func attend(t *testing.T, repo *repository.Repository, g *model.Group, u *model.User, part model.Part, status model.AttendanceStatus) *model.AttendanceRecord {
	t.Helper()
	rec := &model.AttendanceRecord{GroupID: g.GroupID, UserID: u.UserID, Part: part, Status: status}
	require.NoError(t, repo.Attendance.Create(context.Background(), rec))
	return rec
}

// ═══════════════════════════════════════════════════════════
// User
// ═══════════════════════════════════════════════════════════

func TestUserRepo_CreateAndLookup(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u := seedUser(t, repo, "alice", model.RoleLeader, model.GenderFemale)
	assert.NotEmpty(t, u.UserID)
	assert.Equal(t, 1, u.Version)

	byName, err := repo.User.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.UserID, byName.UserID)
	assert.Equal(t, model.RoleLeader, byName.Role)
	assert.Nil(t, byName.LastAttended)

	byEmail, err := repo.User.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.UserID, byEmail.UserID)

	_, err = repo.User.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepo_DuplicateUsername(t *testing.T) {
	repo := newTestRepo(t)
	seedUser(t, repo, "alice", model.RoleMember, model.GenderFemale)

	dup := &model.User{
		Username:     "alice",
		Email:        "other@example.com",
		PasswordHash: "x",
		Role:         model.RoleMember,
		Gender:       model.GenderFemale,
	}
	err := repo.User.Create(context.Background(), dup)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestUserRepo_ListPaged(t *testing.T) {
	repo := newTestRepo(t)
	for _, name := range []string{"carol", "alice", "bob"} {
		seedUser(t, repo, name, model.RoleMember, model.GenderMale)
	}

	users, total, err := repo.User.List(context.Background(), 0, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "bob", users[1].Username)

	ids, err := repo.User.ListIDs(context.Background())
	require.NoError(t, err)
	assert.Len(t, ids, 3)
}

func TestUserRepo_UpdateAttendanceStats_OptimisticLock(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo, "alice", model.RoleMember, model.GenderFemale)

	stale, err := repo.User.GetByID(ctx, u.UserID)
	require.NoError(t, err)

	d := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	u.AttendanceCount = 1
	u.LastAttended = &d
	require.NoError(t, repo.User.UpdateAttendanceStats(ctx, u))
	assert.Equal(t, 2, u.Version)

	stale.AttendanceCount = 5
	err = repo.User.UpdateAttendanceStats(ctx, stale)
	assert.ErrorIs(t, err, pkgerrors.ErrOptimisticLock)
	assert.ErrorIs(t, err, pkgerrors.ErrConflict)

	got, err := repo.User.GetByID(ctx, u.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AttendanceCount)
	require.NotNil(t, got.LastAttended)
	assert.Equal(t, "2024-03-02", got.LastAttended.Format(model.DateLayout))

	// 清空为 NULL
	got.AttendanceCount = 0
	got.LastAttended = nil
	require.NoError(t, repo.User.UpdateAttendanceStats(ctx, got))
	cleared, err := repo.User.GetByID(ctx, u.UserID)
	require.NoError(t, err)
	assert.Nil(t, cleared.LastAttended)
	assert.Equal(t, 3, cleared.Version)
}

func TestUserRepo_UpdateProfileKeepsAggregates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo, "alice", model.RoleMember, model.GenderFemale)

	u.AttendanceCount = 4
	require.NoError(t, repo.User.UpdateAttendanceStats(ctx, u))

	fresh, err := repo.User.GetByID(ctx, u.UserID)
	require.NoError(t, err)
	fresh.Interests = "hiking"
	fresh.Role = model.RoleAdmin
	require.NoError(t, repo.User.UpdateProfile(ctx, fresh))

	got, err := repo.User.GetByID(ctx, u.UserID)
	require.NoError(t, err)
	assert.Equal(t, "hiking", got.Interests)
	assert.Equal(t, model.RoleAdmin, got.Role)
	assert.Equal(t, 4, got.AttendanceCount)
}

// ═══════════════════════════════════════════════════════════
// Group
// ═══════════════════════════════════════════════════════════

func TestGroupRepo_DateUniqueAndOrdering(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seedGroup(t, repo, "2024-05-10")
	seedGroup(t, repo, "2024-01-05")

	d, _ := model.ParseDate("2024-05-10")
	err := repo.Group.Create(ctx, &model.Group{Date: d})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	got, err := repo.Group.GetByDate(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-10", got.DateString())

	groups, err := repo.Group.List(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "2024-01-05", groups[0].DateString())
	assert.Equal(t, "2024-05-10", groups[1].DateString())
}

func TestGroupRepo_DeleteMissing(t *testing.T) {
	repo := newTestRepo(t)
	err := repo.Group.Delete(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

// ═══════════════════════════════════════════════════════════
// Attendance
// ═══════════════════════════════════════════════════════════

// tableDDL 读取 SQLite 建表语句
func tableDDL(t *testing.T, repo *repository.Repository, table string) string {
	t.Helper()
	var ddl string
	require.NoError(t, repo.DB().Raw("SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&ddl).Error)
	require.NotEmpty(t, ddl, "表 %s 应存在", table)
	return ddl
}

func TestSchema_ForeignKeyDirection(t *testing.T) {
	repo := newTestRepo(t)

	// 被引用方不应反向持有外键，否则开启外键检查后无法插入
	assert.NotContains(t, tableDDL(t, repo, "users"), "REFERENCES")
	assert.NotContains(t, tableDDL(t, repo, "meeting_groups"), "REFERENCES")

	assert.Contains(t, tableDDL(t, repo, "teams"), "REFERENCES `meeting_groups`")
	assert.Contains(t, tableDDL(t, repo, "team_members"), "REFERENCES `teams`")
}

func TestGroupRepo_DeleteCascadesTeams(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	g := seedGroup(t, repo, "2024-01-05")
	u := seedUser(t, repo, "a", model.RoleLeader, model.GenderMale)
	createTeam(t, repo, g, model.PartFirst, 1, u)

	require.NoError(t, repo.Group.Delete(ctx, g.GroupID))

	var teams, members int64
	require.NoError(t, repo.DB().Model(&model.Team{}).Count(&teams).Error)
	require.NoError(t, repo.DB().Model(&model.TeamMember{}).Count(&members).Error)
	assert.Zero(t, teams)
	assert.Zero(t, members)
}

func TestAttendanceRepo_UniquePerGroupUserPart(t *testing.T) {
	repo := newTestRepo(t)
	u := seedUser(t, repo, "alice", model.RoleMember, model.GenderFemale)
	g := seedGroup(t, repo, "2024-01-05")

	attend(t, repo, g, u, model.PartFirst, model.StatusAttending)
	attend(t, repo, g, u, model.PartSecond, model.StatusAbsent)

	err := repo.Attendance.Create(context.Background(), &model.AttendanceRecord{
		GroupID: g.GroupID, UserID: u.UserID, Part: model.PartFirst, Status: model.StatusAbsent,
	})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestAttendanceRepo_LatestAttendedDate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo, "alice", model.RoleMember, model.GenderFemale)
	g1 := seedGroup(t, repo, "2024-01-05")
	g2 := seedGroup(t, repo, "2024-02-09")
	g3 := seedGroup(t, repo, "2024-03-01")

	latest, err := repo.Attendance.LatestAttendedDate(ctx, u.UserID)
	require.NoError(t, err)
	assert.Nil(t, latest)

	attend(t, repo, g1, u, model.PartFirst, model.StatusAttending)
	rec2 := attend(t, repo, g2, u, model.PartSecond, model.StatusAttending)
	attend(t, repo, g3, u, model.PartFirst, model.StatusAbsent)

	latest, err = repo.Attendance.LatestAttendedDate(ctx, u.UserID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2024-02-09", latest.Format(model.DateLayout))

	require.NoError(t, repo.Attendance.UpdateStatus(ctx, rec2.AttendanceID, model.StatusAbsent))
	latest, err = repo.Attendance.LatestAttendedDate(ctx, u.UserID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2024-01-05", latest.Format(model.DateLayout))

	n, err := repo.Attendance.CountAttendingByUser(ctx, u.UserID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestAttendanceRepo_AttendeesAndCounts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	g := seedGroup(t, repo, "2024-01-05")
	leader := seedUser(t, repo, "lee", model.RoleLeader, model.GenderMale)
	admin := seedUser(t, repo, "ada", model.RoleAdmin, model.GenderFemale)
	m1 := seedUser(t, repo, "mia", model.RoleMember, model.GenderFemale)
	m2 := seedUser(t, repo, "max", model.RoleMember, model.GenderMale)

	attend(t, repo, g, leader, model.PartFirst, model.StatusAttending)
	attend(t, repo, g, admin, model.PartFirst, model.StatusAttending)
	attend(t, repo, g, m1, model.PartFirst, model.StatusAttending)
	attend(t, repo, g, m2, model.PartFirst, model.StatusAbsent)
	attend(t, repo, g, m1, model.PartSecond, model.StatusAttending)

	users, err := repo.Attendance.ListAttendees(ctx, g.GroupID, model.PartFirst)
	require.NoError(t, err)
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}
	assert.Equal(t, []string{"ada", "lee", "mia"}, names)

	rows, err := repo.Attendance.CountByGroups(ctx, []string{g.GroupID})
	require.NoError(t, err)
	counts := map[model.Part]map[model.Role]int64{}
	for _, r := range rows {
		if counts[r.Part] == nil {
			counts[r.Part] = map[model.Role]int64{}
		}
		counts[r.Part][r.Role] = r.Count
	}
	assert.EqualValues(t, 1, counts[model.PartFirst][model.RoleLeader])
	assert.EqualValues(t, 1, counts[model.PartFirst][model.RoleAdmin])
	assert.EqualValues(t, 1, counts[model.PartFirst][model.RoleMember])
	assert.EqualValues(t, 1, counts[model.PartSecond][model.RoleMember])

	ids, err := repo.Attendance.ListUserIDsByGroup(ctx, g.GroupID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{leader.UserID, admin.UserID, m1.UserID, m2.UserID}, ids)

	require.NoError(t, repo.Attendance.DeleteByGroup(ctx, g.GroupID))
	_, err = repo.Attendance.Get(ctx, g.GroupID, m1.UserID, model.PartFirst)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

// ═══════════════════════════════════════════════════════════
// Team
// ═══════════════════════════════════════════════════════════

func createTeam(t *testing.T, repo *repository.Repository, g *model.Group, part model.Part, number int, leader *model.User, members ...*model.User) *model.Team {
	t.Helper()
	ctx := context.Background()
	team := &model.Team{GroupID: g.GroupID, Part: part, Number: number}
	require.NoError(t, repo.Team.Create(ctx, team))

	rows := []model.TeamMember{{TeamID: team.TeamID, GroupID: g.GroupID, Part: part, UserID: leader.UserID, IsLeader: true}}
	for _, m := range members {
		rows = append(rows, model.TeamMember{TeamID: team.TeamID, GroupID: g.GroupID, Part: part, UserID: m.UserID})
	}
	require.NoError(t, repo.Team.BatchCreateMembers(ctx, rows))
	return team
}

func TestTeamRepo_ReplaceAndList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	g := seedGroup(t, repo, "2024-01-05")
	a := seedUser(t, repo, "a", model.RoleLeader, model.GenderMale)
	b := seedUser(t, repo, "b", model.RoleMember, model.GenderFemale)
	c := seedUser(t, repo, "c", model.RoleMember, model.GenderMale)

	createTeam(t, repo, g, model.PartFirst, 1, a, b)
	createTeam(t, repo, g, model.PartFirst, 2, c)
	createTeam(t, repo, g, model.PartSecond, 1, b, a, c)

	teams, err := repo.Team.ListByGroup(ctx, g.GroupID)
	require.NoError(t, err)
	require.Len(t, teams, 3)
	assert.Equal(t, model.PartFirst, teams[0].Part)
	assert.Equal(t, 1, teams[0].Number)
	require.Len(t, teams[0].Members, 2)
	assert.True(t, teams[0].Members[0].IsLeader)
	require.NotNil(t, teams[0].Members[0].User)
	assert.Equal(t, "a", teams[0].Members[0].User.Username)
	assert.Equal(t, model.PartSecond, teams[2].Part)

	// 同一场次内重复加入同一用户违反唯一约束
	err = repo.Team.BatchCreateMembers(ctx, []model.TeamMember{{
		TeamID: teams[1].TeamID, GroupID: g.GroupID, Part: model.PartFirst, UserID: a.UserID,
	}})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	err = repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Team.LockGroupPart(ctx, g.GroupID, model.PartFirst); err != nil {
			return err
		}
		return tx.Team.DeleteByGroupAndPart(ctx, g.GroupID, model.PartFirst)
	})
	require.NoError(t, err)

	teams, err = repo.Team.ListByGroup(ctx, g.GroupID)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, model.PartSecond, teams[0].Part)
}

func TestTeamRepo_FindMemberships(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	g := seedGroup(t, repo, "2024-01-05")
	a := seedUser(t, repo, "a", model.RoleLeader, model.GenderMale)
	b := seedUser(t, repo, "b", model.RoleMember, model.GenderFemale)

	second := createTeam(t, repo, g, model.PartSecond, 3, b, a)
	first := createTeam(t, repo, g, model.PartFirst, 1, a)

	ms, err := repo.Team.FindMemberships(ctx, g.GroupID, a.UserID)
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, first.TeamID, ms[0].TeamID)
	assert.True(t, ms[0].IsLeader)
	assert.Equal(t, second.TeamID, ms[1].TeamID)
	assert.Equal(t, 3, ms[1].Number)
	assert.False(t, ms[1].IsLeader)

	ms, err = repo.Team.FindMemberships(ctx, g.GroupID, uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, ms)
}

func TestTeamRepo_GroupIDsByUser(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	g1 := seedGroup(t, repo, "2024-01-05")
	g2 := seedGroup(t, repo, "2024-01-12")
	g3 := seedGroup(t, repo, "2024-01-19")
	a := seedUser(t, repo, "a", model.RoleLeader, model.GenderMale)
	b := seedUser(t, repo, "b", model.RoleMember, model.GenderFemale)

	// 同一聚会两个场次只返回一次
	createTeam(t, repo, g1, model.PartFirst, 1, a)
	createTeam(t, repo, g1, model.PartSecond, 1, a, b)
	createTeam(t, repo, g2, model.PartFirst, 1, a)
	createTeam(t, repo, g3, model.PartFirst, 1, b)

	ids, err := repo.Team.GroupIDsByUser(ctx, a.UserID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{g1.GroupID, g2.GroupID}, ids)

	ids, err = repo.Team.GroupIDsByUser(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

// ═══════════════════════════════════════════════════════════
// Transaction
// ═══════════════════════════════════════════════════════════

func TestTransaction_Rollback(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	boom := errors.New("boom")

	var created *model.Group
	err := repo.Transaction(ctx, func(tx *repository.Repository) error {
		d, _ := model.ParseDate("2024-06-01")
		created = &model.Group{Date: d}
		if err := tx.Group.Create(ctx, created); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.Group.GetByID(ctx, created.GroupID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound, "期望回滚后查不到聚会")
}

func TestTransaction_Commit(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	var created *model.Group
	err := repo.Transaction(ctx, func(tx *repository.Repository) error {
		d, _ := model.ParseDate("2024-06-01")
		created = &model.Group{Date: d}
		return tx.Group.Create(ctx, created)
	})
	require.NoError(t, err)

	found, err := repo.Group.GetByID(ctx, created.GroupID)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", found.DateString())
}
