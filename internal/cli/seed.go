package cli

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"

	"github.com/Themath93/gather-management-app/internal/dto"
	"github.com/Themath93/gather-management-app/internal/model"
	"github.com/Themath93/gather-management-app/internal/repository"
	pkgerrors "github.com/Themath93/gather-management-app/pkg/errors"
)

// NewSeedCommand 导入测试数据
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "导入测试数据（用户、出勤）",
	}
	cmd.AddCommand(newSeedUsersCommand(rootOpts))
	cmd.AddCommand(newSeedAttendanceCommand(rootOpts))
	return cmd
}

// ── seed users ──

type seedUsersOptions struct {
	Leaders int
	Admins  int
	Members int
	Seed    uint64
}

func newSeedUsersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &seedUsersOptions{}

	cmd := &cobra.Command{
		Use:   "users",
		Short: "生成随机用户名单",
		Long: `按角色生成用户：邮箱为 leaderN / adminN / userN @example.com，
密码分别为 leaderpass / adminpass / userpass。已存在的用户名或邮箱会被跳过。

Example:
  gatherctl seed users --admins 8 --members 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			roster := generateRoster(newRand(opts.Seed), opts.Leaders, opts.Admins, opts.Members)
			created, skipped := 0, 0
			for i := range roster {
				_, err := a.svc.User.Create(cmd.Context(), &roster[i])
				switch {
				case err == nil:
					created++
				case errors.Is(err, pkgerrors.ErrConflict):
					skipped++
				default:
					return fmt.Errorf("创建用户 %s 失败: %w", roster[i].Username, err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "users: %d created, %d skipped\n", created, skipped)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Leaders, "leaders", 1, "leader 人数")
	cmd.Flags().IntVar(&opts.Admins, "admins", 8, "admin 人数")
	cmd.Flags().IntVar(&opts.Members, "members", 50, "member 人数")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "随机种子（0 表示按当前时间）")
	return cmd
}

var (
	lastNames       = []string{"김", "이", "박", "최", "정", "강", "조", "윤", "장", "임", "한", "오", "서", "신", "권"}
	maleFirstNames  = []string{"민준", "서준", "도윤", "예준", "시우", "하준", "지후", "준서", "건우", "우진", "현우", "지호", "윤우", "준우", "유준"}
	femaleFirstName = []string{"서연", "지우", "서윤", "하은", "지민", "수아", "지아", "지안", "하윤", "윤서", "채원", "예은", "다은", "민서", "소윤"}
	interestPool    = []string{
		"독서", "운동", "코딩", "영화", "음악", "요리", "여행", "사진", "등산", "캠핑",
		"드라이브", "게임", "보드게임", "패션", "인테리어", "반려동물", "재테크", "명상", "글쓰기", "블로그",
		"뜨개질", "그림", "영어회화", "스쿠버다이빙", "테니스", "클라이밍",
	}
)

// generateRoster 生成互不重名的用户；姓名组合用尽后追加序号
func generateRoster(rng *rand.Rand, leaders, admins, members int) []dto.CreateUserRequest {
	used := make(map[string]bool)
	var roster []dto.CreateUserRequest

	add := func(role model.Role, gender model.Gender, email, password string) {
		roster = append(roster, dto.CreateUserRequest{
			Username:  uniqueName(rng, gender, used),
			Email:     email,
			Password:  password,
			Gender:    string(gender),
			Role:      string(role),
			Interests: randomInterests(rng),
		})
	}

	for i := 1; i <= leaders; i++ {
		add(model.RoleLeader, model.GenderMale, fmt.Sprintf("leader%d@example.com", i), "leaderpass")
	}
	for i := 1; i <= admins; i++ {
		add(model.RoleAdmin, randomGender(rng), fmt.Sprintf("admin%d@example.com", i), "adminpass")
	}
	for i := 1; i <= members; i++ {
		add(model.RoleMember, randomGender(rng), fmt.Sprintf("user%d@example.com", i), "userpass")
	}
	return roster
}

func randomGender(rng *rand.Rand) model.Gender {
	if rng.IntN(2) == 0 {
		return model.GenderMale
	}
	return model.GenderFemale
}

func uniqueName(rng *rand.Rand, gender model.Gender, used map[string]bool) string {
	firsts := maleFirstNames
	if gender == model.GenderFemale {
		firsts = femaleFirstName
	}
	for attempt := 0; attempt < 64; attempt++ {
		name := lastNames[rng.IntN(len(lastNames))] + firsts[rng.IntN(len(firsts))]
		if !used[name] {
			used[name] = true
			return name
		}
	}
	base := lastNames[rng.IntN(len(lastNames))] + firsts[rng.IntN(len(firsts))]
	for n := 2; ; n++ {
		name := fmt.Sprintf("%s%d", base, n)
		if !used[name] {
			used[name] = true
			return name
		}
	}
}

func randomInterests(rng *rand.Rand) string {
	idx := rng.Perm(len(interestPool))[:2]
	return interestPool[idx[0]] + "," + interestPool[idx[1]]
}

// ── seed attendance ──

type seedAttendanceOptions struct {
	GroupID string
	Date    string
	Admins  int
	Members int
	Part    string
	Seed    uint64
}

func newSeedAttendanceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &seedAttendanceOptions{}

	cmd := &cobra.Command{
		Use:   "attendance",
		Short: "为聚会随机登记出勤",
		Long: `从 leader/admin 与 member 中各随机抽取若干人登记为出勤，场次随机（或由 --part 指定）。
出勤通过出勤台账写入，用户的出勤次数与最近出勤日期同步更新。

Example:
  gatherctl seed attendance --date 2024-01-05 --admins 5 --members 40`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var fixed model.Part
			if opts.Part != "" {
				p, err := model.ParsePart(opts.Part)
				if err != nil {
					return err
				}
				fixed = p
			}

			a, err := bootstrap(rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			groupID, err := a.resolveGroup(ctx, opts.GroupID, opts.Date, true)
			if err != nil {
				return err
			}

			users, err := allUsers(ctx, a.repo)
			if err != nil {
				return err
			}

			picks := pickAttendees(newRand(opts.Seed), users, opts.Admins, opts.Members, fixed)
			leadership := 0
			for _, p := range picks {
				if err := a.svc.Attendance.SetStatus(ctx, groupID, p.user.UserID, p.part, model.StatusAttending); err != nil {
					return fmt.Errorf("登记出勤失败 (%s): %w", p.user.Username, err)
				}
				if p.user.Role.IsLeadership() {
					leadership++
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "attendance: %d leadership, %d members for group %s\n",
				leadership, len(picks)-leadership, groupID)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.GroupID, "group-id", "", "聚会 ID")
	cmd.Flags().StringVar(&opts.Date, "date", "", "聚会日期 YYYY-MM-DD（不存在时自动创建）")
	cmd.Flags().IntVar(&opts.Admins, "admins", 5, "抽取的 leader/admin 人数")
	cmd.Flags().IntVar(&opts.Members, "members", 40, "抽取的 member 人数")
	cmd.Flags().StringVar(&opts.Part, "part", "", "固定场次 first/second（默认随机）")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "随机种子（0 表示按当前时间）")
	return cmd
}

type attendancePick struct {
	user model.User
	part model.Part
}

// pickAttendees 不放回抽样；人数不足时取全部
func pickAttendees(rng *rand.Rand, users []model.User, admins, members int, fixed model.Part) []attendancePick {
	var leaders, regular []model.User
	for _, u := range users {
		if u.Role.IsLeadership() {
			leaders = append(leaders, u)
		} else {
			regular = append(regular, u)
		}
	}

	var picks []attendancePick
	sample := func(pool []model.User, k int) {
		if k > len(pool) {
			k = len(pool)
		}
		for _, i := range rng.Perm(len(pool))[:k] {
			part := fixed
			if part == "" {
				part = model.Parts()[rng.IntN(2)]
			}
			picks = append(picks, attendancePick{user: pool[i], part: part})
		}
	}
	sample(leaders, admins)
	sample(regular, members)
	return picks
}

// allUsers 分页读取全部用户
func allUsers(ctx context.Context, repo *repository.Repository) ([]model.User, error) {
	const pageSize = 200
	var all []model.User
	for offset := 0; ; offset += pageSize {
		page, _, err := repo.User.List(ctx, offset, pageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed>>17|1))
}
