package service

import (
	"math/rand/v2"

	"github.com/Themath93/gather-management-app/internal/model"
)

// BuiltTeam 分组算法的输出；Members[0] 为组长
type BuiltTeam struct {
	Number  int
	Members []model.User

	teamID string // 持久化后回填
}

// Leader 返回组长
func (t *BuiltTeam) Leader() model.User { return t.Members[0] }

// BuildTeams 将出勤用户划分为若干分组（纯函数，不访问存储）
//
//   - 分组数 = max(1, ceil(N/teamSize))，各组人数相差不超过 1
//   - 男女分别打乱后轮流发牌，女生从男生发完的下一组继续，保证性别分布均衡
//   - 具备组长资格（leader/admin）的用户按随机顺序依次担任第 1..k 组组长，
//     不在该组时与该组一名普通成员（优先同性别）互换位置
//   - 没有候选组长的分组打乱后取首位为组长
func BuildTeams(attendees []model.User, teamSize int, rng *rand.Rand) ([]BuiltTeam, error) {
	if teamSize <= 0 {
		return nil, ErrInvalidTeamSize
	}
	n := len(attendees)
	if n == 0 {
		return nil, ErrNoAttendees
	}

	teamCount := (n + teamSize - 1) / teamSize
	if teamCount < 1 {
		teamCount = 1
	}
	teams := make([][]model.User, teamCount)

	// ── 按性别发牌 ──
	var males, females []model.User
	for _, u := range attendees {
		if u.Gender == model.GenderFemale {
			females = append(females, u)
		} else {
			males = append(males, u)
		}
	}
	cursor := 0
	for _, pool := range [][]model.User{males, females} {
		rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		for _, u := range pool {
			idx := cursor % teamCount
			teams[idx] = append(teams[idx], u)
			cursor++
		}
	}

	// ── 指派组长 ──
	var candidates []model.User
	for _, u := range attendees {
		if u.Role.IsLeadership() {
			candidates = append(candidates, u)
		}
	}
	rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })

	for i := 0; i < teamCount; i++ {
		if i < len(candidates) {
			placeLeader(teams, i, candidates[i].UserID)
			continue
		}
		members := teams[i]
		rng.Shuffle(len(members), func(a, b int) { members[a], members[b] = members[b], members[a] })
	}

	result := make([]BuiltTeam, teamCount)
	for i, members := range teams {
		result[i] = BuiltTeam{Number: i + 1, Members: members}
	}
	return result, nil
}

// placeLeader 使 userID 成为第 target 组组长（移到该组首位）
// 已指派组长的分组均在 target 之前，其成员不会被换出
func placeLeader(teams [][]model.User, target int, userID string) {
	src, pos := locate(teams, userID)
	if src == target {
		teams[target][0], teams[target][pos] = teams[target][pos], teams[target][0]
		return
	}

	cand := teams[src][pos]
	swap := 0
	for k, m := range teams[target] {
		if m.Gender == cand.Gender {
			swap = k
			break
		}
	}

	teams[src][pos] = teams[target][swap]
	teams[target][swap] = cand
	teams[target][0], teams[target][swap] = teams[target][swap], teams[target][0]
}

func locate(teams [][]model.User, userID string) (team, pos int) {
	for i, members := range teams {
		for j, m := range members {
			if m.UserID == userID {
				return i, j
			}
		}
	}
	return -1, -1
}
