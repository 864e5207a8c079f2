package dto

// ── 分组模块 DTO ──

// ShuffleRequest 打乱分组请求；team_size 省略时使用配置默认值
type ShuffleRequest struct {
	Part     string `json:"part"      binding:"required"`
	TeamSize int    `json:"team_size" binding:"omitempty,min=1"`
}

// TeamMemberResponse 分组成员
type TeamMemberResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Gender   string `json:"gender,omitempty"`
	IsLeader bool   `json:"is_leader"`
}

// TeamResponse 分组信息
type TeamResponse struct {
	TeamID  string               `json:"team_id"`
	Part    string               `json:"part"`
	Number  int                  `json:"number"`
	Members []TeamMemberResponse `json:"members"`
}

// ShuffleResponse 打乱分组结果
type ShuffleResponse struct {
	TeamCount      int            `json:"team_count"`
	TotalAttendees int            `json:"total_attendees"`
	Teams          []TeamResponse `json:"teams"`
}

// MyTeamRequest 查询本人分组参数
type MyTeamRequest struct {
	Part   string `form:"part"`
	UserID string `form:"user_id"` // 为空时取当前登录用户
}

// MyTeamResponse 本人所在分组
type MyTeamResponse struct {
	TeamID   string `json:"team_id"`
	Part     string `json:"part"`
	Number   int    `json:"number"`
	IsLeader bool   `json:"is_leader"`
}
