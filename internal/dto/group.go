package dto

// ── 聚会模块 DTO ──

// CreateGroupRequest 创建聚会请求
type CreateGroupRequest struct {
	Date string `json:"date" binding:"required"` // YYYY-MM-DD
}

// GroupResponse 聚会信息
type GroupResponse struct {
	ID   string `json:"id"`
	Date string `json:"date"`
}

// PartCount 单个场次的出勤人数统计
type PartCount struct {
	Total           int `json:"total"`
	LeadershipCount int `json:"leadership_count"`
	MemberCount     int `json:"member_count"`
}

// GroupSummaryResponse 聚会列表项（含各场次人数）
type GroupSummaryResponse struct {
	ID    string               `json:"id"`
	Date  string               `json:"date"`
	Parts map[string]PartCount `json:"parts"`
}

// AttendeeCountResponse 聚会出勤人数统计
// 按出勤记录计数：同一用户出席两个场次计两次
type AttendeeCountResponse struct {
	Total           int                  `json:"total"`
	LeadershipCount int                  `json:"leadership_count"`
	MemberCount     int                  `json:"member_count"`
	Parts           map[string]PartCount `json:"parts"`
}

// AttendeeListRequest 出勤名单查询参数
type AttendeeListRequest struct {
	Part string `form:"part" binding:"required"`
}

// ImportCalendarRequest 日历导入参数（文件上传时随表单提交）
type ImportCalendarRequest struct {
	URL  string `json:"url"  form:"url"`
	From string `json:"from" form:"from"` // YYYY-MM-DD，可选
	To   string `json:"to"   form:"to"`   // YYYY-MM-DD，可选
}

// ImportCalendarResponse 日历导入结果
type ImportCalendarResponse struct {
	Created []string `json:"created"`
	Skipped []string `json:"skipped"`
}
