package dto

// ── 出勤模块 DTO ──

// SetAttendanceRequest 设置出勤状态请求
type SetAttendanceRequest struct {
	GroupID string `json:"group_id" binding:"required"`
	UserID  string `json:"user_id"  binding:"required"`
	Part    string `json:"part"     binding:"required"`
	Status  string `json:"status"   binding:"required"`
}

// GetAttendanceRequest 查询出勤状态参数
type GetAttendanceRequest struct {
	GroupID string `form:"group_id" binding:"required"`
	UserID  string `form:"user_id"  binding:"required"`
	Part    string `form:"part"     binding:"required"`
}

// AttendanceStatusResponse 出勤状态；无记录时 status 为 "unset"
type AttendanceStatusResponse struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`
	Part    string `json:"part"`
	Status  string `json:"status"`
}

// StatusUnset 无出勤记录时的状态文本
const StatusUnset = "unset"
