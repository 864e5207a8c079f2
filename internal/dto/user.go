package dto

// ── 用户模块 DTO ──

// CreateUserRequest 创建用户请求
type CreateUserRequest struct {
	Username  string `json:"username"  binding:"required,min=2,max=50"`
	Email     string `json:"email"     binding:"required,email"`
	Password  string `json:"password"  binding:"required,min=8,max=72"`
	Gender    string `json:"gender"    binding:"required,oneof=male female"`
	Role      string `json:"role"      binding:"omitempty,oneof=leader admin member"`
	Interests string `json:"interests" binding:"omitempty,max=500"`
}

// UserListRequest 用户列表查询参数
type UserListRequest struct {
	PaginationRequest
}

// UpdateUserRequest 更新用户信息请求（仅更新非 nil 字段）
type UpdateUserRequest struct {
	Email     *string `json:"email"     binding:"omitempty,email"`
	Gender    *string `json:"gender"    binding:"omitempty,oneof=male female"`
	Interests *string `json:"interests" binding:"omitempty,max=500"`
	Role      *string `json:"role"      binding:"omitempty,oneof=leader admin member"`
}

// UserResponse 用户信息响应（脱敏）
type UserResponse struct {
	ID              string  `json:"id"`
	Username        string  `json:"username"`
	Email           string  `json:"email"`
	Role            string  `json:"role"`
	Gender          string  `json:"gender"`
	Interests       string  `json:"interests"`
	AttendanceCount int     `json:"attendance_count"`
	LastAttended    *string `json:"last_attended"`
}

// UserBrief 名单中的用户简要信息
type UserBrief struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Gender   string `json:"gender"`
}
