package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Themath93/gather-management-app/internal/model"
	"github.com/Themath93/gather-management-app/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// bindPart 解析场次参数，失败时写入 400
func bindPart(c *gin.Context, raw string) (model.Part, bool) {
	part, err := model.ParsePart(raw)
	if err != nil {
		response.BadRequest(c, 31001, "场次无效，仅支持 first / second")
		return "", false
	}
	return part, true
}
