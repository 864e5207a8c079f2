package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Themath93/gather-management-app/internal/service"
	pkgerrors "github.com/Themath93/gather-management-app/pkg/errors"
	"github.com/Themath93/gather-management-app/pkg/response"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	User       *UserHandler
	Group      *GroupHandler
	Attendance *AttendanceHandler
	Team       *TeamHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth),
		User:       NewUserHandler(svc.User),
		Group:      NewGroupHandler(svc.Group, svc.Calendar),
		Attendance: NewAttendanceHandler(svc.Attendance),
		Team:       NewTeamHandler(svc.Team),
		Export:     NewExportHandler(svc.Export),
	}
}

// handleKindError 按错误类别兜底映射，未知错误返回 500
func handleKindError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 10007, "数据已被其他操作修改，请刷新后重试")
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.NotFound(c, 10404, err.Error())
	case errors.Is(err, pkgerrors.ErrConflict):
		response.Conflict(c, 10409, err.Error())
	case errors.Is(err, pkgerrors.ErrValidation):
		response.BadRequest(c, 10001, err.Error())
	default:
		response.InternalError(c)
	}
}
