package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Themath93/gather-management-app/internal/dto"
	"github.com/Themath93/gather-management-app/internal/model"
	"github.com/Themath93/gather-management-app/internal/service"
	"github.com/Themath93/gather-management-app/pkg/response"
)

// AttendanceHandler 出勤模块 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc}
}

// SetStatus 设置出勤状态
// PUT /api/v1/attendance
func (h *AttendanceHandler) SetStatus(c *gin.Context) {
	var req dto.SetAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	part, ok := bindPart(c, req.Part)
	if !ok {
		return
	}

	status := model.AttendanceStatus(req.Status)
	if err := h.attendanceSvc.SetStatus(c.Request.Context(), req.GroupID, req.UserID, part, status); err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, dto.AttendanceStatusResponse{
		GroupID: req.GroupID,
		UserID:  req.UserID,
		Part:    string(part),
		Status:  string(status),
	})
}

// GetStatus 查询出勤状态
// GET /api/v1/attendance?group_id=&user_id=&part=
func (h *AttendanceHandler) GetStatus(c *gin.Context) {
	var req dto.GetAttendanceRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	part, ok := bindPart(c, req.Part)
	if !ok {
		return
	}

	status, found, err := h.attendanceSvc.GetStatus(c.Request.Context(), req.GroupID, req.UserID, part)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	text := dto.StatusUnset
	if found {
		text = string(status)
	}
	response.OK(c, dto.AttendanceStatusResponse{
		GroupID: req.GroupID,
		UserID:  req.UserID,
		Part:    string(part),
		Status:  text,
	})
}

// handleAttendanceError 统一处理出勤模块业务错误
func (h *AttendanceHandler) handleAttendanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrGroupNotFound):
		response.NotFound(c, 30001, "聚会不存在")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 20001, "用户不存在")
	case errors.Is(err, service.ErrInvalidPart):
		response.BadRequest(c, 31001, "场次无效，仅支持 first / second")
	case errors.Is(err, service.ErrInvalidStatus):
		response.BadRequest(c, 31002, "出勤状态无效，仅支持 attending / absent")
	default:
		handleKindError(c, err)
	}
}
