package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Themath93/gather-management-app/internal/dto"
	"github.com/Themath93/gather-management-app/internal/model"
	"github.com/Themath93/gather-management-app/internal/service"
	"github.com/Themath93/gather-management-app/pkg/response"
)

// TeamHandler 分组模块 HTTP 处理器
type TeamHandler struct {
	teamSvc service.TeamService
}

// NewTeamHandler 创建 TeamHandler
func NewTeamHandler(teamSvc service.TeamService) *TeamHandler {
	return &TeamHandler{teamSvc: teamSvc}
}

// Shuffle 重新分组（整体替换该场次的分组）
// POST /api/v1/groups/:id/shuffle
func (h *TeamHandler) Shuffle(c *gin.Context) {
	var req dto.ShuffleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	part, ok := bindPart(c, req.Part)
	if !ok {
		return
	}
	size := req.TeamSize
	if size == 0 {
		size = h.teamSvc.DefaultTeamSize()
	}

	result, err := h.teamSvc.Shuffle(c.Request.Context(), c.Param("id"), part, size)
	if err != nil {
		h.handleTeamError(c, err)
		return
	}

	response.OK(c, result)
}

// GetTeams 聚会全部分组
// GET /api/v1/groups/:id/teams
func (h *TeamHandler) GetTeams(c *gin.Context) {
	teams, err := h.teamSvc.GetTeams(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleTeamError(c, err)
		return
	}

	response.OK(c, gin.H{"list": teams})
}

// GetMyTeam 查询用户所在分组；未指定 user_id 时取当前登录用户
// GET /api/v1/groups/:id/my-team?part=first
func (h *TeamHandler) GetMyTeam(c *gin.Context) {
	var req dto.MyTeamRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	var part model.Part
	if req.Part != "" {
		p, ok := bindPart(c, req.Part)
		if !ok {
			return
		}
		part = p
	}

	userID := req.UserID
	if userID == "" {
		id, ok := MustGetUserID(c)
		if !ok {
			return
		}
		userID = id
	}

	team, err := h.teamSvc.GetMyTeam(c.Request.Context(), c.Param("id"), userID, part)
	if err != nil {
		h.handleTeamError(c, err)
		return
	}

	response.OK(c, team)
}

// handleTeamError 统一处理分组模块业务错误
func (h *TeamHandler) handleTeamError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrGroupNotFound):
		response.NotFound(c, 30001, "聚会不存在")
	case errors.Is(err, service.ErrInvalidTeamSize):
		response.BadRequest(c, 32001, "每组人数必须为正整数")
	case errors.Is(err, service.ErrNoAttendees):
		response.BadRequest(c, 32002, "该场次没有出勤用户，无法分组")
	case errors.Is(err, service.ErrTeamNotAssigned):
		response.NotFound(c, 32003, "该用户尚未被分配到任何分组")
	case errors.Is(err, service.ErrInvalidPart):
		response.BadRequest(c, 31001, "场次无效，仅支持 first / second")
	default:
		handleKindError(c, err)
	}
}
