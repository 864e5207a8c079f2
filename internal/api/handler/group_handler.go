package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Themath93/gather-management-app/internal/dto"
	"github.com/Themath93/gather-management-app/internal/service"
	"github.com/Themath93/gather-management-app/pkg/response"
)

// GroupHandler 聚会模块 HTTP 处理器
type GroupHandler struct {
	groupSvc    service.GroupService
	calendarSvc service.CalendarService
}

// NewGroupHandler 创建 GroupHandler
func NewGroupHandler(groupSvc service.GroupService, calendarSvc service.CalendarService) *GroupHandler {
	return &GroupHandler{groupSvc: groupSvc, calendarSvc: calendarSvc}
}

// CreateGroup 创建聚会
// POST /api/v1/groups
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req dto.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	group, err := h.groupSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleGroupError(c, err)
		return
	}

	response.Created(c, group)
}

// ListGroups 聚会列表（按日期升序，含各场次人数）
// GET /api/v1/groups
func (h *GroupHandler) ListGroups(c *gin.Context) {
	groups, err := h.groupSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": groups})
}

// DeleteGroup 删除聚会
// DELETE /api/v1/groups/:id
func (h *GroupHandler) DeleteGroup(c *gin.Context) {
	if err := h.groupSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.handleGroupError(c, err)
		return
	}

	response.OK(c, nil)
}

// GetAttendeeCounts 出勤人数统计
// GET /api/v1/groups/:id/attendee-count
func (h *GroupHandler) GetAttendeeCounts(c *gin.Context) {
	counts, err := h.groupSvc.GetAttendeeCounts(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleGroupError(c, err)
		return
	}

	response.OK(c, counts)
}

// ListAttendees 出勤名单
// GET /api/v1/groups/:id/attendees?part=first
func (h *GroupHandler) ListAttendees(c *gin.Context) {
	var req dto.AttendeeListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "part 不能为空")
		return
	}
	part, ok := bindPart(c, req.Part)
	if !ok {
		return
	}

	users, err := h.groupSvc.ListAttendees(c.Request.Context(), c.Param("id"), part)
	if err != nil {
		h.handleGroupError(c, err)
		return
	}

	response.OK(c, gin.H{"list": users})
}

// Calendar 聚会日历订阅
// GET /api/v1/groups/calendar.ics
func (h *GroupHandler) Calendar(c *gin.Context) {
	body, err := h.calendarSvc.MeetingCalendar(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	c.Header("Content-Disposition", "inline; filename=gather.ics")
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}

// ImportCalendar 从 ICS 文件或订阅 URL 批量创建聚会
// POST /api/v1/groups/import
// multipart: file + from/to，或 JSON: {url, from, to}
func (h *GroupHandler) ImportCalendar(c *gin.Context) {
	var req dto.ImportCalendarRequest

	// 尝试文件上传方式
	file, _, err := c.Request.FormFile("file")
	if err == nil {
		defer file.Close()
		req.From = c.PostForm("from")
		req.To = c.PostForm("to")
		h.importCalendar(c, file, &req)
		return
	}

	// URL 方式
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		response.BadRequest(c, 30004, "请上传 ICS 文件或提供 ICS URL")
		return
	}
	body, err := service.FetchICSContent(req.URL)
	if err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 30005, "ICS URL 获取失败", err.Error())
		return
	}
	defer body.Close()
	h.importCalendar(c, body, &req)
}

func (h *GroupHandler) importCalendar(c *gin.Context, r io.Reader, req *dto.ImportCalendarRequest) {
	resp, err := h.calendarSvc.ImportMeetings(c.Request.Context(), r, req)
	if err != nil {
		h.handleGroupError(c, err)
		return
	}
	response.Created(c, resp)
}

// handleGroupError 统一处理聚会模块业务错误
func (h *GroupHandler) handleGroupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrGroupNotFound):
		response.NotFound(c, 30001, "聚会不存在")
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 30002, "日期格式无效，应为 YYYY-MM-DD")
	case errors.Is(err, service.ErrGroupDateExists):
		response.Conflict(c, 30003, "该日期已存在聚会")
	case errors.Is(err, service.ErrInvalidPart):
		response.BadRequest(c, 31001, "场次无效，仅支持 first / second")
	case errors.Is(err, service.ErrInvalidCalendar):
		response.BadRequest(c, 30006, "日历文件解析失败")
	case errors.Is(err, service.ErrInvalidRange):
		response.BadRequest(c, 30007, "导入区间无效")
	default:
		handleKindError(c, err)
	}
}
