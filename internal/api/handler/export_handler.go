package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/Themath93/gather-management-app/internal/service"
	"github.com/Themath93/gather-management-app/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportTeams 导出聚会分组
// GET /api/v1/groups/:id/export
func (h *ExportHandler) ExportTeams(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportTeams(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrGroupNotFound):
		response.NotFound(c, 30001, "聚会不存在")
	case errors.Is(err, service.ErrExportNoTeams):
		response.NotFound(c, 16101, "该聚会尚未生成分组")
	default:
		response.InternalError(c)
	}
}
