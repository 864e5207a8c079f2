package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Themath93/gather-management-app/internal/model"
	"github.com/Themath93/gather-management-app/internal/repository"
	pkgerrors "github.com/Themath93/gather-management-app/pkg/errors"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoTeams      = pkgerrors.NotFound("该聚会尚未生成分组")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportTeams 导出聚会分组为 Excel，每个场次一个 Sheet
	ExportTeams(ctx context.Context, groupID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportTeams 导出分组为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "first" / "second"（无分组的场次不生成 Sheet）
//   - 标题行：聚会日期 + 场次
//   - 表头：组号 | 用户名 | 性别 | 组长
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportTeams(ctx context.Context, groupID string) (*bytes.Buffer, string, error) {
	group, err := s.repo.Group.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrGroupNotFound
		}
		s.logger.Error("查询聚会失败", zap.Error(err))
		return nil, "", err
	}

	teams, err := s.repo.Team.ListByGroup(ctx, groupID)
	if err != nil {
		s.logger.Error("查询分组失败", zap.Error(err))
		return nil, "", err
	}
	if len(teams) == 0 {
		return nil, "", ErrExportNoTeams
	}

	byPart := make(map[model.Part][]model.Team)
	for _, t := range teams {
		byPart[t.Part] = append(byPart[t.Part], t)
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	first := true
	for _, part := range model.Parts() {
		partTeams, ok := byPart[part]
		if !ok {
			continue
		}
		sheetName := string(part)
		idx, err := f.NewSheet(sheetName)
		if err != nil {
			s.logger.Error("创建 Sheet 失败", zap.Error(err))
			return nil, "", ErrExportGenerateFail
		}
		if first {
			f.SetActiveSheet(idx)
			first = false
		}

		f.SetColWidth(sheetName, "A", "A", 8)
		f.SetColWidth(sheetName, "B", "B", 22)
		f.SetColWidth(sheetName, "C", "D", 10)

		// 标题行
		f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s %s", group.DateString(), part))
		f.MergeCell(sheetName, "A1", "D1")
		f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

		// 表头
		f.SetCellValue(sheetName, "A2", "组号")
		f.SetCellValue(sheetName, "B2", "用户名")
		f.SetCellValue(sheetName, "C2", "性别")
		f.SetCellValue(sheetName, "D2", "组长")

		row := 3
		for _, t := range partTeams {
			for _, m := range t.Members {
				username, gender := m.UserID, ""
				if m.User != nil {
					username = m.User.Username
					gender = string(m.User.Gender)
				}
				leader := ""
				if m.IsLeader {
					leader = "✓"
				}
				f.SetCellValue(sheetName, cell("A", row), t.Number)
				f.SetCellValue(sheetName, cell("B", row), username)
				f.SetCellValue(sheetName, cell("C", row), gender)
				f.SetCellValue(sheetName, cell("D", row), leader)
				row++
			}
		}
	}

	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("teams_%s.xlsx", group.DateString())
	return buf, filename, nil
}

// ── 辅助函数 ──

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
