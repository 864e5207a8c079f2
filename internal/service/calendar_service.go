package service

import (
	"context"
	"errors"
	"io"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/Themath93/gather-management-app/internal/dto"
	"github.com/Themath93/gather-management-app/internal/model"
	"github.com/Themath93/gather-management-app/internal/repository"
	pkgerrors "github.com/Themath93/gather-management-app/pkg/errors"
)

var (
	ErrInvalidCalendar = pkgerrors.Validation("日历文件解析失败")
	ErrInvalidRange    = pkgerrors.Validation("导入区间无效")
)

// CalendarService 聚会日历订阅与导入
type CalendarService interface {
	// MeetingCalendar 每场聚会输出一个全天 VEVENT
	MeetingCalendar(ctx context.Context) (string, error)
	// ImportMeetings 将 ICS 中的日期批量建为聚会，已存在的日期跳过
	ImportMeetings(ctx context.Context, reader io.Reader, req *dto.ImportCalendarRequest) (*dto.ImportCalendarResponse, error)
}

type calendarService struct {
	repo   *repository.Repository
	groups GroupService
	logger *zap.Logger
}

func NewCalendarService(repo *repository.Repository, groups GroupService, logger *zap.Logger) CalendarService {
	return &calendarService{repo: repo, groups: groups, logger: logger}
}

func (s *calendarService) MeetingCalendar(ctx context.Context) (string, error) {
	groups, err := s.repo.Group.List(ctx)
	if err != nil {
		s.logger.Error("列出聚会失败", zap.Error(err))
		return "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//gather//meetings//KO")
	cal.SetXWRCalName("Gather")

	stamp := time.Now().UTC()
	for _, g := range groups {
		evt := cal.AddEvent(g.GroupID + "@gather")
		evt.SetDtStampTime(stamp)
		evt.SetCreatedTime(g.CreatedAt)
		evt.SetSummary("Gather " + g.DateString())
		evt.SetAllDayStartAt(g.Date)
		evt.SetAllDayEndAt(g.Date.AddDate(0, 0, 1))
	}

	return cal.Serialize(), nil
}

func (s *calendarService) ImportMeetings(ctx context.Context, reader io.Reader, req *dto.ImportCalendarRequest) (*dto.ImportCalendarResponse, error) {
	from, to, err := parseImportRange(req)
	if err != nil {
		return nil, err
	}

	dates, err := ParseMeetingDates(reader, from, to)
	if err != nil {
		return nil, err
	}

	resp := &dto.ImportCalendarResponse{Created: []string{}, Skipped: []string{}}
	for _, d := range dates {
		day := d.Format(model.DateLayout)
		_, err := s.groups.Create(ctx, &dto.CreateGroupRequest{Date: day})
		switch {
		case err == nil:
			resp.Created = append(resp.Created, day)
		case errors.Is(err, ErrGroupDateExists):
			resp.Skipped = append(resp.Skipped, day)
		default:
			return nil, err
		}
	}

	s.logger.Info("日历导入完成",
		zap.Int("created", len(resp.Created)),
		zap.Int("skipped", len(resp.Skipped)),
	)
	return resp, nil
}

func parseImportRange(req *dto.ImportCalendarRequest) (time.Time, time.Time, error) {
	var from, to time.Time
	if req == nil {
		return from, to, nil
	}
	var err error
	if req.From != "" {
		if from, err = model.ParseDate(req.From); err != nil {
			return from, to, ErrInvalidDate
		}
	}
	if req.To != "" {
		if to, err = model.ParseDate(req.To); err != nil {
			return from, to, ErrInvalidDate
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return from, to, ErrInvalidRange
	}
	return from, to, nil
}
