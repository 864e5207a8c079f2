package service

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/Themath93/gather-management-app/internal/model"
)

// ── ICS 聚会日期导入 ──────────────────────────────────────────
//
// 将外部日历（RFC 5545）中的 VEVENT 展开为聚会日期：
//   - DTSTART 按本地时区取日期
//   - RRULE 支持 DAILY / WEEKLY / MONTHLY，INTERVAL / COUNT / UNTIL
//   - EXDATE 排除对应日期
//   - 结果去重并按日期升序
// ─────────────────────────────────────────────────────────────

const (
	icsMaxFileSize  = 5 * 1024 * 1024 // 5MB
	icsFetchTimeout = 30 * time.Second
	meetingTimezone = "Asia/Seoul"

	// 无 COUNT/UNTIL 且未限定区间时的展开上限
	maxMeetingOccurrences = 520
)

// FetchICSContent 从 URL 获取 ICS 内容
func FetchICSContent(rawURL string) (io.ReadCloser, error) {
	// webcal:// → https://
	u := rawURL
	if strings.HasPrefix(u, "webcal://") {
		u = "https://" + strings.TrimPrefix(u, "webcal://")
	}

	client := &http.Client{Timeout: icsFetchTimeout}
	resp, err := client.Get(u)
	if err != nil {
		return nil, fmt.Errorf("获取 ICS 失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("获取 ICS 失败: HTTP %d", resp.StatusCode)
	}
	return struct {
		io.Reader
		io.Closer
	}{
		Reader: io.LimitReader(resp.Body, icsMaxFileSize),
		Closer: resp.Body,
	}, nil
}

// ParseMeetingDates 解析 ICS 内容并展开为聚会日期（UTC 零点）
// from/to 为零值时对应一侧不设限
func ParseMeetingDates(reader io.Reader, from, to time.Time) ([]time.Time, error) {
	cal, err := ics.ParseCalendar(io.LimitReader(reader, icsMaxFileSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCalendar, err)
	}

	loc := meetingLocation()
	if !from.IsZero() {
		from = model.TruncateDate(from)
	}
	if !to.IsZero() {
		to = model.TruncateDate(to)
	}

	seen := make(map[string]time.Time)
	for _, evt := range cal.Events() {
		for _, d := range expandEvent(evt, from, to, loc) {
			seen[d.Format(model.DateLayout)] = d
		}
	}

	dates := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// expandEvent 根据 RRULE / EXDATE / 单次事件计算日期列表
func expandEvent(evt *ics.VEvent, from, to time.Time, loc *time.Location) []time.Time {
	dtStart, err := parseICSDateTime(evt, ics.ComponentPropertyDtStart, loc)
	if err != nil {
		return nil
	}
	inRange := func(d time.Time) bool {
		return (from.IsZero() || !d.Before(from)) && (to.IsZero() || !d.After(to))
	}

	rruleProp := evt.GetProperty(ics.ComponentPropertyRrule)
	if rruleProp == nil {
		d := localDate(dtStart)
		if inRange(d) {
			return []time.Time{d}
		}
		return nil
	}

	rule := parseRRule(rruleProp.Value)
	step, ok := rule.step()
	if !ok {
		// 不支持的频率只取首次
		d := localDate(dtStart)
		if inRange(d) {
			return []time.Time{d}
		}
		return nil
	}

	exDates := parseExDates(evt, loc)
	var until time.Time
	if !rule.until.IsZero() {
		until = localDate(rule.until.In(loc))
	}

	var dates []time.Time
	current := dtStart
	for n := 0; ; n++ {
		if rule.count > 0 && n >= rule.count {
			break
		}
		if rule.count == 0 && until.IsZero() && to.IsZero() && n >= maxMeetingOccurrences {
			break
		}
		d := localDate(current)
		if !until.IsZero() && d.After(until) {
			break
		}
		if !to.IsZero() && d.After(to) {
			break
		}
		// EXDATE 的实例仍计入 COUNT
		if inRange(d) && !exDates[d.Format("20060102")] {
			dates = append(dates, d)
		}
		current = step(current)
	}
	return dates
}

// rruleParams RRULE 解析结果
type rruleParams struct {
	freq     string
	interval int
	count    int
	until    time.Time
}

// step 返回按频率推进一次的函数
func (r rruleParams) step() (func(time.Time) time.Time, bool) {
	interval := r.interval
	if interval < 1 {
		interval = 1
	}
	switch r.freq {
	case "DAILY":
		return func(t time.Time) time.Time { return t.AddDate(0, 0, interval) }, true
	case "WEEKLY":
		return func(t time.Time) time.Time { return t.AddDate(0, 0, 7*interval) }, true
	case "MONTHLY":
		return func(t time.Time) time.Time { return t.AddDate(0, interval, 0) }, true
	}
	return nil, false
}

// parseRRule 解析 RRULE 字符串（如 FREQ=WEEKLY;COUNT=16;INTERVAL=1）
func parseRRule(value string) rruleParams {
	r := rruleParams{interval: 1}
	for _, part := range strings.Split(value, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToUpper(kv[0]) {
		case "FREQ":
			r.freq = strings.ToUpper(kv[1])
		case "INTERVAL":
			fmt.Sscanf(kv[1], "%d", &r.interval)
		case "COUNT":
			fmt.Sscanf(kv[1], "%d", &r.count)
		case "UNTIL":
			t, err := time.Parse("20060102T150405Z", kv[1])
			if err != nil {
				t, _ = time.Parse("20060102", kv[1])
			}
			r.until = t
		}
	}
	return r
}

// parseExDates 解析事件中所有 EXDATE（支持逗号分隔的多值）
func parseExDates(evt *ics.VEvent, loc *time.Location) map[string]bool {
	exDates := make(map[string]bool)
	for _, prop := range evt.Properties {
		if prop.IANAToken != string(ics.ComponentPropertyExdate) {
			continue
		}
		for _, v := range strings.Split(prop.Value, ",") {
			v = strings.TrimSpace(v)
			if t, err := time.Parse("20060102T150405Z", v); err == nil {
				exDates[t.In(loc).Format("20060102")] = true
				continue
			}
			if t, err := time.Parse("20060102T150405", v); err == nil {
				exDates[t.Format("20060102")] = true
				continue
			}
			if t, err := time.Parse("20060102", v); err == nil {
				exDates[t.Format("20060102")] = true
			}
		}
	}
	return exDates
}

// parseICSDateTime 从 VEVENT 中解析日期时间属性
func parseICSDateTime(evt *ics.VEvent, propName ics.ComponentProperty, loc *time.Location) (time.Time, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, fmt.Errorf("missing property %s", propName)
	}
	val := prop.Value

	formats := []string{
		"20060102T150405Z",
		"20060102T150405",
		"20060102",
	}

	tzid := ""
	for k, v := range prop.ICalParameters {
		if strings.ToUpper(k) == "TZID" && len(v) > 0 {
			tzid = v[0]
		}
	}

	for _, layout := range formats {
		t, err := time.Parse(layout, val)
		if err != nil {
			continue
		}
		if strings.HasSuffix(layout, "Z") {
			return t.In(loc), nil
		}
		if tzid != "" {
			if tzLoc, err := time.LoadLocation(tzid); err == nil {
				return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, tzLoc).In(loc), nil
			}
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
	}

	return time.Time{}, fmt.Errorf("无法解析日期: %s", val)
}

// ── 辅助函数 ──

func meetingLocation() *time.Location {
	loc, err := time.LoadLocation(meetingTimezone)
	if err != nil {
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}

// localDate 取本地日历日期，转为与 Group.Date 一致的 UTC 零点
func localDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
