package model

import (
	"fmt"
	"strings"
)

// ── 角色 ──

// Role 用户角色
type Role string

const (
	RoleLeader Role = "leader"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// IsValid 是否为已知角色
func (r Role) IsValid() bool {
	switch r {
	case RoleLeader, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// IsLeadership leader 与 admin 具备担任组长资格
func (r Role) IsLeadership() bool {
	return r == RoleLeader || r == RoleAdmin
}

// ── 性别 ──

// Gender 性别，分组时用于均衡
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

func (g Gender) IsValid() bool {
	return g == GenderMale || g == GenderFemale
}

// ── 场次 ──

// Part 聚会场次（一场聚会分为上下两部分）
type Part string

const (
	PartFirst  Part = "first"
	PartSecond Part = "second"
)

// Parts 按展示顺序返回全部场次
func Parts() []Part { return []Part{PartFirst, PartSecond} }

func (p Part) IsValid() bool {
	return p == PartFirst || p == PartSecond
}

// ParsePart 解析场次，兼容历史写法 FIRST/SECOND/1부/2부
func ParsePart(s string) (Part, error) {
	switch strings.TrimSpace(s) {
	case "first", "FIRST", "1부":
		return PartFirst, nil
	case "second", "SECOND", "2부":
		return PartSecond, nil
	}
	return "", fmt.Errorf("未知场次 %q", s)
}

// ── 出勤状态 ──

// AttendanceStatus 出勤状态
type AttendanceStatus string

const (
	StatusAttending AttendanceStatus = "attending"
	StatusAbsent    AttendanceStatus = "absent"
)

func (s AttendanceStatus) IsValid() bool {
	return s == StatusAttending || s == StatusAbsent
}
