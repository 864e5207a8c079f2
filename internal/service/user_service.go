package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Themath93/gather-management-app/internal/dto"
	"github.com/Themath93/gather-management-app/internal/model"
	"github.com/Themath93/gather-management-app/internal/repository"
	pkgerrors "github.com/Themath93/gather-management-app/pkg/errors"
)

// ── 用户模块业务错误 ──

var (
	ErrUsernameExists = pkgerrors.Conflict("用户名已存在")
	ErrEmailExists    = pkgerrors.Conflict("邮箱已被使用")
	ErrInvalidGender  = pkgerrors.Validation("性别无效，仅支持 male / female")
	ErrInvalidRole    = pkgerrors.Validation("角色无效，仅支持 leader / admin / member")
)

// UserService 用户业务接口
type UserService interface {
	Create(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserResponse, error)
	GetByID(ctx context.Context, id string) (*dto.UserResponse, error)
	List(ctx context.Context, req *dto.UserListRequest) ([]dto.UserResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateUserRequest) (*dto.UserResponse, error)
}

type userService struct {
	repo   *repository.Repository
	cache  *readCache
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, cache *readCache, logger *zap.Logger) UserService {
	return &userService{repo: repo, cache: cache, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *userService) Create(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserResponse, error) {
	gender := model.Gender(req.Gender)
	if !gender.IsValid() {
		return nil, ErrInvalidGender
	}
	role := model.RoleMember
	if req.Role != "" {
		role = model.Role(req.Role)
		if !role.IsValid() {
			return nil, ErrInvalidRole
		}
	}

	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// 检查用户名唯一性
	if _, err := s.repo.User.GetByUsername(ctx, username); err == nil {
		return nil, ErrUsernameExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// 检查邮箱唯一性
	if _, err := s.repo.User.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Gender:       gender,
		Interests:    req.Interests,
	}

	if err := s.repo.User.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameExists
		}
		s.logger.Error("创建用户失败", zap.Error(err))
		return nil, err
	}

	return toUserResponse(user), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *userService) GetByID(ctx context.Context, id string) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return toUserResponse(user), nil
}

// ────────────────────── List ──────────────────────

func (s *userService) List(ctx context.Context, req *dto.UserListRequest) ([]dto.UserResponse, int64, error) {
	users, total, err := s.repo.User.List(ctx, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出用户失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, *toUserResponse(&users[i]))
	}

	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *userService) Update(ctx context.Context, id string, req *dto.UpdateUserRequest) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	// 应用更新字段（仅更新非 nil 字段）
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		existing, err := s.repo.User.GetByEmail(ctx, email)
		if err == nil && existing.UserID != id {
			return nil, ErrEmailExists
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		user.Email = email
	}
	genderChanged := false
	if req.Gender != nil {
		g := model.Gender(*req.Gender)
		if !g.IsValid() {
			return nil, ErrInvalidGender
		}
		genderChanged = g != user.Gender
		user.Gender = g
	}
	if req.Interests != nil {
		user.Interests = *req.Interests
	}
	if req.Role != nil {
		r := model.Role(*req.Role)
		if !r.IsValid() {
			return nil, ErrInvalidRole
		}
		user.Role = r
	}

	if err := s.repo.User.UpdateProfile(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailExists
		}
		if !isBusinessError(err) {
			s.logger.Error("更新用户失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	// 分组缓存中带有成员性别
	if genderChanged {
		s.invalidateTeams(ctx, id)
	}

	return toUserResponse(user), nil
}

// ── 内部辅助方法 ──

func (s *userService) invalidateTeams(ctx context.Context, userID string) {
	groupIDs, err := s.repo.Team.GroupIDsByUser(ctx, userID)
	if err != nil {
		s.logger.Warn("查询用户分组失败，分组缓存未失效", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if len(groupIDs) == 0 {
		return
	}
	keys := make([]string, len(groupIDs))
	for i, gid := range groupIDs {
		keys[i] = teamsKey(gid)
	}
	s.cache.invalidate(ctx, keys...)
}

// toUserResponse 将 model.User 转换为 dto.UserResponse
func toUserResponse(user *model.User) *dto.UserResponse {
	var last *string
	if user.LastAttended != nil {
		s := user.LastAttended.Format(model.DateLayout)
		last = &s
	}
	return &dto.UserResponse{
		ID:              user.UserID,
		Username:        user.Username,
		Email:           user.Email,
		Role:            string(user.Role),
		Gender:          string(user.Gender),
		Interests:       user.Interests,
		AttendanceCount: user.AttendanceCount,
		LastAttended:    last,
	}
}
