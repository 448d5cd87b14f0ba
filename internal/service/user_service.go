package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"gorm.io/gorm"

	"github.com/LeeDev428/rarevault-e-comm/internal/apperr"
	"github.com/LeeDev428/rarevault-e-comm/internal/auth"
	"github.com/LeeDev428/rarevault-e-comm/internal/config"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/user"
)

// UserService 注册 / 登录 / 个人资料
type UserService struct {
	repo user.Repository
	jwt  *config.JWTConfig
}

// NewUserService 创建用户服务
func NewUserService(repo user.Repository, jwt *config.JWTConfig) *UserService {
	return &UserService{repo: repo, jwt: jwt}
}

func hashPassword(raw, salt string) string {
	h := sha256.Sum256([]byte(raw + salt))
	return hex.EncodeToString(h[:])
}

func newSalt() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Register 注册，role 只接受 user / seller
func (s *UserService) Register(ctx context.Context, username, email, password, role string) (*user.User, error) {
	if username == "" || email == "" || password == "" {
		return nil, apperr.New(apperr.KindValidation, "username, email and password are required")
	}
	if role == "" {
		role = user.RoleUser
	}
	if role != user.RoleUser && role != user.RoleSeller {
		return nil, apperr.Newf(apperr.KindValidation, "invalid role %q", role)
	}
	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return nil, apperr.New(apperr.KindConflict, "username already taken")
	}
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, apperr.New(apperr.KindConflict, "email already in use")
	}

	u := &user.User{
		Username: username,
		Email:    email,
		Role:     role,
		IsActive: true,
		Salt:     newSalt(),
	}
	u.Password = hashPassword(password, u.Salt)
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login 登录并返回 JWT
func (s *UserService) Login(ctx context.Context, username, password string) (string, *user.User, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, apperr.New(apperr.KindNotFound, "user not found")
		}
		return "", nil, err
	}
	if !u.IsActive {
		return "", nil, apperr.New(apperr.KindForbidden, "account is deactivated")
	}
	if hashPassword(password, u.Salt) != u.Password {
		return "", nil, apperr.New(apperr.KindValidation, "invalid password")
	}
	token, err := auth.GenerateToken(s.jwt, u.ID, u.Username, u.Role)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// Get 查询用户
func (s *UserService) Get(ctx context.Context, id int64) (*user.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "user not found")
		}
		return nil, err
	}
	return u, nil
}

// UpdateProfileRequest 资料部分更新
type UpdateProfileRequest struct {
	FirstName *string
	LastName  *string
	Email     *string
}

// UpdateProfile 更新资料，换邮箱时校验唯一
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req UpdateProfileRequest) (*user.User, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}
	if req.Email != nil && *req.Email != u.Email {
		if other, err := s.repo.GetByEmail(ctx, *req.Email); err == nil && other.ID != userID {
			return nil, apperr.New(apperr.KindConflict, "email already in use")
		}
		u.Email = *req.Email
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
