package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/vicinato/topic-sdk/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserService struct {
	*Service
	userDao       *models.UserDAO
	tokenService  *TokenService
	memberService *MemberService
	loginTokenTTL time.Duration
}

func NewUserService(s *Service, members *MemberService) *UserService {
	return &UserService{
		Service:       s,
		userDao:       models.NewUserDAO(s.DB),
		tokenService:  NewTokenService(s.RDB),
		memberService: members,
		loginTokenTTL: 7 * 24 * time.Hour,
	}
}

// --- types ---

type UserDTO struct {
	ID                 uint64    `json:"id"`
	UID                string    `json:"uid"`
	Username           string    `json:"username"`
	Nickname           string    `json:"nickname"`
	Avatar             string    `json:"avatar"`
	Email              string    `json:"email"`
	Role               string    `json:"role"`
	VerificationStatus string    `json:"verification_status"`
	CommitteeRole      string    `json:"committee_role,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type RegisterReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

type LoginReq struct {
	Account  string `json:"account"` // username/email
	Password string `json:"password"`
}

type UpdateUserReq struct {
	Nickname *string `json:"nickname"`
	Avatar   *string `json:"avatar"`
}

type UpdatePasswordReq struct {
	NewPassword string `json:"new_password"`
}

type SearchUsersReq struct {
	Keyword string `json:"keyword"`
	Limit   int    `json:"limit"`
	Offset  int    `json:"offset"`
}

type LoginResp struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

// --- 实现 ---

func toUserDTO(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:                 u.ID,
		UID:                u.UID,
		Username:           u.Username,
		Nickname:           u.Nickname,
		Avatar:             u.Avatar,
		Email:              u.Email,
		Role:               u.Role,
		VerificationStatus: u.VerificationStatus,
		CommitteeRole:      u.CommitteeRole,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

func normalizeAccount(s string) string {
	return strings.TrimSpace(s)
}

func normalizeEmail(s string) string {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "@") {
		s = strings.ToLower(s)
	}
	return s
}

// Register 注册（写库 + 按可见性补齐常驻话题成员）
func (s *UserService) Register(ctx context.Context, req RegisterReq) error {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return fmt.Errorf("输入账号")
	}
	password := strings.TrimSpace(req.Password)
	if password == "" {
		return fmt.Errorf("输入密码")
	}
	email := normalizeEmail(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("输入邮箱")
	}

	exists, err := s.userDao.ExistsByAccount(username, email)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("账号或邮箱已被使用")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	now := time.Now()
	user := &models.User{
		UID:       uuid.New().String(),
		Username:  username,
		Nickname:  strings.TrimSpace(req.Nickname),
		Password:  string(hash),
		Email:     email,
		Role:      models.PlatformRoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if user.Nickname == "" {
		user.Nickname = user.Username
	}

	if err := s.userDao.Create(user); err != nil {
		return err
	}

	// 新用户自动进公开/登录可见的常驻话题（尽力而为）
	if s.memberService != nil {
		if err := s.memberService.SyncAutoMembership(user.ID); err != nil {
			log.Printf("Register: sync auto membership failed: %v", err)
		}
	}
	return nil
}

// LoginWithToken 登录并写 Redis token，返回 token + 用户信息
func (s *UserService) LoginWithToken(ctx context.Context, req LoginReq) (*LoginResp, error) {
	acc := normalizeAccount(req.Account)
	if acc == "" {
		return nil, fmt.Errorf("需要账户")
	}
	password := strings.TrimSpace(req.Password)
	if password == "" {
		return nil, fmt.Errorf("需要密码")
	}

	u, err := s.userDao.FindByAccount(acc)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("账户或密码无效")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, fmt.Errorf("账户或密码无效")
	}

	resp := &LoginResp{User: *toUserDTO(u)}

	if s.RDB == nil {
		return resp, nil
	}

	token, err := s.tokenService.GenerateToken()
	if err != nil {
		return nil, err
	}
	if err := s.tokenService.StoreToken(ctx, token, u.ID, s.loginTokenTTL); err != nil {
		return nil, err
	}
	resp.Token = token
	return resp, nil
}

// GetUser 获取用户信息（脱敏）
func (s *UserService) GetUser(userID uint64) (*UserDTO, error) {
	u, err := s.userDao.FindByID(userID)
	if err != nil {
		return nil, err
	}
	return toUserDTO(u), nil
}

// UpdateUser 更新用户信息
func (s *UserService) UpdateUser(userID uint64, req UpdateUserReq) (*UserDTO, error) {
	updates := make(map[string]any)

	if req.Nickname != nil {
		updates["nickname"] = strings.TrimSpace(*req.Nickname)
	}
	if req.Avatar != nil {
		updates["avatar"] = strings.TrimSpace(*req.Avatar)
	}

	if err := s.userDao.UpdateFields(userID, updates); err != nil {
		return nil, err
	}
	return s.GetUser(userID)
}

// UpdatePassword 更新用户密码（上层自行做鉴权；这仅负责写库）
func (s *UserService) UpdatePassword(userID uint64, newPassword string) error {
	newPassword = strings.TrimSpace(newPassword)
	if newPassword == "" {
		return fmt.Errorf("输入新密码")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.userDao.UpdatePassword(userID, string(hash))
}

// SetVerificationStatus 平台管理员审核实名认证。
// 审核通过后按新状态补齐常驻话题成员行。
func (s *UserService) SetVerificationStatus(caller Caller, userID uint64, status string) (*UserDTO, error) {
	if !caller.Valid() {
		return nil, ErrUnauthenticated
	}
	switch status {
	case models.VerificationPending, models.VerificationApproved, models.VerificationRejected:
	default:
		return nil, validationErr("认证状态不正确")
	}

	role := caller.Role
	if role == "" {
		if u, err := s.userDao.FindByID(caller.UserID); err == nil {
			role = u.Role
		}
	}
	if role != models.PlatformRoleAdmin && role != models.PlatformRoleSuperAdmin {
		return nil, ErrPermissionDenied
	}

	if err := s.userDao.UpdateFields(userID, map[string]any{"verification_status": status}); err != nil {
		return nil, err
	}

	if status == models.VerificationApproved && s.memberService != nil {
		if err := s.memberService.SyncAutoMembership(userID); err != nil {
			log.Printf("SetVerificationStatus: sync auto membership failed: %v", err)
		}
	}
	return s.GetUser(userID)
}

// SearchUsers 按关键字搜索用户（username/nickname/uid），返回脱敏数据
func (s *UserService) SearchUsers(keyword string, excludeUserID uint64, limit, offset int) ([]UserDTO, error) {
	users, err := s.userDao.SearchUsers(keyword, excludeUserID, limit, offset)
	if err != nil {
		return nil, err
	}

	out := make([]UserDTO, 0, len(users))
	for i := range users {
		dto := toUserDTO(&users[i])
		if dto != nil {
			out = append(out, *dto)
		}
	}
	return out, nil
}
