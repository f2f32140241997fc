package service

import "github.com/vicinato/topic-sdk/models"

// Caller 当前调用者身份。由鉴权适配层（middleware + AuthService）解析后
// 显式传入每个操作——服务层不读任何环境态/全局态的“当前用户”。
type Caller struct {
	UserID uint64
	// Role 平台角色（user/admin/super_admin）。可为空，
	// 为空时需要平台角色判断的操作会自己回库查。
	Role string
}

// Valid 身份是否可用
func (c Caller) Valid() bool {
	return c.UserID > 0
}

// IsPlatformAdmin 是否平台管理员（admin/super_admin）
func (c Caller) IsPlatformAdmin() bool {
	return c.Role == models.PlatformRoleAdmin || c.Role == models.PlatformRoleSuperAdmin
}
