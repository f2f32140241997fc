package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	prefix = "tp_"
)

// 平台级用户角色
const (
	PlatformRoleUser       = "user"
	PlatformRoleAdmin      = "admin"
	PlatformRoleSuperAdmin = "super_admin"
)

// 认证状态
const (
	VerificationPending  = "pending"
	VerificationApproved = "approved"
	VerificationRejected = "rejected"
)

// User 用户表（身份适配层 + 消息作者摘要）
type User struct {
	ID                 uint64 `gorm:"primarykey"`
	UID                string `gorm:"size:36;uniqueIndex;not null"`      // 对外用户 ID
	Username           string `gorm:"size:50;uniqueIndex;not null"`      // 用户名
	Nickname           string `gorm:"size:100;not null"`                 // 昵称
	Password           string `gorm:"size:255;not null"`                 // 密码（bcrypt）
	Avatar             string `gorm:"size:500"`                          // 头像
	Email              string `gorm:"size:100;uniqueIndex;default:null"` // 邮箱
	Role               string `gorm:"size:20;default:user"`              // 平台角色: user/admin/super_admin
	VerificationStatus string `gorm:"size:20;default:pending"`           // 认证状态: pending/approved/rejected
	CommitteeRole      string `gorm:"size:50;default:null"`              // 委员会职务（有值即视为理事）
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          gorm.DeletedAt `gorm:"index"`

	// 关联关系
	Topics   []TopicMember  `gorm:"foreignKey:UserID"`
	Messages []TopicMessage `gorm:"foreignKey:AuthorID"`
}

func (User) TableName() string {
	return prefix + "user"
}

// 话题可见性
const (
	VisibilityPublic        = "public"        // 所有人可见
	VisibilityAuthenticated = "authenticated" // 登录可见
	VisibilityVerified      = "verified"      // 认证住户可见
	VisibilityMembersOnly   = "members_only"  // 仅成员可见（不自动加入）
	VisibilityBoardOnly     = "board_only"    // 仅理事会
	VisibilityAdminsOnly    = "admins_only"   // 仅管理员
)

// 话题写权限
const (
	WriteAllViewers  = "all_viewers"
	WriteVerified    = "verified"
	WriteMembersOnly = "members_only"
	WriteAdminsOnly  = "admins_only"
)

// Topic 话题（频道）表
type Topic struct {
	ID uint64 `gorm:"primarykey"`

	// Slug 对外话题标识（URL 友好），唯一；
	// 不参与外键关联，避免被 GORM 推断成 bigint。
	Slug string `gorm:"column:slug;type:varchar(64);uniqueIndex;not null"`

	Name            string `gorm:"size:100;not null"`           // 话题名称
	Description     string `gorm:"size:500"`                    // 描述
	Icon            string `gorm:"size:50"`                     // 图标
	Color           string `gorm:"size:20"`                     // 主题色
	Visibility      string `gorm:"size:20;default:public"`      // 可见性策略
	WritePermission string `gorm:"size:20;default:all_viewers"` // 写权限策略
	IsDefault       bool   `gorm:"default:false"`               // 新用户默认加入
	IsArchived      bool   `gorm:"default:false"`               // 归档（只读）
	IsHidden        bool   `gorm:"default:false"`               // 隐藏（列表不展示）
	SortOrder       int    `gorm:"default:0"`                   // 排序
	MessageCount    int64  `gorm:"default:0"`                   // 消息计数（冗余）
	MemberCount     int64  `gorm:"default:0"`                   // 成员计数（冗余）

	LastMessageID *uint64    `gorm:"index"` // 最后一条消息 ID（冗余，用于排序）
	LastMessageAt *time.Time `gorm:"index"` // 最后一条消息时间

	CreatedBy uint64 `gorm:"index"` // 创建者（管理端动作，引擎不创建话题）
	CreatedAt time.Time
	UpdatedAt time.Time

	// 关联关系
	Members  []TopicMember  `gorm:"foreignKey:TopicID;references:ID"`
	Messages []TopicMessage `gorm:"foreignKey:TopicID;references:ID"`
}

func (Topic) TableName() string {
	return prefix + "topic"
}

// 消息类型
const (
	MessageTypeText     = "text"
	MessageTypeSystem   = "system"
	MessageTypeAutoPost = "auto_post"
	MessageTypeImage    = "image"
	MessageTypeVoice    = "voice"
)

// TopicMessage 话题消息表。
// 软删除用显式的 is_deleted/deleted_at 字段而不是 gorm.DeletedAt：
// 被删除的消息必须对查询层保持可见（回复链引用、审计），读路径自行过滤。
type TopicMessage struct {
	ID        uint64         `gorm:"primarykey"`
	UID       string         `gorm:"size:36;uniqueIndex;not null"`     // 对外消息 ID（UUID）
	TopicID   uint64         `gorm:"index:idx_topic_created;not null"` // 话题 ID
	AuthorID  uint64         `gorm:"index;not null"`                   // 作者 ID
	ReplyToID *uint64        `gorm:"index"`                            // 回复的消息 ID（单层）
	Type      string         `gorm:"size:20;default:text"`             // 消息类型: text/system/auto_post/image/voice
	Content   string         `gorm:"type:text;not null"`               // 消息内容
	Metadata  datatypes.JSON `gorm:"column:metadata;type:json"`        // 结构化元数据（图片/语音/@提及）
	IsEdited  bool           `gorm:"default:false"`                    // 是否被编辑过
	EditedAt  *time.Time     // 编辑时间
	IsDeleted bool           `gorm:"default:false;index"` // 软删除标记
	DeletedAt *time.Time     // 删除时间
	CreatedAt time.Time      `gorm:"index:idx_topic_created"` // 排序键
	UpdatedAt time.Time

	// 关联关系
	Topic   Topic         `gorm:"foreignKey:TopicID;references:ID"`
	Author  User          `gorm:"foreignKey:AuthorID"`
	ReplyTo *TopicMessage `gorm:"foreignKey:ReplyToID"`
}

func (TopicMessage) TableName() string {
	return prefix + "topic_message"
}

// BeforeCreate 自动生成对外消息 UID
func (m *TopicMessage) BeforeCreate(tx *gorm.DB) error {
	if m.UID == "" {
		m.UID = uuid.New().String()
	}
	return nil
}

// MessageReaction 消息表态表。
// (message_id, user_id) 唯一：每人每条消息至多一个表态，toggle 语义靠它成立。
type MessageReaction struct {
	ID        uint64 `gorm:"primarykey"`
	MessageID uint64 `gorm:"index:idx_msg_user,unique;not null"` // 消息 ID
	UserID    uint64 `gorm:"index:idx_msg_user,unique;not null"` // 用户 ID
	Emoji     string `gorm:"size:16;not null"`                   // emoji 短字符串
	CreatedAt time.Time
	UpdatedAt time.Time

	// 关联关系
	Message TopicMessage `gorm:"foreignKey:MessageID"`
	User    User         `gorm:"foreignKey:UserID"`
}

func (MessageReaction) TableName() string {
	return prefix + "message_reaction"
}

// 话题成员角色
const (
	MemberRoleViewer    = "viewer"
	MemberRoleWriter    = "writer"
	MemberRoleModerator = "moderator"
	MemberRoleAdmin     = "admin"
)

// TopicMember 话题成员表（角色 + 已读状态）。
// (topic_id, user_id) 唯一；标记已读时若不存在会被惰性创建（role=writer）。
// unread_count 是缓存不是事实来源：发消息时自增、标记已读时清零，允许漂移。
type TopicMember struct {
	ID                uint64     `gorm:"primarykey"`
	TopicID           uint64     `gorm:"index:idx_topic_user,unique;not null"` // 话题 ID
	UserID            uint64     `gorm:"index:idx_topic_user,unique;not null"` // 用户 ID
	Role              string     `gorm:"size:20;default:writer"`               // 角色: viewer/writer/moderator/admin
	IsMuted           bool       `gorm:"default:false"`                        // 免打扰
	UnreadCount       int64      `gorm:"default:0"`                            // 未读数（尽力维护）
	LastReadAt        *time.Time // 最后已读时间
	LastReadMessageID *uint64    `gorm:"index"` // 最后已读消息 ID
	AddedBy           uint64     // 添加者（0 表示自动加入）
	CreatedAt         time.Time
	UpdatedAt         time.Time

	// 关联关系
	Topic Topic `gorm:"foreignKey:TopicID;references:ID"`
	User  User  `gorm:"foreignKey:UserID"`
}

func (TopicMember) TableName() string {
	return prefix + "topic_member"
}

// TopicNotification 话题内操作通知事件（事件只存一份）
// 用于：@提及、消息被管理员删除等需要离线可见的事件。
//
// 事件与投递分离：TopicNotificationDelivery 记录“某用户收到了某事件(未读/已读)”，
// 事件 payload 不会因为成员多而重复存多份。
type TopicNotification struct {
	ID        uint64         `gorm:"primarykey"`
	TopicID   uint64         `gorm:"index;not null"`
	ActorID   uint64         `gorm:"index;not null"`
	EventType string         `gorm:"size:64;index;not null"`
	Payload   datatypes.JSON `gorm:"type:json"`
	CreatedAt time.Time      `gorm:"index"`

	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (TopicNotification) TableName() string { return prefix + "topic_notification" }

// TopicNotificationDelivery 用户投递表（每个用户一条，用于未读/已读与离线拉取）
// 唯一索引 (user_id, event_id) 用于幂等。
type TopicNotificationDelivery struct {
	ID      uint64 `gorm:"primarykey"`
	UserID  uint64 `gorm:"index:idx_user_created,priority:1;not null;uniqueIndex:idx_user_event"`
	EventID uint64 `gorm:"not null;uniqueIndex:idx_user_event"`
	TopicID uint64 `gorm:"index;not null"`

	IsRead bool `gorm:"default:false;index"`
	ReadAt *time.Time

	CreatedAt time.Time      `gorm:"index:idx_user_created,priority:2"`
	DeletedAt gorm.DeletedAt `gorm:"index"`

	// 关联（用于查询 preload/join）
	Event TopicNotification `gorm:"foreignKey:EventID"`
}

func (TopicNotificationDelivery) TableName() string { return prefix + "topic_notification_delivery" }
