package repository

import (
	"time"

	"github.com/vicinato/topic-sdk/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TopicMemberDAO 封装 TopicMember 相关的数据库操作
//
// 约定：
// - 只做“数据访问”（CRUD/查询封装），不做业务编排（权限、通知等）。
// - 事务边界应由 service 控制；如需在事务中执行，请使用 WithDB(tx)。
type TopicMemberDAO struct {
	db *gorm.DB
}

func NewTopicMemberDAO(db *gorm.DB) *TopicMemberDAO {
	return &TopicMemberDAO{db: db}
}

// WithDB 用于在事务（tx）中复用 DAO
func (dao *TopicMemberDAO) WithDB(db *gorm.DB) *TopicMemberDAO {
	if db == nil {
		return dao
	}
	return &TopicMemberDAO{db: db}
}

// FindByTopicUser 取某用户在某话题的成员行
func (dao *TopicMemberDAO) FindByTopicUser(topicID, userID uint64) (*models.TopicMember, error) {
	var m models.TopicMember
	err := dao.db.Where("topic_id = ? AND user_id = ?", topicID, userID).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListByTopic 话题成员列表（按加入顺序）
func (dao *TopicMemberDAO) ListByTopic(topicID uint64) ([]models.TopicMember, error) {
	var members []models.TopicMember
	err := dao.db.Where("topic_id = ?", topicID).
		Order("created_at ASC").
		Find(&members).Error
	return members, err
}

// ListTopicIDsByUser 用户已加入的话题 ID 列表
func (dao *TopicMemberDAO) ListTopicIDsByUser(userID uint64) ([]uint64, error) {
	var ids []uint64
	err := dao.db.Model(&models.TopicMember{}).
		Where("user_id = ?", userID).
		Pluck("topic_id", &ids).Error
	return ids, err
}

// ListMemberUserIDs 话题全部成员的 user_id（用于未读自增/通知投递）
func (dao *TopicMemberDAO) ListMemberUserIDs(topicID uint64) ([]uint64, error) {
	var ids []uint64
	err := dao.db.Model(&models.TopicMember{}).
		Where("topic_id = ?", topicID).
		Pluck("user_id", &ids).Error
	return ids, err
}

// UpdateReadState 把成员行的已读游标推到 latest，并清零未读。
// 返回受影响行数：0 表示成员行不存在（上层据此走惰性创建）。
func (dao *TopicMemberDAO) UpdateReadState(topicID, userID uint64, lastReadMsgID *uint64, now time.Time) (int64, error) {
	res := dao.db.Model(&models.TopicMember{}).
		Where("topic_id = ? AND user_id = ?", topicID, userID).
		Updates(map[string]any{
			"unread_count":         0,
			"last_read_at":         now,
			"last_read_message_id": lastReadMsgID,
			"updated_at":           now,
		})
	return res.RowsAffected, res.Error
}

// EnsureMembership 幂等创建成员行：已存在则什么都不做（OnConflict DoNothing）。
// 并发的重复加入在唯一索引 (topic_id, user_id) 上静默汇合，不报错。
func (dao *TopicMemberDAO) EnsureMembership(m *models.TopicMember) error {
	return dao.db.Clauses(clause.OnConflict{DoNothing: true}).Create(m).Error
}

// Add 显式添加成员（重复加入由上层按唯一索引冲突区分提示）
func (dao *TopicMemberDAO) Add(m *models.TopicMember) error {
	return dao.db.Create(m).Error
}

// Remove 移除成员
func (dao *TopicMemberDAO) Remove(topicID, userID uint64) error {
	return dao.db.Where("topic_id = ? AND user_id = ?", topicID, userID).
		Delete(&models.TopicMember{}).Error
}

// UpdateMute 设置免打扰标记
func (dao *TopicMemberDAO) UpdateMute(topicID, userID uint64, muted bool) error {
	return dao.db.Model(&models.TopicMember{}).
		Where("topic_id = ? AND user_id = ?", topicID, userID).
		Update("is_muted", muted).Error
}

// UpdateRole 更新成员角色
func (dao *TopicMemberDAO) UpdateRole(topicID, userID uint64, role string) error {
	return dao.db.Model(&models.TopicMember{}).
		Where("topic_id = ? AND user_id = ?", topicID, userID).
		Update("role", role).Error
}

// IncrementUnread 给话题内除 exceptUserID 外的所有成员未读数 +1。
// 尽力维护：unread_count 是缓存，调用方可忽略返回的错误。
func (dao *TopicMemberDAO) IncrementUnread(topicID, exceptUserID uint64) error {
	return dao.db.Model(&models.TopicMember{}).
		Where("topic_id = ? AND user_id <> ?", topicID, exceptUserID).
		Update("unread_count", gorm.Expr("unread_count + ?", 1)).Error
}

// UnreadSnapshot 用户全部成员行的未读快照：topic_id -> unread_count。
func (dao *TopicMemberDAO) UnreadSnapshot(userID uint64) (map[uint64]int64, error) {
	if userID == 0 {
		return map[uint64]int64{}, nil
	}

	type row struct {
		TopicID     uint64
		UnreadCount int64
	}
	var rows []row
	if err := dao.db.Model(&models.TopicMember{}).
		Select("topic_id, unread_count").
		Where("user_id = ?", userID).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[uint64]int64, len(rows))
	for _, r := range rows {
		if r.TopicID == 0 {
			continue
		}
		out[r.TopicID] = r.UnreadCount
	}
	return out, nil
}
