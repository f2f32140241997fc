package repository

import (
	"github.com/vicinato/topic-sdk/models"
	"gorm.io/gorm"
)

// MessageReactionDAO 封装 MessageReaction 相关的数据库操作。
// (message_id, user_id) 唯一索引是 toggle 语义的根基：DAO 层不做锁，
// 并发冲突由唯一索引兜底，service 层把重复插入降级为改表态。
type MessageReactionDAO struct {
	db *gorm.DB
}

func NewMessageReactionDAO(db *gorm.DB) *MessageReactionDAO {
	return &MessageReactionDAO{db: db}
}

// WithDB 用于在事务（tx）中复用 DAO
func (dao *MessageReactionDAO) WithDB(db *gorm.DB) *MessageReactionDAO {
	if db == nil {
		return dao
	}
	return &MessageReactionDAO{db: db}
}

// FindByMessageUser 取 (message, user) 的表态行；不存在时返回 gorm.ErrRecordNotFound。
func (dao *MessageReactionDAO) FindByMessageUser(messageID, userID uint64) (*models.MessageReaction, error) {
	var r models.MessageReaction
	err := dao.db.Where("message_id = ? AND user_id = ?", messageID, userID).First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Create 新增表态
func (dao *MessageReactionDAO) Create(r *models.MessageReaction) error {
	return dao.db.Create(r).Error
}

// DeleteByID 删除表态
func (dao *MessageReactionDAO) DeleteByID(id uint64) error {
	return dao.db.Delete(&models.MessageReaction{}, id).Error
}

// UpdateEmoji 原地换表态（一人一条，换 emoji 不是加行）
func (dao *MessageReactionDAO) UpdateEmoji(id uint64, emoji string) error {
	return dao.db.Model(&models.MessageReaction{}).
		Where("id = ?", id).
		Update("emoji", emoji).Error
}

// UpdateEmojiByMessageUser 按 (message, user) 换表态。
// 并发重复插入撞唯一索引后走这条路径：最后写入者获胜。
func (dao *MessageReactionDAO) UpdateEmojiByMessageUser(messageID, userID uint64, emoji string) error {
	return dao.db.Model(&models.MessageReaction{}).
		Where("message_id = ? AND user_id = ?", messageID, userID).
		Update("emoji", emoji).Error
}

// ListByMessageIDs 批量取多条消息的全部表态（消息列表拼装用）。
func (dao *MessageReactionDAO) ListByMessageIDs(messageIDs []uint64) (map[uint64][]models.MessageReaction, error) {
	out := make(map[uint64][]models.MessageReaction, len(messageIDs))
	if len(messageIDs) == 0 {
		return out, nil
	}
	var rows []models.MessageReaction
	err := dao.db.Where("message_id IN ?", messageIDs).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.MessageID] = append(out[r.MessageID], r)
	}
	return out, nil
}
