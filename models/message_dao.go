package models

import (
	"time"

	"gorm.io/gorm"
)

// TopicMessageDAO 封装 TopicMessage 相关的数据库操作
type TopicMessageDAO struct {
	db *gorm.DB
}

// NewTopicMessageDAO 创建 TopicMessageDAO 实例
func NewTopicMessageDAO(db *gorm.DB) *TopicMessageDAO {
	return &TopicMessageDAO{db: db}
}

// WithDB 用于在事务（tx）中复用 DAO
func (dao *TopicMessageDAO) WithDB(db *gorm.DB) *TopicMessageDAO {
	if db == nil {
		return dao
	}
	return &TopicMessageDAO{db: db}
}

// Create 创建消息
func (dao *TopicMessageDAO) Create(msg *TopicMessage) error {
	return dao.db.Create(msg).Error
}

// FindByID 根据ID查找消息（包含软删除的行，调用方自行判断 is_deleted）
func (dao *TopicMessageDAO) FindByID(id uint64) (*TopicMessage, error) {
	var msg TopicMessage
	err := dao.db.Where("id = ?", id).First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// FindVisibleByID 查找未删除的消息；可选限定 topicID（>0 时生效）。
func (dao *TopicMessageDAO) FindVisibleByID(id, topicID uint64) (*TopicMessage, error) {
	q := dao.db.Where("id = ? AND is_deleted = ?", id, false)
	if topicID > 0 {
		q = q.Where("topic_id = ?", topicID)
	}
	var msg TopicMessage
	if err := q.First(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// FindCreatedAt 只取某条消息的 created_at（游标解析用）。
func (dao *TopicMessageDAO) FindCreatedAt(id uint64) (time.Time, error) {
	var msg TopicMessage
	err := dao.db.Select("created_at").Where("id = ?", id).First(&msg).Error
	if err != nil {
		return time.Time{}, err
	}
	return msg.CreatedAt, nil
}

// FindWindowByTopic 取话题内未删除消息的一个窗口：
// created_at 倒序（最新在前），before/after 为严格比较的时间边界（零值跳过）。
// limit 由上层传（通常是 pageSize+1，用于判断 hasMore）。
func (dao *TopicMessageDAO) FindWindowByTopic(topicID uint64, before, after time.Time, limit int) ([]TopicMessage, error) {
	q := dao.db.Where("topic_id = ? AND is_deleted = ?", topicID, false)
	if !before.IsZero() {
		q = q.Where("created_at < ?", before)
	}
	if !after.IsZero() {
		q = q.Where("created_at > ?", after)
	}

	var messages []TopicMessage
	err := q.Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

// FindLatestInTopic 话题内最新一条未删除消息；没有消息时返回 gorm.ErrRecordNotFound。
func (dao *TopicMessageDAO) FindLatestInTopic(topicID uint64) (*TopicMessage, error) {
	var msg TopicMessage
	err := dao.db.Where("topic_id = ? AND is_deleted = ?", topicID, false).
		Order("created_at DESC").
		First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// FindPreviewsByIDs 批量取回复预览（仅未删除的行，只取预览需要的列）。
// 被回复的消息若已被软删除则不会出现在结果里——reply_to_id 仍保留，
// 由消费端渲染成“已删除消息”占位。
func (dao *TopicMessageDAO) FindPreviewsByIDs(ids []uint64) (map[uint64]TopicMessage, error) {
	out := make(map[uint64]TopicMessage, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []TopicMessage
	err := dao.db.Select("id, topic_id, author_id, content, type, created_at").
		Where("id IN ? AND is_deleted = ?", ids, false).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ID] = r
	}
	return out, nil
}

// UpdateContentEdited 更新消息内容并置编辑标记
func (dao *TopicMessageDAO) UpdateContentEdited(id uint64, content string, now time.Time) error {
	return dao.db.Model(&TopicMessage{}).Where("id = ?", id).
		Updates(map[string]any{
			"content":   content,
			"is_edited": true,
			"edited_at": now,
		}).Error
}

// SoftDelete 软删除消息：行保留（回复链引用、审计），读路径负责过滤。
func (dao *TopicMessageDAO) SoftDelete(id uint64, now time.Time) error {
	return dao.db.Model(&TopicMessage{}).Where("id = ?", id).
		Updates(map[string]any{
			"is_deleted": true,
			"deleted_at": now,
		}).Error
}
