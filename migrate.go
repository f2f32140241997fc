package topic_sdk

import (
	"log"

	"github.com/vicinato/topic-sdk/models"
)

// EnsureUniqueIndexes 补建旧库可能缺失的唯一索引。
// toggle 表态和惰性入座都依赖唯一索引兜底并发，没有它们语义会坏掉：
// - tp_message_reaction (message_id, user_id)
// - tp_topic_member (topic_id, user_id)
// AutoMigrate 对已存在的表不会追加唯一索引，所以这里单独检查一遍。
func (c *TopicEngine) EnsureUniqueIndexes() error {
	db := c.config.DB

	type target struct {
		model any
		index string
	}
	targets := []target{
		{&models.MessageReaction{}, "idx_msg_user"},
		{&models.TopicMember{}, "idx_topic_user"},
		{&models.TopicNotificationDelivery{}, "idx_user_event"},
	}

	for _, t := range targets {
		if db.Migrator().HasIndex(t.model, t.index) {
			continue
		}
		log.Printf("creating missing index %s...", t.index)
		if err := db.Migrator().CreateIndex(t.model, t.index); err != nil {
			return err
		}
	}
	return nil
}
