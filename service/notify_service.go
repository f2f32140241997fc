package service

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/vicinato/topic-sdk/models"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"
)

// NotifyService 统一处理话题内事件通知（@提及、管理删除、成员变动等）。
// 约定：事件 + 投递同事务落库，客户端通过 HTTP 拉取；引擎不做实时推送。
type NotifyService struct {
	*Service
}

func NewNotifyService(s *Service) *NotifyService {
	return &NotifyService{Service: s}
}

// PublishTopicEvent 创建一条话题事件，并投递给 recipients。
// 操作者本人永远不收到自己触发的事件；recipients 去重后逐人投递，
// 重复投递由 (user_id, event_id) 唯一索引 + OnConflict DoNothing 幂等吸收。
func (s *NotifyService) PublishTopicEvent(topicID, actorID uint64, eventType string, payload any, recipients []uint64) (*models.TopicNotification, error) {
	if topicID == 0 {
		return nil, errors.New("topic_id is required")
	}
	if actorID == 0 {
		return nil, errors.New("actor_id is required")
	}
	if eventType == "" {
		return nil, errors.New("event_type is required")
	}

	var pl datatypes.JSON
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		pl = b
	}

	now := time.Now()

	// 事件 + 投递同事务，确保拉取端一定能看到完整投递。
	tx := s.DB.Begin()
	defer tx.Rollback()

	evt := &models.TopicNotification{
		TopicID:   topicID,
		ActorID:   actorID,
		EventType: eventType,
		Payload:   pl,
		CreatedAt: now,
	}
	if err := tx.Create(evt).Error; err != nil {
		return nil, err
	}

	// 去重 + 排除操作者本人
	uniq := make(map[uint64]struct{}, len(recipients))
	clean := make([]uint64, 0, len(recipients))
	for _, uid := range recipients {
		if uid == 0 || uid == actorID {
			continue
		}
		if _, ok := uniq[uid]; ok {
			continue
		}
		uniq[uid] = struct{}{}
		clean = append(clean, uid)
	}

	rows := make([]models.TopicNotificationDelivery, 0, len(clean))
	for _, uid := range clean {
		rows = append(rows, models.TopicNotificationDelivery{
			UserID:    uid,
			EventID:   evt.ID,
			TopicID:   topicID,
			IsRead:    false,
			CreatedAt: now,
		})
	}
	if len(rows) > 0 {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return evt, nil
}

// NotificationDTO HTTP 返回结构
// ID 是 delivery_id，作为游标分页的主键；Event* 字段来自 TopicNotification。
type NotificationDTO struct {
	ID        uint64         `json:"id"` // delivery_id
	EventID   uint64         `json:"event_id"`
	TopicID   uint64         `json:"topic_id"`
	ActorID   uint64         `json:"actor_id"`
	EventType string         `json:"event_type"`
	Payload   datatypes.JSON `json:"payload,omitempty"`
	IsRead    bool           `json:"is_read"`
	CreatedAt time.Time      `json:"created_at"`
}

// ListUserNotifications 拉取用户通知（按 delivery id 倒序）
// - sinceDays: 近 N 天（默认 7）
// - cursor: 分页游标（传 0 表示从最新开始；否则取 id < cursor）
func (s *NotifyService) ListUserNotifications(userID uint64, sinceDays int, cursor uint64, limit int, topicID *uint64, unreadOnly bool) ([]NotificationDTO, uint64, error) {
	if userID == 0 {
		return nil, 0, errors.New("user_id is required")
	}
	if sinceDays <= 0 {
		sinceDays = 7
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	since := time.Now().Add(-time.Duration(sinceDays) * 24 * time.Hour)

	q := s.DB.Model(&models.TopicNotificationDelivery{}).
		Where("user_id = ? AND created_at >= ?", userID, since)
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}
	if topicID != nil && *topicID > 0 {
		q = q.Where("topic_id = ?", *topicID)
	}
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}

	var rows []models.TopicNotificationDelivery
	if err := q.Preload("Event").Order("id desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	out := make([]NotificationDTO, 0, len(rows))
	var nextCursor uint64
	for _, r := range rows {
		out = append(out, NotificationDTO{
			ID:        r.ID,
			EventID:   r.EventID,
			TopicID:   r.TopicID,
			ActorID:   r.Event.ActorID,
			EventType: r.Event.EventType,
			Payload:   r.Event.Payload,
			IsRead:    r.IsRead,
			CreatedAt: r.CreatedAt,
		})
		nextCursor = r.ID
	}

	return out, nextCursor, nil
}

// MarkReadByIDs 批量标记已读
func (s *NotifyService) MarkReadByIDs(userID uint64, ids []uint64) error {
	if userID == 0 {
		return errors.New("user_id is required")
	}
	if len(ids) == 0 {
		return nil
	}
	now := time.Now()
	return s.DB.Model(&models.TopicNotificationDelivery{}).
		Where("user_id = ? AND id IN ?", userID, ids).
		Updates(map[string]any{"is_read": true, "read_at": &now}).Error
}
