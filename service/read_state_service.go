package service

import (
	"errors"
	"time"

	"github.com/vicinato/topic-sdk/models"
	"github.com/vicinato/topic-sdk/repository"
	"gorm.io/gorm"
)

type ReadStateService struct {
	*Service
	messageDAO *models.TopicMessageDAO
	memberDAO  *repository.TopicMemberDAO
}

func NewReadStateService(s *Service) *ReadStateService {
	return &ReadStateService{
		Service:    s,
		messageDAO: models.NewTopicMessageDAO(s.DB),
		memberDAO:  repository.NewTopicMemberDAO(s.DB),
	}
}

// MarkTopicRead 把话题标成已读：未读清零、已读游标推到当前最新一条消息。
// 成员行不存在时惰性创建（role=writer）——浏览即入座，不需要先显式加入。
// 空话题也能标已读，此时 last_read_message_id 置空。
func (s *ReadStateService) MarkTopicRead(caller Caller, topicID uint64) error {
	if !caller.Valid() {
		return ErrUnauthenticated
	}
	if topicID == 0 {
		return ErrNotFound
	}

	var lastMsgID *uint64
	latest, err := s.messageDAO.FindLatestInTopic(topicID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return internalErr("MarkTopicRead", err)
		}
		// 话题还没有消息，游标留空
	} else {
		id := latest.ID
		lastMsgID = &id
	}

	now := time.Now()
	affected, err := s.memberDAO.UpdateReadState(topicID, caller.UserID, lastMsgID, now)
	if err != nil {
		return internalErr("MarkTopicRead", err)
	}
	if affected > 0 {
		return nil
	}

	// 成员行还不存在：惰性创建，带上已读状态一次写入。
	// 并发重复创建在唯一索引上由 OnConflict DoNothing 静默汇合。
	m := &models.TopicMember{
		TopicID:           topicID,
		UserID:            caller.UserID,
		Role:              models.MemberRoleWriter,
		UnreadCount:       0,
		LastReadAt:        &now,
		LastReadMessageID: lastMsgID,
	}
	if err := s.memberDAO.EnsureMembership(m); err != nil {
		return internalErr("MarkTopicRead", err)
	}
	return nil
}

// UnreadSnapshot 当前用户所有已加入话题的未读快照：topic_id -> unread_count。
// 只覆盖有成员行的话题；从未打开过的话题不出现在结果里。
func (s *ReadStateService) UnreadSnapshot(caller Caller) (map[uint64]int64, error) {
	if !caller.Valid() {
		return nil, ErrUnauthenticated
	}
	snap, err := s.memberDAO.UnreadSnapshot(caller.UserID)
	if err != nil {
		return nil, internalErr("UnreadSnapshot", err)
	}
	return snap, nil
}
