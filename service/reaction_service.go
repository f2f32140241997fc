package service

import (
	"errors"
	"unicode/utf8"

	"github.com/vicinato/topic-sdk/models"
	"github.com/vicinato/topic-sdk/repository"
	"gorm.io/gorm"
)

// 表态结果动作
const (
	ReactionAdded   = "added"
	ReactionRemoved = "removed"
	ReactionChanged = "changed"
)

// ToggleReactionResult toggle 的结果：发生了什么动作，以及当前生效的 emoji（removed 时为空）。
type ToggleReactionResult struct {
	Action string `json:"action"`
	Emoji  string `json:"emoji,omitempty"`
}

type ReactionService struct {
	*Service
	messageDAO  *models.TopicMessageDAO
	reactionDAO *repository.MessageReactionDAO
}

func NewReactionService(s *Service) *ReactionService {
	return &ReactionService{
		Service:     s,
		messageDAO:  models.NewTopicMessageDAO(s.DB),
		reactionDAO: repository.NewMessageReactionDAO(s.DB),
	}
}

// ToggleReaction 单选表态开关。一人对一条消息最多一条表态：
//   - 还没表态         -> 插入，added
//   - 已是同一个 emoji -> 删除，removed
//   - 已是别的 emoji   -> 原地改，changed
//
// 并发双端同时 added 时后插会撞 (message_id, user_id) 唯一索引，
// 降级成 changed 路径，最后写入者获胜，不向调用方报错。
func (s *ReactionService) ToggleReaction(caller Caller, messageID uint64, emoji string) (*ToggleReactionResult, error) {
	if !caller.Valid() {
		return nil, ErrUnauthenticated
	}
	if emoji == "" {
		return nil, validationErr("表态不能为空")
	}
	if utf8.RuneCountInString(emoji) > 8 {
		return nil, validationErr("表态格式不正确")
	}

	// 目标消息必须存在且未被删除
	if _, err := s.messageDAO.FindVisibleByID(messageID, 0); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, internalErr("ToggleReaction", err)
	}

	existing, err := s.reactionDAO.FindByMessageUser(messageID, caller.UserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internalErr("ToggleReaction", err)
	}

	if existing == nil {
		r := &models.MessageReaction{MessageID: messageID, UserID: caller.UserID, Emoji: emoji}
		if err := s.reactionDAO.Create(r); err != nil {
			if isDuplicateKeyErr(err) {
				// 并发先手已插入，改成换表态
				if err := s.reactionDAO.UpdateEmojiByMessageUser(messageID, caller.UserID, emoji); err != nil {
					return nil, internalErr("ToggleReaction", err)
				}
				return &ToggleReactionResult{Action: ReactionChanged, Emoji: emoji}, nil
			}
			return nil, internalErr("ToggleReaction", err)
		}
		return &ToggleReactionResult{Action: ReactionAdded, Emoji: emoji}, nil
	}

	if existing.Emoji == emoji {
		if err := s.reactionDAO.DeleteByID(existing.ID); err != nil {
			return nil, internalErr("ToggleReaction", err)
		}
		return &ToggleReactionResult{Action: ReactionRemoved}, nil
	}

	if err := s.reactionDAO.UpdateEmoji(existing.ID, emoji); err != nil {
		return nil, internalErr("ToggleReaction", err)
	}
	return &ToggleReactionResult{Action: ReactionChanged, Emoji: emoji}, nil
}

// ListReactions 一条消息的全部表态
func (s *ReactionService) ListReactions(messageID uint64) ([]ReactionDTO, error) {
	m, err := s.reactionDAO.ListByMessageIDs([]uint64{messageID})
	if err != nil {
		return nil, internalErr("ListReactions", err)
	}
	rows := m[messageID]
	out := make([]ReactionDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, ReactionDTO{ID: r.ID, UserID: r.UserID, Emoji: r.Emoji})
	}
	return out, nil
}
