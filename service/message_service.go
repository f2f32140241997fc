package service

import (
	"errors"
	"log"
	"time"
	"unicode/utf8"

	"github.com/vicinato/topic-sdk/cons"
	"github.com/vicinato/topic-sdk/message"
	"github.com/vicinato/topic-sdk/models"
	"github.com/vicinato/topic-sdk/repository"
	"gorm.io/gorm"
)

const (
	// 消息内容长度上限（字符数）
	maxMessageLen = 2000

	// 默认/最大分页
	defaultPageLimit = 50
	maxPageLimit     = 100
)

// AuthorDTO 作者摘要（消息列表返回用，脱敏）
type AuthorDTO struct {
	ID       uint64 `json:"id"`
	UID      string `json:"uid"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}

// ReactionDTO 表态项
type ReactionDTO struct {
	ID     uint64 `json:"id"`
	UserID uint64 `json:"user_id"`
	Emoji  string `json:"emoji"`
}

// ReplyPreviewDTO 被回复消息的预览。
// 被回复消息已删除时整个预览为 nil，但消息本身的 reply_to_id 保留，
// 由前端渲染"消息已删除"占位。
type ReplyPreviewDTO struct {
	ID       uint64     `json:"id"`
	AuthorID uint64     `json:"author_id"`
	Author   *AuthorDTO `json:"author,omitempty"`
	Type     string     `json:"type"`
	Content  string     `json:"content"`
}

// MessageItemDTO 消息列表项（带作者、回复预览、表态；不返回 Topic，避免冗余/递归）
type MessageItemDTO struct {
	ID        uint64            `json:"id"`
	UID       string            `json:"uid"`
	TopicID   uint64            `json:"topic_id"`
	AuthorID  uint64            `json:"author_id"`
	Author    *AuthorDTO        `json:"author,omitempty"`
	ReplyToID *uint64           `json:"reply_to_id,omitempty"`
	ReplyTo   *ReplyPreviewDTO  `json:"reply_to,omitempty"`
	Type      string            `json:"type"`
	Content   string            `json:"content"`
	Metadata  *message.Metadata `json:"metadata,omitempty"`
	Reactions []ReactionDTO     `json:"reactions"`
	IsEdited  bool              `json:"is_edited"`
	EditedAt  *time.Time        `json:"edited_at,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// MessagePage 一页消息 + 是否还有更早的
type MessagePage struct {
	Messages []MessageItemDTO `json:"messages"`
	HasMore  bool             `json:"has_more"`
}

// Page 游标分页参数。Before/After 是消息 ID（不是时间戳）：
// 引擎先把游标消息解析成 created_at，再做严格 </> 过滤。
// 游标消息解析不到（比如已被物理清理）时静默跳过该过滤，退化为无游标页，
// 聊天场景里拿到一页比报错对用户更友好。
type Page struct {
	Limit  int    `json:"limit"`
	Before uint64 `json:"before,omitempty"`
	After  uint64 `json:"after,omitempty"`
}

// SendMessageReq 发消息入参
type SendMessageReq struct {
	Content   string            `json:"content"`
	ReplyToID uint64            `json:"reply_to_id,omitempty"`
	Mentions  []uint64          `json:"mentions,omitempty"`
	Metadata  *message.Metadata `json:"metadata,omitempty"`
}

type MessageService struct {
	*Service
	messageDAO  *models.TopicMessageDAO
	userDAO     *models.UserDAO
	memberDAO   *repository.TopicMemberDAO
	reactionDAO *repository.MessageReactionDAO
}

func NewMessageService(s *Service) *MessageService {
	return &MessageService{
		Service:     s,
		messageDAO:  models.NewTopicMessageDAO(s.DB),
		userDAO:     models.NewUserDAO(s.DB),
		memberDAO:   repository.NewTopicMemberDAO(s.DB),
		reactionDAO: repository.NewMessageReactionDAO(s.DB),
	}
}

func toAuthorDTO(u *models.User) *AuthorDTO {
	if u == nil {
		return nil
	}
	return &AuthorDTO{ID: u.ID, UID: u.UID, Username: u.Username, Nickname: u.Nickname, Avatar: u.Avatar}
}

func (s *MessageService) toMessageItemDTO(m *models.TopicMessage, author *models.User,
	reply *models.TopicMessage, replyAuthor *models.User, reactions []models.MessageReaction) MessageItemDTO {

	dto := MessageItemDTO{
		ID:        m.ID,
		UID:       m.UID,
		TopicID:   m.TopicID,
		AuthorID:  m.AuthorID,
		Author:    toAuthorDTO(author),
		ReplyToID: m.ReplyToID,
		Type:      m.Type,
		Content:   m.Content,
		Reactions: make([]ReactionDTO, 0, len(reactions)),
		IsEdited:  m.IsEdited,
		EditedAt:  m.EditedAt,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}

	md, err := message.Unmarshal(m.Metadata)
	if err != nil {
		log.Printf("message %d: bad metadata: %v", m.ID, err)
	} else {
		dto.Metadata = md
	}

	if reply != nil {
		dto.ReplyTo = &ReplyPreviewDTO{
			ID:       reply.ID,
			AuthorID: reply.AuthorID,
			Author:   toAuthorDTO(replyAuthor),
			Type:     reply.Type,
			Content:  reply.Content,
		}
	}

	for _, r := range reactions {
		dto.Reactions = append(dto.Reactions, ReactionDTO{ID: r.ID, UserID: r.UserID, Emoji: r.Emoji})
	}
	return dto
}

// GetTopicMessages 获取话题消息一页。
// 内部按 created_at 倒序取 limit+1 条（从最新边界往回翻），
// 多出的一条只用来算 hasMore；返回前整页反转成时间正序。
func (s *MessageService) GetTopicMessages(topicID uint64, page Page) (*MessagePage, error) {
	if topicID == 0 {
		return nil, ErrNotFound
	}
	limit := page.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	// 游标消息 ID -> created_at；解析不到就跳过该过滤（见 Page 注释）
	var before, after time.Time
	if page.Before > 0 {
		if ts, err := s.messageDAO.FindCreatedAt(page.Before); err == nil {
			before = ts
		}
	}
	if page.After > 0 {
		if ts, err := s.messageDAO.FindCreatedAt(page.After); err == nil {
			after = ts
		}
	}

	rows, err := s.messageDAO.FindWindowByTopic(topicID, before, after, limit+1)
	if err != nil {
		return nil, internalErr("GetTopicMessages", err)
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}

	// 反转：倒序窗口 -> 时间正序展示
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}

	// 回复预览（单独一批查询，只取未删除的目标）
	replyIDs := make([]uint64, 0, len(rows))
	for _, m := range rows {
		if m.ReplyToID != nil && *m.ReplyToID > 0 {
			replyIDs = append(replyIDs, *m.ReplyToID)
		}
	}
	replyMap, err := s.messageDAO.FindPreviewsByIDs(replyIDs)
	if err != nil {
		return nil, internalErr("GetTopicMessages", err)
	}

	// 作者摘要：消息作者 + 回复预览作者，一批取齐
	authorIDSet := make(map[uint64]struct{}, len(rows))
	authorIDs := make([]uint64, 0, len(rows))
	collect := func(id uint64) {
		if id == 0 {
			return
		}
		if _, ok := authorIDSet[id]; ok {
			return
		}
		authorIDSet[id] = struct{}{}
		authorIDs = append(authorIDs, id)
	}
	for _, m := range rows {
		collect(m.AuthorID)
	}
	for _, r := range replyMap {
		collect(r.AuthorID)
	}
	authorMap, err := s.userDAO.FindByIDs(authorIDs)
	if err != nil {
		return nil, internalErr("GetTopicMessages", err)
	}

	// 表态整批取
	msgIDs := make([]uint64, 0, len(rows))
	for _, m := range rows {
		msgIDs = append(msgIDs, m.ID)
	}
	reactionMap, err := s.reactionDAO.ListByMessageIDs(msgIDs)
	if err != nil {
		return nil, internalErr("GetTopicMessages", err)
	}

	out := make([]MessageItemDTO, 0, len(rows))
	for i := range rows {
		m := &rows[i]

		var author *models.User
		if u, ok := authorMap[m.AuthorID]; ok {
			author = &u
		}

		var reply *models.TopicMessage
		var replyAuthor *models.User
		if m.ReplyToID != nil {
			if r, ok := replyMap[*m.ReplyToID]; ok {
				reply = &r
				if u, ok := authorMap[r.AuthorID]; ok {
					replyAuthor = &u
				}
			}
		}

		out = append(out, s.toMessageItemDTO(m, author, reply, replyAuthor, reactionMap[m.ID]))
	}

	return &MessagePage{Messages: out, HasMore: hasMore}, nil
}

func validateContent(content string) (string, error) {
	if content == "" {
		return "", validationErr("消息不能为空")
	}
	if utf8.RuneCountInString(content) > maxMessageLen {
		return "", validationErr("消息过长（最多 2000 字）")
	}
	return content, nil
}

// SendMessage 发消息。
// @提及折叠进结构化 metadata（没有独立列）；话题写权限由存储层策略兜底，
// 策略拒绝翻译成 ErrPermissionDenied。
func (s *MessageService) SendMessage(caller Caller, topicID uint64, req SendMessageReq) (*MessageItemDTO, error) {
	if !caller.Valid() {
		return nil, ErrUnauthenticated
	}

	content, err := validateContent(req.Content)
	if err != nil {
		return nil, err
	}

	var topic models.Topic
	if err := s.DB.First(&topic, topicID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, internalErr("SendMessage", err)
	}
	if topic.IsArchived {
		return nil, ErrPermissionDenied
	}

	// 回复目标必须是同话题的未删除消息
	var reply *models.TopicMessage
	if req.ReplyToID > 0 {
		reply, err = s.messageDAO.FindVisibleByID(req.ReplyToID, topicID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotFound
			}
			return nil, internalErr("SendMessage", err)
		}
	}

	// @提及折叠进 metadata
	md := req.Metadata
	if len(req.Mentions) > 0 {
		if md == nil {
			md = &message.Metadata{}
		}
		md.Mentions = req.Mentions
	}
	mdBytes, err := md.Marshal()
	if err != nil {
		return nil, internalErr("SendMessage", err)
	}

	msg := &models.TopicMessage{
		TopicID:  topicID,
		AuthorID: caller.UserID,
		Content:  content,
		Type:     deriveMessageType(md),
		Metadata: mdBytes,
	}
	if req.ReplyToID > 0 {
		rid := req.ReplyToID
		msg.ReplyToID = &rid
	}

	if err := s.messageDAO.Create(msg); err != nil {
		if isStorePolicyErr(err) {
			return nil, ErrPermissionDenied
		}
		return nil, internalErr("SendMessage", err)
	}

	// 冗余字段维护 + 未读自增 + @通知：都是尽力而为，失败只打日志
	now := time.Now()
	if err := s.DB.Model(&models.Topic{}).Where("id = ?", topicID).
		Updates(map[string]any{
			"last_message_id": msg.ID,
			"last_message_at": now,
			"message_count":   gorm.Expr("message_count + ?", 1),
		}).Error; err != nil {
		log.Printf("SendMessage: bump topic last message failed: %v", err)
	}
	if err := s.memberDAO.IncrementUnread(topicID, caller.UserID); err != nil {
		log.Printf("SendMessage: increment unread failed: %v", err)
	}
	if s.Notify != nil && md != nil && len(md.Mentions) > 0 {
		_, _ = s.Notify.PublishTopicEvent(topicID, caller.UserID, cons.EventTopicMention, map[string]any{
			"message_id": msg.ID,
			"topic_id":   topicID,
		}, md.Mentions)
	}

	// 拼返回：作者 + 回复预览
	author, err := s.userDAO.FindByID(caller.UserID)
	if err != nil {
		author = nil
	}
	var replyAuthor *models.User
	if reply != nil {
		if u, err := s.userDAO.FindByID(reply.AuthorID); err == nil {
			replyAuthor = u
		}
	}

	dto := s.toMessageItemDTO(msg, author, reply, replyAuthor, nil)
	return &dto, nil
}

func deriveMessageType(md *message.Metadata) string {
	if md == nil {
		return models.MessageTypeText
	}
	if md.Voice != nil {
		return models.MessageTypeVoice
	}
	if len(md.Images) > 0 || md.URL != "" {
		return models.MessageTypeImage
	}
	if md.Source != nil {
		return models.MessageTypeAutoPost
	}
	return models.MessageTypeText
}

// EditMessage 编辑消息：仅作者本人，消息未被删除。
// 不限时间窗口；不保留历史版本，只打 is_edited/edited_at 标记。
func (s *MessageService) EditMessage(caller Caller, messageID uint64, content string) (*MessageItemDTO, error) {
	if !caller.Valid() {
		return nil, ErrUnauthenticated
	}

	content, err := validateContent(content)
	if err != nil {
		return nil, err
	}

	msg, err := s.messageDAO.FindByID(messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, internalErr("EditMessage", err)
	}
	if msg.AuthorID != caller.UserID {
		return nil, ErrPermissionDenied
	}
	if msg.IsDeleted {
		return nil, ErrNotFound
	}

	now := time.Now()
	if err := s.messageDAO.UpdateContentEdited(messageID, content, now); err != nil {
		return nil, internalErr("EditMessage", err)
	}

	msg.Content = content
	msg.IsEdited = true
	msg.EditedAt = &now

	author, err := s.userDAO.FindByID(msg.AuthorID)
	if err != nil {
		author = nil
	}
	dto := s.toMessageItemDTO(msg, author, nil, nil, nil)
	return &dto, nil
}

// DeleteMessage 软删除消息。权限判定顺序：
// 作者本人 -> 话题 moderator/admin -> 平台 admin/super_admin。
// 行保留（回复链引用、审计），只置 is_deleted/deleted_at。
func (s *MessageService) DeleteMessage(caller Caller, messageID uint64) error {
	if !caller.Valid() {
		return ErrUnauthenticated
	}

	msg, err := s.messageDAO.FindByID(messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return internalErr("DeleteMessage", err)
	}

	canDelete := msg.AuthorID == caller.UserID

	if !canDelete {
		if m, err := s.memberDAO.FindByTopicUser(msg.TopicID, caller.UserID); err == nil {
			if m.Role == models.MemberRoleModerator || m.Role == models.MemberRoleAdmin {
				canDelete = true
			}
		}
	}

	if !canDelete {
		role := caller.Role
		if role == "" {
			if u, err := s.userDAO.FindByID(caller.UserID); err == nil {
				role = u.Role
			}
		}
		if role == models.PlatformRoleAdmin || role == models.PlatformRoleSuperAdmin {
			canDelete = true
		}
	}

	if !canDelete {
		return ErrPermissionDenied
	}

	if err := s.messageDAO.SoftDelete(messageID, time.Now()); err != nil {
		return internalErr("DeleteMessage", err)
	}

	// 非作者删除时通知作者（尽力而为）
	if s.Notify != nil && msg.AuthorID != caller.UserID {
		_, _ = s.Notify.PublishTopicEvent(msg.TopicID, caller.UserID, cons.EventMessageRemoved, map[string]any{
			"message_id": msg.ID,
			"topic_id":   msg.TopicID,
		}, []uint64{msg.AuthorID})
	}

	return nil
}

// GetMessageByID 根据ID获取消息（未删除的）
func (s *MessageService) GetMessageByID(messageID uint64) (*models.TopicMessage, error) {
	msg, err := s.messageDAO.FindVisibleByID(messageID, 0)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, internalErr("GetMessageByID", err)
	}
	return msg, nil
}
