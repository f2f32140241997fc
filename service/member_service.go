package service

import (
	"errors"

	"github.com/vicinato/topic-sdk/cons"
	"github.com/vicinato/topic-sdk/models"
	"github.com/vicinato/topic-sdk/repository"
	"gorm.io/gorm"
)

// MemberDTO 成员列表项（带用户摘要）
type MemberDTO struct {
	ID          uint64     `json:"id"`
	TopicID     uint64     `json:"topic_id"`
	UserID      uint64     `json:"user_id"`
	User        *AuthorDTO `json:"user,omitempty"`
	Role        string     `json:"role"`
	IsMuted     bool       `json:"is_muted"`
	UnreadCount int64      `json:"unread_count"`
}

type MemberService struct {
	*Service
	userDAO   *models.UserDAO
	memberDAO *repository.TopicMemberDAO
}

func NewMemberService(s *Service) *MemberService {
	return &MemberService{
		Service:   s,
		userDAO:   models.NewUserDAO(s.DB),
		memberDAO: repository.NewTopicMemberDAO(s.DB),
	}
}

// canManage 是否有成员管理权：话题 admin 或平台 admin/super_admin
func (s *MemberService) canManage(caller Caller, topicID uint64) bool {
	if m, err := s.memberDAO.FindByTopicUser(topicID, caller.UserID); err == nil {
		if m.Role == models.MemberRoleAdmin {
			return true
		}
	}
	role := caller.Role
	if role == "" {
		if u, err := s.userDAO.FindByID(caller.UserID); err == nil {
			role = u.Role
		}
	}
	return role == models.PlatformRoleAdmin || role == models.PlatformRoleSuperAdmin
}

// ListMembers 话题成员列表（带用户摘要，按加入顺序）
func (s *MemberService) ListMembers(topicID uint64) ([]MemberDTO, error) {
	members, err := s.memberDAO.ListByTopic(topicID)
	if err != nil {
		return nil, internalErr("ListMembers", err)
	}

	userIDs := make([]uint64, 0, len(members))
	for _, m := range members {
		userIDs = append(userIDs, m.UserID)
	}
	userMap, err := s.userDAO.FindByIDs(userIDs)
	if err != nil {
		return nil, internalErr("ListMembers", err)
	}

	out := make([]MemberDTO, 0, len(members))
	for _, m := range members {
		dto := MemberDTO{
			ID:          m.ID,
			TopicID:     m.TopicID,
			UserID:      m.UserID,
			Role:        m.Role,
			IsMuted:     m.IsMuted,
			UnreadCount: m.UnreadCount,
		}
		if u, ok := userMap[m.UserID]; ok {
			dto.User = toAuthorDTO(&u)
		}
		out = append(out, dto)
	}
	return out, nil
}

// AddMember 把用户加进话题。需要话题 admin 或平台管理员。
func (s *MemberService) AddMember(caller Caller, topicID, userID uint64, role string) error {
	if !caller.Valid() {
		return ErrUnauthenticated
	}
	if role == "" {
		role = models.MemberRoleWriter
	}
	if !isValidMemberRole(role) {
		return validationErr("成员角色不正确")
	}
	if !s.canManage(caller, topicID) {
		return ErrPermissionDenied
	}

	if _, err := s.userDAO.FindByID(userID); err != nil {
		if s.userDAO.IsNotFound(err) {
			return ErrNotFound
		}
		return internalErr("AddMember", err)
	}

	m := &models.TopicMember{
		TopicID: topicID,
		UserID:  userID,
		Role:    role,
		AddedBy: caller.UserID,
	}
	if err := s.memberDAO.Add(m); err != nil {
		if isDuplicateKeyErr(err) {
			return validationErr("已是话题成员")
		}
		return internalErr("AddMember", err)
	}

	if s.Notify != nil {
		_, _ = s.Notify.PublishTopicEvent(topicID, caller.UserID, cons.EventTopicMemberAdded, map[string]any{
			"topic_id": topicID,
			"role":     role,
		}, []uint64{userID})
	}
	return nil
}

// RemoveMember 把用户移出话题。自己退出不需要管理权。
func (s *MemberService) RemoveMember(caller Caller, topicID, userID uint64) error {
	if !caller.Valid() {
		return ErrUnauthenticated
	}
	if caller.UserID != userID && !s.canManage(caller, topicID) {
		return ErrPermissionDenied
	}

	if _, err := s.memberDAO.FindByTopicUser(topicID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return internalErr("RemoveMember", err)
	}
	if err := s.memberDAO.Remove(topicID, userID); err != nil {
		return internalErr("RemoveMember", err)
	}

	if s.Notify != nil && caller.UserID != userID {
		_, _ = s.Notify.PublishTopicEvent(topicID, caller.UserID, cons.EventTopicMemberRemoved, map[string]any{
			"topic_id": topicID,
		}, []uint64{userID})
	}
	return nil
}

// UpdateMemberRole 调整话题内角色
func (s *MemberService) UpdateMemberRole(caller Caller, topicID, userID uint64, role string) error {
	if !caller.Valid() {
		return ErrUnauthenticated
	}
	if !isValidMemberRole(role) {
		return validationErr("成员角色不正确")
	}
	if !s.canManage(caller, topicID) {
		return ErrPermissionDenied
	}

	if _, err := s.memberDAO.FindByTopicUser(topicID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return internalErr("UpdateMemberRole", err)
	}
	if err := s.memberDAO.UpdateRole(topicID, userID, role); err != nil {
		return internalErr("UpdateMemberRole", err)
	}

	if s.Notify != nil {
		_, _ = s.Notify.PublishTopicEvent(topicID, caller.UserID, cons.EventTopicRoleChanged, map[string]any{
			"topic_id": topicID,
			"role":     role,
		}, []uint64{userID})
	}
	return nil
}

// SetTopicMute 设置话题免打扰。只作用于自己的成员行。
func (s *MemberService) SetTopicMute(caller Caller, topicID uint64, muted bool) error {
	if !caller.Valid() {
		return ErrUnauthenticated
	}

	if _, err := s.memberDAO.FindByTopicUser(topicID, caller.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return internalErr("SetTopicMute", err)
	}
	if err := s.memberDAO.UpdateMute(topicID, caller.UserID, muted); err != nil {
		return internalErr("SetTopicMute", err)
	}
	return nil
}

// JoinTopic 用户自助加入话题。
// members_only 话题只能被管理员拉进来，不能自助加入；其余可见性按用户身份判定。
// 隐藏话题对外当不存在处理，归档话题不再接收新成员。
// 已是成员时幂等返回成功（OnConflict DoNothing）。
func (s *MemberService) JoinTopic(caller Caller, topicID uint64) error {
	if !caller.Valid() {
		return ErrUnauthenticated
	}

	var topic models.Topic
	if err := s.DB.First(&topic, topicID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return internalErr("JoinTopic", err)
	}
	if topic.IsHidden {
		return ErrNotFound
	}
	if topic.IsArchived {
		return ErrPermissionDenied
	}
	if topic.Visibility == models.VisibilityMembersOnly {
		return ErrPermissionDenied
	}

	u, err := s.userDAO.FindByID(caller.UserID)
	if err != nil {
		if s.userDAO.IsNotFound(err) {
			return ErrNotFound
		}
		return internalErr("JoinTopic", err)
	}

	allowed := false
	for _, v := range visibleVisibilities(u) {
		if v == topic.Visibility {
			allowed = true
			break
		}
	}
	if !allowed {
		return ErrPermissionDenied
	}

	role := models.MemberRoleWriter
	if isPlatformAdminRole(u.Role) {
		role = models.MemberRoleAdmin
	}
	m := &models.TopicMember{TopicID: topicID, UserID: caller.UserID, Role: role}
	if err := s.memberDAO.EnsureMembership(m); err != nil {
		return internalErr("JoinTopic", err)
	}
	return nil
}

func isValidMemberRole(role string) bool {
	switch role {
	case models.MemberRoleViewer, models.MemberRoleWriter, models.MemberRoleModerator, models.MemberRoleAdmin:
		return true
	}
	return false
}

func isPlatformAdminRole(role string) bool {
	return role == models.PlatformRoleAdmin || role == models.PlatformRoleSuperAdmin
}

// visibleVisibilities 按用户身份算出其有权进入的话题可见性集合。
// members_only 永远不在集合里：它只能显式拉人。
func visibleVisibilities(u *models.User) []string {
	isAdmin := isPlatformAdminRole(u.Role)
	isVerified := u.VerificationStatus == models.VerificationApproved
	isBoard := u.CommitteeRole != ""

	visibilities := []string{models.VisibilityPublic, models.VisibilityAuthenticated}
	if isVerified || isAdmin {
		visibilities = append(visibilities, models.VisibilityVerified)
	}
	if isBoard || isAdmin {
		visibilities = append(visibilities, models.VisibilityBoardOnly)
	}
	if isAdmin {
		visibilities = append(visibilities, models.VisibilityAdminsOnly)
	}
	return visibilities
}

// SyncAutoMembership 按话题可见性给一个用户补齐"应得"的成员行。
// 注册/认证状态变化后调用一次，把用户自动拉进它有权看到的常驻话题：
//   - public/authenticated：所有登录用户
//   - verified：认证通过的用户
//   - board_only：委员会成员
//   - admins_only：平台管理员
//
// members_only 话题只能显式加入；归档和隐藏话题一律跳过。
// 已有成员行的话题由 OnConflict DoNothing 静默跳过，重复调用无副作用。
func (s *MemberService) SyncAutoMembership(userID uint64) error {
	u, err := s.userDAO.FindByID(userID)
	if err != nil {
		if s.userDAO.IsNotFound(err) {
			return ErrNotFound
		}
		return internalErr("SyncAutoMembership", err)
	}

	var topics []models.Topic
	if err := s.DB.Where("visibility IN ?", visibleVisibilities(u)).
		Where("is_archived = ? AND is_hidden = ?", false, false).
		Find(&topics).Error; err != nil {
		return internalErr("SyncAutoMembership", err)
	}

	role := models.MemberRoleWriter
	if isPlatformAdminRole(u.Role) {
		role = models.MemberRoleAdmin
	}
	for _, t := range topics {
		m := &models.TopicMember{TopicID: t.ID, UserID: userID, Role: role}
		if err := s.memberDAO.EnsureMembership(m); err != nil {
			return internalErr("SyncAutoMembership", err)
		}
	}
	return nil
}
