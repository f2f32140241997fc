package cons

// 统一的话题通知事件类型（event_type）
const (
	EventTopicMention       = "topic.message.mention" // 消息里 @ 到了你
	EventMessageRemoved     = "topic.message.removed" // 你的消息被管理删除
	EventTopicMemberAdded   = "topic.member.added"    // 被加入话题
	EventTopicMemberRemoved = "topic.member.removed"  // 被移出话题
	EventTopicRoleChanged   = "topic.member.role"     // 话题内角色变更
	EventTopicArchived      = "topic.archived"        // 话题归档
)
