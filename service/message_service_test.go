package service

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldrv "github.com/go-sql-driver/mysql"
)

func newMessageService(t *testing.T) (*MessageService, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, sqldb := newMockDB(t)
	svc := NewMessageService(&Service{DB: db})
	return svc, mock, func() { _ = sqldb.Close() }
}

func TestGetTopicMessages_AscendingOrderAndHasMore(t *testing.T) {
	svc, mock, closeFn := newMessageService(t)
	defer closeFn()

	base := time.Now().Add(-time.Hour)

	// 窗口按 created_at DESC 取 limit+1=3 条：最新的在前
	mock.ExpectQuery("SELECT (.+) FROM `tp_topic_message`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "topic_id", "author_id", "type", "content", "is_deleted", "created_at"}).
			AddRow(3, 9, 7, "text", "newest", false, base.Add(3*time.Minute)).
			AddRow(2, 9, 7, "text", "middle", false, base.Add(2*time.Minute)).
			AddRow(1, 9, 7, "text", "oldest", false, base.Add(1*time.Minute)))

	// 作者批量查询
	mock.ExpectQuery("SELECT (.+) FROM `tp_user`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "uid", "username", "nickname"}).
			AddRow(7, "u-7", "alice", "Alice"))

	// 表态批量查询
	mock.ExpectQuery("SELECT (.+) FROM `tp_message_reaction`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "message_id", "user_id", "emoji"}))

	page, err := svc.GetTopicMessages(9, Page{Limit: 2})
	if err != nil {
		t.Fatalf("GetTopicMessages: %v", err)
	}

	if !page.HasMore {
		t.Fatal("expected HasMore=true")
	}
	if len(page.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(page.Messages))
	}
	// 返回必须是时间正序：middle 在前，newest 在后
	if page.Messages[0].ID != 2 || page.Messages[1].ID != 3 {
		t.Fatalf("wrong order: %d, %d", page.Messages[0].ID, page.Messages[1].ID)
	}
	if page.Messages[0].Author == nil || page.Messages[0].Author.Username != "alice" {
		t.Fatal("expected author summary attached")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetTopicMessages_BeforeCursorResolvedToTimestamp(t *testing.T) {
	svc, mock, closeFn := newMessageService(t)
	defer closeFn()

	cursorAt := time.Now().Add(-10 * time.Minute)

	// 先解析游标消息的 created_at
	mock.ExpectQuery("SELECT `created_at` FROM `tp_topic_message`").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(cursorAt))

	// 窗口查询带 created_at < ? 过滤
	mock.ExpectQuery("created_at < ").
		WillReturnRows(sqlmock.NewRows([]string{"id", "topic_id", "author_id", "type", "content", "is_deleted", "created_at"}).
			AddRow(1, 9, 7, "text", "older", false, cursorAt.Add(-time.Minute)))

	mock.ExpectQuery("SELECT (.+) FROM `tp_user`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).AddRow(7, "alice"))
	mock.ExpectQuery("SELECT (.+) FROM `tp_message_reaction`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "message_id", "user_id", "emoji"}))

	page, err := svc.GetTopicMessages(9, Page{Limit: 50, Before: 42})
	if err != nil {
		t.Fatalf("GetTopicMessages: %v", err)
	}
	if page.HasMore {
		t.Fatal("expected HasMore=false")
	}
	if len(page.Messages) != 1 || page.Messages[0].ID != 1 {
		t.Fatalf("unexpected page: %+v", page.Messages)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetTopicMessages_UnresolvableCursorIgnored(t *testing.T) {
	svc, mock, closeFn := newMessageService(t)
	defer closeFn()

	// 游标消息不存在：解析查询返回空，不报错、不加过滤
	mock.ExpectQuery("SELECT `created_at` FROM `tp_topic_message`").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}))

	mock.ExpectQuery("SELECT (.+) FROM `tp_topic_message`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "topic_id", "author_id", "type", "content", "is_deleted", "created_at"}))

	page, err := svc.GetTopicMessages(9, Page{Limit: 10, Before: 99999})
	if err != nil {
		t.Fatalf("GetTopicMessages: %v", err)
	}
	if len(page.Messages) != 0 || page.HasMore {
		t.Fatalf("expected empty page, got %+v", page)
	}
}

func TestGetTopicMessages_DeletedReplyTargetKeepsPointer(t *testing.T) {
	svc, mock, closeFn := newMessageService(t)
	defer closeFn()

	base := time.Now().Add(-time.Hour)

	// 窗口里只有回复消息本身：被删除的目标 id=1 已被列表过滤
	mock.ExpectQuery("SELECT (.+) FROM `tp_topic_message`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "topic_id", "author_id", "reply_to_id", "type", "content", "is_deleted", "created_at"}).
			AddRow(2, 9, 7, 1, "text", "a reply", false, base.Add(2*time.Minute)))

	// 回复预览只取未删除目标：查询为空
	mock.ExpectQuery("SELECT (.+) FROM `tp_topic_message`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "author_id", "type", "content"}))

	mock.ExpectQuery("SELECT (.+) FROM `tp_user`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "uid", "username", "nickname"}).
			AddRow(7, "u-7", "alice", "Alice"))
	mock.ExpectQuery("SELECT (.+) FROM `tp_message_reaction`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "message_id", "user_id", "emoji"}))

	page, err := svc.GetTopicMessages(9, Page{Limit: 50})
	if err != nil {
		t.Fatalf("GetTopicMessages: %v", err)
	}
	if len(page.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(page.Messages))
	}

	// 回复指针保留（前端渲染"消息已删除"占位），预览为 nil
	m := page.Messages[0]
	if m.ReplyToID == nil || *m.ReplyToID != 1 {
		t.Fatalf("expected reply_to_id=1 preserved, got %v", m.ReplyToID)
	}
	if m.ReplyTo != nil {
		t.Fatalf("expected nil reply preview for deleted target, got %+v", m.ReplyTo)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSendMessage_EmptyContentRejectedBeforeSQL(t *testing.T) {
	svc, mock, closeFn := newMessageService(t)
	defer closeFn()

	_, err := svc.SendMessage(Caller{UserID: 7}, 9, SendMessageReq{Content: ""})
	if !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	// 校验失败不应有任何 SQL
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected SQL: %v", err)
	}
}

func TestSendMessage_StorePolicyDeniedMapsToPermission(t *testing.T) {
	svc, mock, closeFn := newMessageService(t)
	defer closeFn()

	mock.ExpectQuery("SELECT (.+) FROM `tp_topic`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "name", "is_archived"}).
			AddRow(9, "general", "General", false))

	// 存储层策略拒绝写入（GRANT 级别）
	mock.ExpectExec("INSERT INTO `tp_topic_message`").
		WillReturnError(&mysqldrv.MySQLError{Number: 1142, Message: "INSERT command denied"})

	_, err := svc.SendMessage(Caller{UserID: 7}, 9, SendMessageReq{Content: "hello"})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestEditMessage_NotAuthorDenied(t *testing.T) {
	svc, mock, closeFn := newMessageService(t)
	defer closeFn()

	mock.ExpectQuery("SELECT (.+) FROM `tp_topic_message`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "topic_id", "author_id", "content", "is_deleted"}).
			AddRow(5, 9, 42, "original", false))

	_, err := svc.EditMessage(Caller{UserID: 7}, 5, "changed")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}

	// 权限失败后不应有 UPDATE
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected SQL: %v", err)
	}
}

func TestDeleteMessage_AuthorSoftDeletes(t *testing.T) {
	svc, mock, closeFn := newMessageService(t)
	defer closeFn()

	mock.ExpectQuery("SELECT (.+) FROM `tp_topic_message`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "topic_id", "author_id", "content", "is_deleted"}).
			AddRow(5, 9, 7, "bye", false))

	mock.ExpectExec("UPDATE `tp_topic_message`").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := svc.DeleteMessage(Caller{UserID: 7}, 5); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteMessage_StrangerDenied(t *testing.T) {
	svc, mock, closeFn := newMessageService(t)
	defer closeFn()

	mock.ExpectQuery("SELECT (.+) FROM `tp_topic_message`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "topic_id", "author_id", "content", "is_deleted"}).
			AddRow(5, 9, 42, "bye", false))

	// 话题内成员行不存在
	mock.ExpectQuery("SELECT (.+) FROM `tp_topic_member`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "topic_id", "user_id", "role"}))

	// 平台角色回库查：普通用户
	mock.ExpectQuery("SELECT (.+) FROM `tp_user`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "role"}).AddRow(7, "user"))

	err := svc.DeleteMessage(Caller{UserID: 7}, 5)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}
