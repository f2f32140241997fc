package service

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldrv "github.com/go-sql-driver/mysql"
)

func newReactionService(t *testing.T) (*ReactionService, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, sqldb := newMockDB(t)
	svc := NewReactionService(&Service{DB: db})
	return svc, mock, func() { _ = sqldb.Close() }
}

func expectVisibleMessage(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SELECT (.+) FROM `tp_topic_message`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "topic_id", "author_id", "content", "is_deleted"}).
			AddRow(5, 9, 42, "hi", false))
}

func TestToggleReaction_Added(t *testing.T) {
	svc, mock, closeFn := newReactionService(t)
	defer closeFn()

	expectVisibleMessage(mock)

	// 还没有表态行
	mock.ExpectQuery("SELECT (.+) FROM `tp_message_reaction`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "message_id", "user_id", "emoji"}))

	mock.ExpectExec("INSERT INTO `tp_message_reaction`").
		WillReturnResult(sqlmock.NewResult(1, 1))

	res, err := svc.ToggleReaction(Caller{UserID: 7}, 5, "👍")
	if err != nil {
		t.Fatalf("ToggleReaction: %v", err)
	}
	if res.Action != ReactionAdded || res.Emoji != "👍" {
		t.Fatalf("unexpected result: %+v", res)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestToggleReaction_RemovedOnSameEmoji(t *testing.T) {
	svc, mock, closeFn := newReactionService(t)
	defer closeFn()

	expectVisibleMessage(mock)

	mock.ExpectQuery("SELECT (.+) FROM `tp_message_reaction`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "message_id", "user_id", "emoji"}).
			AddRow(11, 5, 7, "👍"))

	mock.ExpectExec("DELETE FROM `tp_message_reaction`").
		WillReturnResult(sqlmock.NewResult(0, 1))

	res, err := svc.ToggleReaction(Caller{UserID: 7}, 5, "👍")
	if err != nil {
		t.Fatalf("ToggleReaction: %v", err)
	}
	if res.Action != ReactionRemoved || res.Emoji != "" {
		t.Fatalf("unexpected result: %+v", res)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestToggleReaction_ChangedOnDifferentEmoji(t *testing.T) {
	svc, mock, closeFn := newReactionService(t)
	defer closeFn()

	expectVisibleMessage(mock)

	mock.ExpectQuery("SELECT (.+) FROM `tp_message_reaction`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "message_id", "user_id", "emoji"}).
			AddRow(11, 5, 7, "👍"))

	mock.ExpectExec("UPDATE `tp_message_reaction`").
		WillReturnResult(sqlmock.NewResult(0, 1))

	res, err := svc.ToggleReaction(Caller{UserID: 7}, 5, "❤️")
	if err != nil {
		t.Fatalf("ToggleReaction: %v", err)
	}
	if res.Action != ReactionChanged || res.Emoji != "❤️" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestToggleReaction_DuplicateKeyRaceFallsBackToChange(t *testing.T) {
	svc, mock, closeFn := newReactionService(t)
	defer closeFn()

	expectVisibleMessage(mock)

	// 读的时候还没有，插入时并发先手已经写入
	mock.ExpectQuery("SELECT (.+) FROM `tp_message_reaction`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "message_id", "user_id", "emoji"}))

	mock.ExpectExec("INSERT INTO `tp_message_reaction`").
		WillReturnError(&mysqldrv.MySQLError{Number: 1062, Message: "Duplicate entry"})

	mock.ExpectExec("UPDATE `tp_message_reaction`").
		WillReturnResult(sqlmock.NewResult(0, 1))

	res, err := svc.ToggleReaction(Caller{UserID: 7}, 5, "👍")
	if err != nil {
		t.Fatalf("ToggleReaction: %v", err)
	}
	if res.Action != ReactionChanged {
		t.Fatalf("expected changed, got %+v", res)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestToggleReaction_DeletedMessageNotFound(t *testing.T) {
	svc, mock, closeFn := newReactionService(t)
	defer closeFn()

	// is_deleted 过滤后查不到
	mock.ExpectQuery("SELECT (.+) FROM `tp_topic_message`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := svc.ToggleReaction(Caller{UserID: 7}, 5, "👍")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
