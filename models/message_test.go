package models

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	sqldb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqldb, SkipInitializeWithVersion: true}), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		_ = sqldb.Close()
		t.Fatalf("gorm.Open: %v", err)
	}

	return db, mock, sqldb
}

func TestTopicMessage_TableName(t *testing.T) {
	if got := (TopicMessage{}).TableName(); got != "tp_topic_message" {
		t.Fatalf("unexpected table name: %s", got)
	}
	if got := (MessageReaction{}).TableName(); got != "tp_message_reaction" {
		t.Fatalf("unexpected table name: %s", got)
	}
	if got := (TopicMember{}).TableName(); got != "tp_topic_member" {
		t.Fatalf("unexpected table name: %s", got)
	}
}

func TestTopicMessage_BeforeCreate_GeneratesUID(t *testing.T) {
	db, mock, sqldb := newMockDB(t)
	defer sqldb.Close()

	mock.ExpectExec("INSERT INTO `tp_topic_message`").
		WillReturnResult(sqlmock.NewResult(1, 1))

	msg := &TopicMessage{
		TopicID:  1,
		AuthorID: 2,
		Type:     MessageTypeText,
		Content:  "hello",
	}
	if err := db.Create(msg).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	if msg.UID == "" {
		t.Fatal("expected UID to be generated")
	}
	if _, err := uuid.Parse(msg.UID); err != nil {
		t.Fatalf("UID is not a valid uuid: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTopicMessage_BeforeCreate_KeepsExistingUID(t *testing.T) {
	db, mock, sqldb := newMockDB(t)
	defer sqldb.Close()

	mock.ExpectExec("INSERT INTO `tp_topic_message`").
		WillReturnResult(sqlmock.NewResult(1, 1))

	fixed := uuid.New().String()
	msg := &TopicMessage{TopicID: 1, AuthorID: 2, UID: fixed, Type: MessageTypeText, Content: "hi"}
	if err := db.Create(msg).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	if msg.UID != fixed {
		t.Fatalf("UID changed: %s", msg.UID)
	}
}
