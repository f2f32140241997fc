package service

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldrv "github.com/go-sql-driver/mysql"
)

func newMemberService(t *testing.T) (*MemberService, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, sqldb := newMockDB(t)
	svc := NewMemberService(&Service{DB: db})
	return svc, mock, func() { _ = sqldb.Close() }
}

func TestAddMember_RegularUserDenied(t *testing.T) {
	svc, mock, closeFn := newMemberService(t)
	defer closeFn()

	// 话题内没有成员行
	mock.ExpectQuery("SELECT (.+) FROM `tp_topic_member`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "topic_id", "user_id", "role"}))

	// 平台角色回库查：普通用户
	mock.ExpectQuery("SELECT (.+) FROM `tp_user`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "role"}).AddRow(7, "user"))

	err := svc.AddMember(Caller{UserID: 7}, 9, 42, "writer")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}

	// 权限失败不应有 INSERT
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected SQL: %v", err)
	}
}

func TestAddMember_DuplicateReportsAlreadyMember(t *testing.T) {
	svc, mock, closeFn := newMemberService(t)
	defer closeFn()

	// canManage：话题内成员行为空，Caller.Role 已是 admin 不再回库
	mock.ExpectQuery("SELECT (.+) FROM `tp_topic_member`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "topic_id", "user_id", "role"}))

	// 目标用户存在
	mock.ExpectQuery("SELECT (.+) FROM `tp_user`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "role"}).AddRow(42, "user"))

	mock.ExpectExec("INSERT INTO `tp_topic_member`").
		WillReturnError(&mysqldrv.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := svc.AddMember(Caller{UserID: 7, Role: "admin"}, 9, 42, "writer")
	if !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRemoveMember_SelfLeaveAllowed(t *testing.T) {
	svc, mock, closeFn := newMemberService(t)
	defer closeFn()

	// 自己退出不查管理权，直接取成员行
	mock.ExpectQuery("SELECT (.+) FROM `tp_topic_member`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "topic_id", "user_id", "role"}).
			AddRow(1, 9, 7, "writer"))

	mock.ExpectExec("DELETE FROM `tp_topic_member`").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := svc.RemoveMember(Caller{UserID: 7}, 9, 7); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateMemberRole_InvalidRoleRejected(t *testing.T) {
	svc, mock, closeFn := newMemberService(t)
	defer closeFn()

	err := svc.UpdateMemberRole(Caller{UserID: 7, Role: "admin"}, 9, 42, "owner")
	if !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected SQL: %v", err)
	}
}

func TestJoinTopic_PublicTopicSelfJoin(t *testing.T) {
	svc, mock, closeFn := newMemberService(t)
	defer closeFn()

	mock.ExpectQuery("SELECT (.+) FROM `tp_topic`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "visibility", "is_archived", "is_hidden"}).
			AddRow(9, "general", "public", false, false))

	mock.ExpectQuery("SELECT (.+) FROM `tp_user`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "role", "verification_status", "committee_role"}).
			AddRow(7, "user", "pending", ""))

	mock.ExpectExec("INSERT INTO `tp_topic_member`").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := svc.JoinTopic(Caller{UserID: 7}, 9); err != nil {
		t.Fatalf("JoinTopic: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestJoinTopic_MembersOnlyDenied(t *testing.T) {
	svc, mock, closeFn := newMemberService(t)
	defer closeFn()

	// members_only 不能自助加入：话题查出来就拒绝，不再查用户、不 INSERT
	mock.ExpectQuery("SELECT (.+) FROM `tp_topic`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "visibility", "is_archived", "is_hidden"}).
			AddRow(9, "invite-only", "members_only", false, false))

	err := svc.JoinTopic(Caller{UserID: 7}, 9)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected SQL: %v", err)
	}
}

func TestJoinTopic_VerifiedTopicNeedsApproval(t *testing.T) {
	svc, mock, closeFn := newMemberService(t)
	defer closeFn()

	mock.ExpectQuery("SELECT (.+) FROM `tp_topic`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "visibility", "is_archived", "is_hidden"}).
			AddRow(9, "verified-only", "verified", false, false))

	// 认证未通过的普通用户
	mock.ExpectQuery("SELECT (.+) FROM `tp_user`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "role", "verification_status", "committee_role"}).
			AddRow(7, "user", "pending", ""))

	err := svc.JoinTopic(Caller{UserID: 7}, 9)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected SQL: %v", err)
	}
}

func TestJoinTopic_HiddenTopicNotFound(t *testing.T) {
	svc, mock, closeFn := newMemberService(t)
	defer closeFn()

	mock.ExpectQuery("SELECT (.+) FROM `tp_topic`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "visibility", "is_archived", "is_hidden"}).
			AddRow(9, "secret", "public", false, true))

	if err := svc.JoinTopic(Caller{UserID: 7}, 9); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetTopicMute_UpdatesOwnRow(t *testing.T) {
	svc, mock, closeFn := newMemberService(t)
	defer closeFn()

	mock.ExpectQuery("SELECT (.+) FROM `tp_topic_member`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "topic_id", "user_id", "role", "is_muted"}).
			AddRow(1, 9, 7, "writer", false))

	mock.ExpectExec("UPDATE `tp_topic_member`").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := svc.SetTopicMute(Caller{UserID: 7}, 9, true); err != nil {
		t.Fatalf("SetTopicMute: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSetTopicMute_NotMember(t *testing.T) {
	svc, mock, closeFn := newMemberService(t)
	defer closeFn()

	// 成员行不存在：报 NotFound，不发 UPDATE
	mock.ExpectQuery("SELECT (.+) FROM `tp_topic_member`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "topic_id", "user_id", "role"}))

	err := svc.SetTopicMute(Caller{UserID: 7}, 9, true)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected SQL: %v", err)
	}
}

func TestSyncAutoMembership_VerifiedUserJoinsVerifiedTopics(t *testing.T) {
	svc, mock, closeFn := newMemberService(t)
	defer closeFn()

	// 用户：认证通过的普通用户
	mock.ExpectQuery("SELECT (.+) FROM `tp_user`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "role", "verification_status", "committee_role"}).
			AddRow(7, "user", "approved", ""))

	// 符合可见性的常驻话题
	mock.ExpectQuery("SELECT (.+) FROM `tp_topic`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "visibility", "is_archived", "is_hidden"}).
			AddRow(1, "general", "public", false, false).
			AddRow(2, "verified-only", "verified", false, false))

	// 每个话题一条幂等 INSERT
	mock.ExpectExec("INSERT INTO `tp_topic_member`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO `tp_topic_member`").
		WillReturnResult(sqlmock.NewResult(2, 1))

	if err := svc.SyncAutoMembership(7); err != nil {
		t.Fatalf("SyncAutoMembership: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
