package service

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"golang.org/x/crypto/bcrypt"
)

func newUserService(t *testing.T) (*UserService, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, sqldb := newMockDB(t)
	svc := NewUserService(&Service{DB: db}, nil)
	return svc, mock, func() { _ = sqldb.Close() }
}

func TestLoginWithToken_WrongPasswordRejected(t *testing.T) {
	svc, mock, closeFn := newUserService(t)
	defer closeFn()

	hash, err := bcrypt.GenerateFromPassword([]byte("right-password"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	mock.ExpectQuery("SELECT (.+) FROM `tp_user`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "uid", "username", "password", "role"}).
			AddRow(7, "u-7", "alice", string(hash), "user"))

	_, err = svc.LoginWithToken(context.Background(), LoginReq{Account: "alice", Password: "wrong-password"})
	if err == nil {
		t.Fatal("expected login to fail")
	}
}

func TestLoginWithToken_NoRedisReturnsEmptyToken(t *testing.T) {
	svc, mock, closeFn := newUserService(t)
	defer closeFn()

	hash, _ := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.DefaultCost)

	mock.ExpectQuery("SELECT (.+) FROM `tp_user`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "uid", "username", "password", "role"}).
			AddRow(7, "u-7", "alice", string(hash), "user"))

	resp, err := svc.LoginWithToken(context.Background(), LoginReq{Account: "alice", Password: "secret"})
	if err != nil {
		t.Fatalf("LoginWithToken: %v", err)
	}
	if resp.Token != "" {
		t.Fatalf("no redis -> no token, got %q", resp.Token)
	}
	if resp.User.Username != "alice" {
		t.Fatalf("unexpected user: %+v", resp.User)
	}
}

func TestUpdatePassword_WritesHash(t *testing.T) {
	svc, mock, closeFn := newUserService(t)
	defer closeFn()

	mock.ExpectExec("UPDATE `tp_user`").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := svc.UpdatePassword(7, "new-password"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdatePassword_EmptyRejected(t *testing.T) {
	svc, mock, closeFn := newUserService(t)
	defer closeFn()

	if err := svc.UpdatePassword(7, "   "); err == nil {
		t.Fatal("expected error for empty password")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected SQL: %v", err)
	}
}

func TestSearchUsers_KeywordQuery(t *testing.T) {
	svc, mock, closeFn := newUserService(t)
	defer closeFn()

	mock.ExpectQuery("SELECT (.+) FROM `tp_user`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "uid", "username", "nickname", "role"}).
			AddRow(2, "u-2", "bob", "Bob", "user").
			AddRow(3, "u-3", "bobby", "Bobby", "user"))

	users, err := svc.SearchUsers("bob", 7, 10, 0)
	if err != nil {
		t.Fatalf("SearchUsers: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	if users[0].Username != "bob" {
		t.Fatalf("unexpected first user: %+v", users[0])
	}
}
