package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/atinyakov/CampusPortal/internal/models"
)

func setupUserMock(t *testing.T) (*PostgresUserRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresUserRepository(db)
	cleanup := func() { db.Close() }
	return repo, mock, cleanup
}

var userCols = []string{"id", "username", "email", "full_name", "department", "role"}

func TestCreateUser_Success(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	u := models.User{ID: "u1", Username: "alice", Email: "alice@campus.edu", Role: models.RoleStudent}
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs("u1", "alice", "alice@campus.edu", "", "", "student", "hash").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.CreateUser(context.Background(), u, "hash"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCreateUser_Duplicate(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(&pq.Error{Code: uniqueViolation})

	err := repo.CreateUser(context.Background(), models.User{ID: "u1", Email: "a@b.c"}, "hash")
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestFindByEmail(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE lower(email) = lower($1)`)).
		WithArgs("Head@Campus.edu").
		WillReturnRows(sqlmock.NewRows(append(userCols, "password_hash")).
			AddRow("h1", "hana", "head@campus.edu", "Hana Head", "CS", "head", "$2a$hash"))

	u, hash, err := repo.FindByEmail(context.Background(), "Head@Campus.edu")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Role != models.RoleHead || u.Department != "CS" {
		t.Errorf("unexpected user %+v", u)
	}
	if hash != "$2a$hash" {
		t.Errorf("hash = %q", hash)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestFindByEmail_NotFound(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE lower(email)`)).
		WillReturnRows(sqlmock.NewRows(append(userCols, "password_hash")))

	_, _, err := repo.FindByEmail(context.Background(), "nobody@campus.edu")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFindByID(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("s1", "sam", "sam@campus.edu", "Sam", "", "student"))

	u, err := repo.FindByID(context.Background(), "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Email != "sam@campus.edu" || u.Role != models.RoleStudent {
		t.Errorf("unexpected user %+v", u)
	}
}

func TestReplacePassword_RevokesTokens(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET password_hash = $1 WHERE id = $2`)).
		WithArgs("newhash", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE issued_tokens SET revoked = TRUE WHERE user_id = $1`)).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	n, err := repo.ReplacePassword(context.Background(), "u1", "newhash")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("revoked = %d; want 2", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestReplacePassword_UnknownUserRollsBack(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET password_hash`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.ReplacePassword(context.Background(), "ghost", "h")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestListUsers(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users ORDER BY email`)).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("a1", "root", "admin@campus.edu", "Ada Admin", "", "admin").
			AddRow("s1", "sam", "sam@campus.edu", "Sam", "", "student"))

	users, err := repo.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 2 || users[0].Role != models.RoleAdmin {
		t.Errorf("unexpected users %+v", users)
	}
}

func TestListUsers_QueryError(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users`)).WillReturnError(errors.New("query failed"))

	if _, err := repo.ListUsers(context.Background()); err == nil {
		t.Error("expected error, got nil")
	}
}
