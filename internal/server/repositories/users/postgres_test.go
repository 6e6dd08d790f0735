package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/dovol/internal/common"
	"github.com/dmitrijs2005/dovol/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var (
	ts      = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	userCol = []string{"id", "email", "password_hash", "role", "full_name", "location", "is_active", "created_at", "updated_at"}
)

const insertQ = `(?s)^INSERT\s+INTO\s+users\s*\(email,\s*password_hash,\s*role,\s*full_name,\s*location,\s*is_active,\s*created_at,\s*updated_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6,\s*\$7,\s*\$8\)\s*RETURNING\s+id\s*$`

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id"}).AddRow("42")
	mock.ExpectQuery(insertQ).
		WithArgs("alice@example.com", "hash", "volunteer", "Alice", "Riga", true, ts, ts).
		WillReturnRows(rows)

	u := &models.User{Email: "Alice@Example.com", PasswordHash: "hash", Role: models.RoleVolunteer,
		FullName: "Alice", Location: "Riga", IsActive: true, CreatedAt: ts, UpdatedAt: ts}
	got, err := repo.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != "42" || got.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCreate_UniqueViolationIsConflict(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_uq"})

	_, err := repo.Create(context.Background(), &models.User{Email: "a@b.c", Role: models.RoleNGO})
	if !errors.Is(err, common.ErrorConflict) {
		t.Fatalf("want common.ErrorConflict, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{Email: "a@b.c", Role: models.RoleNGO})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*email,.*FROM\s+users\s+WHERE\s+lower\(email\)\s*=\s*lower\(\$1\)\s*$`

	rows := sqlmock.NewRows(userCol).
		AddRow("u-1", "alice@example.com", "hash", "ngo", "Alice", "", true, ts, ts)
	mock.ExpectQuery(q).
		WithArgs("ALICE@example.com").
		WillReturnRows(rows)

	got, err := repo.GetByEmail(context.Background(), "ALICE@example.com")
	if err != nil {
		t.Fatalf("GetByEmail error: %v", err)
	}
	if got.ID != "u-1" || got.Role != models.RoleNGO || !got.IsActive {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestGetByEmail_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT.*FROM\s+users\s+WHERE\s+lower\(email\)`).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "ghost@example.com")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGetByID_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`).
		WithArgs("u-1").
		WillReturnError(errors.New("db err"))

	_, err := repo.GetByID(context.Background(), "u-1")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	q := `(?s)^UPDATE\s+users\s+SET\s+password_hash\s*=\s*\$2,\s*role\s*=\s*\$3,.*WHERE\s+id\s*=\s*\$1\s*$`
	u := &models.User{ID: "u-1", PasswordHash: "h2", Role: models.RoleVolunteer, FullName: "A", IsActive: false, UpdatedAt: ts}

	t.Run("ok", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(q).
			WithArgs("u-1", "h2", "volunteer", "A", "", false, ts).
			WillReturnResult(sqlmock.NewResult(0, 1))

		if err := repo.Update(context.Background(), u); err != nil {
			t.Fatalf("Update error: %v", err)
		}
	})

	t.Run("missing row", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(q).WillReturnResult(sqlmock.NewResult(0, 0))

		if err := repo.Update(context.Background(), u); !errors.Is(err, common.ErrorNotFound) {
			t.Fatalf("want common.ErrorNotFound, got %v", err)
		}
	})
}

func TestList_ParameterisedFilters(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	active := true
	q := `(?s)^SELECT\s+id,.*FROM\s+users\s+WHERE\s+role\s*=\s*\$1\s+AND\s+is_active\s*=\s*\$2\s+AND\s+\(full_name\s+ILIKE\s+\$3\s+ESCAPE\s+'\\'\s+OR\s+email\s+ILIKE\s+\$3\s+ESCAPE\s+'\\'\)\s+ORDER\s+BY\s+created_at\s+DESC\s+LIMIT\s+\$4\s+OFFSET\s+\$5$`

	rows := sqlmock.NewRows(userCol).
		AddRow("u-1", "a@x.io", "h", "volunteer", "Ann", "", true, ts, ts).
		AddRow("u-2", "b@x.io", "h", "volunteer", "Bob", "", true, ts, ts)
	mock.ExpectQuery(q).
		WithArgs("volunteer", true, "%'; DROP TABLE users; --%", 10, 0).
		WillReturnRows(rows)

	got, err := repo.List(context.Background(), models.UserFilter{
		Role: models.RoleVolunteer, Active: &active, Search: "'; DROP TABLE users; --", Limit: 10,
	})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(got) != 2 || got[1].FullName != "Bob" {
		t.Fatalf("unexpected users: %+v", got)
	}
}

func TestList_NoFilters(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+users\s+ORDER\s+BY\s+created_at\s+DESC\s+LIMIT\s+\$1\s+OFFSET\s+\$2$`).
		WithArgs(100, 5).
		WillReturnRows(sqlmock.NewRows(userCol))

	got, err := repo.List(context.Background(), models.UserFilter{Limit: 100, Skip: 5})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no users, got %d", len(got))
	}
}

func TestCounts(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"role", "is_active", "count"}).
		AddRow("volunteer", true, 5).
		AddRow("volunteer", false, 2).
		AddRow("admin", true, 1)
	mock.ExpectQuery(`(?s)^SELECT\s+role,\s*is_active,\s*COUNT\(\*\)\s+FROM\s+users\s+GROUP\s+BY\s+role,\s*is_active\s*$`).
		WillReturnRows(rows)

	c, err := repo.Counts(context.Background())
	if err != nil {
		t.Fatalf("Counts error: %v", err)
	}
	if c.Total != 8 || c.Active != 6 || c.ByRole[models.RoleVolunteer] != 7 || c.ByRole[models.RoleAdmin] != 1 {
		t.Fatalf("unexpected counts: %+v", c)
	}
}
