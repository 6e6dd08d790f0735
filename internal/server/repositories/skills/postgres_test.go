package skills

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/dovol/internal/common"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestEnsure_Upserts(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+skills\s*\(name\)\s*VALUES\s*\(\$1\)\s*ON\s+CONFLICT\s*\(name\)\s*DO\s+UPDATE.*RETURNING\s+id,\s*name\s*$`
	mock.ExpectQuery(q).WithArgs("first aid").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("s-1", "first aid"))

	s, err := repo.Ensure(context.Background(), "first aid")
	if err != nil || s.ID != "s-1" {
		t.Fatalf("Ensure = %+v, %v", s, err)
	}
}

func TestListForUser(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+s\.id,\s*s\.name\s+FROM\s+skills\s+s\s+JOIN\s+volunteer_skills\s+vs.*WHERE\s+vs\.user_id\s*=\s*\$1`
	mock.ExpectQuery(q).WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("s-1", "cooking").AddRow("s-2", "driving"))

	got, err := repo.ListForUser(context.Background(), "u-1")
	if err != nil || len(got) != 2 || got[1].Name != "driving" {
		t.Fatalf("ListForUser = %+v, %v", got, err)
	}
}

func TestUnlink(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `^DELETE\s+FROM\s+volunteer_skills\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+skill_id\s*=\s*\$2$`
	mock.ExpectExec(q).WithArgs("u-1", "s-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("u-1", "s-9").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Unlink(context.Background(), "u-1", "s-1"); err != nil {
		t.Fatalf("Unlink error: %v", err)
	}
	if err := repo.Unlink(context.Background(), "u-1", "s-9"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestUnlinkAll_BindsUserID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^DELETE\s+FROM\s+volunteer_skills\s+WHERE\s+user_id\s*=\s*\$1$`).
		WithArgs("u-1' OR '1'='1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.UnlinkAll(context.Background(), "u-1' OR '1'='1"); err != nil {
		t.Fatalf("UnlinkAll error: %v", err)
	}
}

func TestLink_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^INSERT\s+INTO\s+volunteer_skills`).WillReturnError(errors.New("db err"))

	err := repo.Link(context.Background(), "u-1", "s-1")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
