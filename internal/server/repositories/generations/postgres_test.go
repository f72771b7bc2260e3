package generations

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const (
	getQuery = `(?s)^SELECT\s+generation\s+FROM\s+generations\s+WHERE\s+filename\s*=\s*\$1$`
	incQuery = `(?s)INSERT\s+INTO\s+generations\s*\(filename,\s*generation,\s*updated_at\)\s*VALUES\s*\(\$1,\s*1,\s*now\(\)\)\s*ON\s+CONFLICT\s*\(filename\)\s*DO\s+UPDATE\s+SET\s+generation\s*=\s*generations\.generation\s*\+\s*1.*RETURNING\s+generation`
)

func TestGet_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(getQuery).
		WithArgs("report.docx").
		WillReturnRows(sqlmock.NewRows([]string{"generation"}).AddRow(int64(3)))

	got, err := repo.Get(context.Background(), "report.docx")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got != 3 {
		t.Fatalf("got %d, want 3", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGet_AbsentIsZero(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(getQuery).
		WithArgs("new.docx").
		WillReturnError(sql.ErrNoRows)

	got, err := repo.Get(context.Background(), "new.docx")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got != 0 {
		t.Fatalf("got %d, want 0", got)
	}
}

func TestGet_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(getQuery).
		WithArgs("report.docx").
		WillReturnError(errors.New("db down"))

	_, err := repo.Get(context.Background(), "report.docx")
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestIncrement_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(incQuery).
		WithArgs("report.docx").
		WillReturnRows(sqlmock.NewRows([]string{"generation"}).AddRow(int64(4)))

	got, err := repo.Increment(context.Background(), "report.docx")
	if err != nil {
		t.Fatalf("Increment error: %v", err)
	}
	if got != 4 {
		t.Fatalf("got %d, want 4", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIncrement_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(incQuery).
		WithArgs("report.docx").
		WillReturnError(errors.New("deadlock"))

	_, err := repo.Increment(context.Background(), "report.docx")
	if err == nil || !regexp.MustCompile(`db error: .*deadlock`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
