package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/Al0olo/Cloud-Government/internal/model"
)

func newAppMock(t *testing.T) (*ApplicationRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewApplicationRepo(db), mock
}

func appRow(id, userID uint64, appType, status, data string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "user_id", "type", "status", "data", "created_at", "updated_at",
	}).AddRow(id, userID, appType, status, []byte(data), now, now)
}

func TestApplicationCreateTx(t *testing.T) {
	repo, mock := newAppMock(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO applications").
		WithArgs(uint64(42), model.TypeBuildingPermit, model.StatusDraft, []byte(`{"address":"1 Main St"}`)).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectQuery("SELECT (.+) FROM applications WHERE id=").
		WithArgs(int64(11)).
		WillReturnRows(appRow(11, 42, model.TypeBuildingPermit, model.StatusDraft, `{"address":"1 Main St"}`))
	mock.ExpectCommit()

	tx, err := repo.DB().BeginTx(ctx, nil)
	require.NoError(t, err)
	app, err := repo.CreateTx(ctx, tx, 42, model.TypeBuildingPermit, []byte(`{"address":"1 Main St"}`))
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	require.EqualValues(t, 11, app.ID)
	require.Equal(t, model.StatusDraft, app.Status)
	require.JSONEq(t, `{"address":"1 Main St"}`, string(app.Data))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationGetScopedToOwner(t *testing.T) {
	repo, mock := newAppMock(t)

	// Someone else's application looks exactly like a missing one.
	mock.ExpectQuery("SELECT (.+) FROM applications WHERE id=(.+) AND user_id=").
		WithArgs(uint64(11), uint64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByIDForUser(context.Background(), 11, 99)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationUpdateTxCoalesce(t *testing.T) {
	repo, mock := newAppMock(t)
	ctx := context.Background()

	// Omitting the status passes nil so the stored value wins.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE applications").
		WithArgs([]byte(`{"floors":3}`), nil, uint64(11), uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM applications WHERE id=(.+) AND user_id=").
		WithArgs(uint64(11), uint64(42)).
		WillReturnRows(appRow(11, 42, model.TypeBuildingPermit, model.StatusSubmitted, `{"floors":3}`))
	mock.ExpectCommit()

	tx, err := repo.DB().BeginTx(ctx, nil)
	require.NoError(t, err)
	app, err := repo.UpdateTx(ctx, tx, 11, 42, []byte(`{"floors":3}`), nil)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	require.Equal(t, model.StatusSubmitted, app.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationListAttachesDocuments(t *testing.T) {
	repo, mock := newAppMock(t)
	now := time.Now()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(uint64(42), model.StatusSubmitted).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery("SELECT (.+) FROM applications WHERE user_id =").
		WithArgs(uint64(42), model.StatusSubmitted, 2, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "type", "status", "data", "created_at", "updated_at",
		}).
			AddRow(21, 42, model.TypeBuildingPermit, model.StatusSubmitted, []byte(`{}`), now, now).
			AddRow(20, 42, model.TypeZoningRequest, model.StatusSubmitted, []byte(`{}`), now, now))
	mock.ExpectQuery("SELECT (.+) FROM documents WHERE application_id IN").
		WithArgs(uint64(21), uint64(20)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "application_id", "type", "path", "status",
			"verified_at", "verified_by", "metadata", "created_at", "updated_at",
		}).
			AddRow(5, 21, "site_plan", "documents/a.pdf", model.DocPending, nil, nil, nil, now, now).
			AddRow(6, 21, "property_deed", "documents/b.pdf", model.DocPending, nil, nil, nil, now, now))

	apps, total, err := repo.List(context.Background(), 42, ListFilter{
		Status: model.StatusSubmitted, Page: 1, Limit: 2,
	})
	require.NoError(t, err)
	require.Equal(t, 12, total)
	require.Len(t, apps, 2)
	require.Len(t, apps[0].Documents, 2)
	require.Empty(t, apps[1].Documents)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationCountByStatus(t *testing.T) {
	repo, mock := newAppMock(t)

	mock.ExpectQuery("SELECT status, COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow(model.StatusDraft, 3).
			AddRow(model.StatusApproved, 1))

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string]int{model.StatusDraft: 3, model.StatusApproved: 1}, counts)
	require.NoError(t, mock.ExpectationsWereMet())
}
