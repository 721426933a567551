package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/pulse/internal/domain/model"
)

func eventRows() *sqlmock.Rows {
	return sqlmock.NewRows(Columns)
}

func TestPostgresStore_Events(t *testing.T) {
	ctx := context.Background()
	since := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ts := since.Add(time.Hour)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := eventRows().
		AddRow("e1", "feature_use", "dev-1", "s-1", ts, []byte(`{"feature_name":"export"}`),
			"Windows NT 10.0", "2.1.0", int64(1920), int64(1080),
			"ko-KR", "DESK-1", "203.0.113.7", ts).
		AddRow("e2", "feature_use", "dev-2", nil, ts.Add(time.Minute), nil,
			nil, nil, nil, nil,
			nil, nil, nil, nil)

	mock.ExpectQuery(`SELECT (.+) FROM "telemetry_events" WHERE 1=1 AND event_name = \$1 AND timestamp >= \$2 ORDER BY timestamp ASC, id ASC`).
		WithArgs("feature_use", since).
		WillReturnRows(rows)

	store := NewPostgresStore(db)
	events, err := store.Events(ctx, Query{EventName: model.EventFeatureUse, Since: since})
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "export", events[0].Prop(model.PropFeatureName))
	assert.Equal(t, 1920, events[0].ScreenWidth)
	assert.Equal(t, "203.0.113.7", events[0].IPAddress)
	assert.Equal(t, "", events[1].SessionID)
	assert.Nil(t, events[1].Properties)
	assert.Equal(t, 0, events[1].ScreenHeight)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecentQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM "telemetry_events" WHERE 1=1 ORDER BY timestamp DESC, id DESC LIMIT \$1`).
		WithArgs(50).
		WillReturnRows(eventRows())

	events, err := NewPostgresStore(db).Events(context.Background(), Query{Descending: true, Limit: 50})
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_WindowAndIPFilter(t *testing.T) {
	since := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	until := since.AddDate(0, 0, 7)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`timestamp >= \$1 AND timestamp < \$2 AND ip_address IS NOT NULL AND ip_address <> ''`).
		WithArgs(since, until).
		WillReturnRows(eventRows())

	_, err = NewPostgresStore(db).Events(context.Background(), Query{Since: since, Until: until, RequireIP: true})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection reset"))

	events, err := NewPostgresStore(db).Events(context.Background(), Query{})
	assert.Nil(t, events)
	assert.ErrorIs(t, err, ErrQuery)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_BadProperties(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := time.Now().UTC()
	mock.ExpectQuery("SELECT").WillReturnRows(eventRows().AddRow(
		"e1", "app_start", "dev-1", nil, ts, []byte(`[1,2]`),
		nil, nil, nil, nil, nil, nil, nil, nil))

	_, err = NewPostgresStore(db).Events(context.Background(), Query{})
	assert.ErrorIs(t, err, ErrQuery)
}

func TestPostgresStore_InsertEvents(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	events := []model.Event{
		{ID: "e1", EventName: model.EventAppStart, DeviceID: "dev-1", Timestamp: ts, AppVersion: "2.0.0"},
		{ID: "e2", EventName: model.EventFeatureUse, DeviceID: "dev-1", Timestamp: ts,
			Properties: model.Properties{model.PropFeatureName: "export"}},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`COPY "telemetry_events"`)
	prep.ExpectExec().
		WithArgs("e1", "app_start", "dev-1", nil, ts, "{}", nil, "2.0.0", 0, 0, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs("e2", "feature_use", "dev-1", nil, ts, `{"feature_name":"export"}`, nil, nil, 0, 0, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	n, err := NewPostgresStore(db).InsertEvents(context.Background(), events)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`COPY "telemetry_events"`)
	prep.ExpectExec().WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	_, err = NewPostgresStore(db).InsertEvents(context.Background(), []model.Event{{ID: "e1", Timestamp: time.Now()}})
	assert.ErrorIs(t, err, ErrInsert)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDisabledStore(t *testing.T) {
	s := NewDisabledStore()

	events, err := s.Events(context.Background(), Query{EventName: model.EventAppStart})
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
	assert.Equal(t, "disabled", s.Name())

	_, err = s.InsertEvents(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
