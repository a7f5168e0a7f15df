package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/diabetes-risk/internal/pipeline"
	"github.com/Skufu/diabetes-risk/internal/risk"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestRecord(t *testing.T) {
	mock := newMock(t)
	s := New(mock)

	o := pipeline.Outcome{
		ID:          uuid.New(),
		Probability: 0.3,
		Tier:        risk.Medium,
		Model:       "stub",
		AdviceOK:    true,
		CreatedAt:   time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC),
	}
	mock.ExpectExec("INSERT INTO assessments").
		WithArgs(o.ID, 0.3, "Medium", "stub", true, o.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.Record(context.Background(), o))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord_Error(t *testing.T) {
	mock := newMock(t)
	s := New(mock)

	mock.ExpectExec("INSERT INTO assessments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	err := s.Record(context.Background(), pipeline.Outcome{ID: uuid.New()})
	assert.ErrorContains(t, err, "insert assessment")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInitSchema(t *testing.T) {
	mock := newMock(t)
	s := New(mock)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS assessments").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, s.InitSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPing(t *testing.T) {
	mock := newMock(t)
	s := New(mock)

	mock.ExpectPing()
	assert.NoError(t, s.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("down"))
	assert.Error(t, s.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnect_BadURL(t *testing.T) {
	_, err := Connect(context.Background(), "://not-a-url")
	assert.ErrorContains(t, err, "parse db url")
}
