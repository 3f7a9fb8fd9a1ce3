package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoSvEinTe/proyecto-flota/internal/models"
)

var costRecordColumnNames = []string{
	"id", "trip_id", "current_step", "initial_odometer", "final_odometer", "fuel_cost",
	"maintenance_cost", "tolls_cost", "other_costs", "total_cost", "notes",
	"completed_at", "created_at", "updated_at",
}

func TestCostRecordRepository_Create(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewCostRecordRepository(db)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO cost_records`).
		WithArgs(sqlmock.AnyArg(), "trip-1", models.StepInitialOdometer, nil, nil,
			int64(0), int64(0), int64(0), int64(0), int64(0), "").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	record := &models.CostRecord{TripID: "trip-1", CurrentStep: models.StepInitialOdometer}
	err := repo.Create(context.Background(), record)

	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, now, record.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCostRecordRepository_CreateDuplicate(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewCostRecordRepository(db)

	mock.ExpectQuery(`INSERT INTO cost_records`).
		WillReturnError(&pq.Error{Code: pgUniqueViolation, Constraint: "cost_records_trip_id_key"})

	err := repo.Create(context.Background(), &models.CostRecord{TripID: "trip-1", CurrentStep: models.StepInitialOdometer})

	var dup *models.DuplicateCostRecordError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "trip-1", dup.TripID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCostRecordRepository_CreateUnknownTrip(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewCostRecordRepository(db)

	mock.ExpectQuery(`INSERT INTO cost_records`).
		WillReturnError(&pq.Error{Code: pgForeignKeyViolation})

	err := repo.Create(context.Background(), &models.CostRecord{TripID: "missing", CurrentStep: models.StepInitialOdometer})
	assert.True(t, models.IsNotFound(err))
}

func TestCostRecordRepository_GetByIDForUpdate(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewCostRecordRepository(db)
	tx := NewTxManager(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM cost_records WHERE id = \$1 FOR UPDATE`).
		WithArgs("cost-1").
		WillReturnRows(sqlmock.NewRows(costRecordColumnNames).AddRow(
			"cost-1", "trip-1", "tolls_pending", int64(1000), nil, int64(0),
			int64(50000), int64(0), int64(0), int64(50000), "", nil, now, now,
		))
	mock.ExpectCommit()

	var record *models.CostRecord
	err := tx.WithinTx(context.Background(), func(ctx context.Context) error {
		var err error
		record, err = repo.GetByIDForUpdate(ctx, "cost-1")
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, models.StepTolls, record.CurrentStep)
	require.NotNil(t, record.InitialOdometer)
	assert.Equal(t, int64(1000), *record.InitialOdometer)
	assert.Nil(t, record.FinalOdometer)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCostRecordRepository_GetByIDNotFound(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewCostRecordRepository(db)

	mock.ExpectQuery(`FROM cost_records WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.True(t, models.IsNotFound(err))
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCostRecordRepository_ListFilters(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewCostRecordRepository(db)

	mock.ExpectQuery(`WHERE c.current_step = \$1 AND t.bus_id = \$2 ORDER BY c.created_at DESC, c.id LIMIT \$3 OFFSET \$4`).
		WithArgs(models.StepCompleted, "bus-1", 20, 40).
		WillReturnRows(sqlmock.NewRows(costRecordColumnNames))

	records, err := repo.List(context.Background(), models.CostRecordFilter{
		Step:   models.StepCompleted,
		BusID:  "bus-1",
		Limit:  20,
		Offset: 40,
	})

	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}
