package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var maintenanceColumnNames = []string{
	"id", "bus_id", "type", "description", "performed_on", "odometer", "cost",
	"workshop", "notes", "created_at", "updated_at",
}

var busColumnNames = []string{
	"id", "license_plate", "brand", "model", "year", "capacity", "entry_odometer",
	"chassis_number", "engine_number", "status", "acquired_on", "notes", "created_at", "updated_at",
}

func maintenanceRow(cost int64) *sqlmock.Rows {
	created := time.Date(2026, 2, 20, 10, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(maintenanceColumnNames).AddRow(
		"maint-1", "bus-1", "preventive", "Cambio de aceite", time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC),
		int64(152000), cost, nil, nil, created, created,
	)
}

func TestUpdateMaintenance(t *testing.T) {
	api := setupTestAPI(t)
	created := time.Date(2026, 2, 20, 10, 0, 0, 0, time.UTC)
	performed := time.Date(2026, 2, 21, 0, 0, 0, 0, time.UTC)

	api.mock.ExpectQuery(`FROM maintenance m WHERE m.id = \$1`).
		WithArgs("maint-1").
		WillReturnRows(maintenanceRow(50000))
	api.mock.ExpectQuery(`FROM buses WHERE id = \$1`).
		WithArgs("bus-1").
		WillReturnRows(sqlmock.NewRows(busColumnNames).AddRow(
			"bus-1", "ABCD12", "Mercedes-Benz", "O500", 2020, 44, int64(100000),
			nil, nil, "active", created, nil, created, created,
		))
	api.mock.ExpectBegin()
	api.mock.ExpectQuery(`FROM maintenance m WHERE m.id = \$1`).
		WithArgs("maint-1").
		WillReturnRows(maintenanceRow(50000))
	api.mock.ExpectQuery(`SELECT cost_record_id FROM cost_record_maintenance WHERE maintenance_id = \$1`).
		WithArgs("maint-1").
		WillReturnRows(sqlmock.NewRows([]string{"cost_record_id"}))
	api.mock.ExpectQuery(`UPDATE maintenance`).
		WithArgs("maint-1", "bus-1", "corrective", "Cambio de pastillas de freno", performed,
			int64(152300), int64(85000), "Taller Los Andes", nil).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(created, time.Now()))
	api.mock.ExpectCommit()

	w := api.do(http.MethodPut, "/api/v1/maintenance/maint-1", map[string]interface{}{
		"type":         "corrective",
		"description":  " Cambio de pastillas de freno ",
		"performed_on": "2026-02-21",
		"odometer":     152300,
		"cost":         85000,
		"workshop":     "Taller Los Andes",
	}, "operator")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	item := body["maintenance"].(map[string]interface{})
	assert.Equal(t, "maint-1", item["id"])
	assert.Equal(t, "bus-1", item["bus_id"])
	assert.Equal(t, float64(85000), item["cost"])
	assert.Empty(t, body["cost_records"])
	assert.NoError(t, api.mock.ExpectationsWereMet())
}

func TestUpdateMaintenance_NotFound(t *testing.T) {
	api := setupTestAPI(t)

	api.mock.ExpectQuery(`FROM maintenance m WHERE m.id = \$1`).
		WithArgs("maint-missing").
		WillReturnRows(sqlmock.NewRows(maintenanceColumnNames))

	w := api.do(http.MethodPut, "/api/v1/maintenance/maint-missing", map[string]interface{}{
		"type":         "corrective",
		"description":  "Frenos",
		"performed_on": "2026-02-21",
		"odometer":     152300,
		"cost":         85000,
	}, "operator")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, api.mock.ExpectationsWereMet())
}
