package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var costRecordColumnNames = []string{
	"id", "trip_id", "current_step", "initial_odometer", "final_odometer", "fuel_cost",
	"maintenance_cost", "tolls_cost", "other_costs", "total_cost", "notes",
	"completed_at", "created_at", "updated_at",
}

func costRecordRow(id, step string, initial interface{}) *sqlmock.Rows {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(costRecordColumnNames).AddRow(
		id, "trip-1", step, initial, nil, int64(76750),
		int64(50000), int64(6000), int64(0), int64(132750), "",
		nil, now, now,
	)
}

func TestGetCostRecord(t *testing.T) {
	api := setupTestAPI(t)

	api.mock.ExpectQuery(`FROM cost_records WHERE id = \$1`).
		WithArgs("cost-1").
		WillReturnRows(costRecordRow("cost-1", "tolls_pending", int64(1000)))

	w := api.do(http.MethodGet, "/api/v1/cost-records/cost-1", nil, "operator")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "tolls_pending", body["current_step"])
	assert.Equal(t, float64(132750), body["total_cost"])
	assert.Equal(t, float64(1000), body["initial_odometer"])
	assert.NoError(t, api.mock.ExpectationsWereMet())
}

func TestListCostRecords_UnknownStep(t *testing.T) {
	api := setupTestAPI(t)

	w := api.do(http.MethodGet, "/api/v1/cost-records?step=paid", nil, "operator")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "step", decodeBody(t, w)["field"])

	w = api.do(http.MethodGet, "/api/v1/cost-records?limit=-1", nil, "operator")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWorkflow_StepOutOfOrderIsConflict(t *testing.T) {
	api := setupTestAPI(t)

	api.mock.ExpectBegin()
	api.mock.ExpectQuery(`FROM cost_records WHERE id = \$1 FOR UPDATE`).
		WithArgs("cost-1").
		WillReturnRows(costRecordRow("cost-1", "initial_odometer_pending", nil))
	api.mock.ExpectRollback()

	w := api.do(http.MethodPut, "/api/v1/cost-records/cost-1/workflow/final-odometer",
		map[string]interface{}{"value": 1420}, "operator")

	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "WORKFLOW_STEP_REJECTED", body["code"])
	assert.Equal(t, "final_odometer_pending", body["step"])
	assert.Equal(t, "initial_odometer_pending", body["current_step"])
	assert.NoError(t, api.mock.ExpectationsWereMet())
}

func TestWorkflow_CompletedRecordRejectsSkip(t *testing.T) {
	api := setupTestAPI(t)

	api.mock.ExpectBegin()
	api.mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("cost-1").
		WillReturnRows(costRecordRow("cost-1", "completed", int64(1000)))
	api.mock.ExpectRollback()

	w := api.do(http.MethodPost, "/api/v1/cost-records/cost-1/workflow/tolls/skip", nil, "operator")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.NoError(t, api.mock.ExpectationsWereMet())
}

func TestWorkflow_BindingErrors(t *testing.T) {
	api := setupTestAPI(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
	}{
		{"odometer missing", http.MethodPut, "/api/v1/cost-records/cost-1/workflow/initial-odometer", map[string]interface{}{}},
		{"odometer negative", http.MethodPut, "/api/v1/cost-records/cost-1/workflow/final-odometer", map[string]interface{}{"value": -5}},
		{"empty toll batch", http.MethodPost, "/api/v1/cost-records/cost-1/workflow/tolls", map[string]interface{}{"tolls": []interface{}{}}},
		{"empty fuel batch", http.MethodPost, "/api/v1/cost-records/cost-1/workflow/fuel-stops", map[string]interface{}{"stops": []interface{}{}}},
		{"fuel stop without location", http.MethodPost, "/api/v1/cost-records/cost-1/fuel-stops", map[string]interface{}{
			"sequence_number": 1, "odometer_reading": 1150, "liters": "40", "price_per_liter": 1000,
		}},
		{"other costs missing amount", http.MethodPut, "/api/v1/cost-records/cost-1/other-costs", map[string]interface{}{"justification": "parking"}},
		{"maintenance ids not uuids", http.MethodPut, "/api/v1/cost-records/cost-1/maintenance", map[string]interface{}{"maintenance_ids": []string{"x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(tt.method, tt.path, tt.body, "operator")
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
	assert.NoError(t, api.mock.ExpectationsWereMet())
}

func receiptRequest(t *testing.T, api *testAPI, path, contentType string, size int) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if size > 0 {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="file"; filename="boleta.png"`)
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(bytes.Repeat([]byte{0x89}, size))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+api.token("operator"))
	return req
}

var fuelStopColumnNames = []string{
	"id", "cost_record_id", "sequence_number", "odometer_reading", "liters", "price_per_liter",
	"cost", "distance_since_previous", "location", "stopped_at", "receipt_url", "notes", "created_at",
}

func TestUploadFuelStopReceipt(t *testing.T) {
	api := setupTestAPI(t)

	t.Run("file missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		api.engine.ServeHTTP(w, receiptRequest(t, api, "/api/v1/fuel-stops/stop-1/receipt", "image/png", 0))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("too large", func(t *testing.T) {
		w := httptest.NewRecorder()
		api.engine.ServeHTTP(w, receiptRequest(t, api, "/api/v1/fuel-stops/stop-1/receipt", "image/png", 2<<20))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("storage disabled", func(t *testing.T) {
		api.mock.ExpectQuery(`FROM fuel_stops WHERE id = \$1`).
			WithArgs("stop-1").
			WillReturnRows(sqlmock.NewRows(fuelStopColumnNames).AddRow(
				"stop-1", "cost-1", 1, int64(1150), "40.00", int64(1000),
				int64(40000), int64(150), "Copec Casablanca", nil, nil, nil, time.Now(),
			))

		w := httptest.NewRecorder()
		api.engine.ServeHTTP(w, receiptRequest(t, api, "/api/v1/fuel-stops/stop-1/receipt", "image/png", 512))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "FEATURE_DISABLED", decodeBody(t, w)["code"])
	})

	assert.NoError(t, api.mock.ExpectationsWereMet())
}

func TestGetCostSummary_InvalidRange(t *testing.T) {
	api := setupTestAPI(t)

	w := api.do(http.MethodGet, "/api/v1/reports/costs/summary?from=2026-03-31&to=2026-03-01", nil, "operator")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "to", decodeBody(t, w)["field"])

	w = api.do(http.MethodGet, "/api/v1/reports/costs/summary?from=01-03-2026&to=2026-03-31", nil, "operator")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "from", decodeBody(t, w)["field"])
}

func TestUpdateFuelStop(t *testing.T) {
	api := setupTestAPI(t)

	t.Run("binding", func(t *testing.T) {
		w := api.do(http.MethodPut, "/api/v1/fuel-stops/stop-1", map[string]interface{}{
			"sequence_number":  1,
			"odometer_reading": 1150,
			"liters":           "40",
		}, "operator")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("sequence number cannot change", func(t *testing.T) {
		api.mock.ExpectQuery(`FROM fuel_stops WHERE id = \$1`).
			WithArgs("stop-1").
			WillReturnRows(sqlmock.NewRows(fuelStopColumnNames).AddRow(
				"stop-1", "cost-1", 1, int64(1150), "40.00", int64(1000),
				int64(40000), int64(150), "Copec Casablanca", nil, nil, nil, time.Now(),
			))

		w := api.do(http.MethodPut, "/api/v1/fuel-stops/stop-1", map[string]interface{}{
			"sequence_number":  2,
			"odometer_reading": 1150,
			"liters":           "40",
			"price_per_liter":  1000,
			"location":         "Copec Casablanca",
		}, "operator")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "sequence_number", decodeBody(t, w)["field"])
	})

	t.Run("too many decimals", func(t *testing.T) {
		w := api.do(http.MethodPut, "/api/v1/fuel-stops/stop-1", map[string]interface{}{
			"sequence_number":  1,
			"odometer_reading": 1150,
			"liters":           "40.125",
			"price_per_liter":  1000,
			"location":         "Copec Casablanca",
		}, "operator")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "liters", decodeBody(t, w)["field"])
	})

	assert.NoError(t, api.mock.ExpectationsWereMet())
}
