package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoSvEinTe/proyecto-flota/internal/models"
)

func maintenanceReq(cost int64) *models.MaintenanceRequest {
	return &models.MaintenanceRequest{
		Type:        string(models.MaintenancePreventive),
		Description: "Cambio de aceite y filtros",
		PerformedOn: "2026-03-08",
		Odometer:    int64Ptr(900),
		Cost:        int64Ptr(cost),
	}
}

func requireWorkflowError(t *testing.T, err error, target error) {
	t.Helper()
	require.Error(t, err)
	var we *models.WorkflowError
	require.True(t, errors.As(err, &we), "expected WorkflowError, got %v", err)
	assert.True(t, errors.Is(err, target), "expected %v, got %v", target, err)
}

func TestStart(t *testing.T) {
	f := newFleet(t)
	ctx := context.Background()
	trip, err := f.linking.CreateSingleTrip(ctx, f.tripRequest())
	require.NoError(t, err)

	rec, err := f.workflow.Start(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, trip.ID, rec.TripID)
	assert.Equal(t, models.StepInitialOdometer, rec.CurrentStep)
	assert.Equal(t, int64(0), rec.TotalCost)
	assert.Equal(t, models.TripStatusInProgress, f.db.trip(trip.ID).Status)

	_, err = f.workflow.Start(ctx, trip.ID)
	var dup *models.DuplicateCostRecordError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, trip.ID, dup.TripID)
	assert.Len(t, f.db.costs, 1)

	_, err = f.workflow.Start(ctx, "missing-trip")
	assert.True(t, models.IsNotFound(err))
}

func TestStart_KeepsNonScheduledStatus(t *testing.T) {
	f := newFleet(t)
	trip := f.seedTrip(models.Trip{ID: "t-cancelled", DepartureAt: f.now, Status: models.TripStatusCancelled})

	_, err := f.workflow.Start(context.Background(), trip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusCancelled, f.db.trip(trip.ID).Status)
}

func TestWorkflow_FullRun(t *testing.T) {
	f := newFleet(t)
	ctx := context.Background()
	rec := f.startedRecord(t)

	rec, err := f.workflow.SetInitialOdometer(ctx, rec.ID, 1000)
	require.NoError(t, err)
	assert.Equal(t, models.StepMaintenance, rec.CurrentStep)

	rec, m, err := f.workflow.RecordMaintenance(ctx, rec.ID, maintenanceReq(50000))
	require.NoError(t, err)
	assert.Equal(t, busID, m.BusID)
	assert.Equal(t, models.StepTolls, rec.CurrentStep)
	assert.Equal(t, int64(50000), rec.MaintenanceCost)
	assert.Equal(t, []string{m.ID}, f.db.linkedMaintenance(rec.ID))

	rec, tolls, err := f.workflow.RecordTolls(ctx, rec.ID, []models.TollRequest{
		tollReq("Peaje Lo Prado", 3200, f.now),
		tollReq("Peaje Zapata", 2800, f.now),
	})
	require.NoError(t, err)
	assert.Len(t, tolls, 2)
	assert.Equal(t, models.StepFuelStops, rec.CurrentStep)
	assert.Equal(t, int64(6000), rec.TollsCost)

	rec, stops, err := f.workflow.RecordFuelStops(ctx, rec.ID, []models.FuelStopRequest{
		*fuelReq(1, 1150, "40", 1000),
		*fuelReq(2, 1300, "35", 1050),
	})
	require.NoError(t, err)
	assert.Len(t, stops, 2)
	assert.Equal(t, models.StepFinalOdometer, rec.CurrentStep)
	assert.Equal(t, int64(76750), rec.FuelCost)

	rec, err = f.workflow.SetFinalOdometer(ctx, rec.ID, 1420)
	require.NoError(t, err)
	assert.Equal(t, models.StepCompleted, rec.CurrentStep)
	require.NotNil(t, rec.FinalOdometer)
	assert.Equal(t, int64(1420), *rec.FinalOdometer)
	require.NotNil(t, rec.CompletedAt)
	assert.True(t, rec.CompletedAt.Equal(f.now))
	assert.Equal(t, int64(50000+6000+76750), rec.TotalCost)
	assertTotalInvariant(t, f.db.cost(rec.ID))
	assert.Equal(t, models.TripStatusCompleted, f.db.trip(rec.TripID).Status)
}

func TestWorkflow_SkipsKeepData(t *testing.T) {
	f := newFleet(t)
	ctx := context.Background()
	rec := recordWithInitial(t, f, 1000)

	rec, err := f.workflow.SkipMaintenance(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepTolls, rec.CurrentStep)
	rec, err = f.workflow.SkipTolls(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepFuelStops, rec.CurrentStep)

	// Data entered directly is kept when the step is skipped
	_, err = f.engine.AddFuelStop(ctx, rec.ID, fuelReq(1, 1150, "40", 1000))
	require.NoError(t, err)
	rec, err = f.workflow.SkipFuelStops(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepFinalOdometer, rec.CurrentStep)
	assert.Equal(t, int64(40000), rec.FuelCost)
	require.NotNil(t, rec.InitialOdometer)
	assert.Equal(t, int64(1000), *rec.InitialOdometer)
}

func TestWorkflow_StepOrder(t *testing.T) {
	f := newFleet(t)
	ctx := context.Background()
	rec := f.startedRecord(t)

	_, err := f.workflow.SkipMaintenance(ctx, rec.ID)
	requireWorkflowError(t, err, models.ErrStepOutOfOrder)

	_, _, err = f.workflow.RecordTolls(ctx, rec.ID, []models.TollRequest{tollReq("Peaje", 100, f.now)})
	requireWorkflowError(t, err, models.ErrStepOutOfOrder)
	assert.Empty(t, f.db.tolls)

	_, err = f.workflow.SetFinalOdometer(ctx, rec.ID, 5000)
	requireWorkflowError(t, err, models.ErrStepOutOfOrder)
	assert.Equal(t, models.StepInitialOdometer, f.db.cost(rec.ID).CurrentStep)

	_, err = f.workflow.SetInitialOdometer(ctx, "missing", 10)
	assert.True(t, models.IsNotFound(err))
}

func TestWorkflow_RevisitDoesNotRewind(t *testing.T) {
	f := newFleet(t)
	ctx := context.Background()
	rec := recordWithInitial(t, f, 1000)
	_, err := f.workflow.SkipMaintenance(ctx, rec.ID)
	require.NoError(t, err)
	_, err = f.workflow.SkipTolls(ctx, rec.ID)
	require.NoError(t, err)
	_, stops, err := f.workflow.RecordFuelStops(ctx, rec.ID, []models.FuelStopRequest{*fuelReq(1, 1150, "40", 1000)})
	require.NoError(t, err)

	rec, err = f.workflow.SetInitialOdometer(ctx, rec.ID, 1100)
	require.NoError(t, err)
	assert.Equal(t, models.StepFinalOdometer, rec.CurrentStep)
	assert.Equal(t, int64(1100), *rec.InitialOdometer)
	assert.Equal(t, int64(50), f.db.stops[stops[0].ID].DistanceSincePrevious)

	_, err = f.workflow.SetInitialOdometer(ctx, rec.ID, 1200)
	assert.True(t, models.IsValidationError(err))
	assert.Equal(t, int64(1100), *f.db.cost(rec.ID).InitialOdometer)

	_, err = f.workflow.SetInitialOdometer(ctx, rec.ID, -5)
	assert.True(t, models.IsValidationError(err))
}

func TestSetFinalOdometer_NotAboveInitialFails(t *testing.T) {
	for _, value := range []int64{999, 1000} {
		f := newFleet(t)
		ctx := context.Background()
		rec := recordWithInitial(t, f, 1000)
		for _, skip := range []func(context.Context, string) (*models.CostRecord, error){
			f.workflow.SkipMaintenance, f.workflow.SkipTolls, f.workflow.SkipFuelStops,
		} {
			_, err := skip(ctx, rec.ID)
			require.NoError(t, err)
		}
		before := f.db.cost(rec.ID)
		tripBefore := f.db.trip(rec.TripID)

		_, err := f.workflow.SetFinalOdometer(ctx, rec.ID, value)
		var ve *models.ValidationError
		require.True(t, errors.As(err, &ve), "value %d", value)
		assert.Equal(t, "value", ve.Field)
		assert.Equal(t, before, f.db.cost(rec.ID))
		assert.Equal(t, tripBefore, f.db.trip(rec.TripID))
	}
}

func TestSetFinalOdometer_BelowLastFuelStopFails(t *testing.T) {
	f := newFleet(t)
	ctx := context.Background()
	rec := recordWithInitial(t, f, 1000)
	_, err := f.workflow.SkipMaintenance(ctx, rec.ID)
	require.NoError(t, err)
	_, err = f.workflow.SkipTolls(ctx, rec.ID)
	require.NoError(t, err)
	_, _, err = f.workflow.RecordFuelStops(ctx, rec.ID, []models.FuelStopRequest{*fuelReq(1, 1300, "40", 1000)})
	require.NoError(t, err)

	_, err = f.workflow.SetFinalOdometer(ctx, rec.ID, 1200)
	assert.True(t, models.IsValidationError(err))
	assert.Equal(t, models.StepFinalOdometer, f.db.cost(rec.ID).CurrentStep)

	rec, err = f.workflow.SetFinalOdometer(ctx, rec.ID, 1300)
	require.NoError(t, err)
	assert.True(t, rec.IsCompleted())
}

func TestWorkflow_CompletedRejectsSteps(t *testing.T) {
	f := newFleet(t)
	ctx := context.Background()
	rec := recordWithInitial(t, f, 1000)
	for _, skip := range []func(context.Context, string) (*models.CostRecord, error){
		f.workflow.SkipMaintenance, f.workflow.SkipTolls, f.workflow.SkipFuelStops,
	} {
		_, err := skip(ctx, rec.ID)
		require.NoError(t, err)
	}
	_, err := f.workflow.SetFinalOdometer(ctx, rec.ID, 1500)
	require.NoError(t, err)

	_, err = f.workflow.SetInitialOdometer(ctx, rec.ID, 900)
	requireWorkflowError(t, err, models.ErrWorkflowCompleted)
	_, err = f.workflow.SetFinalOdometer(ctx, rec.ID, 1600)
	requireWorkflowError(t, err, models.ErrWorkflowCompleted)
	_, _, err = f.workflow.RecordMaintenance(ctx, rec.ID, maintenanceReq(100))
	requireWorkflowError(t, err, models.ErrWorkflowCompleted)

	// Direct mutation is still allowed after completion
	updated, err := f.engine.SetOtherCosts(ctx, rec.ID, 5000, "ajuste")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), updated.TotalCost)
	assert.True(t, updated.IsCompleted())
}

func TestSetFinalOdometer_CompletesLinkedLeg(t *testing.T) {
	f := newFleet(t)
	ctx := context.Background()
	outbound, returnTrip, err := f.linking.CreateRoundTrip(ctx, f.tripRequest())
	require.NoError(t, err)

	rec, err := f.workflow.Start(ctx, outbound.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusScheduled, f.db.trip(returnTrip.ID).Status)

	_, err = f.workflow.SetInitialOdometer(ctx, rec.ID, 1000)
	require.NoError(t, err)
	for _, skip := range []func(context.Context, string) (*models.CostRecord, error){
		f.workflow.SkipMaintenance, f.workflow.SkipTolls, f.workflow.SkipFuelStops,
	} {
		_, err := skip(ctx, rec.ID)
		require.NoError(t, err)
	}

	_, err = f.workflow.SetFinalOdometer(ctx, rec.ID, 1240)
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusCompleted, f.db.trip(outbound.ID).Status)
	assert.Equal(t, models.TripStatusCompleted, f.db.trip(returnTrip.ID).Status)

	_, err = f.db.costsStore().GetByTripID(ctx, returnTrip.ID)
	assert.True(t, models.IsNotFound(err), "the linked leg gets no cost record of its own")
}

func TestSetFinalOdometer_RollsBackWhenLinkedLegFails(t *testing.T) {
	f := newFleet(t)
	ctx := context.Background()
	outbound, returnTrip, err := f.linking.CreateRoundTrip(ctx, f.tripRequest())
	require.NoError(t, err)
	rec, err := f.workflow.Start(ctx, outbound.ID)
	require.NoError(t, err)
	_, err = f.workflow.SetInitialOdometer(ctx, rec.ID, 1000)
	require.NoError(t, err)
	for _, skip := range []func(context.Context, string) (*models.CostRecord, error){
		f.workflow.SkipMaintenance, f.workflow.SkipTolls, f.workflow.SkipFuelStops,
	} {
		_, err := skip(ctx, rec.ID)
		require.NoError(t, err)
	}
	before := f.db.cost(rec.ID)
	f.db.failCall("trips.UpdateStatus", 2)

	_, err = f.workflow.SetFinalOdometer(ctx, rec.ID, 1200)
	assert.True(t, errors.Is(err, errInjected))
	assert.Equal(t, before, f.db.cost(rec.ID))
	assert.Equal(t, models.TripStatusInProgress, f.db.trip(outbound.ID).Status)
	assert.Equal(t, models.TripStatusScheduled, f.db.trip(returnTrip.ID).Status)
}

func TestRecordFuelStops_AllOrNothing(t *testing.T) {
	f := newFleet(t)
	ctx := context.Background()
	rec := recordWithInitial(t, f, 1000)
	_, err := f.workflow.SkipMaintenance(ctx, rec.ID)
	require.NoError(t, err)
	_, err = f.workflow.SkipTolls(ctx, rec.ID)
	require.NoError(t, err)

	_, _, err = f.workflow.RecordFuelStops(ctx, rec.ID, []models.FuelStopRequest{
		*fuelReq(1, 1150, "40", 1000),
		*fuelReq(2, 1100, "35", 1050),
	})
	assert.True(t, models.IsValidationError(err))
	assert.Empty(t, f.db.stops)
	stored := f.db.cost(rec.ID)
	assert.Equal(t, models.StepFuelStops, stored.CurrentStep)
	assert.Equal(t, int64(0), stored.FuelCost)

	_, _, err = f.workflow.RecordFuelStops(ctx, rec.ID, nil)
	assert.True(t, models.IsValidationError(err))
	_, _, err = f.workflow.RecordTolls(ctx, rec.ID, nil)
	assert.True(t, models.IsValidationError(err))
}

func TestRecordMaintenance_InvalidRequest(t *testing.T) {
	f := newFleet(t)
	ctx := context.Background()
	rec := recordWithInitial(t, f, 1000)

	req := maintenanceReq(1000)
	req.Odometer = int64Ptr(100)
	_, _, err := f.workflow.RecordMaintenance(ctx, rec.ID, req)
	assert.True(t, models.IsValidationError(err), "odometer below the bus entry odometer")

	req = maintenanceReq(1000)
	req.PerformedOn = "2026-03-11"
	_, _, err = f.workflow.RecordMaintenance(ctx, rec.ID, req)
	assert.True(t, models.IsValidationError(err), "maintenance in the future")

	assert.Empty(t, f.db.maintenance)
	assert.Equal(t, models.StepMaintenance, f.db.cost(rec.ID).CurrentStep)
}
