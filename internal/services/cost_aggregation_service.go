package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/DoSvEinTe/proyecto-flota/internal/models"
)

// ErrStorageDisabled is returned when a receipt is uploaded without a storage backend
var ErrStorageDisabled = errors.New("receipt storage is not configured")

// ReceiptStorage stores receipt files and returns their public URL
type ReceiptStorage interface {
	UploadFile(ctx context.Context, body io.Reader, objectKey, contentType string) (string, error)
}

// CostAggregationService owns the derived totals of a cost record. Every
// mutator locks the record row, changes it and its children, recomputes the
// affected sums and the total, and persists it in one transaction.
type CostAggregationService struct {
	tx          Transactor
	costs       CostRecordStore
	trips       TripStore
	stops       FuelStopStore
	tolls       TollStore
	maintenance MaintenanceStore
	receipts    ReceiptStorage
	logger      *logrus.Logger
}

// NewCostAggregationService creates a new CostAggregationService. receipts may be nil.
func NewCostAggregationService(
	tx Transactor,
	costs CostRecordStore,
	trips TripStore,
	stops FuelStopStore,
	tolls TollStore,
	maintenance MaintenanceStore,
	receipts ReceiptStorage,
	logger *logrus.Logger,
) *CostAggregationService {
	return &CostAggregationService{
		tx:          tx,
		costs:       costs,
		trips:       trips,
		stops:       stops,
		tolls:       tolls,
		maintenance: maintenance,
		receipts:    receipts,
		logger:      logger,
	}
}

// GetCostRecord returns a cost record by ID
func (s *CostAggregationService) GetCostRecord(ctx context.Context, id string) (*models.CostRecord, error) {
	return s.costs.GetByID(ctx, id)
}

// RecomputeFuelCost sums the cost of every fuel stop of rec into rec.FuelCost
func (s *CostAggregationService) RecomputeFuelCost(ctx context.Context, rec *models.CostRecord) (int64, error) {
	stops, err := s.stops.ListByCostRecord(ctx, rec.ID)
	if err != nil {
		return 0, err
	}
	costs := make([]int64, len(stops))
	for i, st := range stops {
		costs[i] = st.Cost
	}
	sum, err := models.SumInt64(costs...)
	if err != nil {
		return 0, fmt.Errorf("fuel cost of cost record %s: %w", rec.ID, err)
	}
	rec.FuelCost = sum
	return sum, nil
}

// SetTollsTotal sums the amount of every toll linked to rec into rec.TollsCost
func (s *CostAggregationService) SetTollsTotal(ctx context.Context, rec *models.CostRecord) (int64, error) {
	tolls, err := s.tolls.ListByCostRecord(ctx, rec.ID)
	if err != nil {
		return 0, err
	}
	amounts := make([]int64, len(tolls))
	for i, t := range tolls {
		amounts[i] = t.Amount
	}
	sum, err := models.SumInt64(amounts...)
	if err != nil {
		return 0, fmt.Errorf("tolls cost of cost record %s: %w", rec.ID, err)
	}
	rec.TollsCost = sum
	return sum, nil
}

// recomputeMaintenanceCost sums the cost of every maintenance linked to rec
func (s *CostAggregationService) recomputeMaintenanceCost(ctx context.Context, rec *models.CostRecord) error {
	items, err := s.maintenance.ListByCostRecord(ctx, rec.ID)
	if err != nil {
		return err
	}
	return setMaintenanceCost(rec, items)
}

func setMaintenanceCost(rec *models.CostRecord, items []models.Maintenance) error {
	costs := make([]int64, len(items))
	for i, m := range items {
		costs[i] = m.Cost
	}
	sum, err := models.SumInt64(costs...)
	if err != nil {
		return fmt.Errorf("maintenance cost of cost record %s: %w", rec.ID, err)
	}
	rec.MaintenanceCost = sum
	return nil
}

// save recomputes the total and persists rec
func (s *CostAggregationService) save(ctx context.Context, rec *models.CostRecord) error {
	if err := rec.RecomputeTotal(); err != nil {
		if errors.Is(err, models.ErrArithmeticOverflow) {
			s.logger.WithField("cost_record_id", rec.ID).Error("Cost aggregation overflow")
			return fmt.Errorf("total of cost record %s: %w", rec.ID, err)
		}
		return err
	}
	return s.costs.Update(ctx, rec)
}

// mutate locks the cost record and runs fn on it inside one transaction,
// then persists the record with a fresh total
func (s *CostAggregationService) mutate(ctx context.Context, costRecordID string, fn func(ctx context.Context, rec *models.CostRecord) error) (*models.CostRecord, error) {
	var out *models.CostRecord
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		rec, err := s.costs.GetByIDForUpdate(ctx, costRecordID)
		if err != nil {
			return err
		}
		if err := fn(ctx, rec); err != nil {
			return err
		}
		if err := s.save(ctx, rec); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AddFuelStop validates and stores a fuel stop, then refreshes the fuel cost
// and the total of its cost record
func (s *CostAggregationService) AddFuelStop(ctx context.Context, costRecordID string, req *models.FuelStopRequest) (*models.FuelStop, error) {
	var stop *models.FuelStop
	_, err := s.mutate(ctx, costRecordID, func(ctx context.Context, rec *models.CostRecord) error {
		var err error
		stop, err = s.addFuelStop(ctx, rec, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stop, nil
}

// addFuelStop runs inside a transaction holding the cost record lock
func (s *CostAggregationService) addFuelStop(ctx context.Context, rec *models.CostRecord, req *models.FuelStopRequest) (*models.FuelStop, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.stops.ListByCostRecord(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	prev, next, dup := fuelStopNeighbours(existing, req.SequenceNumber)
	if dup != nil {
		return nil, models.NewValidationError("sequence_number",
			fmt.Sprintf("fuel stop %d already exists for this cost record", req.SequenceNumber))
	}

	reading := *req.OdometerReading
	distance, err := distanceSincePrevious(rec, prev, next, reading)
	if err != nil {
		return nil, err
	}

	cost, err := models.FuelCost(req.Liters, *req.PricePerLiter)
	if err != nil {
		return nil, fmt.Errorf("fuel stop cost: %w", err)
	}

	stop := &models.FuelStop{
		CostRecordID:          rec.ID,
		SequenceNumber:        req.SequenceNumber,
		OdometerReading:       reading,
		Liters:                req.Liters,
		PricePerLiter:         *req.PricePerLiter,
		Cost:                  cost,
		DistanceSincePrevious: distance,
		Location:              strings.TrimSpace(req.Location),
		StoppedAt:             req.StoppedAt,
		Notes:                 req.Notes,
	}
	if err := s.stops.Create(ctx, stop); err != nil {
		return nil, err
	}
	if next != nil {
		if err := s.stops.UpdateDistance(ctx, next.ID, next.OdometerReading-reading); err != nil {
			return nil, err
		}
	}
	if _, err := s.RecomputeFuelCost(ctx, rec); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"cost_record_id":  rec.ID,
		"sequence_number": stop.SequenceNumber,
		"cost":            stop.Cost,
	}).Debug("Fuel stop added")

	return stop, nil
}

// UpdateFuelStop rewrites a fuel stop. The reading must stay between its
// neighbours; its own distance and the distance of the next stop are
// recomputed along with the fuel cost and the total. The sequence number
// cannot change.
func (s *CostAggregationService) UpdateFuelStop(ctx context.Context, stopID string, req *models.FuelStopRequest) (*models.FuelStop, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	current, err := s.stops.GetByID(ctx, stopID)
	if err != nil {
		return nil, err
	}
	if req.SequenceNumber != current.SequenceNumber {
		return nil, models.NewValidationError("sequence_number", "the sequence number of a fuel stop cannot change")
	}

	var stop *models.FuelStop
	_, err = s.mutate(ctx, current.CostRecordID, func(ctx context.Context, rec *models.CostRecord) error {
		existing, err := s.stops.ListByCostRecord(ctx, rec.ID)
		if err != nil {
			return err
		}
		prev, next, self := fuelStopNeighbours(existing, current.SequenceNumber)
		if self == nil || self.ID != stopID {
			return models.NewNotFoundError("fuel stop", stopID)
		}

		reading := *req.OdometerReading
		distance, err := distanceSincePrevious(rec, prev, next, reading)
		if err != nil {
			return err
		}
		cost, err := models.FuelCost(req.Liters, *req.PricePerLiter)
		if err != nil {
			return fmt.Errorf("fuel stop cost: %w", err)
		}

		updated := *self
		updated.OdometerReading = reading
		updated.Liters = req.Liters
		updated.PricePerLiter = *req.PricePerLiter
		updated.Cost = cost
		updated.DistanceSincePrevious = distance
		updated.Location = strings.TrimSpace(req.Location)
		updated.StoppedAt = req.StoppedAt
		updated.Notes = req.Notes
		if err := s.stops.Update(ctx, &updated); err != nil {
			return err
		}
		if next != nil {
			if err := s.stops.UpdateDistance(ctx, next.ID, next.OdometerReading-reading); err != nil {
				return err
			}
		}
		if _, err := s.RecomputeFuelCost(ctx, rec); err != nil {
			return err
		}
		stop = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"cost_record_id":  stop.CostRecordID,
		"sequence_number": stop.SequenceNumber,
		"cost":            stop.Cost,
	}).Debug("Fuel stop updated")

	return stop, nil
}

// fuelStopNeighbours finds the closest stops before and after seq. same is
// the stop already holding seq, if any.
func fuelStopNeighbours(stops []models.FuelStop, seq int) (prev, next, same *models.FuelStop) {
	for i := range stops {
		st := &stops[i]
		switch {
		case st.SequenceNumber == seq:
			same = st
		case st.SequenceNumber < seq:
			if prev == nil || st.SequenceNumber > prev.SequenceNumber {
				prev = st
			}
		default:
			if next == nil || st.SequenceNumber < next.SequenceNumber {
				next = st
			}
		}
	}
	return prev, next, same
}

// distanceSincePrevious checks that reading fits strictly between the
// neighbouring stops and returns the distance from the previous reading, or
// from the initial odometer for the first stop
func distanceSincePrevious(rec *models.CostRecord, prev, next *models.FuelStop, reading int64) (int64, error) {
	var distance int64
	if prev != nil {
		if reading <= prev.OdometerReading {
			return 0, models.NewValidationError("odometer_reading",
				fmt.Sprintf("odometer reading must be greater than %d (fuel stop %d)", prev.OdometerReading, prev.SequenceNumber))
		}
		distance = reading - prev.OdometerReading
	} else if rec.InitialOdometer != nil {
		if reading < *rec.InitialOdometer {
			return 0, models.NewValidationError("odometer_reading",
				fmt.Sprintf("odometer reading cannot be lower than the initial odometer %d", *rec.InitialOdometer))
		}
		distance = reading - *rec.InitialOdometer
	}
	if next != nil && reading >= next.OdometerReading {
		return 0, models.NewValidationError("odometer_reading",
			fmt.Sprintf("odometer reading must be lower than %d (fuel stop %d)", next.OdometerReading, next.SequenceNumber))
	}
	return distance, nil
}

// RemoveFuelStop deletes a fuel stop and refreshes the totals. Later stops
// keep their sequence numbers and distances.
func (s *CostAggregationService) RemoveFuelStop(ctx context.Context, stopID string) (*models.CostRecord, error) {
	stop, err := s.stops.GetByID(ctx, stopID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, stop.CostRecordID, func(ctx context.Context, rec *models.CostRecord) error {
		if err := s.stops.Delete(ctx, stopID); err != nil {
			return err
		}
		_, err := s.RecomputeFuelCost(ctx, rec)
		return err
	})
}

// ListFuelStops returns the fuel stops of a cost record
func (s *CostAggregationService) ListFuelStops(ctx context.Context, costRecordID string) ([]models.FuelStop, error) {
	if _, err := s.costs.GetByID(ctx, costRecordID); err != nil {
		return nil, err
	}
	return s.stops.ListByCostRecord(ctx, costRecordID)
}

// SetMaintenance replaces the maintenance linked to the cost record. Every
// maintenance must belong to the bus of the record's trip.
func (s *CostAggregationService) SetMaintenance(ctx context.Context, costRecordID string, maintenanceIDs []string) (*models.CostRecord, error) {
	ids := uniqueStrings(maintenanceIDs)
	return s.mutate(ctx, costRecordID, func(ctx context.Context, rec *models.CostRecord) error {
		trip, err := s.trips.GetByID(ctx, rec.TripID)
		if err != nil {
			return err
		}
		items, err := s.maintenance.ListByIDs(ctx, ids)
		if err != nil {
			return err
		}
		found := make(map[string]bool, len(items))
		for _, m := range items {
			found[m.ID] = true
			if m.BusID != trip.BusID {
				return models.NewValidationError("maintenance_ids",
					fmt.Sprintf("maintenance %s belongs to another bus", m.ID))
			}
		}
		for _, id := range ids {
			if !found[id] {
				return models.NewNotFoundError("maintenance", id)
			}
		}
		if err := s.maintenance.ReplaceLinks(ctx, rec.ID, ids); err != nil {
			return err
		}
		return setMaintenanceCost(rec, items)
	})
}

// UpdateMaintenance rewrites a maintenance event and refreshes the
// maintenance cost and the total of every cost record it is linked to. A
// linked event cannot move to a bus other than the one of those records.
func (s *CostAggregationService) UpdateMaintenance(ctx context.Context, m *models.Maintenance) ([]models.CostRecord, error) {
	records := []models.CostRecord{}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.maintenance.GetByID(ctx, m.ID); err != nil {
			return err
		}
		ids, err := s.maintenance.ListCostRecordIDs(ctx, m.ID)
		if err != nil {
			return err
		}

		locked := make([]*models.CostRecord, 0, len(ids))
		for _, id := range ids {
			rec, err := s.costs.GetByIDForUpdate(ctx, id)
			if err != nil {
				return err
			}
			trip, err := s.trips.GetByID(ctx, rec.TripID)
			if err != nil {
				return err
			}
			if trip.BusID != m.BusID {
				return models.NewValidationError("bus_id",
					fmt.Sprintf("maintenance is linked to cost record %s of another bus", rec.ID))
			}
			locked = append(locked, rec)
		}

		if err := s.maintenance.Update(ctx, m); err != nil {
			return err
		}
		for _, rec := range locked {
			if err := s.recomputeMaintenanceCost(ctx, rec); err != nil {
				return err
			}
			if err := s.save(ctx, rec); err != nil {
				return err
			}
			records = append(records, *rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"maintenance_id": m.ID,
		"cost_records":   len(records),
	}).Info("Maintenance updated")

	return records, nil
}

// AddToll registers a toll for the trip of the cost record and refreshes the tolls cost
func (s *CostAggregationService) AddToll(ctx context.Context, costRecordID string, req *models.TollRequest) (*models.Toll, error) {
	var toll *models.Toll
	_, err := s.mutate(ctx, costRecordID, func(ctx context.Context, rec *models.CostRecord) error {
		created, err := s.addTolls(ctx, rec, []models.TollRequest{*req})
		if err != nil {
			return err
		}
		toll = &created[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toll, nil
}

// addTolls runs inside a transaction holding the cost record lock
func (s *CostAggregationService) addTolls(ctx context.Context, rec *models.CostRecord, reqs []models.TollRequest) ([]models.Toll, error) {
	created := make([]models.Toll, 0, len(reqs))
	for i := range reqs {
		req := &reqs[i]
		if err := req.Validate(); err != nil {
			return nil, err
		}
		costRecordID := rec.ID
		toll := models.Toll{
			TripID:       rec.TripID,
			CostRecordID: &costRecordID,
			Location:     strings.TrimSpace(req.Location),
			Amount:       *req.Amount,
			PaidAt:       req.PaidAt,
			Notes:        req.Notes,
		}
		if err := s.tolls.Create(ctx, &toll); err != nil {
			return nil, err
		}
		created = append(created, toll)
	}
	if _, err := s.SetTollsTotal(ctx, rec); err != nil {
		return nil, err
	}
	return created, nil
}

// RemoveToll deletes a toll and refreshes the tolls cost of its cost record
func (s *CostAggregationService) RemoveToll(ctx context.Context, tollID string) error {
	toll, err := s.tolls.GetByID(ctx, tollID)
	if err != nil {
		return err
	}
	if toll.CostRecordID == nil {
		return s.tolls.Delete(ctx, tollID)
	}
	_, err = s.mutate(ctx, *toll.CostRecordID, func(ctx context.Context, rec *models.CostRecord) error {
		if err := s.tolls.Delete(ctx, tollID); err != nil {
			return err
		}
		_, err := s.SetTollsTotal(ctx, rec)
		return err
	})
	return err
}

// ListTolls returns the tolls linked to a cost record
func (s *CostAggregationService) ListTolls(ctx context.Context, costRecordID string) ([]models.Toll, error) {
	if _, err := s.costs.GetByID(ctx, costRecordID); err != nil {
		return nil, err
	}
	return s.tolls.ListByCostRecord(ctx, costRecordID)
}

// SetOtherCosts stores the manually entered other costs. A justification is
// appended to the notes of the record.
func (s *CostAggregationService) SetOtherCosts(ctx context.Context, costRecordID string, amount int64, justification string) (*models.CostRecord, error) {
	if amount < 0 {
		return nil, models.NewValidationError("amount", "other costs cannot be negative")
	}
	return s.mutate(ctx, costRecordID, func(ctx context.Context, rec *models.CostRecord) error {
		rec.OtherCosts = amount
		if j := strings.TrimSpace(justification); j != "" {
			line := fmt.Sprintf("Other costs (%d): %s", amount, j)
			if rec.Notes == "" {
				rec.Notes = line
			} else {
				rec.Notes += "\n" + line
			}
		}
		return nil
	})
}

// Recalculate rebuilds every derived amount of the record from its children
func (s *CostAggregationService) Recalculate(ctx context.Context, costRecordID string) (*models.CostRecord, error) {
	return s.mutate(ctx, costRecordID, func(ctx context.Context, rec *models.CostRecord) error {
		if _, err := s.RecomputeFuelCost(ctx, rec); err != nil {
			return err
		}
		if _, err := s.SetTollsTotal(ctx, rec); err != nil {
			return err
		}
		return s.recomputeMaintenanceCost(ctx, rec)
	})
}

// DeleteCostRecord deletes the record with its fuel stops and tolls. Maintenance
// linked only to this record is deleted; shared maintenance is just unlinked.
func (s *CostAggregationService) DeleteCostRecord(ctx context.Context, costRecordID string) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.costs.GetByIDForUpdate(ctx, costRecordID); err != nil {
			return err
		}
		if err := s.tolls.DeleteByCostRecord(ctx, costRecordID); err != nil {
			return err
		}
		removed, err := s.maintenance.DeleteExclusive(ctx, costRecordID)
		if err != nil {
			return err
		}
		if err := s.costs.Delete(ctx, costRecordID); err != nil {
			return err
		}
		s.logger.WithFields(logrus.Fields{
			"cost_record_id":      costRecordID,
			"maintenance_removed": removed,
		}).Info("Cost record deleted")
		return nil
	})
}

// AttachFuelStopReceipt uploads a receipt and stores its URL on the fuel stop
func (s *CostAggregationService) AttachFuelStopReceipt(ctx context.Context, stopID, filename, contentType string, body io.Reader) (*models.FuelStop, error) {
	stop, err := s.stops.GetByID(ctx, stopID)
	if err != nil {
		return nil, err
	}
	url, err := s.uploadReceipt(ctx, "fuel-stops/"+stop.CostRecordID, filename, contentType, body)
	if err != nil {
		return nil, err
	}
	if err := s.stops.SetReceiptURL(ctx, stopID, url); err != nil {
		return nil, err
	}
	stop.ReceiptURL = &url
	return stop, nil
}

// AttachTollReceipt uploads a receipt and stores its URL on the toll
func (s *CostAggregationService) AttachTollReceipt(ctx context.Context, tollID, filename, contentType string, body io.Reader) (*models.Toll, error) {
	toll, err := s.tolls.GetByID(ctx, tollID)
	if err != nil {
		return nil, err
	}
	url, err := s.uploadReceipt(ctx, "tolls/"+toll.TripID, filename, contentType, body)
	if err != nil {
		return nil, err
	}
	if err := s.tolls.SetReceiptURL(ctx, tollID, url); err != nil {
		return nil, err
	}
	toll.ReceiptURL = &url
	return toll, nil
}

var allowedReceiptTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

func (s *CostAggregationService) uploadReceipt(ctx context.Context, prefix, filename, contentType string, body io.Reader) (string, error) {
	if s.receipts == nil {
		return "", ErrStorageDisabled
	}
	ext, ok := allowedReceiptTypes[contentType]
	if !ok {
		return "", models.NewValidationError("file", "receipt must be a JPEG, PNG or PDF file")
	}
	if e := strings.ToLower(path.Ext(filename)); e == ".jpeg" || e == ".jpg" || e == ".png" || e == ".pdf" {
		ext = e
	}
	key := fmt.Sprintf("receipts/%s/%s%s", prefix, uuid.New().String(), ext)
	return s.receipts.UploadFile(ctx, body, key, contentType)
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
