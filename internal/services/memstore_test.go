package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/DoSvEinTe/proyecto-flota/internal/models"
	"github.com/DoSvEinTe/proyecto-flota/pkg/email"
	"github.com/DoSvEinTe/proyecto-flota/pkg/pdf"
)

// memDB is an in-memory stand-in for the relational store. WithinTx
// snapshots every table and restores the snapshot when fn fails, so tests
// can check all-or-nothing behavior. Failures are injected per operation
// name through failOn.
type memDB struct {
	mu sync.Mutex

	places      map[string]models.Place
	buses       map[string]models.Bus
	drivers     map[string]models.Driver
	trips       map[string]models.Trip
	costs       map[string]models.CostRecord
	stops       map[string]models.FuelStop
	tolls       map[string]models.Toll
	maintenance map[string]models.Maintenance
	links       map[string]map[string]bool
	bookings    map[string][]models.TripPassenger
	passengers  map[string]models.Passenger

	failOn  map[string]error
	failNth map[string]int
	calls   map[string]int
	seq     int
	commits int
}

type memTables struct {
	places      map[string]models.Place
	buses       map[string]models.Bus
	drivers     map[string]models.Driver
	trips       map[string]models.Trip
	costs       map[string]models.CostRecord
	stops       map[string]models.FuelStop
	tolls       map[string]models.Toll
	maintenance map[string]models.Maintenance
	links       map[string]map[string]bool
	bookings    map[string][]models.TripPassenger
}

type memTxKey struct{}

func newMemDB() *memDB {
	return &memDB{
		places:      map[string]models.Place{},
		buses:       map[string]models.Bus{},
		drivers:     map[string]models.Driver{},
		trips:       map[string]models.Trip{},
		costs:       map[string]models.CostRecord{},
		stops:       map[string]models.FuelStop{},
		tolls:       map[string]models.Toll{},
		maintenance: map[string]models.Maintenance{},
		links:       map[string]map[string]bool{},
		bookings:    map[string][]models.TripPassenger{},
		passengers:  map[string]models.Passenger{},
		failOn:      map[string]error{},
		failNth:     map[string]int{},
		calls:       map[string]int{},
	}
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (db *memDB) snapshot() memTables {
	db.mu.Lock()
	defer db.mu.Unlock()
	links := make(map[string]map[string]bool, len(db.links))
	for k, v := range db.links {
		links[k] = copyMap(v)
	}
	bookings := make(map[string][]models.TripPassenger, len(db.bookings))
	for k, v := range db.bookings {
		bookings[k] = append([]models.TripPassenger(nil), v...)
	}
	return memTables{
		places:      copyMap(db.places),
		buses:       copyMap(db.buses),
		drivers:     copyMap(db.drivers),
		trips:       copyMap(db.trips),
		costs:       copyMap(db.costs),
		stops:       copyMap(db.stops),
		tolls:       copyMap(db.tolls),
		maintenance: copyMap(db.maintenance),
		links:       links,
		bookings:    bookings,
	}
}

func (db *memDB) restore(s memTables) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.places, db.buses, db.drivers = s.places, s.buses, s.drivers
	db.trips, db.costs, db.stops, db.tolls = s.trips, s.costs, s.stops, s.tolls
	db.maintenance, db.links, db.bookings = s.maintenance, s.links, s.bookings
}

func (db *memDB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	snap := db.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		db.restore(snap)
		return err
	}
	db.mu.Lock()
	db.commits++
	db.mu.Unlock()
	return nil
}

// fail makes every later call of op return err
func (db *memDB) fail(op string, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.failOn[op] = err
}

// failCall makes only the nth call of op, counted from now, fail
func (db *memDB) failCall(op string, n int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.calls[op] = 0
	db.failNth[op] = n
}

// check must be called with db.mu held
func (db *memDB) check(op string) error {
	db.calls[op]++
	if n, ok := db.failNth[op]; ok && db.calls[op] == n {
		return errInjected
	}
	return db.failOn[op]
}

// newID must be called with db.mu held
func (db *memDB) newID(prefix string) string {
	db.seq++
	return fmt.Sprintf("%s-%03d", prefix, db.seq)
}

func (db *memDB) tripsStore() *memTrips             { return &memTrips{db} }
func (db *memDB) placesStore() *memPlaces           { return &memPlaces{db} }
func (db *memDB) busesStore() *memBuses             { return &memBuses{db} }
func (db *memDB) driversStore() *memDrivers         { return &memDrivers{db} }
func (db *memDB) costsStore() *memCosts             { return &memCosts{db} }
func (db *memDB) stopsStore() *memStops             { return &memStops{db} }
func (db *memDB) tollsStore() *memTolls             { return &memTolls{db} }
func (db *memDB) maintenanceStore() *memMaintenance { return &memMaintenance{db} }

func (db *memDB) trip(id string) models.Trip {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.trips[id]
}

func (db *memDB) cost(id string) models.CostRecord {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.costs[id]
}

type memPlaces struct{ db *memDB }

func (s *memPlaces) GetByID(ctx context.Context, id string) (*models.Place, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.places[id]
	if !ok {
		return nil, models.NewNotFoundError("place", id)
	}
	return &p, nil
}

type memBuses struct{ db *memDB }

func (s *memBuses) GetByID(ctx context.Context, id string) (*models.Bus, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	b, ok := s.db.buses[id]
	if !ok {
		return nil, models.NewNotFoundError("bus", id)
	}
	return &b, nil
}

type memDrivers struct{ db *memDB }

func (s *memDrivers) GetByID(ctx context.Context, id string) (*models.Driver, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	d, ok := s.db.drivers[id]
	if !ok {
		return nil, models.NewNotFoundError("driver", id)
	}
	return &d, nil
}

type memTrips struct{ db *memDB }

func (s *memTrips) Create(ctx context.Context, t *models.Trip) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("trips.Create"); err != nil {
		return err
	}
	if t.LinkedTripID != nil {
		if _, ok := s.db.trips[*t.LinkedTripID]; !ok {
			return models.NewValidationError("linked_trip_id", "linked trip does not exist")
		}
	}
	if t.ID == "" {
		t.ID = s.db.newID("trip")
	}
	stored := *t
	stored.Origin, stored.Destination = nil, nil
	s.db.trips[t.ID] = stored
	return nil
}

func (s *memTrips) GetByID(ctx context.Context, id string) (*models.Trip, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.trips[id]
	if !ok {
		return nil, models.NewNotFoundError("trip", id)
	}
	return &t, nil
}

func (s *memTrips) GetByIDForUpdate(ctx context.Context, id string) (*models.Trip, error) {
	return s.GetByID(ctx, id)
}

func (s *memTrips) Update(ctx context.Context, t *models.Trip) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("trips.Update"); err != nil {
		return err
	}
	stored, ok := s.db.trips[t.ID]
	if !ok {
		return models.NewNotFoundError("trip", t.ID)
	}
	stored.BusID, stored.DriverID = t.BusID, t.DriverID
	stored.OriginID, stored.DestinationID = t.OriginID, t.DestinationID
	stored.DepartureAt, stored.ArrivalAt = t.DepartureAt, t.ArrivalAt
	stored.DistanceKm, stored.Notes = t.DistanceKm, t.Notes
	s.db.trips[t.ID] = stored
	return nil
}

func (s *memTrips) ListForReconciliation(ctx context.Context) ([]models.Trip, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []models.Trip{}
	for _, t := range s.db.trips {
		if t.IsRoundTrip || t.LinkedTripID != nil || t.LegType != models.LegTypeSingle {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return departsFirst(&out[i], &out[j]) })
	return out, nil
}

func (s *memTrips) UpdateLink(ctx context.Context, id string, isRoundTrip bool, leg models.LegType, linkedTripID *string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("trips.UpdateLink"); err != nil {
		return err
	}
	t, ok := s.db.trips[id]
	if !ok {
		return models.NewNotFoundError("trip", id)
	}
	t.IsRoundTrip, t.LegType = isRoundTrip, leg
	t.LinkedTripID = nil
	if linkedTripID != nil {
		linked := *linkedTripID
		t.LinkedTripID = &linked
	}
	s.db.trips[id] = t
	return nil
}

func (s *memTrips) UpdateStatus(ctx context.Context, id string, status models.TripStatus) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("trips.UpdateStatus"); err != nil {
		return err
	}
	t, ok := s.db.trips[id]
	if !ok {
		return models.NewNotFoundError("trip", id)
	}
	t.Status = status
	s.db.trips[id] = t
	return nil
}

func (s *memTrips) UpdateDistance(ctx context.Context, id string, km float64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.trips[id]
	if !ok {
		return models.NewNotFoundError("trip", id)
	}
	t.DistanceKm = &km
	s.db.trips[id] = t
	return nil
}

func (s *memTrips) CompleteCostedTrips(ctx context.Context) ([]string, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	ids := []string{}
	for _, c := range s.db.costs {
		t, ok := s.db.trips[c.TripID]
		if !ok || !c.IsCompleted() {
			continue
		}
		if t.Status == models.TripStatusScheduled || t.Status == models.TripStatusInProgress {
			t.Status = models.TripStatusCompleted
			s.db.trips[t.ID] = t
			ids = append(ids, t.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *memTrips) Delete(ctx context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.trips[id]; !ok {
		return models.NewNotFoundError("trip", id)
	}
	delete(s.db.trips, id)
	for tid, t := range s.db.trips {
		if t.LinkedTripID != nil && *t.LinkedTripID == id {
			t.LinkedTripID = nil
			s.db.trips[tid] = t
		}
	}
	for cid, c := range s.db.costs {
		if c.TripID == id {
			s.db.deleteCostLocked(cid)
		}
	}
	for tid, toll := range s.db.tolls {
		if toll.TripID == id {
			delete(s.db.tolls, tid)
		}
	}
	delete(s.db.bookings, id)
	return nil
}

func (s *memTrips) AddPassenger(ctx context.Context, tp *models.TripPassenger) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.passengers[tp.PassengerID]
	if !ok {
		return models.NewNotFoundError("passenger", tp.PassengerID)
	}
	for _, b := range s.db.bookings[tp.TripID] {
		if b.PassengerID == tp.PassengerID {
			return models.NewValidationError("passenger_id", "passenger is already booked on this trip")
		}
	}
	tp.FullName = p.FullName
	tp.CreatedAt = time.Now()
	s.db.bookings[tp.TripID] = append(s.db.bookings[tp.TripID], *tp)
	return nil
}

func (s *memTrips) UpdatePassenger(ctx context.Context, tp *models.TripPassenger) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for i, b := range s.db.bookings[tp.TripID] {
		if b.PassengerID == tp.PassengerID {
			b.Seat, b.Notes = tp.Seat, tp.Notes
			s.db.bookings[tp.TripID][i] = b
			*tp = b
			return nil
		}
	}
	return models.NewNotFoundError("trip passenger", tp.PassengerID)
}

func (s *memTrips) RemovePassenger(ctx context.Context, tripID, passengerID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	list := s.db.bookings[tripID]
	for i, b := range list {
		if b.PassengerID == passengerID {
			s.db.bookings[tripID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return models.NewNotFoundError("trip passenger", passengerID)
}

func (s *memTrips) ListPassengers(ctx context.Context, tripID string) ([]models.TripPassenger, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := append([]models.TripPassenger{}, s.db.bookings[tripID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (s *memTrips) CountPassengers(ctx context.Context, tripID string) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return len(s.db.bookings[tripID]), nil
}

type memCosts struct{ db *memDB }

func (s *memCosts) Create(ctx context.Context, c *models.CostRecord) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("costs.Create"); err != nil {
		return err
	}
	for _, existing := range s.db.costs {
		if existing.TripID == c.TripID {
			return &models.DuplicateCostRecordError{TripID: c.TripID}
		}
	}
	if c.ID == "" {
		c.ID = s.db.newID("cost")
	}
	if c.CurrentStep == "" {
		c.CurrentStep = models.StepInitialOdometer
	}
	s.db.costs[c.ID] = *c
	return nil
}

func (s *memCosts) GetByID(ctx context.Context, id string) (*models.CostRecord, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.costs[id]
	if !ok {
		return nil, models.NewNotFoundError("cost record", id)
	}
	return &c, nil
}

func (s *memCosts) GetByIDForUpdate(ctx context.Context, id string) (*models.CostRecord, error) {
	return s.GetByID(ctx, id)
}

func (s *memCosts) GetByTripID(ctx context.Context, tripID string) (*models.CostRecord, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, c := range s.db.costs {
		if c.TripID == tripID {
			return &c, nil
		}
	}
	return nil, models.NewNotFoundError("cost record for trip", tripID)
}

func (s *memCosts) Update(ctx context.Context, c *models.CostRecord) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("costs.Update"); err != nil {
		return err
	}
	if _, ok := s.db.costs[c.ID]; !ok {
		return models.NewNotFoundError("cost record", c.ID)
	}
	s.db.costs[c.ID] = *c
	return nil
}

func (s *memCosts) Delete(ctx context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.costs[id]; !ok {
		return models.NewNotFoundError("cost record", id)
	}
	s.db.deleteCostLocked(id)
	return nil
}

// deleteCostLocked mirrors the ON DELETE rules of the schema
func (db *memDB) deleteCostLocked(id string) {
	delete(db.costs, id)
	for sid, st := range db.stops {
		if st.CostRecordID == id {
			delete(db.stops, sid)
		}
	}
	for tid, toll := range db.tolls {
		if toll.CostRecordID != nil && *toll.CostRecordID == id {
			delete(db.tolls, tid)
		}
	}
	delete(db.links, id)
}

func (s *memCosts) Summary(ctx context.Context, from, to time.Time, busID string) ([]models.CostSummaryRow, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	rows := map[string]*models.CostSummaryRow{}
	for _, c := range s.db.costs {
		t := s.db.trips[c.TripID]
		if t.DepartureAt.Before(from) || !t.DepartureAt.Before(to) {
			continue
		}
		if busID != "" && t.BusID != busID {
			continue
		}
		row, ok := rows[t.BusID]
		if !ok {
			row = &models.CostSummaryRow{BusID: t.BusID, LicensePlate: s.db.buses[t.BusID].LicensePlate}
			rows[t.BusID] = row
		}
		row.Trips++
		row.FuelCost += c.FuelCost
		row.MaintenanceCost += c.MaintenanceCost
		row.TollsCost += c.TollsCost
		row.OtherCosts += c.OtherCosts
		row.TotalCost += c.TotalCost
		if c.InitialOdometer != nil && c.FinalOdometer != nil {
			row.Kilometers += *c.FinalOdometer - *c.InitialOdometer
		}
	}
	out := []models.CostSummaryRow{}
	for _, r := range rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LicensePlate < out[j].LicensePlate })
	return out, nil
}

type memStops struct{ db *memDB }

func (s *memStops) Create(ctx context.Context, st *models.FuelStop) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("stops.Create"); err != nil {
		return err
	}
	for _, existing := range s.db.stops {
		if existing.CostRecordID == st.CostRecordID && existing.SequenceNumber == st.SequenceNumber {
			return models.NewValidationError("sequence_number", "fuel stop already exists for this cost record")
		}
	}
	if st.ID == "" {
		st.ID = s.db.newID("stop")
	}
	s.db.stops[st.ID] = *st
	return nil
}

func (s *memStops) GetByID(ctx context.Context, id string) (*models.FuelStop, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	st, ok := s.db.stops[id]
	if !ok {
		return nil, models.NewNotFoundError("fuel stop", id)
	}
	return &st, nil
}

func (s *memStops) ListByCostRecord(ctx context.Context, costRecordID string) ([]models.FuelStop, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []models.FuelStop{}
	for _, st := range s.db.stops {
		if st.CostRecordID == costRecordID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceNumber < out[j].SequenceNumber })
	return out, nil
}

func (s *memStops) Update(ctx context.Context, st *models.FuelStop) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("stops.Update"); err != nil {
		return err
	}
	if _, ok := s.db.stops[st.ID]; !ok {
		return models.NewNotFoundError("fuel stop", st.ID)
	}
	s.db.stops[st.ID] = *st
	return nil
}

func (s *memStops) UpdateDistance(ctx context.Context, id string, distance int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("stops.UpdateDistance"); err != nil {
		return err
	}
	st, ok := s.db.stops[id]
	if !ok {
		return models.NewNotFoundError("fuel stop", id)
	}
	st.DistanceSincePrevious = distance
	s.db.stops[id] = st
	return nil
}

func (s *memStops) SetReceiptURL(ctx context.Context, id, url string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	st, ok := s.db.stops[id]
	if !ok {
		return models.NewNotFoundError("fuel stop", id)
	}
	st.ReceiptURL = &url
	s.db.stops[id] = st
	return nil
}

func (s *memStops) Delete(ctx context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.stops[id]; !ok {
		return models.NewNotFoundError("fuel stop", id)
	}
	delete(s.db.stops, id)
	return nil
}

type memTolls struct{ db *memDB }

func (s *memTolls) Create(ctx context.Context, t *models.Toll) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("tolls.Create"); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = s.db.newID("toll")
	}
	s.db.tolls[t.ID] = *t
	return nil
}

func (s *memTolls) GetByID(ctx context.Context, id string) (*models.Toll, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.tolls[id]
	if !ok {
		return nil, models.NewNotFoundError("toll", id)
	}
	return &t, nil
}

func (s *memTolls) ListByCostRecord(ctx context.Context, costRecordID string) ([]models.Toll, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []models.Toll{}
	for _, t := range s.db.tolls {
		if t.CostRecordID != nil && *t.CostRecordID == costRecordID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memTolls) SetReceiptURL(ctx context.Context, id, url string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.tolls[id]
	if !ok {
		return models.NewNotFoundError("toll", id)
	}
	t.ReceiptURL = &url
	s.db.tolls[id] = t
	return nil
}

func (s *memTolls) Delete(ctx context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.tolls[id]; !ok {
		return models.NewNotFoundError("toll", id)
	}
	delete(s.db.tolls, id)
	return nil
}

func (s *memTolls) DeleteByCostRecord(ctx context.Context, costRecordID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for id, t := range s.db.tolls {
		if t.CostRecordID != nil && *t.CostRecordID == costRecordID {
			delete(s.db.tolls, id)
		}
	}
	return nil
}

type memMaintenance struct{ db *memDB }

func (s *memMaintenance) Create(ctx context.Context, m *models.Maintenance) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if m.ID == "" {
		m.ID = s.db.newID("maint")
	}
	s.db.maintenance[m.ID] = *m
	return nil
}

func (s *memMaintenance) GetByID(ctx context.Context, id string) (*models.Maintenance, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	m, ok := s.db.maintenance[id]
	if !ok {
		return nil, models.NewNotFoundError("maintenance", id)
	}
	return &m, nil
}

func (s *memMaintenance) Update(ctx context.Context, m *models.Maintenance) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("maintenance.Update"); err != nil {
		return err
	}
	if _, ok := s.db.maintenance[m.ID]; !ok {
		return models.NewNotFoundError("maintenance", m.ID)
	}
	s.db.maintenance[m.ID] = *m
	return nil
}

func (s *memMaintenance) ListCostRecordIDs(ctx context.Context, maintenanceID string) ([]string, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	ids := []string{}
	for costRecordID, set := range s.db.links {
		if set[maintenanceID] {
			ids = append(ids, costRecordID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *memMaintenance) ListByIDs(ctx context.Context, ids []string) ([]models.Maintenance, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []models.Maintenance{}
	for _, id := range ids {
		if m, ok := s.db.maintenance[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memMaintenance) ListByCostRecord(ctx context.Context, costRecordID string) ([]models.Maintenance, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []models.Maintenance{}
	for id := range s.db.links[costRecordID] {
		out = append(out, s.db.maintenance[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memMaintenance) Link(ctx context.Context, costRecordID, maintenanceID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.links[costRecordID] == nil {
		s.db.links[costRecordID] = map[string]bool{}
	}
	s.db.links[costRecordID][maintenanceID] = true
	return nil
}

func (s *memMaintenance) ReplaceLinks(ctx context.Context, costRecordID string, ids []string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	set := map[string]bool{}
	for _, id := range ids {
		set[id] = true
	}
	s.db.links[costRecordID] = set
	return nil
}

func (s *memMaintenance) DeleteExclusive(ctx context.Context, costRecordID string) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var removed int64
	for id := range s.db.links[costRecordID] {
		shared := false
		for other, set := range s.db.links {
			if other != costRecordID && set[id] {
				shared = true
				break
			}
		}
		if !shared {
			delete(s.db.maintenance, id)
			removed++
		}
	}
	delete(s.db.links, costRecordID)
	return removed, nil
}

func (db *memDB) linkedMaintenance(costRecordID string) []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	ids := []string{}
	for id := range db.links[costRecordID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type fakeDistance struct {
	km    float64
	err   error
	calls int
}

func (f *fakeDistance) DrivingDistanceKm(ctx context.Context, fromLat, fromLon, toLat, toLon float64) (float64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.km, nil
}

type fakeReceipts struct {
	keys []string
	body []byte
	err  error
}

func (f *fakeReceipts) UploadFile(ctx context.Context, body io.Reader, objectKey, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.keys = append(f.keys, objectKey)
	f.body = data
	return "https://cdn.example.com/" + objectKey, nil
}

type fakeRenderer struct {
	docs []pdf.Document
	err  error
}

func (f *fakeRenderer) Render(doc pdf.Document) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.docs = append(f.docs, doc)
	return []byte("%PDF-1.3 fake"), nil
}

type fakeMailer struct {
	sent []email.Message
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, msg email.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

var errInjected = errors.New("injected failure")

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	return logger
}

func int64Ptr(v int64) *int64       { return &v }
func float64Ptr(v float64) *float64 { return &v }
func stringPtr(v string) *string    { return &v }

// fleet is a seeded store with the services wired on top of it
type fleet struct {
	db       *memDB
	now      time.Time
	distance *fakeDistance
	receipts *fakeReceipts

	linking  *TripLinkingService
	engine   *CostAggregationService
	workflow *CostWorkflowService
	status   *TripStatusService
	booking  *TripPassengerService
}

const (
	busID         = "bus-1"
	driverID      = "driver-1"
	santiagoID    = "place-santiago"
	valparaisoID  = "place-valparaiso"
	noCoordsID    = "place-nocoords"
	passengerAna  = "passenger-ana"
	passengerBeto = "passenger-beto"
	passengerCris = "passenger-cris"
)

func newFleet(t *testing.T) *fleet {
	t.Helper()
	db := newMemDB()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	db.places[santiagoID] = models.Place{ID: santiagoID, Name: "Santiago", City: "Santiago", Country: "Chile",
		Latitude: float64Ptr(-33.4489), Longitude: float64Ptr(-70.6693)}
	db.places[valparaisoID] = models.Place{ID: valparaisoID, Name: "Valparaíso", City: "Valparaíso", Country: "Chile",
		Latitude: float64Ptr(-33.0472), Longitude: float64Ptr(-71.6127)}
	db.places[noCoordsID] = models.Place{ID: noCoordsID, Name: "Terminal Norte", City: "La Serena", Country: "Chile"}
	db.buses[busID] = models.Bus{ID: busID, LicensePlate: "ABCD12", Brand: "Mercedes-Benz", Model: "O500",
		Year: 2020, Capacity: 2, EntryOdometer: 500, Status: models.BusStatusActive}
	db.drivers[driverID] = models.Driver{ID: driverID, FirstName: "Juan", LastName: "Pérez",
		NationalID: "12345678-5", Email: stringPtr("juan.perez@example.com"), Phone: "+56912345678",
		LicenseNumber: "A3-5521", Active: true}
	for id, name := range map[string]string{passengerAna: "Ana Rojas", passengerBeto: "Beto Soto", passengerCris: "Cris Vera"} {
		db.passengers[id] = models.Passenger{ID: id, FullName: name}
	}

	logger := quietLogger()
	distance := &fakeDistance{km: 116.23}
	receipts := &fakeReceipts{}
	clock := func() time.Time { return now }

	linking := NewTripLinkingService(db, db.tripsStore(), db.placesStore(), db.busesStore(), db.driversStore(), distance, logger)
	linking.now = clock
	engine := NewCostAggregationService(db, db.costsStore(), db.tripsStore(), db.stopsStore(), db.tollsStore(),
		db.maintenanceStore(), receipts, logger)
	workflow := NewCostWorkflowService(db, db.costsStore(), db.tripsStore(), db.busesStore(), db.stopsStore(),
		db.maintenanceStore(), engine, logger)
	workflow.now = clock

	return &fleet{
		db:       db,
		now:      now,
		distance: distance,
		receipts: receipts,
		linking:  linking,
		engine:   engine,
		workflow: workflow,
		status:   NewTripStatusService(db, db.tripsStore(), logger),
		booking:  NewTripPassengerService(db, db.tripsStore(), db.busesStore(), logger),
	}
}

func (f *fleet) tripRequest() *models.CreateTripRequest {
	departure := f.now.Add(24 * time.Hour)
	return &models.CreateTripRequest{
		BusID:         busID,
		DriverID:      driverID,
		OriginID:      santiagoID,
		DestinationID: valparaisoID,
		DepartureAt:   departure,
		ArrivalAt:     departure.Add(2 * time.Hour),
	}
}

// seedTrip stores a trip directly, bypassing validation
func (f *fleet) seedTrip(t models.Trip) models.Trip {
	if t.BusID == "" {
		t.BusID = busID
	}
	if t.DriverID == "" {
		t.DriverID = driverID
	}
	if t.OriginID == "" {
		t.OriginID, t.DestinationID = santiagoID, valparaisoID
	}
	if t.Status == "" {
		t.Status = models.TripStatusScheduled
	}
	if t.LegType == "" {
		t.LegType = models.LegTypeSingle
	}
	if t.ArrivalAt.IsZero() {
		t.ArrivalAt = t.DepartureAt.Add(2 * time.Hour)
	}
	f.db.mu.Lock()
	f.db.trips[t.ID] = t
	f.db.mu.Unlock()
	return t
}

// startedRecord creates a single trip and starts its cost workflow
func (f *fleet) startedRecord(t *testing.T) *models.CostRecord {
	t.Helper()
	trip, err := f.linking.CreateSingleTrip(context.Background(), f.tripRequest())
	require.NoError(t, err)
	rec, err := f.workflow.Start(context.Background(), trip.ID)
	require.NoError(t, err)
	return rec
}
