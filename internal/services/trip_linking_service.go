package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/DoSvEinTe/proyecto-flota/internal/models"
)

// TripLinkingService creates trips and maintains the outbound/return pairing
// between the two legs of a round trip
type TripLinkingService struct {
	tx       Transactor
	trips    TripStore
	places   PlaceStore
	buses    BusStore
	drivers  DriverStore
	distance DistanceCalculator
	logger   *logrus.Logger
	now      Clock
}

// NewTripLinkingService creates a new TripLinkingService. distance may be nil,
// in which case trips are created without a computed distance.
func NewTripLinkingService(
	tx Transactor,
	trips TripStore,
	places PlaceStore,
	buses BusStore,
	drivers DriverStore,
	distance DistanceCalculator,
	logger *logrus.Logger,
) *TripLinkingService {
	return &TripLinkingService{
		tx:       tx,
		trips:    trips,
		places:   places,
		buses:    buses,
		drivers:  drivers,
		distance: distance,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateRoundTrip creates the outbound trip described by req and its mirrored
// return trip, linked to each other, in one transaction
func (s *TripLinkingService) CreateRoundTrip(ctx context.Context, req *models.CreateTripRequest) (*models.Trip, *models.Trip, error) {
	origin, destination, err := s.prepare(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	// The return leg drives the same road backwards, so one lookup serves both.
	distance := s.lookupDistance(ctx, origin, destination)

	outbound := &models.Trip{
		BusID:         req.BusID,
		DriverID:      req.DriverID,
		OriginID:      origin.ID,
		DestinationID: destination.ID,
		DepartureAt:   req.DepartureAt,
		ArrivalAt:     req.ArrivalAt,
		Status:        models.TripStatusScheduled,
		IsRoundTrip:   true,
		LegType:       models.LegTypeOutbound,
		DistanceKm:    distance,
		Notes:         req.Notes,
	}
	returnTrip := &models.Trip{
		BusID:         req.BusID,
		DriverID:      req.DriverID,
		OriginID:      destination.ID,
		DestinationID: origin.ID,
		DepartureAt:   outbound.ArrivalAt,
		ArrivalAt:     outbound.ArrivalAt.Add(outbound.Duration()),
		Status:        models.TripStatusScheduled,
		IsRoundTrip:   true,
		LegType:       models.LegTypeReturn,
		DistanceKm:    distance,
		Notes:         req.Notes,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.trips.Create(ctx, outbound); err != nil {
			return err
		}
		returnTrip.LinkedTripID = &outbound.ID
		if err := s.trips.Create(ctx, returnTrip); err != nil {
			return err
		}
		if err := s.trips.UpdateLink(ctx, outbound.ID, true, models.LegTypeOutbound, &returnTrip.ID); err != nil {
			return err
		}
		outbound.LinkedTripID = &returnTrip.ID
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	outbound.Origin, outbound.Destination = origin, destination
	returnTrip.Origin, returnTrip.Destination = destination, origin

	s.logger.WithFields(logrus.Fields{
		"outbound_trip_id": outbound.ID,
		"return_trip_id":   returnTrip.ID,
		"origin":           origin.Label(),
		"destination":      destination.Label(),
	}).Info("Round trip created")

	return outbound, returnTrip, nil
}

// CreateSingleTrip creates a trip without a return leg
func (s *TripLinkingService) CreateSingleTrip(ctx context.Context, req *models.CreateTripRequest) (*models.Trip, error) {
	origin, destination, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	trip := &models.Trip{
		BusID:         req.BusID,
		DriverID:      req.DriverID,
		OriginID:      origin.ID,
		DestinationID: destination.ID,
		DepartureAt:   req.DepartureAt,
		ArrivalAt:     req.ArrivalAt,
		Status:        models.TripStatusScheduled,
		IsRoundTrip:   false,
		LegType:       models.LegTypeSingle,
		DistanceKm:    s.lookupDistance(ctx, origin, destination),
		Notes:         req.Notes,
	}
	if err := s.trips.Create(ctx, trip); err != nil {
		return nil, err
	}
	trip.Origin, trip.Destination = origin, destination

	s.logger.WithFields(logrus.Fields{
		"trip_id":     trip.ID,
		"origin":      origin.Label(),
		"destination": destination.Label(),
	}).Info("Trip created")

	return trip, nil
}

// GetTrip returns a trip with its origin and destination resolved
func (s *TripLinkingService) GetTrip(ctx context.Context, id string) (*models.Trip, error) {
	trip, err := s.trips.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.attachPlaces(ctx, trip); err != nil {
		return nil, err
	}
	return trip, nil
}

// UpdateTrip edits a trip and keeps its round trip pair consistent. Editing
// an outbound leg shifts the return leg by the change of the arrival time and
// mirrors the new route onto it. A return leg must keep the mirrored route
// and cannot depart before the outbound leg arrives. The second result is the
// partner leg when it was rewritten too.
func (s *TripLinkingService) UpdateTrip(ctx context.Context, id string, req *models.UpdateTripRequest) (*models.Trip, *models.Trip, error) {
	current, err := s.trips.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := req.Validate(current, s.now()); err != nil {
		return nil, nil, err
	}
	origin, destination, err := s.resolve(ctx, req.BusID, req.DriverID, req.OriginID, req.DestinationID)
	if err != nil {
		return nil, nil, err
	}

	routeChanged := origin.ID != current.OriginID || destination.ID != current.DestinationID
	distance := current.DistanceKm
	if routeChanged {
		// a failed lookup clears the distance of the old route
		distance = s.lookupDistance(ctx, origin, destination)
	}

	var trip, partner *models.Trip
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := s.trips.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := req.Validate(locked, s.now()); err != nil {
			return err
		}
		previous := *locked

		trip = locked
		trip.BusID, trip.DriverID = req.BusID, req.DriverID
		trip.OriginID, trip.DestinationID = origin.ID, destination.ID
		trip.DepartureAt, trip.ArrivalAt = req.DepartureAt, req.ArrivalAt
		trip.DistanceKm, trip.Notes = distance, req.Notes

		if trip.IsRoundTrip && trip.IsLinked() {
			other, err := s.trips.GetByIDForUpdate(ctx, *trip.LinkedTripID)
			switch {
			case errors.Is(err, models.ErrNotFound):
			case err != nil:
				return err
			case trip.LegType == models.LegTypeReturn:
				if err := checkReturnLeg(trip, other); err != nil {
					return err
				}
			case trip.LegType == models.LegTypeOutbound:
				if partner, err = followOutbound(&previous, trip, other); err != nil {
					return err
				}
			}
		}

		if err := s.trips.Update(ctx, trip); err != nil {
			return err
		}
		if partner != nil {
			return s.trips.Update(ctx, partner)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	trip.Origin, trip.Destination = origin, destination
	if partner != nil {
		partner.Origin, partner.Destination = destination, origin
	}

	fields := logrus.Fields{
		"trip_id":     trip.ID,
		"origin":      origin.Label(),
		"destination": destination.Label(),
	}
	if partner != nil {
		fields["return_trip_id"] = partner.ID
	}
	s.logger.WithFields(fields).Info("Trip updated")

	return trip, partner, nil
}

// checkReturnLeg validates an edited return leg against its outbound leg
func checkReturnLeg(trip, outbound *models.Trip) error {
	if trip.OriginID != outbound.DestinationID || trip.DestinationID != outbound.OriginID {
		return models.NewValidationError("origin_id", "the return leg must drive the outbound route backwards")
	}
	if trip.DepartureAt.Before(outbound.ArrivalAt) {
		return models.NewValidationError("departure_at", "the return leg cannot depart before the outbound leg arrives")
	}
	return nil
}

// followOutbound rewrites the return leg after its outbound leg changed from
// previous to trip. It returns nil when the return leg is already in line.
func followOutbound(previous, trip, ret *models.Trip) (*models.Trip, error) {
	updated := *ret
	shift := trip.ArrivalAt.Sub(previous.ArrivalAt)
	updated.DepartureAt = ret.DepartureAt.Add(shift)
	updated.ArrivalAt = ret.ArrivalAt.Add(shift)
	if updated.DepartureAt.Before(trip.ArrivalAt) {
		updated.ArrivalAt = trip.ArrivalAt.Add(ret.Duration())
		updated.DepartureAt = trip.ArrivalAt
	}
	updated.OriginID, updated.DestinationID = trip.DestinationID, trip.OriginID
	if trip.OriginID != previous.OriginID || trip.DestinationID != previous.DestinationID {
		updated.DistanceKm = trip.DistanceKm
	}
	if ret.BusID == previous.BusID {
		updated.BusID = trip.BusID
	}
	if ret.DriverID == previous.DriverID {
		updated.DriverID = trip.DriverID
	}

	if updated.DepartureAt.Equal(ret.DepartureAt) && updated.ArrivalAt.Equal(ret.ArrivalAt) &&
		updated.OriginID == ret.OriginID && updated.DestinationID == ret.DestinationID &&
		updated.BusID == ret.BusID && updated.DriverID == ret.DriverID &&
		sameDistance(updated.DistanceKm, ret.DistanceKm) {
		return nil, nil
	}
	if ret.Status != models.TripStatusScheduled {
		return nil, models.NewValidationError("linked_trip_id",
			"the return leg is "+string(ret.Status)+" and cannot follow this change")
	}
	return &updated, nil
}

func sameDistance(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// RefreshDistance looks the driving distance up again. When the lookup fails
// the stored distance is left untouched and no error is returned.
func (s *TripLinkingService) RefreshDistance(ctx context.Context, id string) (*models.Trip, error) {
	trip, err := s.GetTrip(ctx, id)
	if err != nil {
		return nil, err
	}
	km := s.lookupDistance(ctx, trip.Origin, trip.Destination)
	if km == nil {
		return trip, nil
	}
	if err := s.trips.UpdateDistance(ctx, trip.ID, *km); err != nil {
		return nil, err
	}
	trip.DistanceKm = km
	return trip, nil
}

// DeleteTrip removes a trip. Its partner leg, if any, becomes a single trip.
func (s *TripLinkingService) DeleteTrip(ctx context.Context, id string) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		trip, err := s.trips.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if trip.IsLinked() {
			partner, err := s.trips.GetByID(ctx, *trip.LinkedTripID)
			switch {
			case errors.Is(err, models.ErrNotFound):
			case err != nil:
				return err
			default:
				if err := s.trips.UpdateLink(ctx, partner.ID, false, models.LegTypeSingle, nil); err != nil {
					return err
				}
			}
		}
		return s.trips.Delete(ctx, id)
	})
}

// ReconcileLinks repairs round trip pairs so every pair is mutual with the
// earlier departure as outbound. Running it on a consistent dataset changes
// nothing. With dryRun the planned changes are reported but not written.
func (s *TripLinkingService) ReconcileLinks(ctx context.Context, dryRun bool) (*models.ReconcileReport, error) {
	report := &models.ReconcileReport{DryRun: dryRun, Changes: []models.TripLinkChange{}}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		trips, err := s.trips.ListForReconciliation(ctx)
		if err != nil {
			return err
		}
		report.Examined = len(trips)
		report.Changes = planLinkRepairs(trips)
		if dryRun {
			return nil
		}
		for _, c := range report.Changes {
			if err := s.trips.UpdateLink(ctx, c.TripID, c.IsRoundTrip, c.LegType, c.LinkedTripID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	report.Updated = len(report.Changes)
	if dryRun {
		report.Updated = 0
	}
	s.logger.WithFields(logrus.Fields{
		"examined": report.Examined,
		"changes":  len(report.Changes),
		"dry_run":  dryRun,
	}).Info("Trip links reconciled")

	return report, nil
}

type legState struct {
	roundTrip bool
	leg       models.LegType
	linked    *string
}

// planLinkRepairs computes the changes that make trips satisfy the pairing
// invariant. Pairs are chosen in departure order: mutual links first, then
// one-directional links to a free round trip leg. A round trip leg left
// without a partner becomes a single trip.
func planLinkRepairs(trips []models.Trip) []models.TripLinkChange {
	ordered := make([]*models.Trip, len(trips))
	byID := make(map[string]*models.Trip, len(trips))
	for i := range trips {
		ordered[i] = &trips[i]
		byID[trips[i].ID] = &trips[i]
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].DepartureAt.Equal(ordered[j].DepartureAt) {
			return ordered[i].DepartureAt.Before(ordered[j].DepartureAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	partner := make(map[string]string)
	candidate := func(t *models.Trip) *models.Trip {
		if !t.IsRoundTrip || !t.IsLinked() || partner[t.ID] != "" {
			return nil
		}
		u, ok := byID[*t.LinkedTripID]
		if !ok || u.ID == t.ID || !u.IsRoundTrip || partner[u.ID] != "" {
			return nil
		}
		return u
	}

	for _, t := range ordered {
		if u := candidate(t); u != nil && u.IsLinked() && *u.LinkedTripID == t.ID {
			partner[t.ID], partner[u.ID] = u.ID, t.ID
		}
	}
	for _, t := range ordered {
		if u := candidate(t); u != nil {
			partner[t.ID], partner[u.ID] = u.ID, t.ID
		}
	}

	changes := []models.TripLinkChange{}
	for _, t := range ordered {
		want := legState{leg: models.LegTypeSingle}
		if p, ok := partner[t.ID]; ok {
			other := byID[p]
			want.roundTrip = true
			want.linked = &other.ID
			want.leg = models.LegTypeReturn
			if departsFirst(t, other) {
				want.leg = models.LegTypeOutbound
			}
		}

		if t.IsRoundTrip == want.roundTrip && t.LegType == want.leg && sameLink(t.LinkedTripID, want.linked) {
			continue
		}
		changes = append(changes, models.TripLinkChange{
			TripID:              t.ID,
			PreviousIsRoundTrip: t.IsRoundTrip,
			IsRoundTrip:         want.roundTrip,
			PreviousLegType:     t.LegType,
			LegType:             want.leg,
			PreviousLinkID:      t.LinkedTripID,
			LinkedTripID:        want.linked,
		})
	}
	return changes
}

func departsFirst(a, b *models.Trip) bool {
	if !a.DepartureAt.Equal(b.DepartureAt) {
		return a.DepartureAt.Before(b.DepartureAt)
	}
	return a.ID < b.ID
}

func sameLink(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *TripLinkingService) prepare(ctx context.Context, req *models.CreateTripRequest) (*models.Place, *models.Place, error) {
	if err := req.Validate(s.now()); err != nil {
		return nil, nil, err
	}
	return s.resolve(ctx, req.BusID, req.DriverID, req.OriginID, req.DestinationID)
}

// resolve checks that the bus and driver can be assigned and that both
// places have coordinates
func (s *TripLinkingService) resolve(ctx context.Context, busID, driverID, originID, destinationID string) (*models.Place, *models.Place, error) {
	bus, err := s.buses.GetByID(ctx, busID)
	if err != nil {
		return nil, nil, err
	}
	if bus.Status == models.BusStatusInactive {
		return nil, nil, models.NewValidationError("bus_id", "bus is inactive")
	}

	driver, err := s.drivers.GetByID(ctx, driverID)
	if err != nil {
		return nil, nil, err
	}
	if !driver.Active {
		return nil, nil, models.NewValidationError("driver_id", "driver is inactive")
	}

	origin, err := s.places.GetByID(ctx, originID)
	if err != nil {
		return nil, nil, err
	}
	if !origin.HasCoordinates() {
		return nil, nil, models.NewValidationError("origin_id", "origin has no valid coordinates")
	}

	destination, err := s.places.GetByID(ctx, destinationID)
	if err != nil {
		return nil, nil, err
	}
	if !destination.HasCoordinates() {
		return nil, nil, models.NewValidationError("destination_id", "destination has no valid coordinates")
	}

	return origin, destination, nil
}

func (s *TripLinkingService) attachPlaces(ctx context.Context, trip *models.Trip) error {
	origin, err := s.places.GetByID(ctx, trip.OriginID)
	if err != nil {
		return err
	}
	destination, err := s.places.GetByID(ctx, trip.DestinationID)
	if err != nil {
		return err
	}
	trip.Origin, trip.Destination = origin, destination
	return nil
}

// lookupDistance asks the distance service for the driving distance. Any
// failure is logged and reported as nil.
func (s *TripLinkingService) lookupDistance(ctx context.Context, from, to *models.Place) *float64 {
	if s.distance == nil || !from.HasCoordinates() || !to.HasCoordinates() {
		return nil
	}
	km, err := s.distance.DrivingDistanceKm(ctx, *from.Latitude, *from.Longitude, *to.Latitude, *to.Longitude)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"origin":      from.Label(),
			"destination": to.Label(),
		}).Warn("Distance lookup failed, leaving distance unset")
		return nil
	}
	return &km
}
