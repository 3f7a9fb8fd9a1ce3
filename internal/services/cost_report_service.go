package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/DoSvEinTe/proyecto-flota/internal/models"
	"github.com/DoSvEinTe/proyecto-flota/pkg/email"
	"github.com/DoSvEinTe/proyecto-flota/pkg/pdf"
)

// ErrEmailDisabled is returned when a message is requested but no mailer is configured
var ErrEmailDisabled = errors.New("email delivery is disabled")

// DocumentRenderer turns a document into PDF bytes
type DocumentRenderer interface {
	Render(doc pdf.Document) ([]byte, error)
}

// Mailer delivers email
type Mailer interface {
	Send(ctx context.Context, msg email.Message) error
}

// PassengerLister lists the bookings of a trip
type PassengerLister interface {
	ListPassengers(ctx context.Context, tripID string) ([]models.TripPassenger, error)
}

// CostReportService builds read-only views of cost records: the resolved
// report, its PDF, period summaries and the paper form handed to drivers
type CostReportService struct {
	costs       CostRecordStore
	trips       TripStore
	places      PlaceStore
	buses       BusStore
	drivers     DriverStore
	stops       FuelStopStore
	tolls       TollStore
	maintenance MaintenanceStore
	passengers  PassengerLister
	renderer    DocumentRenderer
	mailer      Mailer
	templates   *email.TemplateManager
	companyName string
	logger      *logrus.Logger
}

// CostReportDeps groups the collaborators of CostReportService. Mailer and
// Templates may be nil when email is disabled.
type CostReportDeps struct {
	Costs       CostRecordStore
	Trips       TripStore
	Places      PlaceStore
	Buses       BusStore
	Drivers     DriverStore
	Stops       FuelStopStore
	Tolls       TollStore
	Maintenance MaintenanceStore
	Passengers  PassengerLister
	Renderer    DocumentRenderer
	Mailer      Mailer
	Templates   *email.TemplateManager
	CompanyName string
}

// NewCostReportService creates a new CostReportService
func NewCostReportService(deps CostReportDeps, logger *logrus.Logger) *CostReportService {
	return &CostReportService{
		costs:       deps.Costs,
		trips:       deps.Trips,
		places:      deps.Places,
		buses:       deps.Buses,
		drivers:     deps.Drivers,
		stops:       deps.Stops,
		tolls:       deps.Tolls,
		maintenance: deps.Maintenance,
		passengers:  deps.Passengers,
		renderer:    deps.Renderer,
		mailer:      deps.Mailer,
		templates:   deps.Templates,
		companyName: deps.CompanyName,
		logger:      logger,
	}
}

// GetCostReport returns the cost record together with everything it refers to
func (s *CostReportService) GetCostReport(ctx context.Context, costRecordID string) (*models.CostReport, error) {
	rec, err := s.costs.GetByID(ctx, costRecordID)
	if err != nil {
		return nil, err
	}
	trip, err := s.loadTrip(ctx, rec.TripID)
	if err != nil {
		return nil, err
	}

	report := &models.CostReport{CostRecord: rec, Trip: trip}

	if trip.IsLinked() {
		linked, err := s.loadTrip(ctx, *trip.LinkedTripID)
		switch {
		case err == nil:
			report.LinkedTrip = linked
		case !models.IsNotFound(err):
			return nil, err
		}
	}

	if report.Bus, err = s.buses.GetByID(ctx, trip.BusID); err != nil {
		return nil, err
	}
	if report.Driver, err = s.drivers.GetByID(ctx, trip.DriverID); err != nil {
		return nil, err
	}
	if report.FuelStops, err = s.stops.ListByCostRecord(ctx, rec.ID); err != nil {
		return nil, err
	}
	if report.Tolls, err = s.tolls.ListByCostRecord(ctx, rec.ID); err != nil {
		return nil, err
	}
	if report.Maintenance, err = s.maintenance.ListByCostRecord(ctx, rec.ID); err != nil {
		return nil, err
	}
	if report.Passengers, err = s.passengers.ListPassengers(ctx, trip.ID); err != nil {
		return nil, err
	}

	deriveReportTotals(report)
	return report, nil
}

// deriveReportTotals fills the computed fields of a report
func deriveReportTotals(report *models.CostReport) {
	report.TotalLiters = decimal.Zero
	report.FuelStopKm = 0
	for _, stop := range report.FuelStops {
		report.TotalLiters = report.TotalLiters.Add(stop.Liters)
		report.FuelStopKm += stop.DistanceSincePrevious
	}

	rec := report.CostRecord
	if rec.InitialOdometer == nil || rec.FinalOdometer == nil {
		return
	}
	km := *rec.FinalOdometer - *rec.InitialOdometer
	report.TravelledKm = &km
	if km > 0 {
		perKm := decimal.NewFromInt(rec.TotalCost).Div(decimal.NewFromInt(km)).Round(0).IntPart()
		report.CostPerKm = &perKm
	}
}

// RenderCostReport renders the cost report as a PDF and returns a file name for it
func (s *CostReportService) RenderCostReport(ctx context.Context, costRecordID string) ([]byte, string, error) {
	report, err := s.GetCostReport(ctx, costRecordID)
	if err != nil {
		return nil, "", err
	}

	out, err := s.renderer.Render(costReportDocument(report, s.companyName))
	if err != nil {
		return nil, "", err
	}
	return out, fmt.Sprintf("cost_report_%s.pdf", report.Trip.ID), nil
}

// GetCostSummary totals cost records per bus for trips departing between
// from and to (inclusive dates, YYYY-MM-DD)
func (s *CostReportService) GetCostSummary(ctx context.Context, from, to, busID string) (*models.CostSummary, error) {
	start, err := time.Parse(models.DateLayout, from)
	if err != nil {
		return nil, models.NewValidationError("from", "invalid date format, expected YYYY-MM-DD")
	}
	end, err := time.Parse(models.DateLayout, to)
	if err != nil {
		return nil, models.NewValidationError("to", "invalid date format, expected YYYY-MM-DD")
	}
	if end.Before(start) {
		return nil, models.NewValidationError("to", "end date must not be before start date")
	}

	rows, err := s.costs.Summary(ctx, start, end.AddDate(0, 0, 1), busID)
	if err != nil {
		return nil, err
	}

	summary := &models.CostSummary{From: from, To: to, Rows: rows}
	summary.Totals.LicensePlate = "TOTAL"
	for _, row := range rows {
		t := &summary.Totals
		t.Trips += row.Trips
		if t.FuelCost, err = models.SumInt64(t.FuelCost, row.FuelCost); err != nil {
			return nil, err
		}
		if t.MaintenanceCost, err = models.SumInt64(t.MaintenanceCost, row.MaintenanceCost); err != nil {
			return nil, err
		}
		if t.TollsCost, err = models.SumInt64(t.TollsCost, row.TollsCost); err != nil {
			return nil, err
		}
		if t.OtherCosts, err = models.SumInt64(t.OtherCosts, row.OtherCosts); err != nil {
			return nil, err
		}
		if t.TotalCost, err = models.SumInt64(t.TotalCost, row.TotalCost); err != nil {
			return nil, err
		}
		if t.Kilometers, err = models.SumInt64(t.Kilometers, row.Kilometers); err != nil {
			return nil, err
		}
	}
	return summary, nil
}

// SendDriverForm emails the printable trip form to the trip's driver
func (s *CostReportService) SendDriverForm(ctx context.Context, tripID string) error {
	if s.mailer == nil || s.templates == nil {
		return ErrEmailDisabled
	}

	trip, err := s.loadTrip(ctx, tripID)
	if err != nil {
		return err
	}
	driver, err := s.drivers.GetByID(ctx, trip.DriverID)
	if err != nil {
		return err
	}
	if driver.Email == nil || *driver.Email == "" {
		return models.NewValidationError("driver_id", fmt.Sprintf("driver %s has no registered email", driver.FullName()))
	}
	bus, err := s.buses.GetByID(ctx, trip.BusID)
	if err != nil {
		return err
	}
	passengers, err := s.passengers.ListPassengers(ctx, trip.ID)
	if err != nil {
		return err
	}

	form, err := s.renderer.Render(driverFormDocument(trip, bus, driver, passengers, s.companyName))
	if err != nil {
		return err
	}

	html, text, err := s.templates.DriverFormEmail(email.DriverFormData{
		CompanyName: s.companyName,
		DriverName:  driver.FullName(),
		Origin:      trip.Origin.Label(),
		Destination: trip.Destination.Label(),
		Departure:   trip.DepartureAt.Format("2006-01-02 15:04"),
		BusPlate:    bus.LicensePlate,
	})
	if err != nil {
		return fmt.Errorf("failed to render driver form email: %w", err)
	}

	err = s.mailer.Send(ctx, email.Message{
		To:      *driver.Email,
		Subject: fmt.Sprintf("Trip form %s - %s (%s)", trip.Origin.Name, trip.Destination.Name, trip.DepartureAt.Format("02/01/2006")),
		Text:    text,
		HTML:    html,
		Attachments: []email.Attachment{{
			Filename:    fmt.Sprintf("trip_form_%s.pdf", trip.ID),
			ContentType: "application/pdf",
			Data:        form,
		}},
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"trip_id":   trip.ID,
		"driver_id": driver.ID,
	}).Info("Driver form sent")
	return nil
}

func (s *CostReportService) loadTrip(ctx context.Context, id string) (*models.Trip, error) {
	trip, err := s.trips.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if trip.Origin, err = s.places.GetByID(ctx, trip.OriginID); err != nil {
		return nil, err
	}
	if trip.Destination, err = s.places.GetByID(ctx, trip.DestinationID); err != nil {
		return nil, err
	}
	return trip, nil
}
