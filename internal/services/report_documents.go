package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/DoSvEinTe/proyecto-flota/internal/models"
	"github.com/DoSvEinTe/proyecto-flota/pkg/pdf"
)

const (
	displayDate     = "02/01/2006"
	displayDateTime = "02/01/2006 15:04"
	driverFormRows  = 6
)

func costReportDocument(r *models.CostReport, company string) pdf.Document {
	rec := r.CostRecord
	doc := pdf.Document{
		Title:    "Trip Cost Report",
		Subtitle: fmt.Sprintf("%s - %s, %s", r.Trip.Origin.Label(), r.Trip.Destination.Label(), r.Trip.DepartureAt.Format(displayDate)),
		Footer:   company,
	}

	doc.Sections = append(doc.Sections,
		pdf.Section{Heading: "Bus", Fields: busFields(r.Bus)},
		pdf.Section{Heading: "Driver", Fields: driverFields(r.Driver)},
		pdf.Section{Heading: "Trip", Fields: tripFields(r.Trip, r.LinkedTrip, len(r.Passengers), r.Bus.Capacity)},
	)

	summary := pdf.Section{
		Heading: "Cost summary",
		Table: &pdf.Table{
			Headers: []string{"Concept", "Amount"},
			Widths:  []float64{110, 70},
			Rows: [][]string{
				{"Fuel", pdf.FormatPesos(rec.FuelCost)},
				{"Maintenance", pdf.FormatPesos(rec.MaintenanceCost)},
				{"Tolls", pdf.FormatPesos(rec.TollsCost)},
				{"Other costs", pdf.FormatPesos(rec.OtherCosts)},
				{"TOTAL", pdf.FormatPesos(rec.TotalCost)},
			},
		},
	}
	var notes []string
	if r.TravelledKm != nil {
		notes = append(notes, fmt.Sprintf("Odometer %s to %s km, %s km travelled.",
			pdf.FormatNumber(*rec.InitialOdometer), pdf.FormatNumber(*rec.FinalOdometer), pdf.FormatNumber(*r.TravelledKm)))
	}
	if r.CostPerKm != nil {
		notes = append(notes, fmt.Sprintf("Cost per km: %s.", pdf.FormatPesos(*r.CostPerKm)))
	}
	notes = append(notes, fmt.Sprintf("Fuel cost is liters x price per liter of each stop; %s liters in total.", r.TotalLiters.StringFixed(2)))
	summary.Note = strings.Join(notes, " ")
	doc.Sections = append(doc.Sections, summary)

	fuel := pdf.Section{Heading: "Fuel stops", Note: "No fuel stops registered."}
	if len(r.FuelStops) > 0 {
		t := &pdf.Table{
			Headers: []string{"#", "Location", "Odometer", "Km", "Liters", "Price/l", "Cost"},
			Widths:  []float64{10, 50, 25, 20, 20, 25, 30},
		}
		for _, s := range r.FuelStops {
			t.Rows = append(t.Rows, []string{
				strconv.Itoa(s.SequenceNumber),
				s.Location,
				pdf.FormatNumber(s.OdometerReading),
				pdf.FormatNumber(s.DistanceSincePrevious),
				s.Liters.StringFixed(2),
				pdf.FormatPesos(s.PricePerLiter),
				pdf.FormatPesos(s.Cost),
			})
		}
		fuel.Table = t
		fuel.Note = fmt.Sprintf("Fuel stops: %d", len(r.FuelStops))
	}
	doc.Sections = append(doc.Sections, fuel)

	tolls := pdf.Section{Heading: "Tolls", Note: "No tolls registered."}
	if len(r.Tolls) > 0 {
		t := &pdf.Table{
			Headers: []string{"#", "Location", "Paid at", "Amount"},
			Widths:  []float64{10, 90, 45, 35},
		}
		for i, toll := range r.Tolls {
			t.Rows = append(t.Rows, []string{
				strconv.Itoa(i + 1),
				toll.Location,
				toll.PaidAt.Format(displayDateTime),
				pdf.FormatPesos(toll.Amount),
			})
		}
		tolls.Table = t
		tolls.Note = fmt.Sprintf("Tolls: %d", len(r.Tolls))
	}
	doc.Sections = append(doc.Sections, tolls)

	maint := pdf.Section{Heading: "Maintenance", Note: "No maintenance linked to this trip."}
	if len(r.Maintenance) > 0 {
		t := &pdf.Table{
			Headers: []string{"Date", "Type", "Description", "Odometer", "Cost"},
			Widths:  []float64{25, 25, 70, 30, 30},
		}
		for _, m := range r.Maintenance {
			t.Rows = append(t.Rows, []string{
				m.PerformedOn.Format(displayDate),
				string(m.Type),
				m.Description,
				pdf.FormatNumber(m.Odometer),
				pdf.FormatPesos(m.Cost),
			})
		}
		maint.Table = t
		maint.Note = ""
	}
	doc.Sections = append(doc.Sections, maint)

	other := pdf.Section{Heading: "Other costs", Note: "No other costs registered."}
	if rec.OtherCosts > 0 || rec.Notes != "" {
		other.Fields = []pdf.Field{{Label: "Amount", Value: pdf.FormatPesos(rec.OtherCosts)}}
		other.Note = rec.Notes
		if other.Note == "" {
			other.Note = "-"
		}
	}
	doc.Sections = append(doc.Sections, other)

	doc.Sections = append(doc.Sections, passengerSection(r.Passengers))
	return doc
}

func driverFormDocument(trip *models.Trip, bus *models.Bus, driver *models.Driver, passengers []models.TripPassenger, company string) pdf.Document {
	return pdf.Document{
		Title:    "Trip Form",
		Subtitle: fmt.Sprintf("%s - %s, %s", trip.Origin.Label(), trip.Destination.Label(), trip.DepartureAt.Format(displayDateTime)),
		Footer:   company,
		Sections: []pdf.Section{
			{Heading: "Trip", Fields: tripFields(trip, nil, len(passengers), bus.Capacity)},
			{Heading: "Bus", Fields: busFields(bus)},
			{Heading: "Driver", Fields: driverFields(driver)},
			{
				Heading: "Odometer",
				Fields: []pdf.Field{
					{Label: "Initial reading", Value: "______________ km"},
					{Label: "Final reading", Value: "______________ km"},
				},
			},
			{
				Heading: "Fuel stops",
				Table: &pdf.Table{
					Headers:   []string{"#", "Location", "Odometer", "Liters", "Price/l", "Total"},
					Widths:    []float64{10, 60, 30, 25, 25, 30},
					BlankRows: driverFormRows,
				},
			},
			{
				Heading: "Tolls",
				Table: &pdf.Table{
					Headers:   []string{"#", "Location", "Date/time", "Amount"},
					Widths:    []float64{10, 90, 45, 35},
					BlankRows: driverFormRows,
				},
				Note: "Attach every receipt to this form.",
			},
			passengerSection(passengers),
		},
	}
}

func passengerSection(passengers []models.TripPassenger) pdf.Section {
	section := pdf.Section{Heading: "Passengers", Note: "No passengers registered for this trip."}
	if len(passengers) == 0 {
		return section
	}
	t := &pdf.Table{
		Headers: []string{"#", "Name", "Seat"},
		Widths:  []float64{10, 140, 30},
	}
	for i, p := range passengers {
		seat := ""
		if p.Seat != nil {
			seat = *p.Seat
		}
		t.Rows = append(t.Rows, []string{strconv.Itoa(i + 1), p.FullName, seat})
	}
	section.Table = t
	section.Note = ""
	return section
}

func busFields(b *models.Bus) []pdf.Field {
	return []pdf.Field{
		{Label: "License plate", Value: b.LicensePlate},
		{Label: "Make / model", Value: fmt.Sprintf("%s %s (%d)", b.Brand, b.Model, b.Year)},
		{Label: "Capacity", Value: strconv.Itoa(b.Capacity)},
	}
}

func driverFields(d *models.Driver) []pdf.Field {
	return []pdf.Field{
		{Label: "Name", Value: d.FullName()},
		{Label: "RUT", Value: d.NationalID},
		{Label: "License", Value: fmt.Sprintf("%s (%s)", d.LicenseNumber, strings.Join(d.LicenseCategories, ", "))},
		{Label: "Phone", Value: d.Phone},
	}
}

func tripFields(t *models.Trip, linked *models.Trip, passengers, capacity int) []pdf.Field {
	distance := "Not calculated"
	if t.DistanceKm != nil {
		distance = strconv.FormatFloat(*t.DistanceKm, 'f', 2, 64) + " km"
	}
	fields := []pdf.Field{
		{Label: "Origin", Value: t.Origin.Label()},
		{Label: "Destination", Value: t.Destination.Label()},
		{Label: "Departure", Value: t.DepartureAt.Format(displayDateTime)},
		{Label: "Estimated arrival", Value: t.ArrivalAt.Format(displayDateTime)},
		{Label: "Leg", Value: string(t.LegType)},
		{Label: "Estimated distance", Value: distance},
		{Label: "Passengers", Value: fmt.Sprintf("%d / %d", passengers, capacity)},
	}
	if linked != nil {
		fields = append(fields, pdf.Field{
			Label: "Linked leg",
			Value: fmt.Sprintf("%s - %s, %s", linked.Origin.Label(), linked.Destination.Label(), linked.DepartureAt.Format(displayDateTime)),
		})
	}
	return fields
}
