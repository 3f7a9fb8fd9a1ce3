package email

import (
	"bytes"
	"html/template"
	textTemplate "text/template"
)

// TemplateManager holds the parsed email templates
type TemplateManager struct {
	driverFormHTML *template.Template
	driverFormText *textTemplate.Template
}

// NewTemplateManager parses all email templates at startup
func NewTemplateManager() (*TemplateManager, error) {
	driverFormHTML, err := template.New("driverForm").Parse(driverFormHTMLTemplate)
	if err != nil {
		return nil, err
	}

	driverFormText, err := textTemplate.New("driverFormText").Parse(driverFormTextTemplate)
	if err != nil {
		return nil, err
	}

	return &TemplateManager{
		driverFormHTML: driverFormHTML,
		driverFormText: driverFormText,
	}, nil
}

// DriverFormData holds the dynamic data for the driver form email
type DriverFormData struct {
	CompanyName string
	DriverName  string
	Origin      string
	Destination string
	Departure   string
	BusPlate    string
}

// DriverFormEmail renders the HTML and plain text bodies of the driver form email
func (tm *TemplateManager) DriverFormEmail(data DriverFormData) (html string, text string, err error) {
	var htmlBody bytes.Buffer
	if err := tm.driverFormHTML.Execute(&htmlBody, data); err != nil {
		return "", "", err
	}

	var textBody bytes.Buffer
	if err := tm.driverFormText.Execute(&textBody, data); err != nil {
		return "", "", err
	}
	return htmlBody.String(), textBody.String(), nil
}

// --- Template Definitions ---

const driverFormHTMLTemplate = `
<!DOCTYPE html>
<html>
<head>
	<title>Trip form</title>
</head>
<body style="font-family: Arial, sans-serif;">
	<h2>{{.CompanyName}}</h2>
	<p>Hello {{.DriverName}},</p>
	<p>Attached is the form for your trip from <strong>{{.Origin}}</strong> to <strong>{{.Destination}}</strong>
	departing on {{.Departure}} with bus {{.BusPlate}}.</p>
	<p>Please write down the odometer readings, every fuel stop and every toll paid during the trip,
	and hand the form in together with the receipts when you return.</p>
</body>
</html>
`

const driverFormTextTemplate = `{{.CompanyName}}

Hello {{.DriverName}},

Attached is the form for your trip from {{.Origin}} to {{.Destination}} departing on {{.Departure}} with bus {{.BusPlate}}.

Please write down the odometer readings, every fuel stop and every toll paid during the trip, and hand the form in together with the receipts when you return.
`
