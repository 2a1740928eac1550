package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

const confirmationHTML = `<div style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: auto; border: 1px solid #e0e0e0; border-radius: 8px; overflow: hidden;">
  <div style="background-color: #4CAF50; padding: 20px; text-align: center; color: white;">
    <h1 style="margin: 0; font-size: 24px;">Appointment Confirmed</h1>
  </div>
  <div style="padding: 30px;">
    <p style="font-size: 16px;">Hello <strong>{{.FirstName}} {{.LastName}}</strong>,</p>
    <p style="font-size: 16px;">Your appointment has been successfully booked with:</p>
    <table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
      <tr><td style="padding: 8px; font-weight: bold; width: 150px;">Provider</td><td style="padding: 8px;">{{.ProviderName}}</td></tr>
      <tr><td style="padding: 8px; font-weight: bold;">Reason</td><td style="padding: 8px;">{{.Reason}}</td></tr>
      <tr><td style="padding: 8px; font-weight: bold;">Date &amp; Time</td><td style="padding: 8px;">{{.When}}</td></tr>
    </table>
    <p style="font-size: 16px; margin-top: 20px;">Please arrive 10 minutes early and carry any necessary documents.</p>
    <p style="font-size: 16px; margin-top: 20px;">Thank you,<br><strong>{{.ClinicName}}</strong></p>
  </div>
  <div style="background-color: #f4f4f4; padding: 15px; text-align: center; font-size: 12px; color: #777;">
    &copy; {{.Year}} {{.ClinicName}}. All rights reserved.
  </div>
</div>`

const confirmationText = `Hello {{.FirstName}} {{.LastName}},

Your appointment has been successfully booked with:

Provider:    {{.ProviderName}}
Reason:      {{.Reason}}
Date & Time: {{.When}}

Please arrive 10 minutes early and carry any necessary documents.

Thank you,
{{.ClinicName}}
`

const orderInboxHTML = `<h2>New sample order {{.OrderID}}</h2>
<table style="border-collapse: collapse;">
  <tr><td style="padding: 4px 8px; font-weight: bold;">Product</td><td style="padding: 4px 8px;">{{.ProductName}} ({{.ProductCode}})</td></tr>
  <tr><td style="padding: 4px 8px; font-weight: bold;">Type</td><td style="padding: 4px 8px;">{{.Type}}</td></tr>
  <tr><td style="padding: 4px 8px; font-weight: bold;">Customer</td><td style="padding: 4px 8px;">{{.CustomerName}}</td></tr>
  <tr><td style="padding: 4px 8px; font-weight: bold;">Email</td><td style="padding: 4px 8px;">{{.CustomerEmail}}</td></tr>
  <tr><td style="padding: 4px 8px; font-weight: bold;">Phone</td><td style="padding: 4px 8px;">{{.CustomerPhone}}</td></tr>
  <tr><td style="padding: 4px 8px; font-weight: bold;">Ship to</td><td style="padding: 4px 8px;">{{.ShippingAddress}}</td></tr>
</table>`

const orderInboxText = `New sample order {{.OrderID}}

Product:  {{.ProductName}} ({{.ProductCode}})
Type:     {{.Type}}
Customer: {{.CustomerName}}
Email:    {{.CustomerEmail}}
Phone:    {{.CustomerPhone}}
Ship to:  {{.ShippingAddress}}
`

const orderReceiptText = `Hi {{.CustomerName}},

We received your sample request for {{.ProductName}} ({{.ProductCode}}).
Order reference: {{.OrderID}}

It will ship to:
{{.ShippingAddress}}

Thank you,
{{.ClinicName}}
`

var (
	confirmationHTMLTmpl = htmltemplate.Must(htmltemplate.New("confirmation.html").Option("missingkey=error").Parse(confirmationHTML))
	confirmationTextTmpl = texttemplate.Must(texttemplate.New("confirmation.txt").Option("missingkey=error").Parse(confirmationText))
	orderInboxHTMLTmpl   = htmltemplate.Must(htmltemplate.New("order_inbox.html").Option("missingkey=error").Parse(orderInboxHTML))
	orderInboxTextTmpl   = texttemplate.Must(texttemplate.New("order_inbox.txt").Option("missingkey=error").Parse(orderInboxText))
	orderReceiptTextTmpl = texttemplate.Must(texttemplate.New("order_receipt.txt").Option("missingkey=error").Parse(orderReceiptText))
)

func render(name string, exec func(*bytes.Buffer) error) (string, error) {
	var buf bytes.Buffer
	if err := exec(&buf); err != nil {
		return "", fmt.Errorf("notify: render %s: %w", name, err)
	}
	return buf.String(), nil
}

func renderHTML(t *htmltemplate.Template, data any) (string, error) {
	return render(t.Name(), func(buf *bytes.Buffer) error { return t.Execute(buf, data) })
}

func renderText(t *texttemplate.Template, data any) (string, error) {
	return render(t.Name(), func(buf *bytes.Buffer) error { return t.Execute(buf, data) })
}
