package orders

import (
	"bytes"
	"fmt"
	"html/template"

	"storefront-system/internal/database/models"
)

var emailTemplates = template.Must(template.New("emails").Parse(`
{{define "receipt"}}<h2>Thank you for your order</h2>
<p>Hi {{.Name}}, we received payment for order #{{.Order.ID}}.</p>
<table>
<tr><th>Item</th><th>Qty</th><th>Price</th></tr>
{{- range .Order.Items}}
<tr><td>{{.Name}}</td><td>{{.Quantity}}</td><td>{{.Price}}</td></tr>
{{- end}}
</table>
<p>Items: {{.Order.ItemsPrice}}<br>Shipping: {{.Order.ShippingPrice}}<br>Tax: {{.Order.TaxPrice}}<br><strong>Total: {{.Order.TotalPrice}}</strong></p>
{{end}}

{{define "review"}}<h2>Your order has been delivered</h2>
<p>Hi {{.Name}}, order #{{.Order.ID}} has arrived. Tell us what you think of:</p>
<ul>
{{- range .Order.Items}}
<li>{{.Name}}</li>
{{- end}}
</ul>
{{end}}

{{define "cancelled"}}<h2>Your order has been cancelled</h2>
<p>Hi {{.Name}}, order #{{.Order.ID}} was cancelled. You have not been charged.</p>
{{end}}
`))

type emailView struct {
	Name  string
	Order *models.Order
}

func renderEmail(name string, order *models.Order) (subject, body string, err error) {
	switch name {
	case "receipt":
		subject = fmt.Sprintf("Receipt for order #%d", order.ID)
	case "review":
		subject = fmt.Sprintf("How was order #%d?", order.ID)
	case "cancelled":
		subject = fmt.Sprintf("Order #%d cancelled", order.ID)
	default:
		return "", "", fmt.Errorf("unknown email template %q", name)
	}

	view := emailView{Order: order}
	if order.User != nil {
		view.Name = order.User.Name
	}

	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name, view); err != nil {
		return "", "", fmt.Errorf("render %s email: %w", name, err)
	}
	return subject, buf.String(), nil
}
