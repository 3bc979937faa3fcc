package notifications

import (
	"bytes"
	"fmt"
	"html/template"
)

var alertTemplate = template.Must(template.New("alert").Parse(`<h2>Stock alert</h2>
{{- if .Critical}}
<h3 style="color:#b91c1c">Critical ({{len .Critical}})</h3>
<table>
<tr><th>Product</th><th>In stock</th><th>Critical threshold</th></tr>
{{- range .Critical}}
<tr><td>{{.Name}}</td><td>{{.CountInStock}}</td><td>{{.CriticalThreshold}}</td></tr>
{{- end}}
</table>
{{- end}}
{{- if .Warning}}
<h3 style="color:#b45309">Low stock ({{len .Warning}})</h3>
<table>
<tr><th>Product</th><th>In stock</th><th>Low threshold</th></tr>
{{- range .Warning}}
<tr><td>{{.Name}}</td><td>{{.CountInStock}}</td><td>{{.LowThreshold}}</td></tr>
{{- end}}
</table>
{{- end}}
`))

type alertView struct {
	Critical []FlaggedProduct
	Warning  []FlaggedProduct
}

func renderAlert(flagged []FlaggedProduct) (subject, body string, err error) {
	var view alertView
	for _, p := range flagged {
		switch p.Severity {
		case SeverityCritical:
			view.Critical = append(view.Critical, p)
		case SeverityWarning:
			view.Warning = append(view.Warning, p)
		}
	}

	var buf bytes.Buffer
	if err := alertTemplate.Execute(&buf, view); err != nil {
		return "", "", fmt.Errorf("render stock alert: %w", err)
	}

	subject = fmt.Sprintf("Stock alert: %d critical, %d low", len(view.Critical), len(view.Warning))
	return subject, buf.String(), nil
}
