package htmltext

import (
	"testing"
)

func TestToPlainTextKeepsStructure(t *testing.T) {
	html := `<html><head><style>body { color: red; }</style></head><body>
		<div class="header"><h1>Stadtwerke Wülfrath</h1><p>Ihre Rechnung für {{order.products.name}}</p></div>
		<p><strong>Rechnungsnummer:</strong> R-{{order._id}}-001<br>Datum: {{_now | date: 'DD.MM.YYYY'}}</p>
		<ul><li>Grundgebühr</li><li>MwSt. &amp; Steuern</li></ul>
		<table><tr><th>Position</th><th>Gesamt</th></tr><tr><td>1</td><td>9.90 EUR</td></tr></table>
	</body></html>`

	got, err := ToPlainText(html)
	if err != nil {
		t.Fatalf("ToPlainText: %v", err)
	}

	want := "Stadtwerke Wülfrath\n\n" +
		"Ihre Rechnung für {{order.products.name}}\n\n" +
		"Rechnungsnummer: R-{{order._id}}-001\n" +
		"Datum: {{_now | date: 'DD.MM.YYYY'}}\n\n" +
		"- Grundgebühr\n" +
		"- MwSt. & Steuern\n\n" +
		"Position | Gesamt\n" +
		"1 | 9.90 EUR"
	if got != want {
		t.Fatalf("unexpected text:\n%q\nwant:\n%q", got, want)
	}
}

func TestToPlainTextEmpty(t *testing.T) {
	got, err := ToPlainText("   ")
	if err != nil || got != "" {
		t.Fatalf("expected empty output, got %q err=%v", got, err)
	}
}

func TestToPlainTextPlainInput(t *testing.T) {
	got, err := ToPlainText("Hallo   {{contact.first_name}},\n\n\n\nbis bald")
	if err != nil {
		t.Fatalf("ToPlainText: %v", err)
	}
	if got != "Hallo {{contact.first_name}},\n\nbis bald" {
		t.Fatalf("unexpected text %q", got)
	}
}
