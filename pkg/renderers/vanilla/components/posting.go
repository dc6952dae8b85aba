package components

import (
	"bytes"
	"html"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/goliatone/go-backoffice/pkg/format"
	"github.com/goliatone/go-backoffice/pkg/model"
)

// Posting row keys. Definitions may rename them through config.extra
// (accountKey, descriptionKey, debitKey, creditKey).
var postingKeys = [...]struct{ extra, fallback, label string }{
	{"accountKey", "account", "Account"},
	{"descriptionKey", "description", "Description"},
	{"debitKey", "debit", "Debit"},
	{"creditKey", "credit", "Credit"},
}

// Totals sums the debit and credit columns of live posting rows.
func Totals(field model.Field, value any) (debit, credit decimal.Decimal) {
	keys := postingColumns(field)
	for _, row := range model.RowsFromValue(value) {
		if row.Deleted() {
			continue
		}
		if d, ok := format.ParseDecimal(row[keys[2]]); ok {
			debit = debit.Add(d)
		}
		if c, ok := format.ParseDecimal(row[keys[3]]); ok {
			credit = credit.Add(c)
		}
	}
	return debit, credit
}

// postingRenderer is the read-only ledger view: one row per entry with
// formatted amounts and a footer carrying totals and the balance.
func postingRenderer(buf *bytes.Buffer, field model.Field, data ComponentData) error {
	keys := postingColumns(field)
	places := decimalPlaces(field)
	var b strings.Builder

	b.WriteString(`<table class="bo-table bo-posting"`)
	writeAttr(&b, "id", ControlID(field.Code))
	b.WriteString(`><thead><tr>`)
	for _, key := range postingKeys {
		b.WriteString(`<th scope="col">`)
		b.WriteString(key.label)
		b.WriteString(`</th>`)
	}
	b.WriteString(`</tr></thead><tbody>`)
	for _, row := range model.RowsFromValue(data.Value) {
		if row.Deleted() {
			continue
		}
		b.WriteString(`<tr><td>`)
		b.WriteString(html.EscapeString(Text(row[keys[0]])))
		b.WriteString(`</td><td>`)
		b.WriteString(html.EscapeString(Text(row[keys[1]])))
		b.WriteString(`</td><td class="bo-amount">`)
		b.WriteString(html.EscapeString(amountCell(row[keys[2]], places)))
		b.WriteString(`</td><td class="bo-amount">`)
		b.WriteString(html.EscapeString(amountCell(row[keys[3]], places)))
		b.WriteString(`</td></tr>`)
	}
	b.WriteString(`</tbody>`)

	debit, credit := Totals(field, data.Value)
	balance := debit.Sub(credit)
	b.WriteString(`<tfoot><tr class="bo-posting-total"><th scope="row" colspan="2">Total</th><td class="bo-amount">`)
	b.WriteString(format.Amount(debit, places))
	b.WriteString(`</td><td class="bo-amount">`)
	b.WriteString(format.Amount(credit, places))
	b.WriteString(`</td></tr><tr class="bo-posting-balance"><th scope="row" colspan="2">Balance</th><td colspan="2" class="bo-amount`)
	if !balance.IsZero() {
		b.WriteString(` bo-amount--unbalanced`)
	}
	b.WriteString(`">`)
	b.WriteString(format.Amount(balance, places))
	b.WriteString(`</td></tr></tfoot></table>`)
	buf.WriteString(b.String())
	return nil
}

func postingColumns(field model.Field) [4]string {
	var keys [4]string
	for idx, key := range postingKeys {
		keys[idx] = key.fallback
		if custom, ok := field.Config.Extra[key.extra].(string); ok && strings.TrimSpace(custom) != "" {
			keys[idx] = strings.TrimSpace(custom)
		}
	}
	return keys
}

func amountCell(value any, places int32) string {
	if value == nil || Text(value) == "" {
		return ""
	}
	return format.Decimal(value, places)
}
