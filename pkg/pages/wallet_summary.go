package pages

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/goliatone/go-backoffice/pkg/client"
	"github.com/goliatone/go-backoffice/pkg/format"
	"github.com/goliatone/go-backoffice/pkg/model"
	rendertemplate "github.com/goliatone/go-backoffice/pkg/render/template"
)

// WalletSummaryCode is the static page code of the wallet summary.
const WalletSummaryCode = "wallet-summary"

// SummaryKind selects how a summary value is displayed.
type SummaryKind string

const (
	SummaryText   SummaryKind = "text"
	SummaryAmount SummaryKind = "amount"
	SummaryCount  SummaryKind = "count"
	SummaryMasked SummaryKind = "masked"
)

// SummaryItem is one key/value line of the summary.
type SummaryItem struct {
	Key   string
	Label string
	Kind  SummaryKind
}

// DataSource loads the payload behind a static page.
type DataSource interface {
	FormData(ctx context.Context, session client.Session, workflowID string, params map[string]any) (model.Values, error)
}

// DefaultSummaryItems lists the wallet attributes shown when none are given.
var DefaultSummaryItems = []SummaryItem{
	{Key: "walletName", Label: "Wallet", Kind: SummaryText},
	{Key: "iban", Label: "IBAN", Kind: SummaryMasked},
	{Key: "currency", Label: "Currency", Kind: SummaryText},
	{Key: "balance", Label: "Balance", Kind: SummaryAmount},
	{Key: "availableBalance", Label: "Available", Kind: SummaryAmount},
	{Key: "transactionCount", Label: "Transactions", Kind: SummaryCount},
	{Key: "status", Label: "Status", Kind: SummaryText},
}

// WalletSummary is the read-only wallet overview tab.
type WalletSummary struct {
	data     DataSource
	workflow string
	items    []SummaryItem
	engine   rendertemplate.TemplateRenderer
}

// NewWalletSummary builds the page. Data is loaded through workflow; items
// default to DefaultSummaryItems.
func NewWalletSummary(data DataSource, workflow string, items ...SummaryItem) (*WalletSummary, error) {
	if data == nil {
		return nil, fmt.Errorf("pages: wallet summary needs a data source")
	}
	engine, err := newEngine()
	if err != nil {
		return nil, fmt.Errorf("pages: wallet summary templates: %w", err)
	}
	if len(items) == 0 {
		items = DefaultSummaryItems
	}
	return &WalletSummary{data: data, workflow: strings.TrimSpace(workflow), items: items, engine: engine}, nil
}

func (w *WalletSummary) Code() string  { return WalletSummaryCode }
func (w *WalletSummary) Title() string { return "Wallet summary" }

// Render fetches the wallet payload and lists the configured items. Missing
// values show as a dash.
func (w *WalletSummary) Render(ctx context.Context, session client.Session) ([]byte, error) {
	values, err := w.data.FormData(ctx, session, w.workflow, map[string]any{"form_code": WalletSummaryCode})
	if err != nil {
		return nil, fmt.Errorf("pages: load wallet summary: %w", err)
	}

	rows := make([]map[string]string, 0, len(w.items))
	for _, item := range w.items {
		rows = append(rows, map[string]string{
			"key":   item.Key,
			"label": item.Label,
			"kind":  string(item.Kind),
			"value": displayValue(item.Kind, values[item.Key]),
		})
	}
	out, err := w.engine.RenderTemplate(summaryTemplate, map[string]any{"title": w.Title(), "rows": rows})
	if err != nil {
		return nil, fmt.Errorf("pages: render wallet summary: %w", err)
	}
	return []byte(out), nil
}

func displayValue(kind SummaryKind, value any) string {
	if value == nil || strings.TrimSpace(fmt.Sprint(value)) == "" {
		return "-"
	}
	switch kind {
	case SummaryAmount:
		return format.Decimal(value, format.DefaultPlaces)
	case SummaryCount:
		if d, ok := format.ParseDecimal(value); ok {
			return humanize.Comma(d.IntPart())
		}
	case SummaryMasked:
		return format.Mask(value, 4)
	}
	return fmt.Sprint(value)
}
