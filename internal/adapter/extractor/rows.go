package extractor

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/invoicedesk/internal/domain/model"
)

// Row columns: name|qty|unit|net price|net worth|vat|gross.
const rowFields = 7

// Data keys written for extracted invoices.
const (
	KeyItems       = "items"
	KeyTotalAmount = "totalAmount"
	KeyLineCount   = "lineCount"
)

// ParseRows reads one line item per line. Short rows, rows with an empty or zero
// quantity and rows with unparsable amounts are skipped.
func ParseRows(text string) []model.LineItem {
	var items []model.LineItem
	for _, line := range strings.Split(text, "\n") {
		fields := strings.Split(strings.TrimSpace(line), "|")
		if len(fields) < rowFields {
			continue
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		if fields[1] == "" {
			continue
		}
		qty, err := model.ParseAmount(fields[1])
		if err != nil || qty.IsZero() {
			continue
		}
		price, err := model.ParseAmount(fields[3])
		if err != nil {
			continue
		}
		gross, err := model.ParseAmount(fields[6])
		if err != nil {
			continue
		}
		items = append(items, model.LineItem{
			Description: fields[0],
			Quantity:    qty,
			Unit:        fields[2],
			Price:       price,
			Total:       gross,
		})
	}
	return items
}

// BuildData wraps parsed items into the invoice field map.
func BuildData(items []model.LineItem) model.InvoiceData {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Total)
	}
	return model.InvoiceData{
		KeyItems:       model.Items(items...),
		KeyTotalAmount: model.Number(total),
		KeyLineCount:   model.Number(decimal.NewFromInt(int64(len(items)))),
	}
}
