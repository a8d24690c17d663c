package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnsupportedValue is returned when a value is not text, a number or a line-item list.
var ErrUnsupportedValue = errors.New("unsupported invoice field value")

// FieldKind identifies the variant held by a FieldValue.
type FieldKind uint8

const (
	FieldInvalid FieldKind = iota
	FieldText
	FieldNumber
	FieldItems
)

func (k FieldKind) String() string {
	switch k {
	case FieldText:
		return "text"
	case FieldNumber:
		return "number"
	case FieldItems:
		return "items"
	default:
		return "invalid"
	}
}

// FieldValue holds exactly one of text, number or a line-item list.
type FieldValue struct {
	kind   FieldKind
	text   string
	number decimal.Decimal
	items  []LineItem
}

// Text builds a text value.
func Text(s string) FieldValue {
	return FieldValue{kind: FieldText, text: s}
}

// Number builds a numeric value.
func Number(d decimal.Decimal) FieldValue {
	return FieldValue{kind: FieldNumber, number: d}
}

// Items builds a line-item list value.
func Items(items ...LineItem) FieldValue {
	return FieldValue{kind: FieldItems, items: append([]LineItem{}, items...)}
}

func (v FieldValue) Kind() FieldKind { return v.kind }

func (v FieldValue) Text() (string, bool) { return v.text, v.kind == FieldText }

func (v FieldValue) Number() (decimal.Decimal, bool) { return v.number, v.kind == FieldNumber }

// Items returns a copy of the line items.
func (v FieldValue) Items() ([]LineItem, bool) {
	if v.kind != FieldItems {
		return nil, false
	}
	return append([]LineItem{}, v.items...), true
}

// String renders the value for display.
func (v FieldValue) String() string {
	switch v.kind {
	case FieldText:
		return v.text
	case FieldNumber:
		return v.number.String()
	case FieldItems:
		parts := make([]string, 0, len(v.items))
		for _, item := range v.items {
			parts = append(parts, item.String())
		}
		return "[" + strings.Join(parts, "; ") + "]"
	default:
		return ""
	}
}

// Equal reports whether both values hold the same variant and content.
func (v FieldValue) Equal(o FieldValue) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case FieldText:
		return v.text == o.text
	case FieldNumber:
		return v.number.Equal(o.number)
	case FieldItems:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func (v FieldValue) clone() FieldValue {
	out := v
	if v.items != nil {
		out.items = append([]LineItem{}, v.items...)
	}
	return out
}

func (v FieldValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case FieldText:
		return json.Marshal(v.text)
	case FieldNumber:
		return []byte(v.number.String()), nil
	case FieldItems:
		items := v.items
		if items == nil {
			items = []LineItem{}
		}
		return json.Marshal(items)
	default:
		return nil, ErrUnsupportedValue
	}
}

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ErrUnsupportedValue
	}
	switch c := data[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
	case c == '[':
		var items []LineItem
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*v = Items(items...)
	case c == '-' || (c >= '0' && c <= '9'):
		d, err := decimal.NewFromString(string(data))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
		}
		*v = Number(d)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedValue, string(data))
	}
	return nil
}

// Native converts the value into plain Go types for document stores.
func (v FieldValue) Native() any {
	switch v.kind {
	case FieldText:
		return v.text
	case FieldNumber:
		return v.number.InexactFloat64()
	case FieldItems:
		out := make([]any, 0, len(v.items))
		for _, item := range v.items {
			out = append(out, map[string]any{
				"description": item.Description,
				"quantity":    item.Quantity.InexactFloat64(),
				"unit":        item.Unit,
				"price":       item.Price.InexactFloat64(),
				"total":       item.Total.InexactFloat64(),
			})
		}
		return out
	default:
		return nil
	}
}

// FieldFromNative is the inverse of Native.
func FieldFromNative(raw any) (FieldValue, error) {
	switch val := raw.(type) {
	case string:
		return Text(val), nil
	case float64:
		return Number(decimal.NewFromFloat(val)), nil
	case int64:
		return Number(decimal.NewFromInt(val)), nil
	case int:
		return Number(decimal.NewFromInt(int64(val))), nil
	case []any:
		items := make([]LineItem, 0, len(val))
		for _, entry := range val {
			m, ok := entry.(map[string]any)
			if !ok {
				return FieldValue{}, fmt.Errorf("%w: line item %T", ErrUnsupportedValue, entry)
			}
			item := LineItem{}
			item.Description, _ = m["description"].(string)
			item.Unit, _ = m["unit"].(string)
			item.Quantity = nativeDecimal(m["quantity"])
			item.Price = nativeDecimal(m["price"])
			item.Total = nativeDecimal(m["total"])
			items = append(items, item)
		}
		return Items(items...), nil
	default:
		return FieldValue{}, fmt.Errorf("%w: %T", ErrUnsupportedValue, raw)
	}
}

func nativeDecimal(raw any) decimal.Decimal {
	switch val := raw.(type) {
	case float64:
		return decimal.NewFromFloat(val)
	case int64:
		return decimal.NewFromInt(val)
	case string:
		d, _ := ParseAmount(val)
		return d
	default:
		return decimal.Zero
	}
}

// LineItem is one row of an invoice.
type LineItem struct {
	Description string          `validate:"required"`
	Quantity    decimal.Decimal `validate:"-"`
	Unit        string          `validate:"-"`
	Price       decimal.Decimal `validate:"-"`
	Total       decimal.Decimal `validate:"-"`
}

func (li LineItem) String() string {
	return fmt.Sprintf("%s x%s @ %s = %s", li.Description, li.Quantity, li.Price, li.Total)
}

func (li LineItem) Equal(o LineItem) bool {
	return li.Description == o.Description &&
		li.Unit == o.Unit &&
		li.Quantity.Equal(o.Quantity) &&
		li.Price.Equal(o.Price) &&
		li.Total.Equal(o.Total)
}

type lineItemJSON struct {
	Description string          `json:"description"`
	Quantity    json.RawMessage `json:"quantity,omitempty"`
	Unit        string          `json:"unit,omitempty"`
	Price       json.RawMessage `json:"price,omitempty"`
	Total       json.RawMessage `json:"total,omitempty"`
}

func (li LineItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(lineItemJSON{
		Description: li.Description,
		Quantity:    json.RawMessage(li.Quantity.String()),
		Unit:        li.Unit,
		Price:       json.RawMessage(li.Price.String()),
		Total:       json.RawMessage(li.Total.String()),
	})
}

// UnmarshalJSON accepts amounts as numbers or as strings with thousands separators.
func (li *LineItem) UnmarshalJSON(data []byte) error {
	var raw lineItemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var err error
	out := LineItem{Description: raw.Description, Unit: raw.Unit}
	if out.Quantity, err = rawAmount(raw.Quantity); err != nil {
		return fmt.Errorf("quantity: %w", err)
	}
	if out.Price, err = rawAmount(raw.Price); err != nil {
		return fmt.Errorf("price: %w", err)
	}
	if out.Total, err = rawAmount(raw.Total); err != nil {
		return fmt.Errorf("total: %w", err)
	}
	*li = out
	return nil
}

func rawAmount(raw json.RawMessage) (decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.Zero, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, err
		}
		return ParseAmount(s)
	}
	return decimal.NewFromString(string(raw))
}

// ParseAmount parses a human formatted amount such as "1,234.56" or "18%".
// An empty string parses as zero.
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ',', '%', ' ', '\u00a0':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	if cleaned == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(cleaned)
}

// InvoiceData is the extracted field map of an invoice.
type InvoiceData map[string]FieldValue

// Clone returns a deep copy. The result is never nil.
func (d InvoiceData) Clone() InvoiceData {
	out := make(InvoiceData, len(d))
	for k, v := range d {
		out[k] = v.clone()
	}
	return out
}

// Keys returns field names in lexical order.
func (d InvoiceData) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (d InvoiceData) Equal(o InvoiceData) bool {
	if len(d) != len(o) {
		return false
	}
	for k, v := range d {
		other, ok := o[k]
		if !ok || !v.Equal(other) {
			return false
		}
	}
	return true
}

// UnmarshalJSON decodes each field as a FieldValue. Null fields are treated
// as absent.
func (d *InvoiceData) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*d = nil
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(InvoiceData, len(raw))
	for k, v := range raw {
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			continue
		}
		var field FieldValue
		if err := json.Unmarshal(v, &field); err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = field
	}
	*d = out
	return nil
}

// Native converts the map for document stores.
func (d InvoiceData) Native() map[string]any {
	out := make(map[string]any, len(d))
	for k, v := range d {
		out[k] = v.Native()
	}
	return out
}

// InvoiceDataFromNative is the inverse of InvoiceData.Native. Nil values are skipped.
func InvoiceDataFromNative(raw map[string]any) (InvoiceData, error) {
	out := make(InvoiceData, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		field, err := FieldFromNative(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = field
	}
	return out, nil
}
