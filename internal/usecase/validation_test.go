package usecase_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/invoicedesk/internal/domain/errors"
	"github.com/polkiloo/invoicedesk/internal/domain/model"
	"github.com/polkiloo/invoicedesk/internal/usecase"
)

func TestValidateCredentials(t *testing.T) {
	if err := usecase.ValidateCredentials("user@example.com", "secret"); err != nil {
		t.Fatalf("expected valid credentials, got %v", err)
	}
	invalid := [][2]string{{"", "secret"}, {"user", "secret"}, {"user@example.com", "short"}}
	for _, c := range invalid {
		if err := usecase.ValidateCredentials(c[0], c[1]); err != domainErrors.ErrInvalidCredentials {
			t.Fatalf("expected invalid credentials for %q/%q, got %v", c[0], c[1], err)
		}
	}
}

func TestValidateInvoiceData(t *testing.T) {
	valid := model.InvoiceData{
		"invoiceNumber": model.Text("INV-1"),
		"totalAmount":   model.Number(decimal.NewFromInt(5)),
		"items":         model.Items(model.LineItem{Description: "A"}),
	}
	if err := usecase.ValidateInvoiceData(valid); err != nil {
		t.Fatalf("expected valid data, got %v", err)
	}
	if err := usecase.ValidateInvoiceData(nil); err != nil {
		t.Fatalf("empty data is valid, got %v", err)
	}

	invalid := map[string]model.InvoiceData{
		"blank key":        {" ": model.Text("x")},
		"zero value":       {"x": model.FieldValue{}},
		"item without doc": {"items": model.Items(model.LineItem{Description: "ok"}, model.LineItem{})},
	}
	for name, data := range invalid {
		t.Run(name, func(t *testing.T) {
			if err := usecase.ValidateInvoiceData(data); !errors.Is(err, domainErrors.ErrInvalidInvoiceData) {
				t.Fatalf("expected invalid data error, got %v", err)
			}
		})
	}
}
