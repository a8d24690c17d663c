package usecase

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	domainErrors "github.com/polkiloo/invoicedesk/internal/domain/errors"
	"github.com/polkiloo/invoicedesk/internal/domain/model"
)

const minPasswordLength = 6

var validate = validator.New()

// ValidateCredentials checks email format and password length.
func ValidateCredentials(email, password string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return domainErrors.ErrInvalidCredentials
	}
	if len(password) < minPasswordLength {
		return domainErrors.ErrInvalidCredentials
	}
	return nil
}

// ValidateInvoiceData rejects blank keys, untyped values and line items without a description.
func ValidateInvoiceData(data model.InvoiceData) error {
	for _, key := range data.Keys() {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("%w: blank field name", domainErrors.ErrInvalidInvoiceData)
		}
		value := data[key]
		switch value.Kind() {
		case model.FieldText, model.FieldNumber:
		case model.FieldItems:
			items, _ := value.Items()
			for i, item := range items {
				if err := validate.Struct(item); err != nil {
					return fmt.Errorf("%w: %s[%d]: description is required", domainErrors.ErrInvalidInvoiceData, key, i)
				}
			}
		default:
			return fmt.Errorf("%w: %s has no value", domainErrors.ErrInvalidInvoiceData, key)
		}
	}
	return nil
}
