package checkout

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/greenpack/storefront/internal/model"
)

type nowKey struct{}

// fieldMessages holds the message of a field, optionally per failed tag
// ("field.tag" wins over "field").
var fieldMessages = map[string]string{
	"email.required":   "email is required",
	"email":            "enter a valid email address",
	"first_name":       "first name is required",
	"last_name":        "last name is required",
	"phone":            "enter a valid phone number",
	"line1":            "address is required",
	"city":             "city is required",
	"state":            "enter a 2-letter state code",
	"postal_code":      "enter a valid ZIP code",
	"country":          "we only ship within the US",
	"method.required":  "choose a payment method",
	"method":           "unsupported payment method",
	"card":             "enter your card details",
	"cardholder_name":  "cardholder name is required",
	"expiry.unexpired": "card has expired",
	"expiry":           "enter a valid expiry date",
	"paypal_email":     "enter a valid email address",
}

// fieldAliases folds struct fields into the field a form shows them under.
var fieldAliases = map[string]string{
	"token":     "card",
	"last4":     "card",
	"exp_month": "expiry",
	"exp_year":  "expiry",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return countDigits(fl.Field().String()) >= 10
	}); err != nil {
		panic(err)
	}
	v.RegisterStructValidationCtx(validateExpiry, model.CreditCard{})
	return v
}

// validateExpiry rejects cards whose expiry month is before the month of
// the time carried in ctx.
func validateExpiry(ctx context.Context, sl validator.StructLevel) {
	card := sl.Current().Interface().(model.CreditCard)
	now, ok := ctx.Value(nowKey{}).(time.Time)
	if !ok || card.ExpMonth < 1 || card.ExpMonth > 12 || card.ExpYear < 2000 {
		return
	}
	year, month, _ := now.Date()
	if card.ExpYear < year || (card.ExpYear == year && card.ExpMonth < int(month)) {
		sl.ReportError(card.ExpMonth, "exp_month", "ExpMonth", "unexpired", "")
	}
}

// FieldErrors maps a field name to its message.
type FieldErrors map[string]string

// Errors holds every error channel of a checkout: one bucket per step, the
// discount channel and a general channel for placement failures.
type Errors struct {
	Steps    map[Step]FieldErrors `json:"steps,omitempty"`
	Discount string               `json:"discount,omitempty"`
	General  string               `json:"general,omitempty"`
}

// For returns the bucket of a step.
func (e Errors) For(step Step) FieldErrors {
	return e.Steps[step]
}

// IsEmpty reports whether no channel holds an error.
func (e Errors) IsEmpty() bool {
	for _, bucket := range e.Steps {
		if len(bucket) > 0 {
			return false
		}
	}
	return e.Discount == "" && e.General == ""
}

func (e Errors) clone() Errors {
	out := Errors{Discount: e.Discount, General: e.General}
	if len(e.Steps) > 0 {
		out.Steps = make(map[Step]FieldErrors, len(e.Steps))
		for step, bucket := range e.Steps {
			cp := make(FieldErrors, len(bucket))
			for k, v := range bucket {
				cp[k] = v
			}
			out.Steps[step] = cp
		}
	}
	return out
}

func (e *Errors) set(step Step, bucket FieldErrors) {
	if e.Steps == nil {
		e.Steps = make(map[Step]FieldErrors)
	}
	if len(bucket) == 0 {
		delete(e.Steps, step)
		return
	}
	e.Steps[step] = bucket
}

// ValidateCustomer checks the contact section.
func ValidateCustomer(c model.CustomerInfo) FieldErrors {
	errs := FieldErrors{}
	collect(errs, "", validate.Struct(c))
	return errs
}

// ValidateShipping checks the delivery section.
func ValidateShipping(s model.ShippingInfo) FieldErrors {
	errs := FieldErrors{}
	collect(errs, "", validate.Struct(s.Address))
	return errs
}

// ValidatePayment checks the payment and billing sections.
func ValidatePayment(p *model.PaymentInfo, billing model.BillingInfo, now time.Time) FieldErrors {
	errs := FieldErrors{}
	if p == nil {
		p = &model.PaymentInfo{}
	}
	collect(errs, "", validate.Struct(p))
	switch p.Method {
	case model.PaymentMethodCreditCard:
		if p.Card == nil {
			errs["card"] = fieldMessages["card"]
			break
		}
		ctx := context.WithValue(context.Background(), nowKey{}, now)
		collect(errs, "", validate.StructCtx(ctx, p.Card))
	case model.PaymentMethodPayPal:
		if p.PayPal != nil {
			collect(errs, "paypal_", validate.Struct(p.PayPal))
		}
	}
	if !billing.SameAsShipping {
		collect(errs, "billing_", validate.Struct(billing.Address))
	}
	return errs
}

// collect maps validator failures onto form fields, keeping the first
// message per field.
func collect(errs FieldErrors, prefix string, err error) {
	var failures validator.ValidationErrors
	if !errors.As(err, &failures) {
		return
	}
	for _, fe := range failures {
		field := fe.Field()
		if alias, ok := fieldAliases[field]; ok {
			field = alias
		}
		key := prefix + field
		if _, seen := errs[key]; seen {
			continue
		}
		msg, ok := fieldMessages[key+"."+fe.Tag()]
		if !ok {
			msg, ok = fieldMessages[key]
		}
		if !ok {
			msg, ok = fieldMessages[field]
		}
		if !ok {
			msg = "is invalid"
		}
		errs[key] = msg
	}
}

// lookupPostalCode returns the 5-digit ZIP used for rate lookups, or ""
// while the first five digits are still incomplete.
func lookupPostalCode(code string) string {
	code = strings.TrimSpace(code)
	if len(code) < 5 || countDigits(code[:5]) != 5 {
		return ""
	}
	return code[:5]
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
