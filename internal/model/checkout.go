package model

import "strings"

// CustomerInfo is the contact section of a checkout.
type CustomerInfo struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,phone"`
}

// FullName returns the customer's display name.
func (c CustomerInfo) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Address is a US postal address.
type Address struct {
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"len=2,alpha"`
	PostalCode string `json:"postal_code" validate:"postcode_iso3166_alpha2=US"`
	Country    string `json:"country" validate:"omitempty,eq=US"`
}

// ShippingInfo is the delivery section of a checkout.
type ShippingInfo struct {
	Address       Address `json:"address"`
	DeliveryNotes string  `json:"delivery_notes,omitempty"`
}

// BillingInfo is the billing section of a checkout. While SameAsShipping is
// set the address mirrors the shipping address.
type BillingInfo struct {
	SameAsShipping bool    `json:"same_as_shipping"`
	Address        Address `json:"address"`
}

// PaymentMethod tags the variant of PaymentInfo.
type PaymentMethod string

const (
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	PaymentMethodPayPal     PaymentMethod = "paypal"
)

// String returns the string representation of the method.
func (m PaymentMethod) String() string {
	return string(m)
}

// IsValid checks if the method is known.
func (m PaymentMethod) IsValid() bool {
	return m == PaymentMethodCreditCard || m == PaymentMethodPayPal
}

// CreditCard holds a tokenized card. The raw card number never reaches
// this module; Token is the processor's payment method id.
type CreditCard struct {
	CardholderName string `json:"cardholder_name" validate:"required"`
	Token          string `json:"token" validate:"required"`
	Brand          string `json:"brand,omitempty"`
	Last4          string `json:"last4" validate:"len=4,numeric"`
	ExpMonth       int    `json:"exp_month" validate:"min=1,max=12"`
	ExpYear        int    `json:"exp_year" validate:"min=2000"`
}

// PayPalAccount holds the optional PayPal payer hint.
type PayPalAccount struct {
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

// PaymentInfo is a tagged union over the supported payment methods.
// Exactly the variant named by Method is set.
type PaymentInfo struct {
	Method PaymentMethod  `json:"method" validate:"required,oneof=credit_card paypal"`
	Card   *CreditCard    `json:"card,omitempty" validate:"-"`
	PayPal *PayPalAccount `json:"paypal,omitempty" validate:"-"`
}

// CardPayment builds a credit card payment.
func CardPayment(card CreditCard) PaymentInfo {
	return PaymentInfo{Method: PaymentMethodCreditCard, Card: &card}
}

// PayPalPayment builds a PayPal payment.
func PayPalPayment(account PayPalAccount) PaymentInfo {
	return PaymentInfo{Method: PaymentMethodPayPal, PayPal: &account}
}
