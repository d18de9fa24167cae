package checkout

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// Customer is the details block shared by every order group of one checkout.
type Customer struct {
	FullName    string `json:"fullName"`
	Phone       string `json:"phone"`
	Email       string `json:"email,omitempty"`
	City        string `json:"city"`
	Street      string `json:"street"`
	HouseNumber string `json:"houseNumber"`
	PostalCode  string `json:"postalCode,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// Normalize trims surrounding whitespace from every field.
func (c Customer) Normalize() Customer {
	return Customer{
		FullName:    strings.TrimSpace(c.FullName),
		Phone:       strings.TrimSpace(c.Phone),
		Email:       strings.TrimSpace(c.Email),
		City:        strings.TrimSpace(c.City),
		Street:      strings.TrimSpace(c.Street),
		HouseNumber: strings.TrimSpace(c.HouseNumber),
		PostalCode:  strings.TrimSpace(c.PostalCode),
		Notes:       strings.TrimSpace(c.Notes),
	}
}

type fieldRule struct {
	field string
	value func(Customer) string
	min   int
}

var customerRules = []fieldRule{
	{"fullName", func(c Customer) string { return c.FullName }, 2},
	{"phone", func(c Customer) string { return c.Phone }, 6},
	{"city", func(c Customer) string { return c.City }, 2},
	{"street", func(c Customer) string { return c.Street }, 2},
	{"houseNumber", func(c Customer) string { return c.HouseNumber }, 1},
}

// Validate checks the required fields. Lengths are counted in characters
// after trimming. The postal code is only required when merch ships.
func (c Customer) Validate(requirePostal bool) error {
	c = c.Normalize()

	var fields []FieldError
	for _, r := range customerRules {
		if utf8.RuneCountInString(r.value(c)) < r.min {
			fields = append(fields, FieldError{
				Field:   r.field,
				Message: fmt.Sprintf("must be at least %d characters", r.min),
			})
		}
	}
	if requirePostal && c.PostalCode == "" {
		fields = append(fields, FieldError{Field: "postalCode", Message: "is required for merch orders"})
	}
	if c.Email != "" {
		if _, err := mail.ParseAddress(c.Email); err != nil {
			fields = append(fields, FieldError{Field: "email", Message: "is not a valid address"})
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
