package checkout_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/checkout"
)

func validCustomer() checkout.Customer {
	return checkout.Customer{
		FullName:    "Dana Levi",
		Phone:       "0501234567",
		City:        "Haifa",
		Street:      "Herzl",
		HouseNumber: "7",
	}
}

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	var verr *checkout.ValidationError
	require.True(t, errors.As(err, &verr), "expected *ValidationError, got %v", err)
	names := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		names = append(names, f.Field)
	}
	return names
}

func TestCustomerValidate_Valid(t *testing.T) {
	require.NoError(t, validCustomer().Validate(false))

	c := validCustomer()
	c.PostalCode = "3303100"
	c.Email = "dana@example.com"
	require.NoError(t, c.Validate(true))
}

func TestCustomerValidate_MinimumLengths(t *testing.T) {
	err := checkout.Customer{FullName: "D", Phone: "12345", City: "H", Street: "S"}.Validate(false)
	assert.Equal(t, []string{"fullName", "phone", "city", "street", "houseNumber"}, fieldNames(t, err))
}

func TestCustomerValidate_TrimsBeforeCounting(t *testing.T) {
	c := validCustomer()
	c.FullName = "  D  "
	c.HouseNumber = "   "
	assert.Equal(t, []string{"fullName", "houseNumber"}, fieldNames(t, c.Validate(false)))
}

func TestCustomerValidate_CountsCharactersNotBytes(t *testing.T) {
	c := validCustomer()
	c.FullName = "דנ"
	c.City = "ח"
	assert.Equal(t, []string{"city"}, fieldNames(t, c.Validate(false)))
}

func TestCustomerValidate_PostalOnlyForMerch(t *testing.T) {
	c := validCustomer()
	require.NoError(t, c.Validate(false))
	assert.Equal(t, []string{"postalCode"}, fieldNames(t, c.Validate(true)))
}

func TestCustomerValidate_OptionalEmailMustParse(t *testing.T) {
	c := validCustomer()
	c.Email = "not-an-email"
	assert.Equal(t, []string{"email"}, fieldNames(t, c.Validate(false)))
}

func TestValidationError_Message(t *testing.T) {
	err := checkout.Customer{}.Validate(false)
	require.ErrorContains(t, err, "invalid customer details: fullName must be at least 2 characters")
}
