package checkout_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"

	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/cart"
	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/checkout"
	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/storage/memory"
)

type checkoutTestContext struct {
	customer  checkout.Customer
	store     *cart.Store
	failures  map[cart.Kind]error
	submitter *SubmitterMock
	notifier  *NotifierMock
	err       error
}

func (c *checkoutTestContext) reset() {
	if c.store != nil {
		c.store.Close()
	}
	c.customer = checkout.Customer{}
	c.store = cart.NewStore(context.Background(), memory.New(), cart.StorageKey("", "feature"))
	c.failures = map[cart.Kind]error{}
	c.notifier = &NotifierMock{}
	c.submitter = &SubmitterMock{SubmitFunc: func(ctx context.Context, kind cart.Kind, req checkout.OrderRequest) (checkout.Receipt, error) {
		if err := c.failures[kind]; err != nil {
			return checkout.Receipt{}, err
		}
		return checkout.Receipt{OrderID: string(kind) + "-order"}, nil
	}}
	c.err = nil
}

func (c *checkoutTestContext) aCustomer(name, phone, street string, house int, city, postal string) error {
	c.customer = checkout.Customer{
		FullName:    name,
		Phone:       phone,
		Street:      street,
		HouseNumber: fmt.Sprint(house),
		City:        city,
		PostalCode:  postal,
	}
	return nil
}

func (c *checkoutTestContext) theCustomerHasNoPostalCode() error {
	c.customer.PostalCode = ""
	return nil
}

func (c *checkoutTestContext) theCartHoldsStandardCanvas(qty int, id string) error {
	c.store.Add(cart.Item{ID: id, Kind: cart.KindCanvas, Category: cart.CategoryStandard, Name: id, Size: "30x40"}, qty)
	return nil
}

func (c *checkoutTestContext) theCartHoldsMerch(qty int, id, p string) error {
	d, err := decimal.NewFromString(p)
	if err != nil {
		return err
	}
	c.store.Add(cart.Item{ID: id, Kind: cart.KindProduct, Name: id, Size: "L", Price: &d}, qty)
	return nil
}

func endpointKind(name string) cart.Kind {
	if name == "merch" {
		return cart.KindProduct
	}
	return cart.KindCanvas
}

func (c *checkoutTestContext) theEndpointRejects(endpoint, msg string) error {
	c.failures[endpointKind(endpoint)] = userError{msg}
	return nil
}

func (c *checkoutTestContext) theEndpointIsUnreachable(endpoint string) error {
	c.failures[endpointKind(endpoint)] = errors.New("dial tcp: connection refused")
	return nil
}

func (c *checkoutTestContext) theCustomerChecksOut() error {
	o := checkout.NewOrchestrator(c.submitter, checkout.WithNotifier(c.notifier))
	_, c.err = o.Checkout(context.Background(), c.store, c.customer)
	return nil
}

func (c *checkoutTestContext) theCheckoutSucceeds() error {
	if c.err != nil {
		return fmt.Errorf("expected success, got %v", c.err)
	}
	return nil
}

func (c *checkoutTestContext) theCheckoutFailsWith(msg string) error {
	var cerr *checkout.Error
	if !errors.As(c.err, &cerr) {
		return fmt.Errorf("expected *checkout.Error, got %v", c.err)
	}
	if cerr.Error() != msg {
		return fmt.Errorf("expected message %q, got %q", msg, cerr.Error())
	}
	return nil
}

func (c *checkoutTestContext) theCheckoutIsRejectedForField(field string) error {
	var verr *checkout.ValidationError
	if !errors.As(c.err, &verr) {
		return fmt.Errorf("expected *checkout.ValidationError, got %v", c.err)
	}
	for _, f := range verr.Fields {
		if f.Field == field {
			return nil
		}
	}
	return fmt.Errorf("field %q not reported in %v", field, verr)
}

func (c *checkoutTestContext) theCartIsEmpty() error {
	if n := c.store.Len(); n != 0 {
		return fmt.Errorf("expected empty cart, got %d lines", n)
	}
	return nil
}

func (c *checkoutTestContext) theCartHoldsLines(n int) error {
	if got := c.store.Len(); got != n {
		return fmt.Errorf("expected %d lines, got %d", n, got)
	}
	return nil
}

func (c *checkoutTestContext) theCartHoldsOnly(id string) error {
	items := c.store.Items()
	if len(items) != 1 || items[0].ID != id {
		return fmt.Errorf("expected only %q, got %+v", id, items)
	}
	return nil
}

func (c *checkoutTestContext) orderRequestsWereSent(n int) error {
	if got := len(c.submitter.Calls()); got != n {
		return fmt.Errorf("expected %d order requests, got %d", n, got)
	}
	return nil
}

func (c *checkoutTestContext) theCanvasOrderTotals(amount int) error {
	idx := slices.IndexFunc(c.notifier.subs, func(s checkout.Submission) bool { return s.Kind == cart.KindCanvas })
	if idx < 0 {
		return errors.New("no canvas order was submitted")
	}
	if got := c.notifier.subs[idx].Amount; !got.Equal(decimal.NewFromInt(int64(amount))) {
		return fmt.Errorf("expected canvas total %d, got %s", amount, got)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &checkoutTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})
	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		tc.store.Close()
		tc.store = nil
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a customer "([^"]*)" with phone "([^"]*)" living at "([^"]*)" (\d+) in "([^"]*)" with postal code "([^"]*)"$`, tc.aCustomer)
	ctx.Step(`^the customer has no postal code$`, tc.theCustomerHasNoPostalCode)
	ctx.Step(`^the cart holds (\d+) standard canvas "([^"]*)"$`, tc.theCartHoldsStandardCanvas)
	ctx.Step(`^the cart holds (\d+) merch item "([^"]*)" priced ([\d.]+)$`, tc.theCartHoldsMerch)
	ctx.Step(`^the (canvas|merch) endpoint rejects orders with "([^"]*)"$`, tc.theEndpointRejects)
	ctx.Step(`^the (canvas|merch) endpoint is unreachable$`, tc.theEndpointIsUnreachable)

	// When steps
	ctx.Step(`^the customer checks out$`, tc.theCustomerChecksOut)

	// Then steps
	ctx.Step(`^the checkout succeeds$`, tc.theCheckoutSucceeds)
	ctx.Step(`^the checkout fails with "([^"]*)"$`, tc.theCheckoutFailsWith)
	ctx.Step(`^the checkout is rejected for field "([^"]*)"$`, tc.theCheckoutIsRejectedForField)
	ctx.Step(`^the cart is empty$`, tc.theCartIsEmpty)
	ctx.Step(`^the cart holds (\d+) lines$`, tc.theCartHoldsLines)
	ctx.Step(`^the cart holds only "([^"]*)"$`, tc.theCartHoldsOnly)
	ctx.Step(`^(\d+) order requests? (?:was|were) sent$`, tc.orderRequestsWereSent)
	ctx.Step(`^the canvas order totals (\d+)$`, tc.theCanvasOrderTotals)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
