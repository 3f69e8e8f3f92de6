package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/greenpack/storefront/internal/domain/cart"
	"github.com/greenpack/storefront/internal/domain/catalog"
	"github.com/greenpack/storefront/internal/domain/discount"
	"github.com/greenpack/storefront/internal/domain/plan"
	"github.com/greenpack/storefront/internal/domain/pricing"
	"github.com/greenpack/storefront/internal/model"
	"github.com/greenpack/storefront/internal/port/outbound"
	apperrors "github.com/greenpack/storefront/internal/utils/errors"
	"github.com/greenpack/storefront/internal/utils/random"
	"github.com/greenpack/storefront/internal/utils/sanitize"
)

// Messages shown on the shipping, discount and general channels.
const (
	msgNoShippingOptions   = "no shipping options available"
	msgChooseShipping      = "choose a shipping option"
	msgEmptyCart           = "your cart is empty"
	msgEmptyCartDiscount   = "add something to your cart first"
	msgReviewDetails       = "please review your details"
	msgDiscountIneligible  = "discount removed: your cart no longer qualifies"
	msgPlacementFailedHint = "we couldn't place your order, please check your details and try again"
	msgRequestPending      = "please wait while we finish updating your order"
)

// Settings holds the pricing rules and environment of a session.
type Settings struct {
	Tax      pricing.TaxRule
	Policy   pricing.Policy
	Currency string
	Now      func() time.Time
}

// Deps are the collaborators of a session.
type Deps struct {
	Catalog       outbound.CatalogPort
	ShippingRates outbound.ShippingRatePort
	Discounts     outbound.DiscountValidationPort
	Placement     outbound.OrderPlacementPort
	Recorder      Recorder
	Logger        *zap.Logger
}

// DiscountResult reports what an ApplyDiscount call did.
type DiscountResult struct {
	Applied bool
	Stale   bool
	Reason  string
}

// Draft is a read-only view of a checkout.
type Draft struct {
	SessionID        string                    `json:"session_id"`
	Step             Step                      `json:"step"`
	Cart             cart.Snapshot             `json:"cart"`
	Customer         model.CustomerInfo        `json:"customer"`
	Shipping         model.ShippingInfo        `json:"shipping"`
	Billing          model.BillingInfo         `json:"billing"`
	Payment          *model.PaymentInfo        `json:"payment,omitempty"`
	ShippingOptions  []pricing.ShippingOption  `json:"shipping_options"`
	SelectedShipping *pricing.ShippingOption   `json:"selected_shipping,omitempty"`
	AppliedDiscount  *pricing.Discount         `json:"applied_discount,omitempty"`
	Pricing          pricing.OrderPricing      `json:"pricing"`
	DiscountState    RequestState              `json:"discount_state"`
	ShippingState    RequestState              `json:"shipping_state"`
	Errors           Errors                    `json:"errors"`
	Placement        *outbound.PlacementResult `json:"placement,omitempty"`
}

// Session is one customer's checkout. It owns the cart, the draft and the
// derived pricing, and recomputes pricing after every mutation. It is safe
// for concurrent use.
type Session struct {
	id        string
	catalog   outbound.CatalogPort
	rates     outbound.ShippingRatePort
	discounts *discount.Client
	placement outbound.OrderPlacementPort
	recorder  Recorder
	logger    *zap.Logger
	settings  Settings

	mu               sync.Mutex
	cart             *cart.Cart
	step             Step
	customer         model.CustomerInfo
	shipping         model.ShippingInfo
	billing          model.BillingInfo
	payment          *model.PaymentInfo
	shippingOptions  []pricing.ShippingOption
	selectedShipping *pricing.ShippingOption
	shippingState    RequestState
	lookupPostal     string
	shippingSeq      uint64
	shippingCancel   context.CancelFunc
	shippingWG       sync.WaitGroup
	applied          *pricing.Discount
	discountState    RequestState
	pricing          pricing.OrderPricing
	errors           Errors
	result           *outbound.PlacementResult
	placed           *Draft
}

// NewSession creates a checkout session around a cart. A nil cart starts
// empty.
func NewSession(id string, c *cart.Cart, deps Deps, settings Settings) *Session {
	if c == nil {
		c = cart.New()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	recorder := deps.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}
	if settings.Currency == "" {
		settings.Currency = "usd"
	}

	s := &Session{
		id:            id,
		catalog:       deps.Catalog,
		rates:         deps.ShippingRates,
		discounts:     discount.NewClient(deps.Discounts, logger),
		placement:     deps.Placement,
		recorder:      recorder,
		logger:        logger.Named("checkout").With(zap.String("session_id", id)),
		settings:      settings,
		cart:          c,
		step:          StepCustomer,
		billing:       model.BillingInfo{SameAsShipping: true},
		shippingState: StateIdle,
		discountState: StateIdle,
	}
	s.recomputeLocked()
	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// --- Cart operations ---

// AddItem adds individual packs of a catalog variety.
func (s *Session) AddItem(ctx context.Context, varietyID string, quantity int) (cart.LineItem, error) {
	variety, err := s.catalog.GetVariety(ctx, varietyID)
	if err != nil {
		return cart.LineItem{}, fmt.Errorf("lookup variety: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpenLocked(); err != nil {
		return cart.LineItem{}, err
	}
	item, err := s.cart.AddItem(*variety, quantity)
	if err != nil {
		s.logInvariant(err)
		return cart.LineItem{}, err
	}
	s.recomputeLocked()
	return item, nil
}

// AddSubscriptionPlan validates a plan box and adds it to the cart.
func (s *Session) AddSubscriptionPlan(ctx context.Context, tierID catalog.TierID, selections []plan.Selection, frequency cart.Frequency) (cart.LineItem, error) {
	tier, err := s.catalog.GetPlanTier(ctx, tierID)
	if err != nil {
		return cart.LineItem{}, fmt.Errorf("lookup plan tier: %w", err)
	}
	if res := plan.Validate(*tier, selections); !res.Valid {
		return cart.LineItem{}, res.Err()
	}
	varieties := make(map[string]catalog.Variety, len(selections))
	for _, sel := range selections {
		if sel.Quantity <= 0 {
			continue
		}
		v, err := s.catalog.GetVariety(ctx, sel.VarietyID)
		if err != nil {
			return cart.LineItem{}, fmt.Errorf("lookup variety: %w", err)
		}
		varieties[v.ID] = *v
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpenLocked(); err != nil {
		return cart.LineItem{}, err
	}
	item, err := s.cart.AddSubscriptionPlan(*tier, selections, frequency, varieties)
	if err != nil {
		s.logInvariant(err)
		return cart.LineItem{}, err
	}
	s.recomputeLocked()
	return item, nil
}

// UpdateQuantity changes the quantity of an individual line and reports
// whether the cart changed. Subscription lines are never changed here.
func (s *Session) UpdateQuantity(itemID string, quantity int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.checkOpenLocked() != nil {
		return false
	}
	if !s.cart.UpdateQuantity(itemID, quantity) {
		if item, ok := s.cart.Item(itemID); ok && item.IsSubscription() {
			s.logger.Debug("ignored quantity change on subscription line", zap.String("item_id", itemID))
		}
		return false
	}
	s.recomputeLocked()
	return true
}

// RemoveItem removes a line. Removing an absent line is a no-op.
func (s *Session) RemoveItem(itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.checkOpenLocked() != nil {
		return
	}
	if s.cart.RemoveItem(itemID) {
		s.recomputeLocked()
	}
}

// ClearCart empties the cart.
func (s *Session) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.checkOpenLocked() != nil {
		return
	}
	s.cart.Clear()
	s.recomputeLocked()
}

// CartSnapshot returns the current cart contents.
func (s *Session) CartSnapshot() cart.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Snapshot()
}

// --- Draft editing ---

// UpdateCustomerInfo replaces the contact section.
func (s *Session) UpdateCustomerInfo(info model.CustomerInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpenLocked(); err != nil {
		return err
	}
	s.customer = model.CustomerInfo{
		Email:     sanitize.Text(info.Email),
		FirstName: sanitize.Text(info.FirstName),
		LastName:  sanitize.Text(info.LastName),
		Phone:     sanitize.Text(info.Phone),
	}
	s.revalidateLocked(StepCustomer)
	return nil
}

// UpdateShippingInfo replaces the delivery section. Once the postal code
// has five digits a rate lookup starts in the background; the call does not
// wait for it.
func (s *Session) UpdateShippingInfo(ctx context.Context, info model.ShippingInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpenLocked(); err != nil {
		return err
	}
	s.shipping = model.ShippingInfo{
		Address:       sanitizeAddress(info.Address),
		DeliveryNotes: sanitize.Text(info.DeliveryNotes),
	}
	s.mirrorBillingLocked()
	s.revalidateLocked(StepShipping)

	postal := lookupPostalCode(s.shipping.Address.PostalCode)
	switch {
	case postal == s.lookupPostal && s.shippingState != StateFailed:
	case postal == "":
		s.resetShippingLocked()
		s.recomputeLocked()
	default:
		s.startShippingLookupLocked(ctx, postal)
	}
	return nil
}

// UpdateBillingInfo replaces the billing section. While SameAsShipping is
// set the address follows the shipping address.
func (s *Session) UpdateBillingInfo(info model.BillingInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpenLocked(); err != nil {
		return err
	}
	s.billing = model.BillingInfo{
		SameAsShipping: info.SameAsShipping,
		Address:        sanitizeAddress(info.Address),
	}
	s.mirrorBillingLocked()
	s.revalidateLocked(StepPayment)
	return nil
}

// UpdatePaymentInfo replaces the payment section.
func (s *Session) UpdatePaymentInfo(info model.PaymentInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpenLocked(); err != nil {
		return err
	}
	p := info
	if p.Card != nil {
		card := *p.Card
		card.CardholderName = sanitize.Text(card.CardholderName)
		p.Card = &card
	}
	if p.PayPal != nil {
		account := *p.PayPal
		account.Email = sanitize.Text(account.Email)
		p.PayPal = &account
	}
	s.payment = &p
	s.revalidateLocked(StepPayment)
	return nil
}

// SelectShipping picks one of the offered shipping options.
func (s *Session) SelectShipping(optionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpenLocked(); err != nil {
		return err
	}
	for i := range s.shippingOptions {
		if s.shippingOptions[i].ID == optionID {
			opt := s.shippingOptions[i]
			s.selectedShipping = &opt
			s.recomputeLocked()
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownShippingOption, optionID)
}

// WaitForShippingRates blocks until in-flight rate lookups have settled.
func (s *Session) WaitForShippingRates(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.shippingWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// --- Discounts ---

// ApplyDiscount validates a code and applies it if it is still the most
// recent discount action when the answer arrives. Failures keep the
// previously applied discount and set the discount error.
func (s *Session) ApplyDiscount(ctx context.Context, code string) (DiscountResult, error) {
	s.mu.Lock()
	if err := s.checkOpenLocked(); err != nil {
		s.mu.Unlock()
		return DiscountResult{}, err
	}
	if !s.cart.HasItems() {
		s.errors.Discount = msgEmptyCartDiscount
		s.discountState = StateFailed
		s.mu.Unlock()
		return DiscountResult{Reason: msgEmptyCartDiscount}, nil
	}
	ticket, reqCtx := s.discounts.Begin(ctx)
	s.discountState = StatePending
	snapshot := s.cart.Snapshot()
	s.mu.Unlock()

	out := s.discounts.Validate(reqCtx, code, snapshot)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.discounts.IsCurrent(ticket) || s.frozenLocked() {
		s.recorder.DiscountRequest("stale")
		s.logger.Debug("dropped stale discount response", zap.String("code", out.Code))
		return DiscountResult{Stale: true}, nil
	}
	s.discounts.Finish(ticket)

	if out.Succeeded() {
		s.applied = out.Discount
		s.discountState = StateSucceeded
		s.errors.Discount = ""
		s.recorder.DiscountRequest("applied")
		s.logger.Info("discount applied", zap.String("code", out.Discount.Code), zap.String("kind", string(out.Discount.Kind)))
		s.recomputeLocked()
		return DiscountResult{Applied: s.applied != nil, Reason: s.errors.Discount}, nil
	}

	s.discountState = StateFailed
	s.errors.Discount = out.Reason
	if out.Err != nil {
		s.recorder.DiscountRequest("error")
	} else {
		s.recorder.DiscountRequest("rejected")
	}
	s.recomputeLocked()
	return DiscountResult{Reason: out.Reason}, nil
}

// RemoveDiscount clears the applied discount and supersedes any apply
// request still in flight.
func (s *Session) RemoveDiscount() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.checkOpenLocked() != nil {
		return
	}
	s.clearDiscountLocked()
	s.errors.Discount = ""
	s.recomputeLocked()
}

// --- Step navigation ---

// Next validates the current step and advances when it is valid.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpenLocked(); err != nil {
		return err
	}
	target, ok := s.step.next()
	if !ok {
		return fmt.Errorf("%w: no step after %s", ErrInvalidTransition, s.step)
	}
	bucket := s.validateLocked(s.step)
	s.errors.set(s.step, bucket)
	if len(bucket) > 0 {
		return fmt.Errorf("%w: %s", ErrStepInvalid, s.step)
	}
	s.transitionLocked(target)
	if target == StepPayment {
		s.mirrorBillingLocked()
	}
	return nil
}

// Back returns to an earlier input step.
func (s *Session) Back(target Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpenLocked(); err != nil {
		return err
	}
	if !target.IsCollecting() || target.order() >= s.step.order() || !s.step.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.step, target)
	}
	s.transitionLocked(target)
	return nil
}

// --- Placement ---

// PlaceOrder submits the checkout exactly once. On success the cart and
// discount are cleared and the draft is kept for display. On failure the
// session returns to review with a general error; nothing is retried.
func (s *Session) PlaceOrder(ctx context.Context) (*outbound.PlacementResult, error) {
	s.mu.Lock()
	if err := s.checkOpenLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if !s.step.CanTransitionTo(StepPlacing) {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.step, StepPlacing)
	}
	if err := s.readyToPlaceLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.errors.General = ""
	s.transitionLocked(StepPlacing)
	s.freezeLocked()
	submission := s.submissionLocked()
	method := submission.Payment.Method.String()
	s.mu.Unlock()

	result, err := s.placement.SubmitOrder(ctx, submission)
	if err == nil && result == nil {
		err = errors.New("empty placement result")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.transitionLocked(StepFailed)
		s.transitionLocked(StepReview)
		s.errors.General = msgPlacementFailedHint
		s.recorder.OrderPlacement(method, "failed", submission.Pricing.Total)
		s.logger.Warn("order placement failed", zap.String("reference", submission.Reference), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrPlacementFailed, err)
	}

	s.result = result
	s.transitionLocked(StepPlaced)
	placed := s.draftLocked()
	s.placed = &placed

	s.cart.Clear()
	s.clearDiscountLocked()
	s.recomputeLocked()

	s.recorder.OrderPlacement(method, "placed", submission.Pricing.Total)
	s.logger.Info("order placed",
		zap.String("reference", submission.Reference),
		zap.String("order_id", result.OrderID),
		zap.String("status", string(result.Status)),
		zap.String("total", submission.Pricing.Total.String()),
	)
	return result, nil
}

// --- Views ---

// Step returns the current step.
func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Pricing returns the current price breakdown.
func (s *Session) Pricing() pricing.OrderPricing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pricing
}

// Errors returns a copy of every error channel.
func (s *Session) Errors() Errors {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errors.clone()
}

// Draft returns a read-only view of the checkout. After placement it is
// the draft as submitted.
func (s *Session) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.placed != nil {
		return *s.placed
	}
	return s.draftLocked()
}

// --- internals; callers hold s.mu ---

func (s *Session) checkOpenLocked() error {
	switch s.step {
	case StepPlaced:
		return ErrCheckoutClosed
	case StepPlacing:
		return ErrPlacementInProgress
	}
	return nil
}

func (s *Session) transitionLocked(target Step) {
	if !s.step.CanTransitionTo(target) {
		// Callers check transitions first; reaching this is a bug.
		s.logger.Error("illegal step transition", zap.String("from", s.step.String()), zap.String("to", target.String()))
		return
	}
	s.logger.Debug("step transition", zap.String("from", s.step.String()), zap.String("to", target.String()))
	s.step = target
}

func (s *Session) validateLocked(step Step) FieldErrors {
	switch step {
	case StepCustomer:
		return ValidateCustomer(s.customer)
	case StepShipping:
		return ValidateShipping(s.shipping)
	case StepPayment:
		return ValidatePayment(s.payment, s.billing, s.settings.Now())
	}
	return nil
}

// revalidateLocked drops the errors of fields that have been fixed without
// surfacing new ones before the customer asks to continue.
func (s *Session) revalidateLocked(step Step) {
	bucket := s.errors.For(step)
	if len(bucket) == 0 {
		return
	}
	current := s.validateLocked(step)
	kept := FieldErrors{}
	for field := range bucket {
		if msg, ok := current[field]; ok {
			kept[field] = msg
		}
	}
	s.errors.set(step, kept)
}

func (s *Session) readyToPlaceLocked() error {
	if !s.cart.HasItems() {
		s.errors.General = msgEmptyCart
		return ErrEmptyCart
	}
	for _, step := range collectingSteps {
		bucket := s.validateLocked(step)
		s.errors.set(step, bucket)
		if len(bucket) > 0 {
			s.errors.General = msgReviewDetails
			return fmt.Errorf("%w: %s", ErrStepInvalid, step)
		}
	}
	if s.shippingState == StatePending || s.discountState == StatePending {
		s.errors.General = msgRequestPending
		return ErrRequestPending
	}
	if s.selectedShipping == nil {
		s.errors.General = msgChooseShipping
		return ErrNoShippingOption
	}
	return nil
}

// freezeLocked makes every outstanding discount and rate request stale so
// the draft being submitted cannot change underneath it.
func (s *Session) freezeLocked() {
	s.discounts.Invalidate()
	s.shippingSeq++
	if s.shippingCancel != nil {
		s.shippingCancel()
		s.shippingCancel = nil
	}
}

func (s *Session) frozenLocked() bool {
	return s.step == StepPlacing || s.step.IsTerminal()
}

func (s *Session) mirrorBillingLocked() {
	if s.billing.SameAsShipping {
		s.billing.Address = s.shipping.Address
	}
}

func (s *Session) clearDiscountLocked() {
	s.discounts.Invalidate()
	s.applied = nil
	s.discountState = StateIdle
}

func (s *Session) resetShippingLocked() {
	s.shippingSeq++
	if s.shippingCancel != nil {
		s.shippingCancel()
		s.shippingCancel = nil
	}
	s.lookupPostal = ""
	s.shippingOptions = nil
	s.selectedShipping = nil
	s.shippingState = StateIdle
}

func (s *Session) startShippingLookupLocked(ctx context.Context, postal string) {
	s.shippingSeq++
	seq := s.shippingSeq
	if s.shippingCancel != nil {
		s.shippingCancel()
	}
	lookupCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.shippingCancel = cancel
	s.lookupPostal = postal
	s.shippingState = StatePending

	s.shippingWG.Add(1)
	go func() {
		defer s.shippingWG.Done()
		defer cancel()

		options, err := s.rates.GetShippingOptions(lookupCtx, postal)

		s.mu.Lock()
		defer s.mu.Unlock()

		if seq != s.shippingSeq || s.frozenLocked() {
			s.recorder.ShippingLookup("stale")
			return
		}
		s.shippingCancel = nil
		if err != nil {
			s.logger.Warn("shipping rate lookup failed", zap.String("postal_code", postal), zap.Error(apperrors.Service("shipping rates", err)))
			options = nil
		}
		s.applyShippingOptionsLocked(options, err)
		s.recomputeLocked()
	}()
}

func (s *Session) applyShippingOptionsLocked(options []pricing.ShippingOption, err error) {
	valid := make([]pricing.ShippingOption, 0, len(options))
	for _, opt := range options {
		if opt.ID == "" || opt.Price.IsNegative() {
			s.logger.Error("dropped malformed shipping option", zap.String("id", opt.ID), zap.String("price", opt.Price.String()))
			continue
		}
		valid = append(valid, opt)
	}
	s.shippingOptions = valid

	bucket := s.errors.For(StepShipping)
	if bucket != nil {
		delete(bucket, "shipping_option")
	}
	switch {
	case err != nil:
		s.shippingState = StateFailed
		s.recorder.ShippingLookup("error")
	default:
		s.shippingState = StateSucceeded
		s.recorder.ShippingLookup("succeeded")
	}
	if len(valid) == 0 {
		if bucket == nil {
			bucket = FieldErrors{}
		}
		bucket["shipping_option"] = msgNoShippingOptions
	}
	s.errors.set(StepShipping, bucket)
	s.selectedShipping = defaultShipping(valid, s.selectedShipping)
}

// defaultShipping keeps the current choice when it is still offered and
// otherwise picks the cheapest option, the first one on ties.
func defaultShipping(options []pricing.ShippingOption, current *pricing.ShippingOption) *pricing.ShippingOption {
	if len(options) == 0 {
		return nil
	}
	if current != nil {
		for i := range options {
			if options[i].ID == current.ID {
				opt := options[i]
				return &opt
			}
		}
	}
	best := options[0]
	for _, opt := range options[1:] {
		if opt.Price.LessThan(best.Price) {
			best = opt
		}
	}
	return &best
}

// recomputeLocked derives pricing from the current cart, shipping choice
// and discount. A failed computation leaves the previous pricing in place.
func (s *Session) recomputeLocked() {
	if s.applied != nil {
		subtotal := s.cart.Subtotal()
		if !s.cart.HasItems() {
			s.clearDiscountLocked()
			s.errors.Discount = ""
		} else if !s.applied.EligibleFor(subtotal) {
			s.logger.Info("discount no longer eligible", zap.String("code", s.applied.Code), zap.String("subtotal", subtotal.String()))
			s.clearDiscountLocked()
			s.errors.Discount = msgDiscountIneligible
		}
	}

	items := s.cart.Items()
	lines := make([]pricing.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, item)
	}
	p, err := pricing.Compute(pricing.Input{
		Lines:    lines,
		Shipping: s.selectedShipping,
		Discount: s.applied,
		Tax:      s.settings.Tax,
		Policy:   s.settings.Policy,
	})
	if err != nil {
		s.logInvariant(err)
		return
	}
	s.pricing = p
	s.recorder.PricingRecomputed()
}

func (s *Session) submissionLocked() *outbound.OrderSubmission {
	payment := model.PaymentInfo{}
	if s.payment != nil {
		payment = *s.payment
	}
	return &outbound.OrderSubmission{
		Reference: random.OrderReference(s.settings.Now()),
		Customer:  s.customer,
		Shipping:  s.shipping,
		Billing:   s.billing,
		Payment:   payment,
		Cart:      s.cart.Snapshot(),
		Delivery:  cloneOption(s.selectedShipping),
		Discount:  cloneDiscount(s.applied),
		Pricing:   s.pricing,
		Currency:  s.settings.Currency,
	}
}

func (s *Session) draftLocked() Draft {
	var payment *model.PaymentInfo
	if s.payment != nil {
		p := *s.payment
		payment = &p
	}
	var result *outbound.PlacementResult
	if s.result != nil {
		r := *s.result
		result = &r
	}
	return Draft{
		SessionID:        s.id,
		Step:             s.step,
		Cart:             s.cart.Snapshot(),
		Customer:         s.customer,
		Shipping:         s.shipping,
		Billing:          s.billing,
		Payment:          payment,
		ShippingOptions:  append([]pricing.ShippingOption(nil), s.shippingOptions...),
		SelectedShipping: cloneOption(s.selectedShipping),
		AppliedDiscount:  cloneDiscount(s.applied),
		Pricing:          s.pricing,
		DiscountState:    s.discountState,
		ShippingState:    s.shippingState,
		Errors:           s.errors.clone(),
		Placement:        result,
	}
}

func (s *Session) logInvariant(err error) {
	if apperrors.IsInvariantViolation(err) {
		s.logger.Error("invariant violation", zap.Error(err))
	}
}

func sanitizeAddress(a model.Address) model.Address {
	country := sanitize.Code(a.Country)
	if country == "" {
		country = "US"
	}
	return model.Address{
		Line1:      sanitize.Text(a.Line1),
		Line2:      sanitize.Text(a.Line2),
		City:       sanitize.Text(a.City),
		State:      sanitize.Code(a.State),
		PostalCode: sanitize.Text(a.PostalCode),
		Country:    country,
	}
}

func cloneOption(o *pricing.ShippingOption) *pricing.ShippingOption {
	if o == nil {
		return nil
	}
	c := *o
	return &c
}

func cloneDiscount(d *pricing.Discount) *pricing.Discount {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}
