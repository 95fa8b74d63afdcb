// Package payment holds the top-level readiness decision for the pay action:
// the connect/authorize/confirm state machine and the single point that
// enables or disables the pay button. Nothing else may re-enable it; that
// gate is what prevents double submission.
package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	checkout "github.com/csacanam/deramp-checkout-go"
	"github.com/csacanam/deramp-checkout-go/balance"
	"github.com/csacanam/deramp-checkout-go/logger"
	"github.com/csacanam/deramp-checkout-go/network"
	"github.com/csacanam/deramp-checkout-go/wallet"
)

// transitions is the pay-state machine. A transition absent from this table
// is rejected with checkout.ErrInvalidTransition.
var transitions = map[checkout.ButtonState][]checkout.ButtonState{
	checkout.StateInitial:    {checkout.StateLoading},
	checkout.StateLoading:    {checkout.StateReady, checkout.StateInitial},
	checkout.StateReady:      {checkout.StateApproving, checkout.StateConfirm},
	checkout.StateApproving:  {checkout.StateConfirm, checkout.StateReady},
	checkout.StateConfirm:    {checkout.StateProcessing, checkout.StateReady},
	checkout.StateProcessing: {checkout.StateReady, checkout.StateInitial},
}

// Controller decides whether the pay action may be pressed and walks the
// multi-step connect, authorize and confirm flow.
type Controller struct {
	store *wallet.Store
	rec   *network.Reconciler
	gate  *balance.Gate
	log   logger.Logger

	onPaid func()

	mu      sync.Mutex
	state   checkout.ButtonState
	option  *checkout.PaymentOption
	lastErr error
	subs    []*subscription
}

type subscription struct {
	fn func(checkout.ButtonState)
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger; default is no-op.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithOnPaid sets the hook run after a payment completes, typically an
// invoice status refetch.
func WithOnPaid(fn func()) Option {
	return func(c *Controller) { c.onPaid = fn }
}

// NewController creates a Controller in the initial state.
func NewController(store *wallet.Store, rec *network.Reconciler, gate *balance.Gate, opts ...Option) *Controller {
	c := &Controller{
		store: store,
		rec:   rec,
		gate:  gate,
		log:   logger.NoopLogger{},
		state: checkout.StateInitial,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetOption selects the payment option being paid.
func (c *Controller) SetOption(opt checkout.PaymentOption) {
	c.mu.Lock()
	c.option = &opt
	c.mu.Unlock()
	c.gate.SetToken(opt.TokenSymbol)
}

// State returns the current pay-state.
func (c *Controller) State() checkout.ButtonState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the most recent classified failure, if any.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// OnChange registers a state-change handler and returns its unsubscribe
// function.
func (c *Controller) OnChange(fn func(checkout.ButtonState)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	sub := &subscription{fn: fn}
	c.subs = append(c.subs, sub)
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, cand := range c.subs {
			if cand == sub {
				c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

// Enabled is the single enforcement point for the pay action. It is true
// only in ready, or in initial with every precondition already holding; in
// every other state the action is disabled, not merely hidden.
func (c *Controller) Enabled() bool {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	switch state {
	case checkout.StateReady:
		return true
	case checkout.StateInitial:
		return c.preconditionsOK()
	default:
		return false
	}
}

// Label returns the pay-action label for the current state.
func (c *Controller) Label() string {
	switch c.State() {
	case checkout.StateLoading:
		return "Preparing..."
	case checkout.StateApproving:
		return "Authorizing..."
	case checkout.StateConfirm:
		return "Confirm payment"
	case checkout.StateProcessing:
		return "Processing..."
	default:
		return "Pay"
	}
}

// preconditionsOK checks option, connection, network and any known balance.
func (c *Controller) preconditionsOK() bool {
	c.mu.Lock()
	opt := c.option
	c.mu.Unlock()
	if opt == nil {
		return false
	}

	state, _ := c.store.State()
	if !state.Connected {
		return false
	}
	if !c.rec.Match().Correct {
		return false
	}
	if bal, ok := c.gate.Latest(); ok {
		sufficient, err := balance.IsSufficient(bal, opt.RequiredAmount)
		if err != nil || !sufficient {
			return false
		}
	}
	return true
}

// Begin starts a pay attempt: initial -> loading, then preparation (wallet
// confirmation, network check, balance fetch and sufficiency). Success lands
// in ready; any preparation failure returns to initial with the classified
// error surfaced.
func (c *Controller) Begin(ctx context.Context) error {
	if err := c.to(checkout.StateLoading); err != nil {
		return err
	}

	if err := c.prepare(ctx); err != nil {
		if terr := c.fail(checkout.StateInitial, err); terr != nil {
			return terr
		}
		return err
	}

	return c.to(checkout.StateReady)
}

func (c *Controller) prepare(ctx context.Context) error {
	c.mu.Lock()
	opt := c.option
	c.mu.Unlock()
	if opt == nil {
		return checkout.ErrNoPaymentOption
	}

	state, _ := c.store.State()
	if !state.Connected {
		return checkout.ErrNotConnected
	}
	if !c.rec.Match().Correct {
		return checkout.ErrWrongNetwork
	}

	bal, err := c.gate.Fetch(ctx)
	if err != nil {
		return err
	}
	sufficient, err := balance.IsSufficient(bal, opt.RequiredAmount)
	if err != nil {
		return err
	}
	if !sufficient {
		return fmt.Errorf("%w: have %s %s, need %s", checkout.ErrInsufficientBalance,
			bal.Formatted, bal.Symbol, opt.RequiredAmount)
	}
	return nil
}

// StartApproval moves ready -> approving for tokens that need an allowance
// authorization before the payment call.
func (c *Controller) StartApproval() error {
	return c.to(checkout.StateApproving)
}

// FinishApproval resolves the authorization step: success moves to confirm,
// failure (including user rejection) returns to ready with the classified
// error surfaced.
func (c *Controller) FinishApproval(result error) error {
	if result == nil {
		return c.to(checkout.StateConfirm)
	}
	classified := checkout.ClassifyTransactionError(result)
	if terr := c.fail(checkout.StateReady, classified); terr != nil {
		return terr
	}
	return classified
}

// SkipApproval moves ready -> confirm for tokens with no authorization step.
func (c *Controller) SkipApproval() error {
	return c.to(checkout.StateConfirm)
}

// Confirm moves confirm -> processing once the user confirms the payment.
func (c *Controller) Confirm(ctx context.Context) error {
	return c.to(checkout.StateProcessing)
}

// Complete resolves a successful payment: the state machine resets and the
// paid hook (invoice status refetch) runs.
func (c *Controller) Complete() error {
	if err := c.to(checkout.StateInitial); err != nil {
		return err
	}
	if c.onPaid != nil {
		c.onPaid()
	}
	return nil
}

// Fail resolves a failed or cancelled payment: processing -> ready with the
// error classified. User rejections and congestion are recoverable; the UI
// shows a retry affordance or an informational modal rather than a hard
// failure.
func (c *Controller) Fail(result error) error {
	classified := checkout.ClassifyTransactionError(result)
	if terr := c.fail(checkout.StateReady, classified); terr != nil {
		return terr
	}
	return classified
}

// to performs a validated transition and notifies subscribers.
func (c *Controller) to(next checkout.ButtonState) error {
	c.mu.Lock()
	cur := c.state
	if !allowed(cur, next) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", checkout.ErrInvalidTransition, cur, next)
	}
	c.state = next
	if next == checkout.StateReady || next == checkout.StateLoading {
		c.lastErr = nil
	}
	subs := append([]*subscription(nil), c.subs...)
	c.mu.Unlock()

	for _, sub := range subs {
		sub.fn(next)
	}
	return nil
}

// fail performs a failure transition, keeping the classified error. The
// transition table still applies: a failure reported from a state with no
// edge to the target is rejected, so a stray Fail can never force the
// machine into ready.
func (c *Controller) fail(next checkout.ButtonState, err error) error {
	c.mu.Lock()
	cur := c.state
	if !allowed(cur, next) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", checkout.ErrInvalidTransition, cur, next)
	}
	c.state = next
	c.lastErr = err
	subs := append([]*subscription(nil), c.subs...)
	c.mu.Unlock()

	if errors.Is(err, checkout.ErrNetworkCongestion) {
		c.log.Info("payment hit network congestion, retry expected to succeed",
			map[string]any{"error": err.Error()})
	} else if !checkout.IsRecoverable(err) {
		c.log.Warn("payment preparation failed", map[string]any{"error": err.Error()})
	}

	for _, sub := range subs {
		sub.fn(next)
	}
	return nil
}

func allowed(from, to checkout.ButtonState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
