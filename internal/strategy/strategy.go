// Package strategy defines the user-facing strategy contract: the
// lifecycle hooks the engine drives, order helpers that submit through
// a broker, and a registry for constructing strategies by ID.
package strategy

import (
	"fmt"
	"time"

	"github.com/jaxquant/backtest/internal/broker"
	"github.com/jaxquant/backtest/internal/order"
	"github.com/jaxquant/backtest/internal/risk"
)

// Strategy is the lifecycle contract the engine drives every bar. A
// concrete strategy overrides zero or more hooks (embed Base to get
// no-op defaults for the rest), an optional-method interface shape
// generalized to the full bar-driven loop.
type Strategy interface {
	ID() string

	Start()
	PreNext()
	NextStart()
	Next()
	Stop()

	NotifyOrder(o *order.Order)
	NotifyTrade(t *order.Trade)
	NotifyCashValue(cash, value float64)
}

// Base supplies no-op defaults for every hook so concrete strategies
// only need to override what they use.
type Base struct {
	id string

	Broker *broker.Broker
	DataID string

	riskGate *risk.Enforcer
}

func NewBase(id string, br *broker.Broker, dataID string) *Base {
	return &Base{id: id, Broker: br, DataID: dataID}
}

// UseRiskGate attaches an optional pre-trade gate; once set, Buy/Sell
// reject an order (without submitting it to the broker) if it would
// breach the gate's per-trade limits.
func (b *Base) UseRiskGate(e *risk.Enforcer) { b.riskGate = e }

func (b *Base) checkRisk(dataID string, price, size float64) error {
	if b.riskGate == nil || price <= 0 {
		return nil
	}
	equity := b.Broker.GetCash()
	vs := b.riskGate.CheckOrder(risk.OrderInput{
		DataID:        dataID,
		EntryPrice:    price,
		StopLoss:      price,
		AccountEquity: equity,
		PositionValue: absFloat(size) * price,
	})
	if !vs.IsEmpty() {
		return fmt.Errorf("strategy %s: order rejected by risk gate: %w", b.id, vs)
	}
	return nil
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func (b *Base) ID() string { return b.id }

func (b *Base) Start()     {}
func (b *Base) PreNext()   {}
func (b *Base) NextStart() {}
func (b *Base) Next()      {}
func (b *Base) Stop()      {}

func (b *Base) NotifyOrder(o *order.Order)          {}
func (b *Base) NotifyTrade(t *order.Trade)          {}
func (b *Base) NotifyCashValue(cash, value float64) {}

// Buy/Sell/Close/Cancel are the order helpers every concrete strategy
// uses from inside Next(); Created time is supplied by the caller since
// Base has no direct view of the current bar's datetime.
func (b *Base) Buy(created time.Time, size, price, priceLimit float64, typ order.Type) (*order.Order, error) {
	if err := b.checkRisk(b.DataID, price, size); err != nil {
		return nil, err
	}
	o := order.Buy(b.DataID, size, price, priceLimit, typ, created)
	err := b.Broker.Submit(o, price)
	return o, err
}

func (b *Base) Sell(created time.Time, size, price, priceLimit float64, typ order.Type) (*order.Order, error) {
	if err := b.checkRisk(b.DataID, price, size); err != nil {
		return nil, err
	}
	o := order.Sell(b.DataID, size, price, priceLimit, typ, created)
	err := b.Broker.Submit(o, price)
	return o, err
}

// Close submits a market order sized to flatten the current position.
func (b *Base) Close(created time.Time) (*order.Order, error) {
	pos := b.Broker.GetPosition(b.DataID)
	if pos.Size == 0 {
		return nil, nil
	}
	if pos.Size > 0 {
		return b.Sell(created, pos.Size, 0, 0, order.Market)
	}
	return b.Buy(created, -pos.Size, 0, 0, order.Market)
}

func (b *Base) Cancel(o *order.Order) {
	b.Broker.Cancel(o)
}
