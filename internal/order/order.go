// Package order implements the order state machine and trade lifecycle
// accumulator.
package order

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Type distinguishes the order's trigger/price semantics.
type Type int

const (
	Market Type = iota
	Limit
	Stop
	StopLimit
	Close
)

func (t Type) String() string {
	switch t {
	case Market:
		return "Market"
	case Limit:
		return "Limit"
	case Stop:
		return "Stop"
	case StopLimit:
		return "StopLimit"
	case Close:
		return "Close"
	default:
		return "Unknown"
	}
}

// Status is the order's state-machine position.
type Status int

const (
	Created Status = iota
	Submitted
	Accepted
	Partial
	Completed
	Canceled
	Expired
	Margin
	Rejected
)

func (s Status) String() string {
	switch s {
	case Created:
		return "Created"
	case Submitted:
		return "Submitted"
	case Accepted:
		return "Accepted"
	case Partial:
		return "Partial"
	case Completed:
		return "Completed"
	case Canceled:
		return "Canceled"
	case Expired:
		return "Expired"
	case Margin:
		return "Margin"
	case Rejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

var nextRef int64

func newRef() int64 {
	return atomic.AddInt64(&nextRef, 1)
}

// ExecutionBit is one fill event appended to an order's execution record.
type ExecutionBit struct {
	DateTime      time.Time
	Size          float64
	Price         float64
	Closed        float64
	ClosedValue   float64
	ClosedComm    float64
	Opened        float64
	OpenedValue   float64
	OpenedComm    float64
	Value         float64
	Comm          float64
	PNL           float64
	PositionSize  float64
	PositionPrice float64
}

// NewExecutionBit fills in Value/Comm as the sum of their opened/closed
// parts, matching the reference implementation's OrderExecutionBit
// constructor.
func NewExecutionBit(dt time.Time, size, price, closed, closedValue, closedComm, opened, openedValue, openedComm, pnl, psize, pprice float64) ExecutionBit {
	return ExecutionBit{
		DateTime: dt, Size: size, Price: price,
		Closed: closed, ClosedValue: closedValue, ClosedComm: closedComm,
		Opened: opened, OpenedValue: openedValue, OpenedComm: openedComm,
		Value: closedValue + openedValue, Comm: closedComm + openedComm,
		PNL: pnl, PositionSize: psize, PositionPrice: pprice,
	}
}

// Executed accumulates execution bits for an order, with running totals
// kept in lock-step with each appended bit.
type Executed struct {
	Bits          []ExecutionBit
	Size          float64
	Value         float64
	Comm          float64
	PNL           float64
	PositionSize  float64
	PositionPrice float64
}

// AddBit appends a bit and updates the running totals, mirroring
// OrderData::addbit in the reference implementation.
func (e *Executed) AddBit(bit ExecutionBit) {
	e.Bits = append(e.Bits, bit)
	e.Size += bit.Size
	e.Value += bit.Value
	e.Comm += bit.Comm
	e.PNL += bit.PNL
	e.PositionSize = bit.PositionSize
	e.PositionPrice = bit.PositionPrice
}

// Order is the order state machine: ref, target instrument identity
// (DataID, left abstract so the broker package can bind it to whatever
// DataSeries identity it uses), signed size, price fields, type, status,
// and the accumulated execution record.
type Order struct {
	Ref          int64
	DataID       string
	Size         float64
	Price        float64
	PriceLimit   float64
	TrailAmount  float64
	TrailPercent float64
	Type         Type
	Status       Status
	Parent       *Order
	Info         map[string]any

	Created  time.Time
	Executed Executed

	// TrailStop tracks the current trailing-stop trigger level,
	// recomputed by the broker after each bar from the favorable
	// extreme seen so far.
	TrailStop float64

	// Triggered marks a StopLimit order that has already fired its stop
	// leg and converted to a Limit at PriceLimit.
	Triggered bool

	// PendingCancel is set when a strategy cancels this order; the
	// broker applies the cancellation at the next matching step rather
	// than immediately, so an already-matchable order can still fill on
	// the bar the cancellation was requested on.
	PendingCancel bool
}

// New constructs an order in the Created state with a freshly assigned
// monotonic ref (FIFO tie-break key).
func New(dataID string, size, price, priceLimit float64, typ Type, created time.Time) *Order {
	return &Order{
		Ref: newRef(), DataID: dataID, Size: size, Price: price,
		PriceLimit: priceLimit, Type: typ, Status: Created, Created: created,
	}
}

func (o *Order) IsBuy() bool  { return o.Size > 0 }
func (o *Order) IsSell() bool { return o.Size < 0 }

// Alive reports whether the order can still receive fills.
func (o *Order) Alive() bool {
	switch o.Status {
	case Created, Submitted, Accepted, Partial:
		return true
	default:
		return false
	}
}

func (o *Order) IsCompleted() bool { return o.Status == Completed }
func (o *Order) IsPartial() bool   { return o.Status == Partial }
func (o *Order) IsAccepted() bool  { return o.Status == Accepted }
func (o *Order) IsSubmitted() bool { return o.Status == Submitted }

// Remaining returns the unfilled portion of size, signed the same way as
// size itself.
func (o *Order) Remaining() float64 {
	return o.Size - o.Executed.Size
}

func (o *Order) String() string {
	side := "BUY"
	if o.IsSell() {
		side = "SELL"
	}
	return fmt.Sprintf("Order[%d] %s %.2f @ %s Status: %s Executed: %.2f/%.2f",
		o.Ref, side, abs(o.Size), o.Type, o.Status, o.Executed.Size, o.Size)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Clone copies the order's configuration into a fresh order with a new
// ref, as the reference implementation does for StopLimit-to-Limit
// conversion and bracket re-submission.
func (o *Order) Clone() *Order {
	c := *o
	c.Ref = newRef()
	c.Executed = Executed{}
	c.Status = Created
	return &c
}

// Buy constructs a buy order (size forced positive).
func Buy(dataID string, size, price, priceLimit float64, typ Type, created time.Time) *Order {
	return New(dataID, abs(size), price, priceLimit, typ, created)
}

// Sell constructs a sell order (size forced negative).
func Sell(dataID string, size, price, priceLimit float64, typ Type, created time.Time) *Order {
	return New(dataID, -abs(size), price, priceLimit, typ, created)
}
