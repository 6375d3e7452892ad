package order

import "time"

// TradeStatus is the trade's lifecycle position.
type TradeStatus int

const (
	TradeCreated TradeStatus = iota
	TradeOpen
	TradeClosed
)

func (s TradeStatus) String() string {
	switch s {
	case TradeOpen:
		return "Open"
	case TradeClosed:
		return "Closed"
	default:
		return "Created"
	}
}

// HistoryEntry is one snapshot appended to a Trade's history on every
// update; the final entry's status is always Closed.
type HistoryEntry struct {
	DateTime time.Time
	Size     float64
	Price    float64
	PNL      float64
	PNLComm  float64
	Status   TradeStatus
}

// Trade represents the lifecycle of a position on one instrument: opened
// by the first execution that moves net position away from zero, closed
// when net position returns to zero.
type Trade struct {
	DataID     string
	Size       float64
	Price      float64
	Commission float64
	PNL        float64
	Status     TradeStatus
	DTOpen     time.Time
	DTClose    time.Time
	BarOpen    int
	BarLen     int
	History    []HistoryEntry

	// IsLong records the position's side as of the opening fill; Size is
	// zeroed by the time a trade reaches TradeClosed, so this is the only
	// reliable long/short signal once the trade is done.
	IsLong bool
}

// NewTrade returns an unopened trade on the given instrument.
func NewTrade(dataID string) *Trade {
	return &Trade{DataID: dataID, Status: TradeCreated}
}

// PNLComm is the realized PNL net of commission.
func (t *Trade) PNLComm() float64 {
	return t.PNL - t.Commission
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func (t *Trade) addHistory(dt time.Time) {
	t.History = append(t.History, HistoryEntry{
		DateTime: dt, Size: t.Size, Price: t.Price,
		PNL: t.PNL, PNLComm: t.PNLComm(), Status: t.Status,
	})
}

// Update applies one execution to the trade: sizeChange is the signed
// fill size, fillPrice the execution price, commission this fill's
// commission charge, barIndex the current bar index (for BarLen).
//
// It returns the PNL realized by this specific fill, and, if the fill
// flipped the position through zero, the signed remainder size that a
// new Trade (opened by the caller) should be seeded with at the same
// fillPrice — per the fast-flip policy: split the fill notionally, close
// the existing trade using exactly |oldSize| units, open the new one
// with what's left.
func (t *Trade) Update(dt time.Time, sizeChange, fillPrice, commission float64, barIndex int) (realized float64, flipRemainder float64, flipped bool) {
	if t.Status == TradeCreated {
		t.Size = sizeChange
		t.Price = fillPrice
		t.DTOpen = dt
		t.BarOpen = barIndex
		t.Status = TradeOpen
		t.IsLong = sizeChange > 0
		t.Commission += commission
		t.addHistory(dt)
		return 0, 0, false
	}

	oldSize := t.Size
	sameSign := (oldSize > 0 && sizeChange > 0) || (oldSize < 0 && sizeChange < 0)

	if sameSign {
		newSize := oldSize + sizeChange
		t.Price = (t.Price*oldSize + fillPrice*sizeChange) / newSize
		t.Size = newSize
		t.Commission += commission
		t.addHistory(dt)
		return 0, 0, false
	}

	if abs(sizeChange) <= abs(oldSize) {
		closingQty := abs(sizeChange)
		realized = closingQty * (fillPrice - t.Price) * sign(oldSize)
		t.PNL += realized
		t.Commission += commission
		t.Size = oldSize + sizeChange
		if t.Size == 0 {
			t.Status = TradeClosed
			t.DTClose = dt
			t.BarLen = barIndex - t.BarOpen + 1
		}
		t.addHistory(dt)
		return realized, 0, false
	}

	// Fast flip: the fill crosses through zero. Close the existing
	// trade for exactly |oldSize| units at the fill price, and report
	// the remainder for the caller to open a new trade with.
	closingQty := abs(oldSize)
	realized = closingQty * (fillPrice - t.Price) * sign(oldSize)
	t.PNL += realized
	t.Commission += commission
	t.Size = 0
	t.Status = TradeClosed
	t.DTClose = dt
	t.BarLen = barIndex - t.BarOpen + 1
	t.addHistory(dt)
	remainder := sizeChange + oldSize
	return realized, remainder, true
}
