package observer

import (
	"time"

	"github.com/jaxquant/backtest/internal/order"
)

// Analyzer is a stateful aggregator that reports once at Stop(), unlike
// Observer which appends a value every bar.
type Analyzer interface {
	Start()
	Next()
	Stop()
	GetAnalysis() map[string]any
}

// TransactionRecord is one order or trade event, grounded on
// analyzers/transactions.h's TransactionRecord (export/filtering helpers
// dropped as outer-surface concerns; the record shape and running
// statistics are kept).
type TransactionRecord struct {
	Kind       string // "order" or "trade"
	DateTime   time.Time
	DataID     string
	Action     string // "buy", "sell", "close"
	Size       float64
	Price      float64
	Value      float64
	Commission float64
	OrderType  string
	Status     string
	RefID      string
}

// TransactionsAnalyzer records every order/trade notification it
// receives and exposes running statistics, grounded on
// analyzers/transactions.cpp.
type TransactionsAnalyzer struct {
	records []TransactionRecord

	totalOrders     int
	totalTrades     int
	executedOrders  int
	canceledOrders  int
	totalVolume     float64
	totalValue      float64
	totalCommission float64
}

func NewTransactionsAnalyzer() *TransactionsAnalyzer {
	return &TransactionsAnalyzer{}
}

func (a *TransactionsAnalyzer) Start() {}
func (a *TransactionsAnalyzer) Next()  {}
func (a *TransactionsAnalyzer) Stop()  {}

func (a *TransactionsAnalyzer) NotifyOrder(o *order.Order) {
	a.totalOrders++
	action := "buy"
	if o.IsSell() {
		action = "sell"
	}
	switch o.Status {
	case order.Completed, order.Partial:
		a.executedOrders++
	case order.Canceled, order.Expired, order.Margin, order.Rejected:
		a.canceledOrders++
	}

	price := o.Price
	size := o.Executed.Size
	value := o.Executed.Value
	if size == 0 {
		size = o.Size
		value = 0
	}

	a.totalVolume += absf(size)
	a.totalValue += value
	a.totalCommission += o.Executed.Comm

	a.records = append(a.records, TransactionRecord{
		Kind:       "order",
		DateTime:   o.Created,
		DataID:     o.DataID,
		Action:     action,
		Size:       size,
		Price:      price,
		Value:      value,
		Commission: o.Executed.Comm,
		OrderType:  o.Type.String(),
		Status:     o.Status.String(),
	})
}

func (a *TransactionsAnalyzer) NotifyTrade(t *order.Trade) {
	if t.Status != order.TradeClosed {
		return
	}
	a.totalTrades++
	a.records = append(a.records, TransactionRecord{
		Kind:       "trade",
		DateTime:   t.DTClose,
		DataID:     t.DataID,
		Size:       t.Size,
		Price:      t.Price,
		Value:      absf(t.Size) * t.Price,
		Commission: t.Commission,
		Status:     t.Status.String(),
	})
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// GetAnalysis returns the aggregated statistics, emitted once at stop()
// per the bucketed-analyzer contract.
func (a *TransactionsAnalyzer) GetAnalysis() map[string]any {
	avgSize, avgValue := 0.0, 0.0
	if a.totalTrades > 0 {
		avgValue = a.totalValue / float64(a.totalTrades)
	}
	if len(a.records) > 0 {
		avgSize = a.totalVolume / float64(len(a.records))
	}
	return map[string]any{
		"total_transactions":  len(a.records),
		"total_orders":        a.totalOrders,
		"total_trades":        a.totalTrades,
		"executed_orders":     a.executedOrders,
		"canceled_orders":     a.canceledOrders,
		"total_volume":        a.totalVolume,
		"total_value":         a.totalValue,
		"total_commission":    a.totalCommission,
		"average_trade_size":  avgSize,
		"average_trade_value": avgValue,
	}
}

func (a *TransactionsAnalyzer) Records() []TransactionRecord {
	return append([]TransactionRecord(nil), a.records...)
}
