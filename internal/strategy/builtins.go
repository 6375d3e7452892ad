package strategy

// RegisterBuiltins registers every concrete strategy shipped with this
// module. Callers needing only a subset can register strategies
// individually via Registry.Register instead.
func RegisterBuiltins(r *Registry) error {
	if err := r.Register(Metadata{
		ID:          "ma_crossover_v1",
		Name:        "Moving Average Crossover",
		Description: "Golden/death cross over 20/50/200-period SMAs, ATR-aware.",
		Timeframes:  []string{"daily", "hourly"},
	}, func(b BrokerBinder) Strategy {
		return NewMACrossover(b.Data(), b.Broker(), b.DataID())
	}); err != nil {
		return err
	}

	if err := r.Register(Metadata{
		ID:          "macd_crossover_v1",
		Name:        "MACD Histogram Crossover",
		Description: "Enters/exits on MACD histogram sign changes relative to signal line.",
		Timeframes:  []string{"daily", "hourly"},
	}, func(b BrokerBinder) Strategy {
		return NewMACDCrossover(b.Data(), b.Broker(), b.DataID())
	}); err != nil {
		return err
	}

	if err := r.Register(Metadata{
		ID:          "rsi_momentum_v1",
		Name:        "RSI Momentum",
		Description: "Mean-reversion entries on RSI(14) oversold/overbought thresholds.",
		Timeframes:  []string{"daily", "hourly"},
	}, func(b BrokerBinder) Strategy {
		return NewRSIMomentum(b.Data(), b.Broker(), b.DataID())
	}); err != nil {
		return err
	}

	return nil
}
