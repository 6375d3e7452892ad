// Package risk implements an optional pre-trade gate a strategy can
// consult before submitting an order: a versioned risk-policy
// loader/enforcer generalized from the gating of a trade-decision
// signal to the gating of a backtest order, so the same constraint set
// (stop-distance bounds, per-trade risk fraction, position/portfolio
// caps) applies to simulated orders instead of live signals.
package risk

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"time"
)

// PortfolioConstraints is the "portfolio_constraints" block of a policy file.
type PortfolioConstraints struct {
	MaxPositionSize  float64 `json:"max_position_size"`
	MaxPositions     int     `json:"max_positions"`
	MaxPortfolioRisk float64 `json:"max_portfolio_risk"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	MinAccountSize   float64 `json:"min_account_size"`
}

// PositionLimits is the "position_limits" block of a policy file.
type PositionLimits struct {
	MaxRiskPerTrade float64 `json:"max_risk_per_trade"`
	MinRiskPerTrade float64 `json:"min_risk_per_trade"`
	MaxLeverage     float64 `json:"max_leverage"`
	MinStopDistance float64 `json:"min_stop_distance"`
	MaxStopDistance float64 `json:"max_stop_distance"`
}

// Policy is the immutable, loaded risk policy for one backtest run.
type Policy struct {
	Portfolio   PortfolioConstraints `json:"portfolio_constraints"`
	Position    PositionLimits       `json:"position_limits"`
	SizingModel string               `json:"sizing_model"`

	// InstrumentPositionLimits overrides Portfolio.MaxPositionSize for
	// specific data IDs, e.g. a tighter cap on a thinly-traded symbol.
	InstrumentPositionLimits map[string]float64 `json:"instrument_position_limits,omitempty"`

	LoadedFrom string    `json:"-"`
	LoadedAt   time.Time `json:"-"`
	Version    string    `json:"-"`
}

// LoadPolicy reads a JSON policy file; an empty path or a missing file
// falls back to DefaultPolicy so a backtest can run without one.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultPolicy(), nil
		}
		return nil, fmt.Errorf("risk: read policy file %q: %w", path, err)
	}
	var p Policy
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("risk: parse policy file %q: %w", path, err)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("risk: invalid policy in %q: %w", path, err)
	}
	p.LoadedFrom = path
	p.LoadedAt = time.Now().UTC()
	p.Version = policyVersion(data)
	return &p, nil
}

// DefaultPolicy returns a conservative policy for runs without a config file.
func DefaultPolicy() *Policy {
	p := &Policy{
		Portfolio: PortfolioConstraints{
			MaxPositionSize:  50_000,
			MaxPositions:     10,
			MaxPortfolioRisk: 0.15,
			MaxDrawdown:      0.20,
			MinAccountSize:   10_000,
		},
		Position: PositionLimits{
			MaxRiskPerTrade: 0.02,
			MinRiskPerTrade: 0.0,
			MaxLeverage:     2.0,
			MinStopDistance: 0.0,
			MaxStopDistance: 1.0,
		},
		SizingModel: "fixed_fractional",
		LoadedAt:    time.Now().UTC(),
	}
	b, _ := json.Marshal(p)
	p.Version = policyVersion(b)
	return p
}

func (p *Policy) validate() error {
	var errs []string
	if p.Position.MaxRiskPerTrade <= 0 || p.Position.MaxRiskPerTrade > 1 {
		errs = append(errs, fmt.Sprintf("max_risk_per_trade must be in (0,1], got %.4f", p.Position.MaxRiskPerTrade))
	}
	if p.Position.MinStopDistance < 0 || p.Position.MinStopDistance >= p.Position.MaxStopDistance {
		errs = append(errs, fmt.Sprintf("min_stop_distance (%.4f) must be < max_stop_distance (%.4f)", p.Position.MinStopDistance, p.Position.MaxStopDistance))
	}
	if p.Portfolio.MaxPositions <= 0 {
		errs = append(errs, "max_positions must be > 0")
	}
	if p.Portfolio.MaxDrawdown <= 0 || p.Portfolio.MaxDrawdown > 1 {
		errs = append(errs, fmt.Sprintf("max_drawdown must be in (0,1], got %.4f", p.Portfolio.MaxDrawdown))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func policyVersion(data []byte) string {
	h := uint64(14695981039346656037)
	for _, b := range data {
		h ^= uint64(b)
		h *= 1099511628211
	}
	return fmt.Sprintf("v%x", h&0xffffffffffff)
}

// ViolationCode is a machine-readable breach identifier.
type ViolationCode string

const (
	ViolationStopTooTight     ViolationCode = "STOP_TOO_TIGHT"
	ViolationStopTooWide      ViolationCode = "STOP_TOO_WIDE"
	ViolationRiskTooHigh      ViolationCode = "RISK_PER_TRADE_TOO_HIGH"
	ViolationRiskTooLow       ViolationCode = "RISK_PER_TRADE_TOO_LOW"
	ViolationPositionTooLarge ViolationCode = "POSITION_VALUE_TOO_LARGE"
	ViolationTooManyPositions ViolationCode = "TOO_MANY_OPEN_POSITIONS"
	ViolationAccountTooSmall  ViolationCode = "ACCOUNT_TOO_SMALL"
	ViolationDrawdownHalt     ViolationCode = "DRAWDOWN_HALT"
)

type Violation struct {
	Code     ViolationCode
	Message  string
	Limit    float64
	Observed float64
}

func (v Violation) Error() string {
	return fmt.Sprintf("risk violation [%s]: %s (limit=%.4f, observed=%.4f)",
		v.Code, v.Message, v.Limit, v.Observed)
}

type Violations []Violation

func (vs Violations) Error() string {
	msgs := make([]string, len(vs))
	for i, v := range vs {
		msgs[i] = v.Error()
	}
	return strings.Join(msgs, " | ")
}

func (vs Violations) IsEmpty() bool { return len(vs) == 0 }

// OrderInput carries the order-level values needed for pre-submit checks.
type OrderInput struct {
	DataID        string
	EntryPrice    float64
	StopLoss      float64
	AccountEquity float64
	PositionValue float64
}

// PortfolioState carries current broker state for portfolio-level gates.
type PortfolioState struct {
	NetLiquidation  float64
	OpenPositions   int
	CurrentDrawdown float64
}

// Enforcer applies a Policy to orders and portfolio state.
type Enforcer struct {
	policy *Policy
}

func NewEnforcer(policy *Policy) *Enforcer { return &Enforcer{policy: policy} }

func (e *Enforcer) Policy() *Policy { return e.policy }

// CheckOrder validates a single proposed order against the per-trade
// position limits before it is submitted to the broker.
func (e *Enforcer) CheckOrder(in OrderInput) Violations {
	var vs Violations
	p := e.policy.Position

	if in.EntryPrice <= 0 {
		return vs
	}

	stopDist := math.Abs(in.EntryPrice-in.StopLoss) / in.EntryPrice
	if p.MinStopDistance > 0 && stopDist < p.MinStopDistance {
		vs = append(vs, Violation{
			Code:    ViolationStopTooTight,
			Message: fmt.Sprintf("stop distance %.2f%% is below minimum %.2f%%", stopDist*100, p.MinStopDistance*100),
			Limit:   p.MinStopDistance, Observed: stopDist,
		})
	}
	if p.MaxStopDistance > 0 && stopDist > p.MaxStopDistance {
		vs = append(vs, Violation{
			Code:    ViolationStopTooWide,
			Message: fmt.Sprintf("stop distance %.2f%% exceeds maximum %.2f%%", stopDist*100, p.MaxStopDistance*100),
			Limit:   p.MaxStopDistance, Observed: stopDist,
		})
	}

	if in.AccountEquity > 0 {
		riskDollar := math.Abs(in.EntryPrice-in.StopLoss) * (in.PositionValue / in.EntryPrice)
		riskFrac := riskDollar / in.AccountEquity
		if p.MaxRiskPerTrade > 0 && riskFrac > p.MaxRiskPerTrade {
			vs = append(vs, Violation{
				Code:    ViolationRiskTooHigh,
				Message: fmt.Sprintf("trade risk %.2f%% exceeds maximum %.2f%%", riskFrac*100, p.MaxRiskPerTrade*100),
				Limit:   p.MaxRiskPerTrade, Observed: riskFrac,
			})
		}
		if p.MinRiskPerTrade > 0 && riskFrac < p.MinRiskPerTrade {
			vs = append(vs, Violation{
				Code:    ViolationRiskTooLow,
				Message: fmt.Sprintf("trade risk %.2f%% is below minimum %.2f%%", riskFrac*100, p.MinRiskPerTrade*100),
				Limit:   p.MinRiskPerTrade, Observed: riskFrac,
			})
		}
	}

	pc := e.policy.Portfolio
	maxPositionSize := pc.MaxPositionSize
	if limit, ok := e.policy.InstrumentPositionLimits[in.DataID]; ok {
		maxPositionSize = limit
	}
	if maxPositionSize > 0 && in.PositionValue > maxPositionSize {
		vs = append(vs, Violation{
			Code:    ViolationPositionTooLarge,
			Message: fmt.Sprintf("position value $%.2f exceeds maximum $%.2f for %s", in.PositionValue, maxPositionSize, in.DataID),
			Limit:   maxPositionSize, Observed: in.PositionValue,
		})
	}
	return vs
}

// CheckPortfolio validates current broker state against portfolio-level
// constraints; these gates block order submission, not order sizing.
func (e *Enforcer) CheckPortfolio(state PortfolioState) Violations {
	var vs Violations
	pc := e.policy.Portfolio

	if pc.MinAccountSize > 0 && state.NetLiquidation < pc.MinAccountSize {
		vs = append(vs, Violation{
			Code:    ViolationAccountTooSmall,
			Message: fmt.Sprintf("account equity $%.2f is below minimum $%.2f", state.NetLiquidation, pc.MinAccountSize),
			Limit:   pc.MinAccountSize, Observed: state.NetLiquidation,
		})
	}
	if pc.MaxPositions > 0 && state.OpenPositions >= pc.MaxPositions {
		vs = append(vs, Violation{
			Code:    ViolationTooManyPositions,
			Message: fmt.Sprintf("open positions %d at or above maximum %d", state.OpenPositions, pc.MaxPositions),
			Limit:   float64(pc.MaxPositions), Observed: float64(state.OpenPositions),
		})
	}
	if pc.MaxDrawdown > 0 && state.CurrentDrawdown >= pc.MaxDrawdown {
		vs = append(vs, Violation{
			Code:    ViolationDrawdownHalt,
			Message: fmt.Sprintf("drawdown %.2f%% at or above halt threshold %.2f%%", state.CurrentDrawdown*100, pc.MaxDrawdown*100),
			Limit:   pc.MaxDrawdown, Observed: state.CurrentDrawdown,
		})
	}
	return vs
}
