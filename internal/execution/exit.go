package execution

// ExitSignal is the decision of ShouldTriggerExit.
type ExitSignal string

const (
	ExitNone       ExitSignal = "none"
	ExitTakeProfit ExitSignal = "take_profit"
	ExitStopLoss   ExitSignal = "stop_loss"
)

// ExitConfig holds take-profit and stop-loss distances in percent of entry.
type ExitConfig struct {
	TakeProfitPercent float64
	StopLossPercent   float64
}

// ShouldTriggerExit compares the current price with the entry price.
// Stop-loss is checked first. Non-positive thresholds disable that side.
func ShouldTriggerExit(entry, current float64, cfg ExitConfig) ExitSignal {
	if entry <= 0 || current <= 0 {
		return ExitNone
	}
	if cfg.StopLossPercent > 0 && current <= entry*(1-cfg.StopLossPercent/100) {
		return ExitStopLoss
	}
	if cfg.TakeProfitPercent > 0 && current >= entry*(1+cfg.TakeProfitPercent/100) {
		return ExitTakeProfit
	}
	return ExitNone
}

// Bands converts the distances into absolute exit and stop prices for entry.
// A disabled side returns nil.
func (c ExitConfig) Bands(entry float64) (exit, stop *float64) {
	if entry <= 0 {
		return nil, nil
	}
	if c.TakeProfitPercent > 0 {
		v := entry * (1 + c.TakeProfitPercent/100)
		exit = &v
	}
	if c.StopLossPercent > 0 && c.StopLossPercent < 100 {
		v := entry * (1 - c.StopLossPercent/100)
		stop = &v
	}
	return exit, stop
}
