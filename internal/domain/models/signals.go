package models

import "time"

// PriceBar is one OHLCV record supplied by the bar source.
type PriceBar struct {
	Timestamp time.Time `json:"t"`
	Open      float64   `json:"o"`
	High      float64   `json:"h"`
	Low       float64   `json:"l"`
	Close     float64   `json:"c"`
	Volume    float64   `json:"v"`
}

// ExitReason tells why a position was closed.
type ExitReason string

const (
	ExitTakeProfit ExitReason = "take_profit"
	ExitStopLoss   ExitReason = "stop_loss"
	ExitNextClose  ExitReason = "next_close"
	ExitScheduled  ExitReason = "scheduled"
	ExitFlush      ExitReason = "flush"
)

// Position is an open slot on the long or short track.
type Position struct {
	Direction      Direction         `json:"direction"`
	Classification DayClassification `json:"classification"`
	HourCode       int               `json:"hour_code,omitempty"`
	EntryTime      time.Time         `json:"entry_time"`
	EntryPrice     float64           `json:"entry_price"`
	TakeProfit     float64           `json:"take_profit,omitempty"`
	StopLoss       float64           `json:"stop_loss,omitempty"`
	// ExitDate is the scheduled exit date in held mode; zero when none was found in range.
	ExitDate time.Time `json:"exit_date,omitzero"`
}

// Trade is a closed position. Never mutated after it is appended to a ledger.
type Trade struct {
	Position
	ExitTime    time.Time     `json:"exit_time"`
	ExitPrice   float64       `json:"exit_price"`
	ExitReason  ExitReason    `json:"exit_reason"`
	GrossReturn float64       `json:"gross_return"`
	Return      float64       `json:"return"` // net of fees
	Holding     time.Duration `json:"holding"`
}

// Win reports a strictly positive net return.
func (t Trade) Win() bool { return t.Return > 0 }

// BacktestResult is the simulator output.
type BacktestResult struct {
	Trades           []Trade    `json:"trades"`
	Open             []Position `json:"open"`
	MissingPriceData int        `json:"missing_price_data"`
	IncompleteBars   int        `json:"incomplete_bars"`
}

// EquityPoint is the compounded equity after a trade closes.
type EquityPoint struct {
	Time     time.Time `json:"time"`
	Equity   float64   `json:"equity"`
	Drawdown float64   `json:"drawdown"`
}

// GroupStats aggregates trades of one (classification, direction) pair.
type GroupStats struct {
	Classification DayClassification `json:"classification"`
	Direction      Direction         `json:"direction"`
	Count          int               `json:"count"`
	Wins           int               `json:"wins"`
	WinRate        float64           `json:"win_rate"`
	MeanReturn     float64           `json:"mean_return"`
	TotalReturn    float64           `json:"total_return"`
}

// Summary is the performance report of a ledger.
type Summary struct {
	TotalTrades      int           `json:"total_trades"`
	Wins             int           `json:"wins"`
	Losses           int           `json:"losses"`
	WinRate          float64       `json:"win_rate"`
	MeanReturn       float64       `json:"mean_return"`
	CumulativeReturn float64       `json:"cumulative_return"`
	MaxDrawdown      float64       `json:"max_drawdown"`
	Equity           []EquityPoint `json:"equity"`
	Breakdown        []GroupStats  `json:"breakdown"`
}

// BacktestReport bundles a run for the API, the ledger store and the publisher.
type BacktestReport struct {
	RunID     string         `json:"run_id"`
	Symbol    string         `json:"symbol"`
	From      time.Time      `json:"from"`
	To        time.Time      `json:"to"`
	Mode      SimulationMode `json:"mode"`
	Bars      int            `json:"bars"`
	Result    BacktestResult `json:"result"`
	Summary   Summary        `json:"summary"`
	CreatedAt time.Time      `json:"created_at"`
}
