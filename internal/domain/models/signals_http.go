package models

// Requests for the signal HTTP endpoints. Defined in domain for consistency and reuse.

type SignalsRequest struct {
	Start  string `query:"start" json:"start" validate:"required,datetime=2006-01-02"`
	End    string `query:"end" json:"end" validate:"required,datetime=2006-01-02"`
	Format string `query:"format" json:"format" default:"json" validate:"oneof=json text"`
}

// PublishRequest selects the calendar range sent to the signals topic.
type PublishRequest struct {
	Start string `query:"start" json:"start" validate:"required,datetime=2006-01-02"`
	End   string `query:"end" json:"end" validate:"required,datetime=2006-01-02"`
}

type ClassifyRequest struct {
	Date string `query:"date" json:"date" validate:"required,datetime=2006-01-02"`
}

type HoursRequest struct {
	Date string `query:"date" json:"date" validate:"required,datetime=2006-01-02"`
}

type BacktestRequest struct {
	Symbol      string `query:"symbol" json:"symbol" validate:"required"`
	Start       string `query:"start" json:"start" validate:"required,datetime=2006-01-02"`
	End         string `query:"end" json:"end" validate:"required,datetime=2006-01-02"`
	Mode        string `query:"mode" json:"mode" validate:"omitempty,oneof=simple held bracket"`
	Granularity string `query:"granularity" json:"granularity" validate:"omitempty,oneof=1h 1d"`
	Persist     bool   `query:"persist" json:"persist"`
}
