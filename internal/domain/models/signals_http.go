package models

// Requests for the excess-demand HTTP endpoints.
// Short, Long and Spread are pointers so an absent field (server default) differs
// from an explicit zero, which is rejected by the evaluator.

type FuzzifyRequest struct {
	X      float64  `query:"x" json:"x"`
	Spread *float64 `query:"w" json:"w"`
}

// ClosePoint is a caller-supplied observation. A null value marks a missing date.
type ClosePoint struct {
	Date  string   `json:"date" validate:"required"`
	Value *float64 `json:"value"`
}

type EvaluateRequest struct {
	Symbol string       `json:"symbol"`
	Closes []ClosePoint `json:"closes" validate:"required,min=1,max=10000,dive"`
	Short  *int         `json:"short" validate:"omitempty,lte=500"`
	Long   *int         `json:"long" validate:"omitempty,lte=1000"`
	Spread *float64     `json:"w"`
}

type ExcessDemandRequest struct {
	Symbol         string   `query:"symbol" json:"symbol" validate:"required"`
	Period         string   `query:"period" json:"period" default:"daily" validate:"oneof=daily weekly monthly"`
	Column         string   `query:"column" json:"column" default:"close" validate:"oneof=open high low close volume turnover"`
	Short          *int     `query:"short" json:"short" validate:"omitempty,lte=500"`
	Long           *int     `query:"long" json:"long" validate:"omitempty,lte=1000"`
	Spread         *float64 `query:"w" json:"w"`
	Start          string   `query:"start" json:"start"`
	End            string   `query:"end" json:"end"`
	N              int      `query:"n" json:"n" default:"250" validate:"gte=1,lte=10000"`
	IncludeInvalid bool     `query:"include_invalid" json:"include_invalid"`
}

type ScanRequest struct {
	Symbols string   `query:"symbols" json:"symbols" validate:"required"`
	Period  string   `query:"period" json:"period" default:"daily" validate:"oneof=daily weekly monthly"`
	Column  string   `query:"column" json:"column" default:"close" validate:"oneof=open high low close volume turnover"`
	Short   *int     `query:"short" json:"short" validate:"omitempty,lte=500"`
	Long    *int     `query:"long" json:"long" validate:"omitempty,lte=1000"`
	Spread  *float64 `query:"w" json:"w"`
}

type CandlesRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Period string `query:"period" json:"period" default:"daily" validate:"oneof=daily weekly monthly"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Limit  int    `query:"limit" json:"limit" default:"1000" validate:"gte=1,lte=50000"`
}

type IngestCandlesRequest struct {
	Symbol  string   `json:"symbol" validate:"required"`
	Period  string   `json:"period" default:"daily" validate:"oneof=daily weekly monthly"`
	Candles []Candle `json:"candles" validate:"required,min=1,max=10000"`
}

type SignalHistoryRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Period string `query:"period" json:"period" default:"daily" validate:"oneof=daily weekly monthly"`
	Limit  int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=5000"`
}
