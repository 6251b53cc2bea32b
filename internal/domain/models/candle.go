package models

import "time"

// Candle is one OHLCV bar of a symbol for a given period.
type Candle struct {
	Date     time.Time `json:"date"`
	Symbol   string    `json:"symbol"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
	Turnover float64   `json:"turnover"`
}

// CandleBatch is the message exchanged on the candles topic.
type CandleBatch struct {
	Symbol  string   `json:"symbol"`
	Period  string   `json:"period"`
	Candles []Candle `json:"candles"`
}

// Point is a dated sample of a derived series. Invalid points carry no value
// (warm-up of a moving average, or a missing input).
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
	Valid bool      `json:"valid"`
}

// Series is an ordered sequence of points with strictly increasing dates.
type Series []Point

// Values returns the raw values; invalid points contribute 0.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		if p.Valid {
			out[i] = p.Value
		}
	}
	return out
}
