package models

import (
	"time"
)

// MarketField names one of the numeric market properties of a digest
type MarketField string

const (
	FieldVIX     MarketField = "vix"
	FieldSP500   MarketField = "sp500"
	FieldKOSPI   MarketField = "kospi"
	FieldUSDKRW  MarketField = "usdkrw"
	FieldBond10Y MarketField = "bond10y"
)

// MarketFields is the fixed set of numeric market properties, in display order
var MarketFields = []MarketField{FieldVIX, FieldSP500, FieldKOSPI, FieldUSDKRW, FieldBond10Y}

// RealTimeQuote holds the latest close for one instrument from a quote source
type RealTimeQuote struct {
	Symbol    string    `json:"symbol"`
	Close     float64   `json:"close"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source,omitempty"` // "yahoo" or "eodhd"
}

// EODBar represents a single day's price data
type EODBar struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adjusted_close"`
	Volume   int64     `json:"volume"`
}

// NewsItem is one candidate article handed to the digest generator
type NewsItem struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	PublishedAt string `json:"published_at"`
}
