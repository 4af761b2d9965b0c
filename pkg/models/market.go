package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Ticker struct {
	Symbol    string
	LastPrice decimal.Decimal
	Timestamp time.Time
}

type ExchangeInfo struct {
	ID         ExchangeID `json:"id"`
	Name       string     `json:"name"`
	Configured bool       `json:"configured"`
}
