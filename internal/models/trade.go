package models

import "github.com/shopspring/decimal"

// Trade mirrors one position reported by a remote bot instance. TradeID is
// the remote bot's own counter, unique only within a host, so the identity
// key is (HostID, TradeID). A trade is either fully open or fully closed;
// reconciliation replaces the whole row on conflict.
type Trade struct {
	HostID           int64            `json:"host_id" db:"host_id"`
	TradeID          int64            `json:"trade_id" db:"trade_id"`
	Pair             string           `json:"pair" db:"pair"`
	BaseCurrency     string           `json:"base_currency" db:"base_currency"`
	QuoteCurrency    string           `json:"quote_currency" db:"quote_currency"`
	Exchange         string           `json:"exchange" db:"exchange"`
	IsOpen           bool             `json:"is_open" db:"is_open"`
	Amount           decimal.Decimal  `json:"amount" db:"amount"`
	StakeAmount      decimal.Decimal  `json:"stake_amount" db:"stake_amount"`
	ProfitAbs        decimal.Decimal  `json:"profit_abs" db:"profit_abs"`
	EnterTag         string           `json:"enter_tag" db:"enter_tag"`
	FeeOpenCost      decimal.Decimal  `json:"fee_open_cost" db:"fee_open_cost"`
	FeeOpenCurrency  string           `json:"fee_open_currency" db:"fee_open_currency"`
	FeeCloseCost     *decimal.Decimal `json:"fee_close_cost" db:"fee_close_cost"`
	FeeCloseCurrency *string          `json:"fee_close_currency" db:"fee_close_currency"`
	OpenTimestamp    int64            `json:"open_timestamp" db:"open_timestamp"`
	OpenRate         decimal.Decimal  `json:"open_rate" db:"open_rate"`
	CloseTimestamp   *int64           `json:"close_timestamp" db:"close_timestamp"`
	CloseRate        *decimal.Decimal `json:"close_rate" db:"close_rate"`
	ExitReason       *string          `json:"exit_reason" db:"exit_reason"`
	StopLossAbs      decimal.Decimal  `json:"stop_loss_abs" db:"stop_loss_abs"`
	Leverage         decimal.Decimal  `json:"leverage" db:"leverage"`
	IsShort          bool             `json:"is_short" db:"is_short"`
	TradingMode      string           `json:"trading_mode" db:"trading_mode"`
	FundingFees      decimal.Decimal  `json:"funding_fees" db:"funding_fees"`

	// Orders nested under the trade as delivered by the remote API. They are
	// persisted separately, keyed (HostID, TradeID, OrderID).
	Orders []Order `json:"orders,omitempty" db:"-"`
}

// Order is one exchange order attached to a trade.
type Order struct {
	HostID               int64            `json:"host_id" db:"host_id"`
	TradeID              int64            `json:"trade_id" db:"trade_id"`
	OrderID              string           `json:"order_id" db:"order_id"`
	Amount               decimal.Decimal  `json:"amount" db:"amount"`
	Filled               decimal.Decimal  `json:"filled" db:"filled"`
	OrderSide            string           `json:"ft_order_side" db:"order_side"`
	OrderType            string           `json:"order_type" db:"order_type"`
	OrderTimestamp       int64            `json:"order_timestamp" db:"order_timestamp"`
	OrderFilledTimestamp int64            `json:"order_filled_timestamp" db:"order_filled_timestamp"`
	IsEntry              *bool            `json:"ft_is_entry" db:"is_entry"`
	Status               string           `json:"status" db:"status"`
	Average              *decimal.Decimal `json:"average" db:"average"`
}
