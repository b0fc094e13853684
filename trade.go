package rebalance

// Action is the side of a trade.
type Action string

const (
	Buy  Action = "BUY"
	Sell Action = "SELL"
)

// Trade is a recommended order. Quantity is always positive.
type Trade struct {
	Ticker   string
	Action   Action
	Quantity Quantity
	Price    Money
	// Amount is Quantity × Price.
	Amount Money
	// Estimated is true when Price is a placeholder.
	Estimated bool
}

// delta returns the signed quantity change of the trade.
func (t Trade) delta() Quantity {
	if t.Action == Sell {
		return t.Quantity.Neg()
	}
	return t.Quantity
}

func (t Trade) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("ticker", t.Ticker)
	w.Append("action", t.Action)
	w.Append("quantity", t.Quantity)
	w.Append("price", t.Price)
	w.Append("amount", t.Amount)
	w.Optional("estimated", t.Estimated)
	return w.MarshalJSON()
}
