package models

// EBTCard represents a linked EBT card
type EBTCard struct {
	ID          int64   `json:"id"`
	UserID      int64   `json:"user_id"`
	CardNumber  string  `json:"card_number"` // Masked for response
	HMAC        string  `json:"-"`
	SNAPBalance float64 `json:"snap_balance"`
	CashBalance float64 `json:"cash_balance"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}
