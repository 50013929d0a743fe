package models

// PendingTransaction is a generated dynamic QRIS waiting for payment.
// Immutable once created; removed on payout match or after expiry.
type PendingTransaction struct {
	ID           string `db:"id"` // UUID v4
	Username     string `db:"username"`
	BaseAmount   int64  `db:"base_amount"`
	UniqueSuffix int    `db:"unique_suffix"`
	FinalAmount  int64  `db:"final_amount"`
	QRISString   string `db:"qris_string"`
	CreatedAt    int64  `db:"created_at"` // unix seconds
	ExpiresAt    int64  `db:"expires_at"`
}

// PaidTransaction replaces a pending transaction once its final amount
// shows up in the mutation history. Kept for a retention window so
// repeated status checks stay idempotent.
type PaidTransaction struct {
	ID          string `db:"id"`
	Username    string `db:"username"`
	FinalAmount int64  `db:"final_amount"`
	PaidAt      int64  `db:"paid_at"`
	ExpiresAt   int64  `db:"expires_at"`
}
