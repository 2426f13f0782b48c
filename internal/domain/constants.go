package domain

// Subscription lifecycle states.
const (
	SubPending   = "PENDING"
	SubActive    = "ACTIVE"
	SubExpired   = "EXPIRED"
	SubCancelled = "CANCELLED"
	SubFailed    = "FAILED"
)

// Transaction lifecycle states. Mirrors the normalized webhook buckets; a
// transaction is created PENDING and only the reconciler moves it forward.
const (
	TxPending   = "PENDING"
	TxConfirmed = "CONFIRMED"
	TxFailed    = "FAILED"
	TxRefunded  = "REFUNDED"
)

// Keys in the system_settings table.
const (
	SettingPlatformFee = "platform_fee"
)
