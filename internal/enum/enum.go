package enum

// ── Payment instruments (closed set, keys of the commission table) ──

const (
	InstrumentCash     = "CASH"
	InstrumentTransfer = "TRANSFER"
	InstrumentCard     = "CARD"
	InstrumentCredit   = "STORE_CREDIT"
)

// ── Sale types (discriminator on persisted records) ──

const (
	SaleTypeRegular         = "SALE"
	SaleTypeLayawayPayment  = "LAYAWAY_PAYMENT"
	SaleTypeLayawayDelivery = "LAYAWAY_DELIVERY"
	SaleTypeServicePayment  = "SERVICE_PAYMENT"
)

// ── User roles ──

const (
	UserRoleAdmin  = "ADMIN"
	UserRoleSeller = "SELLER"
)

// ── Named report ranges ──

const (
	RangeToday       = "today"
	RangeWeek        = "week"
	RangeMonth       = "month"
	RangeThreeMonths = "3months"
	RangeSixMonths   = "6months"
	RangeYear        = "year"
	RangeCustom      = "custom"
)

// ValidInstrument reports whether s names a known payment instrument.
func ValidInstrument(s string) bool {
	switch s {
	case InstrumentCash, InstrumentTransfer, InstrumentCard, InstrumentCredit:
		return true
	}
	return false
}

// ValidSaleType reports whether s names a known sale type.
func ValidSaleType(s string) bool {
	switch s {
	case SaleTypeRegular, SaleTypeLayawayPayment, SaleTypeLayawayDelivery, SaleTypeServicePayment:
		return true
	}
	return false
}
