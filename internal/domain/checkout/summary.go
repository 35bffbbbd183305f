package checkout

const (
	DefaultBaseFee     int64 = 1000
	DefaultDeliveryFee int64 = 500
	DefaultCurrency          = "COP"

	basisPointsPerUnit = 10000
)

// FeeSchedule decides the fees charged on top of a cart subtotal.
type FeeSchedule interface {
	Fees(subtotal int64) (baseFee, deliveryFee int64)
}

// FlatFees charges the same amounts regardless of subtotal or currency.
type FlatFees struct {
	Base     int64
	Delivery int64
}

func (f FlatFees) Fees(int64) (int64, int64) {
	return f.Base, f.Delivery
}

// PercentageFees charges basis points of the subtotal, rounded half up to the nearest minor unit.
type PercentageFees struct {
	BaseBps     int64
	DeliveryBps int64
}

func (f PercentageFees) Fees(subtotal int64) (int64, int64) {
	return applyBps(subtotal, f.BaseBps), applyBps(subtotal, f.DeliveryBps)
}

func applyBps(amount, bps int64) int64 {
	if amount <= 0 || bps <= 0 {
		return 0
	}
	return (amount*bps + basisPointsPerUnit/2) / basisPointsPerUnit
}

var DefaultFees FeeSchedule = FlatFees{Base: DefaultBaseFee, Delivery: DefaultDeliveryFee}

type SummaryCalculator struct {
	fees FeeSchedule
}

func NewSummaryCalculator(fees FeeSchedule) *SummaryCalculator {
	if fees == nil {
		fees = DefaultFees
	}
	return &SummaryCalculator{fees: fees}
}

func (c *SummaryCalculator) Calculate(subtotal int64, currency string) Summary {
	base, delivery := c.fees.Fees(subtotal)
	return Summary{
		Subtotal:    subtotal,
		BaseFee:     base,
		DeliveryFee: delivery,
		Total:       subtotal + base + delivery,
		Currency:    currency,
	}
}

var defaultCalculator = NewSummaryCalculator(DefaultFees)

func CalculateSummary(subtotal int64, currency string) Summary {
	return defaultCalculator.Calculate(subtotal, currency)
}
