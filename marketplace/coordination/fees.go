package coordination

import "github.com/shopspring/decimal"

// Fee schedule for the built-in plans. Fees are informational: the
// coordinator records them on the transaction but never withholds them
// from TotalValue.
var (
	marketplaceFeeRate    = decimal.NewFromFloat(0.025)
	purchaseGasFee        = decimal.NewFromInt(15)
	purchaseValidationFee = decimal.NewFromInt(5)
	listingFlatFee        = decimal.NewFromInt(5)
	listingValidationFee  = decimal.NewFromInt(3)
)

func purchaseFees(price decimal.Decimal) map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"marketplace_fee": price.Mul(marketplaceFeeRate),
		"gas_fee":         purchaseGasFee,
		"validation_fee":  purchaseValidationFee,
	}
}

func listingFees() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"listing_fee":    listingFlatFee,
		"validation_fee": listingValidationFee,
	}
}
