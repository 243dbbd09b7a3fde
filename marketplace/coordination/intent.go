package coordination

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PurchaseIntent describes a buyer's request to purchase an item from a
// seller at an agreed price.
type PurchaseIntent struct {
	Buyer    string `validate:"required"`
	Seller   string `validate:"required"`
	ItemID   string `validate:"required"`
	Price    decimal.Decimal
	Metadata map[string]any
}

// ListingIntent describes a seller's request to list an item at an asking
// price.
type ListingIntent struct {
	Seller      string `validate:"required"`
	ItemID      string `validate:"required"`
	AskingPrice decimal.Decimal
	Metadata    map[string]any
}

func (c *Coordinator) validatePurchase(intent PurchaseIntent) error {
	if err := c.validate.Struct(intent); err != nil {
		return fmt.Errorf("%w: %w", ErrIntentInvalid, err)
	}

	if !intent.Price.IsPositive() {
		return fmt.Errorf("%w: price must be positive", ErrIntentInvalid)
	}

	return nil
}

func (c *Coordinator) validateListing(intent ListingIntent) error {
	if err := c.validate.Struct(intent); err != nil {
		return fmt.Errorf("%w: %w", ErrIntentInvalid, err)
	}

	if !intent.AskingPrice.IsPositive() {
		return fmt.Errorf("%w: asking price must be positive", ErrIntentInvalid)
	}

	return nil
}
