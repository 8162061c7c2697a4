package service

import (
	"errors"
	"fmt"

	"github.com/fv-bodegones/storefront-service/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrInvalidPrice         = errors.New("invalid price")
	ErrInvalidTaxPercentage = errors.New("invalid tax percentage")
)

// currencyPlaces is the number of decimal places money is presented with.
const currencyPlaces = 2

var (
	gramsPerKilogram = decimal.NewFromInt(1000)
	hundred          = decimal.NewFromInt(100)
)

// OrderLine is one product line to price. For weight lines Quantity is in
// grams and UnitPrice is per kilogram.
type OrderLine struct {
	UnitPrice decimal.Decimal
	Quantity  decimal.Decimal
	Unit      models.MeasurementUnit
}

// TaxBreakdown splits a tax-inclusive total into its pre-tax part and the tax
// folded into it. Values keep full precision; round them for display only.
type TaxBreakdown struct {
	Total          decimal.Decimal `json:"total"`
	PreTaxSubtotal decimal.Decimal `json:"pre_tax_subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	TaxPercentage  decimal.Decimal `json:"tax_percentage"`
}

// Rounded returns a copy with every amount rounded to currency precision.
func (b TaxBreakdown) Rounded() TaxBreakdown {
	return TaxBreakdown{
		Total:          b.Total.Round(currencyPlaces),
		PreTaxSubtotal: b.PreTaxSubtotal.Round(currencyPlaces),
		TaxAmount:      b.TaxAmount.Round(currencyPlaces),
		TaxPercentage:  b.TaxPercentage,
	}
}

// ComputeLineSubtotal prices a single line, rounded to currency precision.
// The rounded amount is for display and storage; totals are built from
// lineAmount.
func ComputeLineSubtotal(line OrderLine) (decimal.Decimal, error) {
	amount, err := lineAmount(line)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Round(currencyPlaces), nil
}

// lineAmount prices a line at full precision.
func lineAmount(line OrderLine) (decimal.Decimal, error) {
	if line.UnitPrice.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: unit price %s is negative", ErrInvalidPrice, line.UnitPrice)
	}
	if !line.Quantity.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: quantity %s must be positive", ErrInvalidQuantity, line.Quantity)
	}

	switch line.Unit {
	case models.MeasurementUnitUnit:
		if !line.Quantity.IsInteger() {
			return decimal.Zero, fmt.Errorf("%w: unit quantity %s must be a whole number", ErrInvalidQuantity, line.Quantity)
		}
		return line.UnitPrice.Mul(line.Quantity), nil
	case models.MeasurementUnitWeight:
		return line.UnitPrice.Mul(line.Quantity).Div(gramsPerKilogram), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: unknown measurement type %q", ErrInvalidQuantity, line.Unit)
	}
}

// ComputeTaxBreakdown derives the pre-tax subtotal and tax amount from a
// tax-inclusive total.
func ComputeTaxBreakdown(total, taxPercentage decimal.Decimal) (TaxBreakdown, error) {
	if taxPercentage.IsNegative() {
		return TaxBreakdown{}, fmt.Errorf("%w: %s is negative", ErrInvalidTaxPercentage, taxPercentage)
	}

	preTax := total
	if !taxPercentage.IsZero() {
		preTax = total.Div(decimal.NewFromInt(1).Add(taxPercentage.Div(hundred)))
	}

	return TaxBreakdown{
		Total:          total,
		PreTaxSubtotal: preTax,
		TaxAmount:      total.Sub(preTax),
		TaxPercentage:  taxPercentage,
	}, nil
}

// ComputeOrderTotal sums the unrounded line amounts into a tax-inclusive
// total and breaks it down at the given tax percentage.
func ComputeOrderTotal(lines []OrderLine, taxPercentage decimal.Decimal) (TaxBreakdown, error) {
	if taxPercentage.IsNegative() {
		return TaxBreakdown{}, fmt.Errorf("%w: %s is negative", ErrInvalidTaxPercentage, taxPercentage)
	}

	total := decimal.Zero
	for i, line := range lines {
		amount, err := lineAmount(line)
		if err != nil {
			return TaxBreakdown{}, &LineError{Index: i, Err: err}
		}
		total = total.Add(amount)
	}

	return ComputeTaxBreakdown(total, taxPercentage)
}

// LineError reports which line of an order failed to price.
type LineError struct {
	Index int
	Err   error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Index, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}
