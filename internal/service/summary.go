package service

import (
	"fmt"
	"strings"

	"github.com/fv-bodegones/storefront-service/internal/models"
	"github.com/shopspring/decimal"
)

const summaryRule = "━━━━━━━━━━━━━━━━"

// SummaryCustomer is the customer block of an order summary.
type SummaryCustomer struct {
	Name    string
	Phone   string
	Address string
	Notes   string
}

// SummaryLine is one itemized line of an order summary.
type SummaryLine struct {
	Name      string
	Unit      models.MeasurementUnit
	UnitPrice decimal.Decimal
	Quantity  decimal.Decimal
	Subtotal  decimal.Decimal
}

// RenderOrderSummary formats an order as the text sent to the store over
// WhatsApp. Amounts are USD except the final line, which is totalLocal in
// bolívares.
func RenderOrderSummary(customer SummaryCustomer, lines []SummaryLine, breakdown TaxBreakdown, totalLocal decimal.Decimal) string {
	var b strings.Builder

	b.WriteString("*NUEVO PEDIDO*\n\n")
	fmt.Fprintf(&b, "*Cliente:* %s\n", customer.Name)
	fmt.Fprintf(&b, "*Teléfono:* %s\n", customer.Phone)
	if customer.Address != "" {
		fmt.Fprintf(&b, "*Dirección:* %s\n", customer.Address)
	}

	b.WriteString("\n*PRODUCTOS:*\n")
	b.WriteString(summaryRule + "\n")

	for i, line := range lines {
		perKg := ""
		if line.Unit == models.MeasurementUnitWeight {
			perKg = "/kg"
		}
		fmt.Fprintf(&b, "\n%d. *%s*\n", i+1, line.Name)
		fmt.Fprintf(&b, "   Cantidad: %s\n", FormatQuantity(line.Unit, line.Quantity))
		fmt.Fprintf(&b, "   Precio: $%s%s\n", FormatUSD(line.UnitPrice), perKg)
		fmt.Fprintf(&b, "   Subtotal: $%s\n", FormatUSD(line.Subtotal))
	}

	b.WriteString("\n" + summaryRule + "\n")
	fmt.Fprintf(&b, "Subtotal (sin IVA): $%s\n", FormatUSD(breakdown.PreTaxSubtotal))
	fmt.Fprintf(&b, "IVA incluido (%s%%): $%s\n", breakdown.TaxPercentage.String(), FormatUSD(breakdown.TaxAmount))
	fmt.Fprintf(&b, "*TOTAL: $%s*\n", FormatUSD(breakdown.Total))
	fmt.Fprintf(&b, "*TOTAL EN BOLÍVARES: Bs. %s*\n", FormatVES(totalLocal))

	if customer.Notes != "" {
		fmt.Fprintf(&b, "\n*Notas:* %s\n", customer.Notes)
	}

	b.WriteString("\n¡Gracias por tu pedido!")

	return b.String()
}

// FormatQuantity renders a line quantity: grams below a kilogram, kilograms
// with two decimals from there on, and unit counts in words.
func FormatQuantity(unit models.MeasurementUnit, quantity decimal.Decimal) string {
	switch unit {
	case models.MeasurementUnitWeight:
		if quantity.GreaterThanOrEqual(gramsPerKilogram) {
			return quantity.Div(gramsPerKilogram).StringFixed(2) + " kg"
		}
		return quantity.String() + " g"
	case models.MeasurementUnitUnit:
		if quantity.Equal(decimal.NewFromInt(1)) {
			return "1 unidad"
		}
		return quantity.String() + " unidades"
	default:
		return quantity.String()
	}
}

// FormatUSD formats an amount with US grouping: 1,234.56.
func FormatUSD(amount decimal.Decimal) string {
	return formatGrouped(amount, ",", ".")
}

// FormatVES formats an amount with Venezuelan grouping: 1.234,56.
func FormatVES(amount decimal.Decimal) string {
	return formatGrouped(amount, ".", ",")
}

func formatGrouped(amount decimal.Decimal, groupSep, decimalSep string) string {
	rounded := amount.Round(currencyPlaces)
	fixed := rounded.Abs().StringFixed(currencyPlaces)

	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if rounded.IsNegative() {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(groupSep)
		}
		b.WriteRune(r)
	}
	b.WriteString(decimalSep)
	b.WriteString(fracPart)

	return b.String()
}
