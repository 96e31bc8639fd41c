// Package rates holds the statutory and commercial rates used across
// funnel valuation and invoicing.
package rates

const (
	// TaxBenefit is the statutory share-capital tax-benefit rate (22%).
	TaxBenefit = 0.22
	// Commission is the success-fee share taken on a computed tax benefit (30%).
	Commission = 0.30
	// VAT is the Norwegian VAT rate applied to invoiced commission (25%).
	VAT = 0.25
)
