package withdraw

import "github.com/shopspring/decimal"

// Fees computes the tax and service charge for amount. Both are rounded
// half up to cents, so 100.005 at 5% and 30% yields 5.00 and 30.00.
func Fees(amount, taxRate, serviceRate decimal.Decimal) (tax, service decimal.Decimal) {
	tax = amount.Mul(taxRate).Round(2)
	service = amount.Mul(serviceRate).Round(2)
	return tax, service
}

// normalizeURL prepends https:// when raw carries no http(s) scheme.
func normalizeURL(raw string) string {
	if schemeRe.MatchString(raw) {
		return raw
	}
	return "https://" + raw
}
