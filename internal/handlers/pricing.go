package handlers

import "fmt"

// isProductOnSale reports whether the sale override applies: the sale price
// must be set, positive, and strictly below the regular price.
func isProductOnSale(price float64, salePrice *float64) bool {
	return salePrice != nil && *salePrice > 0 && *salePrice < price
}

// effectiveUnitPrice resolves the authoritative unit price at order time.
// Client-submitted prices are never consulted.
func effectiveUnitPrice(price float64, salePrice *float64) float64 {
	if isProductOnSale(price, salePrice) {
		return *salePrice
	}
	return price
}

func validateSalePrice(price float64, salePrice *float64) error {
	if salePrice == nil {
		return nil
	}
	if *salePrice <= 0 {
		return fmt.Errorf("salePrice must be greater than 0")
	}
	if *salePrice >= price {
		return fmt.Errorf("salePrice must be less than price")
	}
	return nil
}
