package enums

// StockStatus is the derived availability label shown to operators.
type StockStatus string

const (
	StockStatusInStock    StockStatus = "IN_STOCK"
	StockStatusLowStock   StockStatus = "LOW_STOCK"
	StockStatusOutOfStock StockStatus = "OUT_OF_STOCK"
)

// StockStatusFor derives the label from a stock count and reorder threshold.
func StockStatusFor(stock, threshold int) StockStatus {
	switch {
	case stock <= 0:
		return StockStatusOutOfStock
	case stock <= threshold:
		return StockStatusLowStock
	default:
		return StockStatusInStock
	}
}
