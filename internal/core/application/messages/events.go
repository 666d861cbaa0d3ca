package messages

// Message names used as registry keys and publish topic suffixes.
const (
	AllocatedName   = "Allocated"
	DeallocatedName = "Deallocated"
	OutOfStockName  = "OutOfStock"
)

// Allocated records that an order line was allocated to a batch. Raised by
// the Product aggregate after a successful allocation.
type Allocated struct {
	eventMarker

	OrderID  string `json:"order_id"`
	SKU      string `json:"sku"`
	Qty      int    `json:"qty"`
	BatchRef string `json:"batchref"`
}

// Name returns the stable message name.
func (Allocated) Name() string { return AllocatedName }

// Deallocated records that an order line lost its allocation, typically
// because its batch shrank below the allocated quantity.
type Deallocated struct {
	eventMarker

	OrderID string `json:"order_id"`
	SKU     string `json:"sku"`
	Qty     int    `json:"qty"`
}

// Name returns the stable message name.
func (Deallocated) Name() string { return DeallocatedName }

// OutOfStock records that no batch could satisfy an order line for a SKU.
type OutOfStock struct {
	eventMarker

	SKU string `json:"sku"`
}

// Name returns the stable message name.
func (OutOfStock) Name() string { return OutOfStockName }
