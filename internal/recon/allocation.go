package recon

// Allocation is the computed shipment quantity and resulting stock on hand
// for one matched part.
type Allocation struct {
	QtyToSend     int
	CalculatedSoH int
}

// Allocate computes how much of the requested quantity can be shipped from
// the available stock, and the stock on hand remaining once the shipment is
// notionally allocated.
//
// QtyToSend never exceeds the available stock and CalculatedSoH never goes
// negative: a part with zero stock still matches, it just ships nothing.
func Allocate(qtyRequired, available int) Allocation {
	if available < 0 {
		available = 0
	}
	if qtyRequired < 0 {
		qtyRequired = 0
	}

	toSend := qtyRequired
	if available < toSend {
		toSend = available
	}

	return Allocation{
		QtyToSend:     toSend,
		CalculatedSoH: available - toSend,
	}
}
