package domain

import "time"

// MaxEfficiency is the upper bound of a panel efficiency rating, in percent.
const MaxEfficiency = 100

// Panel is a solar panel registered under a single owner. Energy figures are kWh.
type Panel struct {
	ID           uint64    `json:"id"`
	Owner        AccountID `json:"owner"`
	Capacity     int64     `json:"capacity"`
	Location     string    `json:"location"`
	Produced     int64     `json:"produced"`
	Consumed     int64     `json:"consumed"`
	Stored       int64     `json:"stored"`
	Efficiency   int       `json:"efficiency"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Net is the energy the panel contributes to its owner's balance.
func (p Panel) Net() int64 {
	return p.Produced - p.Consumed + p.Stored
}

// AddEnergy returns a+b. ok is false when the sum does not fit in an int64.
func AddEnergy(a, b int64) (sum int64, ok bool) {
	sum = a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}

// TotalNet sums the net energy of panels. ok is false on overflow.
func TotalNet(panels []*Panel) (total int64, ok bool) {
	for _, p := range panels {
		if total, ok = AddEnergy(total, p.Net()); !ok {
			return 0, false
		}
	}
	return total, true
}

// ValidateReading checks the static bounds of a panel registration.
func ValidateReading(capacity, produced, consumed int64, efficiency int) error {
	switch {
	case capacity <= 0:
		return ErrInvalidReading
	case produced < 0 || consumed < 0:
		return ErrInvalidReading
	case efficiency < 0 || efficiency > MaxEfficiency:
		return ErrInvalidReading
	}
	return nil
}
