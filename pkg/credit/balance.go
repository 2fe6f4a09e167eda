package credit

import "math"

// Balance is a user's spendable position for one calendar day.
type Balance struct {
	DailyLimit  int
	UsedToday   int
	PaidCredits int
}

// FreeCredits is what remains of today's allowance, floored at zero.
func (b Balance) FreeCredits() int {
	free := b.DailyLimit - b.UsedToday
	if free < 0 {
		return 0
	}
	return free
}

func (b Balance) Total() int {
	return b.FreeCredits() + b.PaidCredits
}

// Allocation splits a cost across the two pools.
type Allocation struct {
	Free int
	Paid int
}

func (a Allocation) Total() int {
	return a.Free + a.Paid
}

// Allocate draws cost from the free pool first and the paid pool for the remainder.
func Allocate(b Balance, cost int) (Allocation, error) {
	if cost <= 0 {
		return Allocation{}, ErrInvalidTool
	}

	available := b.Total()
	if available < cost {
		return Allocation{}, &InsufficientCreditsError{Required: cost, Available: available}
	}

	free := b.FreeCredits()
	if free > cost {
		free = cost
	}
	return Allocation{Free: free, Paid: cost - free}, nil
}

// CreditCost returns ceil(base * multiplier). Unknown or unpriced tools cost 0.
// The product is rounded to 6 decimals first so float noise (10 * 1.1) cannot add a credit.
// Base prices may be fractional; only the final cost is a whole number of credits.
func CreditCost(base float64, multiplier float64) int {
	if base <= 0 || math.IsNaN(base) || math.IsInf(base, 0) {
		return 0
	}
	raw := base * multiplier
	raw = math.Round(raw*1e6) / 1e6
	return int(math.Ceil(raw))
}
