package credit

import "time"

// Clock supplies the current time to the cache and the ledger.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// UsageDate truncates t to the start of its UTC calendar day. Daily free usage is keyed by this value.
func UsageDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
