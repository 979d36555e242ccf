// Package expiry implements the account expiry date policy: pure calendar
// arithmetic with no side effects.
package expiry

import (
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/models"
)

// timeNow is a seam for tests.
var timeNow = time.Now

func today() time.Time {
	n := timeNow().UTC()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

// Initial returns the expiry for a freshly created account. A non-positive
// day count means the account never expires.
func Initial(deltaDays int) models.Expiry {
	if deltaDays <= 0 {
		return models.Never()
	}
	return models.OnDate(today().AddDate(0, 0, deltaDays))
}

// Renewal extends the current expiry by deltaDays. An account with no expiry
// is extended from today. Renewing from a stored date may land in the past;
// that is the intended behavior (the renewal buys days relative to the old
// expiry, not relative to now).
func Renewal(current models.Expiry, deltaDays int) models.Expiry {
	if current.IsNever() {
		return models.OnDate(today().AddDate(0, 0, deltaDays))
	}
	return models.OnDate(current.Date().AddDate(0, 0, deltaDays))
}

// Forced returns yesterday's date, used to immediately invalidate access
// through the authority's own expiry check.
func Forced() models.Expiry {
	return models.OnDate(today().AddDate(0, 0, -1))
}
