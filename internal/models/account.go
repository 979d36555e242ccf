// Package models defines the account record tracked by the system and its
// supporting value types.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status reflects the last successfully completed lifecycle transition.
type Status string

const (
	StatusActive  Status = "active"
	StatusLocked  Status = "locked"
	StatusExpired Status = "expired"
)

// NeverToken is the serialized form of an absent expiry, kept identical to
// the value the authority-side tooling and older snapshots use.
const NeverToken = "never"

const dateLayout = "2006-01-02"

// Expiry is either "never" or an absolute calendar date with no time
// component. The zero value is "never".
type Expiry struct {
	date time.Time
}

// Never returns an Expiry with no date set.
func Never() Expiry {
	return Expiry{}
}

// OnDate returns an Expiry pinned to the calendar date of t (UTC).
func OnDate(t time.Time) Expiry {
	u := t.UTC()
	return Expiry{date: time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)}
}

// IsNever reports whether no expiry date is set.
func (e Expiry) IsNever() bool {
	return e.date.IsZero()
}

// Date returns the expiry date. Only meaningful when IsNever is false.
func (e Expiry) Date() time.Time {
	return e.date
}

// String renders the expiry as "never" or "YYYY-MM-DD".
func (e Expiry) String() string {
	if e.IsNever() {
		return NeverToken
	}
	return e.date.Format(dateLayout)
}

// ParseExpiry parses the "never" token or an ISO calendar date.
func ParseExpiry(s string) (Expiry, error) {
	if s == NeverToken {
		return Never(), nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Expiry{}, fmt.Errorf("invalid expiry %q: %w", s, err)
	}
	return OnDate(t), nil
}

func (e Expiry) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

func (e *Expiry) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseExpiry(s)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// Account is the unit of tracked state: one record per username.
type Account struct {
	Username  string    `json:"username"`
	Secret    string    `json:"secret"`
	Expiry    Expiry    `json:"expiry"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a copy so store internals never alias caller-held records.
func (a *Account) Clone() *Account {
	c := *a
	return &c
}
