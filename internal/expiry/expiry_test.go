package expiry

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/models"
	"github.com/stretchr/testify/assert"
)

func withFixedNow(t *testing.T, now time.Time) {
	t.Helper()
	orig := timeNow
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = orig })
}

func TestInitial(t *testing.T) {
	withFixedNow(t, time.Date(2024, 5, 1, 15, 4, 5, 0, time.UTC))

	assert.Equal(t, "2024-05-31", Initial(30).String())
	assert.True(t, Initial(0).IsNever())
	assert.True(t, Initial(-3).IsNever())
}

func TestRenewal_FromNever(t *testing.T) {
	withFixedNow(t, time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC))

	got := Renewal(models.Never(), 15)
	assert.Equal(t, "2024-05-16", got.String())
}

func TestRenewal_FromDate(t *testing.T) {
	// Arithmetic on the stored date, regardless of today's date.
	withFixedNow(t, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))

	cur, err := models.ParseExpiry("2024-05-01")
	assert.NoError(t, err)

	got := Renewal(cur, 10)
	assert.Equal(t, "2024-05-11", got.String())
}

func TestForced_IsYesterday(t *testing.T) {
	withFixedNow(t, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))

	assert.Equal(t, "2024-02-29", Forced().String())
}
