package util

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// NextMarketClose predicts when fresh end-of-day prices next become
// available on the Indian exchanges. It handles timezone conversion and
// business day logic, returning the next weekday 15:30 IST close in UTC.
func NextMarketClose(input time.Time) time.Time {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		log.Errorf("Failed to load location 'Asia/Kolkata': %v. Falling back to UTC.", err)
		loc = time.UTC
	}
	nowIST := input.In(loc)

	// Start with today at 3:30 PM IST
	next := time.Date(nowIST.Year(), nowIST.Month(), nowIST.Day(), 15, 30, 0, 0, loc)

	// If it's already past the close, move to the next day
	if nowIST.After(next) {
		next = next.AddDate(0, 0, 1)
	}

	// Skip weekends to find the next trading day
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}

	return next.UTC()
}
