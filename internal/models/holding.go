package models

import (
	"time"
)

// Holding represents one row of a demat holding statement: a security
// position as reported by the depository participant. Rate and Value are
// the statement's own (static) price and valuation in rupees.
type Holding struct {
	CompanyName string  `json:"company_name"`
	ISIN        string  `json:"isin"`
	ScripType   string  `json:"scrip_type"`
	Balance     float64 `json:"balance"`
	Rate        float64 `json:"rate"`
	Value       float64 `json:"value"`
}

// Account is one demat account loaded from a statement upload.
type Account struct {
	ID          string    `json:"id"`
	PersonName  string    `json:"person_name"`
	DPID        string    `json:"dp_id,omitempty"`
	DisplayName string    `json:"display_name"`
	Holdings    []Holding `json:"holdings"`
	UploadedAt  time.Time `json:"uploaded_at"`
}
