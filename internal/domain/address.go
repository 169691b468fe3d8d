package domain

import "time"

// Address is a stored shipping address owned by a user.
type Address struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Street       string    `json:"street"`
	BuildingName string    `json:"building_name,omitempty"`
	City         string    `json:"city"`
	State        string    `json:"state,omitempty"`
	Country      string    `json:"country"`
	Pincode      string    `json:"pincode"`
	CreatedAt    time.Time `json:"created_at"`
}

// AddressSnapshot is the address content frozen into an order, so later
// edits to the stored address do not rewrite order history.
type AddressSnapshot struct {
	Street       string `json:"street"`
	BuildingName string `json:"building_name,omitempty"`
	City         string `json:"city"`
	State        string `json:"state,omitempty"`
	Country      string `json:"country"`
	Pincode      string `json:"pincode"`
}

// Snapshot copies the address content.
func (a *Address) Snapshot() AddressSnapshot {
	return AddressSnapshot{
		Street:       a.Street,
		BuildingName: a.BuildingName,
		City:         a.City,
		State:        a.State,
		Country:      a.Country,
		Pincode:      a.Pincode,
	}
}
