package domain

import "time"

// SavedCard is the persisted form of a drawn card.
type SavedCard struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Orientation Orientation `json:"orientation"`
	Position    string      `json:"position"`
}

// SavedReading is a snapshot of a completed reading session. It is created
// only on an explicit save and deleted only by its owner.
type SavedReading struct {
	ID             string      `json:"id"`
	UserID         string      `json:"userId"`
	Question       string      `json:"question"`
	SpreadName     string      `json:"spreadName"`
	SpreadNumCards int         `json:"spreadNumCards"`
	Cards          []SavedCard `json:"cards"`
	Interpretation string      `json:"interpretation"`
	CreatedAt      time.Time   `json:"createdAt"`
}
