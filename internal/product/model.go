package product

import "time"

type Product struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	ImageURL      string    `json:"imageUrl"`
	Price         float64   `json:"price"`
	Description   string    `json:"description"`
	Quantity      int       `json:"quantity"`
	CreatedAt     time.Time `json:"createdAt"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
}
