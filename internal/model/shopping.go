package model

import "time"

// ShoppingItem is one line on the shopping list. A nil Quantity means one
// unit of unspecified size.
type ShoppingItem struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Quantity  *string   `json:"quantity"`
	Category  *Category `json:"category"`
	Purchased bool      `json:"purchased"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
