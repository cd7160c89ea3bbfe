package models

import "time"

// Car mirrors the cars table. The table is provisioned at startup; no
// handler reads or writes it yet.
type Car struct {
	ID          int64     `db:"id" json:"id"`
	Make        string    `db:"make" json:"make"`
	Model       string    `db:"model" json:"model"`
	Year        int       `db:"year" json:"year"`
	Price       string    `db:"price" json:"price"` // NUMERIC(10,2), kept as text to avoid float rounding
	Description *string   `db:"description" json:"description,omitempty"`
	ImageURL    *string   `db:"image_url" json:"image_url,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
