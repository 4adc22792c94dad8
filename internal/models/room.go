package models

import "time"

// Room is a bookable space from the campus catalog.
type Room struct {
	ID        string    `yaml:"id"`
	Name      string    `yaml:"name"`
	Building  string    `yaml:"building"`
	Capacity  int64     `yaml:"capacity"`
	SortOrder int64     `yaml:"sort_order" json:"sort_order"`
	IsActive  bool      `yaml:"is_active" json:"is_active"`
	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updated_at"`
}
