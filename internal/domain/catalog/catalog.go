package catalog

import "time"

// Author is a book author.
type Author struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Category is a browsing category.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Publisher is a publishing house.
type Publisher struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
