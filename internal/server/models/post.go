package models

import (
	"slices"
	"time"
)

// Categories is the fixed set of post categories.
var Categories = []string{
	"أخري",
	"أدوات تعليمية",
	"إكسسوارت",
	"ترفيه و تسلية",
	"كتب",
	"شنط و أحذية",
	"ديكور وأثاث",
	"أحذية",
	"أجهزة منزلية",
	"أدوات رياضية",
	"ملابس",
}

// ValidCategory reports whether c is one of Categories.
func ValidCategory(c string) bool {
	return slices.Contains(Categories, c)
}

// MaxPostImages is the number of images a post may carry.
const MaxPostImages = 3

// Image is a file stored on the media host.
type Image struct {
	PublicID string `json:"publicId"`
	URL      string `json:"url"`
}

// Author is the public view of a post owner.
type Author struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Photo string `json:"photo,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Post is a feed entry owned by a user.
type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Content   string    `json:"content"`
	Location  string    `json:"location"`
	Category  string    `json:"category"`
	Price     float64   `json:"price"`
	Images    []Image   `json:"images"`
	CreatedAt time.Time `json:"createdAt"`

	// User is populated on reads.
	User *Author `json:"user,omitempty"`
}

// PostUpdate holds the fields a PATCH may change; nil means unchanged.
type PostUpdate struct {
	Content  *string  `json:"content"`
	Location *string  `json:"location"`
	Category *string  `json:"category"`
	Price    *float64 `json:"price"`
}

// Empty reports whether the update changes nothing.
func (u PostUpdate) Empty() bool {
	return u.Content == nil && u.Location == nil && u.Category == nil && u.Price == nil
}
