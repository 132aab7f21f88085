// blog_post.go defines the BlogPost model and the enriched variant that carries the
// country details attached at read time.
package models

import "time"

// BlogPost represents a travel journal entry tied to a visited country
type BlogPost struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	CountryName string    `json:"country_name"`
	DateOfVisit time.Time `json:"date_of_visit"`
	UserID      string    `json:"user_id"`
	Username    string    `json:"author,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CountryDetails is the country information attached to a post on read.
// All fields may be null when the upstream lookup fails.
type CountryDetails struct {
	Flag     *CountryFlag     `json:"flag"`
	Currency *CountryCurrency `json:"currency"`
	Capital  *string          `json:"capital"`
}

// CountryFlag holds flag image URLs and alt text
type CountryFlag struct {
	PNG string `json:"png"`
	SVG string `json:"svg"`
	Alt string `json:"alt,omitempty"`
}

// CountryCurrency is one currency of a country
type CountryCurrency struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Symbol string `json:"symbol,omitempty"`
}

// EnrichedPost is a blog post with its country details resolved
type EnrichedPost struct {
	BlogPost
	Country CountryDetails `json:"country"`
}
