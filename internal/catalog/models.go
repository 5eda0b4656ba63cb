// Package catalog serves the public marketing content: documentation
// service offerings and blog posts. Nothing here touches PHI.
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// FAQ is a question/answer pair attached to a service offering.
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Service describes one medical documentation offering.
type Service struct {
	ID               uuid.UUID `json:"id"`
	Slug             string    `json:"slug"`
	Title            string    `json:"title"`
	ShortDescription string    `json:"shortDescription"`
	FullDescription  string    `json:"fullDescription"`
	Features         []string  `json:"features"`
	BasePriceUSD     int       `json:"basePriceInUSD"`
	Duration         string    `json:"duration"`
	Category         string    `json:"category"`
	Icon             string    `json:"icon"`
	FAQs             []FAQ     `json:"faqs"`
}

// BlogPost is a published article.
type BlogPost struct {
	ID          uuid.UUID `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Excerpt     string    `json:"excerpt"`
	ContentHTML string    `json:"contentHTML"`
	Category    string    `json:"category"`
	Tags        []string  `json:"tags"`
	AuthorName  string    `json:"authorName"`
	PublishedAt time.Time `json:"publishedAt"`
	ReadTime    string    `json:"readTime"`
}

// PostFilter narrows blog listings. Query matches title or excerpt,
// case-insensitively.
type PostFilter struct {
	Category string
	Query    string
	Limit    int
}

const (
	// DefaultPostLimit applies when a listing request names no limit.
	DefaultPostLimit = 20
	// MaxPostLimit caps a single listing page.
	MaxPostLimit = 100
)
