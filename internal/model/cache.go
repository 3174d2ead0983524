package model

import "time"

// CachedPage is one crawled page held in the page cache.
type CachedPage struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

// PageCache is a cached crawl of a company website.
type PageCache struct {
	ID        string       `json:"id"`
	Website   string       `json:"website"`
	Pages     []CachedPage `json:"pages"`
	CrawledAt time.Time    `json:"crawled_at"`
	ExpiresAt time.Time    `json:"expires_at"`
}
