// Package quotes serves the motivational quote of the day.
package quotes

import (
	"hash/fnv"
	"sync"
	"time"
)

// Quote is a quotation with its author.
type Quote struct {
	ID      string   `json:"id"`
	Content string   `json:"content"`
	Author  string   `json:"author"`
	Tags    []string `json:"tags,omitempty"`
}

// Catalog holds the seeded quote list. The daily pick is a deterministic
// function of (user, date) so every client of the same user sees the same
// quote all day without any storage.
type Catalog struct {
	mu     sync.RWMutex
	quotes []Quote
}

// NewCatalog constructs a catalog populated with the seed list.
func NewCatalog() *Catalog {
	c := &Catalog{}
	c.seed()
	return c
}

func (c *Catalog) seed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotes = []Quote{
		{ID: "q-001", Content: "We are what we repeatedly do. Excellence, then, is not an act, but a habit.", Author: "Will Durant", Tags: []string{"habit"}},
		{ID: "q-002", Content: "The secret of getting ahead is getting started.", Author: "Mark Twain", Tags: []string{"start"}},
		{ID: "q-003", Content: "Success is the sum of small efforts, repeated day in and day out.", Author: "Robert Collier", Tags: []string{"consistency"}},
		{ID: "q-004", Content: "It does not matter how slowly you go as long as you do not stop.", Author: "Confucius", Tags: []string{"persistence"}},
		{ID: "q-005", Content: "Motivation is what gets you started. Habit is what keeps you going.", Author: "Jim Ryun", Tags: []string{"habit"}},
		{ID: "q-006", Content: "A journey of a thousand miles begins with a single step.", Author: "Lao Tzu", Tags: []string{"start"}},
		{ID: "q-007", Content: "Discipline is choosing between what you want now and what you want most.", Author: "Abraham Lincoln", Tags: []string{"discipline"}},
		{ID: "q-008", Content: "You'll never change your life until you change something you do daily.", Author: "John C. Maxwell", Tags: []string{"consistency"}},
		{ID: "q-009", Content: "Small daily improvements over time lead to stunning results.", Author: "Robin Sharma", Tags: []string{"consistency"}},
		{ID: "q-010", Content: "Don't count the days, make the days count.", Author: "Muhammad Ali", Tags: []string{"persistence"}},
		{ID: "q-011", Content: "The best time to plant a tree was 20 years ago. The second best time is now.", Author: "Chinese proverb", Tags: []string{"start"}},
		{ID: "q-012", Content: "Fall seven times, stand up eight.", Author: "Japanese proverb", Tags: []string{"persistence"}},
	}
}

// DailyQuote returns the quote of the day for the user.
func (c *Catalog) DailyQuote(userID string, date time.Time) Quote {
	c.mu.RLock()
	defer c.mu.RUnlock()

	h := fnv.New32a()
	h.Write([]byte(userID))
	h.Write([]byte(date.UTC().Format("2006-01-02")))
	return c.quotes[int(h.Sum32())%len(c.quotes)]
}

// All returns a copy of the catalog.
func (c *Catalog) All() []Quote {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Quote, len(c.quotes))
	copy(out, c.quotes)
	return out
}
