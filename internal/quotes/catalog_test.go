package quotes

import (
	"testing"
	"time"
)

func TestDailyQuoteStableForUserAndDate(t *testing.T) {
	catalog := NewCatalog()
	date := time.Date(2026, time.March, 7, 14, 30, 0, 0, time.UTC)

	first := catalog.DailyQuote("user-1", date)
	second := catalog.DailyQuote("user-1", date.Add(5*time.Hour))

	if first.ID != second.ID {
		t.Fatalf("expected stable quote within a day, got %q then %q", first.ID, second.ID)
	}
}

func TestDailyQuoteRotatesAcrossDays(t *testing.T) {
	catalog := NewCatalog()
	date := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	seen := map[string]struct{}{}
	for i := 0; i < 30; i++ {
		quote := catalog.DailyQuote("user-1", date.AddDate(0, 0, i))
		seen[quote.ID] = struct{}{}
	}
	if len(seen) < 2 {
		t.Fatalf("expected quote rotation across days, saw %d distinct quotes", len(seen))
	}
}

func TestDailyQuoteDiffersBetweenUsers(t *testing.T) {
	catalog := NewCatalog()
	date := time.Date(2026, time.March, 7, 0, 0, 0, 0, time.UTC)

	distinct := false
	for i := 0; i < 20 && !distinct; i++ {
		a := catalog.DailyQuote("user-a", date.AddDate(0, 0, i))
		b := catalog.DailyQuote("user-b", date.AddDate(0, 0, i))
		if a.ID != b.ID {
			distinct = true
		}
	}
	if !distinct {
		t.Fatal("expected different users to see different quotes on at least one day")
	}
}

func TestAllReturnsSeededQuotes(t *testing.T) {
	catalog := NewCatalog()
	all := catalog.All()
	if len(all) == 0 {
		t.Fatal("expected seeded quotes")
	}
	for _, quote := range all {
		if quote.ID == "" || quote.Content == "" {
			t.Fatalf("incomplete quote %+v", quote)
		}
	}
}
