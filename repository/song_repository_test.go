package repository

import (
	"strings"
	"testing"
)

// collapse normalizes the whitespace of a query constant so assertions
// survive reformatting.
func collapse(q string) string {
	return strings.Join(strings.Fields(q), " ")
}

// The view counter must move inside the database in a single statement;
// a read-modify-write in Go would lose concurrent increments.
func TestIncrementViewsIsAtomic(t *testing.T) {
	q := collapse(incrementViewsQuery)
	if !strings.Contains(q, "SET views = views + 1") {
		t.Errorf("increment query = %q, want relative in-database increment", q)
	}
	if strings.Contains(q, "SELECT") {
		t.Errorf("increment query = %q, must not read the counter first", q)
	}
	if !strings.HasSuffix(q, "WHERE id = ?") {
		t.Errorf("increment query = %q, want single-row predicate", q)
	}
}

// Browsing is ordered by recency, with id as the tiebreaker so paging
// is stable when rows share a creation timestamp.
func TestGetSongsOrderedNewestFirst(t *testing.T) {
	q := collapse(getSongsQuery)
	if !strings.Contains(q, "ORDER BY created_at DESC, id DESC") {
		t.Errorf("list query = %q, want newest-first order", q)
	}
	if !strings.Contains(q, "LIMIT ? OFFSET ?") {
		t.Errorf("list query = %q, want limit/offset pagination", q)
	}

	if got := collapse(getSongsByUserQuery); !strings.Contains(got, "ORDER BY created_at DESC, id DESC") {
		t.Errorf("user songs query = %q, want newest-first order", got)
	}
}

// Search ranks by popularity, not recency, across all four name fields
// case-insensitively.
func TestSearchSongsOrderedByViews(t *testing.T) {
	q := collapse(searchSongsQuery)
	if !strings.HasSuffix(q, "ORDER BY views DESC") {
		t.Errorf("search query = %q, want views-descending order", q)
	}
	for _, column := range []string{"title", "title_chinese", "artist", "artist_chinese"} {
		if !strings.Contains(q, "LOWER("+column+") LIKE ?") {
			t.Errorf("search query does not match %s case-insensitively: %q", column, q)
		}
	}
}

func TestGetArtistsAggregation(t *testing.T) {
	q := collapse(getArtistsQuery)
	if !strings.Contains(q, "GROUP BY artist") {
		t.Errorf("artists query = %q, want per-artist grouping", q)
	}
	if !strings.Contains(q, "COALESCE(SUM(views), 0)") {
		t.Errorf("artists query = %q, want null-safe view totals", q)
	}
	if !strings.HasSuffix(q, "ORDER BY COUNT(*) DESC") {
		t.Errorf("artists query = %q, want song-count-descending order", q)
	}
}

func TestGetSongsByArtistMatchesEitherLanguage(t *testing.T) {
	q := collapse(getSongsByArtistQuery)
	if !strings.Contains(q, "artist = ? OR artist_chinese = ?") {
		t.Errorf("artist songs query = %q, want exact match on either name field", q)
	}
	if !strings.HasSuffix(q, "ORDER BY views DESC") {
		t.Errorf("artist songs query = %q, want views-descending order", q)
	}
}
