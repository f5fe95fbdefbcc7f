package model

// ArtistStat is one row of the per-artist aggregation: a representative
// artist name pair plus song and view totals. Grouping is by the exact
// artist string as the database collation compares it; stylistic name
// variants are not normalized.
type ArtistStat struct {
	Artist        string `json:"artist"`
	ArtistChinese string `json:"artistChinese,omitempty"`
	SongCount     int64  `json:"songCount"`
	TotalViews    int64  `json:"totalViews"`
}
