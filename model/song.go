package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Genres lists the accepted genre values for a song.
var Genres = []string{"pop", "rock", "folk", "rap", "classical", "other"}

// IsValidGenre reports whether g is one of the accepted genre values.
func IsValidGenre(g string) bool {
	for _, v := range Genres {
		if v == g {
			return true
		}
	}
	return false
}

// PinyinLine is one source line of lyrics with its pinyin rendering.
// Pinyin is nil for lines that contain no Chinese content.
type PinyinLine struct {
	Pinyin  *string `json:"pinyin"`
	Chinese string  `json:"chinese"`
}

// PinyinLines is the pinyin transliteration of a song, one entry per
// source line in source order. It is stored as a JSON column; historical
// rows may hold a JSON-encoded string instead of a native array, so
// decoding normalizes both shapes and degrades to an empty sequence
// rather than failing.
type PinyinLines []PinyinLine

// NormalizePinyinLines resolves the structured-vs-legacy-encoded shapes
// of a stored pinyin column. Unparseable data yields an empty sequence.
func NormalizePinyinLines(data []byte) PinyinLines {
	if len(data) == 0 {
		return PinyinLines{}
	}
	var lines []PinyinLine
	if err := json.Unmarshal(data, &lines); err == nil {
		if lines == nil {
			return PinyinLines{}
		}
		return lines
	}
	// Legacy rows double-encode the array as a JSON string.
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if err := json.Unmarshal([]byte(s), &lines); err == nil && lines != nil {
			return lines
		}
	}
	return PinyinLines{}
}

// Scan implements sql.Scanner.
func (p *PinyinLines) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*p = PinyinLines{}
	case []byte:
		*p = NormalizePinyinLines(v)
	case string:
		*p = NormalizePinyinLines([]byte(v))
	default:
		return fmt.Errorf("unsupported type %T for PinyinLines", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (p PinyinLines) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// StringLines is a line-aligned sequence of translated lyric lines,
// stored as a JSON column with the same legacy-shape tolerance as
// PinyinLines.
type StringLines []string

// NormalizeStringLines resolves the structured-vs-legacy-encoded shapes
// of a stored english-lyrics column. Unparseable data yields an empty
// sequence.
func NormalizeStringLines(data []byte) StringLines {
	if len(data) == 0 {
		return StringLines{}
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err == nil {
		if lines == nil {
			return StringLines{}
		}
		return lines
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if err := json.Unmarshal([]byte(s), &lines); err == nil && lines != nil {
			return lines
		}
	}
	return StringLines{}
}

// Scan implements sql.Scanner.
func (l *StringLines) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = StringLines{}
	case []byte:
		*l = NormalizeStringLines(v)
	case string:
		*l = NormalizeStringLines([]byte(v))
	default:
		return fmt.Errorf("unsupported type %T for StringLines", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (l StringLines) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Song represents a bilingual song page in the catalog.
type Song struct {
	ID               int64       `json:"id"`
	UserID           int64       `json:"userId"`
	Title            string      `json:"title"`
	TitleChinese     string      `json:"titleChinese,omitempty"`
	Artist           string      `json:"artist"`
	ArtistChinese    string      `json:"artistChinese,omitempty"`
	Lyrics           string      `json:"lyrics"`           // Original submitted text, immutable after creation
	SimplifiedLyrics string      `json:"simplifiedLyrics"` // Defaults to Lyrics, overwritten by enrichment
	PinyinLyrics     PinyinLines `json:"pinyinLyrics"`
	EnglishLyrics    StringLines `json:"englishLyrics"`
	Genre            string      `json:"genre,omitempty"`
	YoutubeLink      string      `json:"youtubeLink,omitempty"`
	SpotifyLink      string      `json:"spotifyLink,omitempty"`
	Views            int64       `json:"views"`
	CreatedAt        time.Time   `json:"createdAt"`
}

// Enriched reports whether the pipeline has populated the derived lyric
// fields.
func (s *Song) Enriched() bool {
	return len(s.PinyinLyrics) > 0 && len(s.EnglishLyrics) > 0
}

// SongUpdate describes a partial update of a song row. Nil fields are
// left untouched by the repository.
type SongUpdate struct {
	Title            *string
	TitleChinese     *string
	Artist           *string
	ArtistChinese    *string
	SimplifiedLyrics *string
	PinyinLyrics     *PinyinLines
	EnglishLyrics    *StringLines
	Genre            *string
	YoutubeLink      *string
	SpotifyLink      *string
}

// Empty reports whether the update carries no changes.
func (u *SongUpdate) Empty() bool {
	return u.Title == nil && u.TitleChinese == nil && u.Artist == nil &&
		u.ArtistChinese == nil && u.SimplifiedLyrics == nil &&
		u.PinyinLyrics == nil && u.EnglishLyrics == nil &&
		u.Genre == nil && u.YoutubeLink == nil && u.SpotifyLink == nil
}

// StrPtr is a convenience helper for building partial updates.
func StrPtr(s string) *string { return &s }
