package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"pinyinhub/model"
)

// SongRepository defines the interface for song data operations. It is
// the single source of truth the enrichment pipeline and the static
// mirror generator read from and write to.
type SongRepository interface {
	CreateSong(ctx context.Context, song *model.Song) (*model.Song, error)
	GetSongByID(ctx context.Context, id int64) (*model.Song, error)
	GetSongs(ctx context.Context, limit, offset int) ([]*model.Song, error)
	SearchSongs(ctx context.Context, query string) ([]*model.Song, error)
	UpdateSong(ctx context.Context, id int64, update *model.SongUpdate) (*model.Song, error)
	IncrementViews(ctx context.Context, id int64) error
	GetSongsByUserID(ctx context.Context, userID int64) ([]*model.Song, error)
	GetArtists(ctx context.Context) ([]*model.ArtistStat, error)
	GetSongsByArtist(ctx context.Context, name string) ([]*model.Song, error)
}

// mysqlSongRepository implements SongRepository for MySQL.
type mysqlSongRepository struct {
	db *sql.DB
}

// NewMySQLSongRepository creates a new mysqlSongRepository.
func NewMySQLSongRepository(db *sql.DB) SongRepository {
	return &mysqlSongRepository{db: db}
}

const songColumns = `id, user_id, title, title_chinese, artist, artist_chinese, lyrics,
	simplified_lyrics, pinyin_lyrics, english_lyrics, genre, youtube_link, spotify_link, views, created_at`

const (
	getSongByIDQuery = `SELECT ` + songColumns + ` FROM songs WHERE id = ?`

	getSongsQuery = `SELECT ` + songColumns + ` FROM songs ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`

	searchSongsQuery = `SELECT ` + songColumns + ` FROM songs
		WHERE LOWER(title) LIKE ? OR LOWER(title_chinese) LIKE ?
		   OR LOWER(artist) LIKE ? OR LOWER(artist_chinese) LIKE ?
		ORDER BY views DESC`

	// The counter moves inside the database so concurrent detail-page
	// fetches never lose an increment.
	incrementViewsQuery = `UPDATE songs SET views = views + 1 WHERE id = ?`

	getSongsByUserQuery = `SELECT ` + songColumns + ` FROM songs WHERE user_id = ? ORDER BY created_at DESC, id DESC`

	getArtistsQuery = `SELECT artist, MAX(artist_chinese), COUNT(*), COALESCE(SUM(views), 0)
		FROM songs GROUP BY artist ORDER BY COUNT(*) DESC`

	getSongsByArtistQuery = `SELECT ` + songColumns + ` FROM songs WHERE artist = ? OR artist_chinese = ? ORDER BY views DESC`
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSong(row rowScanner) (*model.Song, error) {
	song := &model.Song{}
	var titleChinese, artistChinese, simplified, genre, youtube, spotify sql.NullString
	err := row.Scan(&song.ID, &song.UserID, &song.Title, &titleChinese, &song.Artist, &artistChinese,
		&song.Lyrics, &simplified, &song.PinyinLyrics, &song.EnglishLyrics,
		&genre, &youtube, &spotify, &song.Views, &song.CreatedAt)
	if err != nil {
		return nil, err
	}
	song.TitleChinese = titleChinese.String
	song.ArtistChinese = artistChinese.String
	song.SimplifiedLyrics = simplified.String
	song.Genre = genre.String
	song.YoutubeLink = youtube.String
	song.SpotifyLink = spotify.String
	return song, nil
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// CreateSong inserts a new raw song row. Derived fields get their
// defaults here: simplified lyrics mirror the original text and the
// pinyin/english sequences start empty until the pipeline fills them.
func (r *mysqlSongRepository) CreateSong(ctx context.Context, song *model.Song) (*model.Song, error) {
	if song.SimplifiedLyrics == "" {
		song.SimplifiedLyrics = song.Lyrics
	}
	if song.PinyinLyrics == nil {
		song.PinyinLyrics = model.PinyinLines{}
	}
	if song.EnglishLyrics == nil {
		song.EnglishLyrics = model.StringLines{}
	}

	query := `INSERT INTO songs (user_id, title, title_chinese, artist, artist_chinese, lyrics,
		simplified_lyrics, pinyin_lyrics, english_lyrics, genre, youtube_link, spotify_link, views, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`
	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement for CreateSong: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	res, err := stmt.ExecContext(ctx, song.UserID, song.Title, nullable(song.TitleChinese),
		song.Artist, nullable(song.ArtistChinese), song.Lyrics, song.SimplifiedLyrics,
		song.PinyinLyrics, song.EnglishLyrics, nullable(song.Genre),
		nullable(song.YoutubeLink), nullable(song.SpotifyLink), now)
	if err != nil {
		return nil, fmt.Errorf("failed to execute CreateSong: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert ID for CreateSong: %w", err)
	}

	song.ID = id
	song.Views = 0
	song.CreatedAt = now
	return song, nil
}

// GetSongByID retrieves a song by its ID. Returns (nil, nil) when the
// song does not exist.
func (r *mysqlSongRepository) GetSongByID(ctx context.Context, id int64) (*model.Song, error) {
	song, err := scanSong(r.db.QueryRowContext(ctx, getSongByIDQuery, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Song not found
		}
		return nil, fmt.Errorf("failed to scan song by ID %d: %w", id, err)
	}
	return song, nil
}

// GetSongs returns a page of songs ordered newest-created-first.
func (r *mysqlSongRepository) GetSongs(ctx context.Context, limit, offset int) ([]*model.Song, error) {
	rows, err := r.db.QueryContext(ctx, getSongsQuery, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()
	return collectSongs(rows, "GetSongs")
}

// SearchSongs matches the query as a case-insensitive substring against
// title, titleChinese, artist and artistChinese. Results are ordered by
// descending view count, not creation time; browsing favors recency,
// search favors popularity.
func (r *mysqlSongRepository) SearchSongs(ctx context.Context, query string) ([]*model.Song, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	rows, err := r.db.QueryContext(ctx, searchSongsQuery, pattern, pattern, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search songs for %q: %w", query, err)
	}
	defer rows.Close()
	return collectSongs(rows, "SearchSongs")
}

// UpdateSong merges only the supplied fields into the song row and
// returns the updated row, or (nil, nil) if the id does not exist.
// Unspecified fields are never reset.
func (r *mysqlSongRepository) UpdateSong(ctx context.Context, id int64, update *model.SongUpdate) (*model.Song, error) {
	if update == nil || update.Empty() {
		return r.GetSongByID(ctx, id)
	}

	var set []string
	var args []interface{}
	add := func(column string, value interface{}) {
		set = append(set, column+" = ?")
		args = append(args, value)
	}

	if update.Title != nil {
		add("title", *update.Title)
	}
	if update.TitleChinese != nil {
		add("title_chinese", nullable(*update.TitleChinese))
	}
	if update.Artist != nil {
		add("artist", *update.Artist)
	}
	if update.ArtistChinese != nil {
		add("artist_chinese", nullable(*update.ArtistChinese))
	}
	if update.SimplifiedLyrics != nil {
		add("simplified_lyrics", *update.SimplifiedLyrics)
	}
	if update.PinyinLyrics != nil {
		add("pinyin_lyrics", *update.PinyinLyrics)
	}
	if update.EnglishLyrics != nil {
		add("english_lyrics", *update.EnglishLyrics)
	}
	if update.Genre != nil {
		add("genre", nullable(*update.Genre))
	}
	if update.YoutubeLink != nil {
		add("youtube_link", nullable(*update.YoutubeLink))
	}
	if update.SpotifyLink != nil {
		add("spotify_link", nullable(*update.SpotifyLink))
	}

	query := "UPDATE songs SET " + strings.Join(set, ", ") + " WHERE id = ?"
	args = append(args, id)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to execute UpdateSong for ID %d: %w", id, err)
	}

	// Re-read the row; a missing id surfaces as (nil, nil) here.
	return r.GetSongByID(ctx, id)
}

// IncrementViews atomically bumps the view counter by exactly 1. A
// missing id is a no-op, not an error.
func (r *mysqlSongRepository) IncrementViews(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, incrementViewsQuery, id)
	if err != nil {
		return fmt.Errorf("failed to increment views for song ID %d: %w", id, err)
	}
	return nil
}

// GetSongsByUserID returns all songs owned by a user, newest first.
func (r *mysqlSongRepository) GetSongsByUserID(ctx context.Context, userID int64) ([]*model.Song, error) {
	rows, err := r.db.QueryContext(ctx, getSongsByUserQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs for user ID %d: %w", userID, err)
	}
	defer rows.Close()
	return collectSongs(rows, "GetSongsByUserID")
}

// GetArtists aggregates songs per distinct artist string: song count and
// summed views, ordered by descending song count. Grouping uses the
// column collation's equality, which folds case the same way the rest of
// the store does.
func (r *mysqlSongRepository) GetArtists(ctx context.Context) ([]*model.ArtistStat, error) {
	rows, err := r.db.QueryContext(ctx, getArtistsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query artist aggregation: %w", err)
	}
	defer rows.Close()

	stats := make([]*model.ArtistStat, 0)
	for rows.Next() {
		stat := &model.ArtistStat{}
		var artistChinese sql.NullString
		if err := rows.Scan(&stat.Artist, &artistChinese, &stat.SongCount, &stat.TotalViews); err != nil {
			return nil, fmt.Errorf("failed to scan artist stat: %w", err)
		}
		stat.ArtistChinese = artistChinese.String
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in GetArtists: %w", err)
	}
	return stats, nil
}

// GetSongsByArtist returns songs whose artist or artistChinese exactly
// equals name, ordered by descending views.
func (r *mysqlSongRepository) GetSongsByArtist(ctx context.Context, name string) ([]*model.Song, error) {
	rows, err := r.db.QueryContext(ctx, getSongsByArtistQuery, name, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs for artist %q: %w", name, err)
	}
	defer rows.Close()
	return collectSongs(rows, "GetSongsByArtist")
}

func collectSongs(rows *sql.Rows, op string) ([]*model.Song, error) {
	songs := make([]*model.Song, 0)
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan song in %s: %w", op, err)
		}
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in %s: %w", op, err)
	}
	return songs, nil
}
