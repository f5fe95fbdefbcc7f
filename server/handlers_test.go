package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"pinyinhub/core/auth"
	"pinyinhub/core/enrich"
	"pinyinhub/core/translate"
	"pinyinhub/model"
)

// fakeSongRepo is an in-memory SongRepository for handler tests.
type fakeSongRepo struct {
	songs map[int64]*model.Song
	order []int64

	incremented []int64
	nextID      int64
}

func newFakeSongRepo(songs ...*model.Song) *fakeSongRepo {
	repo := &fakeSongRepo{songs: make(map[int64]*model.Song), nextID: 100}
	for _, s := range songs {
		repo.songs[s.ID] = s
		repo.order = append(repo.order, s.ID)
	}
	return repo
}

func (r *fakeSongRepo) CreateSong(ctx context.Context, song *model.Song) (*model.Song, error) {
	r.nextID++
	copied := *song
	copied.ID = r.nextID
	copied.CreatedAt = time.Now()
	if copied.SimplifiedLyrics == "" {
		copied.SimplifiedLyrics = copied.Lyrics
	}
	r.songs[copied.ID] = &copied
	r.order = append(r.order, copied.ID)
	return &copied, nil
}

func (r *fakeSongRepo) GetSongByID(ctx context.Context, id int64) (*model.Song, error) {
	return r.songs[id], nil
}

func (r *fakeSongRepo) GetSongs(ctx context.Context, limit, offset int) ([]*model.Song, error) {
	var out []*model.Song
	for _, id := range r.order {
		out = append(out, r.songs[id])
	}
	if offset >= len(out) {
		return []*model.Song{}, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeSongRepo) SearchSongs(ctx context.Context, query string) ([]*model.Song, error) {
	var out []*model.Song
	for _, id := range r.order {
		s := r.songs[id]
		if strings.Contains(strings.ToLower(s.Title), strings.ToLower(query)) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSongRepo) UpdateSong(ctx context.Context, id int64, update *model.SongUpdate) (*model.Song, error) {
	song, ok := r.songs[id]
	if !ok {
		return nil, nil
	}
	copied := *song
	if update.TitleChinese != nil {
		copied.TitleChinese = *update.TitleChinese
	}
	if update.ArtistChinese != nil {
		copied.ArtistChinese = *update.ArtistChinese
	}
	if update.SimplifiedLyrics != nil {
		copied.SimplifiedLyrics = *update.SimplifiedLyrics
	}
	if update.PinyinLyrics != nil {
		copied.PinyinLyrics = *update.PinyinLyrics
	}
	if update.EnglishLyrics != nil {
		copied.EnglishLyrics = *update.EnglishLyrics
	}
	r.songs[id] = &copied
	return &copied, nil
}

func (r *fakeSongRepo) IncrementViews(ctx context.Context, id int64) error {
	r.incremented = append(r.incremented, id)
	r.songs[id].Views++
	return nil
}

func (r *fakeSongRepo) GetSongsByUserID(ctx context.Context, userID int64) ([]*model.Song, error) {
	var out []*model.Song
	for _, id := range r.order {
		if r.songs[id].UserID == userID {
			out = append(out, r.songs[id])
		}
	}
	return out, nil
}

func (r *fakeSongRepo) GetArtists(ctx context.Context) ([]*model.ArtistStat, error) {
	return []*model.ArtistStat{{Artist: "Teresa Teng", ArtistChinese: "邓丽君", SongCount: 2, TotalViews: 10}}, nil
}

func (r *fakeSongRepo) GetSongsByArtist(ctx context.Context, name string) ([]*model.Song, error) {
	var out []*model.Song
	for _, id := range r.order {
		s := r.songs[id]
		if s.Artist == name || s.ArtistChinese == name {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeTranslator struct{}

func (fakeTranslator) EnrichLyrics(ctx context.Context, rawLyrics string) (*translate.EnrichResult, error) {
	lines := strings.Split(rawLyrics, "\n")
	result := &translate.EnrichResult{SimplifiedLyrics: rawLyrics}
	for _, line := range lines {
		result.PinyinLyrics = append(result.PinyinLyrics, model.PinyinLine{Pinyin: model.StrPtr("pin"), Chinese: line})
		result.EnglishLyrics = append(result.EnglishLyrics, "english")
	}
	return result, nil
}

func (fakeTranslator) BidirectionalTranslate(ctx context.Context, title, artist string) (*translate.BidirectionalResult, error) {
	return &translate.BidirectionalResult{
		TitleChinese: "中文标题", TitleEnglish: title,
		ArtistChinese: "中文艺术家", ArtistEnglish: artist,
	}, nil
}

func newTestHandler(repo *fakeSongRepo) *APIHandler {
	pipeline := enrich.NewPipeline(repo, fakeTranslator{}, nil, time.Second)
	return NewAPIHandler(repo, nil, pipeline, nil)
}

func newTestRouter(h *APIHandler) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/api/songs", h.GetSongsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/songs", h.AuthMiddleware(h.CreateSongHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/songs/search", h.SearchSongsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/songs/{id:[0-9]+}", h.GetSongHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/artists", h.GetArtistsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/artists/{name}/songs", h.GetArtistSongsHandler).Methods(http.MethodGet)
	return router
}

func sampleSong() *model.Song {
	return &model.Song{
		ID:            1,
		UserID:        5,
		Title:         "The Moon Represents My Heart",
		TitleChinese:  "月亮代表我的心",
		Artist:        "Teresa Teng",
		ArtistChinese: "邓丽君",
		Lyrics:        "你问我爱你有多深",
		Views:         3,
		CreatedAt:     time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestGetSongsHandler(t *testing.T) {
	router := newTestRouter(newTestHandler(newFakeSongRepo(sampleSong())))

	req := httptest.NewRequest(http.MethodGet, "/api/songs", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var songs []*model.Song
	if err := json.Unmarshal(rec.Body.Bytes(), &songs); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(songs) != 1 || songs[0].Title != "The Moon Represents My Heart" {
		t.Errorf("unexpected songs: %+v", songs)
	}
}

func TestGetSongHandlerIncrementsViews(t *testing.T) {
	repo := newFakeSongRepo(sampleSong())
	router := newTestRouter(newTestHandler(repo))

	req := httptest.NewRequest(http.MethodGet, "/api/songs/1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(repo.incremented) != 1 || repo.incremented[0] != 1 {
		t.Errorf("incremented = %v, want exactly one increment of song 1", repo.incremented)
	}

	// The response carries the song as fetched, not the bumped counter.
	var song model.Song
	if err := json.Unmarshal(rec.Body.Bytes(), &song); err != nil {
		t.Fatal(err)
	}
	if song.Views != 3 {
		t.Errorf("views in response = %d, want 3", song.Views)
	}
}

func TestGetSongHandlerNotFound(t *testing.T) {
	router := newTestRouter(newTestHandler(newFakeSongRepo()))

	req := httptest.NewRequest(http.MethodGet, "/api/songs/99", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestSearchSongsHandlerRequiresQuery(t *testing.T) {
	router := newTestRouter(newTestHandler(newFakeSongRepo(sampleSong())))

	req := httptest.NewRequest(http.MethodGet, "/api/songs/search", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSearchSongsHandler(t *testing.T) {
	router := newTestRouter(newTestHandler(newFakeSongRepo(sampleSong())))

	req := httptest.NewRequest(http.MethodGet, "/api/songs/search?q=moon", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var songs []*model.Song
	if err := json.Unmarshal(rec.Body.Bytes(), &songs); err != nil {
		t.Fatal(err)
	}
	if len(songs) != 1 {
		t.Errorf("got %d results, want 1", len(songs))
	}
}

func TestCreateSongHandlerRequiresAuth(t *testing.T) {
	router := newTestRouter(newTestHandler(newFakeSongRepo()))

	body := `{"title":"T","artist":"A","lyrics":"L"}`
	req := httptest.NewRequest(http.MethodPost, "/api/songs", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func authedRequest(t *testing.T, method, target string, body []byte) *http.Request {
	t.Helper()
	auth.InitJWT("test-secret")
	token, err := auth.GenerateToken(5, "tester")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestCreateSongHandlerValidation(t *testing.T) {
	router := newTestRouter(newTestHandler(newFakeSongRepo()))

	body, _ := json.Marshal(map[string]string{
		"title":  "",
		"artist": "Someone",
		"lyrics": "",
		"genre":  "jazz",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/api/songs", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var resp struct {
		Message string            `json:"message"`
		Errors  map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{"title", "lyrics", "genre"} {
		if resp.Errors[field] == "" {
			t.Errorf("missing field error for %q: %+v", field, resp.Errors)
		}
	}
	if resp.Errors["artist"] != "" {
		t.Errorf("unexpected error for valid artist field: %q", resp.Errors["artist"])
	}
}

func TestCreateSongHandler(t *testing.T) {
	repo := newFakeSongRepo()
	router := newTestRouter(newTestHandler(repo))

	body, _ := json.Marshal(map[string]string{
		"title":  "Hello Song",
		"artist": "Someone",
		"lyrics": "你好\n再见",
		"genre":  "pop",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/api/songs", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var song model.Song
	if err := json.Unmarshal(rec.Body.Bytes(), &song); err != nil {
		t.Fatal(err)
	}
	if song.UserID != 5 {
		t.Errorf("userId = %d, want the authenticated user", song.UserID)
	}
	if song.TitleChinese != "中文标题" {
		t.Errorf("titleChinese = %q, enrichment did not run", song.TitleChinese)
	}
	if !song.Enriched() {
		t.Error("created song not enriched despite working translator")
	}
}

func TestGetArtistsHandler(t *testing.T) {
	router := newTestRouter(newTestHandler(newFakeSongRepo(sampleSong())))

	req := httptest.NewRequest(http.MethodGet, "/api/artists", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var stats []*model.ArtistStat
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if len(stats) != 1 || stats[0].SongCount != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestGetArtistSongsHandlerMatchesEitherLanguage(t *testing.T) {
	router := newTestRouter(newTestHandler(newFakeSongRepo(sampleSong())))

	for _, name := range []string{"Teresa Teng", "邓丽君"} {
		req := httptest.NewRequest(http.MethodGet, "/api/artists/"+url.PathEscape(name)+"/songs", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status for %q = %d, want 200", name, rec.Code)
		}
		var songs []*model.Song
		if err := json.Unmarshal(rec.Body.Bytes(), &songs); err != nil {
			t.Fatal(err)
		}
		if len(songs) != 1 {
			t.Errorf("got %d songs for %q, want 1", len(songs), name)
		}
	}
}
