package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"pinyinhub/cache"
	"pinyinhub/logger"
	"pinyinhub/model"
)

// CreateSongRequest is the body of POST /api/songs.
type CreateSongRequest struct {
	Title         string `json:"title"`
	TitleChinese  string `json:"titleChinese"`
	Artist        string `json:"artist"`
	ArtistChinese string `json:"artistChinese"`
	Lyrics        string `json:"lyrics"`
	Genre         string `json:"genre"`
	YoutubeLink   string `json:"youtubeLink"`
	SpotifyLink   string `json:"spotifyLink"`
}

// Validate returns per-field errors for an invalid request.
func (req *CreateSongRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(req.Title) == "" {
		errs["title"] = "title is required"
	}
	if strings.TrimSpace(req.Artist) == "" {
		errs["artist"] = "artist is required"
	}
	if strings.TrimSpace(req.Lyrics) == "" {
		errs["lyrics"] = "lyrics is required"
	}
	if req.Genre != "" && !model.IsValidGenre(req.Genre) {
		errs["genre"] = "genre must be one of pop, rock, folk, rap, classical, other"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// GetSongsHandler handles GET /api/songs with pagination, newest first.
func (h *APIHandler) GetSongsHandler(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	offset := queryInt(r, "offset", 0)

	if cached, err := cache.GetCachedSongList(r.Context(), limit, offset); err != nil {
		logger.Warn("[Songs] song list cache read failed", logger.ErrorField(err))
	} else if cached != nil {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	songs, err := h.songRepo.GetSongs(r.Context(), limit, offset)
	if err != nil {
		logger.Error("[Songs] failed to fetch songs", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Error fetching songs")
		return
	}

	if err := cache.CacheSongList(r.Context(), limit, offset, songs); err != nil {
		logger.Warn("[Songs] song list cache write failed", logger.ErrorField(err))
	}

	respondJSON(w, http.StatusOK, songs)
}

// SearchSongsHandler handles GET /api/songs/search. Results are ordered
// by views, most popular first.
func (h *APIHandler) SearchSongsHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		respondError(w, http.StatusBadRequest, "Search query is required")
		return
	}

	songs, err := h.songRepo.SearchSongs(r.Context(), query)
	if err != nil {
		logger.Error("[Songs] search failed", logger.String("query", query), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Error searching songs")
		return
	}

	respondJSON(w, http.StatusOK, songs)
}

// GetSongHandler handles GET /api/songs/{id}. Fetching a song's detail
// page increments its view counter exactly once.
func (h *APIHandler) GetSongHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid song ID")
		return
	}

	song, err := h.songRepo.GetSongByID(r.Context(), id)
	if err != nil {
		logger.Error("[Songs] failed to fetch song", logger.Int64("songId", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Error fetching song")
		return
	}
	if song == nil {
		respondError(w, http.StatusNotFound, "Song not found")
		return
	}

	if err := h.songRepo.IncrementViews(r.Context(), id); err != nil {
		// The page itself still renders; the lost count is logged.
		logger.Warn("[Songs] failed to increment views", logger.Int64("songId", id), logger.ErrorField(err))
	}

	respondJSON(w, http.StatusOK, song)
}

// CreateSongHandler handles POST /api/songs: validates the submission,
// stores the raw row, then runs the enrichment pipeline synchronously
// before responding. Enrichment failures do not fail the request; the
// raw song is returned and retried by a later reconciliation run.
func (h *APIHandler) CreateSongHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req CreateSongRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if fieldErrors := req.Validate(); fieldErrors != nil {
		respondValidationError(w, fieldErrors)
		return
	}

	song := &model.Song{
		UserID:        userID,
		Title:         req.Title,
		TitleChinese:  req.TitleChinese,
		Artist:        req.Artist,
		ArtistChinese: req.ArtistChinese,
		Lyrics:        req.Lyrics,
		Genre:         req.Genre,
		YoutubeLink:   req.YoutubeLink,
		SpotifyLink:   req.SpotifyLink,
	}

	created, err := h.songRepo.CreateSong(r.Context(), song)
	if err != nil {
		logger.Error("[Songs] failed to create song", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Error creating song")
		return
	}

	enriched, err := h.pipeline.EnrichNewSong(r.Context(), created)
	if err != nil {
		logger.Error("[Songs] enrichment update failed", logger.Int64("songId", created.ID), logger.ErrorField(err))
		enriched = created
	}

	h.invalidateCaches(r.Context())

	respondJSON(w, http.StatusCreated, enriched)
}

// GetUserSongsHandler handles GET /api/user/songs for the authenticated
// caller, newest first.
func (h *APIHandler) GetUserSongsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	songs, err := h.songRepo.GetSongsByUserID(r.Context(), userID)
	if err != nil {
		logger.Error("[Songs] failed to fetch user songs", logger.Int64("userId", userID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Error fetching user songs")
		return
	}

	respondJSON(w, http.StatusOK, songs)
}

func (h *APIHandler) invalidateCaches(ctx context.Context) {
	if err := cache.InvalidateSongCaches(ctx); err != nil {
		logger.Warn("[Songs] cache invalidation failed", logger.ErrorField(err))
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}
