package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"pinyinhub/cache"
	"pinyinhub/logger"
)

// GetArtistsHandler handles GET /api/artists: the aggregated catalog
// view, one entry per distinct artist, ordered by song count.
func (h *APIHandler) GetArtistsHandler(w http.ResponseWriter, r *http.Request) {
	if cached, err := cache.GetCachedArtists(r.Context()); err != nil {
		logger.Warn("[Artists] artist cache read failed", logger.ErrorField(err))
	} else if cached != nil {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	artists, err := h.songRepo.GetArtists(r.Context())
	if err != nil {
		logger.Error("[Artists] failed to aggregate artists", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Error fetching artists")
		return
	}

	if err := cache.CacheArtists(r.Context(), artists); err != nil {
		logger.Warn("[Artists] artist cache write failed", logger.ErrorField(err))
	}

	respondJSON(w, http.StatusOK, artists)
}

// GetArtistSongsHandler handles GET /api/artists/{name}/songs. The name
// matches either the English or the Chinese artist field exactly.
func (h *APIHandler) GetArtistSongsHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if name == "" {
		respondError(w, http.StatusBadRequest, "Artist name is required")
		return
	}

	songs, err := h.songRepo.GetSongsByArtist(r.Context(), name)
	if err != nil {
		logger.Error("[Artists] failed to fetch artist songs",
			logger.String("artist", name),
			logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Error fetching artist songs")
		return
	}

	respondJSON(w, http.StatusOK, songs)
}
