package server

import (
	"net/http"

	"pinyinhub/logger"
)

// RegenerateHTMLHandler handles POST /api/songs/generate-html: rewrites
// the static page for every scanned song and reports how many pages
// were produced.
func (h *APIHandler) RegenerateHTMLHandler(w http.ResponseWriter, r *http.Request) {
	count, err := h.pipeline.RegenerateAllMirrors(r.Context())
	if err != nil {
		logger.Error("[Admin] HTML regeneration failed", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Error generating HTML files")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":        "HTML generation completed",
		"generatedCount": count,
	})
}

// UpdateTranslationsHandler handles POST /api/songs/update-translations:
// runs the bulk reconciliation job and returns which songs changed.
func (h *APIHandler) UpdateTranslationsHandler(w http.ResponseWriter, r *http.Request) {
	result, err := h.pipeline.ReconcileTranslations(r.Context())
	if err != nil {
		logger.Error("[Admin] translation reconciliation failed", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Error updating translations")
		return
	}

	h.invalidateCaches(r.Context())

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":      "Translation update completed",
		"updatedCount": result.UpdatedCount,
		"updatedSongs": result.UpdatedSongs,
	})
}
