package enrich

import (
	"context"

	"pinyinhub/logger"
	"pinyinhub/model"
)

// reconcileScanLimit caps the reconciliation scan at the first 100
// songs. Known limitation: catalogs beyond 100 rows need repeated runs.
const reconcileScanLimit = 100

// ReconcileResult summarizes one bulk reconciliation run.
type ReconcileResult struct {
	UpdatedCount int           `json:"updatedCount"`
	UpdatedSongs []*model.Song `json:"updatedSongs"`
}

// needsReconciliation reports whether a song's bilingual metadata is
// incomplete or degenerate (a translation call echoed the same string
// into both language fields).
func needsReconciliation(song *model.Song) bool {
	return song.TitleChinese == "" || song.ArtistChinese == "" ||
		song.Title == song.TitleChinese || song.Artist == song.ArtistChinese
}

// ReconcileTranslations scans the catalog for songs with incomplete
// bilingual metadata, re-invokes the bidirectional translator for each
// and refreshes both the repository row and, for fully enriched songs,
// the static mirror. Per-song failures are isolated: one song's adapter
// or mirror failure never stops the remaining songs. Running the job
// again on an already-complete catalog updates nothing.
func (p *Pipeline) ReconcileTranslations(ctx context.Context) (*ReconcileResult, error) {
	songs, err := p.repo.GetSongs(ctx, reconcileScanLimit, 0)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{UpdatedSongs: make([]*model.Song, 0)}

	for _, song := range songs {
		if !needsReconciliation(song) {
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		translations, err := p.translator.BidirectionalTranslate(callCtx, song.Title, song.Artist)
		cancel()
		if err != nil {
			logger.Warn("[Reconcile] bidirectional translation failed, skipping song",
				logger.Int64("songId", song.ID),
				logger.ErrorField(err))
			continue
		}

		update := &model.SongUpdate{}

		// Chinese variants are applied unconditionally when returned;
		// primary fields only when absent or degenerate, so a distinct
		// existing English value is never clobbered.
		if translations.TitleChinese != "" {
			update.TitleChinese = &translations.TitleChinese
		}
		if translations.TitleEnglish != "" && (song.Title == "" || song.Title == song.TitleChinese) {
			update.Title = &translations.TitleEnglish
		}
		if translations.ArtistChinese != "" {
			update.ArtistChinese = &translations.ArtistChinese
		}
		if translations.ArtistEnglish != "" && (song.Artist == "" || song.Artist == song.ArtistChinese) {
			update.Artist = &translations.ArtistEnglish
		}

		if update.Empty() {
			continue
		}

		updated, err := p.repo.UpdateSong(ctx, song.ID, update)
		if err != nil {
			logger.Error("[Reconcile] failed to update song",
				logger.Int64("songId", song.ID),
				logger.ErrorField(err))
			continue
		}
		if updated == nil {
			continue
		}

		if updated.Enriched() {
			p.writeMirror(updated)
		}

		result.UpdatedSongs = append(result.UpdatedSongs, updated)
		result.UpdatedCount++
	}

	logger.Info("[Reconcile] run completed",
		logger.Int("scanned", len(songs)),
		logger.Int("updated", result.UpdatedCount))

	return result, nil
}

// RegenerateAllMirrors rewrites the static page for the first 100 songs
// (same deliberate scan cap as reconciliation) and returns the number of
// pages generated. Per-song failures are logged and skipped.
func (p *Pipeline) RegenerateAllMirrors(ctx context.Context) (int, error) {
	songs, err := p.repo.GetSongs(ctx, reconcileScanLimit, 0)
	if err != nil {
		return 0, err
	}

	generated := 0
	for _, song := range songs {
		if p.mirror == nil {
			break
		}
		if _, err := p.mirror.Generate(song); err != nil {
			logger.Error("[Reconcile] static mirror regeneration failed",
				logger.Int64("songId", song.ID),
				logger.ErrorField(err))
			continue
		}
		generated++
	}

	logger.Info("[Reconcile] mirror regeneration completed",
		logger.Int("scanned", len(songs)),
		logger.Int("generated", generated))

	return generated, nil
}
