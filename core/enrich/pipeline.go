package enrich

import (
	"context"
	"time"

	"pinyinhub/core/translate"
	"pinyinhub/logger"
	"pinyinhub/model"
	"pinyinhub/repository"
)

// Translator is the slice of the translation client the pipeline needs.
type Translator interface {
	EnrichLyrics(ctx context.Context, rawLyrics string) (*translate.EnrichResult, error)
	BidirectionalTranslate(ctx context.Context, title, artist string) (*translate.BidirectionalResult, error)
}

// MirrorGenerator writes the static HTML mirror for a song.
type MirrorGenerator interface {
	Generate(song *model.Song) (string, error)
}

// Pipeline orchestrates translation calls around the song repository.
// The repository row is the durable source of truth: every translation
// or mirror failure degrades to "retry later" instead of failing the
// triggering request.
type Pipeline struct {
	repo       repository.SongRepository
	translator Translator
	mirror     MirrorGenerator
	timeout    time.Duration // per adapter call; the upstream API is unbounded in latency
}

// NewPipeline creates an enrichment pipeline.
func NewPipeline(repo repository.SongRepository, translator Translator, mirror MirrorGenerator, timeout time.Duration) *Pipeline {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Pipeline{repo: repo, translator: translator, mirror: mirror, timeout: timeout}
}

// EnrichNewSong runs the creation-time enrichment for a freshly stored
// raw song row: bidirectional title/artist translation (filling gaps
// only, never overwriting submitter-supplied values), then lyrics
// enrichment (always pipeline-owned), then the static mirror write.
// The returned song reflects whatever enrichment succeeded; a raw song
// comes back unchanged when the adapter fails.
func (p *Pipeline) EnrichNewSong(ctx context.Context, song *model.Song) (*model.Song, error) {
	current := song

	if updated, err := p.applyBidirectional(ctx, current); err != nil {
		logger.Warn("[Enrich] bidirectional translation failed, song stays raw",
			logger.Int64("songId", current.ID),
			logger.ErrorField(err))
	} else if updated != nil {
		current = updated
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	result, err := p.translator.EnrichLyrics(callCtx, current.Lyrics)
	cancel()
	if err != nil {
		// Recoverable: the raw row persists and a later reconciliation
		// run retries the enrichment.
		logger.Warn("[Enrich] lyrics enrichment failed, song stays raw",
			logger.Int64("songId", current.ID),
			logger.ErrorField(err))
		return current, nil
	}

	updated, err := p.repo.UpdateSong(ctx, current.ID, &model.SongUpdate{
		SimplifiedLyrics: &result.SimplifiedLyrics,
		PinyinLyrics:     &result.PinyinLyrics,
		EnglishLyrics:    &result.EnglishLyrics,
	})
	if err != nil {
		return current, err
	}
	if updated != nil {
		current = updated
	}

	p.writeMirror(current)
	return current, nil
}

// applyBidirectional fills titleChinese/artistChinese only when they are
// currently absent on the row. Returns the updated song, or nil when no
// update was needed.
func (p *Pipeline) applyBidirectional(ctx context.Context, song *model.Song) (*model.Song, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	translations, err := p.translator.BidirectionalTranslate(callCtx, song.Title, song.Artist)
	if err != nil {
		return nil, err
	}

	update := &model.SongUpdate{}
	if song.TitleChinese == "" && translations.TitleChinese != "" {
		update.TitleChinese = &translations.TitleChinese
	}
	if song.ArtistChinese == "" && translations.ArtistChinese != "" {
		update.ArtistChinese = &translations.ArtistChinese
	}
	if update.Empty() {
		return nil, nil
	}

	return p.repo.UpdateSong(ctx, song.ID, update)
}

// writeMirror regenerates the static page, logging and discarding any
// failure. Mirror writes are best-effort and never part of the request
// consistency contract.
func (p *Pipeline) writeMirror(song *model.Song) {
	if p.mirror == nil {
		return
	}
	path, err := p.mirror.Generate(song)
	if err != nil {
		logger.Error("[Enrich] static mirror write failed",
			logger.Int64("songId", song.ID),
			logger.ErrorField(err))
		return
	}
	logger.Info("[Enrich] static mirror written",
		logger.Int64("songId", song.ID),
		logger.String("path", path))
}
