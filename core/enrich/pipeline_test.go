package enrich

import (
	"context"
	"errors"
	"testing"
	"time"

	"pinyinhub/core/translate"
	"pinyinhub/model"
)

// fakeSongRepo is an in-memory SongRepository sufficient for pipeline
// tests: it stores songs by id and applies partial updates.
type fakeSongRepo struct {
	songs     map[int64]*model.Song
	order     []int64
	updateErr error
}

func newFakeSongRepo(songs ...*model.Song) *fakeSongRepo {
	repo := &fakeSongRepo{songs: make(map[int64]*model.Song)}
	for _, s := range songs {
		repo.songs[s.ID] = s
		repo.order = append(repo.order, s.ID)
	}
	return repo
}

func (r *fakeSongRepo) CreateSong(ctx context.Context, song *model.Song) (*model.Song, error) {
	r.songs[song.ID] = song
	r.order = append(r.order, song.ID)
	return song, nil
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
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeSongRepo) SearchSongs(ctx context.Context, query string) ([]*model.Song, error) {
	return nil, nil
}

func (r *fakeSongRepo) UpdateSong(ctx context.Context, id int64, update *model.SongUpdate) (*model.Song, error) {
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	song, ok := r.songs[id]
	if !ok {
		return nil, nil
	}
	copied := *song
	if update.Title != nil {
		copied.Title = *update.Title
	}
	if update.TitleChinese != nil {
		copied.TitleChinese = *update.TitleChinese
	}
	if update.Artist != nil {
		copied.Artist = *update.Artist
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

func (r *fakeSongRepo) IncrementViews(ctx context.Context, id int64) error { return nil }

func (r *fakeSongRepo) GetSongsByUserID(ctx context.Context, userID int64) ([]*model.Song, error) {
	return nil, nil
}

func (r *fakeSongRepo) GetArtists(ctx context.Context) ([]*model.ArtistStat, error) {
	return nil, nil
}

func (r *fakeSongRepo) GetSongsByArtist(ctx context.Context, name string) ([]*model.Song, error) {
	return nil, nil
}

// fakeTranslator returns canned results and records call counts.
type fakeTranslator struct {
	enrich        *translate.EnrichResult
	enrichErr     error
	bidirectional *translate.BidirectionalResult
	biErr         error

	enrichCalls int
	biCalls     int
}

func (f *fakeTranslator) EnrichLyrics(ctx context.Context, rawLyrics string) (*translate.EnrichResult, error) {
	f.enrichCalls++
	return f.enrich, f.enrichErr
}

func (f *fakeTranslator) BidirectionalTranslate(ctx context.Context, title, artist string) (*translate.BidirectionalResult, error) {
	f.biCalls++
	return f.bidirectional, f.biErr
}

// fakeMirror records generated song ids.
type fakeMirror struct {
	generated []int64
	err       error
}

func (f *fakeMirror) Generate(song *model.Song) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.generated = append(f.generated, song.ID)
	return "/songs/test.html", nil
}

func enrichedResult() *translate.EnrichResult {
	return &translate.EnrichResult{
		SimplifiedLyrics: "你好",
		PinyinLyrics:     model.PinyinLines{{Pinyin: model.StrPtr("nǐ hǎo"), Chinese: "你好"}},
		EnglishLyrics:    model.StringLines{"Hello"},
	}
}

func TestEnrichNewSong(t *testing.T) {
	song := &model.Song{ID: 1, Title: "Hello Song", Artist: "Someone", Lyrics: "你好"}
	repo := newFakeSongRepo(song)
	translator := &fakeTranslator{
		enrich: enrichedResult(),
		bidirectional: &translate.BidirectionalResult{
			TitleChinese:  "你好之歌",
			TitleEnglish:  "Hello Song",
			ArtistChinese: "某人",
			ArtistEnglish: "Someone",
		},
	}
	mirror := &fakeMirror{}
	p := NewPipeline(repo, translator, mirror, time.Second)

	got, err := p.EnrichNewSong(context.Background(), song)
	if err != nil {
		t.Fatalf("EnrichNewSong() error = %v", err)
	}

	if got.TitleChinese != "你好之歌" {
		t.Errorf("titleChinese = %q, want %q", got.TitleChinese, "你好之歌")
	}
	if got.ArtistChinese != "某人" {
		t.Errorf("artistChinese = %q, want %q", got.ArtistChinese, "某人")
	}
	if !got.Enriched() {
		t.Error("song not enriched after successful pipeline run")
	}
	if got.SimplifiedLyrics != "你好" {
		t.Errorf("simplifiedLyrics = %q", got.SimplifiedLyrics)
	}
	if len(mirror.generated) != 1 || mirror.generated[0] != 1 {
		t.Errorf("mirror.generated = %v, want [1]", mirror.generated)
	}
}

func TestEnrichNewSongKeepsSubmittedChineseFields(t *testing.T) {
	song := &model.Song{ID: 1, Title: "Hello Song", TitleChinese: "提交的标题", Artist: "Someone", Lyrics: "你好"}
	repo := newFakeSongRepo(song)
	translator := &fakeTranslator{
		enrich: enrichedResult(),
		bidirectional: &translate.BidirectionalResult{
			TitleChinese:  "模型的标题",
			ArtistChinese: "某人",
		},
	}
	p := NewPipeline(repo, translator, &fakeMirror{}, time.Second)

	got, err := p.EnrichNewSong(context.Background(), song)
	if err != nil {
		t.Fatalf("EnrichNewSong() error = %v", err)
	}
	if got.TitleChinese != "提交的标题" {
		t.Errorf("titleChinese = %q, submitted value was overwritten", got.TitleChinese)
	}
	if got.ArtistChinese != "某人" {
		t.Errorf("artistChinese = %q, absent field was not filled", got.ArtistChinese)
	}
}

func TestEnrichNewSongAdapterFailureLeavesSongRaw(t *testing.T) {
	song := &model.Song{ID: 1, Title: "Hello Song", Artist: "Someone", Lyrics: "你好"}
	repo := newFakeSongRepo(song)
	translator := &fakeTranslator{
		enrichErr: errors.New("upstream down"),
		biErr:     errors.New("upstream down"),
	}
	mirror := &fakeMirror{}
	p := NewPipeline(repo, translator, mirror, time.Second)

	got, err := p.EnrichNewSong(context.Background(), song)
	if err != nil {
		t.Fatalf("EnrichNewSong() error = %v, adapter failure must not fail the request", err)
	}
	if got.Enriched() {
		t.Error("song reported enriched after adapter failure")
	}
	if len(mirror.generated) != 0 {
		t.Errorf("mirror written for raw song: %v", mirror.generated)
	}
}

func TestEnrichNewSongMirrorFailureIsSwallowed(t *testing.T) {
	song := &model.Song{ID: 1, Title: "Hello Song", Artist: "Someone", Lyrics: "你好"}
	repo := newFakeSongRepo(song)
	translator := &fakeTranslator{
		enrich:        enrichedResult(),
		bidirectional: &translate.BidirectionalResult{TitleChinese: "你好之歌", ArtistChinese: "某人"},
	}
	mirror := &fakeMirror{err: errors.New("disk full")}
	p := NewPipeline(repo, translator, mirror, time.Second)

	got, err := p.EnrichNewSong(context.Background(), song)
	if err != nil {
		t.Fatalf("EnrichNewSong() error = %v, mirror failure must not propagate", err)
	}
	if !got.Enriched() {
		t.Error("enrichment lost because the mirror write failed")
	}
}

func TestReconcileTranslations(t *testing.T) {
	complete := &model.Song{
		ID: 1, Title: "Done", TitleChinese: "完成", Artist: "Artist", ArtistChinese: "艺术家",
	}
	missing := &model.Song{ID: 2, Title: "Pending", Artist: "Someone"}
	degenerate := &model.Song{
		ID: 3, Title: "同一个", TitleChinese: "同一个", Artist: "Band", ArtistChinese: "乐队",
	}
	repo := newFakeSongRepo(complete, missing, degenerate)
	translator := &fakeTranslator{
		bidirectional: &translate.BidirectionalResult{
			TitleChinese:  "中文标题",
			TitleEnglish:  "English Title",
			ArtistChinese: "中文艺术家",
			ArtistEnglish: "English Artist",
		},
	}
	p := NewPipeline(repo, translator, &fakeMirror{}, time.Second)

	result, err := p.ReconcileTranslations(context.Background())
	if err != nil {
		t.Fatalf("ReconcileTranslations() error = %v", err)
	}

	if result.UpdatedCount != 2 {
		t.Fatalf("updatedCount = %d, want 2", result.UpdatedCount)
	}
	if translator.biCalls != 2 {
		t.Errorf("translator called %d times, want 2 (complete song must be skipped)", translator.biCalls)
	}

	// The degenerate title was replaced by a distinct English value; the
	// already distinct English title of song 2 was not clobbered.
	song3, _ := repo.GetSongByID(context.Background(), 3)
	if song3.Title != "English Title" {
		t.Errorf("degenerate title = %q, want replaced", song3.Title)
	}
	song2, _ := repo.GetSongByID(context.Background(), 2)
	if song2.Title != "Pending" {
		t.Errorf("distinct title = %q, was clobbered", song2.Title)
	}
	if song2.TitleChinese != "中文标题" {
		t.Errorf("titleChinese = %q, want filled", song2.TitleChinese)
	}
}

func TestReconcileTranslationsIdempotent(t *testing.T) {
	missing := &model.Song{ID: 1, Title: "Pending", Artist: "Someone"}
	repo := newFakeSongRepo(missing)
	translator := &fakeTranslator{
		bidirectional: &translate.BidirectionalResult{
			TitleChinese:  "中文标题",
			TitleEnglish:  "Pending",
			ArtistChinese: "中文艺术家",
			ArtistEnglish: "Someone",
		},
	}
	p := NewPipeline(repo, translator, &fakeMirror{}, time.Second)

	first, err := p.ReconcileTranslations(context.Background())
	if err != nil {
		t.Fatalf("first run error = %v", err)
	}
	if first.UpdatedCount != 1 {
		t.Fatalf("first run updated %d, want 1", first.UpdatedCount)
	}

	second, err := p.ReconcileTranslations(context.Background())
	if err != nil {
		t.Fatalf("second run error = %v", err)
	}
	if second.UpdatedCount != 0 {
		t.Errorf("second run updated %d, want 0", second.UpdatedCount)
	}
}

func TestReconcileTranslationsIsolatesFailures(t *testing.T) {
	a := &model.Song{ID: 1, Title: "A", Artist: "X"}
	b := &model.Song{ID: 2, Title: "B", Artist: "Y"}
	repo := newFakeSongRepo(a, b)
	translator := &fakeTranslator{biErr: errors.New("upstream down")}
	p := NewPipeline(repo, translator, &fakeMirror{}, time.Second)

	result, err := p.ReconcileTranslations(context.Background())
	if err != nil {
		t.Fatalf("ReconcileTranslations() error = %v, per-song failures must be isolated", err)
	}
	if result.UpdatedCount != 0 {
		t.Errorf("updatedCount = %d, want 0", result.UpdatedCount)
	}
	if translator.biCalls != 2 {
		t.Errorf("translator called %d times, want 2 (both songs attempted)", translator.biCalls)
	}
}

func TestRegenerateAllMirrors(t *testing.T) {
	a := &model.Song{ID: 1, Title: "A", Artist: "X"}
	b := &model.Song{ID: 2, Title: "B", Artist: "Y"}
	repo := newFakeSongRepo(a, b)
	mirror := &fakeMirror{}
	p := NewPipeline(repo, &fakeTranslator{}, mirror, time.Second)

	count, err := p.RegenerateAllMirrors(context.Background())
	if err != nil {
		t.Fatalf("RegenerateAllMirrors() error = %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if len(mirror.generated) != 2 {
		t.Errorf("generated = %v, want both songs", mirror.generated)
	}
}

func TestNeedsReconciliation(t *testing.T) {
	cases := []struct {
		name string
		song *model.Song
		want bool
	}{
		{"complete", &model.Song{Title: "A", TitleChinese: "甲", Artist: "B", ArtistChinese: "乙"}, false},
		{"missing title chinese", &model.Song{Title: "A", Artist: "B", ArtistChinese: "乙"}, true},
		{"missing artist chinese", &model.Song{Title: "A", TitleChinese: "甲", Artist: "B"}, true},
		{"degenerate title", &model.Song{Title: "甲", TitleChinese: "甲", Artist: "B", ArtistChinese: "乙"}, true},
		{"degenerate artist", &model.Song{Title: "A", TitleChinese: "甲", Artist: "乙", ArtistChinese: "乙"}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := needsReconciliation(c.song); got != c.want {
				t.Errorf("needsReconciliation() = %v, want %v", got, c.want)
			}
		})
	}
}
