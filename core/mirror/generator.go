package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"pinyinhub/logger"
	"pinyinhub/model"
	"pinyinhub/storage"
)

// WriteError reports a failed static mirror write. The mirror is a
// best-effort derived artifact: callers are expected to log the error
// and carry on, never to fail the triggering request because of it.
type WriteError struct {
	SongID int64
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("mirror: song %d: %v", e.SongID, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Generator renders one self-contained HTML document per song for
// crawlers and link-preview consumers. Output is written below Dir and,
// when MinIO is configured, mirrored to MinioBucket.
type Generator struct {
	Dir         string // local output directory (web-servable)
	BaseURL     string // absolute site URL embedded in the pages
	MinioBucket string
}

// NewGenerator creates a Generator writing to dir.
func NewGenerator(dir, baseURL, minioBucket string) *Generator {
	return &Generator{Dir: dir, BaseURL: baseURL, MinioBucket: minioBucket}
}

var slugStrip = regexp.MustCompile(`[^\w\s\x{4e00}-\x{9fff}]`)
var slugSpaces = regexp.MustCompile(`\s+`)

// Slugify lowercases the title, strips characters that are neither word
// characters nor CJK ideographs, and collapses whitespace runs to single
// hyphens. Deterministic: the same input always yields the same slug.
func Slugify(title string) string {
	cleaned := strings.ToLower(title)
	cleaned = slugStrip.ReplaceAllString(cleaned, "")
	cleaned = slugSpaces.ReplaceAllString(strings.TrimSpace(cleaned), "-")
	return cleaned
}

// SlugFor derives the mirror filename stem for a song. The numeric id
// prefix keeps slugs unique even when two titles collapse to the same
// text.
func SlugFor(song *model.Song) string {
	title := song.TitleChinese
	if title == "" {
		title = song.Title
	}
	return fmt.Sprintf("%d-%s", song.ID, Slugify(title))
}

type lyricLine struct {
	Pinyin  string
	Chinese string
}

type pageData struct {
	ID              int64
	PrimaryTitle    string
	SecondaryTitle  string
	PrimaryArtist   string
	SecondaryArtist string
	MetaTitle       string
	MetaDescription string
	SongURL         string
	PinyinLyrics    []lyricLine
	EnglishLyrics   []string
	Genre           string
	Views           int64
	DisplayDate     string
	LyricsPreview   string
	JSONLD          template.JS
}

// Generate renders the song's static page and writes it as a full
// overwrite. It returns the public path of the generated file. Identical
// input produces byte-identical output; the only embedded date is the
// song's own creation date.
func (g *Generator) Generate(song *model.Song) (string, error) {
	slug := SlugFor(song)

	data, err := g.buildPageData(song)
	if err != nil {
		return "", &WriteError{SongID: song.ID, Err: err}
	}

	var buf bytes.Buffer
	if err := songTemplate.Execute(&buf, data); err != nil {
		return "", &WriteError{SongID: song.ID, Err: fmt.Errorf("template execution: %w", err)}
	}

	if err := os.MkdirAll(g.Dir, 0755); err != nil {
		return "", &WriteError{SongID: song.ID, Err: fmt.Errorf("create output dir: %w", err)}
	}

	filename := slug + ".html"
	if err := os.WriteFile(filepath.Join(g.Dir, filename), buf.Bytes(), 0644); err != nil {
		return "", &WriteError{SongID: song.ID, Err: fmt.Errorf("write file: %w", err)}
	}

	// Best-effort copy to MinIO; local file remains authoritative.
	if g.MinioBucket != "" && storage.GetMinioClient() != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := storage.PutHTML(ctx, g.MinioBucket, "songs/"+filename, buf.String()); err != nil {
			logger.Warn("Failed to upload static mirror to MinIO",
				logger.Int64("songId", song.ID),
				logger.ErrorField(err))
		}
	}

	return "/songs/" + filename, nil
}

func (g *Generator) buildPageData(song *model.Song) (*pageData, error) {
	primaryTitle := song.Title
	secondaryTitle := ""
	if song.TitleChinese != "" {
		primaryTitle = song.TitleChinese
		if song.Title != song.TitleChinese {
			secondaryTitle = song.Title
		}
	}

	primaryArtist := song.Artist
	secondaryArtist := ""
	if song.ArtistChinese != "" {
		primaryArtist = song.ArtistChinese
		if song.Artist != song.ArtistChinese {
			secondaryArtist = song.Artist
		}
	}

	metaTitle := fmt.Sprintf("%s - %s | PinyinHub", primaryTitle, primaryArtist)
	if secondaryTitle != "" {
		metaTitle = fmt.Sprintf("%s (%s) - %s | PinyinHub", primaryTitle, secondaryTitle, primaryArtist)
	}
	metaDescription := fmt.Sprintf("Learn %s by %s with Pinyin transliteration and English translation. Perfect for Chinese language learners.",
		primaryTitle, primaryArtist)

	simplified := song.SimplifiedLyrics
	if simplified == "" {
		simplified = song.Lyrics
	}

	genre := song.Genre
	if genre == "" {
		genre = "Chinese Music"
	}

	createdAt := song.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Unix(0, 0).UTC()
	}

	lines := make([]lyricLine, 0, len(song.PinyinLyrics))
	for _, line := range song.PinyinLyrics {
		l := lyricLine{Chinese: line.Chinese}
		if line.Pinyin != nil {
			l.Pinyin = *line.Pinyin
		}
		lines = append(lines, l)
	}

	// Structured-data block describing the song as a composition.
	jsonLD, err := json.MarshalIndent(map[string]interface{}{
		"@context":             "https://schema.org",
		"@type":                "MusicComposition",
		"name":                 primaryTitle,
		"alternativeHeadline":  secondaryTitle,
		"composer":             map[string]string{"@type": "Person", "name": primaryArtist},
		"inLanguage":           "zh-CN",
		"datePublished":        createdAt.Format("2006-01-02"),
		"musicCompositionForm": genre,
		"lyrics": map[string]string{
			"@type": "CreativeWork",
			// Ellipsis is unconditional, even when nothing was cut.
			"text": truncate(simplified, 500) + "...",
		},
	}, "  ", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal structured data: %w", err)
	}

	return &pageData{
		ID:              song.ID,
		PrimaryTitle:    primaryTitle,
		SecondaryTitle:  secondaryTitle,
		PrimaryArtist:   primaryArtist,
		SecondaryArtist: secondaryArtist,
		MetaTitle:       metaTitle,
		MetaDescription: metaDescription,
		SongURL:         fmt.Sprintf("%s/songs/%d", g.BaseURL, song.ID),
		PinyinLyrics:    lines,
		EnglishLyrics:   song.EnglishLyrics,
		Genre:           genre,
		Views:           song.Views,
		DisplayDate:     createdAt.Format("January 2, 2006"),
		LyricsPreview:   strings.Join(strings.Split(truncate(simplified, 200), "\n"), ", "),
		JSONLD:          template.JS(jsonLD),
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Cut on a rune boundary so multi-byte characters survive.
	cut := n
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

var songTemplate = template.Must(template.New("song").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.MetaTitle}}</title>

  <!-- SEO Meta Tags -->
  <meta name="description" content="{{.MetaDescription}}">
  <meta name="keywords" content="Chinese songs, pinyin, lyrics, {{.PrimaryTitle}}, {{.PrimaryArtist}}, learn Chinese">

  <!-- Open Graph Tags -->
  <meta property="og:title" content="{{.MetaTitle}}">
  <meta property="og:description" content="{{.MetaDescription}}">
  <meta property="og:type" content="music.song">
  <meta property="og:url" content="{{.SongURL}}">
  <meta property="og:site_name" content="PinyinHub">
  <meta property="music:musician" content="{{.PrimaryArtist}}">

  <!-- Twitter Card Tags -->
  <meta name="twitter:card" content="summary_large_image">
  <meta name="twitter:title" content="{{.MetaTitle}}">
  <meta name="twitter:description" content="{{.MetaDescription}}">

  <!-- Structured Data - Song -->
  <script type="application/ld+json">
  {{.JSONLD}}
  </script>

  <link rel="canonical" href="{{.SongURL}}">

  <style>
    body {
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
      line-height: 1.6;
      color: #333;
      max-width: 800px;
      margin: 0 auto;
      padding: 20px;
    }
    header {
      text-align: center;
      border-bottom: 1px solid #eee;
      padding-bottom: 20px;
      margin-bottom: 30px;
    }
    h1 {
      margin-bottom: 5px;
      color: #2563eb;
    }
    .subtitle {
      color: #4b5563;
      font-size: 1.2rem;
      margin-top: 0;
    }
    .artist {
      font-size: 1.1rem;
      color: #4b5563;
    }
    .section {
      margin-bottom: 30px;
    }
    .section-title {
      font-size: 1.2rem;
      margin-bottom: 15px;
      font-weight: bold;
      color: #1f2937;
    }
    .lyrics-container {
      display: flex;
      flex-direction: column;
      gap: 15px;
    }
    .lyrics-line {
      display: flex;
      flex-direction: column;
      gap: 5px;
    }
    .pinyin {
      color: #4b5563;
    }
    .chinese {
      font-size: 1.2rem;
    }
    .english {
      color: #6b7280;
      font-style: italic;
    }
    .app-link {
      display: block;
      text-align: center;
      margin-top: 40px;
      padding: 15px;
      background-color: #2563eb;
      color: white;
      text-decoration: none;
      border-radius: 5px;
      font-weight: bold;
    }
    .metadata {
      font-size: 0.8rem;
      color: #6b7280;
      margin-top: 30px;
      text-align: center;
    }
  </style>
</head>
<body>
  <header>
    <h1>{{.PrimaryTitle}}</h1>
    {{if .SecondaryTitle}}<p class="subtitle">{{.SecondaryTitle}}</p>{{end}}
    <p class="artist">
      {{.PrimaryArtist}}{{if .SecondaryArtist}} ({{.SecondaryArtist}}){{end}}
    </p>
  </header>

  <main>
    <div class="section">
      <h2 class="section-title">Lyrics with Pinyin</h2>
      <div class="lyrics-container">
        {{range .PinyinLyrics}}
        <div class="lyrics-line">
          {{if .Pinyin}}<div class="pinyin">{{.Pinyin}}</div>{{end}}
          <div class="chinese">{{.Chinese}}</div>
        </div>
        {{end}}
      </div>
    </div>

    <div class="section">
      <h2 class="section-title">English Translation</h2>
      <div class="lyrics-container">
        {{range .EnglishLyrics}}
        <div class="english">{{.}}</div>
        {{end}}
      </div>
    </div>

    <a href="{{.SongURL}}" class="app-link">
      View This Song in the PinyinHub App
    </a>
  </main>

  <footer>
    <p class="metadata">
      Added on {{.DisplayDate}} |
      Views: {{.Views}} |
      Genre: {{.Genre}}
    </p>
  </footer>

  <!-- Hidden lyrics content for search engines -->
  <div style="display:none" aria-hidden="true">
    {{.LyricsPreview}}
  </div>
</body>
</html>
`))
