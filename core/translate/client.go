package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"pinyinhub/logger"
	"pinyinhub/model"
)

// Config contains configuration for the translation client.
type Config struct {
	APIBaseURL  string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	// RPS caps outbound calls so bulk reconciliation cannot hammer the
	// upstream API. Zero disables the limiter.
	RPS float64
}

// Client wraps an OpenAI-compatible chat-completions endpoint with the
// three lyrics-catalog operations. The client performs no retries;
// callers decide whether a failed call is retried later.
type Client struct {
	config     *Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new translation client.
func NewClient(config *Config) *Client {
	var limiter *rate.Limiter
	if config.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RPS), 1)
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		limiter: limiter,
	}
}

const enrichSystemPrompt = "You are a Chinese language expert specializing in transliteration and translation. " +
	"Convert Chinese lyrics into simplified characters, pinyin with tone marks, and English translation. " +
	"Lines that contain no Chinese must be passed through unchanged with a null pinyin. " +
	"Keep exactly one output entry per input line, in input order. " +
	"Format your response as valid JSON with these properties: " +
	"1. simplifiedLyrics: A string with the lyrics in simplified Chinese. " +
	"2. pinyinLyrics: An array of objects with {pinyin: string|null, chinese: string} for each line. " +
	"3. englishLyrics: An array of English translation strings for each line."

const translateSystemPrompt = "You are a professional translator between Chinese and English. " +
	"Provide only the translation without any additional text."

const bidirectionalSystemPrompt = "You are a music translator working with song titles and artist names. " +
	"Return a JSON object with all four fields: titleChinese, titleEnglish, artistChinese, artistEnglish. " +
	"Always fill every field: when the input is already in one language, echo it for that language's field " +
	"and translate it for the other."

// EnrichResult is the outcome of a successful lyrics enrichment.
type EnrichResult struct {
	SimplifiedLyrics string            `json:"simplifiedLyrics"`
	PinyinLyrics     model.PinyinLines `json:"pinyinLyrics"`
	EnglishLyrics    model.StringLines `json:"englishLyrics"`
}

// BidirectionalResult carries both language variants of a title/artist
// pair.
type BidirectionalResult struct {
	TitleChinese  string `json:"titleChinese"`
	TitleEnglish  string `json:"titleEnglish"`
	ArtistChinese string `json:"artistChinese"`
	ArtistEnglish string `json:"artistEnglish"`
}

// EnrichLyrics derives simplified characters, line-aligned pinyin and a
// line-aligned English translation from raw lyrics. The result always
// has exactly one pinyin and one english entry per input line; a
// response that cannot satisfy that is rejected as an EnrichmentError.
func (c *Client) EnrichLyrics(ctx context.Context, rawLyrics string) (*EnrichResult, error) {
	const op = "enrichLyrics"

	content, err := c.chat(ctx, enrichSystemPrompt,
		"Please process these Chinese lyrics: \n\n"+rawLyrics, true)
	if err != nil {
		return nil, enrichErr(op, err)
	}

	var result EnrichResult
	if err := json.Unmarshal([]byte(stripJSONFence(content)), &result); err != nil {
		return nil, enrichErrf(op, "unparseable response: %w", err)
	}

	lines := strings.Split(rawLyrics, "\n")
	if len(result.PinyinLyrics) != len(lines) || len(result.EnglishLyrics) != len(lines) {
		return nil, enrichErrf(op, "line count mismatch: input %d, pinyin %d, english %d",
			len(lines), len(result.PinyinLyrics), len(result.EnglishLyrics))
	}

	// Lines without Chinese content pass through verbatim regardless of
	// what the model produced for them.
	for i, line := range lines {
		if !ContainsChinese(line) {
			result.PinyinLyrics[i] = model.PinyinLine{Pinyin: nil, Chinese: line}
			result.EnglishLyrics[i] = line
		}
	}

	if strings.TrimSpace(result.SimplifiedLyrics) == "" {
		simplified := make([]string, len(result.PinyinLyrics))
		for i, l := range result.PinyinLyrics {
			simplified[i] = l.Chinese
		}
		result.SimplifiedLyrics = strings.Join(simplified, "\n")
	}

	logger.Debug("[Translate] lyrics enriched",
		logger.Int("lines", len(lines)))

	return &result, nil
}

// Translate translates text into the target language ("chinese" or
// "english") and returns the bare translation.
func (c *Client) Translate(ctx context.Context, text, target string) (string, error) {
	const op = "translate"

	var prompt string
	switch target {
	case "chinese":
		prompt = fmt.Sprintf("Translate this English text to Chinese: %q", text)
	case "english":
		prompt = fmt.Sprintf("Translate this Chinese text to English: %q", text)
	default:
		return "", enrichErrf(op, "unsupported target language %q", target)
	}

	content, err := c.chat(ctx, translateSystemPrompt, prompt, false)
	if err != nil {
		return "", enrichErr(op, err)
	}
	return strings.TrimSpace(content), nil
}

// BidirectionalTranslate produces both language variants of the given
// title and artist. A variant the model leaves out is backfilled by
// echoing the input when the input is already in that language.
func (c *Client) BidirectionalTranslate(ctx context.Context, title, artist string) (*BidirectionalResult, error) {
	const op = "bidirectionalTranslate"

	content, err := c.chat(ctx, bidirectionalSystemPrompt,
		fmt.Sprintf("Title: %s\nArtist: %s", title, artist), true)
	if err != nil {
		return nil, enrichErr(op, err)
	}

	var result BidirectionalResult
	if err := json.Unmarshal([]byte(stripJSONFence(content)), &result); err != nil {
		return nil, enrichErrf(op, "unparseable response: %w", err)
	}

	if result.TitleChinese == "" && ContainsChinese(title) {
		result.TitleChinese = title
	}
	if result.TitleEnglish == "" && !ContainsChinese(title) {
		result.TitleEnglish = title
	}
	if result.ArtistChinese == "" && ContainsChinese(artist) {
		result.ArtistChinese = artist
	}
	if result.ArtistEnglish == "" && !ContainsChinese(artist) {
		result.ArtistEnglish = artist
	}

	return &result, nil
}

// chat performs one chat-completions call and returns the assistant
// message content.
func (c *Client) chat(ctx context.Context, systemPrompt, userPrompt string, jsonMode bool) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	reqBody := model.OpenAIChatRequest{
		Model: c.config.Model,
		Messages: []model.OpenAIChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
	}
	if jsonMode {
		reqBody.ResponseFormat = &model.OpenAIResponseFormat{Type: "json_object"}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.config.APIBaseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var chatResp model.OpenAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned")
	}

	content := chatResp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("empty response content")
	}

	return content, nil
}

// stripJSONFence removes a surrounding markdown code fence that some
// models wrap around JSON output.
func stripJSONFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
