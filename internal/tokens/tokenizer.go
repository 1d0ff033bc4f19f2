// Package tokens counts, truncates and chunks text by model tokens and keeps
// prompts inside a token budget.
package tokens

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkoukk/tiktoken-go"

	"github.com/localrivet/cratescribe/internal/errortypes"
)

const (
	// DefaultEncoding is used for models missing from the encoding table.
	DefaultEncoding = "cl100k_base"

	// DefaultModel is the model assumed when a caller passes an empty model name.
	DefaultModel = "gpt-3.5-turbo"

	defaultCacheSize = 8
)

// ErrInvalidChunking is returned by Chunk when the window never advances.
var ErrInvalidChunking = errors.New("chunk overlap must be smaller than chunk size")

// Encoder converts text to token ids and back.
type Encoder interface {
	Encode(text string) []int
	Decode(tokens []int) string
	Name() string
}

// EncodingLoader resolves an encoding name to an Encoder.
type EncodingLoader func(encoding string) (Encoder, error)

// modelEncodings maps model names (and prefixes) to their BPE encoding.
var modelEncodings = map[string]string{
	"gpt-4o":                 "o200k_base",
	"gpt-4o-mini":            "o200k_base",
	"gpt-4-turbo":            "cl100k_base",
	"gpt-4":                  "cl100k_base",
	"gpt-3.5-turbo":          "cl100k_base",
	"text-embedding-3-large": "cl100k_base",
	"text-embedding-3-small": "cl100k_base",
	"text-embedding-ada-002": "cl100k_base",
	"text-davinci-003":       "p50k_base",
	"davinci":                "r50k_base",
}

// EncodingForModel returns the encoding registered for model, trying an exact
// match, then the longest registered prefix, then DefaultEncoding.
func EncodingForModel(model string) string {
	if enc, ok := LookupEncoding(model); ok {
		return enc
	}
	return DefaultEncoding
}

// LookupEncoding returns the encoding registered for model by exact match or
// longest prefix, and whether one was found.
func LookupEncoding(model string) (string, bool) {
	if enc, ok := modelEncodings[model]; ok {
		return enc, true
	}
	best := ""
	for prefix := range modelEncodings {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return "", false
	}
	return modelEncodings[best], true
}

// tiktokenEncoder adapts a tiktoken BPE to Encoder.
type tiktokenEncoder struct {
	name string
	enc  *tiktoken.Tiktoken
}

func (e *tiktokenEncoder) Encode(text string) []int {
	return e.enc.Encode(text, nil, nil)
}

func (e *tiktokenEncoder) Decode(tokens []int) string {
	return e.enc.Decode(tokens)
}

func (e *tiktokenEncoder) Name() string {
	return "tiktoken[" + e.name + "]"
}

// LoadTiktoken is the default EncodingLoader. The BPE ranks are fetched and
// cached by tiktoken-go on first use.
func LoadTiktoken(encoding string) (Encoder, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %s: %w", encoding, err)
	}
	return &tiktokenEncoder{name: encoding, enc: enc}, nil
}

// RuneEncoder treats every rune as one token. It never undercounts a BPE
// encoding and serves as the last-resort encoder when no BPE data is available.
type RuneEncoder struct{}

func (RuneEncoder) Encode(text string) []int {
	out := make([]int, 0, utf8.RuneCountInString(text))
	for _, r := range text {
		out = append(out, int(r))
	}
	return out
}

func (RuneEncoder) Decode(tokens []int) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteRune(rune(t))
	}
	return b.String()
}

func (RuneEncoder) Name() string { return "runes" }

// Options configures a Tokenizer.
type Options struct {
	// DefaultEncoding replaces DefaultEncoding when set.
	DefaultEncoding string
	// Loader replaces LoadTiktoken when set.
	Loader EncodingLoader
	// CacheSize bounds the number of resolved encoders kept in memory.
	CacheSize int
	Logger    *slog.Logger
}

// Tokenizer resolves model names to encoders and performs token-level text
// operations. It is safe for concurrent use.
type Tokenizer struct {
	defaultEncoding string
	loader          EncodingLoader
	cache           *lru.Cache[string, Encoder]
	logger          *slog.Logger
}

// NewTokenizer creates a Tokenizer.
func NewTokenizer(opts Options) (*Tokenizer, error) {
	if opts.DefaultEncoding == "" {
		opts.DefaultEncoding = DefaultEncoding
	}
	if opts.Loader == nil {
		opts.Loader = LoadTiktoken
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	cache, err := lru.New[string, Encoder](opts.CacheSize)
	if err != nil {
		return nil, errortypes.ConfigError(err, "failed to create encoder cache")
	}

	return &Tokenizer{
		defaultEncoding: opts.DefaultEncoding,
		loader:          opts.Loader,
		cache:           cache,
		logger:          opts.Logger,
	}, nil
}

// NewStaticTokenizer returns a Tokenizer that uses enc for every model.
func NewStaticTokenizer(enc Encoder) *Tokenizer {
	t, _ := NewTokenizer(Options{
		Loader: func(string) (Encoder, error) { return enc, nil },
	})
	return t
}

// EncoderFor returns the encoder for model. Unknown models use the default
// encoding; if that cannot be loaded either, RuneEncoder is used.
func (t *Tokenizer) EncoderFor(model string) Encoder {
	if model == "" {
		model = DefaultModel
	}
	encoding, ok := LookupEncoding(model)
	if !ok {
		encoding = t.defaultEncoding
	}

	if enc, ok := t.cache.Get(encoding); ok {
		return enc
	}

	enc, err := t.loader(encoding)
	if err != nil && encoding != t.defaultEncoding {
		t.logger.Warn("Encoding unavailable, using default", "model", model, "encoding", encoding, "error", err)
		enc, err = t.loader(t.defaultEncoding)
	}
	if err != nil {
		t.logger.Warn("Default encoding unavailable, counting runes", "model", model, "error", err)
		enc = RuneEncoder{}
	}

	t.cache.Add(encoding, enc)
	return enc
}

// Encode returns the token ids of text for model.
func (t *Tokenizer) Encode(text, model string) []int {
	return t.EncoderFor(model).Encode(text)
}

// Count returns the number of tokens text encodes to for model.
func (t *Tokenizer) Count(text, model string) int {
	if text == "" {
		return 0
	}
	return len(t.EncoderFor(model).Encode(text))
}

// Truncate returns text cut to at most maxTokens tokens. Text that already
// fits is returned unchanged. A decoded prefix may re-encode to more tokens
// than it was cut from, so the prefix shrinks until it fits.
func (t *Tokenizer) Truncate(text string, maxTokens int, model string) string {
	if maxTokens <= 0 {
		return ""
	}
	enc := t.EncoderFor(model)
	ids := enc.Encode(text)
	if len(ids) <= maxTokens {
		return text
	}

	for n := maxTokens; n > 0; n-- {
		prefix := enc.Decode(ids[:n])
		if len(enc.Encode(prefix)) <= maxTokens {
			return prefix
		}
	}
	return ""
}

// Chunk splits text into windows of chunkSize tokens where consecutive
// windows share overlap tokens. The last window may be shorter.
func (t *Tokenizer) Chunk(text string, chunkSize, overlap int, model string) ([]string, error) {
	if chunkSize <= 0 || overlap < 0 || overlap >= chunkSize {
		return nil, errortypes.ConfigError(ErrInvalidChunking,
			fmt.Sprintf("invalid chunking (size=%d, overlap=%d)", chunkSize, overlap)).
			WithField("chunk_size", chunkSize).
			WithField("overlap", overlap)
	}

	enc := t.EncoderFor(model)
	ids := enc.Encode(text)
	chunks := make([]string, 0, len(ids)/(chunkSize-overlap)+1)

	for start := 0; start < len(ids); {
		end := min(start+chunkSize, len(ids))
		chunks = append(chunks, enc.Decode(ids[start:end]))
		if end >= len(ids) {
			break
		}
		start = end - overlap
	}
	return chunks, nil
}
