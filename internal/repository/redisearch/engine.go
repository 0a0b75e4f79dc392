// Package redisearch implements repository.SearchEngine on Redis 8+/Valkey with the
// search module. Projection documents are hashes indexed by an FT index.
package redisearch

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/redis/rueidis"

	"github.com/and161185/memoriz/internal/errs"
	"github.com/and161185/memoriz/internal/model"
	"github.com/and161185/memoriz/internal/repository"
)

var _ repository.SearchEngine = (*Engine)(nil)

const (
	defaultIndex  = "memoriz"
	defaultPrefix = "memoriz:entry:"
	defaultLimit  = 100

	fieldUUID    = "uuid"
	fieldTitle   = "title"
	fieldContent = "content"
	fieldOwner   = "owner"
)

// Config holds connection and index parameters.
type Config struct {
	Index  string
	Host   string
	Port   int
	Token  string
	Prefix string
	// Limit caps the number of ids returned per search.
	Limit int
}

func (c *Config) applyDefaults() {
	if c.Index == "" {
		c.Index = defaultIndex
	}
	if c.Prefix == "" {
		c.Prefix = defaultPrefix
	}
	if c.Limit <= 0 {
		c.Limit = defaultLimit
	}
}

// Engine is a rueidis-backed search engine.
type Engine struct {
	client rueidis.Client
	cfg    Config
}

// New connects to the search service.
func New(cfg Config) (*Engine, error) {
	if cfg.Host == "" {
		return nil, errs.New("search.connect", errs.ErrSearchService)
	}
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))},
		Password:     cfg.Token,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
	})
	if err != nil {
		return nil, errs.Wrap("search.connect", errs.ErrSearchService, fmt.Errorf("failed to create client: %w", err))
	}
	return NewWithClient(client, cfg), nil
}

// NewWithClient wraps an existing client. Used by tests with a mocked client.
func NewWithClient(c rueidis.Client, cfg Config) *Engine {
	cfg.applyDefaults()
	return &Engine{client: c, cfg: cfg}
}

// EnsureIndex creates the FT index unless it already exists.
func (e *Engine) EnsureIndex(ctx context.Context) error {
	const op = "search.ensure_index"

	info := e.client.B().Arbitrary("FT.INFO").Args(e.cfg.Index).Build()
	err := e.client.Do(ctx, info).Error()
	if err == nil {
		return nil
	}
	if !isRedisErr(err, "unknown index name") && !isRedisErr(err, "no such index") {
		return errs.Wrap(op, errs.ErrSearchService, err)
	}

	create := e.client.B().Arbitrary("FT.CREATE").Args(
		e.cfg.Index, "ON", "HASH",
		"PREFIX", "1", e.cfg.Prefix,
		"SCHEMA",
		fieldTitle, "TEXT", "WEIGHT", "2",
		fieldContent, "TEXT",
		fieldOwner, "TAG",
		fieldUUID, "TAG",
	).Build()
	if err := e.client.Do(ctx, create).Error(); err != nil {
		// Lost a race with another instance.
		if isRedisErr(err, "index already exists") {
			return nil
		}
		return errs.Wrap(op, errs.ErrSearchService, err)
	}
	return nil
}

// IndexEntry upserts the projection document of en.
func (e *Engine) IndexEntry(ctx context.Context, en model.Entry) error {
	doc := en.Projection()
	cmd := e.client.B().Hset().Key(e.key(doc.UUID)).FieldValue().
		FieldValue(fieldUUID, doc.UUID.String()).
		FieldValue(fieldTitle, doc.Title).
		FieldValue(fieldContent, doc.Content).
		FieldValue(fieldOwner, doc.Owner.String()).
		Build()
	if err := e.client.Do(ctx, cmd).Error(); err != nil {
		return errs.Wrap("search.index", errs.ErrSearchService, err)
	}
	return nil
}

// RemoveEntry deletes the projection document. A missing document is not an error.
func (e *Engine) RemoveEntry(ctx context.Context, id uuid.UUID) error {
	cmd := e.client.B().Del().Key(e.key(id)).Build()
	if err := e.client.Do(ctx, cmd).Error(); err != nil {
		return errs.Wrap("search.remove", errs.ErrSearchService, err)
	}
	return nil
}

// SearchEntries runs a full-text query restricted to owner's documents and returns
// entry ids in relevance order.
func (e *Engine) SearchEntries(ctx context.Context, owner uuid.UUID, query string) ([]uuid.UUID, error) {
	const op = "search.query"

	q := fmt.Sprintf("@%s:{%s}", fieldOwner, tagEscaper.Replace(owner.String()))
	if text := strings.TrimSpace(query); text != "" {
		q += " " + escapeQuery(text)
	}

	cmd := e.client.B().Arbitrary("FT.SEARCH").Args(
		e.cfg.Index, q,
		"RETURN", "1", fieldUUID,
		"LIMIT", "0", strconv.Itoa(e.cfg.Limit),
		"DIALECT", "2",
	).Build()
	raw, err := e.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return nil, errs.Wrap(op, errs.ErrSearchService, err)
	}
	ids, err := e.parseHits(raw)
	if err != nil {
		return nil, errs.Wrap(op, errs.ErrSearchService, err)
	}
	return ids, nil
}

// Ping checks connectivity.
func (e *Engine) Ping(ctx context.Context) error {
	if err := e.client.Do(ctx, e.client.B().Ping().Build()).Error(); err != nil {
		return errs.Wrap("search.ping", errs.ErrSearchService, err)
	}
	return nil
}

// Close shuts down the client.
func (e *Engine) Close() { e.client.Close() }

func (e *Engine) key(id uuid.UUID) string { return e.cfg.Prefix + id.String() }

// parseHits reads a RESP2 FT.SEARCH reply: [total, key1, fields1, key2, fields2, ...].
// The uuid field is preferred; the key suffix is the fallback. Unparsable hits are skipped.
func (e *Engine) parseHits(raw []rueidis.RedisMessage) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return []uuid.UUID{}, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}

	ids := make([]uuid.UUID, 0, min(int(total), e.cfg.Limit))
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		val, ok := parseFieldPairs(fields)[fieldUUID]
		if !ok {
			val = strings.TrimPrefix(key, e.cfg.Prefix)
		}
		id, err := uuid.FromString(val)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// isRedisErr checks if err is a Redis server error containing substr (case-insensitive).
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`:`, `\:`,
)

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"{", "\\{",
	"}", "\\}",
	":", "\\:",
	"-", "\\-",
	" ", "\\ ",
)
