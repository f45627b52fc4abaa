package apiexternal

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/nekomata-dev/subdex/pkg/main/config"
	"github.com/nekomata-dev/subdex/pkg/main/logger"
	"github.com/nekomata-dev/subdex/pkg/main/relations"
	"github.com/pkg/errors"
)

// relationsClient fetches the episode relation table from its upstream
// mirror and caches the parsed document keyed by last_modified. Callers
// revalidate through Current, which only downloads the full table when
// the upstream date probe reports a newer stamp.
type relationsClient struct {
	client  *httpClient
	url     string
	dateURL string

	mu           sync.RWMutex
	cached       *relations.Document
	lastModified string
}

// dateResponse is the shape of the date probe endpoint.
type dateResponse struct {
	LastModified string `json:"last_modified"`
}

var (
	relMu  sync.RWMutex
	relAPI *relationsClient
)

// NewRelationsClient initializes the global relations client from config.
func NewRelationsClient(cfg *config.RelationsConfig) {
	relMu.Lock()
	defer relMu.Unlock()

	relAPI = &relationsClient{
		client:  newClient("relations", cfg.TimeoutSeconds),
		url:     cfg.URL,
		dateURL: cfg.DateURL,
	}
}

func getRelationsClient() *relationsClient {
	relMu.RLock()
	defer relMu.RUnlock()
	return relAPI
}

// FetchRelations downloads and parses the full relation table, replacing
// the cached document on success. The cached document is left untouched
// on failure so a transient outage does not drop resolutions.
func FetchRelations(ctx context.Context) (*relations.Document, error) {
	c := getRelationsClient()
	if c == nil {
		return nil, errors.New("relations client not initialized")
	}
	return c.fetch(ctx)
}

// CurrentRelations returns the relation table to use right now. It probes
// the upstream date endpoint and refetches only when the stamp differs
// from the cached one. Every failure path degrades to the cached document
// or, lacking one, to an empty table; resolution then passes episode
// numbers through unchanged.
func CurrentRelations(ctx context.Context) *relations.Document {
	c := getRelationsClient()
	if c == nil {
		return relations.Empty()
	}
	return c.current(ctx)
}

// CachedRelations returns the cached document without any network access.
func CachedRelations() *relations.Document {
	c := getRelationsClient()
	if c == nil {
		return relations.Empty()
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cached == nil {
		return relations.Empty()
	}
	return c.cached
}

func (c *relationsClient) fetch(ctx context.Context) (*relations.Document, error) {
	var doc *relations.Document
	err := c.client.processHTTP(ctx, c.url, func(_ context.Context, resp *http.Response) error {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return errors.Wrap(err, "read relations body")
		}
		doc, err = decodeRelations(resp.Header.Get("Content-Type"), body)
		return err
	})
	if err != nil {
		return nil, err
	}
	// A table with zero rules is a truncated or garbage download, not a
	// real upstream state. Refusing it keeps the previous cache alive.
	if len(doc.Relations) == 0 {
		return nil, logger.ErrTableEmpty
	}

	if problems := relations.CheckTable(doc); len(problems) != 0 {
		relations.LogProblems(problems)
	}

	c.mu.Lock()
	c.cached = doc
	c.lastModified = doc.LastModified
	c.mu.Unlock()

	logger.LogDynamicany(logger.StrInfo, "relation table refreshed",
		"last_modified", doc.LastModified, "series", len(doc.Relations))
	return doc, nil
}

func (c *relationsClient) current(ctx context.Context) *relations.Document {
	c.mu.RLock()
	cached, stamp := c.cached, c.lastModified
	c.mu.RUnlock()

	// Without a date endpoint every revalidation refetches the full
	// document. A failed probe only short-circuits to the cache when
	// there is a cache; an empty one still warrants a fetch attempt.
	if c.dateURL != "" {
		remote, err := c.remoteDate(ctx)
		if err == nil && cached != nil && remote == stamp {
			return cached
		}
		if err != nil {
			logger.LogDynamicany(logger.StrWarn, "relation date probe failed", "err", err)
			if cached != nil {
				return cached
			}
		}
	}

	doc, err := c.fetch(ctx)
	if err != nil {
		logger.LogDynamicany(logger.StrWarn, "relation refresh failed", "err", err)
		if cached != nil {
			return cached
		}
		return relations.Empty()
	}
	return doc
}

// remoteDate asks the date endpoint for the upstream last_modified stamp.
// It accepts either the JSON probe shape or a bare date string.
func (c *relationsClient) remoteDate(ctx context.Context) (string, error) {
	if c.dateURL == "" {
		return "", errors.New("no date url configured")
	}

	var stamp string
	err := c.client.processHTTP(ctx, c.dateURL, func(_ context.Context, resp *http.Response) error {
		body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err != nil {
			return errors.Wrap(err, "read date body")
		}
		trimmed := strings.TrimSpace(string(body))
		if strings.HasPrefix(trimmed, "{") {
			var dr dateResponse
			if err := json.Unmarshal(body, &dr); err != nil {
				return errors.Wrap(err, "decode date response")
			}
			stamp = dr.LastModified
			return nil
		}
		stamp = strings.Trim(trimmed, `"`)
		return nil
	})
	if err != nil {
		return "", err
	}
	if stamp == "" {
		return "", errors.New("empty last_modified stamp")
	}
	return stamp, nil
}

// decodeRelations parses a downloaded relation table. The canonical mirror
// serves the plain text rule grammar; a JSON re-serialization of a parsed
// document is accepted as well.
func decodeRelations(contentType string, body []byte) (*relations.Document, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.Contains(contentType, "application/json") || strings.HasPrefix(trimmed, "{") {
		var doc relations.Document
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, errors.Wrap(err, "decode relations json")
		}
		if doc.Relations == nil {
			doc.Relations = make(map[int64][]relations.Rule)
		}
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = time.Now().UTC()
		}
		return &doc, nil
	}
	return relations.Parse(trimmed)
}
