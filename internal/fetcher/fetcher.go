// Package fetcher retrieves remote ActivityPub objects, actors, and media
// over a coalescing, TTL-cached, SSRF-safe HTTP client: the read half of
// federation, as opposed to internal/jobqueue which delivers.
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/klppl/mitra/internal/activitypub"
	"github.com/klppl/mitra/internal/httpagent"
)

// ErrGone is returned when a remote resource responds with HTTP 410 Gone,
// typically meaning the actor or object has been deleted.
var ErrGone = errors.New("fetcher: resource gone (410)")

// ErrTooLarge is returned when a fetched response exceeds MaxResponseBytes.
var ErrTooLarge = errors.New("fetcher: response exceeds size limit")

// CacheMode controls how ResolveActor interacts with the actor cache.
type CacheMode int

const (
	// CacheDefault serves a fresh cache entry if one exists, else fetches.
	CacheDefault CacheMode = iota
	// CacheOnlyRemote never touches the cache, always performing a network
	// fetch — used when the caller needs the current, possibly-updated
	// actor document (e.g. verifying a signature against a rotated key).
	CacheOnlyRemote
	// CacheForceRefetch fetches over the network and overwrites any
	// existing cache entry, used after receiving an explicit Update(Person).
	CacheForceRefetch
)

const (
	// MaxResponseBytes bounds how much of a fetched response this codebase
	// will buffer, independent of any Content-Length the peer reports.
	MaxResponseBytes = 2 << 20 // 2 MiB

	// MaxCollectionPages bounds how many pages of a paginated collection
	// FetchCollection will walk, guarding against a
	// maliciously long or cyclic collection.
	MaxCollectionPages = 20

	// MaxCollectionItems additionally bounds the total item count
	// accumulated across all pages of a single collection walk.
	MaxCollectionItems = 2000

	userAgentFormat = "mitra/%s (+%s)"
)

type cacheEntry struct {
	obj     map[string]interface{}
	expires time.Time
}

// inflight coalesces concurrent fetches of the same canonical URL so a
// burst of inbound activities referencing the same remote object triggers
// exactly one outbound request.
type inflight struct {
	done chan struct{}
	obj  map[string]interface{}
	err  error
}

// Fetcher fetches and caches remote ActivityPub resources.
type Fetcher struct {
	agentConfig httpagent.Config
	instanceURL string
	version     string

	objectCacheTTL time.Duration

	cache    sync.Map // url -> cacheEntry
	inflight sync.Map // url -> *inflight

	fetchTimeout    time.Duration
	fileFetchTimeout time.Duration

	allowedMediaTypes map[string]bool
}

// New builds a Fetcher. instanceURL and version populate the User-Agent
// header sent with every outbound request.
func New(agentConfig httpagent.Config, instanceURL, version string) *Fetcher {
	f := &Fetcher{
		agentConfig:      agentConfig,
		instanceURL:      instanceURL,
		version:          version,
		objectCacheTTL:   time.Hour,
		fetchTimeout:     10 * time.Second,
		fileFetchTimeout: 30 * time.Second,
		allowedMediaTypes: map[string]bool{
			"image/png": true, "image/jpeg": true, "image/gif": true,
			"image/webp": true, "image/avif": true,
			"video/mp4": true, "video/webm": true,
			"audio/mpeg": true, "audio/ogg": true,
		},
	}
	go f.sweepCache()
	return f
}

func (f *Fetcher) sweepCache() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		f.cache.Range(func(k, v any) bool {
			if now.After(v.(cacheEntry).expires) {
				f.cache.Delete(k)
			}
			return true
		})
	}
}

func (f *Fetcher) userAgent() string {
	return fmt.Sprintf(userAgentFormat, f.version, f.instanceURL)
}

// InvalidateCache removes rawURL from the object cache.
func (f *Fetcher) InvalidateCache(rawURL string) {
	f.cache.Delete(rawURL)
}

// FetchObject fetches and JSON-decodes a remote ActivityPub object,
// coalescing concurrent callers requesting the same URL and serving from
// cache when available.
func (f *Fetcher) FetchObject(ctx context.Context, rawURL string) (map[string]interface{}, error) {
	if cached, ok := f.cache.Load(rawURL); ok {
		entry := cached.(cacheEntry)
		if time.Now().Before(entry.expires) {
			return entry.obj, nil
		}
		f.cache.Delete(rawURL)
	}

	inflightValue, loaded := f.inflight.LoadOrStore(rawURL, &inflight{done: make(chan struct{})})
	ifl := inflightValue.(*inflight)
	if loaded {
		select {
		case <-ifl.done:
			return ifl.obj, ifl.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	obj, err := f.doFetchObject(ctx, rawURL)
	ifl.obj, ifl.err = obj, err
	close(ifl.done)
	f.inflight.Delete(rawURL)
	if err == nil {
		f.cache.Store(rawURL, cacheEntry{obj: obj, expires: time.Now().Add(f.objectCacheTTL)})
	}
	return obj, err
}

func (f *Fetcher) doFetchObject(ctx context.Context, rawURL string) (map[string]interface{}, error) {
	client, err := httpagent.NewClient(f.agentConfig, rawURL, f.fetchTimeout, true)
	if err != nil {
		return nil, fmt.Errorf("fetcher: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetcher: create request: %w", err)
	}
	req.Header.Set("Accept", activitypub.ApMediaType+", "+activitypub.LdJSONMediaType)
	req.Header.Set("User-Agent", f.userAgent())

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetcher: fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		return nil, ErrGone
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetcher: fetch %s: HTTP %d", rawURL, resp.StatusCode)
	}

	body, err := httpagent.LimitedRead(resp.Body, MaxResponseBytes)
	if err != nil {
		return nil, fmt.Errorf("fetcher: %w", err)
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("fetcher: decode response from %s: %w", rawURL, err)
	}
	return obj, nil
}

// FetchActor fetches a remote actor document.
func (f *Fetcher) FetchActor(ctx context.Context, actorURL string) (*activitypub.Actor, error) {
	obj, err := f.FetchObject(ctx, actorURL)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("fetcher: re-marshal actor: %w", err)
	}
	var actor activitypub.Actor
	if err := json.Unmarshal(data, &actor); err != nil {
		return nil, fmt.Errorf("fetcher: parse actor %s: %w", actorURL, err)
	}
	return &actor, nil
}

// ResolveActor resolves a "user@domain" handle to an actor document via
// WebFinger, honoring the requested CacheMode.
func (f *Fetcher) ResolveActor(ctx context.Context, handle string, mode CacheMode) (*activitypub.Actor, error) {
	name, domain, ok := strings.Cut(handle, "@")
	if !ok || name == "" || domain == "" {
		return nil, fmt.Errorf("fetcher: invalid handle %q: expected user@domain", handle)
	}
	cacheKey := "webfinger:" + strings.ToLower(handle)
	if mode == CacheDefault {
		if cached, ok := f.cache.Load(cacheKey); ok {
			entry := cached.(cacheEntry)
			if time.Now().Before(entry.expires) {
				return f.FetchActor(ctx, entry.obj["actorURL"].(string))
			}
		}
	}
	if mode == CacheForceRefetch {
		f.cache.Delete(cacheKey)
	}

	wfURL := fmt.Sprintf("https://%s/.well-known/webfinger?resource=acct:%s", domain, handle)
	obj, err := f.doFetchObject(ctx, wfURL)
	if err != nil {
		return nil, fmt.Errorf("fetcher: webfinger lookup for %s: %w", handle, err)
	}
	data, _ := json.Marshal(obj)
	var jrd JRD
	if err := json.Unmarshal(data, &jrd); err != nil {
		return nil, fmt.Errorf("fetcher: decode webfinger response for %s: %w", handle, err)
	}
	actorURL, ok := jrd.ActorLink()
	if !ok {
		return nil, fmt.Errorf("fetcher: no ActivityPub actor link found for %s", handle)
	}
	f.cache.Store(cacheKey, cacheEntry{
		obj:     map[string]interface{}{"actorURL": actorURL},
		expires: time.Now().Add(f.objectCacheTTL),
	})
	if mode == CacheForceRefetch {
		f.InvalidateCache(actorURL)
	}
	return f.FetchActor(ctx, actorURL)
}

// FetchFile downloads a remote media file, enforcing the media-type
// allow-list and MaxResponseBytes cap.
func (f *Fetcher) FetchFile(ctx context.Context, rawURL string) (data []byte, mediaType string, err error) {
	client, err := httpagent.NewClient(f.agentConfig, rawURL, f.fileFetchTimeout, true)
	if err != nil {
		return nil, "", fmt.Errorf("fetcher: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("fetcher: create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent())

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetcher: fetch file %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetcher: fetch file %s: HTTP %d", rawURL, resp.StatusCode)
	}

	declared := resp.Header.Get("Content-Type")
	mediaType = strings.TrimSpace(strings.SplitN(declared, ";", 2)[0])
	if !f.allowedMediaTypes[mediaType] {
		return nil, "", fmt.Errorf("fetcher: media type %q is not allowed", mediaType)
	}
	body, err := httpagent.LimitedRead(resp.Body, MaxResponseBytes)
	if err != nil {
		return nil, "", fmt.Errorf("fetcher: %w", err)
	}
	return body, mediaType, nil
}

// FetchCollection walks a paginated OrderedCollection (replies, outbox, ...)
// starting at collectionURL, invoking visit for each item encountered,
// bounded by MaxCollectionPages and MaxCollectionItems to guard against a
// maliciously long or cyclic collection.
func (f *Fetcher) FetchCollection(ctx context.Context, collectionURL string, visit func(item json.RawMessage) error) error {
	seen := make(map[string]bool)
	pageURL := collectionURL
	itemCount := 0

	root, err := f.FetchObject(ctx, collectionURL)
	if err != nil {
		return fmt.Errorf("fetcher: fetch collection %s: %w", collectionURL, err)
	}
	if first, ok := root["first"]; ok {
		switch v := first.(type) {
		case string:
			pageURL = v
		case map[string]interface{}:
			if id, ok := v["id"].(string); ok {
				pageURL = id
			}
		}
	} else if _, hasItems := root["orderedItems"]; hasItems {
		return consumeItems(root["orderedItems"], visit, &itemCount)
	}

	for pages := 0; pageURL != "" && pages < MaxCollectionPages; pages++ {
		if seen[pageURL] {
			slog.Warn("collection cycle detected, stopping walk", "url", pageURL)
			break
		}
		seen[pageURL] = true

		page, err := f.FetchObject(ctx, pageURL)
		if err != nil {
			return fmt.Errorf("fetcher: fetch collection page %s: %w", pageURL, err)
		}
		if err := consumeItems(page["orderedItems"], visit, &itemCount); err != nil {
			return err
		}
		if itemCount >= MaxCollectionItems {
			slog.Warn("collection item cap reached, stopping walk", "url", collectionURL, "items", itemCount)
			break
		}
		next, _ := page["next"].(string)
		pageURL = next
	}
	return nil
}

func consumeItems(raw interface{}, visit func(json.RawMessage) error, count *int) error {
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	for _, item := range items {
		if *count >= MaxCollectionItems {
			return nil
		}
		encoded, err := json.Marshal(item)
		if err != nil {
			continue
		}
		if err := visit(encoded); err != nil {
			return err
		}
		*count++
	}
	return nil
}
