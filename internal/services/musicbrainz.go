package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/crossfade-dev/crossfade/internal/catalog"
	"github.com/crossfade-dev/crossfade/internal/resilience"
	"github.com/crossfade-dev/crossfade/internal/shared"
)

// MusicBrainzName identifies the provider in breaker registries.
const MusicBrainzName = "musicbrainz"

// mbDefaultLimit caps recording search results when the caller asks for none.
const mbDefaultLimit = 10

// MusicBrainzOptions configures a MusicBrainzClient.
type MusicBrainzOptions struct {
	// BaseURL is the web service root, e.g. https://musicbrainz.org/ws/2.
	BaseURL string
	// UserAgent is sent on every request. MusicBrainz rejects anonymous
	// clients, so this is mandatory.
	UserAgent string
	// RequestsPerSecond caps the outbound rate. MusicBrainz's published
	// limit for anonymous access is 1 request per second.
	RequestsPerSecond float64
}

// MusicBrainzClient queries the MusicBrainz recording search endpoint and
// maps results to catalog candidates.
type MusicBrainzClient struct {
	baseURL   string
	userAgent string
	client    *http.Client
	limiter   *resilience.RateLimiter
	breaker   *resilience.Breaker
}

// NewMusicBrainzClient builds a client from opts, guarded by breaker.
func NewMusicBrainzClient(opts MusicBrainzOptions, breaker *resilience.Breaker) (*MusicBrainzClient, error) {
	if opts.UserAgent == "" {
		return nil, fmt.Errorf("%w: musicbrainz user agent is required", shared.ErrMissingConfig)
	}
	return &MusicBrainzClient{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   resilience.NewRateLimiter(opts.RequestsPerSecond),
		breaker:   breaker,
	}, nil
}

// Name implements the provider identity used for breakers.
func (c *MusicBrainzClient) Name() string { return MusicBrainzName }

type mbRecordingList struct {
	Recordings []struct {
		ID           string   `json:"id"`
		Title        string   `json:"title"`
		Length       int      `json:"length"`
		ISRCs        []string `json:"isrcs"`
		ArtistCredit []struct {
			Name string `json:"name"`
		} `json:"artist-credit"`
	} `json:"recordings"`
}

// SearchRecordings queries the recording index by title and artist and
// returns the results as catalog candidates. Recording lengths arrive in
// milliseconds and are carried through unchanged.
func (c *MusicBrainzClient) SearchRecordings(ctx context.Context, title, artist string, limit int) ([]catalog.Candidate, error) {
	if limit < 1 {
		limit = mbDefaultLimit
	}

	terms := []string{`recording:"` + luceneEscape(title) + `"`}
	if artist != "" {
		terms = append(terms, `artist:"`+luceneEscape(artist)+`"`)
	}

	query := url.Values{}
	query.Set("query", strings.Join(terms, " AND "))
	query.Set("fmt", "json")
	query.Set("limit", strconv.Itoa(limit))

	var list mbRecordingList
	if err := c.doRequest(ctx, "/recording", query, &list); err != nil {
		return nil, err
	}

	candidates := make([]catalog.Candidate, 0, len(list.Recordings))
	for _, rec := range list.Recordings {
		names := make([]string, 0, len(rec.ArtistCredit))
		for _, credit := range rec.ArtistCredit {
			if credit.Name != "" {
				names = append(names, credit.Name)
			}
		}
		isrc := ""
		if len(rec.ISRCs) > 0 {
			isrc = rec.ISRCs[0]
		}
		candidates = append(candidates, catalog.Candidate{
			MBID:       rec.ID,
			Title:      rec.Title,
			Artist:     strings.Join(names, ", "),
			DurationMS: rec.Length,
			ISRC:       isrc,
		})
	}
	return candidates, nil
}

func (c *MusicBrainzClient) doRequest(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Throttle(ctx); err != nil {
		return fmt.Errorf("rate limit wait aborted: %w", err)
	}
	return c.breaker.Execute(func() error {
		return c.send(ctx, path, query, out)
	})
}

func (c *MusicBrainzClient) send(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: GET %s returned %d: %s", shared.ErrAPIRequest, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// luceneEscape neutralizes embedded quotes so user text cannot break out of
// a quoted Lucene phrase.
func luceneEscape(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
