package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/crossfade-dev/crossfade/internal/resilience"
	"github.com/crossfade-dev/crossfade/internal/shared"
)

const (
	// YouTubeName identifies the provider in PIF source_service fields,
	// breaker registries, and CLI flags.
	YouTubeName = "youtube"
	// YouTubeIDKey is the provider id key under which video ids are stored
	// in PIF provider_ids maps.
	YouTubeIDKey = "youtube_video_id"

	// ytMaxPageSize is the API's ceiling for maxResults on list endpoints.
	ytMaxPageSize = 50
	// ytMaxBatchIDs is the API's ceiling for comma-joined ids per videos call.
	ytMaxBatchIDs = 50

	topicSuffix = " - Topic"
)

// YouTubeOptions configures a YouTubeClient.
type YouTubeOptions struct {
	// BaseURL is the API root, e.g. https://www.googleapis.com/youtube/v3.
	BaseURL string
	// APIKey is sent as the key query parameter on every request.
	APIKey string
	// AccessToken, when set, authenticates requests with a bearer token.
	// Write endpoints (playlist creation, item insertion) require it.
	AccessToken string
	// PageSize is the maxResults value for playlist item pages. Values
	// outside 1..50 are clamped to 50.
	PageSize int
	// RequestsPerSecond caps the client's outbound request rate.
	RequestsPerSecond float64
}

// YouTubeClient talks to the YouTube Data API v3.
//
// All calls wait on the client's rate limiter before passing through the
// circuit breaker; a rejection by either never reaches the network.
type YouTubeClient struct {
	baseURL  string
	apiKey   string
	pageSize int
	client   *http.Client
	limiter  *resilience.RateLimiter
	breaker  *resilience.Breaker
}

// NewYouTubeClient builds a client from opts, guarded by breaker.
func NewYouTubeClient(ctx context.Context, opts YouTubeOptions, breaker *resilience.Breaker) *YouTubeClient {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	if opts.AccessToken != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.AccessToken, TokenType: "Bearer"})
		httpClient = oauth2.NewClient(ctx, src)
		httpClient.Timeout = 30 * time.Second
	}

	pageSize := opts.PageSize
	if pageSize < 1 || pageSize > ytMaxPageSize {
		pageSize = ytMaxPageSize
	}

	return &YouTubeClient{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		apiKey:   opts.APIKey,
		pageSize: pageSize,
		client:   httpClient,
		limiter:  resilience.NewRateLimiter(opts.RequestsPerSecond),
		breaker:  breaker,
	}
}

// Name implements the provider identity used for breakers and PIF metadata.
func (c *YouTubeClient) Name() string { return YouTubeName }

// IDKey implements the provider id key used in PIF provider_ids maps.
func (c *YouTubeClient) IDKey() string { return YouTubeIDKey }

// Wire shapes, decoded at the client boundary only.

type ytPlaylistList struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"snippet"`
		ContentDetails struct {
			ItemCount int `json:"itemCount"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type ytPlaylistItemList struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type ytVideoList struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type ytSearchList struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

type ytCreatedPlaylist struct {
	ID string `json:"id"`
}

// Playlist fetches a playlist's metadata without its membership.
func (c *YouTubeClient) Playlist(ctx context.Context, playlistID string) (*PlaylistInfo, error) {
	query := url.Values{}
	query.Set("part", "snippet,contentDetails")
	query.Set("id", playlistID)

	var list ytPlaylistList
	if err := c.doRequest(ctx, http.MethodGet, "/playlists", query, nil, &list); err != nil {
		return nil, err
	}
	if len(list.Items) == 0 {
		return nil, fmt.Errorf("%w: youtube playlist %s", shared.ErrPlaylistNotFound, playlistID)
	}

	item := list.Items[0]
	return &PlaylistInfo{
		ID:          item.ID,
		Title:       item.Snippet.Title,
		Description: item.Snippet.Description,
		ItemCount:   item.ContentDetails.ItemCount,
	}, nil
}

// PlaylistItems fetches one page of a playlist's membership. Pass an empty
// pageToken for the first page; the returned NextPageToken is empty on the
// last one.
func (c *YouTubeClient) PlaylistItems(ctx context.Context, playlistID, pageToken string) (*ItemPage, error) {
	query := url.Values{}
	query.Set("part", "contentDetails")
	query.Set("playlistId", playlistID)
	query.Set("maxResults", strconv.Itoa(c.pageSize))
	if pageToken != "" {
		query.Set("pageToken", pageToken)
	}

	var list ytPlaylistItemList
	if err := c.doRequest(ctx, http.MethodGet, "/playlistItems", query, nil, &list); err != nil {
		return nil, err
	}

	page := &ItemPage{NextPageToken: list.NextPageToken}
	for _, item := range list.Items {
		if item.ContentDetails.VideoID != "" {
			page.TrackIDs = append(page.TrackIDs, item.ContentDetails.VideoID)
		}
	}
	return page, nil
}

// Tracks fetches metadata for up to 50 videos in a single call.
//
// Uploader labels have any trailing " - Topic" decoration stripped, and
// durations arrive in ISO-8601 form and are converted to milliseconds, 0 when
// absent or unparseable.
func (c *YouTubeClient) Tracks(ctx context.Context, ids []string) ([]TrackDetail, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > ytMaxBatchIDs {
		return nil, fmt.Errorf("%w: at most %d video ids per call, got %d", shared.ErrInvalidArgument, ytMaxBatchIDs, len(ids))
	}

	query := url.Values{}
	query.Set("part", "snippet,contentDetails")
	query.Set("id", strings.Join(ids, ","))

	var list ytVideoList
	if err := c.doRequest(ctx, http.MethodGet, "/videos", query, nil, &list); err != nil {
		return nil, err
	}

	details := make([]TrackDetail, 0, len(list.Items))
	for _, item := range list.Items {
		label := item.Snippet.ChannelTitle
		label = strings.TrimSpace(strings.TrimSuffix(label, topicSuffix))
		details = append(details, TrackDetail{
			ID:          item.ID,
			Title:       item.Snippet.Title,
			ArtistLabel: label,
			DurationMS:  parseISODuration(item.ContentDetails.Duration),
		})
	}
	return details, nil
}

// Search returns the id of the best video match for query, or an empty string
// when the provider reports no results.
func (c *YouTubeClient) Search(ctx context.Context, searchQuery string) (string, error) {
	query := url.Values{}
	query.Set("part", "snippet")
	query.Set("type", "video")
	query.Set("maxResults", "1")
	query.Set("q", searchQuery)

	var list ytSearchList
	if err := c.doRequest(ctx, http.MethodGet, "/search", query, nil, &list); err != nil {
		return "", err
	}
	if len(list.Items) == 0 {
		return "", nil
	}
	return list.Items[0].ID.VideoID, nil
}

// CreatePlaylist creates an empty playlist and returns its id.
func (c *YouTubeClient) CreatePlaylist(ctx context.Context, name, description string) (string, error) {
	query := url.Values{}
	query.Set("part", "snippet")

	body := map[string]any{
		"snippet": map[string]string{
			"title":       name,
			"description": description,
		},
	}

	var created ytCreatedPlaylist
	if err := c.doRequest(ctx, http.MethodPost, "/playlists", query, body, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("%w: youtube returned no playlist id", shared.ErrAPIRequest)
	}
	return created.ID, nil
}

// AddTracks appends up to 50 videos to a playlist, preserving order. The
// batch is all-or-nothing from the caller's perspective: the first failed
// insertion aborts the rest and the whole batch reports as failed.
func (c *YouTubeClient) AddTracks(ctx context.Context, playlistID string, ids []string) error {
	if len(ids) > ytMaxBatchIDs {
		return fmt.Errorf("%w: at most %d video ids per batch, got %d", shared.ErrInvalidArgument, ytMaxBatchIDs, len(ids))
	}

	query := url.Values{}
	query.Set("part", "snippet")

	for _, id := range ids {
		body := map[string]any{
			"snippet": map[string]any{
				"playlistId": playlistID,
				"resourceId": map[string]string{
					"kind":    "youtube#video",
					"videoId": id,
				},
			},
		}
		if err := c.doRequest(ctx, http.MethodPost, "/playlistItems", query, body, nil); err != nil {
			return fmt.Errorf("failed to insert video %s: %w", id, err)
		}
	}
	return nil
}

// doRequest throttles, then runs the HTTP exchange through the breaker.
func (c *YouTubeClient) doRequest(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Throttle(ctx); err != nil {
		return fmt.Errorf("rate limit wait aborted: %w", err)
	}
	return c.breaker.Execute(func() error {
		return c.send(ctx, method, path, query, body, out)
	})
}

func (c *YouTubeClient) send(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c.apiKey != "" {
		query.Set("key", c.apiKey)
	}
	endpoint := c.baseURL + path + "?" + query.Encode()

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

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
		return fmt.Errorf("%w: %s %s returned %d: %s", shared.ErrAPIRequest, method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

var isoDurationPattern = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// parseISODuration converts an ISO-8601 duration like PT3M5S to milliseconds.
// Malformed, empty, and non-positive values all normalize to 0.
func parseISODuration(raw string) int {
	m := isoDurationPattern.FindStringSubmatch(raw)
	if m == nil {
		return 0
	}

	days, _ := strconv.Atoi(zeroIfEmpty(m[1]))
	hours, _ := strconv.Atoi(zeroIfEmpty(m[2]))
	minutes, _ := strconv.Atoi(zeroIfEmpty(m[3]))
	seconds, _ := strconv.ParseFloat(zeroIfEmpty(m[4]), 64)

	totalSeconds := float64(((days*24+hours)*60+minutes)*60) + seconds
	ms := int(math.Round(totalSeconds * 1000))
	if ms <= 0 {
		return 0
	}
	return ms
}

func zeroIfEmpty(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
