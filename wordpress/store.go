// Package wordpress implements contentsync.ContentStore over the WordPress
// REST API (wp/v2). Page-builder documents, languages and translation groups
// are kept in post meta, which the site must expose through register_meta.
package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fwojciec/contentsync"
	"github.com/google/uuid"
)

// Post meta keys used by the store.
const (
	MetaElementorData    = "_elementor_data"
	MetaLanguage         = "_contentsync_language"
	MetaTranslationGroup = "_contentsync_translation_group"
)

const (
	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 30 * time.Second

	// DefaultRPS is the default request rate per host.
	DefaultRPS = 2.0

	// maxPerPage is the largest page size wp/v2 accepts.
	maxPerPage = 100

	// wpTimeLayout is the layout of date_gmt and modified_gmt.
	wpTimeLayout = "2006-01-02T15:04:05"
)

// Ensure Store implements contentsync.ContentStore at compile time.
var _ contentsync.ContentStore = (*Store)(nil)

// Store is a WordPress REST content store for a single post type.
type Store struct {
	base     *url.URL
	postType string
	user     string
	password string
	client   *http.Client
	limiter  *HostLimiter
	delays   []time.Duration
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithPostType sets the REST base of the post type, such as "pages" or
// "product". Defaults to "posts".
func WithPostType(postType string) Option {
	return func(s *Store) {
		s.postType = postType
	}
}

// WithCredentials sets the user name and application password.
func WithCredentials(user, password string) Option {
	return func(s *Store) {
		s.user = user
		s.password = password
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Store) {
		s.client = c
	}
}

// WithLimiter sets the per-host rate limiter. Stores created with the same
// limiter share its budget.
func WithLimiter(l *HostLimiter) Option {
	return func(s *Store) {
		s.limiter = l
	}
}

// WithRetryDelays sets the backoff delays for retryable failures.
// An empty slice disables retries.
func WithRetryDelays(delays []time.Duration) Option {
	return func(s *Store) {
		s.delays = delays
	}
}

// WithLogger sets the logger used to report retries.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a Store for the site at siteURL.
// Returns EINVALID if siteURL is not an absolute http(s) URL.
func NewStore(siteURL string, opts ...Option) (*Store, error) {
	u, err := url.Parse(strings.TrimRight(siteURL, "/"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, contentsync.Errorf(contentsync.EINVALID, "invalid site URL %q", siteURL)
	}

	s := &Store{
		base:     u,
		postType: "posts",
		delays:   DefaultRetryDelays(),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: DefaultTimeout}
	}
	if s.limiter == nil {
		s.limiter = NewHostLimiter(DefaultRPS, 1)
	}
	return s, nil
}

// post is the wp/v2 representation of a post in the edit context.
type post struct {
	ID          int                        `json:"id"`
	Type        string                     `json:"type"`
	Status      string                     `json:"status"`
	DateGMT     string                     `json:"date_gmt"`
	ModifiedGMT string                     `json:"modified_gmt"`
	Title       rendered                   `json:"title"`
	Content     rendered                   `json:"content"`
	Meta        map[string]json.RawMessage `json:"meta"`
}

type rendered struct {
	Raw      string `json:"raw"`
	Rendered string `json:"rendered"`
}

func (p *post) toContent() *contentsync.Content {
	c := &contentsync.Content{
		ID:     p.ID,
		Type:   p.Type,
		Title:  p.Title.Raw,
		Body:   p.Content.Raw,
		Status: contentsync.Status(p.Status),
		Meta:   make(map[string]string),
	}
	if c.Title == "" {
		c.Title = p.Title.Rendered
	}
	if c.Body == "" {
		c.Body = p.Content.Rendered
	}

	for key, raw := range p.Meta {
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			// Only string meta is carried; arrays and objects belong to other plugins.
			continue
		}
		switch key {
		case MetaElementorData:
			c.Data = value
		case MetaLanguage:
			c.Language = value
		case MetaTranslationGroup:
			c.TranslationGroup = value
		default:
			c.Meta[key] = value
		}
	}

	c.CreatedAt, _ = time.Parse(wpTimeLayout, p.DateGMT)
	c.UpdatedAt, _ = time.Parse(wpTimeLayout, p.ModifiedGMT)
	return c
}

// FindContentByID retrieves a post by ID.
func (s *Store) FindContentByID(ctx context.Context, id int) (*contentsync.Content, error) {
	var p post
	if err := s.do(ctx, http.MethodGet, s.itemPath(id), url.Values{"context": {"edit"}}, nil, &p); err != nil {
		return nil, err
	}
	return p.toContent(), nil
}

// FindContents retrieves posts matching the filter. Language and translation
// group are matched on post meta; results are filtered locally as well in
// case the site ignores meta queries.
func (s *Store) FindContents(ctx context.Context, filter contentsync.ContentFilter) ([]*contentsync.Content, error) {
	q := url.Values{"context": {"edit"}, "orderby": {"id"}, "order": {"asc"}}
	if s.user != "" {
		q.Set("status", "any")
	}
	if filter.ID != nil {
		q.Set("include", strconv.Itoa(*filter.ID))
	}
	switch {
	case filter.TranslationGroup != nil:
		q.Set("meta_key", MetaTranslationGroup)
		q.Set("meta_value", *filter.TranslationGroup)
	case filter.Language != nil:
		q.Set("meta_key", MetaLanguage)
		q.Set("meta_value", *filter.Language)
	}
	if filter.Offset > 0 {
		q.Set("offset", strconv.Itoa(filter.Offset))
	}

	perPage := maxPerPage
	if filter.Limit > 0 && filter.Limit < maxPerPage {
		perPage = filter.Limit
	}
	q.Set("per_page", strconv.Itoa(perPage))

	var contents []*contentsync.Content
	for page := 1; ; page++ {
		q.Set("page", strconv.Itoa(page))

		var posts []post
		if err := s.do(ctx, http.MethodGet, s.collectionPath(), q, nil, &posts); err != nil {
			return nil, err
		}
		for i := range posts {
			c := posts[i].toContent()
			if matches(c, filter) {
				contents = append(contents, c)
			}
		}
		if len(posts) < perPage || (filter.Limit > 0 && len(contents) >= filter.Limit) {
			break
		}
	}

	if filter.Limit > 0 && len(contents) > filter.Limit {
		contents = contents[:filter.Limit]
	}
	return contents, nil
}

func matches(c *contentsync.Content, filter contentsync.ContentFilter) bool {
	if filter.ID != nil && c.ID != *filter.ID {
		return false
	}
	if filter.Type != nil && c.Type != *filter.Type {
		return false
	}
	if filter.Language != nil && c.Language != *filter.Language {
		return false
	}
	if filter.TranslationGroup != nil && c.TranslationGroup != *filter.TranslationGroup {
		return false
	}
	return true
}

// UpdateContent applies upd to a post. Meta entries are merged by WordPress.
func (s *Store) UpdateContent(ctx context.Context, id int, upd contentsync.ContentUpdate) error {
	if upd.Status != nil && !upd.Status.Valid() {
		return contentsync.Errorf(contentsync.EINVALID, "invalid content status %q", *upd.Status)
	}

	body := map[string]any{}
	meta := map[string]string{}
	for k, v := range upd.Meta {
		meta[k] = v
	}
	if upd.Title != nil {
		body["title"] = *upd.Title
	}
	if upd.Body != nil {
		body["content"] = *upd.Body
	}
	if upd.Status != nil {
		body["status"] = string(*upd.Status)
	}
	if upd.Data != nil {
		meta[MetaElementorData] = *upd.Data
	}
	if upd.Language != nil {
		meta[MetaLanguage] = *upd.Language
	}
	if len(meta) > 0 {
		body["meta"] = meta
	}

	return s.do(ctx, http.MethodPost, s.itemPath(id), nil, body, nil)
}

// CloneContents duplicates each source post as a draft. WordPress has no bulk
// copy endpoint, so posts are copied one by one; a source without a
// translation group is given one first. Per-post failures are reported in
// the result. An error is returned only when ctx is done.
func (s *Store) CloneContents(ctx context.Context, ids []int) (*contentsync.CloneContentsResult, error) {
	result := &contentsync.CloneContentsResult{
		Cloned: []contentsync.ClonePair{},
		Failed: []contentsync.CloneFailure{},
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cloneID, err := s.cloneOne(ctx, id)
		if err != nil {
			result.Failed = append(result.Failed, contentsync.CloneFailure{ID: id, Reason: contentsync.ErrorMessage(err)})
			continue
		}
		result.Cloned = append(result.Cloned, contentsync.ClonePair{OriginalID: id, CloneID: cloneID})
	}
	return result, nil
}

func (s *Store) cloneOne(ctx context.Context, id int) (int, error) {
	src, err := s.FindContentByID(ctx, id)
	if err != nil {
		return 0, err
	}

	group := src.TranslationGroup
	if group == "" {
		group = uuid.New().String()
		body := map[string]any{"meta": map[string]string{MetaTranslationGroup: group}}
		if err := s.do(ctx, http.MethodPost, s.itemPath(id), nil, body, nil); err != nil {
			return 0, err
		}
	}

	meta := make(map[string]string, len(src.Meta)+4)
	for k, v := range src.Meta {
		meta[k] = v
	}
	meta[contentsync.MetaSourceID] = strconv.Itoa(src.ID)
	meta[MetaTranslationGroup] = group
	if src.Language != "" {
		meta[MetaLanguage] = src.Language
	}
	if src.Data != "" {
		meta[MetaElementorData] = src.Data
	}

	body := map[string]any{
		"title":   src.Title,
		"content": src.Body,
		"status":  string(contentsync.StatusDraft),
		"meta":    meta,
	}
	var created post
	if err := s.do(ctx, http.MethodPost, s.collectionPath(), nil, body, &created); err != nil {
		return 0, err
	}
	return created.ID, nil
}

func (s *Store) collectionPath() string {
	return "/wp-json/wp/v2/" + s.postType
}

func (s *Store) itemPath(id int) string {
	return s.collectionPath() + "/" + strconv.Itoa(id)
}

// do sends a request with rate limiting and retries, and decodes the
// response into out when out is not nil.
func (s *Store) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := *s.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()
	endpoint := u.String()

	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	return withRetry(ctx, s.delays, func(ctx context.Context) (bool, error) {
		if err := s.limiter.Wait(ctx, s.base.Host); err != nil {
			return false, err
		}

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
		if err != nil {
			return false, err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if s.user != "" {
			req.SetBasicAuth(s.user, s.password)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return ctx.Err() == nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return retryable(resp.StatusCode), responseError(resp, method, path)
		}
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return false, nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return false, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
		return false, nil
	}, func(n int, err error) {
		s.logger.Warn("retrying wordpress request", "method", method, "path", path, "attempt", n, "error", err)
	})
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// responseError maps a wp/v2 error response to a contentsync error code.
func responseError(resp *http.Response, method, path string) error {
	var wpErr struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&wpErr)

	msg := wpErr.Message
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return contentsync.Errorf(contentsync.ENOTFOUND, "content not found")
	case http.StatusBadRequest:
		return contentsync.Errorf(contentsync.EINVALID, "%s", msg)
	case http.StatusUnauthorized, http.StatusForbidden:
		return contentsync.Errorf(contentsync.EUNAUTHORIZED, "%s", msg)
	case http.StatusConflict:
		return contentsync.Errorf(contentsync.ECONFLICT, "%s", msg)
	default:
		return fmt.Errorf("wordpress: HTTP %d for %s %s: %s", resp.StatusCode, method, path, msg)
	}
}
