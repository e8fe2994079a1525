package musicembed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	// commonUserAgent is the user agent string used for all HTTP requests.
	commonUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	// commonAcceptHeader is the accept header used for page fetches.
	commonAcceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	// defaultHTTPTimeout bounds every platform call; the platforms give
	// no latency guarantees and an unbounded wait would stall the whole
	// message.
	defaultHTTPTimeout = 10 * time.Second
	// maxHTTPRedirects is the maximum number of HTTP redirects to follow.
	maxHTTPRedirects = 5
	// maxPageReadSize caps how much of a platform page is read into memory.
	maxPageReadSize = 4 << 20
)

// ErrTooManyRedirects is returned when too many redirects are encountered.
var ErrTooManyRedirects = errors.New("too many redirects")

// separatorPattern matches an artist/title separator: a hyphen, en dash,
// or em dash with whitespace on both sides. Dashes glued to their
// neighbors (hyphenated names) never count.
var separatorPattern = regexp.MustCompile(`\s+[-–—]\s+`)

// newHTTPClient creates an HTTP client with standard settings and a
// redirect cap.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: defaultHTTPTimeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxHTTPRedirects {
				return ErrTooManyRedirects
			}
			return nil
		},
	}
}

// fetchPage fetches a platform page as a string, with browser-ish headers
// and a size limit.
func fetchPage(ctx context.Context, client *http.Client, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", commonUserAgent)
	req.Header.Set("Accept", commonAcceptHeader)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageReadSize))
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}
	return string(body), nil
}

// readBody reads a response body as a string with the common size limit.
func readBody(resp *http.Response) (string, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageReadSize))
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}
	return string(body), nil
}

// fetchJSON GETs a URL and decodes the JSON response into dest.
func fetchJSON(ctx context.Context, client *http.Client, reqURL string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", commonUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: status %d", reqURL, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// splitArtistTitle splits "Artist - Title" on the first free-standing
// separator. A separator inside a parenthetical ("Track (Other - Edit)")
// does not split; those dashes belong to the parenthetical text.
func splitArtistTitle(s string) (artist, title string, ok bool) {
	loc := separatorPattern.FindStringIndex(s)
	if loc == nil {
		return "", "", false
	}
	if insideParens(s, loc[0]) {
		return "", "", false
	}
	artist = strings.TrimSpace(s[:loc[0]])
	title = strings.TrimSpace(s[loc[1]:])
	if artist == "" || title == "" {
		return "", "", false
	}
	return artist, title, true
}

// hasSeparator reports whether s contains a free-standing artist/title
// separator outside any parenthetical.
func hasSeparator(s string) bool {
	_, _, ok := splitArtistTitle(s)
	return ok
}

func insideParens(s string, idx int) bool {
	depth := 0
	for _, r := range s[:idx] {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		}
	}
	return depth > 0
}

// containsFold reports whether substr appears in s, case-insensitively.
func containsFold(s, substr string) bool {
	return substr != "" && strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// equalFold is a readability alias for case-insensitive string equality.
func equalFold(a, b string) bool {
	return strings.EqualFold(a, b)
}
