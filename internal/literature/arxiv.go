// Package literature extracts and resolves arXiv references cited in
// hypothesis reviews.
package literature

// #region imports
import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// #endregion imports

// #region extract

// Matches new-format arXiv identifiers (YYMM.NNNNN with 4 or 5 digits after
// the dot), optionally followed by a version suffix. Old-format identifiers
// like cs/0701001 are not recognized.
var arxivIDPattern = regexp.MustCompile(`(?i)arxiv[:\s]+(\d{4}\.\d{4,5})(v\d+)?`)

// ExtractArxivIDs pulls arXiv identifiers out of free text. Version suffixes
// are stripped and duplicates removed while preserving first-seen order.
func ExtractArxivIDs(text string) []string {
	matches := arxivIDPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	var ids []string
	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		id := m[1]
		if !seen[id] {
			ids = append(ids, id)
			seen[id] = true
		}
	}
	return ids
}

// #endregion extract

// #region types

// Paper is the metadata for one arXiv entry.
type Paper struct {
	ID        string
	Title     string
	Summary   string
	Authors   []string
	Published time.Time
}

// #endregion types

// #region atom

// Atom feed shapes for the arXiv export API.
type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string       `xml:"id"`
	Title     string       `xml:"title"`
	Summary   string       `xml:"summary"`
	Published string       `xml:"published"`
	Authors   []atomAuthor `xml:"author"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

// #endregion atom

// #region client

const defaultBaseURL = "http://export.arxiv.org/api/query"

// Client fetches paper metadata from the arXiv export API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a Client with a sane request timeout.
func NewClient() *Client {
	return &Client{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Lookup fetches metadata for the given arXiv identifiers. Unknown ids are
// silently absent from the result; a transport failure fails the whole call.
func (c *Client) Lookup(ctx context.Context, ids []string) ([]Paper, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := url.Values{}
	q.Set("id_list", strings.Join(ids, ","))
	q.Set("max_results", fmt.Sprintf("%d", len(ids)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("arxiv request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv query: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv query: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("arxiv read: %w", err)
	}
	return parseFeed(body)
}

// #endregion client

// #region parse-feed

func parseFeed(data []byte) ([]Paper, error) {
	var feed atomFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("arxiv feed: %w", err)
	}
	var papers []Paper
	for _, e := range feed.Entries {
		p := Paper{
			ID:      entryID(e.ID),
			Title:   strings.Join(strings.Fields(e.Title), " "),
			Summary: strings.TrimSpace(e.Summary),
		}
		for _, a := range e.Authors {
			p.Authors = append(p.Authors, a.Name)
		}
		if t, err := time.Parse(time.RFC3339, e.Published); err == nil {
			p.Published = t
		}
		papers = append(papers, p)
	}
	return papers, nil
}

// entryID strips the abs URL prefix and version suffix from an Atom entry id.
func entryID(raw string) string {
	id := raw
	if i := strings.LastIndex(id, "/abs/"); i >= 0 {
		id = id[i+len("/abs/"):]
	}
	if i := strings.LastIndexByte(id, 'v'); i > 0 {
		if _, rest := id[:i], id[i+1:]; allDigits(rest) && rest != "" {
			id = id[:i]
		}
	}
	return id
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// #endregion parse-feed
