// Package feeds provides RSS/Atom feed fetching and parsing for the
// collector. Parsed entries become pending articles; entries without a
// link are dropped.
package feeds

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"ownnews/internal/core"
)

// RSS represents an RSS feed structure
type RSS struct {
	XMLName xml.Name `xml:"rss"`
	Channel Channel  `xml:"channel"`
}

// Channel represents an RSS channel
type Channel struct {
	Title       string    `xml:"title"`
	Description string    `xml:"description"`
	Link        string    `xml:"link"`
	Items       []RSSItem `xml:"item"`
}

// RSSItem represents an RSS item
type RSSItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	PubDate     string   `xml:"pubDate"`
	GUID        string   `xml:"guid"`
	Categories  []string `xml:"category"`
}

// Atom represents an Atom feed structure
type Atom struct {
	XMLName xml.Name    `xml:"feed"`
	Title   string      `xml:"title"`
	Entries []AtomEntry `xml:"entry"`
}

// AtomLink represents an Atom link element
type AtomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

// AtomCategory represents an Atom category element
type AtomCategory struct {
	Term string `xml:"term,attr"`
}

// AtomEntry represents an Atom entry
type AtomEntry struct {
	Title      string         `xml:"title"`
	Link       []AtomLink     `xml:"link"`
	Summary    string         `xml:"summary"`
	Published  string         `xml:"published"`
	Updated    string         `xml:"updated"`
	ID         string         `xml:"id"`
	Categories []AtomCategory `xml:"category"`
}

// Manager fetches and parses feeds.
type Manager struct {
	client    *http.Client
	userAgent string
}

// NewManager creates a feed manager.
func NewManager(timeout time.Duration, userAgent string) *Manager {
	if userAgent == "" {
		userAgent = "OwnNews Collector/1.0"
	}
	return &Manager{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Fetch downloads and parses one feed URL into pending articles.
// Entries without a link are skipped; article ids are derived from links.
func (m *Manager) Fetch(ctx context.Context, feedURL string) ([]core.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", m.userAgent)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed body: %w", err)
	}

	return Parse(body)
}

// Parse decodes feed XML, trying RSS first and Atom second.
func Parse(body []byte) ([]core.Article, error) {
	var rss RSS
	if err := xml.Unmarshal(body, &rss); err == nil && rss.Channel.Title != "" {
		return fromRSS(rss), nil
	}

	var atom Atom
	if err := xml.Unmarshal(body, &atom); err == nil && atom.Title != "" {
		return fromAtom(atom), nil
	}

	return nil, fmt.Errorf("unable to parse as RSS or Atom feed")
}

func fromRSS(rss RSS) []core.Article {
	var articles []core.Article
	for _, item := range rss.Channel.Items {
		if item.Link == "" {
			continue
		}
		articles = append(articles, core.Article{
			ID:        core.ArticleID(item.Link),
			Link:      item.Link,
			Title:     strings.TrimSpace(item.Title),
			Summary:   strings.TrimSpace(item.Description),
			Published: strings.TrimSpace(item.PubDate),
			Category:  joinCategories(item.Categories),
		})
	}
	return articles
}

func fromAtom(atom Atom) []core.Article {
	var articles []core.Article
	for _, entry := range atom.Entries {
		var link string
		for _, l := range entry.Link {
			if l.Rel == "" || l.Rel == "alternate" {
				link = l.Href
				break
			}
		}
		if link == "" {
			continue
		}

		published := entry.Published
		if published == "" {
			published = entry.Updated
		}

		terms := make([]string, 0, len(entry.Categories))
		for _, c := range entry.Categories {
			terms = append(terms, c.Term)
		}

		articles = append(articles, core.Article{
			ID:        core.ArticleID(link),
			Link:      link,
			Title:     strings.TrimSpace(entry.Title),
			Summary:   strings.TrimSpace(entry.Summary),
			Published: strings.TrimSpace(published),
			Category:  joinCategories(terms),
		})
	}
	return articles
}

// joinCategories produces the comma-joined category field as emitted by the
// feed, dropping empty terms.
func joinCategories(terms []string) string {
	var kept []string
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, ",")
}

// SourceID creates a deterministic identifier for a feed URL, used for
// logging and per-source bookkeeping.
func SourceID(feedURL string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(feedURL)).String()
}
