package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"science-chat-go/internal/config"
)

// ArxivClient 通过 arXiv 的 Atom API 检索论文。
type ArxivClient struct {
	cfg    config.ArxivConfig
	client *http.Client
}

// NewArxivClient 创建一个新的 arXiv 检索客户端。
func NewArxivClient(cfg config.ArxivConfig) *ArxivClient {
	return &ArxivClient{
		cfg:    cfg,
		client: &http.Client{},
	}
}

func (c *ArxivClient) Name() string { return "arXiv" }

// Priority 论文源在聚合排序中排在通识源之后。
func (c *ArxivClient) Priority() int { return 1 }

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title   string `xml:"title"`
	Summary string `xml:"summary"`
	ID      string `xml:"id"`
	Authors []struct {
		Name string `xml:"name"`
	} `xml:"author"`
}

// Search 按相关度降序返回至多 limit 篇论文。
func (c *ArxivClient) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	params := url.Values{}
	params.Set("search_query", "all:"+query)
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(limit))
	params.Set("sortBy", "relevance")
	params.Set("sortOrder", "descending")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned unexpected status: %s", resp.Status)
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("failed to decode atom feed: %w", err)
	}

	results := make([]Result, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		title := strings.TrimSpace(entry.Title)
		if title == "" {
			continue
		}
		names := make([]string, 0, len(entry.Authors))
		for _, a := range entry.Authors {
			if a.Name != "" {
				names = append(names, a.Name)
			}
		}
		authors := "Unknown"
		if len(names) > 0 {
			authors = strings.Join(names, ", ")
		}
		results = append(results, Result{
			Title:   title,
			Snippet: strings.TrimSpace(entry.Summary),
			URL:     strings.TrimSpace(entry.ID),
			Source:  c.Name(),
			Authors: authors,
		})
	}
	return results, nil
}
