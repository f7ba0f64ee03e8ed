package search

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"science-chat-go/internal/config"
)

const userAgent = "science-chat-go/1.0"

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// WikipediaClient 通过 MediaWiki API 检索 Wikipedia 条目。
// 两步流程：先全文检索获取候选页面，再批量拉取各页面的导言摘要。
type WikipediaClient struct {
	cfg    config.WikipediaConfig
	client *http.Client
}

// NewWikipediaClient 创建一个新的 Wikipedia 检索客户端。
func NewWikipediaClient(cfg config.WikipediaConfig) *WikipediaClient {
	return &WikipediaClient{
		cfg:    cfg,
		client: &http.Client{},
	}
}

func (c *WikipediaClient) Name() string { return "Wikipedia" }

// Priority Wikipedia 作为通识源排在论文源之前。
func (c *WikipediaClient) Priority() int { return 0 }

type wikiHit struct {
	Title   string `json:"title"`
	PageID  int    `json:"pageid"`
	Snippet string `json:"snippet"`
}

type wikiSearchResponse struct {
	Query struct {
		Search []wikiHit `json:"search"`
	} `json:"query"`
}

type wikiExtractResponse struct {
	Query struct {
		Pages map[string]struct {
			PageID  int    `json:"pageid"`
			Title   string `json:"title"`
			Extract string `json:"extract"`
		} `json:"pages"`
	} `json:"query"`
}

// Search 返回至多 limit 条候选页面，附带导言摘要（拉取失败时退回检索片段）。
func (c *WikipediaClient) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("format", "json")
	params.Set("srlimit", strconv.Itoa(limit))
	params.Set("srprop", "snippet")
	params.Set("utf8", "1")

	var searchResp wikiSearchResponse
	if err := c.get(ctx, params, &searchResp); err != nil {
		return nil, fmt.Errorf("wikipedia search failed: %w", err)
	}

	hits := searchResp.Query.Search
	if len(hits) == 0 {
		return []Result{}, nil
	}

	// 批量拉取导言摘要；失败不致命，退回检索片段
	extracts, err := c.fetchExtracts(ctx, hits)
	if err != nil {
		extracts = map[int]string{}
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		snippet := extracts[hit.PageID]
		if snippet == "" {
			snippet = cleanSnippet(hit.Snippet)
		}
		results = append(results, Result{
			Title:   hit.Title,
			Snippet: snippet,
			URL:     c.pageURL(hit.Title),
			Source:  c.Name(),
		})
	}
	return results, nil
}

// fetchExtracts 批量获取各页面的导言（纯文本），按 pageid 建立索引。
func (c *WikipediaClient) fetchExtracts(ctx context.Context, hits []wikiHit) (map[int]string, error) {
	ids := make([]string, 0, len(hits))
	for _, hit := range hits {
		ids = append(ids, strconv.Itoa(hit.PageID))
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "extracts")
	params.Set("exintro", "1")
	params.Set("explaintext", "1")
	params.Set("redirects", "1")
	params.Set("format", "json")
	params.Set("utf8", "1")
	params.Set("pageids", strings.Join(ids, "|"))

	var extractResp wikiExtractResponse
	if err := c.get(ctx, params, &extractResp); err != nil {
		return nil, fmt.Errorf("wikipedia extracts failed: %w", err)
	}

	extracts := make(map[int]string, len(extractResp.Query.Pages))
	for _, page := range extractResp.Query.Pages {
		extracts[page.PageID] = strings.TrimSpace(page.Extract)
	}
	return extracts, nil
}

func (c *WikipediaClient) get(ctx context.Context, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// pageURL 根据条目标题构造页面链接。
func (c *WikipediaClient) pageURL(title string) string {
	if title == "" {
		return ""
	}
	lang := c.cfg.Lang
	if lang == "" {
		lang = "en"
	}
	return fmt.Sprintf("https://%s.wikipedia.org/wiki/%s", lang, strings.ReplaceAll(title, " ", "_"))
}

// cleanSnippet 去掉检索片段中的 HTML 标签并解码实体。
func cleanSnippet(snippet string) string {
	text := htmlTagRe.ReplaceAllString(snippet, "")
	return strings.TrimSpace(html.UnescapeString(text))
}
