package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"science-chat-go/internal/config"
)

const wikiSearchJSON = `{
  "query": {
    "search": [
      {"title": "Dark matter", "pageid": 1, "snippet": "<span class=\"searchmatch\">Dark</span> matter is a form of matter"},
      {"title": "Dark energy", "pageid": 2, "snippet": "<span class=\"searchmatch\">Dark</span> energy is an unknown form of energy"}
    ]
  }
}`

const wikiExtractJSON = `{
  "query": {
    "pages": {
      "1": {"pageid": 1, "title": "Dark matter", "extract": "Dark matter is a hypothetical form of matter. "},
      "2": {"pageid": 2, "title": "Dark energy", "extract": "Dark energy is an unknown form of energy."}
    }
  }
}`

// newWikiServer 按请求参数分发：list=search 返回检索结果，
// prop=extracts 返回导言摘要。
func newWikiServer(t *testing.T, extractStatus int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		switch {
		case q.Get("list") == "search":
			if q.Get("srsearch") == "" {
				t.Error("missing srsearch param")
			}
			w.Write([]byte(wikiSearchJSON))
		case q.Get("prop") == "extracts":
			if extractStatus != http.StatusOK {
				w.WriteHeader(extractStatus)
				return
			}
			if q.Get("pageids") != "1|2" {
				t.Errorf("pageids = %q, want 1|2", q.Get("pageids"))
			}
			w.Write([]byte(wikiExtractJSON))
		default:
			t.Errorf("unexpected request: %s", r.URL.RawQuery)
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
}

func TestWikipediaSearch(t *testing.T) {
	srv := newWikiServer(t, http.StatusOK)
	defer srv.Close()

	client := NewWikipediaClient(config.WikipediaConfig{BaseURL: srv.URL, Lang: "en"})
	results, err := client.Search(context.Background(), "dark matter", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}

	first := results[0]
	if first.Title != "Dark matter" {
		t.Fatalf("Title = %q", first.Title)
	}
	if first.URL != "https://en.wikipedia.org/wiki/Dark_matter" {
		t.Fatalf("URL = %q", first.URL)
	}
	// 摘要优先使用导言，且去掉了尾随空白
	if first.Snippet != "Dark matter is a hypothetical form of matter." {
		t.Fatalf("Snippet = %q", first.Snippet)
	}
	if first.Source != "Wikipedia" {
		t.Fatalf("Source = %q", first.Source)
	}
}

func TestWikipediaSearchExtractFallback(t *testing.T) {
	srv := newWikiServer(t, http.StatusInternalServerError)
	defer srv.Close()

	client := NewWikipediaClient(config.WikipediaConfig{BaseURL: srv.URL, Lang: "en"})
	results, err := client.Search(context.Background(), "dark matter", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	// 导言拉取失败时退回清洗后的检索片段
	if results[0].Snippet != "Dark matter is a form of matter" {
		t.Fatalf("Snippet = %q", results[0].Snippet)
	}
}

func TestWikipediaSearchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewWikipediaClient(config.WikipediaConfig{BaseURL: srv.URL})
	if _, err := client.Search(context.Background(), "dark matter", 2); err == nil {
		t.Fatal("upstream 500 did not surface as error")
	}
}

func TestWikipediaSearchNoHits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"query":{"search":[]}}`))
	}))
	defer srv.Close()

	client := NewWikipediaClient(config.WikipediaConfig{BaseURL: srv.URL})
	results, err := client.Search(context.Background(), "zzzz", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("results = %d, want 0", len(results))
	}
}

func TestCleanSnippet(t *testing.T) {
	got := cleanSnippet(`<span class="searchmatch">Dark</span> matter &amp; energy `)
	if got != "Dark matter & energy" {
		t.Fatalf("cleanSnippet = %q", got)
	}
}
