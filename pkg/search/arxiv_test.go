package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"science-chat-go/internal/config"
)

const arxivFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2301.00001v1</id>
    <title>  Dark Matter Searches at Colliders  </title>
    <summary>
      We review the current status of dark matter searches.
    </summary>
    <author><name>Alice Example</name></author>
    <author><name>Bob Example</name></author>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2301.00002v1</id>
    <title>Anonymous Survey</title>
    <summary>A survey without author metadata.</summary>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2301.00003v1</id>
    <title>   </title>
    <summary>Entry with a blank title is skipped.</summary>
  </entry>
</feed>`

func TestArxivSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("search_query") != "all:dark matter" {
			t.Errorf("search_query = %q", q.Get("search_query"))
		}
		if q.Get("max_results") != "3" {
			t.Errorf("max_results = %q", q.Get("max_results"))
		}
		if q.Get("sortBy") != "relevance" {
			t.Errorf("sortBy = %q", q.Get("sortBy"))
		}
		w.Header().Set("Content-Type", "application/atom+xml")
		w.Write([]byte(arxivFeedXML))
	}))
	defer srv.Close()

	client := NewArxivClient(config.ArxivConfig{BaseURL: srv.URL})
	results, err := client.Search(context.Background(), "dark matter", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	// 空标题的条目被跳过
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}

	first := results[0]
	if first.Title != "Dark Matter Searches at Colliders" {
		t.Fatalf("Title = %q", first.Title)
	}
	if first.URL != "http://arxiv.org/abs/2301.00001v1" {
		t.Fatalf("URL = %q", first.URL)
	}
	if first.Snippet != "We review the current status of dark matter searches." {
		t.Fatalf("Snippet = %q", first.Snippet)
	}
	if first.Authors != "Alice Example, Bob Example" {
		t.Fatalf("Authors = %q", first.Authors)
	}
	if first.Source != "arXiv" {
		t.Fatalf("Source = %q", first.Source)
	}

	if results[1].Authors != "Unknown" {
		t.Fatalf("Authors without metadata = %q, want Unknown", results[1].Authors)
	}
}

func TestArxivSearchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewArxivClient(config.ArxivConfig{BaseURL: srv.URL})
	if _, err := client.Search(context.Background(), "dark matter", 3); err == nil {
		t.Fatal("upstream 503 did not surface as error")
	}
}

func TestArxivSearchMalformedFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<feed><entry>"))
	}))
	defer srv.Close()

	client := NewArxivClient(config.ArxivConfig{BaseURL: srv.URL})
	if _, err := client.Search(context.Background(), "dark matter", 3); err == nil {
		t.Fatal("malformed feed did not surface as error")
	}
}
