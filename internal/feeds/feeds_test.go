package feeds

import (
	"testing"

	"ownnews/internal/core"
)

const rssSample = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>テストニュース</title>
    <link>https://news.example.com</link>
    <item>
      <title> 記事その1 </title>
      <link>https://news.example.com/a1</link>
      <description>概要1</description>
      <pubDate>Mon, 24 Aug 2026 09:00:00 +0900</pubDate>
      <category>経済</category>
      <category>ビジネス</category>
    </item>
    <item>
      <title>リンクなし記事</title>
      <description>スキップされる</description>
    </item>
    <item>
      <title>記事その2</title>
      <link>https://news.example.com/a2</link>
      <description>概要2</description>
    </item>
  </channel>
</rss>`

const atomSample = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atomテスト</title>
  <entry>
    <title>Atom記事</title>
    <link rel="alternate" href="https://news.example.com/atom1"/>
    <summary>Atom概要</summary>
    <updated>2026-08-24T09:00:00+09:00</updated>
    <category term="IT・テクノロジー"/>
  </entry>
</feed>`

func TestParseRSS(t *testing.T) {
	articles, err := Parse([]byte(rssSample))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("got %d articles, want 2 (link-less entry dropped)", len(articles))
	}

	a := articles[0]
	if a.Title != "記事その1" {
		t.Errorf("title = %q (should be trimmed)", a.Title)
	}
	if a.Link != "https://news.example.com/a1" {
		t.Errorf("link = %q", a.Link)
	}
	if a.Category != "経済,ビジネス" {
		t.Errorf("category = %q", a.Category)
	}
	if a.Published != "Mon, 24 Aug 2026 09:00:00 +0900" {
		t.Errorf("published = %q", a.Published)
	}
	if a.ID != core.ArticleID(a.Link) {
		t.Errorf("id = %q, want derived from link", a.ID)
	}
	if len(a.Embedding) != 0 {
		t.Error("parsed article must be pending (no embedding)")
	}
}

func TestParseAtom(t *testing.T) {
	articles, err := Parse([]byte(atomSample))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("got %d articles, want 1", len(articles))
	}

	a := articles[0]
	if a.Link != "https://news.example.com/atom1" {
		t.Errorf("link = %q", a.Link)
	}
	if a.Category != "IT・テクノロジー" {
		t.Errorf("category = %q", a.Category)
	}
	if a.Published != "2026-08-24T09:00:00+09:00" {
		t.Errorf("published = %q (updated should backfill)", a.Published)
	}
}

func TestParseGarbage(t *testing.T) {
	if _, err := Parse([]byte("not xml at all")); err == nil {
		t.Fatal("expected error for unparseable input")
	}
}

func TestSourceIDStable(t *testing.T) {
	a := SourceID("https://news.example.com/feed")
	b := SourceID("https://news.example.com/feed")
	if a != b {
		t.Errorf("SourceID not deterministic: %s != %s", a, b)
	}
	if a == SourceID("https://other.example.com/feed") {
		t.Error("distinct URLs produced the same source ID")
	}
}
