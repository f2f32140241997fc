package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

const ogPage = `<!doctype html>
<html><head>
<title>Fallback Title</title>
<meta property="og:title" content="社区活动周报" />
<meta property="og:description" content="本周活动安排与报名入口" />
<meta property="og:image" content="/static/cover.png" />
<meta property="og:site_name" content="Vicinato" />
</head><body>hello</body></html>`

func newLinkPreviewService(t *testing.T) (*LinkPreviewService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewLinkPreviewService(&Service{RDB: rdb}), mr
}

func TestLinkPreview_FetchParsesOGTags(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(ogPage))
	}))
	defer srv.Close()

	svc, _ := newLinkPreviewService(t)

	p, err := svc.Fetch(context.Background(), srv.URL+"/post/1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if p.Title != "社区活动周报" {
		t.Fatalf("unexpected title: %q", p.Title)
	}
	if p.Description != "本周活动安排与报名入口" {
		t.Fatalf("unexpected description: %q", p.Description)
	}
	if p.SiteName != "Vicinato" {
		t.Fatalf("unexpected site name: %q", p.SiteName)
	}
	// 相对图片地址要解析成绝对地址
	if p.Image != srv.URL+"/static/cover.png" {
		t.Fatalf("unexpected image: %q", p.Image)
	}
	if hits != 1 {
		t.Fatalf("expected 1 fetch, got %d", hits)
	}
}

func TestLinkPreview_SecondFetchServedFromCache(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(ogPage))
	}))
	defer srv.Close()

	svc, _ := newLinkPreviewService(t)

	if _, err := svc.Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	p, err := svc.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if hits != 1 {
		t.Fatalf("second fetch must hit cache, upstream hits=%d", hits)
	}
	if p.Title != "社区活动周报" {
		t.Fatalf("cached preview lost data: %+v", p)
	}
}

func TestLinkPreview_SchemeValidation(t *testing.T) {
	svc, _ := newLinkPreviewService(t)

	for _, raw := range []string{"ftp://host/file", "javascript:alert(1)", "not a url", ""} {
		if _, err := svc.Fetch(context.Background(), raw); !IsValidationError(err) {
			t.Fatalf("url %q: expected validation error, got %v", raw, err)
		}
	}
}

func TestLinkPreview_TitleTagFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Plain Title</title></head><body></body></html>`))
	}))
	defer srv.Close()

	svc, _ := newLinkPreviewService(t)

	p, err := svc.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if p.Title != "Plain Title" {
		t.Fatalf("expected title fallback, got %q", p.Title)
	}
}

func TestLinkPreview_UpstreamErrorDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc, _ := newLinkPreviewService(t)

	// 抓取失败不报错，降级成只带 URL/Domain 的卡片
	p, err := svc.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if p.URL == "" || p.Title != "" {
		t.Fatalf("expected degraded preview, got %+v", p)
	}
}
