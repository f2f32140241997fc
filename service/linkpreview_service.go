package service

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	linkPreviewCacheKey = "tp:linkpreview:"
	linkPreviewCacheTTL = time.Hour

	// 只读响应体前 50KB，OG 标签都在 <head> 里
	linkPreviewMaxBody = 50 * 1024

	linkPreviewTimeout = 5 * time.Second

	// 字段截断上限
	maxPreviewTitle = 200
	maxPreviewDesc  = 300
	maxPreviewSite  = 100
)

// LinkPreview 链接预览卡片
type LinkPreview struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	SiteName    string `json:"site_name,omitempty"`
	Domain      string `json:"domain"`
}

// OG 标签两种属性顺序都要认：property 在前或 content 在前
var (
	ogPropFirst    = regexp.MustCompile(`(?is)<meta[^>]+property\s*=\s*["']og:(\w+)["'][^>]+content\s*=\s*["']([^"']*)["']`)
	ogContentFirst = regexp.MustCompile(`(?is)<meta[^>]+content\s*=\s*["']([^"']*)["'][^>]+property\s*=\s*["']og:(\w+)["']`)
	titleTag       = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	descTag        = regexp.MustCompile(`(?is)<meta[^>]+name\s*=\s*["']description["'][^>]+content\s*=\s*["']([^"']*)["']`)
)

type LinkPreviewService struct {
	*Service
	client *http.Client
}

func NewLinkPreviewService(s *Service) *LinkPreviewService {
	return &LinkPreviewService{
		Service: s,
		client:  &http.Client{Timeout: linkPreviewTimeout},
	}
}

// Fetch 抓取链接预览。结果缓存 1 小时（含"抓不到"的空结果，避免反复打目标站）。
// 只允许 http/https，其他 scheme 直接拒绝。
func (s *LinkPreviewService) Fetch(ctx context.Context, rawURL string) (*LinkPreview, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, validationErr("链接格式不正确")
	}

	// 缓存故障不阻断抓取，miss 和出错一律走实抓
	cacheKey := linkPreviewCacheKey + u.String()
	if s.RDB != nil {
		if cached, err := s.RDB.Get(ctx, cacheKey).Result(); err == nil {
			var p LinkPreview
			if json.Unmarshal([]byte(cached), &p) == nil {
				return &p, nil
			}
		}
	}

	p := s.scrape(ctx, u)

	if s.RDB != nil {
		if raw, err := json.Marshal(p); err == nil {
			s.RDB.Set(ctx, cacheKey, raw, linkPreviewCacheTTL)
		}
	}
	return p, nil
}

// scrape 实际抓取。任何失败都返回只带 URL/Domain 的降级卡片，不报错。
func (s *LinkPreviewService) scrape(ctx context.Context, u *url.URL) *LinkPreview {
	p := &LinkPreview{URL: u.String(), Domain: strings.TrimPrefix(u.Hostname(), "www.")}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return p
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; TopicBot/1.0; link preview)")
	req.Header.Set("Accept", "text/html")

	resp, err := s.client.Do(req)
	if err != nil {
		return p
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return p
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "text/html") {
		return p
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, linkPreviewMaxBody))
	if err != nil {
		return p
	}
	doc := string(body)

	og := map[string]string{}
	for _, m := range ogPropFirst.FindAllStringSubmatch(doc, -1) {
		key := strings.ToLower(m[1])
		if _, ok := og[key]; !ok {
			og[key] = m[2]
		}
	}
	for _, m := range ogContentFirst.FindAllStringSubmatch(doc, -1) {
		key := strings.ToLower(m[2])
		if _, ok := og[key]; !ok {
			og[key] = m[1]
		}
	}

	p.Title = og["title"]
	if p.Title == "" {
		if m := titleTag.FindStringSubmatch(doc); m != nil {
			p.Title = strings.TrimSpace(m[1])
		}
	}
	p.Description = og["description"]
	if p.Description == "" {
		if m := descTag.FindStringSubmatch(doc); m != nil {
			p.Description = m[1]
		}
	}
	p.SiteName = og["site_name"]
	p.Image = resolveImageURL(u, og["image"])

	p.Title = truncate(html.UnescapeString(p.Title), maxPreviewTitle)
	p.Description = truncate(html.UnescapeString(p.Description), maxPreviewDesc)
	p.SiteName = truncate(html.UnescapeString(p.SiteName), maxPreviewSite)
	return p
}

// resolveImageURL 把相对图片地址解析成绝对地址
func resolveImageURL(base *url.URL, img string) string {
	if img == "" {
		return ""
	}
	ref, err := url.Parse(img)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return fmt.Sprintf("%s…", string(runes[:n]))
}
