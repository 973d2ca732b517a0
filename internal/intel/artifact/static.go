package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"forensics/internal/intel/fetch"
	"forensics/internal/platform/logger"
	"forensics/pkg/requestcontext"
)

// StaticCollector fetches the page over HTTP and extracts what a server-rendered
// response exposes: meta tags and cookies set by the response. Web storage
// only exists in a running page, so both storage areas come back empty.
type StaticCollector struct {
	fetcher fetch.Fetcher
	logger  *slog.Logger
}

type StaticOption func(*StaticCollector)

func WithStaticLogger(l *slog.Logger) StaticOption {
	return func(c *StaticCollector) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewStaticCollector(fetcher fetch.Fetcher, opts ...StaticOption) (*StaticCollector, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	c := &StaticCollector{fetcher: fetcher, logger: logger.Discard()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *StaticCollector) Collect(ctx context.Context, req Request, reply Replier) error {
	resp, err := c.fetcher.Fetch(ctx, fetch.Request{
		URL:    req.URL,
		Header: http.Header{"Accept": {"text/html,application/xhtml+xml;q=0.9,*/*;q=0.8"}},
	})
	if err != nil {
		return fmt.Errorf("fetch page: %w", err)
	}

	raw := RawPage{URL: req.URL, Cookie: cookieString(resp.Header)}
	metas, err := ParseMetas(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		c.logger.WarnContext(ctx, "page did not parse, sending without metadata", "url", req.URL, "error", err)
	}
	raw.Metas = metas

	reply.Deliver(Build(raw, req.ID, requestcontext.Now(ctx)))
	return nil
}

// ParseMetas returns every <meta> element of an HTML document, decoding the
// body from the charset named by contentType or the document itself.
func ParseMetas(body []byte, contentType string) ([]Meta, error) {
	var r io.Reader = bytes.NewReader(body)
	if decoded, err := charset.NewReader(r, contentType); err == nil {
		r = decoded
	} else {
		r = bytes.NewReader(body)
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	var metas []Meta
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		property, _ := s.Attr("property")
		content, _ := s.Attr("content")
		metas = append(metas, Meta{Name: name, Property: property, Content: content})
	})
	return metas, nil
}

// cookieString renders Set-Cookie headers the way a page sees its cookies:
// "name=value" pairs joined by "; ".
func cookieString(h http.Header) string {
	cookies := (&http.Response{Header: h}).Cookies()
	pairs := make([]string, 0, len(cookies))
	for _, ck := range cookies {
		pairs = append(pairs, ck.Name+"="+ck.Value)
	}
	return strings.Join(pairs, "; ")
}
