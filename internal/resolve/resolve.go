// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve encapsulates the mirror's URL-construction and
// landing-page scraping conventions. It never performs I/O: the
// fetcher retrieves pages, resolve only builds URLs and parses HTML.
package resolve

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/soultoolman/sci-dl/pkg/types"
)

// ParseError reports a landing page with no extractable PDF link: the
// paper is missing from the mirror, or the mirror served an error or
// captcha page. Retrying the same page cannot succeed.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "parse: " + e.Reason
}

// Mirror holds the base URL of one mirror instance. Immutable once
// constructed; one Mirror serves all lookups for a session.
type Mirror struct {
	base *url.URL
}

// NewMirror parses and validates the mirror base URL. A malformed or
// non-http(s) URL yields a ConfigError.
func NewMirror(baseURL string) (*Mirror, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, types.ConfigErrorf("invalid mirror base URL %q", baseURL)
	}
	return &Mirror{base: u}, nil
}

// Base returns the mirror base URL string.
func (m *Mirror) Base() string { return m.base.String() }

// LookupURL returns the landing-page URL for doi: the DOI appended to
// the base path, with reserved characters escaped. Pure string
// construction, deterministic for the same inputs.
func (m *Mirror) LookupURL(doi string) (string, error) {
	if doi == "" {
		return "", types.ConfigErrorf("empty DOI")
	}
	u := *m.base
	u.Path = strings.TrimSuffix(m.base.Path, "/") + "/" + doi
	u.RawPath = ""
	return u.String(), nil
}

// ExtractPDFURL scans landing-page HTML for the PDF asset link. The
// mirror embeds it in the save button's onclick handler; some page
// variants expose it only through the article embed tag. Relative and
// scheme-relative links are normalized against the mirror base.
func (m *Mirror) ExtractPDFURL(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", &ParseError{Reason: fmt.Sprintf("unreadable HTML: %v", err)}
	}

	if raw, ok := saveButtonTarget(doc); ok {
		return m.normalize(raw), nil
	}
	if raw, ok := embedTarget(doc); ok {
		return m.normalize(raw), nil
	}
	return "", &ParseError{Reason: "no PDF link found in landing page"}
}

// saveButtonTarget pulls the link out of the save button's
// location.href onclick handler.
func saveButtonTarget(doc *goquery.Document) (string, bool) {
	var target string
	doc.Find("div#buttons button").Each(func(_ int, s *goquery.Selection) {
		if !strings.Contains(strings.ToLower(s.Text()), "save") {
			return
		}
		if onclick, ok := s.Attr("onclick"); ok {
			if cleaned := cleanHref(onclick); cleaned != "" {
				target = cleaned
			}
		}
	})
	return target, target != ""
}

// cleanHref strips the location.href='...' wrapper around the URL.
func cleanHref(onclick string) string {
	const prefix = "location.href='"
	i := strings.Index(onclick, prefix)
	if i < 0 {
		return ""
	}
	rest := onclick[i+len(prefix):]
	j := strings.IndexByte(rest, '\'')
	if j < 0 {
		return ""
	}
	return rest[:j]
}

// embedTarget reads the embedded PDF viewer's src, dropping the viewer
// fragment (#navpanes=...).
func embedTarget(doc *goquery.Document) (string, bool) {
	src, ok := doc.Find(`embed[type="application/pdf"]`).Attr("src")
	if !ok {
		return "", false
	}
	if i := strings.IndexByte(src, '#'); i >= 0 {
		src = src[:i]
	}
	return src, src != ""
}

// normalize resolves raw against the mirror base: absolute links pass
// through, //host/... links get the mirror scheme, path links get both
// scheme and host.
func (m *Mirror) normalize(raw string) string {
	switch {
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return raw
	case strings.HasPrefix(raw, "//"):
		return m.base.Scheme + ":" + raw
	default:
		ref, err := url.Parse(raw)
		if err != nil {
			return m.base.String() + raw
		}
		return m.base.ResolveReference(ref).String()
	}
}
