package portal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// The bundle version is a 10-character lowercase hex token embedded in the
// portal's minified JavaScript. There is no stable export path, so three
// successively looser patterns absorb minor bundler output changes:
// a direct literal, an identifier indirection, and a proximity match.
var (
	literalPattern = regexp.MustCompile(`(?i)bundleVersion\s*:\s*["']([a-f0-9]{10})["']`)
	identPattern   = regexp.MustCompile(`bundleVersion\s*:\s*([A-Za-z_$][\w$]*)`)
	nearPattern    = regexp.MustCompile(`(?i)bundleVersion[\s\S]{0,120}?["']([a-f0-9]{10})["']`)
)

// DiscoverBundleVersion returns the cached bundle version, discovering and
// caching it first when missing. An empty string means discovery could not
// produce a version; an unreachable root page degrades to not-found rather
// than an error.
func (c *Client) DiscoverBundleVersion(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bundleVersion != "" {
		return c.bundleVersion, nil
	}
	version, err := c.discoverBundleVersionLocked(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("Bundle version discovery failed")
		return "", nil
	}
	c.bundleVersion = version
	return version, nil
}

func (c *Client) discoverBundleVersionLocked(ctx context.Context) (string, error) {
	scripts, err := c.collectScriptURLs(ctx)
	if err != nil {
		return "", err
	}
	c.dumpRequest("index_scripts", map[string]any{"scripts": scripts})

	for _, url := range scripts {
		js, err := c.fetchText(ctx, url, "")
		if err != nil {
			c.log.Debug().Err(err).Str("url", url).Msg("Failed to fetch script")
			continue
		}

		if version, mode := scanBundleVersion(js); version != "" {
			c.log.Debug().Str("url", url).Str("mode", mode).Str("version", version).
				Msg("Bundle version discovered")
			c.dumper.Dump("script_probe_hit", map[string]any{
				"url": url, "mode": mode, "value": version,
			})
			return version, nil
		}
	}
	return "", nil
}

// scanBundleVersion applies the three strategies in fixed order, stopping
// at the first hit. The precedence is deliberate; when strategies disagree
// the earlier one wins.
func scanBundleVersion(js string) (version, mode string) {
	if m := literalPattern.FindStringSubmatch(js); m != nil {
		return m[1], "literal"
	}

	if m := identPattern.FindStringSubmatch(js); m != nil {
		ident := m[1]
		defPattern, err := regexp.Compile(
			fmt.Sprintf(`\b(?:const|let|var)\s+%s\s*=\s*["']([a-f0-9]{10})["']`, regexp.QuoteMeta(ident)))
		if err == nil {
			if d := defPattern.FindStringSubmatch(js); d != nil {
				return d[1], "ident:" + ident
			}
		}
	}

	if m := nearPattern.FindStringSubmatch(js); m != nil {
		return m[1], "near"
	}
	return "", ""
}

// collectScriptURLs fetches the portal root and extracts candidate script
// URLs from script tags and modulepreload links, script tags first, each
// source in document order. Only .js references qualify.
func (c *Client) collectScriptURLs(ctx context.Context) ([]string, error) {
	html, err := c.fetchText(ctx, c.indexURL(), "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse portal root: %w", err)
	}

	var scripts []string
	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok && strings.HasSuffix(src, ".js") {
			scripts = append(scripts, c.resolveScriptURL(src))
		}
	})
	doc.Find(`link[rel="modulepreload"][href]`).Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok && strings.HasSuffix(href, ".js") {
			scripts = append(scripts, c.resolveScriptURL(href))
		}
	})
	return scripts, nil
}

// resolveScriptURL resolves a script reference against the portal root:
// absolute paths replace the path component, full URLs pass through,
// relative paths are appended.
func (c *Client) resolveScriptURL(src string) string {
	switch {
	case strings.HasPrefix(src, "/"):
		return c.baseURL + src
	case strings.HasPrefix(src, "http"):
		return src
	default:
		return c.baseURL + "/" + strings.TrimLeft(src, "./")
	}
}

func (c *Client) fetchText(ctx context.Context, url, accept string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header = commonHeaders()
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
