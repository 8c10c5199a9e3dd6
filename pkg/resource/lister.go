package resource

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Lister reads the HTML index a web server renders for a directory
type Lister struct {
	accessor *Accessor
}

func NewLister(accessor *Accessor) *Lister {
	return &Lister{accessor: accessor}
}

// List returns the names of the entries directly below parent. Directories
// are returned without their trailing slash. A missing parent yields
// (nil, nil).
func (l *Lister) List(ctx context.Context, parent *url.URL) ([]string, error) {
	base := *parent
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
		base.RawPath = ""
	}

	res, err := l.accessor.Open(ctx, &base)
	if err != nil || res == nil {
		return nil, err
	}
	defer l.accessor.Release(res)

	stream, err := res.OpenStream()
	if err != nil {
		return nil, err
	}
	names, err := parseIndex(stream, &base)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing of %s: %w", &base, err)
	}
	return names, nil
}

// parseIndex collects the anchors of an index page that point at direct
// children of base.
func parseIndex(r io.Reader, base *url.URL) ([]string, error) {
	names := []string{}
	seen := make(map[string]bool)

	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return nil, err
			}
			return names, nil
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" || !hasAttr {
				continue
			}
			for {
				key, val, more := z.TagAttr()
				if string(key) == "href" {
					if child, ok := childName(base, string(val)); ok && !seen[child] {
						seen[child] = true
						names = append(names, child)
					}
				}
				if !more {
					break
				}
			}
		}
	}
}

func childName(base *url.URL, href string) (string, bool) {
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "?") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil || ref.RawQuery != "" {
		return "", false
	}
	target := base.ResolveReference(ref)
	if target.Scheme != base.Scheme || target.Host != base.Host {
		return "", false
	}
	rest, ok := strings.CutPrefix(target.Path, base.Path)
	if !ok {
		return "", false
	}
	rest = strings.TrimSuffix(rest, "/")
	if rest == "" || rest == "." || rest == ".." || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}
