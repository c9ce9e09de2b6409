// Package html finds the local files an HTML, CSS or JavaScript source
// refers to. Only the referencing side is handled here; turning the
// specifiers into assets is up to the caller.
package html

import (
	"bytes"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"

	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Kind selects the extractor for a file
type Kind int

const (
	KindNone Kind = iota
	KindHTML
	KindCSS
	KindJS
)

// KindOf picks the extractor from the file extension
func KindOf(name string) Kind {
	switch strings.ToLower(path.Ext(name)) {
	case ".html", ".htm":
		return KindHTML
	case ".css":
		return KindCSS
	case ".js", ".mjs", ".cjs", ".jsx":
		return KindJS
	default:
		return KindNone
	}
}

// Extract returns the local reference specifiers found in content, in
// document order and without duplicates. Remote URLs, data URIs and pure
// fragments are dropped; query strings and fragments are stripped.
func Extract(kind Kind, content []byte) ([]string, error) {
	var raw []string
	switch kind {
	case KindHTML:
		found, err := fromHTML(content)
		if err != nil {
			return nil, err
		}
		raw = found
	case KindCSS:
		raw = fromCSS(content)
	case KindJS:
		raw = fromJS(content)
	default:
		return nil, nil
	}

	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		spec, ok := local(r)
		if !ok {
			continue
		}
		if _, dup := seen[spec]; dup {
			continue
		}
		seen[spec] = struct{}{}
		out = append(out, spec)
	}
	return out, nil
}

// Resolve joins a specifier found in the file at from (a slash-separated
// path relative to the served root) into a root-relative path. Specifiers
// starting with "/" are root-relative already; ".." segments never climb
// above the root, as in a browser. ok is false when nothing but the root
// itself is left.
func Resolve(from, spec string) (string, bool) {
	var joined string
	if strings.HasPrefix(spec, "/") {
		joined = path.Clean(spec)
	} else {
		joined = path.Clean("/" + path.Join(path.Dir(from), spec))
	}
	joined = strings.TrimPrefix(joined, "/")
	if joined == "" || joined == "." {
		return "", false
	}
	return joined, true
}

var referencingAttrs = map[atom.Atom]string{
	atom.Script: "src",
	atom.Link:   "href",
	atom.Img:    "src",
	atom.Source: "src",
	atom.Iframe: "src",
	atom.Video:  "src",
	atom.Audio:  "src",
	atom.A:      "href",
}

func fromHTML(content []byte) ([]string, error) {
	doc, err := nethtml.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	var out []string
	var walk func(n *nethtml.Node)
	walk = func(n *nethtml.Node) {
		if n.Type == nethtml.ElementNode {
			if key, ok := referencingAttrs[n.DataAtom]; ok {
				for _, a := range n.Attr {
					if a.Key == key && a.Val != "" {
						out = append(out, a.Val)
					}
				}
			}
			if n.DataAtom == atom.Style && n.FirstChild != nil {
				out = append(out, fromCSS([]byte(n.FirstChild.Data))...)
			}
			if n.DataAtom == atom.Script && n.FirstChild != nil && !hasAttr(n, "src") {
				out = append(out, fromJS([]byte(n.FirstChild.Data))...)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out, nil
}

func hasAttr(n *nethtml.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

var (
	cssImport = regexp.MustCompile(`@import\s+(?:url\(\s*)?["']?([^"')\s;]+)`)
	cssURL    = regexp.MustCompile(`url\(\s*["']?([^"')\s]+)["']?\s*\)`)

	jsStatic  = regexp.MustCompile(`(?m)(?:^|[;\s])(?:import|export)\s[^"'` + "`" + `]*?\bfrom\s*["']([^"']+)["']`)
	jsBare    = regexp.MustCompile(`(?m)(?:^|[;\s])import\s*["']([^"']+)["']`)
	jsDynamic = regexp.MustCompile(`\bimport\(\s*["']([^"']+)["']\s*\)`)
	jsRequire = regexp.MustCompile(`\brequire\(\s*["']([^"']+)["']\s*\)`)
)

func fromCSS(content []byte) []string {
	var out []string
	for _, m := range cssImport.FindAllSubmatch(content, -1) {
		out = append(out, string(m[1]))
	}
	for _, m := range cssURL.FindAllSubmatch(content, -1) {
		out = append(out, string(m[1]))
	}
	return out
}

// fromJS only follows relative or root-relative specifiers; bare module
// names are resolved by the bundler, not served from disk
func fromJS(content []byte) []string {
	type match struct {
		at   int
		spec string
	}
	var found []match
	for _, re := range []*regexp.Regexp{jsStatic, jsBare, jsDynamic, jsRequire} {
		for _, loc := range re.FindAllSubmatchIndex(content, -1) {
			found = append(found, match{at: loc[2], spec: string(content[loc[2]:loc[3]])})
		}
	}

	// keep source order across the four patterns
	sort.SliceStable(found, func(i, j int) bool { return found[i].at < found[j].at })

	var out []string
	for _, m := range found {
		if strings.HasPrefix(m.spec, "./") || strings.HasPrefix(m.spec, "../") || strings.HasPrefix(m.spec, "/") {
			out = append(out, m.spec)
		}
	}
	return out
}

// local strips query and fragment and rejects anything that is not a
// path on this server
func local(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(ref, "//") {
		return "", false
	}
	u, err := url.Parse(ref)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Opaque != "" {
		return "", false
	}
	if u.Path == "" {
		return "", false
	}
	return u.Path, true
}
