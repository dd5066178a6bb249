package modules

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"slices"
	"strings"

	"bennypowers.dev/lesstheme/internal/log"
	"bennypowers.dev/lesstheme/internal/stylesheet"
)

// ScopedNameFunc returns the scoped class name for a local class name
// declared in filename
type ScopedNameFunc func(local, filename string) string

// Identity leaves class names unchanged
func Identity(local, _ string) string {
	return local
}

// Pattern builds a ScopedNameFunc from a template such as
// "[name]__[local]___[hash]". [name] is the file name without extension and
// [hash] is a short digest of file name and class name.
func Pattern(pattern string) ScopedNameFunc {
	if pattern == "" || pattern == "[local]" {
		return Identity
	}
	return func(local, filename string) string {
		name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
		sum := sha256.Sum256([]byte(filename + ":" + local))
		r := strings.NewReplacer(
			"[local]", local,
			"[name]", name,
			"[hash]", hex.EncodeToString(sum[:])[:5],
		)
		return r.Replace(pattern)
	}
}

// Scope rewrites the class names of every rule selector in sheet.
// Classes inside :global(...) are left alone and the wrapper removed.
func Scope(sheet *stylesheet.Stylesheet, scoped ScopedNameFunc, filename string) {
	if scoped == nil {
		scoped = Identity
	}
	p := stylesheet.AcquireParser()
	defer stylesheet.ReleaseParser(p)
	for rule := range sheet.Rules() {
		rule.Selector = scopeSelector(p, rule.Selector, scoped, filename)
	}
}

// ScopeSelector rewrites the class names in a single selector list
func ScopeSelector(selector string, scoped ScopedNameFunc, filename string) string {
	p := stylesheet.AcquireParser()
	defer stylesheet.ReleaseParser(p)
	return scopeSelector(p, selector, scoped, filename)
}

// edit replaces selector[start:end] with text
type edit struct {
	start, end int
	text       string
}

func scopeSelector(p *stylesheet.Parser, selector string, scoped ScopedNameFunc, filename string) string {
	sel, err := p.ParseSelector(selector)
	if err != nil {
		log.Debug("Leaving selector %q unscoped: %v", selector, err)
		return selector
	}

	var edits []edit
	for _, c := range sel.Classes {
		if !c.Global {
			edits = append(edits, edit{c.Start, c.End, scoped(c.Name, filename)})
		}
	}
	for _, w := range sel.Wrappers {
		edits = append(edits, edit{w.Start, w.ArgStart, ""}, edit{w.ArgEnd, w.End, ""})
	}
	slices.SortFunc(edits, func(a, b edit) int { return cmp.Compare(a.start, b.start) })

	var b strings.Builder
	last := 0
	for _, e := range edits {
		b.WriteString(selector[last:e.start])
		b.WriteString(e.text)
		last = e.end
	}
	b.WriteString(selector[last:])
	return b.String()
}
