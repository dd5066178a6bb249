package modules_test

import (
	"testing"

	"bennypowers.dev/lesstheme/internal/modules"
	"github.com/stretchr/testify/assert"
)

func TestScopeSelector(t *testing.T) {
	suffix := func(local, _ string) string { return local + "_x" }

	tests := []struct {
		name     string
		selector string
		want     string
	}{
		{"single class", ".card", ".card_x"},
		{"compound", "div.card > .title:hover", "div.card_x > .title_x:hover"},
		{"global is left alone", ":global(.ant-btn) .icon", ".ant-btn .icon_x"},
		{"local is unwrapped", ":local(.card)", ".card_x"},
		{"chained classes", ".card.active", ".card_x.active_x"},
		{"selector list", ".card,\n.title", ".card_x,\n.title_x"},
		{"pseudo class names are not classes", ".card:not(.active):first-child", ".card_x:not(.active_x):first-child"},
		{"attribute strings are not classes", `a[href$=".pdf"]`, `a[href$=".pdf"]`},
		{"attribute next to a class", `.link[href$=".pdf"]`, `.link_x[href$=".pdf"]`},
		{"global inside a compound", ".card :global(.ant-btn.primary):hover", ".card_x .ant-btn.primary:hover"},
		{"unparseable selectors are kept", "50%", "50%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, modules.ScopeSelector(tt.selector, suffix, "card.less"))
		})
	}
}

func TestPattern(t *testing.T) {
	assert.Equal(t, "card", modules.Pattern("")("card", "a/b.less"))
	assert.Equal(t, "card", modules.Pattern("[local]")("card", "a/b.less"))
	assert.Equal(t, "b__card", modules.Pattern("[name]__[local]")("card", "a/b.less"))

	hashed := modules.Pattern("[local]-[hash]")
	first := hashed("card", "a/b.less")
	assert.Regexp(t, `^card-[0-9a-f]{5}$`, first)
	assert.Equal(t, first, hashed("card", "a/b.less"))
	assert.NotEqual(t, first, hashed("card", "a/c.less"))
}
