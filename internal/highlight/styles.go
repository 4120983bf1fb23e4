package highlight

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/whatday/internal/dom"
)

// Markup names shared by the renderer, the remover and the stylesheet.
const (
	ClassMark     = "date-hl"
	ClassMarkNoBg = "date-hl-no-bg"
	ClassIcon     = "date-hl-icon"
	ClassTooltip  = "date-hl-tooltip"
	AttrWrapper   = "data-date-hl"
	StyleID       = "date-highlighter-styles"
	IconGlyph     = "🗓"
)

const stylesheet = `
    .date-hl {
      background: #fff3cd;
      color: inherit;
      padding: 0 2px;
      border-radius: 2px;
      cursor: default;
    }
    .date-hl-no-bg {
      background: transparent;
      color: inherit;
      padding: 0;
      cursor: default;
    }
    .date-hl-icon {
      display: inline-block;
      margin: 0 2px;
      cursor: help;
      position: relative;
      font-style: normal;
      background: transparent;
    }
    .date-hl-tooltip {
      position: absolute;
      bottom: 100%;
      left: 50%;
      transform: translateX(-50%);
      background: #333;
      color: white;
      padding: 4px 8px;
      border-radius: 4px;
      font-size: 12px;
      white-space: nowrap;
      opacity: 0;
      visibility: hidden;
      transition: opacity 0.2s, visibility 0.2s;
      z-index: 10000;
      pointer-events: none;
    }
    .date-hl-tooltip::after {
      content: '';
      position: absolute;
      top: 100%;
      left: 50%;
      transform: translateX(-50%);
      border: 5px solid transparent;
      border-top-color: #333;
    }
    .date-hl-icon:hover .date-hl-tooltip {
      opacity: 1;
      visibility: visible;
    }
  `

// InjectStyles adds the stylesheet to <head> unless it is already present.
// It reports whether a stylesheet was added.
func InjectStyles(root *html.Node) bool {
	if dom.Find(root, dom.ByID(StyleID)) != nil {
		return false
	}
	parent := dom.HeadOf(root)
	if parent == nil {
		parent = dom.BodyOf(root)
	}
	style := dom.Element(atom.Style, "id", StyleID)
	style.AppendChild(dom.Text(stylesheet))
	parent.AppendChild(style)
	return true
}

// RemoveStyles drops the injected stylesheet.
func RemoveStyles(root *html.Node) bool {
	style := dom.Find(root, dom.ByID(StyleID))
	if style == nil {
		return false
	}
	dom.Detach(style)
	return true
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// EscapeHTML escapes the characters significant in HTML text content.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
