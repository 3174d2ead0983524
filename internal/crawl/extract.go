package crawl

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"go.uber.org/zap"
)

var titleRe = regexp.MustCompile(`(?i)<title[^>]*>(.*?)</title>`)

// chromeTags are removed before conversion. Navigation and boilerplate
// would otherwise drown out the page's actual copy.
var chromeTags = []string{"script", "style", "noscript", "iframe", "svg", "nav", "footer", "header", "aside", "form"}

var chromeRes = compileChromeRes()

func compileChromeRes() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(chromeTags))
	for i, tag := range chromeTags {
		out[i] = regexp.MustCompile(`(?is)<` + tag + `[^>]*>.*?</` + tag + `>`)
	}
	return out
}

// ContentExtractor converts fetched HTML into markdown text for the
// extraction pipeline.
type ContentExtractor struct{}

// NewContentExtractor creates a ContentExtractor.
func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{}
}

// Extract strips page chrome and converts the remaining HTML to markdown.
// Returns an empty string when nothing useful survives.
func (e *ContentExtractor) Extract(html, url string) string {
	if html == "" {
		return ""
	}

	for _, re := range chromeRes {
		html = re.ReplaceAllString(html, "")
	}

	markdown, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		zap.L().Warn("crawl: markdown conversion failed",
			zap.String("url", url),
			zap.Error(err),
		)
		return ""
	}

	return collapseBlankLines(strings.TrimSpace(markdown))
}

// ExtractTitle pulls the <title> text from raw HTML.
func ExtractTitle(html string) string {
	m := titleRe.FindStringSubmatch(html)
	if len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

var blankRunRe = regexp.MustCompile(`\n{3,}`)

func collapseBlankLines(text string) string {
	return blankRunRe.ReplaceAllString(text, "\n\n")
}
