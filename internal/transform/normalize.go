package transform

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/wod-ingestor/internal/models"
)

// lineBreakReplacer forces line breaks at the markup boundaries that matter
// for segmentation before the tags are stripped. Literal tag text inside the
// post body arrives entity-escaped, so plain string replacement is safe.
var lineBreakReplacer = strings.NewReplacer(
	"<br>", "\n",
	"<br/>", "\n",
	"<br />", "\n",
	"</p>", "</p>\n",
	"</div>", "</div>\n",
	"</li>", "</li>\n",
	"</h1>", "</h1>\n",
	"</h2>", "</h2>\n",
	"</h3>", "</h3>\n",
	"</h4>", "</h4>\n",
)

// NormalizePost strips markup from a raw post body, producing line-delimited
// plain text with the post metadata carried through losslessly. The blog's
// markup is not well structured, so no selector targeting is attempted; the
// whole body is flattened.
func NormalizePost(post *models.RawPost) (*models.NormalizedPost, error) {
	markup := lineBreakReplacer.Replace(post.Content.Rendered)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse post markup: %w", err)
	}

	published, hasDate := post.PublishedAt()

	return &models.NormalizedPost{
		Lines:    SplitLines(doc.Text()),
		PostDate: published,
		HasDate:  hasDate,
		Slug:     post.Slug,
		Title:    post.Title.Rendered,
	}, nil
}

// SplitLines splits plain text on newlines, trimming surrounding whitespace
// on each line. Empty lines are kept so segment bodies stay positionally
// faithful to the source.
func SplitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		lines = append(lines, strings.TrimSpace(line))
	}
	return lines
}
