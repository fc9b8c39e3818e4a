package scorer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"basegraph.app/gapengine/internal/textnorm"
	"github.com/PuerkitoBio/goquery"
)

// Citation is one reference to a source found in the chapter body.
type Citation struct {
	Text  string
	Years []int
}

// Newest returns the most recent year mentioned by the citation, or 0.
func (c Citation) Newest() int {
	newest := 0
	for _, y := range c.Years {
		if y > newest {
			newest = y
		}
	}
	return newest
}

// Section is the content between two headings (h1-h3). Text before the first
// heading forms a section with an empty heading.
type Section struct {
	Heading    string
	Level      int
	Text       string
	Words      int
	Citations  []Citation
	References bool // bibliography style section; its entries are sources, not prose
}

// Document is the parsed, read-only view of a chapter body shared by all
// scorers of one job.
type Document struct {
	Title          string
	Sections       []Section
	Citations      []Citation
	Words          int
	NormalizedText string
}

// ProseSections returns the sections holding chapter text, skipping
// bibliography sections and headings without any body.
func (d *Document) ProseSections() []Section {
	out := make([]Section, 0, len(d.Sections))
	for _, s := range d.Sections {
		if s.References || s.Words == 0 {
			continue
		}
		out = append(out, s)
	}
	return out
}

const (
	blockSelector    = "h1, h2, h3, p, li, blockquote, pre, figcaption, td"
	proseAncestors   = "p, li, blockquote, pre, figcaption, td"
	citationSelector = "cite, a[href], .citation, sup.footnote, [data-citation]"
)

var (
	yearPattern        = regexp.MustCompile(`\b(1[6-9]\d{2}|20\d{2})\b`)
	bracketMarker      = regexp.MustCompile(`\[\d+(?:\s*[,\-–]\s*\d+)*\]`)
	authorYearCitation = regexp.MustCompile(`\(\p{Lu}[\p{L}'\-]+(?: et al\.)?(?: (?:and|&) \p{Lu}[\p{L}'\-]+)?,? (?:1[6-9]|20)\d{2}[a-z]?\)`)
	referenceHeadings  = []string{" references ", " bibliography ", " sources ", " works cited ", " further reading ", " notes "}
)

// ParseDocument parses an HTML chapter body. Bodies without block markup are
// treated as a single untitled section.
func ParseDocument(title, body string) (*Document, error) {
	html, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse chapter html: %w", err)
	}

	d := &Document{Title: textnorm.Collapse(title)}
	current := Section{}

	flush := func() {
		if current.Heading != "" || current.Words > 0 {
			d.Sections = append(d.Sections, current)
		}
	}

	html.Find(blockSelector).Each(func(_ int, sel *goquery.Selection) {
		name := goquery.NodeName(sel)
		if level := headingLevel(name); level > 0 {
			heading := textnorm.Collapse(sel.Text())
			if heading == "" {
				return
			}
			if level == 1 && d.Title == "" {
				d.Title = heading
			}
			flush()
			current = Section{
				Heading:    heading,
				Level:      level,
				References: isReferencesHeading(heading),
			}
			return
		}

		// Nested blocks are already covered by the outermost one.
		if sel.ParentsFiltered(proseAncestors).Length() > 0 {
			return
		}

		text := textnorm.Collapse(sel.Text())
		if text == "" {
			return
		}

		if current.References {
			c := Citation{Text: text, Years: extractYears(text)}
			current.Citations = append(current.Citations, c)
			d.Citations = append(d.Citations, c)
			return
		}

		cites := extractCitations(sel, text)
		current.Text = joinText(current.Text, text)
		current.Words += len(strings.Fields(text))
		current.Citations = append(current.Citations, cites...)
		d.Citations = append(d.Citations, cites...)
	})
	flush()

	if len(d.Sections) == 0 {
		text := textnorm.Collapse(html.Find("body").Text())
		if text != "" {
			s := Section{Text: text, Words: len(strings.Fields(text))}
			s.Citations = extractCitations(html.Find("body"), text)
			d.Sections = append(d.Sections, s)
			d.Citations = append(d.Citations, s.Citations...)
		}
	}

	var all strings.Builder
	all.WriteString(d.Title)
	for _, s := range d.Sections {
		d.Words += s.Words
		all.WriteByte(' ')
		all.WriteString(s.Heading)
		all.WriteByte(' ')
		all.WriteString(s.Text)
	}
	d.NormalizedText = textnorm.Normalize(all.String())

	return d, nil
}

func headingLevel(name string) int {
	switch name {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	}
	return 0
}

func isReferencesHeading(heading string) bool {
	normalized := textnorm.Normalize(heading)
	for _, h := range referenceHeadings {
		if normalized == h {
			return true
		}
	}
	return false
}

func extractCitations(sel *goquery.Selection, text string) []Citation {
	var out []Citation

	sel.Find(citationSelector).Each(func(_ int, c *goquery.Selection) {
		if c.ParentsFiltered(citationSelector).Length() > 0 {
			return
		}
		citeText := textnorm.Collapse(c.Text())
		if v, ok := c.Attr("data-citation"); ok && strings.TrimSpace(v) != "" {
			citeText = strings.TrimSpace(v)
		} else if t, ok := c.Attr("title"); ok && strings.TrimSpace(t) != "" {
			citeText = joinText(citeText, strings.TrimSpace(t))
		}
		if citeText == "" {
			citeText, _ = c.Attr("href")
		}
		out = append(out, Citation{Text: citeText, Years: extractYears(citeText)})
	})

	for _, m := range bracketMarker.FindAllString(text, -1) {
		out = append(out, Citation{Text: m})
	}
	for _, m := range authorYearCitation.FindAllString(text, -1) {
		out = append(out, Citation{Text: m, Years: extractYears(m)})
	}

	return out
}

func extractYears(s string) []int {
	matches := yearPattern.FindAllString(s, -1)
	if len(matches) == 0 {
		return nil
	}
	years := make([]int, 0, len(matches))
	for _, m := range matches {
		y, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		years = append(years, y)
	}
	return years
}

func joinText(a, b string) string {
	if a == "" {
		return b
	}
	return a + " " + b
}
