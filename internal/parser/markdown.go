// Package parser reads Markdown visit notes into interaction drafts.
package parser

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/raphaelgruber/fieldlog/internal/models"
)

var headingRegex = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// MarkdownDoc represents a parsed Markdown document.
type MarkdownDoc struct {
	// Frontmatter metadata (from YAML)
	Frontmatter map[string]any

	// Main content (after frontmatter)
	Content string

	// Structured content by heading
	Sections []Section
}

// Section represents a heading and its content.
type Section struct {
	Level   int    // 1-6 for h1-h6
	Heading string // The heading text
	Content string // Content under this heading
	Start   int    // Line number where section starts
}

// ParseMarkdown splits a document into YAML frontmatter and heading sections.
// Unlike free-form notes, a visit note with broken frontmatter is rejected.
func ParseMarkdown(content string) (*MarkdownDoc, error) {
	doc := &MarkdownDoc{
		Frontmatter: make(map[string]any),
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	remaining := content
	if strings.HasPrefix(content, "---\n") {
		endIdx := strings.Index(content[4:], "\n---")
		if endIdx >= 0 {
			frontmatterYAML := content[4 : 4+endIdx]
			remaining = strings.TrimPrefix(content[4+endIdx+4:], "\n")

			if err := yaml.Unmarshal([]byte(frontmatterYAML), &doc.Frontmatter); err != nil {
				return nil, fmt.Errorf("parse frontmatter: %w", err)
			}
			if doc.Frontmatter == nil {
				doc.Frontmatter = make(map[string]any)
			}
		}
	}

	doc.Content = remaining
	doc.Sections = parseSections(remaining)

	return doc, nil
}

// parseSections extracts sections from Markdown content.
func parseSections(content string) []Section {
	var sections []Section

	scanner := bufio.NewScanner(strings.NewReader(content))
	lineNum := 0

	var currentSection *Section
	var contentBuilder strings.Builder

	flushSection := func() {
		if currentSection != nil {
			currentSection.Content = strings.TrimSpace(contentBuilder.String())
			sections = append(sections, *currentSection)
			contentBuilder.Reset()
		}
	}

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		if match := headingRegex.FindStringSubmatch(line); len(match) > 0 {
			flushSection()
			currentSection = &Section{
				Level:   len(match[1]),
				Heading: strings.TrimSpace(match[2]),
				Start:   lineNum,
			}
		} else if currentSection != nil {
			contentBuilder.WriteString(line)
			contentBuilder.WriteString("\n")
		}
	}

	flushSection()

	return sections
}

// Section returns the content of the first section whose heading matches
// one of names, case-insensitively.
func (d *MarkdownDoc) Section(names ...string) (string, bool) {
	for _, s := range d.Sections {
		for _, n := range names {
			if strings.EqualFold(s.Heading, n) {
				return s.Content, true
			}
		}
	}
	return "", false
}

// GetFrontmatterString extracts a scalar from frontmatter as a string.
// YAML may decode dates and numbers into other types.
func (d *MarkdownDoc) GetFrontmatterString(key string) string {
	switch v := d.Frontmatter[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 {
			return v.Format(time.DateOnly)
		}
		return v.Format(models.DraftTimeLayout)
	default:
		return fmt.Sprint(v)
	}
}

// GetFrontmatterStringSlice extracts a string slice from frontmatter.
// A scalar string is split on commas.
func (d *MarkdownDoc) GetFrontmatterStringSlice(key string) []string {
	switch v := d.Frontmatter[key].(type) {
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		return result
	case []string:
		return v
	case string:
		return strings.Split(v, ",")
	}
	return nil
}
