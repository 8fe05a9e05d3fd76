package outline

import (
	"fmt"
	"regexp"
	"strings"
)

// Chapter is one parsed chapter outline.
type Chapter struct {
	ID        string `json:"id"`
	Number    int    `json:"number"`
	Title     string `json:"title"`
	Outline   string `json:"outline"`
	Content   string `json:"content,omitempty"`
	IsWritten bool   `json:"is_written"`
}

// markerPattern matches a "Chapter <N>:" marker. At the start of a line the
// marker may carry a list prefix ("1.", "2)", "-", "+", "•") and markdown
// heading, quote or bold decoration, and the word is case-insensitive. Inside
// a line only the capitalized literal counts.
var markerPattern = regexp.MustCompile(`(?m)(?:^[ \t>#*_]*(?:(?:\d+[.)]|[-+•])[ \t>#*_]*)?(?i:chapter)|[*_]*\bChapter)[ \t]+(\d+)[ \t*_]*:[ \t*_]*`)

// Parse splits generated text into chapters. Every marker starts a chapter
// whose title is the rest of the marker line and whose outline is the text up
// to the next marker. When the next marker follows on the same line the
// whole segment is the outline. Text without any marker becomes a single
// chapter.
func Parse(text string) []Chapter {
	matches := markerPattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return []Chapter{{
			ID:      chapterID(1),
			Number:  1,
			Title:   "Chapter 1",
			Outline: strings.TrimSpace(text),
		}}
	}

	chapters := make([]Chapter, 0, len(matches))
	for i, m := range matches {
		segment := text[m[1]:]
		if i+1 < len(matches) {
			segment = text[m[1]:matches[i+1][0]]
		}

		var title, body string
		line, rest, multiline := strings.Cut(segment, "\n")
		if !multiline && i+1 < len(matches) {
			body = strings.TrimSpace(segment)
		} else {
			title = cleanTitle(line)
			body = strings.TrimSpace(rest)
			// the title may sit on its own line below the marker
			if title == "" && body != "" {
				first, after, _ := strings.Cut(body, "\n")
				title = cleanTitle(first)
				body = strings.TrimSpace(after)
			}
		}

		number := i + 1
		if title == "" {
			title = fmt.Sprintf("Chapter %d", number)
		}
		chapters = append(chapters, Chapter{
			ID:      chapterID(number),
			Number:  number,
			Title:   title,
			Outline: body,
		})
	}
	return chapters
}

// SplitHeading removes a leading "Chapter <N>: Title" line from a written
// chapter. Markers later in the text are left alone. ok is false when the
// text does not start with a marker.
func SplitHeading(text string) (title, body string, ok bool) {
	text = strings.TrimSpace(text)
	loc := markerPattern.FindStringIndex(text)
	if loc == nil || loc[0] != 0 {
		return "", text, false
	}
	line, rest, _ := strings.Cut(text[loc[1]:], "\n")
	return cleanTitle(line), strings.TrimSpace(rest), true
}

// Count returns how many markers text contains.
func Count(text string) int {
	return len(markerPattern.FindAllStringIndex(text, -1))
}

func cleanTitle(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "*_#\""))
}

func chapterID(n int) string {
	return fmt.Sprintf("chapter-%d", n)
}
