package generation

import (
	"fmt"
	"strings"
)

const systemPrompt = "You are an experienced book author and editor. Write in the requested language and style. Do not add commentary about yourself."

func outlinePrompt(req GenerateRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create an outline for a %s book with exactly %d chapters.\n", orDefault(req.BookType, "non-fiction"), req.Chapters)
	fmt.Fprintf(&b, "Book idea: %s\n", strings.TrimSpace(req.Idea))
	fmt.Fprintf(&b, "Language: %s\n", orDefault(req.Language, "English"))
	if req.WritingStyle != "" {
		fmt.Fprintf(&b, "Writing style: %s\n", req.WritingStyle)
	}
	b.WriteString("\nFormat every chapter exactly like this:\n")
	b.WriteString("Chapter 1: <title>\n<three to five sentences describing the chapter>\n\n")
	b.WriteString("Use the literal prefix \"Chapter <number>:\" for each chapter and nothing before the first chapter.")
	return b.String()
}

func chapterPrompt(req GenerateRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write the full text of the chapter \"%s\" for a %s book.\n", strings.TrimSpace(req.Title), orDefault(req.BookType, "non-fiction"))
	if req.Outline != "" {
		fmt.Fprintf(&b, "Chapter outline: %s\n", strings.TrimSpace(req.Outline))
	}
	fmt.Fprintf(&b, "Language: %s\n", orDefault(req.Language, "English"))
	if req.WritingStyle != "" {
		fmt.Fprintf(&b, "Writing style: %s\n", req.WritingStyle)
	}
	if req.Instruction != "" {
		fmt.Fprintf(&b, "Additional instructions from the author: %s\n", strings.TrimSpace(req.Instruction))
	}
	if req.Previous != "" {
		fmt.Fprintf(&b, "\nPrevious chapter for continuity:\n%s\n", strings.TrimSpace(req.Previous))
	}
	b.WriteString("\nReturn only the chapter text without a heading.")
	return b.String()
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
