package services

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Rajat-malhotra0/draw-agent/internal/models"
)

const maxAnswerLen = 50

// Tried in order; the first candidate that survives cleanup wins.
var answerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:final answer|answer|result|solution)(?:\s+is)?[:\s=]+([^.\n]+)`),
	regexp.MustCompile(`(?i)therefore[,:]?\s*([^.\n]+)`),
	regexp.MustCompile(`=\s*([^.\n=]+?)(?:\.|$)`),
}

var (
	periodFreeLine = regexp.MustCompile(`(?m)^([^.\n]+)$`)
	edgeAsterisks  = regexp.MustCompile(`^\*+|\*+$`)
	leadingDash    = regexp.MustCompile(`^[-–—]\s*`)
	stepLine       = regexp.MustCompile(`(?i)^(?:Step\s+)?(\d+)[.:\-)]\s*(.+)`)
)

// ExtractAnswer scrapes a short final answer out of a model reply for display
// on the board. It is a best-effort heuristic, not a parser: an answer
// labelled "Answer:", a "therefore" clause, a trailing "= ..." expression and
// finally the last line without a period are tried in turn, and a candidate
// is accepted when, after markdown and "$" cleanup, it is 1 to 49 characters
// long. When nothing qualifies the last non-empty line is returned as is.
func ExtractAnswer(reply string) string {
	for _, re := range answerPatterns {
		m := re.FindStringSubmatch(reply)
		if m == nil {
			continue
		}
		if c := cleanAnswer(m[1]); acceptable(c) {
			return c
		}
	}

	if lines := periodFreeLine.FindAllStringSubmatch(reply, -1); len(lines) > 0 {
		if c := cleanAnswer(lines[len(lines)-1][1]); acceptable(c) {
			return c
		}
	}

	return lastNonEmptyLine(reply)
}

func cleanAnswer(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "**", "")
	s = edgeAsterisks.ReplaceAllString(s, "")
	s = leadingDash.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "$", "")
	return strings.TrimSpace(s)
}

func acceptable(s string) bool {
	n := utf8.RuneCountInString(s)
	return n > 0 && n < maxAnswerLen
}

func lastNonEmptyLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}

// ParseSteps splits a reply into numbered steps. Lines starting with "Step N"
// or "N." open a step, other lines extend the current one, and a leading
// unnumbered line becomes a step of its own.
func ParseSteps(reply string) []models.Step {
	steps := make([]models.Step, 0)
	for _, raw := range strings.Split(reply, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if m := stepLine.FindStringSubmatch(line); m != nil {
			n, _ := strconv.Atoi(m[1])
			steps = append(steps, models.Step{Index: n, Text: strings.TrimSpace(m[2]), FullText: line})
		} else if len(steps) > 0 {
			last := &steps[len(steps)-1]
			last.Text += " " + line
			last.FullText += "\n" + line
		} else {
			steps = append(steps, models.Step{Index: 1, Text: line, FullText: line})
		}
	}
	return steps
}
