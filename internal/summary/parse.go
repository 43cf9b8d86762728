package summary

import (
	"strings"
)

// Section markers the prompts ask the model to emit.
const (
	MarkerSnippet   = "SNIPPET:"
	MarkerKeyPoints = "KEY POINTS:"
	MarkerOverall   = "OVERALL SUMMARY:"
	MarkerInsights  = "KEY INSIGHTS:"
)

// Parsed is the structured view of one model response.
type Parsed struct {
	Text  string
	Items []string
}

// ParseSnippet extracts the snippet and key points of a per-article response.
func ParseSnippet(text string) Parsed {
	return parseSections(text, MarkerSnippet, MarkerKeyPoints)
}

// ParseDigest extracts the overall summary and insights of an aggregate response.
func ParseDigest(text string) Parsed {
	return parseSections(text, MarkerOverall, MarkerInsights)
}

func parseSections(text, textMarker, listMarker string) Parsed {
	markers := []string{textMarker, listMarker}
	out := Parsed{Items: []string{}}
	if body, ok := section(text, textMarker, markers); ok {
		out.Text = strings.TrimSpace(body)
	}
	if body, ok := section(text, listMarker, markers); ok {
		out.Items = bulletLines(body)
	}
	return out
}

// section returns the text after marker up to the nearest following marker, or the end.
func section(text, marker string, markers []string) (string, bool) {
	start := strings.Index(text, marker)
	if start < 0 {
		return "", false
	}
	start += len(marker)

	end := len(text)
	for _, m := range markers {
		if m == marker {
			continue
		}
		if idx := strings.Index(text[start:], m); idx >= 0 && start+idx < end {
			end = start + idx
		}
	}
	return text[start:end], true
}

func bulletLines(body string) []string {
	items := []string{}
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*•")
		line = strings.TrimSpace(line)
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}
