package agent

import (
	"regexp"
	"strings"

	"github.com/exson6969/xplorer/engine/domain"
)

const defaultSystemPrompt = `You are Xplorer, a travel-planning assistant for trips in and around Chennai.
Help the user discover places, hotels, and transport, and plan day-by-day routes.

When you need data, reply with ONLY a JSON tool call, nothing else:
  {"tool": "find_places", "city": "...", "category": "..."}
  {"tool": "find_hotels", "city": "...", "min_rating": 4}
  {"tool": "find_cabs", "limit": 5}
  {"tool": "vector_search", "query": "..."}
  {"tool": "plan_route", "days": [["Marina Beach", "Fort St. George"]], "home_base": "Hotel X"}
Use plan_route to order each day's places by travel time before presenting an itinerary.
Tool output arrives as a message starting with TOOL_RESULT (or TOOL_ERROR).
Otherwise answer the user directly and concisely.`

const titlePrompt = `Produce a short title (at most six words) for a travel-planning
conversation that starts with the following message. Reply with the title only.`

// buildSystemPrompt appends the traveller's stored preferences so the model
// tailors suggestions without being asked.
func buildSystemPrompt(base string, p domain.Profile) string {
	var b strings.Builder
	b.WriteString(base)

	var prefs []string
	if p.FullName != "" {
		prefs = append(prefs, "name: "+p.FullName)
	}
	if p.Country != "" {
		prefs = append(prefs, "from: "+p.Country)
	}
	if len(p.TravelStyle) > 0 {
		prefs = append(prefs, "travel style: "+strings.Join(p.TravelStyle, ", "))
	}
	if len(p.Interests) > 0 {
		prefs = append(prefs, "interests: "+strings.Join(p.Interests, ", "))
	}
	if p.Budget != "" {
		prefs = append(prefs, "budget: "+p.Budget)
	}
	if len(prefs) > 0 {
		b.WriteString("\n\nTraveller profile: ")
		b.WriteString(strings.Join(prefs, "; "))
		b.WriteString(".")
	}
	return b.String()
}

var fenceRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// stripFences removes a wrapping markdown code fence, if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// extractToolCall reports whether the model output is a JSON tool call and
// returns its raw bytes. Anything that is not a single JSON object with a
// "tool" key is treated as a final answer.
func extractToolCall(out string) ([]byte, bool) {
	s := stripFences(out)
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, false
	}
	if !strings.Contains(s, `"tool"`) {
		return nil, false
	}
	return []byte(s), true
}

// cleanTitle normalizes a model-generated title: fences and quotes off, one
// line only.
func cleanTitle(s string) string {
	s = stripFences(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.Trim(strings.TrimSpace(s), `"'`)
}
