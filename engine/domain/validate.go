package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Injection patterns — Cypher/NoSQL fragments that should never appear in a
// user-supplied place name or chat query.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(MATCH|MERGE|DELETE|DETACH|CREATE|SET)\b.*\b(RETURN|WHERE)\b`),
	regexp.MustCompile(`(?i)(--|;)\s*(DROP|DELETE|MATCH)`),
	regexp.MustCompile(`(?i)\$\{.*\}`),            // template injection
	regexp.MustCompile(`(?i)\{\s*"\$[a-z]+"\s*:`), // NoSQL operator injection
}

const minQueryLength = 2

// ValidateProfile validates the user-controlled preference fields of a Profile.
func ValidateProfile(p Profile) error {
	if strings.TrimSpace(p.FullName) == "" {
		return NewValidationError("full_name", p.FullName, ErrInvalidProfile)
	}
	for _, s := range p.TravelStyle {
		if !ValidTravelStyles[TravelStyle(strings.ToLower(s))] {
			return NewValidationError("travel_style", s, ErrUnsupportedStyle)
		}
	}
	if len(p.Interests) > MaxInterests {
		return NewValidationError("interests", strings.Join(p.Interests, ","), ErrTooManyInterests)
	}
	for _, in := range p.Interests {
		if !ValidInterests[Interest(strings.ToLower(in))] {
			return NewValidationError("interests", in, ErrUnsupportedInterest)
		}
	}
	if p.Budget != "" && !ValidBudgets[Budget(strings.ToLower(p.Budget))] {
		return NewValidationError("budget", p.Budget, ErrUnsupportedBudget)
	}
	return nil
}

// ValidateChatQuery validates a chat turn before it reaches the agent.
func ValidateChatQuery(q ChatQuery) error {
	text := strings.TrimSpace(q.Text)
	if utf8.RuneCountInString(text) < minQueryLength {
		return NewValidationError("text", text, ErrQueryTooShort)
	}
	for _, pat := range injectionPatterns {
		if pat.MatchString(text) {
			return NewValidationError("text", text, ErrQueryInjection)
		}
	}
	return nil
}

// ValidateTripRequest checks that a trip request names at least one place
// or a home base. Whitespace-only names do not count.
func ValidateTripRequest(r TripRequest) error {
	if strings.TrimSpace(r.HomeBase) != "" {
		return nil
	}
	for _, day := range r.Days {
		for _, name := range day {
			if strings.TrimSpace(name) != "" {
				return nil
			}
		}
	}
	return ErrNoPlaces
}
