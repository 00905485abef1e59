// Package domain defines core domain types, constants, and validation for the
// Xplorer trip-planning pipeline. It acts as the validation gate at pipeline
// entry points.
package domain

// Profile represents a traveller's stored profile.
type Profile struct {
	UID         string   `json:"uid"`
	FullName    string   `json:"full_name"`
	Email       string   `json:"email"`
	Country     string   `json:"country"`
	TravelStyle []string `json:"travel_style"`
	Interests   []string `json:"interests"`
	Budget      string   `json:"budget"`
	CreatedAt   string   `json:"created_at,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
}

// TripRequest is a route-optimization request: place names grouped by day,
// with an optional home base the route loops through.
type TripRequest struct {
	Days     [][]string `json:"days"`
	HomeBase string     `json:"home_base,omitempty"`
}

// SingleDay wraps a flat place list into a one-day TripRequest.
func SingleDay(places []string, homeBase string) TripRequest {
	return TripRequest{Days: [][]string{places}, HomeBase: homeBase}
}

// ChatQuery is a user chat turn entering the agent.
type ChatQuery struct {
	UID   string         `json:"uid"`
	Text  string         `json:"text"`
	Extra map[string]any `json:"submitted_data,omitempty"`
}

// TravelStyle values accepted on a profile.
type TravelStyle string

const (
	StyleSolo     TravelStyle = "solo"
	StyleCouple   TravelStyle = "couple"
	StyleFamily   TravelStyle = "family"
	StyleFriends  TravelStyle = "friends"
	StyleBusiness TravelStyle = "business"
)

// ValidTravelStyles is the set of recognised travel styles.
var ValidTravelStyles = map[TravelStyle]bool{
	StyleSolo: true, StyleCouple: true, StyleFamily: true,
	StyleFriends: true, StyleBusiness: true,
}

// Interest values accepted on a profile.
type Interest string

const (
	InterestArt         Interest = "art"
	InterestFood        Interest = "food"
	InterestHistory     Interest = "history"
	InterestNature      Interest = "nature"
	InterestShopping    Interest = "shopping"
	InterestAdventure   Interest = "adventure"
	InterestNightlife   Interest = "nightlife"
	InterestPhotography Interest = "photography"
)

// ValidInterests is the set of recognised interests.
var ValidInterests = map[Interest]bool{
	InterestArt: true, InterestFood: true, InterestHistory: true,
	InterestNature: true, InterestShopping: true, InterestAdventure: true,
	InterestNightlife: true, InterestPhotography: true,
}

// Budget tiers accepted on a profile.
type Budget string

const (
	BudgetLow      Budget = "budget"
	BudgetModerate Budget = "moderate"
	BudgetLuxury   Budget = "luxury"
)

// ValidBudgets is the set of recognised budget tiers.
var ValidBudgets = map[Budget]bool{
	BudgetLow: true, BudgetModerate: true, BudgetLuxury: true,
}

// MaxInterests is the cap on interests stored per profile.
const MaxInterests = 3
