// Package core provides the domain types, collaborator interfaces and error
// taxonomy shared by the board-game gateway.
package core

// Game is a full board-game record as fetched from the upstream API.
// Records are replaced wholesale on refresh and never partially mutated.
type Game struct {
	ID               int                `json:"id"`
	Name             string             `json:"name"`
	YearPublished    int                `json:"year_published"`
	Thumbnail        string             `json:"thumbnail"`
	Image            string             `json:"image"`
	Description      string             `json:"description"`
	MinPlayers       int                `json:"min_players"`
	MaxPlayers       int                `json:"max_players"`
	PlayingTime      int                `json:"playing_time"`
	MinPlayingTime   int                `json:"min_playing_time"`
	MaxPlayingTime   int                `json:"max_playing_time"`
	MinAge           int                `json:"min_age"`
	Expansion        bool               `json:"expansion"`
	Mechanics        []string           `json:"mechanics"`
	Categories       []string           `json:"categories"`
	Designers        []string           `json:"designers"`
	SuggestedPlayers []PlayerSuggestion `json:"suggested_players"`
	UsersRated       int                `json:"users_rated"`
	RatingAverage    *float64           `json:"rating_average,omitempty"`
	// RatingAverageWeight is the community complexity rating (1-5).
	RatingAverageWeight *float64 `json:"rating_average_weight,omitempty"`
}

// Weight returns the complexity rating, or 0 when the record has none.
func (g *Game) Weight() float64 {
	if g.RatingAverageWeight == nil {
		return 0
	}
	return *g.RatingAverageWeight
}

// PlayerSuggestion is one row of the community player-count poll.
type PlayerSuggestion struct {
	PlayerCount    int `json:"player_count"`
	Best           int `json:"best"`
	Recommended    int `json:"recommended"`
	NotRecommended int `json:"not_recommended"`
}

// Qualifies reports whether "best" or "recommended" votes outnumber
// "not recommended" votes for this player count.
func (s PlayerSuggestion) Qualifies() bool {
	return s.Best > s.NotRecommended || s.Recommended > s.NotRecommended
}

// SearchResult is a lightweight record returned by a name search.
type SearchResult struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	YearPublished int    `json:"year_published,omitempty"`
}
