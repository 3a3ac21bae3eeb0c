package bgg

import (
	"strconv"
	"strings"

	"bggcache/internal/core"
)

type valueAttr struct {
	Value string `xml:"value,attr"`
}

func (v valueAttr) int() int {
	n, err := strconv.Atoi(strings.TrimSpace(v.Value))
	if err != nil {
		return 0
	}
	return n
}

func (v valueAttr) float() (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v.Value), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

type thingItems struct {
	Items []thingItem `xml:"item"`
}

type thingItem struct {
	ID            int          `xml:"id,attr"`
	Type          string       `xml:"type,attr"`
	Thumbnail     string       `xml:"thumbnail"`
	Image         string       `xml:"image"`
	Names         []thingName  `xml:"name"`
	Description   string       `xml:"description"`
	YearPublished valueAttr    `xml:"yearpublished"`
	MinPlayers    valueAttr    `xml:"minplayers"`
	MaxPlayers    valueAttr    `xml:"maxplayers"`
	PlayingTime   valueAttr    `xml:"playingtime"`
	MinPlayTime   valueAttr    `xml:"minplaytime"`
	MaxPlayTime   valueAttr    `xml:"maxplaytime"`
	MinAge        valueAttr    `xml:"minage"`
	Polls         []thingPoll  `xml:"poll"`
	Links         []thingLink  `xml:"link"`
	Ratings       thingRatings `xml:"statistics>ratings"`
}

type thingName struct {
	Type  string `xml:"type,attr"`
	Value string `xml:"value,attr"`
}

type thingLink struct {
	Type  string `xml:"type,attr"`
	ID    int    `xml:"id,attr"`
	Value string `xml:"value,attr"`
}

type thingPoll struct {
	Name    string            `xml:"name,attr"`
	Results []thingPollResult `xml:"results"`
}

type thingPollResult struct {
	NumPlayers string           `xml:"numplayers,attr"`
	Votes      []thingPollVotes `xml:"result"`
}

type thingPollVotes struct {
	Value    string `xml:"value,attr"`
	NumVotes int    `xml:"numvotes,attr"`
}

type thingRatings struct {
	UsersRated    valueAttr `xml:"usersrated"`
	Average       valueAttr `xml:"average"`
	AverageWeight valueAttr `xml:"averageweight"`
}

func (it thingItem) toGame() core.Game {
	g := core.Game{
		ID:             it.ID,
		Name:           it.primaryName(),
		YearPublished:  it.YearPublished.int(),
		Thumbnail:      strings.TrimSpace(it.Thumbnail),
		Image:          strings.TrimSpace(it.Image),
		Description:    strings.TrimSpace(it.Description),
		MinPlayers:     it.MinPlayers.int(),
		MaxPlayers:     it.MaxPlayers.int(),
		PlayingTime:    it.PlayingTime.int(),
		MinPlayingTime: it.MinPlayTime.int(),
		MaxPlayingTime: it.MaxPlayTime.int(),
		MinAge:         it.MinAge.int(),
		Expansion:      it.Type == "boardgameexpansion",
		UsersRated:     it.Ratings.UsersRated.int(),
	}

	for _, l := range it.Links {
		switch l.Type {
		case "boardgamemechanic":
			g.Mechanics = append(g.Mechanics, l.Value)
		case "boardgamecategory":
			g.Categories = append(g.Categories, l.Value)
		case "boardgamedesigner":
			g.Designers = append(g.Designers, l.Value)
		}
	}

	for _, p := range it.Polls {
		if p.Name == "suggested_numplayers" {
			g.SuggestedPlayers = p.suggestions()
		}
	}

	// The API reports 0 for both when nobody has voted.
	if avg, ok := it.Ratings.Average.float(); ok && g.UsersRated > 0 {
		g.RatingAverage = &avg
	}
	if w, ok := it.Ratings.AverageWeight.float(); ok && w > 0 {
		g.RatingAverageWeight = &w
	}
	return g
}

func (it thingItem) primaryName() string {
	for _, n := range it.Names {
		if n.Type == "primary" {
			return n.Value
		}
	}
	if len(it.Names) > 0 {
		return it.Names[0].Value
	}
	return ""
}

// suggestions skips open-ended rows such as "4+".
func (p thingPoll) suggestions() []core.PlayerSuggestion {
	var out []core.PlayerSuggestion
	for _, r := range p.Results {
		count, err := strconv.Atoi(strings.TrimSpace(r.NumPlayers))
		if err != nil {
			continue
		}
		s := core.PlayerSuggestion{PlayerCount: count}
		for _, v := range r.Votes {
			switch v.Value {
			case "Best":
				s.Best = v.NumVotes
			case "Recommended":
				s.Recommended = v.NumVotes
			case "Not Recommended":
				s.NotRecommended = v.NumVotes
			}
		}
		out = append(out, s)
	}
	return out
}

type collectionItems struct {
	Items []collectionItem `xml:"item"`
}

type collectionItem struct {
	ObjectID int `xml:"objectid,attr"`
}

// apiErrors is the body returned for a bad collection request, e.g. an
// unknown username.
type apiErrors struct {
	Errors []struct {
		Message string `xml:"message"`
	} `xml:"error"`
}

type searchItems struct {
	Items []searchItem `xml:"item"`
}

type searchItem struct {
	ID            int         `xml:"id,attr"`
	Type          string      `xml:"type,attr"`
	Names         []thingName `xml:"name"`
	YearPublished valueAttr   `xml:"yearpublished"`
}

type geekList struct {
	Items []geekListItem `xml:"item"`
}

type geekListItem struct {
	ObjectID   string `xml:"objectid,attr"`
	ObjectType string `xml:"objecttype,attr"`
}
