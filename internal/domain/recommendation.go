package domain

// Recommendation es el resultado final del flujo por pasos.
type Recommendation struct {
	RecommendedMovie   string   `json:"recommended_movie"`
	Year               string   `json:"year"`
	Genre              []string `json:"genre"`
	Director           string   `json:"director"`
	MainCast           []string `json:"main_cast"`
	Reason             string   `json:"reason"`
	MatchPoints        []string `json:"match_points"`
	StreamingPlatforms []string `json:"streaming_platforms"`
}

// QAPair es una pregunta anticipada con su respuesta, para el paso de follow-up.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// AgentRecommendation es el resultado del modo multi-agente.
type AgentRecommendation struct {
	MovieTitle string `json:"movie_title"`
	Year       string `json:"year"`
	Reason     string `json:"reason"`
	Genre      string `json:"genre"`
	MatchPoint string `json:"match_point"`
}

// FallbackRecommendation cubre el caso en que el oracle falla en el paso final.
func FallbackRecommendation() Recommendation {
	return Recommendation{
		RecommendedMovie: "The Shawshank Redemption",
		Year:             "1994",
		Genre:            []string{"Drama", "Crime"},
		Director:         "Frank Darabont",
		MainCast:         []string{"Tim Robbins", "Morgan Freeman"},
		Reason:           "A classic story of hope and dignity sustained through years of confinement. It carries both philosophical weight and emotional force, matching a preference for substantial themes.",
		MatchPoints:      []string{"thematic depth", "strong narrative structure", "emotionally moving", "outstanding performances"},
		StreamingPlatforms: []string{
			"Netflix", "Amazon Prime Video", "Hulu",
		},
	}
}

// FallbackQAPairs cubre el caso en que el oracle falla en el paso de follow-up.
func FallbackQAPairs() []QAPair {
	return []QAPair{
		{
			Question: "Why was this movie recommended to me?",
			Answer:   "It closely matches the profile built from your answers: the genres you enjoy and the values you expressed line up with this movie's themes and style.",
		},
		{
			Question: "Where can I watch it?",
			Answer:   "It is available on the major streaming platforms, such as Netflix, Amazon Prime Video or Hulu. Check the services available in your region.",
		},
		{
			Question: "Are there similar movies?",
			Answer:   "Based on your preferences there are several close matches in theme, style or emotional tone. Ask for another recommendation to explore them.",
		},
	}
}
