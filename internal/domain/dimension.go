package domain

// TraitDimension define un eje psicologico fijo sobre el que se puntuan las personas.
// El set es estatico: nunca se muta despues de cargar.
type TraitDimension struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Keywords string `json:"keywords"`
	Topic    string `json:"topic"`
}

// DimensionCount es la cardinalidad fija del modelo de rasgos.
const DimensionCount = 7

var dimensions = []TraitDimension{
	{ID: 0, Name: "Cognitive Complexity (SCC)", Keywords: "plot twists, puzzles, layered narratives, demanding stories", Topic: "story complexity"},
	{ID: 1, Name: "Emotional Intensity (ASI)", Keywords: "thrills, shock value, action, pacing", Topic: "excitement and stimulation"},
	{ID: 2, Name: "Moral Alignment (MVA)", Keywords: "social themes, justice, good versus evil, message-driven", Topic: "moral themes"},
	{ID: 3, Name: "Psychological Safety (PSF)", Keywords: "happy endings, comfort viewing, familiar formulas, healing", Topic: "comfort and reassurance"},
	{ID: 4, Name: "Aesthetic Abstraction (AAO)", Keywords: "visual beauty, distinctive worlds, atmosphere, artistry", Topic: "visuals and atmosphere"},
	{ID: 5, Name: "Social Density (SRD)", Keywords: "relationships, romance, friendship, dialogue-driven drama", Topic: "human drama"},
	{ID: 6, Name: "Practical Realism (PRI)", Keywords: "based on true stories, realism, documentary feel", Topic: "realism"},
}

// Dimensions devuelve el set completo de dimensiones en orden de id.
func Dimensions() []TraitDimension {
	out := make([]TraitDimension, len(dimensions))
	copy(out, dimensions)
	return out
}

// DimensionByID busca una dimension por id; ok=false si esta fuera de rango.
func DimensionByID(id int) (TraitDimension, bool) {
	if id < 0 || id >= len(dimensions) {
		return TraitDimension{}, false
	}
	return dimensions[id], true
}
