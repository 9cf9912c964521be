package domain

import "strings"

// Category es la clasificación gruesa del mercado de un trade.
// Se usa para seleccionar stats y thresholds específicos por categoría.
type Category string

const (
	CategoryCrypto   Category = "crypto"
	CategoryPolitics Category = "politics"
	CategorySports   Category = "sports"
	CategoryWeather  Category = "weather"
	CategoryOther    Category = "other"
)

// Conjuntos de keywords por categoría. Matching por substring case-insensitive,
// primera categoría que matchea gana (orden de prioridad: crypto → politics →
// sports → weather).
var (
	cryptoKeywords   = []string{"bitcoin", "ethereum", "crypto", "btc", "eth", "solana", "price"}
	politicsKeywords = []string{"trump", "harris", "election", "president", "senate", "democrat", "republican"}
	sportsKeywords   = []string{"nfl", "nba", "football", "soccer", "game", "winner", "champions"}
	weatherKeywords  = []string{"temperature", "rain", "hurricane", "weather", "snow"}
)

// Categorize clasifica un mercado a partir de su título y slug.
// Nunca falla: el fallback es CategoryOther.
func Categorize(title, slug string) Category {
	text := strings.ToLower(title) + " " + strings.ToLower(slug)

	switch {
	case containsAny(text, cryptoKeywords):
		return CategoryCrypto
	case containsAny(text, politicsKeywords):
		return CategoryPolitics
	case containsAny(text, sportsKeywords):
		return CategorySports
	case containsAny(text, weatherKeywords):
		return CategoryWeather
	}
	return CategoryOther
}

// ExtractLeague devuelve la liga deportiva detectada en el título/slug, o ""
// si no hay match. Solo para reporting, no afecta al scoring.
func ExtractLeague(title, slug string) string {
	t := strings.ToLower(title)
	s := strings.ToLower(slug)
	switch {
	case strings.Contains(t, "nfl") || strings.Contains(s, "nfl"):
		return "NFL"
	case strings.Contains(t, "nba") || strings.Contains(s, "nba"):
		return "NBA"
	case strings.Contains(t, "mlb") || strings.Contains(s, "mlb"):
		return "MLB"
	case strings.Contains(t, "nhl") || strings.Contains(s, "nhl"):
		return "NHL"
	case strings.Contains(t, "premier league") || strings.Contains(s, "premier"):
		return "Premier League"
	case strings.Contains(t, "soccer") || strings.Contains(s, "soccer") || strings.Contains(t, "fifa"):
		return "Soccer"
	}
	return ""
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
