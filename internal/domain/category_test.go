package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/whaletracker/engine/internal/domain"
)

func TestCategorize(t *testing.T) {
	assert.Equal(t, domain.CategoryCrypto, domain.Categorize("Will Bitcoin hit $200k?", "bitcoin-200k"))
	assert.Equal(t, domain.CategoryPolitics, domain.Categorize("Presidential Election 2028", ""))
	assert.Equal(t, domain.CategorySports, domain.Categorize("", "nba-finals-winner"))
	assert.Equal(t, domain.CategoryWeather, domain.Categorize("Hurricane landfall in Florida", ""))
	assert.Equal(t, domain.CategoryOther, domain.Categorize("Oscar best picture", "oscars-2026"))
}

func TestCategorize_PriorityOrder(t *testing.T) {
	// "price" es keyword de crypto y gana sobre sports aunque aparezca "game"
	assert.Equal(t, domain.CategoryCrypto, domain.Categorize("ETH price during the game", ""))
}

func TestCategorize_CaseInsensitive(t *testing.T) {
	assert.Equal(t, domain.CategoryPolitics, domain.Categorize("TRUMP wins Ohio", ""))
}

func TestExtractLeague(t *testing.T) {
	assert.Equal(t, "NFL", domain.ExtractLeague("NFL: Chiefs vs Bills", ""))
	assert.Equal(t, "NHL", domain.ExtractLeague("", "nhl-rangers-win"))
	assert.Equal(t, "Premier League", domain.ExtractLeague("Premier League top scorer", ""))
	assert.Equal(t, "Soccer", domain.ExtractLeague("FIFA World Cup winner", ""))
	assert.Equal(t, "", domain.ExtractLeague("Bitcoin above 100k", "btc-100k"))
}
