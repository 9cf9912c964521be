package domain

import "strings"

// NormalizeOutcome canonicaliza un label de outcome para comparación:
// minúsculas y solo alfanuméricos. "Yes " y "YES" comparan iguales.
func NormalizeOutcome(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MatchOutcome compara dos labels de outcome con fallback por inclusión,
// y con los alias binarios del venue (up/bull → yes, down/bear → no).
func MatchOutcome(a, b string) bool {
	na, nb := NormalizeOutcome(a), NormalizeOutcome(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return true
	}
	return binaryAlias(na) == binaryAlias(nb) && binaryAlias(na) != ""
}

func binaryAlias(norm string) string {
	switch norm {
	case "yes", "up", "bull":
		return "yes"
	case "no", "down", "bear":
		return "no"
	}
	return ""
}
