package cwa

// EstimateTokens gives a coarse token estimate for text, using the usual
// chars/4 heuristic. It is informative only, never a hard limit.
func EstimateTokens(text string) int {
	return len(text) / 4
}
