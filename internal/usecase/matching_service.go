package usecase

import (
	"log"
	"sort"
	"strings"

	"github.com/foodflow/backend/internal/domain"
)

// Scoring weights and bonuses
const (
	labelCoverageWeight     = 0.60 // fraction of label tokens found in the candidate
	candidateCoverageWeight = 0.20 // fraction of candidate tokens found in the label
	jaccardWeight           = 0.20
	fuzzyWeightFactor       = 0.8 // fuzzy token matches get 80% of normal credit

	brandMatchBonus  = 5.0
	weightMatchBonus = 5.0

	maxSuggestions = 3
)

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	// MinScoreThreshold is the acceptance score on the 0-100 scale
	MinScoreThreshold float64
	// SuggestionFloor is the minimum score for near-miss suggestions
	SuggestionFloor float64
	// FuzzyEditDistance is the Levenshtein tolerance for token equality
	FuzzyEditDistance  int
	EnableDebugLogging bool
}

// MatchingService scores scanned labels against normalized receipt items.
// All methods are deterministic: the same inputs always produce the same
// result, and nothing here performs I/O.
type MatchingService struct {
	minScoreThreshold  float64
	suggestionFloor    float64
	fuzzyEditDistance  int
	enableDebugLogging bool
}

// NewMatchingService creates a new matching service with the given configuration
func NewMatchingService(config MatchConfig) *MatchingService {
	threshold := config.MinScoreThreshold
	if threshold <= 0 {
		threshold = 70.0
	}

	floor := config.SuggestionFloor
	if floor <= 0 {
		floor = 40.0
	}

	fuzzyDist := config.FuzzyEditDistance
	if fuzzyDist <= 0 {
		fuzzyDist = 1
	}

	return &MatchingService{
		minScoreThreshold:  threshold,
		suggestionFloor:    floor,
		fuzzyEditDistance:  fuzzyDist,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// Match finds the best candidate for a scanned label. Pure: it never mutates
// its inputs and repeated calls return the same result. Matched is nil when
// no candidate reaches the acceptance threshold.
func (s *MatchingService) Match(label domain.LabelFacts, candidates []domain.NormalizedItem) domain.MatchResult {
	best, score := s.bestCandidate(label, candidates, nil)
	if best < 0 || score < s.minScoreThreshold {
		return domain.MatchResult{Score: score}
	}

	matched := candidates[best]
	return domain.MatchResult{Matched: &matched, Score: score}
}

// labelKey is the precomputed comparison form of a scanned label
type labelKey struct {
	tokens []string
	brand  string
	weight string
}

func makeLabelKey(label domain.LabelFacts) labelKey {
	text := label.Name
	if label.Brand != nil {
		text += " " + *label.Brand
	}
	key := labelKey{
		tokens: tokenizeFolded(foldText(text)),
		weight: extractWeightToken(label.Name),
	}
	if label.Brand != nil {
		key.brand = foldText(*label.Brand)
	}
	return key
}

// bestCandidate scores every candidate and returns the index and score of
// the winner. Candidates marked in skip are not scored at all. On score ties
// the earlier candidate wins, keeping results deterministic. Returns -1 when
// nothing is scorable.
func (s *MatchingService) bestCandidate(label domain.LabelFacts, candidates []domain.NormalizedItem, skip []bool) (int, float64) {
	key := makeLabelKey(label)

	bestIdx := -1
	bestScore := 0.0
	for i, candidate := range candidates {
		if skip != nil && skip[i] {
			continue
		}
		score := s.scoreCandidate(key.tokens, key.brand, key.weight, candidate)

		if s.enableDebugLogging {
			log.Printf("[MATCH] %q vs %q: %.1f", label.Name, candidate.CanonicalName, score)
		}

		if score > bestScore {
			bestIdx, bestScore = i, score
		}
	}

	return bestIdx, bestScore
}

// scoreCandidate computes the 0-100 similarity between a label and one
// candidate. The candidate is scored on both its canonical and original
// names and keeps the better of the two; receipts abbreviate names in ways
// normalization sometimes fixes and sometimes preserves.
func (s *MatchingService) scoreCandidate(labelTokens []string, labelBrand, labelWeight string, candidate domain.NormalizedItem) float64 {
	canonical := foldText(candidate.CanonicalName)
	original := foldText(candidate.OriginalName)

	score := s.tokenSetScore(labelTokens, tokenizeFolded(canonical))
	if original != canonical {
		if alt := s.tokenSetScore(labelTokens, tokenizeFolded(original)); alt > score {
			score = alt
		}
	}

	if labelBrand != "" && (strings.Contains(canonical, labelBrand) || strings.Contains(original, labelBrand)) {
		score += brandMatchBonus
	}

	if labelWeight != "" {
		candWeight := extractWeightToken(candidate.CanonicalName)
		if candWeight == "" {
			candWeight = extractWeightToken(candidate.OriginalName)
		}
		if candWeight == labelWeight {
			score += weightMatchBonus
		}
	}

	if score > 100 {
		score = 100
	}
	return score
}

// tokenSetScore computes the weighted token-set similarity of two token
// lists on a 0-100 scale
func (s *MatchingService) tokenSetScore(labelTokens, candidateTokens []string) float64 {
	if len(labelTokens) == 0 || len(candidateTokens) == 0 {
		return 0
	}

	labelMatched := s.fuzzyIntersection(labelTokens, candidateTokens)
	labelCoverage := labelMatched / float64(len(labelTokens))

	candidateMatched := s.fuzzyIntersection(candidateTokens, labelTokens)
	candidateCoverage := candidateMatched / float64(len(candidateTokens))

	union := float64(findUnion(labelTokens, candidateTokens))
	jaccard := labelMatched / union

	return (labelCoverage*labelCoverageWeight + candidateCoverage*candidateCoverageWeight + jaccard*jaccardWeight) * 100
}

// fuzzyIntersection counts tokens of a that appear in b. Exact matches count
// fully; tokens within the edit distance tolerance count at reduced weight.
func (s *MatchingService) fuzzyIntersection(a, b []string) float64 {
	set := make(map[string]bool, len(b))
	for _, t := range b {
		set[t] = true
	}

	matched := 0.0
	for _, t := range a {
		if set[t] {
			matched++
			continue
		}
		for _, other := range b {
			if fuzzyTokenMatch(t, other, s.fuzzyEditDistance) {
				matched += fuzzyWeightFactor
				break
			}
		}
	}
	return matched
}

// fuzzyTokenMatch checks if two tokens are similar within the edit distance
// threshold. Short tokens are excluded, one edit in a three-letter word is a
// different word more often than a typo.
func fuzzyTokenMatch(token1, token2 string, threshold int) bool {
	if token1 == token2 {
		return true
	}

	r1 := []rune(token1)
	r2 := []rune(token2)
	if len(r1) < 4 || len(r2) < 4 {
		return false
	}

	lenDiff := len(r1) - len(r2)
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	if lenDiff > threshold {
		return false
	}

	return levenshteinDistance(r1, r2) <= threshold
}

// levenshteinDistance calculates the edit distance between two rune slices
func levenshteinDistance(r1, r2 []rune) int {
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	m := len(r1)
	n := len(r2)

	// Two rows instead of the full matrix for space efficiency
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}

// findUnion returns the count of unique tokens across both sets
func findUnion(tokens1, tokens2 []string) int {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}
	for _, t := range tokens2 {
		set[t] = true
	}
	return len(set)
}

// Session matches a stream of labels against one candidate set, consuming
// each candidate at most once
type Session struct {
	svc        *MatchingService
	candidates []domain.NormalizedItem
	consumed   []bool
}

// NewSession starts a matching session over a copy of the candidate list
func (s *MatchingService) NewSession(candidates []domain.NormalizedItem) *Session {
	return &Session{
		svc:        s,
		candidates: append([]domain.NormalizedItem(nil), candidates...),
		consumed:   make([]bool, len(candidates)),
	}
}

// Match finds and consumes the best remaining candidate for a label.
// Already consumed candidates cannot win again.
func (sess *Session) Match(label domain.LabelFacts) domain.MatchResult {
	bestIdx, bestScore := sess.svc.bestCandidate(label, sess.candidates, sess.consumed)
	if bestIdx < 0 || bestScore < sess.svc.minScoreThreshold {
		return domain.MatchResult{Score: bestScore}
	}

	sess.consumed[bestIdx] = true
	matched := sess.candidates[bestIdx]
	return domain.MatchResult{Matched: &matched, Score: bestScore}
}

// suggestions returns up to maxSuggestions unconsumed candidates scoring at
// or above the suggestion floor, best first
func (sess *Session) suggestions(label domain.LabelFacts) []domain.Suggestion {
	key := makeLabelKey(label)

	var result []domain.Suggestion
	for i, candidate := range sess.candidates {
		if sess.consumed[i] {
			continue
		}
		score := sess.svc.scoreCandidate(key.tokens, key.brand, key.weight, candidate)
		if score >= sess.svc.suggestionFloor {
			result = append(result, domain.Suggestion{Item: candidate, Score: score})
		}
	}

	sort.SliceStable(result, func(i, j int) bool { return result[i].Score > result[j].Score })
	if len(result) > maxSuggestions {
		result = result[:maxSuggestions]
	}
	return result
}

// Reconcile pairs a batch of scanned labels with receipt items. Each item is
// consumed by at most one label; labels that find nothing acceptable are
// reported with near-miss suggestions.
func (s *MatchingService) Reconcile(labels []domain.LabelFacts, candidates []domain.NormalizedItem) domain.ReconcileReport {
	sess := s.NewSession(candidates)

	report := domain.ReconcileReport{
		Matched:   []domain.ReconciledPair{},
		Unmatched: []domain.UnmatchedLabel{},
	}

	for _, label := range labels {
		result := sess.Match(label)
		if result.Matched != nil {
			report.Matched = append(report.Matched, domain.ReconciledPair{
				Label: label,
				Item:  *result.Matched,
				Score: result.Score,
			})
			continue
		}
		report.Unmatched = append(report.Unmatched, domain.UnmatchedLabel{
			Label:       label,
			Suggestions: sess.suggestions(label),
		})
	}

	return report
}
