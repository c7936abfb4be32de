package router

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"agentcore/internal/store"
)

// feedbackWindowSize bounds the in-memory classification history kept
// for calibration, matching the rolling window of the original router.
const feedbackWindowSize = 1000

// maxPatterns is the hard cap on stored auto-generated + manual
// patterns; calibration evicts down to this cap by effectiveness.
const maxPatterns = 100

// minMismatchesForConfusionPattern and minMismatchesForNewPattern are
// the sample-size floors below which a confusion group or a new-pattern
// candidate group is ignored as statistically unreliable.
const (
	minMismatchesForConfusionPattern = 5
	minMismatchesForNewPattern       = 3
	minSamplesForThresholdSweep      = 20
)

// CalibrationManager tracks classification feedback and periodically
// rebuilds the stored pattern set and tier thresholds from it. Ported
// step for step from the original router's calibrate(): analyze
// accuracy, learn tier-confusion patterns, generate new patterns from
// mismatches, reload + rescan existing pattern performance, merge in
// new patterns up to the cap, evict by effectiveness, sweep confidence
// thresholds, persist. No snapshot of the prior pattern set is taken
// before it is overwritten.
type CalibrationManager struct {
	store           *store.Store
	history         []FeedbackRecord
	lastCalibration time.Time
	thresholds      map[store.RoutingTier]float64
}

// NewCalibrationManager constructs a manager seeded with the default
// tier thresholds.
func NewCalibrationManager(s *store.Store) *CalibrationManager {
	seeded := make(map[store.RoutingTier]float64, len(defaultThresholds))
	for k, v := range defaultThresholds {
		seeded[k] = v
	}
	return &CalibrationManager{store: s, thresholds: seeded}
}

// RecordClassification appends one feedback record, trimming the
// history to the rolling window.
func (cm *CalibrationManager) RecordClassification(r FeedbackRecord) {
	cm.history = append(cm.history, r)
	if len(cm.history) > feedbackWindowSize {
		cm.history = cm.history[len(cm.history)-feedbackWindowSize:]
	}
}

// ThresholdFor returns the current (possibly calibrated) confidence
// threshold for a tier.
func (cm *CalibrationManager) ThresholdFor(tier store.RoutingTier) float64 {
	if t, ok := cm.thresholds[tier]; ok {
		return t
	}
	return Threshold(tier)
}

// CalibrationResult summarizes one calibration pass for logging/audit.
type CalibrationResult struct {
	ClassificationsAnalyzed int
	Accuracy                float64
	Matches                 int
	MismatchesCount         int
	PatternsAdded           int
	PatternsRemoved         int
	ThresholdAdjustments    map[store.RoutingTier]float64
	TotalPatterns           int
	EffectivePatterns       int
}

// Calibrate runs the full auto-calibration pass against the current
// in-memory history and persists the resulting pattern set.
func (cm *CalibrationManager) Calibrate() (CalibrationResult, error) {
	result := CalibrationResult{
		ClassificationsAnalyzed: len(cm.history),
		ThresholdAdjustments:    map[store.RoutingTier]float64{},
	}

	// 1/2. Analyze accuracy (overall + per tier).
	matches, mismatches, _ := cm.analyzeAccuracy()
	total := 0
	for _, r := range cm.history {
		if r.AssistedTier != "" && r.ClientTier != "" {
			total++
		}
	}
	result.Matches = matches
	result.MismatchesCount = len(mismatches)
	if total > 0 {
		result.Accuracy = float64(matches) / float64(total)
	}

	// 3. Learn tier-confusion patterns (informational; logged by caller).
	_ = learnConfusionPatterns(mismatches)

	// 4. Generate new patterns from mismatches, grouped by the correct tier.
	newPatterns := generatePatternsFromMismatches(mismatches)

	// 5. Load existing patterns and rescan the full history to refresh stats.
	existing, err := cm.store.ListRoutingPatterns()
	if err != nil {
		return result, fmt.Errorf("calibration: load existing patterns: %w", err)
	}
	cm.updatePatternPerformance(existing)

	// 6. Add new patterns up to the cap.
	for _, p := range newPatterns {
		if len(existing) >= maxPatterns {
			break
		}
		existing = append(existing, p)
		result.PatternsAdded++
	}

	// 7. Evict by effectiveness score down to the cap.
	before := len(existing)
	kept := evictByEffectiveness(existing, maxPatterns)
	for _, p := range existing[len(kept):] {
		if p.ID == "" {
			continue
		}
		if err := cm.store.DeleteRoutingPattern(p.ID); err != nil {
			return result, fmt.Errorf("calibration: delete evicted pattern: %w", err)
		}
	}
	existing = kept
	result.PatternsRemoved = before - len(existing)

	// 8. Sweep confidence thresholds per tier.
	adjustments := cm.sweepThresholds()
	result.ThresholdAdjustments = adjustments

	// 9. Persist the refreshed pattern set.
	for i := range existing {
		if err := cm.store.SaveRoutingPattern(&existing[i]); err != nil {
			return result, fmt.Errorf("calibration: save pattern: %w", err)
		}
	}
	cm.lastCalibration = time.Now()
	result.TotalPatterns = len(existing)
	for _, p := range existing {
		if isEffectivePattern(p) {
			result.EffectivePatterns++
		}
	}
	return result, nil
}

func (cm *CalibrationManager) analyzeAccuracy() (matches int, mismatches []FeedbackRecord, tierAccuracy map[store.RoutingTier]float64) {
	tierAccuracy = map[store.RoutingTier]float64{}
	tierTotal := map[store.RoutingTier]int{}
	tierMatch := map[store.RoutingTier]int{}

	for _, r := range cm.history {
		if r.AssistedTier == "" || r.ClientTier == "" {
			continue
		}
		tierTotal[r.ClientTier]++
		if r.ClientTier == r.AssistedTier {
			matches++
			tierMatch[r.ClientTier]++
		} else {
			mismatches = append(mismatches, r)
		}
	}
	for tier, n := range tierTotal {
		if n > 0 {
			tierAccuracy[tier] = float64(tierMatch[tier]) / float64(n)
		}
	}
	return matches, mismatches, tierAccuracy
}

// confusionLearning is the learned-pattern summary for one
// (client_tier, llm_tier) confusion pair.
type confusionLearning struct {
	Pair           string
	Count          int
	CommonBigrams  []string
	DominantAction ActionType
}

func learnConfusionPatterns(mismatches []FeedbackRecord) []confusionLearning {
	groups := map[string][]FeedbackRecord{}
	for _, m := range mismatches {
		key := string(m.ClientTier) + "_vs_" + string(m.AssistedTier)
		groups[key] = append(groups[key], m)
	}

	var learned []confusionLearning
	for key, records := range groups {
		if len(records) < minMismatchesForConfusionPattern {
			continue
		}
		contents := make([]string, len(records))
		actionCounts := map[ActionType]int{}
		for i, r := range records {
			contents[i] = r.ContentPreview
			actionCounts[r.ActionType]++
		}
		learned = append(learned, confusionLearning{
			Pair:           key,
			Count:          len(records),
			CommonBigrams:  topNgrams(contents, 2, 5),
			DominantAction: topAction(actionCounts),
		})
	}
	sort.Slice(learned, func(i, j int) bool { return learned[i].Pair < learned[j].Pair })
	return learned
}

func generatePatternsFromMismatches(mismatches []FeedbackRecord) []store.RoutingPattern {
	byTier := map[store.RoutingTier][]FeedbackRecord{}
	for _, m := range mismatches {
		tier := m.AssistedTier
		if tier == "" {
			tier = store.TierMedium
		}
		byTier[tier] = append(byTier[tier], m)
	}

	var patterns []store.RoutingPattern
	var tiers []string
	for tier := range byTier {
		tiers = append(tiers, string(tier))
	}
	sort.Strings(tiers)

	for _, tierStr := range tiers {
		tier := store.RoutingTier(tierStr)
		records := byTier[tier]
		if len(records) < minMismatchesForNewPattern {
			continue
		}
		contents := make([]string, len(records))
		actionCounts := map[ActionType]int{}
		for i, r := range records {
			contents[i] = r.ContentPreview
			actionCounts[r.ActionType]++
		}
		dominant := topAction(actionCounts)

		ngrams := append(topNgrams(contents, 2, 0), topNgrams(contents, 3, 0)...)
		counts := map[string]int{}
		for _, n := range ngrams {
			counts[n]++
		}
		ranked := rankByCount(counts)
		limit := 3
		if len(ranked) < limit {
			limit = len(ranked)
		}
		examples := contents
		if len(examples) > 3 {
			examples = examples[:3]
		}
		for _, ngram := range ranked[:limit] {
			patterns = append(patterns, store.RoutingPattern{
				Regex:          `\b` + regexp.QuoteMeta(ngram) + `\b`,
				TargetTier:     tier,
				BaseConfidence: 0.7,
				Examples:       append([]string(nil), examples...),
				Provenance:     store.ProvenanceAutoCalibration,
				ActionContext:  string(dominant),
			})
		}
	}
	return patterns
}

func topAction(counts map[ActionType]int) ActionType {
	best := ActionGeneral
	bestCount := -1
	var keys []string
	for a := range counts {
		keys = append(keys, string(a))
	}
	sort.Strings(keys)
	for _, k := range keys {
		a := ActionType(k)
		if counts[a] > bestCount {
			best = a
			bestCount = counts[a]
		}
	}
	return best
}

func rankByCount(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

// topNgrams extracts word n-grams from a set of content samples,
// ranked by frequency. limit<=0 returns every n-gram found (used when
// the caller wants to merge bigrams and trigrams before ranking).
func topNgrams(contents []string, n, limit int) []string {
	counts := map[string]int{}
	var order []string
	for _, content := range contents {
		words := wordPattern.FindAllString(strings.ToLower(content), -1)
		var filtered []string
		for _, w := range words {
			if len(w) > 2 {
				filtered = append(filtered, w)
			}
		}
		for i := 0; i+n <= len(filtered); i++ {
			gram := strings.Join(filtered[i:i+n], " ")
			if _, seen := counts[gram]; !seen {
				order = append(order, gram)
			}
			counts[gram]++
		}
	}
	if limit <= 0 {
		return order
	}
	ranked := rankByCount(counts)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func (cm *CalibrationManager) updatePatternPerformance(patterns []store.RoutingPattern) {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			continue
		}
		compiled[i] = re
	}
	for i := range patterns {
		re := compiled[i]
		if re == nil {
			continue
		}
		patterns[i].TimesUsed = 0
		patterns[i].TimesMatched = 0
		patterns[i].TimesCorrect = 0
		for _, r := range cm.history {
			lower := strings.ToLower(r.ContentPreview)
			if !re.MatchString(lower) {
				continue
			}
			patterns[i].TimesUsed++
			patterns[i].TimesMatched++
			if r.FinalTier != "" && r.FinalTier == patterns[i].TargetTier {
				patterns[i].TimesCorrect++
			}
		}
	}
}

// effectivenessScore and isEffective fill in for the original
// router's RoutingPattern.effectiveness_score / is_effective
// properties, whose source (models.py) was not present in the
// retrieval pack; defined here as usage-weighted success rate so
// patterns need both a decent hit rate and enough samples to rank
// highly, matching the spirit of "intelligent eviction" described in
// the original calibrate() docstring.
func effectivenessScore(p store.RoutingPattern) float64 {
	if p.TimesMatched == 0 {
		return 0
	}
	successRate := float64(p.TimesCorrect) / float64(p.TimesMatched)
	usageWeight := float64(p.TimesUsed)
	if usageWeight > 50 {
		usageWeight = 50
	}
	return successRate * (usageWeight / 50)
}

func isEffectivePattern(p store.RoutingPattern) bool {
	return p.TimesMatched >= 5 && p.TimesMatched > 0 && float64(p.TimesCorrect)/float64(p.TimesMatched) >= 0.5
}

func evictByEffectiveness(patterns []store.RoutingPattern, maxCount int) []store.RoutingPattern {
	sort.SliceStable(patterns, func(i, j int) bool {
		return effectivenessScore(patterns[i]) > effectivenessScore(patterns[j])
	})
	if len(patterns) > maxCount {
		patterns = patterns[:maxCount]
	}
	return patterns
}

var thresholdGrids = map[store.RoutingTier][]float64{
	store.TierSimple:    {0.0, 0.1, 0.2, 0.3, 0.4, 0.5},
	store.TierMedium:    {0.5, 0.6, 0.7, 0.75, 0.8, 0.85, 0.9, 0.95},
	store.TierComplex:   {0.5, 0.6, 0.7, 0.75, 0.8, 0.85, 0.9, 0.95},
	store.TierCoding:    {0.5, 0.6, 0.7, 0.75, 0.8, 0.85, 0.9, 0.95},
	store.TierReasoning: {0.5, 0.6, 0.7, 0.75, 0.8, 0.85, 0.9, 0.95},
}

// sweepThresholds re-derives each tier's confidence threshold from a
// grid search on weighted_score = 0.8*accuracy + 0.2*min(n,100)/100.
// Grid values with fewer than 10 samples at or above them are skipped,
// ties go to the earlier grid value, and the best value is adopted
// whenever it differs from the current threshold; the current
// threshold itself is not scored.
func (cm *CalibrationManager) sweepThresholds() map[store.RoutingTier]float64 {
	adjustments := map[store.RoutingTier]float64{}

	byTier := map[store.RoutingTier][]FeedbackRecord{}
	for _, r := range cm.history {
		if r.ClientTier == "" || r.AssistedTier == "" {
			continue
		}
		byTier[r.ClientTier] = append(byTier[r.ClientTier], r)
	}

	var tiers []string
	for t := range byTier {
		tiers = append(tiers, string(t))
	}
	sort.Strings(tiers)

	for _, tierStr := range tiers {
		tier := store.RoutingTier(tierStr)
		records := byTier[tier]
		if len(records) < minSamplesForThresholdSweep {
			continue
		}

		grid := thresholdGrids[tier]
		if grid == nil {
			grid = thresholdGrids[store.TierMedium]
		}

		current := cm.ThresholdFor(tier)
		bestThreshold := current
		bestScore := -1.0

		for _, threshold := range grid {
			var above []FeedbackRecord
			for _, r := range records {
				bucket := roundToTenth(r.ClientConfidence)
				if bucket >= threshold {
					above = append(above, r)
				}
			}
			if len(above) < 10 {
				continue
			}
			matches := 0
			for _, r := range above {
				if r.ClientTier == r.AssistedTier {
					matches++
				}
			}
			accuracy := float64(matches) / float64(len(above))
			sampleWeight := float64(len(above))
			if sampleWeight > 100 {
				sampleWeight = 100
			}
			score := accuracy*0.8 + (sampleWeight/100)*0.2
			if score > bestScore {
				bestScore = score
				bestThreshold = threshold
			}
		}

		if bestThreshold != current {
			cm.thresholds[tier] = bestThreshold
			adjustments[tier] = bestThreshold
		}
	}
	return adjustments
}

func roundToTenth(f float64) float64 {
	return float64(int(f*10+0.5)) / 10
}
