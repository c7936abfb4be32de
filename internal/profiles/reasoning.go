package profiles

import "strings"

// CoTLevel is a chain-of-thought reflection intensity.
type CoTLevel string

const (
	CoTNone     CoTLevel = "none"
	CoTMinimal  CoTLevel = "minimal"
	CoTStandard CoTLevel = "standard"
	CoTFull     CoTLevel = "full"
)

var cotLevelOrder = []CoTLevel{CoTNone, CoTMinimal, CoTStandard, CoTFull}

func cotLevelIndex(l CoTLevel) int {
	for i, v := range cotLevelOrder {
		if v == l {
			return i
		}
	}
	return 2 // CoTStandard
}

// ReasoningConfig controls whether and how a bot reflects after tool
// calls, adapting chain-of-thought depth to the bot's specialization,
// the routing tier of the current exchange, and the tool just run.
type ReasoningConfig struct {
	CoTLevel CoTLevel

	SimpleTierLevel  *CoTLevel
	MediumTierLevel  *CoTLevel
	ComplexTierLevel *CoTLevel

	AlwaysCoTTools map[string]bool
	NeverCoTTools  map[string]bool

	ReflectionPrompt    string
	MaxReflectionTokens int
	Temperature         float64
}

var errorProneTools = map[string]bool{"spawn": true, "exec": true, "eval": true, "github": true}
var simpleTierTools = map[string]bool{"time": true, "date": true, "ping": true, "weather": true}

// ShouldUseCoT decides whether a reflection pass should run for tool
// on a message classified at tier.
func (c ReasoningConfig) ShouldUseCoT(tier, tool string) bool {
	if c.NeverCoTTools[tool] || c.NeverCoTTools["*"] {
		return false
	}
	if c.AlwaysCoTTools[tool] {
		return true
	}

	level := c.effectiveLevel(tier)
	switch level {
	case CoTNone:
		return false
	case CoTFull:
		return true
	case CoTMinimal:
		return errorProneTools[tool]
	default: // standard
		return !simpleTierTools[tool]
	}
}

func (c ReasoningConfig) effectiveLevel(tier string) CoTLevel {
	switch strings.ToLower(tier) {
	case "simple":
		if c.SimpleTierLevel != nil {
			return *c.SimpleTierLevel
		}
	case "medium":
		if c.MediumTierLevel != nil {
			return *c.MediumTierLevel
		}
	case "complex":
		if c.ComplexTierLevel != nil {
			return *c.ComplexTierLevel
		}
	}

	idx := cotLevelIndex(c.CoTLevel)
	switch strings.ToLower(tier) {
	case "simple":
		if c.CoTLevel != CoTNone {
			return cotLevelOrder[max(0, idx-1)]
		}
	case "complex":
		if c.CoTLevel != CoTFull {
			return cotLevelOrder[min(len(cotLevelOrder)-1, idx+1)]
		}
	}
	return c.CoTLevel
}

// GetReflectionPrompt returns the bot's custom prompt, or a generic
// fallback when none is configured.
func (c ReasoningConfig) GetReflectionPrompt() string {
	if c.ReflectionPrompt != "" {
		return c.ReflectionPrompt
	}
	return "Reflect on the results and decide next steps."
}

func levelPtr(l CoTLevel) *CoTLevel { return &l }

var (
	researcherReasoning = ReasoningConfig{
		CoTLevel:       CoTStandard,
		AlwaysCoTTools: map[string]bool{"search": true, "analyze": true, "compare": true, "research": true},
		NeverCoTTools:  map[string]bool{"time": true, "date": true, "ping": true},
		ReflectionPrompt: "Reflect on your research:\n" +
			"1. What sources did you find? Are they credible?\n" +
			"2. What gaps exist in the information?\n" +
			"3. What's the key insight for the user?\n" +
			"4. What follow-up might be valuable?",
		MaxReflectionTokens: 200,
	}

	coderReasoning = ReasoningConfig{
		CoTLevel:       CoTFull,
		AlwaysCoTTools: map[string]bool{"spawn": true, "exec": true, "github": true, "eval": true, "test": true},
		NeverCoTTools:  map[string]bool{"time": true, "date": true},
		ReflectionPrompt: "Analyze this code execution:\n" +
			"1. Did the code run successfully? If not, what error occurred?\n" +
			"2. What does the output tell you?\n" +
			"3. What's the next implementation step?\n" +
			"4. Are there edge cases or issues to address?",
		MaxReflectionTokens: 250,
	}

	socialReasoning = ReasoningConfig{
		CoTLevel:         CoTNone,
		SimpleTierLevel:  levelPtr(CoTNone),
		MediumTierLevel:  levelPtr(CoTNone),
		ComplexTierLevel: levelPtr(CoTMinimal),
		NeverCoTTools:    map[string]bool{"*": true},
	}

	auditorReasoning = ReasoningConfig{
		CoTLevel:       CoTMinimal,
		AlwaysCoTTools: map[string]bool{"audit": true, "review": true, "analyze": true},
		NeverCoTTools:  map[string]bool{"time": true, "date": true, "list": true, "ping": true},
		ReflectionPrompt: "Verify audit findings:\n" +
			"1. What issues were identified? How severe?\n" +
			"2. Are there compliance violations to address?\n" +
			"3. What's the recommended remediation?\n" +
			"4. Any gaps in the audit scope?",
		MaxReflectionTokens: 100,
	}

	creativeReasoning = ReasoningConfig{
		CoTLevel:       CoTStandard,
		AlwaysCoTTools: map[string]bool{"generate": true, "design": true, "edit": true, "create": true},
		NeverCoTTools:  map[string]bool{"time": true, "date": true, "ping": true},
		ReflectionPrompt: "Evaluate your creative work:\n" +
			"1. Does this match the user's intent?\n" +
			"2. What alternatives could work?\n" +
			"3. Any improvements to suggest?\n" +
			"4. Is anything missing?",
		MaxReflectionTokens: 180,
	}

	coordinatorReasoning = ReasoningConfig{
		CoTLevel:       CoTFull,
		AlwaysCoTTools: map[string]bool{"delegate": true, "coordinate": true, "notify": true, "dispatch": true},
		NeverCoTTools:  map[string]bool{"time": true, "date": true, "ping": true},
		ReflectionPrompt: "Assess coordination status:\n" +
			"1. What tasks are in progress? Any blockers?\n" +
			"2. Which bot is best suited for next action?\n" +
			"3. Any updates needed for the user?\n" +
			"4. What's the priority order?",
		MaxReflectionTokens: 200,
	}

	defaultReasoning = ReasoningConfig{
		CoTLevel: CoTStandard,
		ReflectionPrompt: "Reflect on the results:\n" +
			"1. Did the action complete successfully?\n" +
			"2. What does the output tell you?\n" +
			"3. What's the next step?\n" +
			"4. Any issues to address?",
		MaxReflectionTokens: 150,
	}

	botReasoningConfigs = map[string]ReasoningConfig{
		"leader":      coordinatorReasoning,
		"coordinator": coordinatorReasoning,
		"researcher":  researcherReasoning,
		"coder":       coderReasoning,
		"social":      socialReasoning,
		"auditor":     auditorReasoning,
		"creative":    creativeReasoning,
	}
)

// GetReasoningConfig looks up a bot role's reasoning config, falling
// back case-insensitively and finally to a generic default.
func GetReasoningConfig(botRole string) ReasoningConfig {
	if cfg, ok := botReasoningConfigs[botRole]; ok {
		return cfg
	}
	lower := strings.ToLower(botRole)
	for name, cfg := range botReasoningConfigs {
		if strings.ToLower(name) == lower {
			return cfg
		}
	}
	return defaultReasoning
}
