// Package profiles builds a single aggregated, read-only profile per
// bot role by layering built-in defaults, a team's templates, and a
// workspace's own overrides.
package profiles

// BotNames is the canonical set of built-in bot roles.
var BotNames = []string{"leader", "researcher", "coder", "social", "creative", "auditor"}

// Profile is the aggregated, read-only result of merging a bot's
// built-in template, team template, and workspace overrides.
type Profile struct {
	BotRole     string
	TeamName    string
	BotName     string
	BotTitle    string
	Emoji       string
	Personality string
	Greeting    string
	Voice       string

	RoleCard    *RoleCard
	Reasoning   ReasoningConfig
	Permissions ToolPermissions

	// Sources records, for each layer (soul, identity, agents, role_card),
	// which tier ultimately supplied it: "workspace", "template", "builtin",
	// "global" (role_card only), or "missing".
	Sources map[string]string

	SoulContent     string
	IdentityContent string
	AgentsContent   string
}

// DisplayName is the bot's preferred name for UI/log purposes.
func (p *Profile) DisplayName() string {
	if p.BotName != "" {
		return p.BotName
	}
	if p.BotTitle != "" {
		return p.BotTitle
	}
	return p.BotRole
}
