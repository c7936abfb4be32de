package profiles

// RoleCard is a short, structured description of what a bot role is
// responsible for — used in system prompts and team documentation.
type RoleCard struct {
	Role      string
	Title     string
	Summary   string
	Primary   []string
	Escalates []string
}

// BuiltinRoles holds the default role card for each built-in bot role,
// used when a workspace provides no ROLE.md / role_card override.
var BuiltinRoles = map[string]RoleCard{
	"leader": {
		Role:      "leader",
		Title:     "Team Leader",
		Summary:   "Routes incoming work to the right specialist and tracks progress to completion.",
		Primary:   []string{"triage", "delegate", "status reporting"},
		Escalates: []string{"ambiguous ownership", "conflicting priorities"},
	},
	"researcher": {
		Role:      "researcher",
		Title:     "Research Lead",
		Summary:   "Gathers and verifies information before the team acts on it.",
		Primary:   []string{"search", "fact-check", "summarize sources"},
		Escalates: []string{"conflicting sources", "no reliable source found"},
	},
	"coder": {
		Role:      "coder",
		Title:     "Staff Engineer",
		Summary:   "Implements, tests, and ships code changes.",
		Primary:   []string{"implement", "debug", "run tests"},
		Escalates: []string{"architecture decisions", "destructive operations"},
	},
	"social": {
		Role:      "social",
		Title:     "Community Manager",
		Summary:   "Handles outward-facing replies and posts in the team's voice.",
		Primary:   []string{"reply", "post", "tone matching"},
		Escalates: []string{"legal or PR-sensitive topics"},
	},
	"creative": {
		Role:      "creative",
		Title:     "Creative Director",
		Summary:   "Produces creative drafts and design directions.",
		Primary:   []string{"draft copy", "propose designs"},
		Escalates: []string{"brand guideline conflicts"},
	},
	"auditor": {
		Role:      "auditor",
		Title:     "Compliance Auditor",
		Summary:   "Reviews work for correctness, safety, and compliance before it ships.",
		Primary:   []string{"review", "flag risks", "recommend remediation"},
		Escalates: []string{"confirmed compliance violation"},
	},
}

// GetRoleCard returns a role card for botRole, from workspaceCard if
// supplied, otherwise the built-in default, or nil if the role is
// entirely unknown.
func GetRoleCard(botRole string, workspaceCard *RoleCard) *RoleCard {
	if workspaceCard != nil {
		return workspaceCard
	}
	if card, ok := BuiltinRoles[botRole]; ok {
		return &card
	}
	return nil
}
