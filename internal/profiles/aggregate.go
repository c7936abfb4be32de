package profiles

import (
	"os"
	"path/filepath"
)

const defaultEmoji = "👤"

// readWorkspaceFile returns the content of workspacePath/bots/botRole/filename,
// or "" if workspacePath is empty or the file doesn't exist.
func readWorkspaceFile(workspacePath, botRole, filename string) string {
	if workspacePath == "" {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(workspacePath, "bots", botRole, filename))
	if err != nil {
		return ""
	}
	return string(data)
}

func roleCardSource(botRole, workspacePath string) string {
	if workspacePath == "" {
		return "builtin"
	}
	if _, err := os.Stat(filepath.Join(workspacePath, "bots", botRole, "ROLE.md")); err == nil {
		return "workspace"
	}
	if _, err := os.Stat(filepath.Join(workspacePath, ".agentcore", "role_cards", botRole+".yaml")); err == nil {
		return "workspace"
	}
	if home, err := os.UserHomeDir(); err == nil {
		if _, err := os.Stat(filepath.Join(home, ".config", "agentcore", "role_cards", botRole+".yaml")); err == nil {
			return "global"
		}
	}
	return "builtin"
}

func sourceOf(workspaceContent, builtinContent string) string {
	switch {
	case workspaceContent != "":
		return "workspace"
	case builtinContent != "":
		return "template"
	default:
		return "missing"
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// BuildProfile assembles the aggregated profile for botRole on
// teamName, layering: built-in template → workspace SOUL/IDENTITY
// overrides. The role card is always the built-in one for botRole; a
// workspace ROLE.md or a role-card YAML file only changes
// Sources["role_card"], and its contents are not read. workspacePath
// may be "" to build a template-only profile (no workspace layer).
func BuildProfile(botRole, teamName, workspacePath string) *Profile {
	templateSoul := builtinSoul(botRole)
	templateIdentity := builtinIdentity(botRole)
	templateAgents := builtinAgents(botRole)

	workspaceSoul := readWorkspaceFile(workspacePath, botRole, "SOUL.md")
	workspaceIdentity := readWorkspaceFile(workspacePath, botRole, "IDENTITY.md")
	workspaceAgents := readWorkspaceFile(workspacePath, botRole, "AGENTS.md")

	sources := map[string]string{
		"soul":     sourceOf(workspaceSoul, templateSoul),
		"identity": sourceOf(workspaceIdentity, templateIdentity),
		"agents":   sourceOf(workspaceAgents, templateAgents),
	}

	workspaceMeta := map[string]string{}
	if workspaceIdentity != "" {
		for k, v := range ParseIdentityFile(workspaceIdentity) {
			workspaceMeta[k] = v
		}
	}
	if workspaceSoul != "" {
		for k, v := range ParseSoulFile(workspaceSoul) {
			workspaceMeta[k] = v
		}
	}
	templateMeta := map[string]string{}
	if templateIdentity != "" {
		for k, v := range ParseIdentityFile(templateIdentity) {
			templateMeta[k] = v
		}
	}
	if templateSoul != "" {
		for k, v := range ParseSoulFile(templateSoul) {
			templateMeta[k] = v
		}
	}
	base := mergeProfile(map[string]string{}, normalizeMetadata(templateMeta))
	merged := mergeProfile(base, normalizeMetadata(workspaceMeta))

	var roleCard *RoleCard
	var roleSource string
	if workspacePath != "" {
		roleSource = roleCardSource(botRole, workspacePath)
		if card, ok := BuiltinRoles[botRole]; ok {
			roleCard = &card
		}
	} else {
		roleSource = "builtin"
		if card, ok := BuiltinRoles[botRole]; ok {
			roleCard = &card
		}
	}
	sources["role_card"] = roleSource

	botTitle := firstNonEmpty(merged["bot_title"], roleCardTitle(roleCard), titleCase(botRole))
	botName := firstNonEmpty(merged["bot_name"], botTitle, botRole)
	emoji := firstNonEmpty(merged["emoji"], defaultEmoji)

	permissions := MergePermissions(
		ParseToolPermissions(templateSoul),
		ParseToolPermissions(templateAgents),
		ParseToolPermissions(workspaceSoul),
		ParseToolPermissions(workspaceAgents),
	)

	return &Profile{
		BotRole:         botRole,
		TeamName:        teamName,
		BotName:         botName,
		BotTitle:        botTitle,
		Emoji:           emoji,
		Personality:     merged["personality"],
		Greeting:        merged["greeting"],
		Voice:           merged["voice"],
		RoleCard:        roleCard,
		Reasoning:       GetReasoningConfig(botRole),
		Permissions:     permissions,
		Sources:         sources,
		SoulContent:     firstNonEmpty(workspaceSoul, templateSoul),
		IdentityContent: firstNonEmpty(workspaceIdentity, templateIdentity),
		AgentsContent:   firstNonEmpty(workspaceAgents, templateAgents),
	}
}

// BuildAllProfiles builds a profile for every built-in bot role.
func BuildAllProfiles(teamName, workspacePath string) map[string]*Profile {
	profiles := make(map[string]*Profile, len(BotNames))
	for _, role := range BotNames {
		profiles[role] = BuildProfile(role, teamName, workspacePath)
	}
	return profiles
}

func roleCardTitle(card *RoleCard) string {
	if card == nil {
		return ""
	}
	return card.Title
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
