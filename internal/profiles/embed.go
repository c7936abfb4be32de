package profiles

import "embed"

//go:embed templates/default/*.md
var templateFS embed.FS

// DefaultTheme names the bundled theme directory used when a team
// specifies no theme of its own.
const DefaultTheme = "default"

func templateFile(theme, name string) ([]byte, error) {
	return templateFS.ReadFile("templates/" + theme + "/" + name)
}

// builtinSoul returns the built-in SOUL.md content for a bot role, or
// "" if none is bundled.
func builtinSoul(botRole string) string {
	data, err := templateFile(DefaultTheme, botRole+"_SOUL.md")
	if err != nil {
		return ""
	}
	return string(data)
}

// builtinIdentity returns the built-in IDENTITY.md content for a bot
// role, or "" if none is bundled.
func builtinIdentity(botRole string) string {
	data, err := templateFile(DefaultTheme, botRole+"_IDENTITY.md")
	if err != nil {
		return ""
	}
	return string(data)
}

// builtinAgents returns the built-in AGENTS.md content for a bot
// role, or "" if none is bundled.
func builtinAgents(botRole string) string {
	data, err := templateFile(DefaultTheme, botRole+"_AGENTS.md")
	if err != nil {
		return ""
	}
	return string(data)
}
