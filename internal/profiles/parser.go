package profiles

import (
	"regexp"
	"strings"
)

var (
	soulHeaderPattern   = regexp.MustCompile(`(?m)^(\S)\s*\*\*(.+?)\s*\((.+?)\)\*\*`)
	soulNamePattern     = regexp.MustCompile(`I am ([^,]+), the ([^.]+)`)
	soulVibePattern     = regexp.MustCompile(`(?s)##\s*Vibe\s*\n+(.+?)(\n##|\z)`)
	soulTraitsPattern   = regexp.MustCompile(`(?s)##\s*Personality Traits\s*\n+(.+?)(\n##|\z)`)
	soulGreetPattern    = regexp.MustCompile(`(?s)##\s*Greeting\s*\n+>\s*(.+?)(\n##|\z)`)
	soulVoicePattern    = regexp.MustCompile(`(?s)##\s*Communication Style\s*\n+(.+?)(\n##|\z)`)
	identityNamePattern = regexp.MustCompile(`\*\*Name:\*\*\s*(.+)`)
	identityTitlePatt   = regexp.MustCompile(`\*\*Creature:\*\*\s*(.+)`)
	identityShortPatt   = regexp.MustCompile(`\((.+?)\)`)
	identityEmojiPatt   = regexp.MustCompile(`\*\*Emoji:\*\*\s*(\S)`)
	identityVibePatt    = regexp.MustCompile(`\*\*Vibe:\*\*\s*(.+)`)
)

// ParseSoulFile extracts emoji/title/name/personality/greeting/voice
// metadata from a SOUL.md-style markdown document. Any field not
// present in the content is simply absent from the result.
func ParseSoulFile(content string) map[string]string {
	metadata := map[string]string{}

	if m := soulHeaderPattern.FindStringSubmatch(content); m != nil {
		metadata["emoji"] = m[1]
		metadata["title"] = strings.TrimSpace(m[2])
		metadata["short_title"] = strings.TrimSpace(m[3])
	}

	if m := soulNamePattern.FindStringSubmatch(content); m != nil {
		metadata["name"] = strings.TrimSpace(m[1])
	}

	if m := soulVibePattern.FindStringSubmatch(content); m != nil {
		lines := strings.SplitN(strings.TrimSpace(m[1]), "\n", 2)
		metadata["personality"] = strings.TrimSpace(lines[0])
	} else if m := soulTraitsPattern.FindStringSubmatch(content); m != nil {
		metadata["personality"] = strings.TrimSpace(m[1])
	}

	if m := soulGreetPattern.FindStringSubmatch(content); m != nil {
		greeting := strings.TrimSpace(m[1])
		metadata["greeting"] = strings.Join(strings.Fields(greeting), " ")
	}

	if m := soulVoicePattern.FindStringSubmatch(content); m != nil {
		metadata["voice_directive"] = strings.TrimSpace(m[1])
	}

	return metadata
}

// ParseIdentityFile extracts name/title/emoji/personality metadata
// from an IDENTITY.md-style markdown document using its explicit
// **Field:** marker convention.
func ParseIdentityFile(content string) map[string]string {
	metadata := map[string]string{}

	if m := identityNamePattern.FindStringSubmatch(content); m != nil {
		metadata["name"] = strings.TrimSpace(m[1])
	}

	if m := identityTitlePatt.FindStringSubmatch(content); m != nil {
		title := strings.TrimSpace(m[1])
		metadata["title"] = title
		if short := identityShortPatt.FindStringSubmatch(title); short != nil {
			metadata["short_title"] = short[1]
		}
	}

	if m := identityEmojiPatt.FindStringSubmatch(content); m != nil {
		metadata["emoji"] = m[1]
	}

	if m := identityVibePatt.FindStringSubmatch(content); m != nil {
		metadata["personality"] = strings.TrimSpace(m[1])
	}

	return metadata
}

// normalizeMetadata maps the parser's raw field names onto the
// Profile's merge keys. When both voice_directive and a bare voice
// field are present, the bare voice field wins because it is assigned
// last.
func normalizeMetadata(metadata map[string]string) map[string]string {
	normalized := map[string]string{}

	if v := metadata["name"]; v != "" {
		normalized["bot_name"] = v
	}
	if v := metadata["title"]; v != "" {
		normalized["bot_title"] = v
	} else if v := metadata["short_title"]; v != "" {
		normalized["bot_title"] = v
	}
	if v := metadata["emoji"]; v != "" {
		normalized["emoji"] = v
	}
	if v := metadata["personality"]; v != "" {
		normalized["personality"] = v
	}
	if v := metadata["greeting"]; v != "" {
		normalized["greeting"] = v
	}
	if v := metadata["voice_directive"]; v != "" {
		normalized["voice"] = v
	}
	if v := metadata["voice"]; v != "" {
		normalized["voice"] = v
	}

	return normalized
}

// mergeProfile overlays non-empty override values onto base.
func mergeProfile(base, override map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		if v != "" {
			merged[k] = v
		}
	}
	return merged
}
