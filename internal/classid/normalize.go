package classid

import "strings"

// Normalize canonicalizes object class names and their aliases. Unknown names
// are returned lower-cased and hyphenated.
func Normalize(name string) string {
	normalized := strings.TrimSpace(strings.ToLower(name))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	normalized = strings.Trim(normalized, "-")
	if normalized == "" {
		return ""
	}
	for _, candidate := range aliasCandidates(normalized) {
		if canonical, ok := canonicalClassName(candidate); ok {
			return canonical
		}
	}
	return normalized
}

func aliasCandidates(normalized string) []string {
	candidates := []string{normalized}
	stripped := strings.Trim(strings.TrimPrefix(normalized, "object-"), "-")
	if stripped != "" && stripped != normalized {
		candidates = append(candidates, stripped)
	}
	if singular := strings.TrimSuffix(stripped, "s"); singular != "" && singular != stripped {
		candidates = append(candidates, singular)
	}
	return candidates
}

func canonicalClassName(alias string) (string, bool) {
	switch alias {
	case "vase", "pipe", "planter", "pot":
		return "vase", true
	case "table", "side-table", "end-table":
		return "table", true
	case "stool", "bar-stool", "seat":
		return "stool", true
	default:
		return "", false
	}
}
