package command

import "strings"

// selectQueues expands the --queue values of a consume invocation.
// A value holding a wildcard selects every configured queue it matches;
// any other value is used as is. "*" matches exactly one dot separated
// level and "#" matches zero or more levels.
func selectQueues(values, configured []string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(q string) {
		if !seen[q] {
			seen[q] = true
			out = append(out, q)
		}
	}

	for _, v := range values {
		if !strings.ContainsAny(v, "*#") {
			add(v)
			continue
		}
		for _, q := range configured {
			if matchQueue(v, q) {
				add(q)
			}
		}
	}
	return out
}

func matchQueue(pattern, queue string) bool {
	return matchLevels(strings.Split(pattern, "."), strings.Split(queue, "."))
}

func matchLevels(pat, levels []string) bool {
	if len(pat) == 0 {
		return len(levels) == 0
	}
	switch pat[0] {
	case "#":
		for i := 0; i <= len(levels); i++ {
			if matchLevels(pat[1:], levels[i:]) {
				return true
			}
		}
		return false
	case "*":
		return len(levels) > 0 && matchLevels(pat[1:], levels[1:])
	default:
		return len(levels) > 0 && pat[0] == levels[0] && matchLevels(pat[1:], levels[1:])
	}
}
