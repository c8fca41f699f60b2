package spec

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	// maxListItemLen bounds titles taken from plain list lines.
	maxListItemLen = 100
	// minListItemLen skips bullets too short to be a task.
	minListItemLen = 3
)

var (
	// Regex patterns for parsing feature plans.
	featurePattern  = regexp.MustCompile(`^###\s+Feature\s+(\d+):\s*(.+)$`)
	headingPattern  = regexp.MustCompile(`^#{1,3}\s+`)
	fieldPattern    = regexp.MustCompile(`^[-*]?\s*\*\*([^*]+)\*\*:?\s*(.*)$`)
	listItemPattern = regexp.MustCompile(`^(?:\d+[.)]|[-*])\s+(.+)$`)
	hoursPattern    = regexp.MustCompile(`(\d+)`)
)

// Feature is one "### Feature N: Title" block of a feature plan.
type Feature struct {
	Number         int
	Title          string
	Priority       string // high | medium | low, lower-cased
	Description    string
	UserStory      string
	Complexity     string
	EstimatedHours int
}

// ParseFeatures extracts the feature blocks from a planner's markdown.
// Blocks without any recognised field are still returned with their title.
func ParseFeatures(plan string) []Feature {
	var features []Feature
	var current *Feature

	for raw := range strings.Lines(plan) {
		line := strings.TrimSpace(raw)

		if matches := featurePattern.FindStringSubmatch(line); matches != nil {
			if current != nil {
				features = append(features, *current)
			}
			n, _ := strconv.Atoi(matches[1])
			current = &Feature{Number: n, Title: strings.TrimSpace(matches[2])}
			continue
		}

		// Any other heading closes the block.
		if headingPattern.MatchString(line) {
			if current != nil {
				features = append(features, *current)
				current = nil
			}
			continue
		}

		if current == nil {
			continue
		}
		if matches := fieldPattern.FindStringSubmatch(line); matches != nil {
			value := strings.TrimSpace(matches[2])
			switch strings.ToLower(strings.TrimSuffix(strings.TrimSpace(matches[1]), ":")) {
			case "priority":
				current.Priority = strings.ToLower(value)
			case "description":
				current.Description = value
			case "user story":
				current.UserStory = value
			case "complexity":
				current.Complexity = strings.ToLower(value)
			case "estimated hours":
				if m := hoursPattern.FindString(value); m != "" {
					current.EstimatedHours, _ = strconv.Atoi(m)
				}
			}
		}
	}
	if current != nil {
		features = append(features, *current)
	}
	return features
}

// FeatureCount counts the feature headings in plan.
func FeatureCount(plan string) int {
	count := 0
	for line := range strings.Lines(plan) {
		if featurePattern.MatchString(strings.TrimSpace(line)) {
			count++
		}
	}
	return count
}

// ListItems returns the bullet and numbered lines of text with their markers
// removed. Items of three characters or fewer are skipped and the rest are
// cut to 100 runes.
func ListItems(text string) []string {
	var items []string
	for line := range strings.Lines(text) {
		matches := listItemPattern.FindStringSubmatch(strings.TrimSpace(line))
		if matches == nil {
			continue
		}
		item := strings.TrimSpace(strings.ReplaceAll(matches[1], "**", ""))
		if len([]rune(item)) <= minListItemLen {
			continue
		}
		if r := []rune(item); len(r) > maxListItemLen {
			item = string(r[:maxListItemLen])
		}
		items = append(items, item)
	}
	return items
}
