package spec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const featurePlan = `## MVP Features

### Feature 1: User Accounts
- **Priority**: High
- **Description**: Sign up and log in
- **User Story**: As a user, I want an account so that my data is saved
- **Complexity**: Medium
- **Estimated Hours**: 12 hours

### Feature 2: Habit Streaks
- **Priority**: Low
- **Description**: Show consecutive days
- **User Story**: As a user, I want streaks so that I stay motivated
- **Complexity**: Low
- **Estimated Hours**: 6

## Feature Roadmap (Post-MVP)
- Social sharing
`

func TestParseFeatures(t *testing.T) {
	features := ParseFeatures(featurePlan)
	require.Len(t, features, 2)

	assert.Equal(t, Feature{
		Number:         1,
		Title:          "User Accounts",
		Priority:       "high",
		Description:    "Sign up and log in",
		UserStory:      "As a user, I want an account so that my data is saved",
		Complexity:     "medium",
		EstimatedHours: 12,
	}, features[0])
	assert.Equal(t, "low", features[1].Priority)
	assert.Equal(t, 6, features[1].EstimatedHours)
}

func TestParseFeaturesWithoutBlocks(t *testing.T) {
	assert.Empty(t, ParseFeatures("Just some prose."))
	assert.Equal(t, 0, FeatureCount("Just some prose."))
	assert.Equal(t, 2, FeatureCount(featurePlan))
}

func TestListItems(t *testing.T) {
	text := "1. Build the login page\n- ok\n* **Export data** to CSV\nplain line\n2) Push notifications"
	assert.Equal(t, []string{"Build the login page", "Export data to CSV", "Push notifications"}, ListItems(text))
}

func TestParsingSurvivesVeryLongLines(t *testing.T) {
	long := strings.Repeat("x", 100*1024)
	plan := "Intro " + long + "\n" + featurePlan + "- " + long + "\n"

	features := ParseFeatures(plan)
	require.Len(t, features, 2)
	assert.Equal(t, "Habit Streaks", features[1].Title)
	assert.Equal(t, 2, FeatureCount(plan))

	items := ListItems(plan)
	require.NotEmpty(t, items)
	assert.Len(t, []rune(items[len(items)-1]), 100)
}
