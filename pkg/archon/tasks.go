package archon

import (
	"fmt"
	"strings"

	"ideenfinder/pkg/spec"
)

// maxTasks caps the tasks derived from one feature plan.
const maxTasks = 10

// Task statuses.
const (
	StatusTodo    = "todo"
	StatusBacklog = "backlog"
)

// Task is an Archon task derived from the feature plan.
type Task struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Status         string   `json:"status"`
	Priority       string   `json:"priority"`
	Tags           []string `json:"tags"`
	EstimatedHours int      `json:"estimated_hours,omitempty"`
}

// TasksFromPlan turns a feature plan into tasks. Structured feature blocks are
// preferred, then plain list items, then a single task for the whole project.
func TasksFromPlan(plan, projectTitle string) []Task {
	var tasks []Task

	for _, f := range spec.ParseFeatures(plan) {
		tasks = append(tasks, featureTask(f))
	}

	if len(tasks) == 0 {
		for _, item := range spec.ListItems(plan) {
			tasks = append(tasks, Task{
				Title:    item,
				Status:   StatusTodo,
				Priority: "medium",
				Tags:     []string{"ideenfinder"},
			})
		}
	}

	if len(tasks) == 0 {
		tasks = append(tasks, Task{
			Title:       "Implement " + projectTitle,
			Description: "Build the project as described in the specification.",
			Status:      StatusTodo,
			Priority:    "high",
			Tags:        []string{"mvp", "ideenfinder"},
		})
	}

	if len(tasks) > maxTasks {
		tasks = tasks[:maxTasks]
	}
	return tasks
}

func featureTask(f spec.Feature) Task {
	priority := f.Priority
	if priority == "" {
		priority = "medium"
	}
	status := StatusBacklog
	if priority == "high" || priority == "medium" {
		status = StatusTodo
	}

	description := f.Description
	if f.UserStory != "" {
		description = strings.TrimSpace(fmt.Sprintf("%s\n\n**User Story:** %s", description, f.UserStory))
	}

	tags := []string{"mvp", "ideenfinder"}
	if f.Complexity != "" {
		tags = append([]string{f.Complexity}, tags...)
	}

	return Task{
		Title:          f.Title,
		Description:    description,
		Status:         status,
		Priority:       priority,
		Tags:           tags,
		EstimatedHours: f.EstimatedHours,
	}
}
