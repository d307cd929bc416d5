package domain

import "math"

// Summary is the optional aggregate from GET /dashboard. Its shape is owned
// by the server, so it is kept as raw key/value pairs.
type Summary map[string]any

// TaskCounts aggregates a task list by status.
type TaskCounts struct {
	Total      int
	Completed  int
	InProgress int
	Pending    int
}

func CountTasks(tasks []Task) TaskCounts {
	c := TaskCounts{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case TaskCompleted:
			c.Completed++
		case TaskInProgress:
			c.InProgress++
		case TaskPending:
			c.Pending++
		}
	}
	return c
}

// CompletionRate is the rounded percentage of completed tasks.
func (c TaskCounts) CompletionRate() int {
	if c.Total == 0 {
		return 0
	}
	return int(math.Round(float64(c.Completed) / float64(c.Total) * 100))
}
