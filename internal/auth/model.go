package auth

import (
	"encoding/json"
	"time"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Passcode string `json:"passcode"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Passcode string `json:"passcode"`
}

type User struct {
	Username  string    `json:"username"`
	Passcode  string    `json:"-"`
	CreatedAt time.Time `json:"created"`
	Token     string    `json:"token,omitempty"`
}

type Category struct {
	Name  string            `json:"name"`
	Icon  string            `json:"icon"`
	Tasks []json.RawMessage `json:"tasks"`
}

// Document is the tracker document every new user starts with. The rest of
// the service treats documents as opaque JSON.
type Document struct {
	CurrentStreak      int               `json:"currentStreak"`
	LongestStreak      int               `json:"longestStreak"`
	LastCompletedDate  *string           `json:"lastCompletedDate"`
	TotalDaysCompleted int               `json:"totalDaysCompleted"`
	Categories         []Category        `json:"categories"`
	Milestones         []json.RawMessage `json:"milestones"`
	DailyMotivation    any               `json:"dailyMotivation"`
	EndGoal            string            `json:"endGoal"`
	History            []json.RawMessage `json:"history"`
	BadHabits          []json.RawMessage `json:"badHabits"`
}

// NewDocument builds the initial document around dailyMotivation.
func NewDocument(dailyMotivation any) Document {
	return Document{
		Categories: []Category{
			{Name: "General", Icon: "📝", Tasks: []json.RawMessage{}},
		},
		Milestones:      []json.RawMessage{},
		DailyMotivation: dailyMotivation,
		History:         []json.RawMessage{},
		BadHabits:       []json.RawMessage{},
	}
}
