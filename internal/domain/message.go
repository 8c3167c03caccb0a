package domain

import "time"

type Attachment struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
	Mime string `json:"mime,omitempty"`
	Size int64  `json:"size,omitempty"`
}

// Message is a chat message as fanned out to a channel.
type Message struct {
	ID          string       `json:"id"`
	Team        string       `json:"team"`
	Channel     string       `json:"channel"`
	Sender      *User        `json:"sender"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}
