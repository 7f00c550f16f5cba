package models

import "time"

// DiscordMessagePayload represents the JSON payload sent to a Discord webhook.
type DiscordMessagePayload struct {
	Content         string           `json:"content,omitempty"`
	Username        string           `json:"username,omitempty"`
	AvatarURL       string           `json:"avatar_url,omitempty"`
	Embeds          []DiscordEmbed   `json:"embeds,omitempty"`
	AllowedMentions *AllowedMentions `json:"allowed_mentions,omitempty"`
}

// AllowedMentions specifies how mentions should be handled in a message.
type AllowedMentions struct {
	Parse []string `json:"parse,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// DiscordEmbed represents a Discord embed object.
type DiscordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"` // ISO8601
	Color       int                 `json:"color,omitempty"`
	Footer      *DiscordEmbedFooter `json:"footer,omitempty"`
	Fields      []DiscordEmbedField `json:"fields,omitempty"`
}

// DiscordEmbedFooter represents the footer of an embed.
type DiscordEmbedFooter struct {
	Text string `json:"text"`
}

// DiscordEmbedField represents a field in an embed.
type DiscordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// RemediationEvent describes one remediation attempt for operators.
// It carries identifiers only, never the flagged content.
type RemediationEvent struct {
	Source     MonitoredSource
	ItemID     string
	AuthorID   string
	Result     RemediationResult
	Error      string
	OccurredAt time.Time
}

// PollSummary describes one source's batch within a tick
type PollSummary struct {
	TickID      string
	Source      MonitoredSource
	WindowStart time.Time
	TickStart   time.Time
	ItemCount   int
	Status      PollStatus
	Error       string
}

// PollStatus is the result of polling one source
type PollStatus string

const (
	PollStatusCompleted PollStatus = "COMPLETED"
	PollStatusFailed    PollStatus = "FAILED"
)
