package slack

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// codeMessageNotFound is the chat.delete error for a message that no longer exists
const codeMessageNotFound = "message_not_found"

// APIError is returned when Slack answers with "ok": false
type APIError struct {
	Method string
	Code   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack %s failed: %s", e.Method, e.Code)
}

// File is a file shared in a message
type File struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Title              string `json:"title"`
	Mimetype           string `json:"mimetype"`
	Size               int64  `json:"size"`
	URLPrivate         string `json:"url_private"`
	URLPrivateDownload string `json:"url_private_download"`
}

// DownloadURL prefers the download variant of the private URL
func (f File) DownloadURL() string {
	if f.URLPrivateDownload != "" {
		return f.URLPrivateDownload
	}
	return f.URLPrivate
}

// Message is one entry of conversations.history
type Message struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype"`
	TS      string `json:"ts"`
	User    string `json:"user"`
	BotID   string `json:"bot_id"`
	Text    string `json:"text"`
	Files   []File `json:"files"`
}

// Time converts the message ts ("1700000000.000100") to a time
func (m Message) Time() time.Time {
	return ParseTS(m.TS)
}

// Channel is one entry of conversations.list
type Channel struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsArchived bool   `json:"is_archived"`
	IsMember   bool   `json:"is_member"`
}

// UserProfile carries the fields of users.list profiles the pipeline reads
type UserProfile struct {
	Email       string `json:"email"`
	RealName    string `json:"real_name"`
	DisplayName string `json:"display_name"`
}

// User is one entry of users.list
type User struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Deleted bool        `json:"deleted"`
	IsBot   bool        `json:"is_bot"`
	Profile UserProfile `json:"profile"`
}

type envelope struct {
	OK               bool   `json:"ok"`
	Error            string `json:"error"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

type historyResponse struct {
	envelope
	Messages []Message `json:"messages"`
	HasMore  bool      `json:"has_more"`
}

type channelsResponse struct {
	envelope
	Channels []Channel `json:"channels"`
}

type usersResponse struct {
	envelope
	Members []User `json:"members"`
}

type openResponse struct {
	envelope
	Channel struct {
		ID string `json:"id"`
	} `json:"channel"`
}

type authTestResponse struct {
	envelope
	UserID string `json:"user_id"`
	BotID  string `json:"bot_id"`
}

// FormatTS renders t in Slack's "seconds.micros" timestamp format
func FormatTS(t time.Time) string {
	return fmt.Sprintf("%d.%06d", t.Unix(), t.Nanosecond()/int(time.Microsecond))
}

// ParseTS parses a Slack timestamp; malformed input yields the zero time
func ParseTS(ts string) time.Time {
	secPart, fracPart, _ := strings.Cut(ts, ".")
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Time{}
	}
	var micros int64
	if fracPart != "" {
		if len(fracPart) > 6 {
			fracPart = fracPart[:6]
		}
		fracPart += strings.Repeat("0", 6-len(fracPart))
		micros, _ = strconv.ParseInt(fracPart, 10, 64)
	}
	return time.Unix(sec, micros*int64(time.Microsecond))
}
