package jskit

import (
	"strconv"
	"time"
)

// Pin is a timeline pin as handed to a Notifier.
type Pin struct {
	ID         string    `json:"id"`
	DataSource string    `json:"dataSource"`
	Type       string    `json:"type"`
	Source     string    `json:"source"`
	Layout     PinLayout `json:"layout"`
}

// PinLayout is the visible part of a Pin.
type PinLayout struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Type  string `json:"type"`
}

func simpleNotification(app AppInfo, title, body string, now time.Time) Pin {
	id := app.UUID.String()
	return Pin{
		ID:         app.ShortName + ":" + strconv.FormatInt(now.UnixMilli(), 10),
		DataSource: id + ":" + id,
		Type:       "notification",
		Source:     app.ShortName,
		Layout: PinLayout{
			Title: title,
			Body:  body,
			Type:  "genericNotification",
		},
	}
}
