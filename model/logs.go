package model

import "time"

// LogEntry is one log handle from the run's log collection. Content is not
// included; it is fetched lazily per entry through a time-limited signed
// URL obtained in a separate call.
type LogEntry struct {
	ID            int            `json:"id"`
	CreatedOn     time.Time      `json:"createdOn,omitempty"`
	LastChangedOn time.Time      `json:"lastChangedOn,omitempty"`
	LineCount     int            `json:"lineCount,omitempty"`
	URL           string         `json:"url,omitempty"`
	SignedContent *SignedContent `json:"signedContent,omitempty"`
}

// SignedContent carries the time-limited URL for fetching log content.
type SignedContent struct {
	URL              string    `json:"url"`
	SignatureExpires time.Time `json:"signatureExpires,omitempty"`
}

// LogCollection is the full list of log handles for one run.
type LogCollection struct {
	Logs []LogEntry `json:"logs"`
	URL  string     `json:"url,omitempty"`
}

// Entry returns the log entry with the given ID, or nil if the collection
// has no such entry.
func (c *LogCollection) Entry(id int) *LogEntry {
	for i := range c.Logs {
		if c.Logs[i].ID == id {
			return &c.Logs[i]
		}
	}
	return nil
}
