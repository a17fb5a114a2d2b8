package motivation

import (
	"strings"
	"time"
)

type Verse struct {
	Text      string `json:"text" yaml:"text"`
	Reference string `json:"reference" yaml:"reference"`
}

type Quote struct {
	Text   string `json:"text" yaml:"text"`
	Author string `json:"author" yaml:"author"`
}

// Pair is a verse and quote waiting in a queue. It becomes an Item when served.
type Pair struct {
	Verse Verse `json:"verse"`
	Quote Quote `json:"quote"`
}

// Valid reports whether every field of the pair is non-blank.
func (p Pair) Valid() bool {
	return missingField(p) == ""
}

// missingField names the first blank field of p, or "" when complete.
func missingField(p Pair) string {
	switch {
	case strings.TrimSpace(p.Verse.Text) == "":
		return "verse.text"
	case strings.TrimSpace(p.Verse.Reference) == "":
		return "verse.reference"
	case strings.TrimSpace(p.Quote.Text) == "":
		return "quote.text"
	case strings.TrimSpace(p.Quote.Author) == "":
		return "quote.author"
	}
	return ""
}

// Serve stamps the pair with the instant it is handed to the user.
func (p Pair) Serve(at time.Time) Item {
	return Item{Verse: p.Verse, Quote: p.Quote, ServedAt: at}
}

// Item is the daily motivation shown to a user.
type Item struct {
	Verse    Verse     `json:"verse"`
	Quote    Quote     `json:"quote"`
	ServedAt time.Time `json:"servedAt"`
}

// Pair drops the serve timestamp.
func (i Item) Pair() Pair {
	return Pair{Verse: i.Verse, Quote: i.Quote}
}

// Queue is a user's buffered batch of generated pairs and the cursor of the
// next one to serve. Position never exceeds len(Items) for a well-formed queue.
type Queue struct {
	Items    []Pair `json:"quoteQueue"`
	Position int    `json:"queuePosition"`
}

// Empty reports whether the queue holds no items at all.
func (q *Queue) Empty() bool {
	return q == nil || len(q.Items) == 0
}

// Depleted reports whether the queue has nothing left to serve. A cursor
// outside [0, len(Items)) counts as depleted so corrupt stored data refills.
func (q *Queue) Depleted() bool {
	return q.Empty() || q.Position < 0 || q.Position >= len(q.Items)
}

// Remaining returns how many items are left before a refill is needed.
func (q *Queue) Remaining() int {
	if q.Depleted() {
		return 0
	}
	return len(q.Items) - q.Position
}

// State is the motivation slice of a user's stored document. A nil Queue
// means the document has no quoteQueue field yet.
type State struct {
	DailyMotivation *Item
	Queue           *Queue
}
