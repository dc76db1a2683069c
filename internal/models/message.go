package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Message is one archived chat line. The JSON archive stores the timestamp
// as a decimal string of Unix seconds (older converters emitted fractional
// values), so decoding accepts both strings and numbers.
type Message struct {
	Timestamp int64  `json:"timestamp"`
	Nick      string `json:"nick"`
	Message   string `json:"message"`
}

type messageJSON struct {
	Timestamp json.RawMessage `json:"timestamp"`
	Nick      string          `json:"nick"`
	Message   string          `json:"message"`
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var raw messageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	ts, err := parseTimestamp(raw.Timestamp)
	if err != nil {
		return err
	}

	m.Timestamp = ts
	m.Nick = raw.Nick
	m.Message = raw.Message
	return nil
}

func (m Message) MarshalJSON() ([]byte, error) {
	// Keep the archive format the converters always produced.
	return json.Marshal(struct {
		Timestamp string `json:"timestamp"`
		Nick      string `json:"nick"`
		Message   string `json:"message"`
	}{
		Timestamp: strconv.FormatInt(m.Timestamp, 10),
		Nick:      m.Nick,
		Message:   m.Message,
	})
}

// Time returns the message time in the local timezone.
func (m Message) Time() time.Time {
	return time.Unix(m.Timestamp, 0)
}

// DayKey returns the calendar day the message belongs to.
func (m Message) DayKey() Day {
	t := m.Time()
	return Day{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

func parseTimestamp(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("missing timestamp")
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("parse timestamp %q: %w", s, err)
		}
		return int64(f), nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("parse timestamp %s: %w", string(raw), err)
	}
	return int64(f), nil
}

// Day identifies a calendar day in local time.
type Day struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// IsZero reports whether the day is unset.
func (d Day) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Time returns local midnight of the day.
func (d Day) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.Local)
}

// Unix returns the chart x-coordinate for the day.
func (d Day) Unix() int64 {
	return d.Time().Unix()
}

// Next returns the following calendar day.
func (d Day) Next() Day {
	t := d.Time().AddDate(0, 0, 1)
	return Day{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// Before reports whether d precedes other.
func (d Day) Before(other Day) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Point is one chart sample.
type Point struct {
	X int64   `json:"x"`
	Y float64 `json:"y"`
}

// Series is a named sequence of chart points.
type Series struct {
	Key    string  `json:"key"`
	Values []Point `json:"values"`
}

// SearchHit is one matching log line: the day it belongs to, its index
// within that day, and the match span inside the message for highlighting.
type SearchHit struct {
	Day   Day     `json:"day"`
	Index int     `json:"index"`
	Line  Message `json:"line"`
	Start int     `json:"start"`
	End   int     `json:"end"`
}

// TrendingTerm is a word whose recent usage rate exceeds its all-time rate.
type TrendingTerm struct {
	Word  string  `json:"word"`
	Score float64 `json:"score"`
}
