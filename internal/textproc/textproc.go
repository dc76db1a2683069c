package textproc

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"
	"time"
)

var urlRegex = regexp.MustCompile(`(?i)https?://\S+`)

// edgePunct strips leading/trailing punctuation when counting words, so
// "really?" and "really" land in the same bucket.
var edgePunct = regexp.MustCompile(`^[.?!,"']+|[.?!,"']+$`)

// Segment is a run of message text, marked when it is a hyperlink.
type Segment struct {
	Link bool
	Text string
}

// SplitLinks splits a message into plain-text and URL segments so the day
// view can render links as anchors without HTML-escaping surprises.
func SplitLinks(message string) []Segment {
	matches := urlRegex.FindAllStringIndex(message, -1)

	var segments []Segment
	last := 0
	for _, m := range matches {
		segments = append(segments, Segment{Text: message[last:m[0]]})
		segments = append(segments, Segment{Link: true, Text: message[m[0]:m[1]]})
		last = m[1]
	}
	segments = append(segments, Segment{Text: message[last:]})
	return segments
}

// CleanWord lowercases a token and trims surrounding punctuation.
func CleanWord(word string) string {
	return strings.ToLower(edgePunct.ReplaceAllString(word, ""))
}

// WordFreqs counts cleaned words across messages, dropping entries below
// minFreq when it is positive.
func WordFreqs(messages []string, minFreq int) map[string]int {
	freqs := make(map[string]int)
	for _, message := range messages {
		for _, word := range strings.Split(message, " ") {
			clean := CleanWord(word)
			if clean == "" {
				continue
			}
			freqs[clean]++
		}
	}

	if minFreq > 0 {
		for word, count := range freqs {
			if count < minFreq {
				delete(freqs, word)
			}
		}
	}
	return freqs
}

// RecordHash hashes the stable fields of a chat line to form a
// deterministic ID for deduplication.
func RecordHash(nick, message string, ts time.Time) string {
	s := sha1.Sum([]byte(nick + "|" + message + "|" + ts.UTC().Format(time.RFC3339)))
	return hex.EncodeToString(s[:])
}
