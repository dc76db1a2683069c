package web

import (
	"fmt"
	"math/rand"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// colorTable maps the first byte of a nick to a pastel hue. The shuffle is
// seeded so colors are stable across restarts.
var colorTable = func() [256]float64 {
	const minHue, maxHue = 60, 240

	var table [256]float64
	for i := range table {
		table[i] = float64(i)/255*(maxHue-minHue) + minHue
	}
	rng := rand.New(rand.NewSource(41))
	rng.Shuffle(len(table), func(i, j int) {
		table[i], table[j] = table[j], table[i]
	})
	return table
}()

func colorForNick(nick string) string {
	if nick == "" {
		nick = "?"
	}
	hue := colorTable[nick[0]]
	return fmt.Sprintf("hsl(%d, 80%%, 95%%)", int(hue))
}

func monthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return time.Month(month).String()
}

func daysInMonth(year, month int) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.Local).Day()
}

func seq(from, to int) []int {
	if to < from {
		return nil
	}
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func lineTime(timestamp int64) string {
	return time.Unix(timestamp, 0).Format("15:04:05")
}

// modifyQuery rebuilds the request's query string with some values replaced,
// for pagination links that keep every other parameter.
func modifyQuery(path string, args url.Values, changes map[string]string) string {
	out := url.Values{}
	for key, values := range args {
		out[key] = append([]string(nil), values...)
	}
	for key, value := range changes {
		out.Set(key, value)
	}
	return path + "?" + out.Encode()
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
