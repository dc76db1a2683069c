package parse

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/cfumo/irc-stats/internal/models"
	"github.com/cfumo/irc-stats/internal/store"
)

// Format names a supported IRC client log format.
type Format string

const (
	FormatIrssi   Format = "irssi"
	FormatWeechat Format = "weechat"
)

// Reader converts one raw client log into archive messages.
func Reader(format Format, r io.Reader) ([]models.Message, error) {
	switch format {
	case FormatIrssi:
		return parseIrssi(r)
	case FormatWeechat:
		return parseWeechat(r)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// Bouncers replay the recent scrollback whenever a client reattaches, which
// would duplicate lines in the archive. Each format supplies markers for the
// playback block so it can be skipped.
func parseGeneric(r io.Reader, isPlaybackStart, isPlaybackEnd func(string) bool, parseLine func(string) (models.Message, bool, error)) ([]models.Message, error) {
	var msgs []models.Message

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	inPlayback := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if isPlaybackStart(line) {
			inPlayback = true
			continue
		}
		if isPlaybackEnd(line) {
			inPlayback = false
			continue
		}
		if inPlayback {
			continue
		}

		msg, ok, err := parseLine(line)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		msgs = append(msgs, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	store.SortMessages(msgs)
	return msgs, nil
}

func matcher(pattern string) func(string) bool {
	re := regexp.MustCompile(pattern)
	return func(line string) bool { return re.MatchString(line) }
}

var (
	irssiLogOpenRe = regexp.MustCompile(`^--- (?:\S+ ){2}\S+ (\D+) (\S+) (?:\S+ )?(\d+)(?:--- .*$)?$`)
	irssiChatRe    = regexp.MustCompile(`^(\d\d:\d\d) <.(\S+)> (.+)$`)
)

func parseIrssi(r io.Reader) ([]models.Message, error) {
	// irssi chat lines carry only the time of day; the current date comes
	// from the surrounding "log opened" banner.
	var currentDay string
	haveDay := false

	parseLine := func(line string) (models.Message, bool, error) {
		if res := irssiLogOpenRe.FindStringSubmatch(line); res != nil {
			currentDay = fmt.Sprintf("%s %s %s", res[1], res[2], res[3])
			haveDay = true
			return models.Message{}, false, nil
		}

		res := irssiChatRe.FindStringSubmatch(line)
		if res == nil {
			return models.Message{}, false, nil
		}
		if !haveDay {
			return models.Message{}, false, fmt.Errorf("chat line before any log-opened banner: %q", line)
		}

		ts, err := time.ParseInLocation("Jan 02 2006 15:04",
			fmt.Sprintf("%s %s", strings.TrimSpace(currentDay), res[1]), time.Local)
		if err != nil {
			return models.Message{}, false, fmt.Errorf("parse irssi date %q: %w", currentDay, err)
		}

		return models.Message{
			Timestamp: ts.Unix(),
			Nick:      res[2],
			Message:   res[3],
		}, true, nil
	}

	return parseGeneric(r,
		matcher(`^[0-9:]{0,5}\s+< \*\*\*> Buffer Playback`),
		matcher(`^[0-9:]{0,5}\s+< \*\*\*> Playback Complete`),
		parseLine)
}

const weechatDateRe = `\d+-\d+-\d+ \d+:\d+:\d+`

var weechatChatRe = regexp.MustCompile(`(` + weechatDateRe + `)\s[@+]?(\S+)\s+(.+)`)

// weechat status lines are indistinguishable from chat except by the
// pseudo-nick they come from.
var weechatStatusNicks = map[string]struct{}{
	"ℹ": {}, "--": {}, "-->": {}, "<--": {}, "←": {}, "→": {}, "⚡": {}, "⚠": {},
	"│": {}, "+": {}, "▬▬▶": {}, "◀▬▬": {},
}

func parseWeechat(r io.Reader) ([]models.Message, error) {
	parseLine := func(line string) (models.Message, bool, error) {
		res := weechatChatRe.FindStringSubmatch(line)
		if res == nil {
			return models.Message{}, false, nil
		}

		nick := res[2]
		if _, skip := weechatStatusNicks[nick]; skip {
			return models.Message{}, false, nil
		}

		ts, err := time.ParseInLocation("2006-01-02 15:04:05", res[1], time.Local)
		if err != nil {
			return models.Message{}, false, fmt.Errorf("parse weechat date %q: %w", res[1], err)
		}

		return models.Message{
			Timestamp: ts.Unix(),
			Nick:      nick,
			Message:   res[3],
		}, true, nil
	}

	return parseGeneric(r,
		matcher(`^`+weechatDateRe+`\s+\*\*\*\s+Buffer Playback`),
		matcher(`^`+weechatDateRe+`\s+\*\*\*\s+Playback Complete`),
		parseLine)
}
