package parse_test

import (
	"strings"
	"testing"
	"time"

	"github.com/cfumo/irc-stats/internal/parse"
	"github.com/stretchr/testify/require"
)

func TestParseIrssi(t *testing.T) {
	log := strings.Join([]string{
		"--- Log opened Fri Mar 15 2013",
		"12:01 <@cosmo> morning everyone",
		"12:05 < wyll> hey cosmo",
		"some noise that is not chat",
		"--- Log opened Sat Mar 16 2013",
		"09:30 <+jorgon> new day",
	}, "\n")

	msgs, err := parse.Reader(parse.FormatIrssi, strings.NewReader(log))
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	require.Equal(t, "cosmo", msgs[0].Nick)
	require.Equal(t, "morning everyone", msgs[0].Message)
	want := time.Date(2013, 3, 15, 12, 1, 0, 0, time.Local).Unix()
	require.Equal(t, want, msgs[0].Timestamp)

	require.Equal(t, "jorgon", msgs[2].Nick)
	require.Equal(t, time.Date(2013, 3, 16, 9, 30, 0, 0, time.Local).Unix(), msgs[2].Timestamp)
}

func TestParseIrssiSkipsBufferPlayback(t *testing.T) {
	log := strings.Join([]string{
		"--- Log opened Fri Mar 15 2013",
		"12:00 < ***> Buffer Playback...",
		"11:00 <@cosmo> replayed line",
		"12:00 < ***> Playback Complete.",
		"12:01 <@cosmo> live line",
	}, "\n")

	msgs, err := parse.Reader(parse.FormatIrssi, strings.NewReader(log))
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "live line", msgs[0].Message)
}

func TestParseIrssiChatBeforeBanner(t *testing.T) {
	_, err := parse.Reader(parse.FormatIrssi, strings.NewReader("12:01 <@cosmo> hello"))
	require.Error(t, err)
}

func TestParseWeechat(t *testing.T) {
	log := strings.Join([]string{
		"2023-03-15 12:01:30 @cosmo morning",
		"2023-03-15 12:02:00 --> somebody joined the channel",
		"2023-03-15 12:03:00 +wyll hey",
	}, "\n")

	msgs, err := parse.Reader(parse.FormatWeechat, strings.NewReader(log))
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	require.Equal(t, "cosmo", msgs[0].Nick)
	require.Equal(t, "morning", msgs[0].Message)
	require.Equal(t, time.Date(2023, 3, 15, 12, 1, 30, 0, time.Local).Unix(), msgs[0].Timestamp)
	require.Equal(t, "wyll", msgs[1].Nick)
}

func TestParseWeechatSkipsPlayback(t *testing.T) {
	log := strings.Join([]string{
		"2023-03-15 12:00:00 *** Buffer Playback",
		"2023-03-15 11:00:00 @cosmo replayed",
		"2023-03-15 12:00:01 *** Playback Complete",
		"2023-03-15 12:01:00 @cosmo live",
	}, "\n")

	msgs, err := parse.Reader(parse.FormatWeechat, strings.NewReader(log))
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "live", msgs[0].Message)
}

func TestParseOutputIsChronological(t *testing.T) {
	log := strings.Join([]string{
		"2023-03-15 12:05:00 @cosmo later",
		"2023-03-15 12:01:00 @wyll earlier",
	}, "\n")

	msgs, err := parse.Reader(parse.FormatWeechat, strings.NewReader(log))
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "earlier", msgs[0].Message)
}

func TestUnknownFormat(t *testing.T) {
	_, err := parse.Reader(parse.Format("mirc"), strings.NewReader(""))
	require.Error(t, err)
}
