package protocol

import (
	"strconv"
	"strings"
)

// FormatList renders reply list items, each followed by the list delimiter:
// `item#item#…#`. An empty list renders as an empty string.
func FormatList(items []string) string {
	var b strings.Builder
	for _, item := range items {
		b.WriteString(item)
		b.WriteString(ListDelim)
	}
	return b.String()
}

// FormatEntry renders one `key=value` list item.
func FormatEntry(key, value string) string {
	return key + "=" + value
}

// FormatSetSeed renders a SET_SEED instruction carrying the shared seed.
func FormatSetSeed(seed int32) string {
	return TokenSetSeed + ArgDelim + strconv.FormatInt(int64(seed), 10)
}

// FormatGameOver renders a GAME_OVER instruction with the caller-supplied
// parameters attached verbatim, or the bare token when there are none.
func FormatGameOver(args []string) string {
	if len(args) == 0 {
		return TokenGameOver
	}
	return TokenGameOver + ArgDelim + strings.Join(args, ArgDelim)
}
