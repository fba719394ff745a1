package protocol

import "strings"

// Wire delimiters. Commands arrive `;`-joined; list replies are `#`-joined
// with a trailing delimiter per item; command arguments follow `:`.
const (
	CommandDelim = ";"
	ListDelim    = "#"
	ArgDelim     = ":"
)

// Literal reply tokens.
const (
	TokenNoConnections  = "NO_CONNECTIONS"
	TokenNoHighScores   = "NO_HIGH_SCORES"
	TokenInvalidClient  = "INVALID_CLIENT"
	TokenInvalidPartner = "INVALID_PARTNER"
	TokenInvalidRequest = "INVALID_REQUEST"
	TokenEndedGame      = "ENDED_GAME"
	TokenStartGame      = "START_GAME"
	TokenSetSeed        = "SET_SEED"
	TokenGameOver       = "GAME_OVER"
)

// Kind identifies a recognized instruction keyword.
type Kind int

const (
	KindUnknown Kind = iota
	KindGetOpenConnections
	KindGetHighScores
	KindJoin
	KindGameOver
	KindEndGame
)

// Command is one parsed instruction: its keyword and any `:`-separated
// arguments. Raw preserves the original text for diagnostics.
type Command struct {
	Kind Kind
	Args []string
	Raw  string
}

var keywords = map[string]Kind{
	"GET_OPEN_CONNECTIONS": KindGetOpenConnections,
	"GET_HIGH_SCORES":      KindGetHighScores,
	"JOIN":                 KindJoin,
	"GAME_OVER":            KindGameOver,
	"END_GAME":             KindEndGame,
}

// Parse decodes a single instruction. Unrecognized keywords parse to
// KindUnknown; the dispatcher answers those with INVALID_REQUEST.
func Parse(raw string) Command {
	parts := strings.Split(raw, ArgDelim)
	kind, ok := keywords[parts[0]]
	if !ok {
		return Command{Kind: KindUnknown, Raw: raw}
	}
	return Command{Kind: kind, Args: parts[1:], Raw: raw}
}

// SplitScript breaks a `;`-joined instruction string into its individual
// instructions, dropping empty segments. An empty script yields nothing.
func SplitScript(script string) []string {
	if script == "" {
		return nil
	}
	var out []string
	for _, seg := range strings.Split(script, CommandDelim) {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}
