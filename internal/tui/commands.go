package tui

import (
	"fmt"
	"strconv"
	"strings"
)

type commandKind int

const (
	cmdMessage commandKind = iota // plain text for the coach
	cmdQuick
	cmdReset
	cmdProfile
	cmdSet
	cmdSave
	cmdHelp
	cmdQuit
)

type command struct {
	kind  commandKind
	text  string // cmdMessage
	index int    // cmdQuick, 1-based
	key   string // cmdSet
	value string // cmdSet
}

const helpText = `/q N            send quick question N
/profile        show your profile
/set KEY VALUE  change a profile field (empty VALUE clears it)
/save           store the profile on the server
/reset          clear the conversation
/quit           exit
ctrl+t          show or hide the coach's thinking
pgup/pgdown     scroll`

// parseCommand interprets one line of input. Anything not starting with a
// known slash command is a message for the coach.
func parseCommand(line string) (command, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return command{kind: cmdMessage, text: line}, nil
	}

	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(name) {
	case "/q":
		n, err := strconv.Atoi(rest)
		if err != nil || n < 1 {
			return command{}, fmt.Errorf("usage: /q N, where N is a quick question number")
		}
		return command{kind: cmdQuick, index: n}, nil
	case "/reset":
		return command{kind: cmdReset}, nil
	case "/profile":
		return command{kind: cmdProfile}, nil
	case "/set":
		key, value, _ := strings.Cut(rest, " ")
		if key == "" {
			return command{}, fmt.Errorf("usage: /set KEY VALUE")
		}
		return command{kind: cmdSet, key: strings.ToLower(key), value: strings.TrimSpace(value)}, nil
	case "/save":
		return command{kind: cmdSave}, nil
	case "/help", "/?":
		return command{kind: cmdHelp}, nil
	case "/quit", "/exit":
		return command{kind: cmdQuit}, nil
	default:
		return command{}, fmt.Errorf("unknown command %s, try /help", name)
	}
}
