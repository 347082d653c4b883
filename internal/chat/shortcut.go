package chat

import "regexp"

// One pictograph (Misc Technical, Misc Symbols, Dingbats, or the Misc Symbols
// and Pictographs through Symbols Extended-A blocks), an optional emoji
// variation selector, then whitespace.
var shortcutPrefixRe = regexp.MustCompile(`^[\x{2300}-\x{23FF}\x{2600}-\x{27BF}\x{1F300}-\x{1FAFF}]\x{FE0F}?\s*`)

// NormalizeShortcut strips the decorative leading emoji from a quick-question
// label so the remaining text can be sent as a message.
func NormalizeShortcut(label string) string {
	loc := shortcutPrefixRe.FindStringIndex(label)
	if loc == nil {
		return label
	}
	return label[loc[1]:]
}
