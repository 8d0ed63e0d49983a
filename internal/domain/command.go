package domain

import "strings"

// ParseCommand разбирает "/cmd@bot arg1 arg2". ok=false, если это не команда.
func ParseCommand(text string) (cmd string, args []string, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}
	cmd, _, _ = strings.Cut(fields[0][1:], "@")
	if cmd == "" {
		return "", nil, false
	}
	return strings.ToLower(cmd), fields[1:], true
}
