package commands

import "strings"

// CommandRequest is one executable command candidate extracted from
// assistant text.
type CommandRequest struct {
	Text             string
	WorkingDirectory string
}

// Only explicitly tagged fences qualify. Prose that merely mentions a
// command, inline backticks, and untagged code blocks never execute.
var commandFenceTags = map[string]struct{}{
	"sh":      {},
	"bash":    {},
	"shell":   {},
	"zsh":     {},
	"console": {},
	"command": {},
}

// Extract scans assistant text for fenced command blocks and returns
// them in order of appearance. A fence with no terminating delimiter is
// rejected along with everything after it.
func Extract(text string) []CommandRequest {
	lines := strings.Split(text, "\n")
	var out []CommandRequest
	for i := 0; i < len(lines); i++ {
		tag, ok := fenceOpen(lines[i])
		if !ok {
			continue
		}
		body, end, closed := fenceBody(lines, i+1)
		if !closed {
			break
		}
		if cmd := assemble(tag, body); cmd != "" {
			out = append(out, CommandRequest{Text: cmd})
		}
		i = end
	}
	return out
}

// fenceOpen reports whether the line opens a command fence and returns
// its tag.
func fenceOpen(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "```") {
		return "", false
	}
	tag := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(trimmed, "```")))
	_, ok := commandFenceTags[tag]
	return tag, ok
}

// fenceBody collects lines until the closing delimiter. closed is false
// when the fence never terminates.
func fenceBody(lines []string, start int) (body []string, end int, closed bool) {
	for i := start; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "```" {
			return lines[start:i], i, true
		}
	}
	return nil, len(lines), false
}

// assemble joins a fence body into one command string. Console blocks
// are shell transcripts: only prompt lines count, with the "$ " prefix
// stripped, and interleaved output lines are dropped.
func assemble(tag string, body []string) string {
	if tag == "console" {
		var cmds []string
		for _, line := range body {
			trimmed := strings.TrimSpace(line)
			if rest, ok := strings.CutPrefix(trimmed, "$ "); ok {
				cmds = append(cmds, rest)
			}
		}
		return strings.TrimSpace(strings.Join(cmds, "\n"))
	}
	return strings.TrimSpace(strings.Join(body, "\n"))
}
