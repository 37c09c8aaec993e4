package commands

import "testing"

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			"bash fence",
			"Run this:\n```bash\nls -la\n```\ndone",
			[]string{"ls -la"},
		},
		{
			"sh fence multiline",
			"```sh\ncd /tmp\nls\n```",
			[]string{"cd /tmp\nls"},
		},
		{
			"command tag",
			"```command\nmake test\n```",
			[]string{"make test"},
		},
		{
			"console transcript strips prompts and output",
			"```console\n$ git status\nOn branch main\n$ git log -1\ncommit abc\n```",
			[]string{"git status\ngit log -1"},
		},
		{
			"unterminated fence rejected",
			"```bash\nrm -rf /tmp/x",
			nil,
		},
		{
			"everything after unterminated fence rejected",
			"```bash\necho first\n```\n```sh\necho never closed",
			[]string{"echo first"},
		},
		{
			"prose mentioning a command",
			"You could run `ls -la` to see the files.",
			nil,
		},
		{
			"untagged fence ignored",
			"```\nls\n```",
			nil,
		},
		{
			"non-shell language ignored",
			"```go\npackage main\n```",
			nil,
		},
		{
			"empty fence ignored",
			"```bash\n\n```",
			nil,
		},
		{
			"multiple fences in order",
			"```sh\necho one\n```\ntext between\n```zsh\necho two\n```",
			[]string{"echo one", "echo two"},
		},
		{
			"tag is case insensitive",
			"```Bash\necho hi\n```",
			[]string{"echo hi"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d commands %v, want %d", len(got), got, len(tt.want))
			}
			for i := range tt.want {
				if got[i].Text != tt.want[i] {
					t.Errorf("command %d: got %q, want %q", i, got[i].Text, tt.want[i])
				}
			}
		})
	}
}
