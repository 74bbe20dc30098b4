package commands

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommandLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"plain", "register 3 alice 1 2", []string{"register", "3", "alice", "1", "2"}},
		{"double quotes", `createTraining "Wing 1 clear" "2025-03-04 19:00"`, []string{"createTraining", "Wing 1 clear", "2025-03-04 19:00"}},
		{"single quotes", `comment 3 alice 'late, 20 min'`, []string{"comment", "3", "alice", "late, 20 min"}},
		{"empty quotes", `comment 3 alice ""`, []string{"comment", "3", "alice", ""}},
		{"extra spaces", "  listRoles   --all ", []string{"listRoles", "--all"}},
		{"blank", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCommandLine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseCommandLine(`comment 3 "unfinished`)
	assert.ErrorContains(t, err, "unclosed quote")
}

func echoCommand(got *[]string) *cobra.Command {
	cmd := &cobra.Command{
		Use:  "echo <word...>",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loud, _ := cmd.Flags().GetBool("loud")
			if loud {
				args = append(args, "!")
			}
			*got = args
			return nil
		},
	}
	cmd.Flags().Bool("loud", false, "")
	return cmd
}

func TestRunLine(t *testing.T) {
	var got []string
	commands := map[string]*cobra.Command{"echo": echoCommand(&got)}

	require.NoError(t, runLine(`echo "a b" c --loud`, commands))
	assert.Equal(t, []string{"a b", "c", "!"}, got)

	// The flag from the previous line must not leak into this one
	require.NoError(t, runLine("echo d", commands))
	assert.Equal(t, []string{"d"}, got)

	assert.Error(t, runLine("echo", commands))
	assert.ErrorContains(t, runLine("missing", commands), "unknown command")
	assert.Equal(t, errQuit, runLine("quit", commands))
	assert.NoError(t, runLine("", commands))
}

func TestRunSession_StopsAtQuit(t *testing.T) {
	var got []string
	commands := map[string]*cobra.Command{"echo": echoCommand(&got)}

	err := runSession(strings.NewReader("echo one\nquit\necho two\n"), commands)
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, got)
}

func TestSessionCommands_SkipsSessionlessCommands(t *testing.T) {
	root := &cobra.Command{Use: "cli"}
	root.AddCommand(&cobra.Command{Use: "listRoles"}, &cobra.Command{Use: "interactive"})

	commands := sessionCommands(root)
	assert.Contains(t, commands, "listRoles")
	assert.NotContains(t, commands, "interactive")
}
