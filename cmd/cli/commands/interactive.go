package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"unicode"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var errQuit = errors.New("quit")

// InteractiveCmd creates the interactive command
func InteractiveCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Start a session that runs many commands over one store connection",
		Long: `Start an interactive session where you can run multiple commands without reconnecting
to the store or re-authenticating with Google and Discord.
The session keeps running until you type 'exit' or 'quit'.

Type 'help' to see available commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("\n🚀 Starting interactive session...")
			fmt.Println("Type 'help' for available commands, 'exit' or 'quit' to leave")

			return runSession(os.Stdin, sessionCommands(cmd.Parent()))
		},
	}
}

// sessionCommands returns the root's commands that make sense inside a session
func sessionCommands(root *cobra.Command) map[string]*cobra.Command {
	commands := make(map[string]*cobra.Command)
	for _, sub := range root.Commands() {
		switch sub.Name() {
		case "interactive", "completion", "help":
			continue
		}
		commands[sub.Name()] = sub
	}
	return commands
}

func runSession(in io.Reader, commands map[string]*cobra.Command) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		err := runLine(scanner.Text(), commands)
		if errors.Is(err, errQuit) {
			fmt.Println("👋 Goodbye!")
			return nil
		}
		if err != nil {
			fmt.Printf("❌ Error: %v\n\n", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}
	return nil
}

// runLine executes one session line. Commands run their RunE directly so the
// root's PersistentPreRunE does not set the app up a second time.
func runLine(line string, commands map[string]*cobra.Command) error {
	parts, err := parseCommandLine(strings.TrimSpace(line))
	if err != nil {
		return fmt.Errorf("parsing command: %w", err)
	}
	if len(parts) == 0 {
		return nil
	}
	name, args := parts[0], parts[1:]

	switch name {
	case "exit", "quit":
		return errQuit
	case "help":
		printInteractiveHelp(commands)
		return nil
	}

	target, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", name)
	}

	// Flags keep their values between runs unless reset
	target.Flags().VisitAll(func(flag *pflag.Flag) {
		flag.Changed = false
		flag.Value.Set(flag.DefValue)
	})
	if err := target.ParseFlags(args); err != nil {
		return fmt.Errorf("parsing flags: %w", err)
	}
	args = target.Flags().Args()

	if target.Args != nil {
		if err := target.Args(target, args); err != nil {
			return err
		}
	}

	switch {
	case target.RunE != nil:
		return target.RunE(target, args)
	case target.Run != nil:
		target.Run(target, args)
	}
	return nil
}

func printInteractiveHelp(commands map[string]*cobra.Command) {
	fmt.Println("\nAvailable commands:")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		cmd := commands[name]
		fmt.Printf("  %-55s %s\n", cmd.Use, cmd.Short)
	}

	fmt.Printf("\n  %-55s %s\n", "help", "Show this help message")
	fmt.Printf("  %-55s %s\n\n", "exit, quit", "Exit the interactive session")
}

// parseCommandLine splits a line into arguments. Single or double quotes group
// words, e.g. register 3 "Some Player.1234" 1 2
func parseCommandLine(line string) ([]string, error) {
	var args []string
	var current strings.Builder
	var inQuote rune
	quoted := false

	for _, r := range line {
		switch {
		case inQuote != 0:
			if r == inQuote {
				inQuote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			inQuote = r
			quoted = true
		case unicode.IsSpace(r):
			if current.Len() > 0 || quoted {
				args = append(args, current.String())
				current.Reset()
				quoted = false
			}
		default:
			current.WriteRune(r)
		}
	}

	if inQuote != 0 {
		return nil, fmt.Errorf("unclosed quote: %c", inQuote)
	}
	if current.Len() > 0 || quoted {
		args = append(args, current.String())
	}

	return args, nil
}
