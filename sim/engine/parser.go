package engine

// CommandParser turns a raw command string into a program
type CommandParser interface {
	Parse(raw string) []Command
}

// SimpleParser maps 'F', 'L' and 'R' to commands and silently drops any
// other character. It never fails.
type SimpleParser struct{}

// Parse implements CommandParser
func (SimpleParser) Parse(raw string) []Command {
	return ParseCommands(raw)
}

// ParseCommands is the lenient parser used for every car program.
// Matching is case-sensitive: lower-case letters are dropped too.
func ParseCommands(raw string) []Command {
	commands := make([]Command, 0, len(raw))
	for _, ch := range raw {
		switch ch {
		case 'F':
			commands = append(commands, Forward)
		case 'L':
			commands = append(commands, TurnLeft)
		case 'R':
			commands = append(commands, TurnRight)
		}
	}
	return commands
}

// FormatCommands renders a program back to its F/L/R form
func FormatCommands(commands []Command) string {
	b := make([]byte, 0, len(commands))
	for _, c := range commands {
		b = append(b, c.Letter()[0])
	}
	return string(b)
}
