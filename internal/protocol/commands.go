package protocol

import "encoding/json"

// CommandType is the discriminant of an outbound frame.
type CommandType string

const (
	CmdStartGame   CommandType = "start_game"
	CmdMakeChoice  CommandType = "make_choice"
	CmdExitGame    CommandType = "exit_game"
	CmdRestartGame CommandType = "restart_game"
)

// Command is a frame the client sends to the server.
type Command struct {
	Type   CommandType `json:"type"`
	Action Move        `json:"action,omitempty"`
}

func StartGame() Command        { return Command{Type: CmdStartGame} }
func MakeChoice(m Move) Command { return Command{Type: CmdMakeChoice, Action: m} }
func ExitGame() Command         { return Command{Type: CmdExitGame} }
func RestartGame() Command      { return Command{Type: CmdRestartGame} }

// Encode marshals a command for the wire.
func Encode(c Command) ([]byte, error) {
	return json.Marshal(c)
}
