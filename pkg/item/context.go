package item

import (
	"os"
	"time"
)

// ExecutionContext records where and when a command ran. Inbox items carry
// one so an entry can later be traced back to the machine and directory it
// was captured from.
type ExecutionContext struct {
	CWD     string    `json:"cwd"`
	Time    time.Time `json:"time"`
	Machine string    `json:"machine"`
	User    string    `json:"user"`
	Command []string  `json:"command"`
}

// CaptureContext snapshots the current process environment.
func CaptureContext() *ExecutionContext {
	cwd, _ := os.Getwd()
	host, _ := os.Hostname()
	return &ExecutionContext{
		CWD:     cwd,
		Time:    time.Now(),
		Machine: host,
		User:    os.Getenv("USER"),
		Command: os.Args,
	}
}

// ToData converts the context into the JSON-compatible map shape item data
// payloads use.
func (c *ExecutionContext) ToData() map[string]any {
	cmd := make([]any, len(c.Command))
	for i, a := range c.Command {
		cmd[i] = a
	}
	return map[string]any{
		"cwd":     c.CWD,
		"time":    c.Time.Format(time.RFC3339),
		"machine": c.Machine,
		"user":    c.User,
		"command": cmd,
	}
}
