package resolver

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Command resolves the remote host by running an external probe command
// and taking the first whitespace-separated token of its stdout. The
// typical probe is `wsl hostname -I`, which prints the addresses of a
// WSL guest from the Windows side.
type Command struct {
	Name string
	Args []string
}

func (c *Command) Resolve(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, c.Name, c.Args...).Output()
	if err != nil {
		return "", fmt.Errorf("probe command %q: %w", c.Name, err)
	}
	tokens := strings.Fields(string(out))
	if len(tokens) == 0 {
		return "", fmt.Errorf("probe command %q produced no output", c.Name)
	}
	return tokens[0], nil
}
