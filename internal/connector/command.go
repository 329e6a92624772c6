package connector

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/amsen20/leovnf/internal/model"
)

// CommandResourceProvider runs an external command with the node id as its
// last argument and parses the JSON it prints, e.g.
// `python3 Operating_Manager.py resource <node>`.
type CommandResourceProvider struct {
	Command string
	Args    []string
	Dir     string
}

func NewCommandResourceProvider(command string, args []string, dir string) *CommandResourceProvider {
	return &CommandResourceProvider{
		Command: command,
		Args:    args,
		Dir:     dir,
	}
}

func (c *CommandResourceProvider) Query(ctx context.Context, node string) (model.ResourceSnapshot, error) {
	args := append(append([]string(nil), c.Args...), node)

	cmd := exec.CommandContext(ctx, c.Command, args...)
	cmd.Dir = c.Dir

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return model.ResourceSnapshot{}, fmt.Errorf("%w: query of %s interrupted: %v", ErrUnknown, node, ctx.Err())
		}
		log.Err(err).Msgf("resource command failed for node %s", node)

		return model.ResourceSnapshot{}, fmt.Errorf("%w: resource command failed for %s: %v", ErrUnknown, node, err)
	}

	snapshot, err := ParseResourcePayload(output)
	if err != nil {
		return model.ResourceSnapshot{}, fmt.Errorf("node %s: %w", node, err)
	}

	return snapshot, nil
}
