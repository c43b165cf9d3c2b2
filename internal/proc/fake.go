package proc

import (
	"context"
	"io"
	"sync"
)

// Recorder is a Runner that records commands instead of running them.
// Tests use it to check the command lines the wrappers build.
type Recorder struct {
	mu       sync.Mutex
	Commands []Command
	Stdins   []string

	// Hook, if set, is called for every command; its error is returned.
	Hook func(c Command) error
}

// Run implements Runner.
func (r *Recorder) Run(ctx context.Context, c Command) error {
	var stdin string
	if c.Stdin != nil {
		data, err := io.ReadAll(c.Stdin)
		if err != nil {
			return err
		}
		stdin = string(data)
	}

	r.mu.Lock()
	r.Commands = append(r.Commands, c)
	r.Stdins = append(r.Stdins, stdin)
	hook := r.Hook
	r.mu.Unlock()

	if hook != nil {
		return hook(c)
	}
	return nil
}

// Args returns the argv of every recorded command.
func (r *Recorder) Args() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]string, len(r.Commands))
	for i, c := range r.Commands {
		out[i] = c.Args
	}
	return out
}
