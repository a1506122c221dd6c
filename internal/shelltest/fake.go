// Package shelltest provides a scripted device shell for tests.
package shelltest

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Response is one scripted reply.
type Response struct {
	Output string
	Err    error
	// Panic, when non-nil, is raised instead of returning.
	Panic interface{}
}

// Fake answers ExecuteShellCommand from a script. Commands with several
// queued responses consume them in order; the last one repeats.
// Unscripted commands return empty output.
type Fake struct {
	mu       sync.Mutex
	script   map[string][]Response
	prefixes []prefixRule
	calls    []string
}

type prefixRule struct {
	prefix string
	resp   Response
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{script: make(map[string][]Response)}
}

// On queues output for an exact command.
func (f *Fake) On(command string, outputs ...string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, out := range outputs {
		f.script[command] = append(f.script[command], Response{Output: out})
	}
	return f
}

// OnResponse queues arbitrary responses for an exact command.
func (f *Fake) OnResponse(command string, responses ...Response) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script[command] = append(f.script[command], responses...)
	return f
}

// OnPrefix answers every command starting with prefix that has no exact script.
func (f *Fake) OnPrefix(prefix string, resp Response) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefixes = append(f.prefixes, prefixRule{prefix: prefix, resp: resp})
	return f
}

// ExecuteShellCommand implements the shell capability.
func (f *Fake) ExecuteShellCommand(ctx context.Context, command string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, command)
	resp, ok := f.next(command)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	if resp.Panic != nil {
		panic(resp.Panic)
	}
	return resp.Output, resp.Err
}

func (f *Fake) next(command string) (Response, bool) {
	if queue, ok := f.script[command]; ok && len(queue) > 0 {
		resp := queue[0]
		if len(queue) > 1 {
			f.script[command] = queue[1:]
		}
		return resp, true
	}
	for _, rule := range f.prefixes {
		if strings.HasPrefix(command, rule.prefix) {
			return rule.resp, true
		}
	}
	return Response{}, false
}

// Calls returns every command issued so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsWithPrefix returns the issued commands starting with prefix.
func (f *Fake) CallsWithPrefix(prefix string) []string {
	var out []string
	for _, c := range f.Calls() {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// Count reports how many times command was issued.
func (f *Fake) Count(command string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == command {
			n++
		}
	}
	return n
}

// Disconnected is the error a torn-down transport produces.
func Disconnected(command string) error {
	return fmt.Errorf("failed to execute %q: device disconnected", command)
}
