package tracer

import (
	"context"
	"time"
)

// Fake is a Tracer whose result (or error) is fixed per target, for member
// tests that exercise the traceroute probe task without spawning a
// subprocess.
type Fake struct {
	Results map[string]*Result
	Errors  map[string]error
	Calls   []string
}

func (f *Fake) Trace(ctx context.Context, targetIP string, deadline time.Duration) (*Result, error) {
	f.Calls = append(f.Calls, targetIP)
	if err, ok := f.Errors[targetIP]; ok {
		return nil, err
	}
	if r, ok := f.Results[targetIP]; ok {
		return r, nil
	}
	return nil, nil
}
