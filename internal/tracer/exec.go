package tracer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"netring/internal/cmdutil"
)

// ErrUnreachable names the all-hops-unreachable outcome. Trace does not
// return it: summarize reports that case as (nil, nil), which callers
// discard rather than treating as an error.
var ErrUnreachable = errors.New("tracer: all hops unreachable")

// Exec runs the platform traceroute binary, one probe per hop
// (spec.md §4.2: "per-hop probe count 1"), serialized by the caller to one
// at a time per member (spec.md §5).
type Exec struct {
	// Binary overrides the traceroute executable name, mainly for tests.
	Binary string
}

// NewExec returns an Exec using the system "traceroute" binary.
func NewExec() *Exec {
	return &Exec{Binary: "traceroute"}
}

func (e *Exec) bin() string {
	if e.Binary != "" {
		return e.Binary
	}
	return "traceroute"
}

// Trace spawns traceroute with a total deadline that kills the subprocess
// on expiry, matching spec.md §5: "Traceroute is wrapped in a total-time
// deadline that kills the subprocess on expiry."
func (e *Exec) Trace(ctx context.Context, targetIP string, deadline time.Duration) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()
	output, err := cmdutil.RunContext(ctx, deadline, e.bin(), "-q", "1", targetIP)
	if ctx.Err() != nil {
		// Timed out or cancelled: any partial output is discarded.
		return nil, fmt.Errorf("traceroute to %s: %w", targetIP, ctx.Err())
	}
	if err != nil {
		// traceroute can exit non-zero even with usable partial output
		// (e.g. final hop unreachable); only treat it as fatal if nothing
		// came back at all.
		if len(output) == 0 {
			return nil, fmt.Errorf("traceroute to %s: %w", targetIP, err)
		}
	}

	hops, perr := parseHops(output)
	if perr != nil {
		return nil, fmt.Errorf("parse traceroute output for %s: %w", targetIP, perr)
	}
	return summarize(hops)
}

var hopLineRe = regexp.MustCompile(`^\s*(\d+)\s+(.*)$`)
var rttRe = regexp.MustCompile(`([\d.]+)\s*ms`)

// parseHops reads traceroute output line-by-line, yielding one Hop per
// numbered line (spec.md §4.2).
func parseHops(output []byte) ([]Hop, error) {
	var hops []Hop
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		m := hopLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		num, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		rest := m[2]
		hop := Hop{Number: num}
		if strings.Contains(rest, "*") && !rttRe.MatchString(rest) {
			hops = append(hops, hop)
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) > 0 {
			hop.IP = strings.Trim(fields[0], "()")
		}
		if rm := rttRe.FindStringSubmatch(rest); rm != nil {
			if rtt, err := strconv.ParseFloat(rm[1], 64); err == nil {
				hop.RTTMs = &rtt
			}
		}
		hops = append(hops, hop)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(hops) == 0 {
		return nil, errors.New("no hop lines found in traceroute output")
	}
	return hops, nil
}

// summarize turns parsed hops into a Result, or (nil, nil) when every hop
// is unreachable, per spec.md §4.2: "If all hops are *, result is
// discarded."
func summarize(hops []Hop) (*Result, error) {
	maxRTT := 0.0
	seenRTT := false
	for _, h := range hops {
		if h.RTTMs != nil {
			seenRTT = true
			if *h.RTTMs > maxRTT {
				maxRTT = *h.RTTMs
			}
		}
	}
	if !seenRTT {
		return nil, nil
	}
	return &Result{TotalHops: len(hops), MaxHopLatencyMs: maxRTT}, nil
}
