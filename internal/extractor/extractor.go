// Package extractor invokes the external fingerprint extractor (C1):
// an opaque subprocess that, given an audio file, prints a duration and
// a fingerprint vector. The package owns no audio decoding logic of its
// own; it only shells out, parses the known output lines, and maps
// subprocess failure modes onto typed errors.
package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrUnavailable is returned when the extractor binary cannot be found.
	ErrUnavailable = errors.New("extractor: binary not found")
	// ErrTimeout is returned when the extractor exceeds its bound.
	ErrTimeout = errors.New("extractor: timed out")
	// ErrFailed is returned when the extractor exits non-zero.
	ErrFailed = errors.New("extractor: failed")
	// ErrMalformed is returned when stdout is missing the duration or
	// fingerprint line.
	ErrMalformed = errors.New("extractor: malformed output")
)

// Result is the parsed output of one extractor invocation.
type Result struct {
	DurationSeconds int
	Fingerprint     []uint32
}

// Extractor invokes a configured fpcalc-compatible binary.
type Extractor struct {
	// BinaryName is the executable looked up on PATH (default "fpcalc").
	BinaryName string
	// Timeout bounds one invocation (default set by caller; spec
	// default is 30s).
	Timeout time.Duration
	// WindowSeconds, when > 0, is passed as "-length N" to bound
	// analysis to the first N seconds of audio.
	WindowSeconds int
}

// New returns an Extractor with the given timeout and analysis window.
func New(timeout time.Duration, windowSeconds int) *Extractor {
	return &Extractor{
		BinaryName:    "fpcalc",
		Timeout:       timeout,
		WindowSeconds: windowSeconds,
	}
}

// Extract runs the extractor against path and returns its parsed
// duration and fingerprint.
func (e *Extractor) Extract(ctx context.Context, path string) (Result, error) {
	binary := e.BinaryName
	if binary == "" {
		binary = "fpcalc"
	}

	if _, err := exec.LookPath(binary); err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrUnavailable, binary)
	}

	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	args := []string{"-raw"}
	if e.WindowSeconds > 0 {
		args = append(args, "-length", strconv.Itoa(e.WindowSeconds))
	}
	args = append(args, path)

	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return Result{}, fmt.Errorf("%w: %s", ErrTimeout, path)
	}
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %s", ErrFailed, path, strings.TrimSpace(stderr.String()))
	}

	return parseOutput(stdout.String())
}

// parseOutput parses fpcalc's "DURATION=<int>" / "FINGERPRINT=<ints>"
// lines. The raw form is a comma-separated list of signed 32-bit
// integers, re-read here as uint32 (bit patterns are preserved by the
// similarity kernel's XOR comparison regardless of signedness).
func parseOutput(out string) (Result, error) {
	var (
		duration    int
		haveDur     bool
		fingerprint []uint32
		haveFP      bool
	)

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "DURATION="):
			v, err := strconv.Atoi(strings.TrimPrefix(line, "DURATION="))
			if err != nil {
				return Result{}, fmt.Errorf("%w: bad duration: %v", ErrMalformed, err)
			}
			duration = v
			haveDur = true
		case strings.HasPrefix(line, "FINGERPRINT="):
			raw := strings.TrimPrefix(line, "FINGERPRINT=")
			if raw == "" {
				return Result{}, fmt.Errorf("%w: empty fingerprint", ErrMalformed)
			}
			for _, tok := range strings.Split(raw, ",") {
				n, err := strconv.ParseInt(strings.TrimSpace(tok), 10, 64)
				if err != nil {
					return Result{}, fmt.Errorf("%w: bad fingerprint element: %v", ErrMalformed, err)
				}
				fingerprint = append(fingerprint, uint32(n))
			}
			haveFP = true
		}
	}

	if !haveDur || !haveFP {
		return Result{}, fmt.Errorf("%w: missing DURATION or FINGERPRINT line", ErrMalformed)
	}

	return Result{DurationSeconds: duration, Fingerprint: fingerprint}, nil
}
