package gate

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// NvidiaSMI reads free memory of one GPU through the nvidia-smi binary.
type NvidiaSMI struct {
	// Path defaults to "nvidia-smi" on PATH.
	Path  string
	Index int
}

func (p NvidiaSMI) Free(ctx context.Context) (uint64, error) {
	path := p.Path
	if path == "" {
		path = "nvidia-smi"
	}
	out, err := exec.CommandContext(ctx, path,
		"--query-gpu=memory.free",
		"--format=csv,noheader,nounits",
		"-i", strconv.Itoa(p.Index),
	).Output()
	if err != nil {
		return 0, fmt.Errorf("nvidia-smi: %w", err)
	}
	return parseMiB(out)
}

// parseMiB reads the first line of nvidia-smi output as MiB.
func parseMiB(out []byte) (uint64, error) {
	sc := bufio.NewScanner(bytes.NewReader(out))
	if !sc.Scan() {
		return 0, fmt.Errorf("nvidia-smi: empty output")
	}
	mib, err := strconv.ParseUint(strings.TrimSpace(sc.Text()), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("nvidia-smi: parse %q: %w", sc.Text(), err)
	}
	return mib << 20, nil
}

// Unlimited always reports capacity. Used on hosts without an accelerator.
type Unlimited struct{}

func (Unlimited) Free(context.Context) (uint64, error) { return math.MaxUint64, nil }

// Detect reports whether probe answers at all. A host where it fails is
// treated as having no accelerator.
func Detect(ctx context.Context, probe Probe) bool {
	_, err := probe.Free(ctx)
	return err == nil
}

// NewProbe selects a probe by name.
func NewProbe(name string) (Probe, error) {
	switch name {
	case "nvidia-smi", "nvidia":
		return NvidiaSMI{}, nil
	case "none", "":
		return Unlimited{}, nil
	default:
		return nil, fmt.Errorf("unknown probe %q", name)
	}
}
