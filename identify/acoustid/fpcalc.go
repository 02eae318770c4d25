package acoustid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/RyanBlaney/sonido-split/identify"
	"github.com/RyanBlaney/sonido-split/transcode"
)

// Fingerprinter computes chromaprint fingerprints by piping PCM into fpcalc.
type Fingerprinter struct {
	path string
}

// NewFingerprinter uses the fpcalc binary at path, looked up in $PATH when
// it has no separator. An empty path means "fpcalc".
func NewFingerprinter(path string) *Fingerprinter {
	if path == "" {
		path = "fpcalc"
	}
	return &Fingerprinter{path: path}
}

type fpcalcOutput struct {
	Duration    float64 `json:"duration"`
	Fingerprint string  `json:"fingerprint"`
}

// Fingerprint runs fpcalc over samples (channels x samples). It returns an
// error wrapping identify.ErrNoBackend when fpcalc is not installed and
// identify.ErrFingerprintGeneration when it fails.
func (f *Fingerprinter) Fingerprint(ctx context.Context, samples [][]float64, sampleRate int) (identify.Fingerprint, error) {
	bin, err := exec.LookPath(f.path)
	if err != nil {
		return identify.Fingerprint{}, fmt.Errorf("%w: %s: %v", identify.ErrNoBackend, f.path, err)
	}
	if len(samples) == 0 || len(samples[0]) == 0 {
		return identify.Fingerprint{}, fmt.Errorf("%w: no audio", identify.ErrFingerprintGeneration)
	}

	cmd := exec.CommandContext(ctx, bin,
		"-json",
		"-format", "s16le",
		"-rate", strconv.Itoa(sampleRate),
		"-channels", strconv.Itoa(len(samples)),
		"-",
	)
	cmd.Stdin = bytes.NewReader(transcode.EncodePCM16(samples))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return identify.Fingerprint{}, ctxErr
		}
		return identify.Fingerprint{}, fmt.Errorf("%w: %v: %s", identify.ErrFingerprintGeneration, err, strings.TrimSpace(stderr.String()))
	}

	return parseFpcalcOutput(stdout.Bytes())
}

func parseFpcalcOutput(data []byte) (identify.Fingerprint, error) {
	var out fpcalcOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return identify.Fingerprint{}, fmt.Errorf("%w: invalid fpcalc output: %v", identify.ErrFingerprintGeneration, err)
	}
	if out.Fingerprint == "" {
		return identify.Fingerprint{}, fmt.Errorf("%w: empty fingerprint", identify.ErrFingerprintGeneration)
	}
	return identify.Fingerprint{Duration: out.Duration, Value: out.Fingerprint}, nil
}
