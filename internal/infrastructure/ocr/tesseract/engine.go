package tesseract

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/semaphore"

	"github.com/kirillkom/poa-analyzer/internal/core/domain"
)

const defaultBinary = "tesseract"

type Config struct {
	Binary        string
	MaxConcurrent int
}

// Engine runs the tesseract CLI, feeding the image on stdin and reading text
// from stdout. The number of concurrent processes is capped.
type Engine struct {
	binary string
	runner Runner
	slots  *semaphore.Weighted
}

func NewEngine(cfg Config) *Engine {
	return newEngineWithRunner(cfg, execRunner{})
}

func newEngineWithRunner(cfg Config, runner Runner) *Engine {
	binary := strings.TrimSpace(cfg.Binary)
	if binary == "" {
		binary = defaultBinary
	}
	limit := cfg.MaxConcurrent
	if limit <= 0 {
		limit = 2
	}
	return &Engine{
		binary: binary,
		runner: runner,
		slots:  semaphore.NewWeighted(int64(limit)),
	}
}

func (e *Engine) Recognize(ctx context.Context, image []byte, language string, opts domain.OCROptions) (string, error) {
	if len(image) == 0 {
		return "", errors.New("empty image")
	}
	if err := e.slots.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("wait for ocr slot: %w", err)
	}
	defer e.slots.Release(1)

	stdout, stderr, err := e.runner.Run(ctx, image, e.binary, buildArgs(language, opts)...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("tesseract: %w", ctxErr)
		}
		if msg := strings.TrimSpace(string(stderr)); msg != "" {
			return "", fmt.Errorf("tesseract: %w: %s", err, truncate(msg, 512))
		}
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return strings.TrimSpace(string(stdout)), nil
}

func buildArgs(language string, opts domain.OCROptions) []string {
	lang := strings.TrimSpace(language)
	if lang == "" {
		lang = "eng"
	}
	args := []string{"stdin", "stdout", "-l", lang}
	if opts.PageSegmentationMode > 0 {
		args = append(args, "--psm", strconv.Itoa(opts.PageSegmentationMode))
	}
	if opts.EngineMode > 0 {
		args = append(args, "--oem", strconv.Itoa(opts.EngineMode))
	}
	return args
}
