// Package pdf extracts page text from PDF files with poppler's pdftotext.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// ErrPDFToolNotFound is returned when pdftotext is not on PATH.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// toolName is the poppler binary invoked for extraction.
const toolName = "pdftotext"

// pageBreak separates pages in pdftotext output.
const pageBreak = "\f"

// CommandRunner executes an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands with os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, err
	}
	return out, nil
}

// Extractor turns a PDF into one segment per non-blank page.
type Extractor struct {
	runner   CommandRunner
	lookPath func(string) (string, error)
}

// New creates an extractor that shells out to pdftotext.
func New() *Extractor {
	return &Extractor{runner: execRunner{}, lookPath: exec.LookPath}
}

// NewWithRunner creates an extractor with a custom command runner.
// The PATH lookup is skipped, so tests do not need poppler installed.
func NewWithRunner(runner CommandRunner) *Extractor {
	return &Extractor{
		runner:   runner,
		lookPath: func(name string) (string, error) { return name, nil },
	}
}

// SupportedExtensions returns the file extensions handled.
func (e *Extractor) SupportedExtensions() []string {
	return []string{".pdf"}
}

// Extract runs pdftotext and splits its output on form feeds.
// Each segment carries source (base filename) and a 1-based page number.
func (e *Extractor) Extract(ctx context.Context, path string) ([]domain.Segment, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", domain.ErrInvalidInput)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUnreadableDocument, err)
	}

	bin, err := e.lookPath(toolName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w\n%s", domain.ErrUnreadableDocument, ErrPDFToolNotFound, InstallInstructions())
	}

	out, err := e.runner.Run(ctx, bin, "-enc", "UTF-8", path, "-")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: pdftotext failed on %s: %w", domain.ErrUnreadableDocument, filepath.Base(path), err)
	}

	segments := SplitPages(string(out), filepath.Base(path))
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: %s has no extractable text", domain.ErrUnreadableDocument, filepath.Base(path))
	}
	return segments, nil
}

// SplitPages converts form-feed separated text into page segments, skipping blank pages.
func SplitPages(text, source string) []domain.Segment {
	pages := strings.Split(text, pageBreak)
	segments := make([]domain.Segment, 0, len(pages))
	for i, page := range pages {
		if strings.TrimSpace(page) == "" {
			continue
		}
		segments = append(segments, domain.Segment{
			Text: page,
			Metadata: domain.Metadata{
				domain.MetaSource: source,
				domain.MetaPage:   i + 1,
			},
		})
	}
	return segments
}

// CheckAvailable reports whether pdftotext can be found on PATH.
func CheckAvailable() error {
	if _, err := exec.LookPath(toolName); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns platform hints for installing pdftotext.
func InstallInstructions() string {
	return `PDF extraction requires pdftotext from poppler:
  macOS:          brew install poppler
  Debian/Ubuntu:  apt install poppler-utils
  Fedora:         dnf install poppler-utils`
}
