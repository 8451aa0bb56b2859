// Package export implements the uniform export pipeline: validate a
// requested format, resolve an output path, render the records, and
// write them atomically. Export failures abort the step entirely; the
// collected records always remain available to the caller.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/invlite/invlite/internal/inventory"
)

// Export error taxonomy. All of these halt the export before a partial
// file can appear at the destination.
var (
	ErrInvalidRequest = errors.New("invalid export request")
	ErrInvalidFormat  = errors.New("invalid export format")
	ErrPathResolution = errors.New("export path resolution failed")
	ErrWrite          = errors.New("export write failed")
)

// Format is one of the supported interchange formats.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatTXT  Format = "txt"
	FormatXML  Format = "xml"
	FormatHTML Format = "html"
)

// SupportedFormats returns the fixed format allow-list.
func SupportedFormats() []string {
	return []string{
		string(FormatCSV),
		string(FormatJSON),
		string(FormatTXT),
		string(FormatXML),
		string(FormatHTML),
	}
}

// ParseFormat case-normalizes and validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatCSV, FormatJSON, FormatTXT, FormatXML, FormatHTML:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q (supported: %s)",
			ErrInvalidFormat, s, strings.Join(SupportedFormats(), ", "))
	}
}

// Request describes one export: constructed from caller input,
// validated once, consumed once.
type Request struct {
	// Entity tags generated file names (Motherboard, Disk, ...).
	Entity string `validate:"required"`
	// Format must be a member of the allow-list, case-insensitive.
	Format string `validate:"required"`
	// PathHint is an explicit file, an existing directory, or empty
	// for a generated default under the pipeline's base directory.
	PathHint string
	// Annotation, when set, is prepended as a comment line ahead of
	// the body for csv, json and txt. Optional extension point, not a
	// core pipeline step.
	Annotation string
}

var validate = validator.New()

// Pipeline renders record sets to files. The base directory for
// generated paths is injected at construction; the pipeline never
// reads ambient process state.
type Pipeline struct {
	baseDir string
	clock   func() time.Time
	logger  *slog.Logger
}

// New creates a pipeline writing generated files under baseDir
// (normally the system temp directory, from config).
func New(baseDir string, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		baseDir: baseDir,
		clock:   time.Now,
		logger:  logger.With("component", "export"),
	}
}

// Export validates the request, resolves the output path and writes
// the rendered records. It returns the final path used. The record
// set is only read, never mutated, and an existing file at the final
// path is overwritten, not appended to.
func (p *Pipeline) Export(ctx context.Context, records inventory.RecordSet, req Request) (string, error) {
	if err := validate.Struct(req); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	format, err := ParseFormat(req.Format)
	if err != nil {
		return "", err
	}

	path, err := p.resolvePath(req.Entity, format, req.PathHint)
	if err != nil {
		return "", err
	}

	body, err := render(records, format)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if req.Annotation != "" {
		body = annotate(body, format, req.Annotation)
	}

	if err := writeAtomic(path, body); err != nil {
		return "", err
	}

	p.logger.Info("export written",
		"entity", req.Entity,
		"format", string(format),
		"path", path,
		"records", len(records),
	)
	return path, nil
}

// resolvePath picks the concrete output file.
//
// The two generated-name branches deliberately use different timestamp
// layouts; the observed behavior of the pipeline's consumers depends
// on the file names, so the inconsistency is preserved rather than
// silently harmonized.
func (p *Pipeline) resolvePath(entity string, format Format, hint string) (string, error) {
	ext := string(format)

	if hint == "" {
		name := fmt.Sprintf("%s_%s.%s", entity, p.clock().Format("2006-01-02_15-04-05"), ext)
		return p.ensureFresh(filepath.Join(p.baseDir, name))
	}

	if info, err := os.Stat(hint); err == nil && info.IsDir() {
		name := fmt.Sprintf("%s_%s.%s", entity, p.clock().Format("20060102_150405"), ext)
		return p.ensureFresh(filepath.Join(hint, name))
	}

	// Explicit file path, used verbatim; extension not enforced.
	return hint, nil
}

// ensureFresh appends a short uniqueness suffix when a generated path
// already exists. Timestamped names make collisions unlikely, not
// impossible.
func (p *Pipeline) ensureFresh(path string) (string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path, nil
	}
	ext := filepath.Ext(path)
	suffix := uuid.NewString()[:8]
	return strings.TrimSuffix(path, ext) + "_" + suffix + ext, nil
}

// writeAtomic renders to a temp file next to the destination and
// renames it into place, so a failed write never leaves a truncated
// file at the final path.
func writeAtomic(path string, body []byte) error {
	dir := filepath.Dir(path)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: directory %s does not exist", ErrPathResolution, dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPathResolution, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

// annotate prepends the header comment line for the text-based
// formats. XML and HTML bodies are left untouched.
func annotate(body []byte, format Format, annotation string) []byte {
	switch format {
	case FormatCSV, FormatJSON, FormatTXT:
		return append([]byte("# "+annotation+"\n"), body...)
	default:
		return body
	}
}
