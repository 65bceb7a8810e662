package content

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/verustcode/materiality/pkg/errors"
	"github.com/verustcode/materiality/pkg/logger"
	"github.com/verustcode/materiality/pkg/telemetry"
)

// FileExt is appended to file stems that carry no extension.
const FileExt = ".yml"

// Repository returns parsed content files by (category, filename).
// A pair that does not resolve to a file fails with ErrCodeContentNotFound.
type Repository interface {
	Load(ctx context.Context, category Category, filename string) (*Mapping, error)
}

// FileRepository reads content from <root>/<category>/<filename>.yml.
type FileRepository struct {
	root string
}

// NewFileRepository creates a repository rooted at dir.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{root: dir}
}

// Root returns the library directory.
func (r *FileRepository) Root() string { return r.root }

// Path resolves the file backing (category, filename) without reading it.
func (r *FileRepository) Path(category Category, filename string) (string, error) {
	if !category.Valid() {
		return "", errors.New(errors.ErrCodeValidation, "unknown content category: "+string(category))
	}
	name := strings.TrimSpace(filename)
	if name == "" {
		return "", errors.ErrContentNotFound(string(category), filename)
	}
	if filepath.Ext(name) == "" {
		name += FileExt
	}
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.New(errors.ErrCodeValidation, "content filename escapes the library: "+filename)
	}
	return filepath.Join(r.root, string(category), clean), nil
}

// Load reads and parses one content file.
func (r *FileRepository) Load(ctx context.Context, category Category, filename string) (*Mapping, error) {
	ctx, span := telemetry.StartSpan(ctx, "content.Load",
		telemetry.WithContentAttributes(string(category), filename))
	defer span.End()

	path, err := r.Path(category, filename)
	if err != nil {
		telemetry.SetSpanError(span, err)
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		telemetry.GetMetrics().RecordContentLoad(ctx, string(category), false)
		if os.IsNotExist(err) {
			appErr := errors.ErrContentNotFound(string(category), filename)
			telemetry.SetSpanError(span, appErr)
			return nil, appErr
		}
		telemetry.SetSpanError(span, err)
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to read content file "+path, err)
	}

	m, err := Parse(data)
	if err != nil {
		telemetry.GetMetrics().RecordContentLoad(ctx, string(category), false)
		telemetry.SetSpanError(span, err)
		return nil, errors.Wrap(errors.ErrCodeContentInvalid,
			"failed to parse content file "+string(category)+"/"+filename, err).
			WithDetails(map[string]string{"category": string(category), "filename": filename})
	}

	telemetry.GetMetrics().RecordContentLoad(ctx, string(category), true)
	logger.Debug("Content file loaded",
		zap.String("category", string(category)),
		zap.String("file", filename),
		zap.Int("keys", m.Len()))
	telemetry.SetSpanOK(span)
	return m, nil
}

// List returns the file stems below a category, including sub-directories
// ("sector/office"), in lexical order.
func (r *FileRepository) List(category Category) ([]string, error) {
	dir := filepath.Join(r.root, string(category))
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to list content category "+string(category), err)
	}

	var out []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(p)
		if ext != ".yml" && ext != ".yaml" {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(strings.TrimSuffix(rel, ext)))
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to list content category "+string(category), err)
	}
	return out, nil
}

// Stem normalizes a content filename to the form List returns.
func Stem(filename string) string {
	name := filepath.ToSlash(filepath.Clean(strings.TrimSpace(filename)))
	if ext := filepath.Ext(name); ext == ".yml" || ext == ".yaml" {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

// LoadEntry loads a sector or product file as an Entry.
func LoadEntry(ctx context.Context, repo Repository, category Category, filename string) (*Entry, error) {
	m, err := repo.Load(ctx, category, filename)
	if err != nil {
		return nil, err
	}
	e, err := NewEntry(filename, m)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeContentInvalid, "malformed content file", err).
			WithDetails(map[string]string{"category": string(category), "filename": filename})
	}
	return e, nil
}
