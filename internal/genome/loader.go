package genome

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
	"go.uber.org/zap"
)

// Loader reads reference sequences from FASTA files.
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a loader that logs nothing.
func NewLoader() *Loader {
	return &Loader{logger: zap.NewNop()}
}

// SetLogger sets the logger for load progress and warnings.
func (l *Loader) SetLogger(logger *zap.Logger) {
	l.logger = logger
}

// FileName is the file name a layout's reference is stored under.
func FileName(layout Layout) string {
	return layout.Accession + ".fasta"
}

// ReadFASTA reads the reference for layout from r. The record whose ID matches
// the layout's accession (with or without version) is used, else the first.
func (l *Loader) ReadFASTA(r io.Reader, layout Layout) (*Descriptor, error) {
	sc := seqio.NewScanner(fasta.NewReader(r, linear.NewSeq("", nil, alphabet.DNA)))

	var chosen, first string
	found := false
	for sc.Next() {
		s, ok := sc.Seq().(*linear.Seq)
		if !ok {
			continue
		}
		letters := alphabet.Letters(s.Seq).String()
		if !found && first == "" {
			first = letters
		}
		if matchesAccession(s.Name(), layout.Accession) {
			chosen, found = letters, true
			break
		}
	}
	if err := sc.Error(); err != nil {
		return nil, fmt.Errorf("read FASTA: %w", err)
	}
	if !found {
		chosen = first
	}
	if chosen == "" {
		return nil, fmt.Errorf("%s: no sequence in FASTA", layout.Virus)
	}

	if layout.Length > 0 && len(chosen) != layout.Length {
		l.logger.Warn("reference length differs from layout",
			zap.String("virus", layout.Virus),
			zap.Int("expected", layout.Length),
			zap.Int("actual", len(chosen)))
	}
	return NewDescriptor(layout, chosen)
}

// LoadFile reads the reference for layout from path. Paths ending in .gz are
// decompressed.
func (l *Loader) LoadFile(path string, layout Layout) (*Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open FASTA file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	d, err := l.ReadFASTA(reader, layout)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	l.logger.Debug("loaded reference",
		zap.String("virus", layout.Virus),
		zap.String("path", path),
		zap.Int("length", d.Len()))
	return d, nil
}

// LoadRegistry loads every virus known to reg. An explicit path in paths takes
// precedence over dir/FileName. A missing file under dir is skipped and the
// virus stays unloaded; a missing explicit path is an error.
func (l *Loader) LoadRegistry(reg *Registry, dir string, paths map[string]string) error {
	for _, virus := range reg.Viruses() {
		layout, err := reg.Layout(virus)
		if err != nil {
			return err
		}

		path, explicit := paths[virus]
		if !explicit || path == "" {
			if dir == "" {
				continue
			}
			path = filepath.Join(dir, FileName(layout))
			explicit = false
		}

		d, err := l.LoadFile(path, layout)
		if err != nil {
			if !explicit && errors.Is(err, fs.ErrNotExist) {
				l.logger.Debug("reference not present", zap.String("virus", virus), zap.String("path", path))
				continue
			}
			return err
		}
		if err := reg.Register(d); err != nil {
			return err
		}
	}
	return nil
}

func matchesAccession(id, accession string) bool {
	if accession == "" {
		return false
	}
	if id == accession {
		return true
	}
	base, _, _ := strings.Cut(accession, ".")
	idBase, _, _ := strings.Cut(id, ".")
	return idBase == base
}
