// Package loader turns snapshot files on disk into domain snapshots.
//
// It is the validation boundary in front of the aggregation engine: files
// are decoded concurrently, malformed ones are rejected with the reason, and
// accepted snapshots are classified by provenance and fingerprinted.
package loader

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"

	"netcensus/internal/codec"
	"netcensus/internal/domain"
)

// Extensions lists the file types picked up when scanning a directory
var Extensions = []string{".json", ".yaml", ".yml", ".xml"}

// Rejection records a file that could not be turned into a snapshot
type Rejection struct {
	Path string
	Err  error
}

func (r Rejection) Error() string {
	return fmt.Sprintf("%s: %v", r.Path, r.Err)
}

// Result is the outcome of one Load call
type Result struct {
	Snapshots []*domain.Snapshot
	Rejected  []Rejection
	Digest    string // fingerprint of every accepted file and its content
}

// Classifier assigns provenance from file names
type Classifier struct {
	def   domain.Provenance
	rules []domain.ProvenanceRule
}

// NewClassifier creates a classifier; the first matching rule wins
func NewClassifier(def domain.Provenance, rules []domain.ProvenanceRule) *Classifier {
	return &Classifier{def: domain.ParseProvenance(string(def)), rules: rules}
}

// Classify returns the provenance for a path
func (c *Classifier) Classify(path string) domain.Provenance {
	name := filepath.Base(path)
	for _, rule := range c.rules {
		if rule.Matches(name) {
			return domain.ParseProvenance(string(rule.Provenance))
		}
	}
	return c.def
}

// Loader reads snapshot files
type Loader struct {
	classifier    *Classifier
	maxConcurrent int
	exclude       []string
	logger        zerolog.Logger
}

// Option configures a Loader
type Option func(*Loader)

// WithClassifier sets the provenance classifier
func WithClassifier(c *Classifier) Option {
	return func(l *Loader) {
		if c != nil {
			l.classifier = c
		}
	}
}

// WithMaxConcurrent bounds the number of files parsed at once
func WithMaxConcurrent(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.maxConcurrent = n
		}
	}
}

// WithExclude skips the given files wherever they turn up, such as the
// inventory a previous run wrote into a scanned directory
func WithExclude(paths ...string) Option {
	return func(l *Loader) {
		l.exclude = append(l.exclude, paths...)
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// New creates a Loader. Without a classifier every file is lower-trust.
func New(opts ...Option) *Loader {
	l := &Loader{
		classifier:    NewClassifier(domain.ProvenanceLowerTrust, nil),
		maxConcurrent: runtime.NumCPU(),
		logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load resolves files and directories and decodes every snapshot found.
// Directories are walked recursively for known extensions in lexical order;
// explicit files keep their argument order. Per-file failures are reported
// in Result.Rejected; only cancellation returns an error.
func (l *Loader) Load(ctx context.Context, paths ...string) (*Result, error) {
	files, rejected := resolve(paths, l.excluded())

	snapshots := make([]*domain.Snapshot, len(files))
	failures := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.maxConcurrent)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			snapshots[i], failures[i] = l.loadFile(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}

	result := &Result{Rejected: rejected}
	for i, path := range files {
		if failures[i] != nil {
			result.Rejected = append(result.Rejected, Rejection{Path: path, Err: failures[i]})
			l.logger.Warn().Str("file", path).Err(failures[i]).Msg("rejected snapshot")
			continue
		}
		snap := snapshots[i]
		result.Snapshots = append(result.Snapshots, snap)
		l.logger.Info().
			Str("file", path).
			Str("provenance", string(snap.Provenance)).
			Int("devices", snap.Devices.Len()).
			Msg("loaded snapshot")
	}
	result.Digest = combinedDigest(result.Snapshots)

	return result, nil
}

// loadFile reads, fingerprints, decodes and classifies one file
func (l *Loader) loadFile(path string) (*domain.Snapshot, error) {
	dec, err := codec.DecoderForPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	snap, err := dec.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}

	sum := blake2b.Sum256(data)
	snap.Source = path
	snap.Digest = hex.EncodeToString(sum[:])
	if declared := snap.Provenance; declared.Known() {
		snap.Provenance = domain.ParseProvenance(strings.ToLower(strings.TrimSpace(string(declared))))
	} else {
		if declared != "" {
			l.logger.Debug().Str("file", path).Str("provenance", string(declared)).Msg("unknown declared provenance, classifying by name")
		}
		snap.Provenance = l.classifier.Classify(path)
	}

	return snap, nil
}

// excluded stats the excluded paths that currently exist
func (l *Loader) excluded() []os.FileInfo {
	var out []os.FileInfo
	for _, p := range l.exclude {
		if info, err := os.Stat(p); err == nil {
			out = append(out, info)
		}
	}
	return out
}

// resolve expands directories and drops duplicate and excluded paths
func resolve(paths []string, exclude []os.FileInfo) ([]string, []Rejection) {
	var files []string
	var rejected []Rejection
	seen := make(map[string]bool)

	add := func(path string) {
		key := filepath.Clean(path)
		if abs, err := filepath.Abs(path); err == nil {
			key = abs
		}
		if seen[key] {
			return
		}
		seen[key] = true
		if len(exclude) > 0 {
			if info, err := os.Stat(path); err == nil {
				for _, ex := range exclude {
					if os.SameFile(info, ex) {
						return
					}
				}
			}
		}
		files = append(files, path)
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			rejected = append(rejected, Rejection{Path: path, Err: err})
			continue
		}
		if !info.IsDir() {
			add(path)
			continue
		}

		var found []string
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if p != path && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if !IsSnapshotFile(p) {
				return nil
			}
			found = append(found, p)
			return nil
		})
		if err != nil {
			rejected = append(rejected, Rejection{Path: path, Err: err})
			continue
		}
		sort.Strings(found)
		for _, p := range found {
			add(p)
		}
	}

	return files, rejected
}

// IsSnapshotFile reports whether a directory scan would pick up path
func IsSnapshotFile(path string) bool {
	return !strings.HasPrefix(filepath.Base(path), ".") && hasKnownExtension(path)
}

func hasKnownExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, known := range Extensions {
		if ext == known {
			return true
		}
	}
	return false
}

// combinedDigest fingerprints the ordered set of accepted snapshots
func combinedDigest(snapshots []*domain.Snapshot) string {
	if len(snapshots) == 0 {
		return ""
	}
	h, _ := blake2b.New256(nil)
	for _, snap := range snapshots {
		fmt.Fprintf(h, "%s\x00%s\x00%s\n", snap.Source, snap.Provenance, snap.Digest)
	}
	return hex.EncodeToString(h.Sum(nil))
}
