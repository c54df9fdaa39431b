// Package manifest produces deterministic file listings of a directory tree,
// usable as a stable fingerprint of drive contents. Ordering matches the bag
// checksum manifests: directory names and file names are sorted independently
// at each level, so the listing and the bag's file inventory agree.
package manifest

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Options controls manifest generation.
type Options struct {
	// DirsOnlyThreshold, when positive, stops the walk at any directory with
	// more entries than the threshold and emits the subdirectory names only.
	// File-level fidelity is lost below such directories, so this must be
	// opted into explicitly; zero always descends.
	DirsOnlyThreshold int
	// Workers bounds the encoding worker pool. Zero means NumCPU-2, minimum 1.
	Workers int
}

// DefaultWorkers sizes the encoding pool, leaving headroom for the rest of
// the process.
func DefaultWorkers() int {
	n := runtime.NumCPU() - 2
	if n < 1 {
		return 1
	}
	return n
}

// Generate walks root and returns a newline-joined list of every file path
// under it, relative to root, with carriage returns and line feeds
// percent-encoded so the result stays one path per line. Two runs over an
// unchanged tree yield byte-identical output.
func Generate(root string, opts Options) (string, error) {
	paths, err := Walk(root, opts)
	if err != nil {
		return "", err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers()
	}

	// Ordering is fixed by the walk; the pool only encodes in place.
	encoded := make([]string, len(paths))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, p := range paths {
		g.Go(func() error {
			encoded[i] = EncodePath(p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	return strings.Join(encoded, "\n"), nil
}

// Walk returns the ordered relative file paths Generate would emit, without
// the newline encoding. The bag wrapper uses it so checksum manifests share
// the listing order.
func Walk(root string, opts Options) ([]string, error) {
	return sortedWalk(root, "", opts.DirsOnlyThreshold)
}

// sortedWalk lists files under dir depth-first, files before subdirectories,
// each group sorted bytewise. rel is the path of dir relative to the walk
// root, using forward slashes.
func sortedWalk(dir, rel string, dirsOnlyThreshold int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var files, dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		} else {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	sort.Strings(dirs)

	if dirsOnlyThreshold > 0 && len(entries) > dirsOnlyThreshold {
		// Too many entries to checksum downstream; emit directory names and
		// go no deeper.
		out := make([]string, 0, len(dirs))
		for _, d := range dirs {
			out = append(out, path.Join(rel, d))
		}
		return out, nil
	}

	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, path.Join(rel, f))
	}
	for _, d := range dirs {
		sub, err := sortedWalk(filepath.Join(dir, d), path.Join(rel, d), dirsOnlyThreshold)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

// EncodePath percent-encodes the bytes that would break a one-path-per-line
// manifest. The same encoding is used in bag checksum manifests.
func EncodePath(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\r':
			out = append(out, '%', '0', 'D')
		case '\n':
			out = append(out, '%', '0', 'A')
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}
