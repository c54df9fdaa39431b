// Package bagit gives a plain directory a checksum-manifest envelope: a
// bagit.txt marker, per-algorithm manifest files, a bag-info.txt of
// key/value metadata and the payload under data/. Create wraps a fresh
// directory; Update recomputes an existing bag in place so repeated archive
// runs stay idempotent.
package bagit

import (
	"bufio"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/UoA-eResearch/driveoff/internal/manifest"
	"github.com/UoA-eResearch/driveoff/pkg/platform/sentinel"
)

const (
	markerFile  = "bagit.txt"
	bagInfoFile = "bag-info.txt"
	payloadName = "data"

	bagVersion     = "0.97"
	markerContents = "BagIt-Version: " + bagVersion + "\nTag-File-Character-Encoding: UTF-8\n"
)

// DefaultAlgorithms are the checksum algorithms computed over every payload
// file. Both are kept so fixity can still be verified if one is ever retired.
var DefaultAlgorithms = []string{"sha256", "sha512"}

// Bag is a directory in bag form.
type Bag struct {
	Path string
	Info map[string]string
}

// PayloadDir returns the directory holding the bag's payload files.
func (b *Bag) PayloadDir() string {
	return filepath.Join(b.Path, payloadName)
}

// IsBag reports whether dir carries the bag marker and a payload directory.
func IsBag(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, markerFile)); err != nil {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, payloadName))
	return err == nil && info.IsDir()
}

// Create turns a plain directory into a bag: existing contents become the
// payload, checksums are computed and the tag files written. info keys are
// recorded in bag-info.txt. Fails if dir is already bag-shaped.
func Create(dir string, info map[string]string) (*Bag, error) {
	if IsBag(dir) {
		return nil, fmt.Errorf("create bag %s: %w: already a bag", dir, sentinel.ErrInvalidState)
	}
	if err := moveIntoPayload(dir); err != nil {
		return nil, err
	}
	return writeTagFiles(dir, info)
}

// Update recomputes the manifests of an existing bag and merges info into its
// bag-info.txt, with new keys winning on conflict. The payload is left
// untouched. A failed update may leave partially written tag files; callers
// should treat that as requiring inspection, not retry blindly.
func Update(dir string, info map[string]string) (*Bag, error) {
	if !IsBag(dir) {
		return nil, fmt.Errorf("update bag %s: %w: no bag marker or payload", dir, sentinel.ErrInvalidState)
	}
	existing, err := readBagInfo(filepath.Join(dir, bagInfoFile))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("update bag %s: %w", dir, err)
	}
	merged := make(map[string]string, len(existing)+len(info))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range info {
		merged[k] = v
	}
	return writeTagFiles(dir, merged)
}

// Load reads the bag-info metadata of an existing bag.
func Load(dir string) (*Bag, error) {
	if !IsBag(dir) {
		return nil, fmt.Errorf("load bag %s: %w", dir, sentinel.ErrInvalidState)
	}
	info, err := readBagInfo(filepath.Join(dir, bagInfoFile))
	if err != nil {
		return nil, fmt.Errorf("load bag %s: %w", dir, err)
	}
	return &Bag{Path: dir, Info: info}, nil
}

// Validate recomputes payload checksums and compares them against every
// manifest file in the bag.
func Validate(dir string) error {
	if !IsBag(dir) {
		return fmt.Errorf("validate bag %s: %w", dir, sentinel.ErrInvalidState)
	}
	for _, algo := range DefaultAlgorithms {
		manifestPath := filepath.Join(dir, "manifest-"+algo+".txt")
		want, err := readManifest(manifestPath)
		if err != nil {
			return fmt.Errorf("validate bag %s: %w", dir, err)
		}
		got, _, err := payloadChecksums(dir, algo)
		if err != nil {
			return fmt.Errorf("validate bag %s: %w", dir, err)
		}
		if len(want) != len(got) {
			return fmt.Errorf("validate bag %s: manifest-%s lists %d files, payload has %d",
				dir, algo, len(want), len(got))
		}
		for p, sum := range want {
			if got[p] != sum {
				return fmt.Errorf("validate bag %s: checksum mismatch for %s", dir, p)
			}
		}
	}
	return nil
}

// moveIntoPayload relocates every entry of dir under data/. A temporary name
// avoids moving the payload directory into itself.
func moveIntoPayload(dir string) error {
	tmp := filepath.Join(dir, ".bagit-payload-tmp")
	if err := os.Mkdir(tmp, 0o755); err != nil {
		return fmt.Errorf("bag %s: %w", dir, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("bag %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.Name() == filepath.Base(tmp) {
			continue
		}
		src := filepath.Join(dir, entry.Name())
		if err := os.Rename(src, filepath.Join(tmp, entry.Name())); err != nil {
			return fmt.Errorf("bag %s: move %s into payload: %w", dir, entry.Name(), err)
		}
	}
	if err := os.Rename(tmp, filepath.Join(dir, payloadName)); err != nil {
		return fmt.Errorf("bag %s: %w", dir, err)
	}
	return nil
}

// writeTagFiles computes checksums over the payload and writes the marker,
// manifest and bag-info files.
func writeTagFiles(dir string, info map[string]string) (*Bag, error) {
	var octets int64
	var count int
	for _, algo := range DefaultAlgorithms {
		sums, oxum, err := payloadChecksums(dir, algo)
		if err != nil {
			return nil, err
		}
		octets, count = oxum.octets, oxum.count
		if err := writeManifest(filepath.Join(dir, "manifest-"+algo+".txt"), sums); err != nil {
			return nil, err
		}
	}

	if err := os.WriteFile(filepath.Join(dir, markerFile), []byte(markerContents), 0o644); err != nil {
		return nil, fmt.Errorf("bag %s: write marker: %w", dir, err)
	}

	tagged := make(map[string]string, len(info)+2)
	for k, v := range info {
		tagged[k] = v
	}
	tagged["Bagging-Date"] = time.Now().Format("2006-01-02")
	tagged["Payload-Oxum"] = fmt.Sprintf("%d.%d", octets, count)
	if err := writeBagInfo(filepath.Join(dir, bagInfoFile), tagged); err != nil {
		return nil, err
	}
	return &Bag{Path: dir, Info: tagged}, nil
}

type oxum struct {
	octets int64
	count  int
}

// payloadChecksums hashes every payload file in manifest order. Keys are
// bag-relative paths ("data/...") with newline bytes encoded.
func payloadChecksums(dir, algo string) (map[string]string, oxum, error) {
	payload := filepath.Join(dir, payloadName)
	rels, err := manifest.Walk(payload, manifest.Options{})
	if err != nil {
		return nil, oxum{}, err
	}
	sums := make(map[string]string, len(rels))
	var ox oxum
	for _, rel := range rels {
		full := filepath.Join(payload, filepath.FromSlash(rel))
		sum, size, err := checksumFile(full, algo)
		if err != nil {
			return nil, oxum{}, err
		}
		sums[manifest.EncodePath(path.Join(payloadName, rel))] = sum
		ox.octets += size
		ox.count++
	}
	return sums, ox, nil
}

func checksumFile(p, algo string) (string, int64, error) {
	var h hash.Hash
	switch algo {
	case "sha256":
		h = sha256.New()
	case "sha512":
		h = sha512.New()
	default:
		return "", 0, fmt.Errorf("unsupported checksum algorithm %q", algo)
	}
	f, err := os.Open(p)
	if err != nil {
		return "", 0, fmt.Errorf("checksum %s: %w", p, err)
	}
	defer f.Close()
	size, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("checksum %s: %w", p, err)
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}

// writeManifest writes "<hex>  <path>" lines sorted by path.
func writeManifest(p string, sums map[string]string) error {
	paths := make([]string, 0, len(sums))
	for rel := range sums {
		paths = append(paths, rel)
	}
	sort.Strings(paths)

	var sb strings.Builder
	for _, rel := range paths {
		sb.WriteString(sums[rel])
		sb.WriteString("  ")
		sb.WriteString(rel)
		sb.WriteString("\n")
	}
	if err := os.WriteFile(p, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write manifest %s: %w", p, err)
	}
	return nil
}

func readManifest(p string) (map[string]string, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sums := make(map[string]string)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		sum, rel, ok := strings.Cut(line, "  ")
		if !ok {
			return nil, fmt.Errorf("manifest %s: malformed line %q", p, line)
		}
		sums[rel] = sum
	}
	return sums, scanner.Err()
}

// writeBagInfo writes "Key: value" lines sorted by key.
func writeBagInfo(p string, info map[string]string) error {
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(info[k])
		sb.WriteString("\n")
	}
	if err := os.WriteFile(p, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write bag-info %s: %w", p, err)
	}
	return nil
}

func readBagInfo(p string) (map[string]string, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		k, v, ok := strings.Cut(line, ": ")
		if !ok {
			return nil, fmt.Errorf("bag-info %s: malformed line %q", p, line)
		}
		info[k] = v
	}
	return info, scanner.Err()
}
