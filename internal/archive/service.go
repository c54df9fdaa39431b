// Package archive assembles offboarded Research Drives into archive-ready
// packages: a file manifest, an entity graph describing the drive's projects
// and people, a checksummed bag around the drive contents, a flat directory
// of the package's manifest files, and optionally a single archive file.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/UoA-eResearch/driveoff/internal/bagit"
	"github.com/UoA-eResearch/driveoff/internal/crate"
	"github.com/UoA-eResearch/driveoff/internal/manifest"
	"github.com/UoA-eResearch/driveoff/internal/models"
	"github.com/UoA-eResearch/driveoff/internal/platform/metrics"
	"github.com/UoA-eResearch/driveoff/internal/store"
	dErrors "github.com/UoA-eResearch/driveoff/pkg/domainerrors"
	"github.com/UoA-eResearch/driveoff/pkg/platform/sentinel"
)

// manifestsSuffix names the flat directory of package manifests written next
// to the bag, e.g. restst000000001-testing_manifests.
const manifestsSuffix = "_manifests"

// Service runs the package assembly pipeline for one drive at a time.
type Service struct {
	store        store.Store
	log          *slog.Logger
	metrics      *metrics.Metrics
	manifestOpts manifest.Options
}

func NewService(st store.Store, log *slog.Logger, m *metrics.Metrics, opts manifest.Options) *Service {
	return &Service{store: st, log: log, metrics: m, manifestOpts: opts}
}

// BuildPackage assembles the archive package for the named drive. vaultDir is
// the drive's content directory; archiveDir receives the flat manifests
// directory. The steps run in order and the first failure aborts the build:
// generate and store the file manifest, build and serialize the entity graph,
// create or update the bag, then copy the package's manifest files next to it.
// Re-running on an already-bagged vault updates the bag in place.
func (s *Service) BuildPackage(ctx context.Context, driveName, vaultDir, archiveDir string) error {
	start := time.Now()
	err := s.buildPackage(ctx, driveName, vaultDir, archiveDir)
	if err != nil {
		s.metrics.IncrementBuildFailures()
		return err
	}
	s.metrics.ObserveBuild(time.Since(start).Seconds())
	s.log.InfoContext(ctx, "archive package built",
		"drive", driveName, "duration", time.Since(start))
	return nil
}

func (s *Service) buildPackage(ctx context.Context, driveName, vaultDir, archiveDir string) error {
	drive, projects, err := s.loadDrive(ctx, driveName)
	if err != nil {
		return err
	}
	submission := drive.Submission
	if submission == nil || !submission.IsCompleted {
		return dErrors.New(dErrors.CodePrecondition,
			fmt.Sprintf("drive %q has no completed offboarding submission", driveName))
	}

	if err := s.generateManifest(ctx, drive, vaultDir); err != nil {
		return err
	}

	builder := crate.NewBuilder(crate.New())
	for _, project := range projects {
		if _, err := builder.AddProject(project, submission); err != nil {
			return err
		}
	}

	// Metadata goes inside the payload so it is covered by the bag manifests.
	metadataDir := vaultDir
	if bagit.IsBag(vaultDir) {
		bag, err := bagit.Load(vaultDir)
		if err != nil {
			return err
		}
		metadataDir = bag.PayloadDir()
	}
	if err := builder.Crate().WriteMetadata(metadataDir); err != nil {
		return fmt.Errorf("write crate metadata: %w", err)
	}

	info := map[string]string{
		"External-Identifier": driveName,
		"Project-Titles":      projectTitles(projects),
	}
	if bagit.IsBag(vaultDir) {
		if _, err := bagit.Update(vaultDir, info); err != nil {
			return fmt.Errorf("update bag: %w", err)
		}
	} else {
		if _, err := bagit.Create(vaultDir, info); err != nil {
			return fmt.Errorf("create bag: %w", err)
		}
	}

	return copyPackageManifests(vaultDir, filepath.Join(archiveDir, driveName+manifestsSuffix))
}

// ArchivePackage wraps the bagged drive directory into a single archive file
// under archiveDir, named after the drive. The drive must have been through
// BuildPackage first.
func (s *Service) ArchivePackage(ctx context.Context, driveName, vaultDir, archiveDir string, format crate.Format) (string, error) {
	if _, _, err := s.loadDrive(ctx, driveName); err != nil {
		return "", err
	}
	if !bagit.IsBag(vaultDir) {
		return "", dErrors.New(dErrors.CodePrecondition,
			fmt.Sprintf("drive %q has not been packaged yet", driveName))
	}

	out, err := crate.Archive(vaultDir, archiveDir, format)
	if err != nil {
		return "", fmt.Errorf("archive drive %q: %w", driveName, err)
	}
	if fi, statErr := os.Stat(out); statErr == nil {
		s.metrics.AddArchiveBytes(fi.Size())
	}
	s.log.InfoContext(ctx, "archive file written", "drive", driveName, "path", out)
	return out, nil
}

func (s *Service) loadDrive(ctx context.Context, driveName string) (*models.ResearchDriveService, []*models.Project, error) {
	drive, err := s.store.GetDriveByName(ctx, driveName)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.Wrap(dErrors.CodeNotFound,
				fmt.Sprintf("drive %q is not registered", driveName), err)
		}
		return nil, nil, err
	}
	projects, err := s.store.ListProjectsForDrive(ctx, drive.ID)
	if err != nil {
		return nil, nil, err
	}
	if len(projects) == 0 {
		return nil, nil, dErrors.New(dErrors.CodePrecondition,
			fmt.Sprintf("drive %q has no linked projects", driveName))
	}
	return drive, projects, nil
}

// generateManifest lists the drive contents in canonical order and stores the
// listing against the drive record. The listing is taken from the payload
// when the vault is already a bag, so re-runs do not pick up tag files.
func (s *Service) generateManifest(ctx context.Context, drive *models.ResearchDriveService, vaultDir string) error {
	root := vaultDir
	if bagit.IsBag(vaultDir) {
		bag, err := bagit.Load(vaultDir)
		if err != nil {
			return err
		}
		root = bag.PayloadDir()
	}
	content, err := manifest.Generate(root, s.manifestOpts)
	if err != nil {
		return fmt.Errorf("generate manifest for drive %q: %w", drive.Name, err)
	}
	if content != "" {
		s.metrics.AddManifestFiles(strings.Count(content, "\n") + 1)
	}
	return s.store.SaveManifest(ctx, &models.Manifest{DriveID: drive.ID, Content: content})
}

func projectTitles(projects []*models.Project) string {
	titles := make([]string, 0, len(projects))
	for _, p := range projects {
		titles = append(titles, p.Title)
	}
	return strings.Join(titles, ", ")
}

// copyPackageManifests copies the package's manifest files flat into destDir:
// the bag tag files from the bag root and the crate metadata from the
// payload. destDir is recreated on every run. It is an error for the bag to
// yield no manifest files at all, since their presence is the completion
// signal for the whole package.
func copyPackageManifests(bagDir, destDir string) error {
	var sources []string

	entries, err := os.ReadDir(bagDir)
	if err != nil {
		return fmt.Errorf("read bag dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		isManifest, err := filepath.Match("manifest-*.txt", name)
		if err != nil {
			return err
		}
		isTagManifest, err := filepath.Match("tagmanifest-*.txt", name)
		if err != nil {
			return err
		}
		if isManifest || isTagManifest || name == "bag-info.txt" || name == "bagit.txt" {
			sources = append(sources, filepath.Join(bagDir, name))
		}
	}

	metadataPath := filepath.Join(bagDir, "data", crate.MetadataFilename)
	if _, err := os.Stat(metadataPath); err == nil {
		sources = append(sources, metadataPath)
	}

	if len(sources) == 0 {
		return dErrors.New(dErrors.CodePrecondition,
			fmt.Sprintf("no manifest files found in %s", bagDir))
	}

	if err := os.RemoveAll(destDir); err != nil {
		return fmt.Errorf("clear manifests dir: %w", err)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create manifests dir: %w", err)
	}
	for _, src := range sources {
		if err := copyFile(src, filepath.Join(destDir, filepath.Base(src))); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}
