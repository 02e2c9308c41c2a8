// Package specsync reconciles the local spec directory with the revision the
// grading service says the credential is entitled to. The strategy is
// revision-diff: compare the local spec tree's git object id against the
// upstream marker and, only on mismatch, replace the directory from the
// upstream source archive and commit the result under a bot identity.
package specsync

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/xid"
	"github.com/rs/zerolog/log"

	"github.com/graderunner/graderunner/internal/domain"
	"github.com/graderunner/graderunner/pkg/clients/grades"
)

const (
	botName       = "Grade Runner Bot"
	botEmail      = "bot@firstdraft.com"
	commitMessage = "Update spec files from upstream"
)

// Syncer implements domain.SpecSyncer with the revision-diff strategy.
type Syncer struct {
	git         domain.Git
	client      grades.ClientInterface
	projectRoot string
	specDir     string
}

// SyncerDependencies carries what a Syncer needs. SpecDir is relative to
// ProjectRoot.
type SyncerDependencies struct {
	Git         domain.Git
	Client      grades.ClientInterface
	ProjectRoot string
	SpecDir     string
}

// NewSyncer creates a spec synchronizer.
func NewSyncer(deps SyncerDependencies) *Syncer {
	return &Syncer{
		git:         deps.Git,
		client:      deps.Client,
		projectRoot: deps.ProjectRoot,
		specDir:     deps.SpecDir,
	}
}

// Sync reconciles the local spec directory against the upstream descriptor.
// It reports true only when the directory was replaced and committed. All
// failures inside an attempt degrade to false: the temp archive and
// extraction directory are removed, the pre-sync backup is restored over
// whatever partial state the failure left behind, and the pipeline proceeds
// with the specs it has.
func (s *Syncer) Sync(ctx context.Context, resource *domain.UpstreamResource) bool {
	if !resource.Complete() {
		log.Debug().Msg("Upstream resource incomplete, skipping spec sync")
		return false
	}

	local, err := s.git.TreeSHA(ctx, s.specDir)
	if err != nil {
		log.Debug().Err(err).Msg("Could not read local spec revision")
	}
	if local != "" && local == resource.SpecFolderSHA {
		log.Debug().Str("revision", local).Msg("Local specs already at upstream revision")
		return false
	}

	// Per-attempt namespace so two sequential runs never collide on temp
	// paths.
	id := xid.New().String()
	tmpRoot := filepath.Join(s.projectRoot, "tmp", "specsync")
	specPath := filepath.Join(s.projectRoot, s.specDir)
	backupDir := filepath.Join(tmpRoot, "backup-"+id)
	archivePath := filepath.Join(tmpRoot, "archive-"+id+".tar.gz")
	extractDir := filepath.Join(tmpRoot, "extract-"+id)

	if err := os.MkdirAll(tmpRoot, 0o755); err != nil {
		log.Warn().Err(err).Msg("Could not create sync scratch directory")
		return false
	}

	hadBackup, err := s.replaceSpecs(ctx, resource, specPath, backupDir, archivePath, extractDir)

	os.Remove(archivePath)
	os.RemoveAll(extractDir)

	if err != nil {
		log.Warn().Err(err).Msg("Spec sync failed, restoring previous specs")
		if hadBackup {
			os.RemoveAll(specPath)
			if restoreErr := os.Rename(backupDir, specPath); restoreErr != nil {
				log.Error().Err(restoreErr).Str("backup", backupDir).Msg("Could not restore spec backup")
			}
		}
		os.RemoveAll(backupDir)
		return false
	}

	os.RemoveAll(backupDir)

	if err := s.git.CommitDir(ctx, s.specDir, botName, botEmail, commitMessage); err != nil {
		// The directory already mirrors upstream; an uncommitted change is
		// a recoverable state the next run will see as a mismatch again.
		log.Warn().Err(err).Msg("Could not commit updated specs")
	}

	log.Info().Str("revision", resource.SpecFolderSHA).Msg("Spec directory updated from upstream")
	return true
}

// replaceSpecs performs the destructive part of a sync: move the current
// specs aside, download and extract the upstream archive, and copy its spec
// folder into place. It reports whether a backup was taken so the caller can
// restore on failure.
func (s *Syncer) replaceSpecs(ctx context.Context, resource *domain.UpstreamResource, specPath, backupDir, archivePath, extractDir string) (bool, error) {
	hadBackup := false
	if _, err := os.Stat(specPath); err == nil {
		if err := os.Rename(specPath, backupDir); err != nil {
			return false, fmt.Errorf("failed to back up spec directory: %w", err)
		}
		hadBackup = true
	}
	if err := os.MkdirAll(specPath, 0o755); err != nil {
		return hadBackup, fmt.Errorf("failed to recreate spec directory: %w", err)
	}

	if err := s.client.DownloadArchive(ctx, resource.SourceCodeURL, archivePath); err != nil {
		return hadBackup, err
	}

	root, err := extractArchive(archivePath, extractDir)
	if err != nil {
		return hadBackup, err
	}

	upstreamSpecs := filepath.Join(root, "spec")
	if _, err := os.Stat(upstreamSpecs); err != nil {
		return hadBackup, fmt.Errorf("upstream archive has no spec directory: %w", err)
	}

	if err := copyDir(upstreamSpecs, specPath); err != nil {
		return hadBackup, fmt.Errorf("failed to copy upstream specs: %w", err)
	}

	return hadBackup, nil
}

// extractArchive unpacks a gzipped tarball into dest and returns the path of
// the archive's single top-level directory.
func extractArchive(archivePath, dest string) (string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return "", fmt.Errorf("failed to decompress archive: %w", err)
	}
	defer gz.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("failed to create extraction directory: %w", err)
	}

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read archive entry: %w", err)
		}

		name := filepath.Clean(hdr.Name)
		if name == "." || strings.HasPrefix(name, "..") || filepath.IsAbs(name) {
			continue
		}
		target := filepath.Join(dest, name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return "", fmt.Errorf("failed to create directory %s: %w", name, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return "", fmt.Errorf("failed to create directory for %s: %w", name, err)
			}
			out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(hdr.Mode)&0o777)
			if err != nil {
				return "", fmt.Errorf("failed to create file %s: %w", name, err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return "", fmt.Errorf("failed to extract %s: %w", name, err)
			}
			out.Close()
		default:
			// Symlinks and other entry types are not part of spec archives.
			continue
		}
	}

	return archiveRoot(dest)
}

// archiveRoot identifies the single top-level directory produced by the
// extraction. Source archives wrap the tree in one root folder named after
// the repository and revision.
func archiveRoot(dest string) (string, error) {
	entries, err := os.ReadDir(dest)
	if err != nil {
		return "", fmt.Errorf("failed to read extraction directory: %w", err)
	}

	var root string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if root != "" {
			return "", fmt.Errorf("archive has more than one top-level directory")
		}
		root = filepath.Join(dest, entry.Name())
	}
	if root == "" {
		return "", fmt.Errorf("archive has no top-level directory")
	}
	return root, nil
}

// copyDir copies every entry under src into dst, overwriting by filename.
func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		return copyFile(path, target, info.Mode())
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
