package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// HomeEnv overrides the cache root used for fetched fixture corpora.
const HomeEnv = "STIMPL_HOME"

// CacheDir returns $STIMPL_HOME, falling back to ~/.stimpl.
func CacheDir() (string, error) {
	if home := strings.TrimSpace(os.Getenv(HomeEnv)); home != "" {
		return filepath.Abs(home)
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve cache dir: %w", err)
	}
	return filepath.Join(userHome, ".stimpl"), nil
}

// FetchedFixtures describes a corpus checked out by FetchFixtures.
type FetchedFixtures struct {
	Name    string
	Version string
	Commit  string
	Dir     string
}

// FetchFixtures clones a git fixture corpus into
// <cacheDir>/fixtures/<name>/<version>. Checkouts pinned by rev are reused
// without touching the network.
func FetchFixtures(cacheDir, name string, source *FixtureSource) (*FetchedFixtures, error) {
	if cacheDir == "" {
		return nil, errors.New("fixtures: cache directory required")
	}
	if !source.IsGit() {
		return nil, fmt.Errorf("fixtures %q: git URL required", name)
	}
	baseDir := filepath.Join(cacheDir, "fixtures", sanitizePathSegment(name))
	version, commit, err := ensureGitCheckout(baseDir, source.Git, source)
	if err != nil {
		return nil, fmt.Errorf("fixtures %q: %w", name, err)
	}
	versionDir := sanitizePathSegment(version)
	if err := os.WriteFile(currentMarker(baseDir, source), []byte(versionDir+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("fixtures %q: record fetched version: %w", name, err)
	}
	return &FetchedFixtures{
		Name:    name,
		Version: version,
		Commit:  commit,
		Dir:     filepath.Join(baseDir, versionDir),
	}, nil
}

// ResolveFixtureDir returns the local directory for a configured corpus. Git
// corpora must already have been fetched.
func (m *Manifest) ResolveFixtureDir(cacheDir, name string) (string, error) {
	source, ok := m.Fixtures[name]
	if !ok || source == nil {
		return "", fmt.Errorf("fixtures %q: not configured", name)
	}
	if !source.IsGit() {
		return m.ResolvePath(source.Path), nil
	}
	baseDir := filepath.Join(cacheDir, "fixtures", sanitizePathSegment(name))
	if data, err := os.ReadFile(currentMarker(baseDir, source)); err == nil {
		dir := filepath.Join(baseDir, strings.TrimSpace(string(data)))
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, nil
		}
	}
	// Checkouts made without a marker: take the exact pin, else the newest
	// pin_<commit> directory.
	pin := pinSegment(source)
	if _, err := os.Stat(filepath.Join(baseDir, pin)); err == nil {
		return filepath.Join(baseDir, pin), nil
	}
	var newest string
	var newestTime time.Time
	entries, _ := os.ReadDir(baseDir)
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), pin+"_") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest, newestTime = entry.Name(), info.ModTime()
		}
	}
	if newest != "" {
		return filepath.Join(baseDir, newest), nil
	}
	return "", fmt.Errorf("fixtures %q: not fetched (run `stimpl fetch`)", name)
}

func pinSegment(source *FixtureSource) string {
	return sanitizePathSegment(source.Rev + source.Tag + source.Branch)
}

// currentMarker names the file recording the checkout made by the last fetch
// of a pin.
func currentMarker(baseDir string, source *FixtureSource) string {
	return filepath.Join(baseDir, ".current-"+pinSegment(source))
}

func ensureGitCheckout(baseDir, url string, source *FixtureSource) (string, string, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", "", err
	}

	revisions, descriptor, err := gitRevisionsFromSource(source)
	if err != nil {
		return "", "", err
	}

	if explicitRev := strings.TrimSpace(source.Rev); explicitRev != "" {
		existing := filepath.Join(baseDir, sanitizePathSegment(explicitRev))
		if _, err := os.Stat(existing); err == nil {
			return explicitRev, explicitRev, nil
		}
	}

	tmpDir, err := os.MkdirTemp(baseDir, "git-fetch-*")
	if err != nil {
		return "", "", err
	}
	if err := os.RemoveAll(tmpDir); err != nil {
		return "", "", err
	}

	repo, err := git.PlainClone(tmpDir, false, &git.CloneOptions{
		URL: url,
	})
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("git clone %s: %w", url, err)
	}

	var hash *plumbing.Hash
	for _, revision := range revisions {
		if hash, err = repo.ResolveRevision(revision); err == nil {
			break
		}
	}
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("resolve revision %s: %w", revisions[0], err)
	}

	version := gitPinnedVersion(descriptor, hash.String())
	targetDir := filepath.Join(baseDir, sanitizePathSegment(version))
	if _, err := os.Stat(targetDir); err == nil {
		_ = os.RemoveAll(tmpDir)
		return version, hash.String(), nil
	}

	worktree, err := repo.Worktree()
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", err
	}
	if err := worktree.Checkout(&git.CheckoutOptions{
		Hash:  *hash,
		Force: true,
	}); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("git checkout %s: %w", revisions[0], err)
	}

	if err := os.Rename(tmpDir, targetDir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", err
	}
	return version, hash.String(), nil
}

func gitPinnedVersion(descriptor, commit string) string {
	commit = strings.TrimSpace(commit)
	descriptor = strings.TrimSpace(descriptor)
	if commit == "" {
		return descriptor
	}
	if descriptor == "" || descriptor == commit {
		return commit
	}
	return fmt.Sprintf("%s@%s", descriptor, commit)
}

// gitRevisionsFromSource lists candidate revisions in preference order. A fresh
// clone only has a local head for the default branch, so branches also try
// the remote-tracking ref.
func gitRevisionsFromSource(source *FixtureSource) ([]plumbing.Revision, string, error) {
	if rev := strings.TrimSpace(source.Rev); rev != "" {
		return []plumbing.Revision{plumbing.Revision(rev)}, rev, nil
	}
	if tag := strings.TrimSpace(source.Tag); tag != "" {
		return []plumbing.Revision{plumbing.Revision("refs/tags/" + tag)}, tag, nil
	}
	if branch := strings.TrimSpace(source.Branch); branch != "" {
		return []plumbing.Revision{
			plumbing.Revision("refs/heads/" + branch),
			plumbing.Revision("refs/remotes/origin/" + branch),
		}, branch, nil
	}
	return nil, "", fmt.Errorf("git fixtures require rev, tag, or branch")
}

func sanitizePathSegment(segment string) string {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return "head"
	}
	var b strings.Builder
	for _, r := range segment {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
