package run

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// NewRunDir creates outputs/run_<stamp> and returns its path. The UTC stamp
// has second resolution; a suffix disambiguates runs started within the
// same second.
func NewRunDir(outputsRoot string) (string, error) {
	if err := os.MkdirAll(outputsRoot, 0o755); err != nil {
		return "", fmt.Errorf("run: create outputs root: %w", err)
	}
	stamp := time.Now().UTC().Format("20060102_150405")
	dir := filepath.Join(outputsRoot, "run_"+stamp)
	for i := 0; ; i++ {
		candidate := dir
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d", dir, i)
		}
		err := os.Mkdir(candidate, 0o755)
		if err == nil {
			return candidate, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("run: create run dir: %w", err)
		}
	}
}

// UpdateLatest repoints outputs/latest at runDir and records the path in
// latest_run.txt. A stale or broken symlink (or a plain file) is removed
// first. Filesystems without symlink support fall back to copying the
// combined results file into a real latest/ directory.
func UpdateLatest(outputsRoot, runDir string) error {
	latest := filepath.Join(outputsRoot, "latest")

	if fi, err := os.Lstat(latest); err == nil {
		if fi.Mode()&os.ModeSymlink != 0 || fi.Mode().IsRegular() {
			if err := os.Remove(latest); err != nil {
				return fmt.Errorf("run: remove stale latest: %w", err)
			}
		}
	}

	// Relative target keeps the pointer valid when outputs/ moves.
	if err := os.Symlink(filepath.Base(runDir), latest); err != nil {
		if err := os.MkdirAll(latest, 0o755); err != nil {
			return fmt.Errorf("run: create latest dir: %w", err)
		}
		src := filepath.Join(runDir, "results.jsonl")
		dst := filepath.Join(latest, "results.jsonl")
		if err := copyFile(src, dst); err != nil {
			return fmt.Errorf("run: copy results into latest: %w", err)
		}
	}

	marker := filepath.Join(outputsRoot, "latest_run.txt")
	if err := os.WriteFile(marker, []byte(runDir+"\n"), 0o644); err != nil {
		return fmt.Errorf("run: write latest_run.txt: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
