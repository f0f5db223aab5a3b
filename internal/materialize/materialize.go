// Package materialize extracts the engine runtime from the toolchain archive
// into a project's build output directory before a run.
package materialize

import (
	"archive/zip"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dkoosis/dbuild/internal/build"
	"github.com/dkoosis/dbuild/internal/compose"
	"github.com/dkoosis/dbuild/internal/toolchain"
)

// ErrMemberNotFound is returned when the archive lacks a required runtime file.
var ErrMemberNotFound = errors.New("runtime member not found in archive")

// members lists the files a host needs next to the compiled project; the
// first entry is the engine executable.
var members = map[build.Platform][]string{
	build.PlatformWindows: {"dmengine.exe", "OpenAL32.dll", "wrap_oal.dll"},
	build.PlatformMacOS:   {"dmengine"},
	build.PlatformLinux:   {"dmengine"},
}

// Members returns the runtime files needed on platform, primary binary first.
func Members(platform build.Platform) []string {
	return members[platform]
}

// Materializer places runtime binaries next to the compiled project.
type Materializer struct {
	logger *zap.Logger
	goos   string
}

// New returns a Materializer for the given host operating system.
func New(logger *zap.Logger, goos string) *Materializer {
	return &Materializer{logger: logger, goos: goos}
}

// Ensure extracts the host's runtime members into <projectDir>/build/default
// unless the engine binary is already present.
func (m *Materializer) Ensure(env *toolchain.Environment, projectDir string) error {
	platform, err := compose.ResolvePlatform(build.PlatformCurrent, m.goos)
	if err != nil {
		return err
	}
	names := Members(platform)
	if len(names) == 0 {
		return errors.Newf("no runtime members known for %s", platform)
	}
	triple, _ := compose.Triple(platform)

	outDir := compose.OutputDir(projectDir)
	primary := filepath.Join(outDir, names[0])
	if _, err := os.Stat(primary); err == nil {
		m.logger.Debug("runtime already present", zap.String("path", primary))
		return nil
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errors.Wrap(err, "create build output directory")
	}
	scratch := filepath.Join(outDir, ".extract-"+uuid.NewString())
	defer os.RemoveAll(scratch)

	m.logger.Info("extracting runtime",
		zap.String("archive", env.ArchivePath),
		zap.String("triple", triple),
		zap.Strings("members", names))

	extracted, err := extract(env.ArchivePath, triple, names, scratch)
	if err != nil {
		return err
	}
	for i, name := range names {
		if err := copyFile(extracted[i], filepath.Join(outDir, name)); err != nil {
			return err
		}
	}
	if err := os.Chmod(primary, 0o755); err != nil {
		return errors.Wrapf(err, "mark %s executable", primary)
	}
	return nil
}

// extract writes each <triple>/bin/<name> member of the archive under scratch
// and returns the extracted paths in the order of names. Entries may carry a
// leading directory prefix.
func extract(archivePath, triple string, names []string, scratch string) ([]string, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, errors.Wrapf(err, "open archive %s", archivePath)
	}
	defer zr.Close()

	wanted := make(map[string]int, len(names))
	for i, name := range names {
		wanted[path.Join(triple, "bin", name)] = i
	}

	out := make([]string, len(names))
	for _, f := range zr.File {
		idx, ok := matchMember(f.Name, wanted)
		if !ok || out[idx] != "" {
			continue
		}
		dest := filepath.Join(scratch, filepath.FromSlash(path.Join(triple, "bin", names[idx])))
		if err := writeMember(f, dest); err != nil {
			return nil, err
		}
		out[idx] = dest
	}

	for i, p := range out {
		if p == "" {
			return nil, errors.Wrapf(ErrMemberNotFound, "%s/bin/%s", triple, names[i])
		}
	}
	return out, nil
}

func matchMember(name string, wanted map[string]int) (int, bool) {
	for rel, idx := range wanted {
		if name == rel || strings.HasSuffix(name, "/"+rel) {
			return idx, true
		}
	}
	return 0, false
}

func writeMember(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.Wrap(err, "create scratch directory")
	}
	rc, err := f.Open()
	if err != nil {
		return errors.Wrapf(err, "open %s", f.Name)
	}
	defer rc.Close()

	w, err := os.Create(dest)
	if err != nil {
		return errors.Wrapf(err, "create %s", dest)
	}
	if _, err := io.Copy(w, rc); err != nil {
		w.Close()
		return errors.Wrapf(err, "extract %s", f.Name)
	}
	return w.Close()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "open %s", src)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrapf(err, "create %s", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "copy to %s", dst)
	}
	return out.Close()
}
