package magetasks

import (
	"os"
	"path/filepath"
)

var (
	// ModulePath is the Go module path used for -X linker flags.
	ModulePath = "github.com/dkoosis/dbuild"

	// BinPath is where Build writes the binary.
	BinPath = filepath.Join("bin", "dbuild")

	// MainPackage is the package Build compiles.
	MainPackage = "./cmd/dbuild"

	// ProjectRoot is the directory mage was started in.
	ProjectRoot string
)

// Initialize records the project root and creates the bin directory.
func Initialize() error {
	var err error
	ProjectRoot, err = os.Getwd()
	if err != nil {
		return err
	}
	return os.MkdirAll(filepath.Join(ProjectRoot, filepath.Dir(BinPath)), 0o750)
}
