package magetasks

import (
	"fmt"
	"io"
	"os"

	"github.com/dkoosis/dbuild/internal/render"
)

// Out receives all task output.
var Out io.Writer = os.Stdout

var theme = render.DefaultTheme()

// PrintHeader prints a section header.
func PrintHeader(title string) {
	fmt.Fprintln(Out)
	fmt.Fprintln(Out, theme.Primary.Render(theme.Icons.Start+" "+title))
}

// PrintSuccess prints a success line.
func PrintSuccess(msg string) {
	fmt.Fprintln(Out, theme.Success.Render(theme.Icons.Pass+" "+msg))
}

// PrintWarning prints a warning line.
func PrintWarning(msg string) {
	fmt.Fprintln(Out, theme.Warning.Render(theme.Icons.Warn+" "+msg))
}

// PrintError prints an error line.
func PrintError(msg string) {
	fmt.Fprintln(Out, theme.Error.Render(theme.Icons.Fail+" "+msg))
}
