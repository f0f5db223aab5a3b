package diag

import (
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Pattern names with built-in handling.
const (
	PatternBuild = "defold-build"
	PatternRun   = "defold-run"
)

// ErrInvalidPattern marks a pattern whose expression does not compile.
var ErrInvalidPattern = errors.New("invalid diagnostic pattern")

// Pattern describes how to pull a diagnostic out of one output line. Group
// indexes refer to capture groups of Regexp; zero means "not captured".
type Pattern struct {
	Name     string `yaml:"name" toml:"name"`
	Regexp   string `yaml:"regexp" toml:"regexp"`
	Severity int    `yaml:"severity" toml:"severity"`
	File     int    `yaml:"file" toml:"file"`
	Line     int    `yaml:"line" toml:"line"`
	Message  int    `yaml:"message" toml:"message"`
}

// DefaultPatterns matches bob build output and engine log output.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{
			Name:     PatternRun,
			Regexp:   `^(ERROR|WARNING|INFO):(\w+): (.+?):(\d+): (.*)$`,
			Severity: 1, File: 3, Line: 4, Message: 5,
		},
		{
			Name:     PatternBuild,
			Regexp:   `^(ERROR|WARNING|INFO):?\s+(.+?):(\d+):?\s*(.*)$`,
			Severity: 1, File: 2, Line: 3, Message: 4,
		},
	}
}

type compiledPattern struct {
	Pattern
	re *regexp.Regexp
}

// compilePatterns keeps the patterns that compile, in order, and logs each
// failure once.
func compilePatterns(logger *zap.Logger, patterns []Pattern) []compiledPattern {
	out := make([]compiledPattern, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p.Regexp)
		if err != nil {
			logger.Warn("skipping diagnostic pattern",
				zap.String("pattern", p.Name),
				zap.Error(errors.Mark(errors.Wrapf(err, "pattern %q", p.Name), ErrInvalidPattern)))
			continue
		}
		out = append(out, compiledPattern{Pattern: p, re: re})
	}
	return out
}

func group(m []string, idx int) string {
	if idx <= 0 || idx >= len(m) {
		return ""
	}
	return strings.TrimSpace(m[idx])
}
