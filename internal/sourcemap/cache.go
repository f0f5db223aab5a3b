// Package sourcemap answers "original position" queries for compiled files
// that have a sibling <file>.map source map.
package sourcemap

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-sourcemap/sourcemap"
	"go.uber.org/zap"
)

// MapSuffix is appended to a compiled file path to locate its source map.
const MapSuffix = ".map"

// Position is a location in an original source file.
type Position struct {
	// Source is an absolute path when the map lists a relative source.
	Source string
	Line   int
	Column int
}

// Cache holds parsed source maps for the duration of one run. Each map is
// read at most once; unreadable or malformed maps are remembered as absent.
type Cache struct {
	logger *zap.Logger

	mu   sync.Mutex
	maps map[string]*sourcemap.Consumer
}

// NewCache returns an empty Cache.
func NewCache(logger *zap.Logger) *Cache {
	return &Cache{
		logger: logger,
		maps:   make(map[string]*sourcemap.Consumer),
	}
}

// OriginalPosition maps a 1-based line and 0-based column of compiledPath to
// its original source. ok is false when there is no usable map or the
// position is not covered.
func (c *Cache) OriginalPosition(compiledPath string, line, column int) (Position, bool) {
	consumer := c.consumer(compiledPath)
	if consumer == nil {
		return Position{}, false
	}

	source, name, origLine, origCol, ok := consumer.Source(line, column)
	if !ok || source == "" {
		return Position{}, false
	}
	// Source falls back to the closest earlier mapping, which may sit on a
	// previous compiled line. That mapping is also the last one up to the end
	// of line-1, so an identical answer there means line itself is unmapped.
	if line > 1 {
		ps, pn, pl, pc, pok := consumer.Source(line-1, math.MaxInt32)
		if pok && ps == source && pn == name && pl == origLine && pc == origCol {
			return Position{}, false
		}
	}

	if !isURL(source) && !filepath.IsAbs(filepath.FromSlash(source)) {
		source = filepath.Join(filepath.Dir(compiledPath), filepath.FromSlash(source))
	}
	return Position{Source: source, Line: origLine, Column: origCol}, true
}

// Len reports how many compiled paths have been looked up.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.maps)
}

func (c *Cache) consumer(compiledPath string) *sourcemap.Consumer {
	key := filepath.Clean(compiledPath)

	c.mu.Lock()
	defer c.mu.Unlock()

	if consumer, seen := c.maps[key]; seen {
		return consumer
	}

	consumer := c.load(key + MapSuffix)
	c.maps[key] = consumer
	return consumer
}

func (c *Cache) load(mapPath string) *sourcemap.Consumer {
	data, err := os.ReadFile(mapPath)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Debug("source map unreadable", zap.String("path", mapPath), zap.Error(err))
		}
		return nil
	}
	consumer, err := sourcemap.Parse("", data)
	if err != nil {
		c.logger.Warn("source map invalid, ignoring", zap.String("path", mapPath), zap.Error(err))
		return nil
	}
	return consumer
}

func isURL(s string) bool {
	return strings.Contains(s, "://")
}
