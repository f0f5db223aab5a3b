package toolchain

import (
	"regexp"
	"strings"
)

// Placeholder tokens recognised inside config values and the key each one reads.
const (
	tokenResourcesPath = "${bootstrap.resourcespath}"
	tokenJDK           = "${launcher.jdk}"
	tokenBuildID       = "${build.editor_sha1}"

	keyResourcesPath = "resourcespath"
	keyVersion       = "version"
	keyBuildID       = "editor_sha1"
	keyJDK           = "jdk"
	keyJava          = "java"
	keyJar           = "jar"
)

var tokenKeys = []struct{ token, key string }{
	{tokenResourcesPath, keyResourcesPath},
	{tokenJDK, keyJDK},
	{tokenBuildID, keyBuildID},
}

var separator = regexp.MustCompile(`\s*=\s*`)

// parseConfig reads newline-delimited "key = value" pairs. A line must split
// into exactly two parts; anything else (section headers, values holding '=')
// is dropped.
func parseConfig(data string) map[string]string {
	cfg := make(map[string]string)
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSuffix(line, "\r")
		parts := separator.Split(line, -1)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if key == "" {
			continue
		}
		cfg[key] = strings.TrimSpace(parts[1])
	}
	return cfg
}

// substitute replaces the known placeholders in value with the literal values
// in vars. Replacement is a single pass; substituted text is never rescanned.
// The returned string is the missing key when a referenced value is absent.
func substitute(value string, vars map[string]string) (string, string) {
	var pairs []string
	for _, tk := range tokenKeys {
		if !strings.Contains(value, tk.token) {
			continue
		}
		v, ok := vars[tk.key]
		if !ok || v == "" {
			return "", tk.key
		}
		pairs = append(pairs, tk.token, v)
	}
	if len(pairs) == 0 {
		return value, ""
	}
	return strings.NewReplacer(pairs...).Replace(value), ""
}
