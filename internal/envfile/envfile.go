package envfile

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/yoanbernabeu/sshinvoke/internal/security"
)

var envNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Load reads variables from .env files and KEY=VALUE pairs. Later files
// override earlier ones and pairs override files.
func Load(files []string, pairs []string) (map[string]string, error) {
	vars := make(map[string]string)

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read env file: %w", err)
		}
		parsed, err := godotenv.Unmarshal(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse env file %s: %w", file, err)
		}
		for key, value := range parsed {
			vars[key] = value
		}
	}

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid env %q: expected KEY=VALUE", pair)
		}
		vars[strings.TrimSpace(key)] = value
	}

	for key := range vars {
		if !envNameRegex.MatchString(key) {
			return nil, fmt.Errorf("invalid environment variable name %q", key)
		}
	}

	return vars, nil
}

// ExportPrefix renders vars as a shell prefix to put in front of a command.
// Keys are sorted so the command is stable. An empty map gives "".
func ExportPrefix(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}

	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("export")
	for _, key := range keys {
		sb.WriteString(" ")
		sb.WriteString(key)
		sb.WriteString("=")
		sb.WriteString(security.ShellEscape(vars[key]))
	}
	sb.WriteString(" && ")
	return sb.String()
}
