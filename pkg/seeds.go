package frontier

import (
	"bufio"
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/devraulu/refscout/pkg/process"
)

var (
	ErrNoQueries = errors.New("no queries loaded")
)

// LoadQueries reads one query per line for batch runs. Blank lines and lines
// starting with # are skipped.
func LoadQueries(path string) ([]string, error) {
	slog.Info("loading queries", "path", path)
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var queries []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, process.NormalizeQuery(line))
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(queries) == 0 {
		return nil, ErrNoQueries
	}

	slog.Info("loaded queries", "count", len(queries))
	return queries, nil
}
