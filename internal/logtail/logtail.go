package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// FileName is the log file the browser writes next to the session file.
const FileName = "quire.log"

// Path returns the log location for the session file at sessionPath.
func Path(sessionPath string) string {
	return filepath.Join(filepath.Dir(sessionPath), FileName)
}

// Read returns the last maxLines lines of the file at path, or every line
// when maxLines is not positive. A missing file reads as empty.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		// Keep memory bounded on long logs.
		if maxLines > 0 && len(lines) >= 2*maxLines {
			lines = append(lines[:0], lines[len(lines)-maxLines:]...)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return lines, nil
}

// stdr lines look like:
//
//	quire 2024/05/01 12:00:00 api "level"=1 "msg"="call" "endpoint"="library.list"
var linePattern = regexp.MustCompile(`^(\S+ )?(\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2}) (.*)$`)

var (
	timeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	debugStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB"))
)

// Colorize highlights one log line for terminal display: the timestamp is
// dimmed, lines carrying an error are red and verbose lines are cyan. Lines
// in any other shape are returned unchanged.
func Colorize(line string) string {
	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return line
	}
	prefix, stamp, rest := m[1], m[2], m[3]
	switch {
	case strings.Contains(rest, `"error"=`):
		rest = errorStyle.Render(rest)
	case strings.Contains(rest, `"level"=`):
		rest = debugStyle.Render(rest)
	}
	return prefix + timeStyle.Render(stamp) + " " + rest
}
