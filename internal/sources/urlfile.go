// Package sources reads crawl targets from external inputs.
package sources

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ilyakm/reviewstalk/internal/crawler"
	"github.com/ilyakm/reviewstalk/internal/types"
)

// ParseTargetsFile reads crawl targets from a text file, one per line:
//
//	<url> [max_reviews] [full|incremental]
//
// Blank lines and lines starting with # are skipped. A bad line is an
// error with its line number so the file can be fixed, not silently
// truncated.
func ParseTargetsFile(path string) ([]crawler.Target, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open targets file: %w", err)
	}
	defer f.Close()

	var targets []crawler.Target
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		target, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNum, err)
		}
		targets = append(targets, target)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}

	return targets, nil
}

func parseLine(line string) (crawler.Target, error) {
	parts := strings.Fields(line)
	target := crawler.Target{URL: parts[0]}

	for _, part := range parts[1:] {
		if n, err := strconv.Atoi(part); err == nil {
			if n < 0 {
				return crawler.Target{}, fmt.Errorf("negative review limit %d", n)
			}
			target.MaxReviews = n
			continue
		}
		mode, err := types.ParseMode(part)
		if err != nil {
			return crawler.Target{}, fmt.Errorf("unrecognized token %q", part)
		}
		target.Mode = mode
	}

	return target, nil
}
