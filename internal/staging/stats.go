package staging

import "strings"

// ParseFileStats walks a unified diff and tallies per-file additions and
// deletions. Each "diff --git" line opens a file record whose path is the
// b/ token; + and - body lines count toward the open record, the +++ and
// --- header lines do not.
func ParseFileStats(diff string) []FileStat {
	var stats []FileStat
	cur := -1
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "diff --git "):
			stats = append(stats, FileStat{Path: pathFromGitHeader(line)})
			cur = len(stats) - 1
		case cur < 0:
			continue
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			continue
		case strings.HasPrefix(line, "+"):
			stats[cur].Additions++
		case strings.HasPrefix(line, "-"):
			stats[cur].Deletions++
		}
	}
	return stats
}

// pathFromGitHeader extracts the post-image path from a
// "diff --git a/old b/new" line.
func pathFromGitHeader(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimPrefix(fields[len(fields)-1], "b/")
}
