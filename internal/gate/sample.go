package gate

import "strings"

// fileClass buckets a diffed file by what happened to it.
type fileClass int

const (
	classNew fileClass = iota
	classModified
	classDeleted
)

// class shares of the body budget. New code carries the most signal for
// scoring; deletions the least.
var classWeights = map[fileClass]int{
	classNew:      60,
	classModified: 30,
	classDeleted:  10,
}

// fileBlock is one file's portion of a unified diff.
type fileBlock struct {
	header string
	body   string
	class  fileClass
}

// BalancedSample bounds a diff to maxChars without head-truncating it.
// Every file header survives; the remaining budget goes 60% to new files,
// 30% to modified files and 10% to deleted files, so a large deletion can
// never crowd the additions out of the sample. Shares of absent classes are
// redistributed over the classes that have content.
func BalancedSample(diff string, maxChars int) string {
	if maxChars <= 0 || len(diff) <= maxChars {
		return diff
	}

	blocks := parseBlocks(diff)
	if len(blocks) == 0 {
		return cutAtLine(diff, maxChars)
	}

	headerTotal := 0
	for _, b := range blocks {
		headerTotal += len(b.header)
	}

	// Headers alone can blow the budget on huge refactors; keep whole
	// headers while they fit.
	if headerTotal >= maxChars {
		var sb strings.Builder
		for _, b := range blocks {
			if sb.Len()+len(b.header) > maxChars {
				break
			}
			sb.WriteString(b.header)
		}
		return sb.String()
	}

	budgets := classBudgets(blocks, maxChars-headerTotal)

	var sb strings.Builder
	for _, b := range blocks {
		sb.WriteString(b.header)
		if b.body == "" {
			continue
		}
		take := budgets[b.class]
		if take <= 0 {
			continue
		}
		if take > len(b.body) {
			take = len(b.body)
		}
		part := cutAtLine(b.body, take)
		sb.WriteString(part)
		if !strings.HasSuffix(part, "\n") {
			sb.WriteString("\n")
		}
		budgets[b.class] -= len(part)
	}
	return sb.String()
}

// classBudgets splits the body budget across the classes present in the
// diff, normalizing the weights so no budget is stranded on an empty class.
func classBudgets(blocks []fileBlock, budget int) map[fileClass]int {
	present := make(map[fileClass]bool)
	for _, b := range blocks {
		if b.body != "" {
			present[b.class] = true
		}
	}
	weightTotal := 0
	for class := range present {
		weightTotal += classWeights[class]
	}
	budgets := make(map[fileClass]int, len(present))
	if weightTotal == 0 {
		return budgets
	}
	for class := range present {
		budgets[class] = budget * classWeights[class] / weightTotal
	}
	return budgets
}

// parseBlocks splits a unified diff into per-file blocks. The header spans
// from the "diff --git" line through the "+++" line; everything after is
// hunk body until the next file starts.
func parseBlocks(diff string) []fileBlock {
	lines := strings.SplitAfter(diff, "\n")
	var blocks []fileBlock
	var cur *fileBlock
	inHeader := false

	for _, line := range lines {
		if strings.HasPrefix(line, "diff --git ") {
			if cur != nil {
				blocks = append(blocks, *cur)
			}
			cur = &fileBlock{class: classModified}
			inHeader = true
		}
		if cur == nil {
			continue
		}
		if inHeader {
			cur.header += line
			switch {
			case strings.HasPrefix(line, "new file mode"):
				cur.class = classNew
			case strings.HasPrefix(line, "deleted file mode"):
				cur.class = classDeleted
			case strings.HasPrefix(line, "--- /dev/null"):
				cur.class = classNew
			case strings.HasPrefix(line, "+++ "):
				if strings.HasPrefix(line, "+++ /dev/null") {
					cur.class = classDeleted
				}
				inHeader = false
			}
			continue
		}
		cur.body += line
	}
	if cur != nil {
		blocks = append(blocks, *cur)
	}
	return blocks
}

// cutAtLine truncates s to at most max bytes, preferring the last full line.
func cutAtLine(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	if i := strings.LastIndexByte(cut, '\n'); i > 0 {
		return cut[:i+1]
	}
	return cut
}
