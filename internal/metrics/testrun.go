package metrics

import (
	"fmt"
	"strconv"
	"strings"
)

type testSummary struct {
	Passed int
	Failed int
	Found  bool
}

func (t testSummary) Total() int { return t.Passed + t.Failed }

func (t testSummary) PassRate() float64 {
	if t.Total() == 0 {
		return 0
	}
	return float64(t.Passed) / float64(t.Total()) * 100
}

// parseTestOutput interprets the candidate test runner's output. It
// understands JUnit XML testsuite attributes, go test -v result lines, and
// the summary lines printed by pytest and jest. The last summary line wins
// so per-suite chatter does not double-count.
func parseTestOutput(output string) testSummary {
	if strings.Contains(output, "<testsuite") {
		if s := parseJUnit(output); s.Found {
			return s
		}
	}
	if strings.Contains(output, "--- PASS:") || strings.Contains(output, "--- FAIL:") {
		if s := parseGoTest(output); s.Found {
			return s
		}
	}

	var last testSummary
	for _, line := range strings.Split(output, "\n") {
		if s := parseSummaryLine(strings.TrimSpace(line)); s.Found {
			last = s
		}
	}
	return last
}

// parseSummaryLine scans (count, keyword) word pairs such as "3 passed" or
// "2 failed," in a single line.
func parseSummaryLine(line string) testSummary {
	var s testSummary
	fields := strings.Fields(line)
	for i := 1; i < len(fields); i++ {
		word := strings.Trim(fields[i], ",.;:")
		n, err := strconv.Atoi(strings.Trim(fields[i-1], ",.;:"))
		if err != nil || n < 0 {
			continue
		}
		switch word {
		case "passed", "passing":
			s.Passed = n
			s.Found = true
		case "failed", "failing", "error", "errors":
			s.Failed += n
			s.Found = true
		}
	}
	return s
}

// parseGoTest counts go test -v result lines. Subtest lines are indented
// but count as tests in their own right.
func parseGoTest(output string) testSummary {
	var s testSummary
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "--- PASS:"):
			s.Passed++
			s.Found = true
		case strings.HasPrefix(trimmed, "--- FAIL:"):
			s.Failed++
			s.Found = true
		}
	}
	return s
}

func parseJUnit(output string) testSummary {
	var s testSummary
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "<testsuite") {
			continue
		}
		var tests, failures, errors int
		fmt.Sscanf(xmlAttr(line, "tests"), "%d", &tests)
		fmt.Sscanf(xmlAttr(line, "failures"), "%d", &failures)
		fmt.Sscanf(xmlAttr(line, "errors"), "%d", &errors)
		if tests > 0 {
			failed := failures + errors
			if failed > tests {
				failed = tests
			}
			s.Passed = tests - failed
			s.Failed = failed
			s.Found = true
			return s
		}
	}
	return s
}

func xmlAttr(line, attr string) string {
	key := attr + `="`
	idx := strings.Index(line, key)
	if idx < 0 {
		return ""
	}
	start := idx + len(key)
	end := strings.Index(line[start:], `"`)
	if end < 0 {
		return ""
	}
	return line[start : start+end]
}
