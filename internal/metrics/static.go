package metrics

import (
	"os"
	"path/filepath"
	"strings"
)

var sourceExts = map[string]bool{
	".py": true, ".js": true, ".ts": true, ".tsx": true, ".jsx": true, ".go": true,
}

var skipDirs = map[string]bool{
	"node_modules": true, ".git": true, "vendor": true,
	"__pycache__": true, "dist": true, "build": true, ".venv": true,
}

type staticCounts struct {
	Files        int
	Lines        int
	Functions    int
	Classes      int
	complexities []int
}

// AvgComplexity is the mean cyclomatic complexity per function, or 0 when
// no functions were found.
func (s *staticCounts) AvgComplexity() float64 {
	if len(s.complexities) == 0 {
		return 0
	}
	total := 0
	for _, c := range s.complexities {
		total += c
	}
	return float64(total) / float64(len(s.complexities))
}

func analyzeStatic(dir string) (*staticCounts, error) {
	counts := &staticCounts{}
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if info.IsDir() {
			if skipDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !sourceExts[ext] || strings.HasSuffix(info.Name(), ".d.ts") {
			return nil
		}
		analyzeFile(path, ext, counts)
		return nil
	})
	return counts, err
}

func analyzeFile(path, ext string, counts *staticCounts) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	counts.Files++

	inBlockComment := false
	// index into counts.complexities for the function currently open in
	// this file; -1 before the first declaration
	current := -1

	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if inBlockComment {
			if strings.Contains(trimmed, "*/") {
				inBlockComment = false
			}
			continue
		}
		if ext != ".py" {
			if strings.HasPrefix(trimmed, "/*") {
				if !strings.Contains(trimmed, "*/") {
					inBlockComment = true
				}
				continue
			}
			if strings.HasPrefix(trimmed, "//") {
				continue
			}
		} else if strings.HasPrefix(trimmed, "#") {
			continue
		}
		counts.Lines++

		if isClassDecl(trimmed) {
			counts.Classes++
		}
		if isFunctionDecl(trimmed, ext) {
			counts.Functions++
			counts.complexities = append(counts.complexities, 1)
			current = len(counts.complexities) - 1
			continue
		}
		if current >= 0 {
			counts.complexities[current] += decisionPoints(trimmed)
		}
	}
}

func isClassDecl(line string) bool {
	return strings.HasPrefix(line, "class ") ||
		strings.HasPrefix(line, "export class ") ||
		strings.HasPrefix(line, "export default class ")
}

func isFunctionDecl(line, ext string) bool {
	switch ext {
	case ".py":
		return strings.HasPrefix(line, "def ") || strings.HasPrefix(line, "async def ")
	case ".go":
		return strings.HasPrefix(line, "func ")
	default:
		if strings.Contains(line, "function ") || strings.Contains(line, "function(") {
			return true
		}
		// arrow functions assigned to a binding
		return strings.Contains(line, "=>") &&
			(strings.HasPrefix(line, "const ") || strings.HasPrefix(line, "let ") ||
				strings.HasPrefix(line, "var ") || strings.HasPrefix(line, "export const "))
	}
}

var decisionTokens = []string{
	"if ", "if(", "elif ", "for ", "for(", "while ", "while(",
	"case ", "except", "catch", "&&", "||", " and ", " or ",
}

func decisionPoints(line string) int {
	n := 0
	for _, tok := range decisionTokens {
		n += strings.Count(line, tok)
	}
	return n
}
