// Package safety 对生成的叙述文本与图像提示词做儿童安全检查，并提供确定性的改写。
package safety

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Severity 问题级别，critical 一票否决
type Severity string

const (
	SeverityCritical   Severity = "critical"
	SeverityWarning    Severity = "warning"
	SeveritySuggestion Severity = "suggestion"
)

// PassScore 通过所需的最低分
const PassScore = 70

// Issue 单条安全问题
type Issue struct {
	Type     Severity `json:"type"`
	Category string   `json:"category"`
	Message  string   `json:"message"`
	Context  string   `json:"context,omitempty"`
}

// Result 一次检查的结果
type Result struct {
	Passed      bool     `json:"passed"`
	Score       int      `json:"score"`
	Issues      []Issue  `json:"issues"`
	Suggestions []string `json:"suggestions"`
}

// HasCritical 是否存在 critical 问题
func (r Result) HasCritical() bool {
	for _, is := range r.Issues {
		if is.Type == SeverityCritical {
			return true
		}
	}
	return false
}

// Messages 返回全部问题描述
func (r Result) Messages() []string {
	out := make([]string, 0, len(r.Issues))
	for _, is := range r.Issues {
		out = append(out, is.Message)
	}
	return out
}

type scorer struct {
	score       int
	issues      []Issue
	suggestions []string
}

func newScorer() *scorer { return &scorer{score: 100} }

func (s *scorer) penalize(cost int, issue Issue, suggestion string) {
	s.score -= cost
	s.issues = append(s.issues, issue)
	if suggestion != "" {
		s.suggestions = append(s.suggestions, suggestion)
	}
}

func (s *scorer) result() Result {
	r := Result{Score: clamp(s.score), Issues: s.issues, Suggestions: s.suggestions}
	r.Passed = r.Score >= PassScore && !r.HasCritical()
	return r
}

func clamp(n int) int {
	switch {
	case n < 0:
		return 0
	case n > 100:
		return 100
	default:
		return n
	}
}

// snippet 截取匹配位置前后 20 个字符作为上下文
func snippet(text string, start, end int) string {
	runes := []rune(text)
	rs := utf8.RuneCountInString(text[:start])
	re := rs + utf8.RuneCountInString(text[start:end])
	from := max(0, rs-20)
	to := min(len(runes), re+20)
	return string(runes[from:to])
}

var (
	asciiWord   = regexp.MustCompile(`^[\x00-\x7F]+$`)
	negatedTerm = regexp.MustCompile(`(?i)\b(no|not|without|never)\s+[a-z-]+(\s+(elements|things|imagery))?`)
	spaceRun    = regexp.MustCompile(`\s{2,}`)
	commaRun    = regexp.MustCompile(`(\s*,\s*){2,}`)
)

// keywordPattern 英文关键词按单词边界匹配并覆盖复数与词形变化，其它语言按子串匹配
func keywordPattern(kw string) *regexp.Regexp {
	if !asciiWord.MatchString(kw) {
		return regexp.MustCompile(regexp.QuoteMeta(kw))
	}
	stems := []string{regexp.QuoteMeta(kw)}
	switch {
	case strings.HasSuffix(kw, "fe"):
		stems = append(stems, regexp.QuoteMeta(kw[:len(kw)-2]+"ve"))
	case strings.HasSuffix(kw, "f"):
		stems = append(stems, regexp.QuoteMeta(kw[:len(kw)-1]+"ve"))
	case strings.HasSuffix(kw, "y") && len(kw) > 1 && !strings.ContainsRune("aeiou", rune(kw[len(kw)-2])):
		stems = append(stems, regexp.QuoteMeta(kw[:len(kw)-1]+"ie"))
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(stems, "|") + `)(?:` + inflections(kw) + `)?\b`)
}

// inflections 按词尾选择可接的后缀，避免 war 匹配 wares
func inflections(kw string) string {
	switch {
	case strings.HasSuffix(kw, "e"):
		return "s|d"
	case strings.HasSuffix(kw, "y"):
		return "s|ed|ing|es|d"
	case strings.HasSuffix(kw, "s"), strings.HasSuffix(kw, "x"), strings.HasSuffix(kw, "ch"), strings.HasSuffix(kw, "sh"):
		return "es|ed|ing"
	default:
		return "s|ed|ing"
	}
}

// wordPattern 精确匹配；英文按单词边界
func wordPattern(kw string) *regexp.Regexp {
	if asciiWord.MatchString(kw) {
		return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
	}
	return regexp.MustCompile(regexp.QuoteMeta(kw))
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// tidy 清理删除关键词后留下的多余空白与逗号
func tidy(s string) string {
	s = commaRun.ReplaceAllString(s, ", ")
	s = spaceRun.ReplaceAllString(s, " ")
	return strings.Trim(strings.TrimSpace(s), ",")
}
