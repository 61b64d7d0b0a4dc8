package safety

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"logitoon-ai-api/internal/workflow/catalog"
)

const (
	costVisualKeyword = 25
	costNoChildSafe   = 15
	costNoBright      = 5
	costNoRound       = 5
)

type keywordCategory struct {
	name     string
	keywords []string
	patterns []*regexp.Regexp
}

func newKeywordCategory(name string, keywords ...string) keywordCategory {
	c := keywordCategory{name: name, keywords: keywords, patterns: make([]*regexp.Regexp, len(keywords))}
	for i, kw := range keywords {
		c.patterns[i] = keywordPattern(kw)
	}
	return c
}

// 图像提示词禁用关键词
var visualForbidden = []keywordCategory{
	newKeywordCategory("scary", "scary", "horror", "creepy", "eerie", "sinister", "menacing", "nightmare",
		"terrifying", "frightening", "spooky", "haunted", "무서운", "공포", "끔찍한", "소름끼치는"),
	newKeywordCategory("dark", "dark shadow", "deep shadow", "pitch black", "gloomy", "dim", "darkness",
		"shadowy", "murky", "어두운 그림자", "칠흑같은", "음침한"),
	newKeywordCategory("violent", "blood", "gore", "violent", "aggressive", "attack", "weapon", "sword", "gun",
		"knife", "fighting", "war", "battle", "피", "폭력", "공격", "무기", "전쟁"),
	newKeywordCategory("dangerous", "sharp teeth", "claws", "fangs", "skull", "death", "dead", "killing",
		"monster", "demon", "evil", "날카로운 이빨", "발톱", "두개골", "죽음", "악마"),
	newKeywordCategory("inappropriate", "sexy", "nude", "naked", "revealing", "suggestive", "adult", "mature content"),
}

var (
	childSafeMarkers = []string{"child-friendly", "child friendly"}
	brightMarkers    = []string{"bright", "pastel", "warm", "cheerful", "colorful", "soft colors"}
	roundMarkers     = []string{"round", "soft shapes", "rounded", "chubby", "cute"}
)

// stripNegated 去掉 "no scary elements" 之类的否定短语，避免误判
func stripNegated(prompt string) string {
	return negatedTerm.ReplaceAllString(prompt, " ")
}

// ValidateVisualPrompt 检查单条图像提示词
func ValidateVisualPrompt(prompt string) Result {
	s := newScorer()
	scan := stripNegated(prompt)

	for _, cat := range visualForbidden {
		for i, p := range cat.patterns {
			loc := p.FindStringIndex(scan)
			if loc == nil {
				continue
			}
			s.penalize(costVisualKeyword, Issue{
				Type:     SeverityCritical,
				Category: cat.name,
				Message:  fmt.Sprintf("forbidden visual keyword: %q", cat.keywords[i]),
				Context:  snippet(scan, loc[0], loc[1]),
			}, fmt.Sprintf("remove %q from the prompt", cat.keywords[i]))
		}
	}

	lower := strings.ToLower(prompt)
	if !containsAny(lower, childSafeMarkers) {
		s.penalize(costNoChildSafe, Issue{
			Type:     SeverityWarning,
			Category: "style",
			Message:  "missing child-friendly marker",
		}, "prepend the child-safe style prefix")
	}
	if !containsAny(lower, brightMarkers) {
		s.penalize(costNoBright, Issue{
			Type:     SeveritySuggestion,
			Category: "color",
			Message:  "no bright or pastel color keyword",
		}, "add bright pastel colors")
	}
	if !containsAny(lower, roundMarkers) {
		s.penalize(costNoRound, Issue{
			Type:     SeveritySuggestion,
			Category: "shape",
			Message:  "no soft or rounded shape keyword",
		}, "add round, soft shapes")
	}

	return s.result()
}

// EnsureChildSafePrefix 删除禁用关键词并补上儿童安全前缀；已含 child-friendly 时原样返回
func EnsureChildSafePrefix(prompt string) string {
	if strings.Contains(strings.ToLower(prompt), "child-friendly") {
		return prompt
	}
	cleaned := prompt
	for _, cat := range visualForbidden {
		for _, p := range cat.patterns {
			cleaned = p.ReplaceAllString(cleaned, "")
		}
	}
	cleaned = tidy(cleaned)
	if cleaned == "" {
		return strings.TrimSuffix(catalog.ChildSafePrefix, ",")
	}
	return catalog.ChildSafePrefix + " " + cleaned
}

// OverallResult 故事与画面的综合结论
type OverallResult struct {
	Passed         bool     `json:"passed"`
	Score          int      `json:"score"`
	CriticalIssues []string `json:"criticalIssues"`
}

// ContentReport 整部漫画的安全报告
type ContentReport struct {
	Story   *Result       `json:"story,omitempty"`
	Visual  *Result       `json:"visual,omitempty"`
	Overall OverallResult `json:"overall"`
}

// ValidateContent 同时检查叙述与画面，空字符串表示跳过该项
func ValidateContent(story, visual string, age catalog.AgeGroup) ContentReport {
	var (
		report ContentReport
		scores []int
	)
	report.Overall.CriticalIssues = []string{}

	if story != "" {
		r := ValidateStoryText(story, age)
		report.Story = &r
		scores = append(scores, r.Score)
		report.Overall.CriticalIssues = append(report.Overall.CriticalIssues, criticalMessages("story", r)...)
	}
	if visual != "" {
		r := ValidateVisualPrompt(visual)
		report.Visual = &r
		scores = append(scores, r.Score)
		report.Overall.CriticalIssues = append(report.Overall.CriticalIssues, criticalMessages("visual", r)...)
	}

	report.Overall.Score = 100
	if len(scores) > 0 {
		sum := 0
		for _, sc := range scores {
			sum += sc
		}
		report.Overall.Score = int(math.Round(float64(sum) / float64(len(scores))))
	}
	report.Overall.Passed = len(report.Overall.CriticalIssues) == 0 && report.Overall.Score >= PassScore
	return report
}

func criticalMessages(prefix string, r Result) []string {
	var out []string
	for _, is := range r.Issues {
		if is.Type == SeverityCritical {
			out = append(out, "["+prefix+"] "+is.Message)
		}
	}
	return out
}
