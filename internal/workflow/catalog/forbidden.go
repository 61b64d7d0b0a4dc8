package catalog

import (
	"fmt"
	"regexp"
	"strings"
)

// 年龄段禁用词，同时用于提示词指令与输出检查
var ageForbidden = map[AgeGroup][]string{
	AgeToddler: {
		"spectrum", "wavelength", "particle", "molecule", "atom", "photosynthesis",
		"electromagnetic", "hypothesis", "correlation", "probability", "quantum",
		"frequency", "velocity", "acceleration", "gravity", "scattering", "refraction",
		"reflection", "economy", "democracy", "philosophy", "psychology", "consciousness",
		"evolution", "metabolism", "ecosystem", "infrastructure",
		"therefore", "consequently", "furthermore", "nevertheless", "essentially",
		"fundamentally", "theoretically",
		"die", "death", "danger", "scary", "terrible", "horror", "stupid", "dumb",
		"ugly", "hate", "kill",
		"스펙트럼", "파장", "입자", "분자", "원자", "광합성", "전자기", "중력", "산란", "굴절",
	},
	AgeElementary: {
		"quantum mechanics", "relativity", "thermodynamics", "electromagnetic radiation",
		"wave-particle duality", "mitochondria", "deoxyribonucleic", "entropy",
		"derivative", "integral", "algorithm complexity", "socioeconomic", "geopolitical",
		"existential",
		"die", "death", "kill", "horror", "hate", "stupid",
		"양자역학", "상대성이론", "열역학", "엔트로피",
	},
}

// 主题类别禁用词
var topicForbidden = map[TopicCategory][]string{
	TopicPhysics:    {"easy", "simple", "obviously", "trivial", "just", "boring", "complicated", "confusing"},
	TopicBiology:    {"gross", "disgusting", "weird", "icky", "yucky", "abnormal", "wrong", "broken"},
	TopicEmotions:   {"weak", "bad", "wrong", "stupid", "dumb", "overreacting", "too sensitive", "dramatic"},
	TopicTechnology: {"magic", "impossible", "incomprehensible", "genius-level", "rocket science"},
	TopicNature:     {"dangerous", "scary", "threatening", "boring", "ordinary"},
	TopicGeneral:    {"stupid", "dumb", "idiot", "hate", "ugly"},
}

const forbiddenDirectiveLimit = 20

// ForbiddenWords 返回年龄、主题与通用禁用词的去重并集，保持首次出现顺序
func ForbiddenWords(a AgeGroup, t TopicCategory) []string {
	if t == "" {
		t = TopicGeneral
	}
	seen := make(map[string]struct{})
	var out []string
	for _, list := range [][]string{ageForbidden[a], topicForbidden[t], topicForbidden[TopicGeneral]} {
		for _, w := range list {
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			out = append(out, w)
		}
	}
	return out
}

// ForbiddenWordsDirective 渲染禁用词段落，超过 20 个时截断
func ForbiddenWordsDirective(a AgeGroup, t TopicCategory) string {
	words := ForbiddenWords(a, t)
	shown := words
	suffix := ""
	if len(words) > forbiddenDirectiveLimit {
		shown = words[:forbiddenDirectiveLimit]
		suffix = ", ..."
	}
	return fmt.Sprintf("# FORBIDDEN VOCABULARY\nNever use these words or their direct translations: %s%s",
		strings.Join(shown, ", "), suffix)
}

// ForbiddenCheck 禁用词检查结果
type ForbiddenCheck struct {
	Clean      bool
	FoundWords []string
}

// CheckForbiddenWords 大小写不敏感的子串匹配
func CheckForbiddenWords(text string, a AgeGroup) ForbiddenCheck {
	lower := strings.ToLower(text)
	var found []string
	for _, w := range ageForbidden[a] {
		if strings.Contains(lower, strings.ToLower(w)) {
			found = append(found, w)
		}
	}
	return ForbiddenCheck{Clean: len(found) == 0, FoundWords: found}
}

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// SplitSentences 按 [.!?]+ 切分并丢弃空句
func SplitSentences(text string) []string {
	var out []string
	for _, s := range sentenceSplit.Split(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SentenceCheck 句长检查结果
type SentenceCheck struct {
	Valid  bool
	Issues []string
}

// ValidateSentenceLength 检查句子数与每句词数，每处违规一条 issue
func ValidateSentenceLength(text string, a AgeGroup) SentenceCheck {
	cfg := MustAgeGroupOf(a)
	sentences := SplitSentences(text)

	var issues []string
	if len(sentences) > cfg.MaxSentencesPerPanel {
		issues = append(issues, fmt.Sprintf("too many sentences: %d (max %d)", len(sentences), cfg.MaxSentencesPerPanel))
	}
	for i, s := range sentences {
		if n := len(strings.Fields(s)); n > cfg.MaxWordsPerSentence {
			issues = append(issues, fmt.Sprintf("sentence %d has %d words (max %d)", i+1, n, cfg.MaxWordsPerSentence))
		}
	}
	return SentenceCheck{Valid: len(issues) == 0, Issues: issues}
}
