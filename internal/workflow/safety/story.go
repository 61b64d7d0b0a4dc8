package safety

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"logitoon-ai-api/internal/workflow/catalog"
)

const (
	costCriticalText = 20
	costSentences    = 10
	costLongSentence = 5
	costOnomatopoeia = 5
	costPositive     = 3
)

type patternCategory struct {
	name     string
	patterns []*regexp.Regexp
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// 叙述文本的禁止模式，按类别有序
var forbiddenPatterns = []patternCategory{
	{"scary", compileAll(`죽[었으음는]`, `사망`, `피가?\s*(나|흘)`, `무서[워운]`, `끔찍`, `공포`, `악몽`, `괴물`, `귀신`, `유령`, `악마`, `지옥`,
		`(?i)\b(died|dead|deaths?|scary|horrors?|nightmares?|ghosts?|monsters?)\b`)},
	{"violence", compileAll(`때리[고는며]`, `때렸`, `맞[았으]`, `부수[어었]`, `파괴`, `폭력`, `싸우[고는며]`, `공격`, `총`, `칼[로을이]`, `무기`,
		`(?i)\b(hits?|hitting|punch(es|ed|ing)?|kill(s|ed|ing)?|fights?|fighting|guns?|knife|knives|weapons?)\b`)},
	{"insults", compileAll(`바보`, `멍청`, `못생기`, `못났`, `찐따`, `병신`, `씹`, `개[새시]`,
		`(?i)\b(stupid|dumb|idiots?|ugly)\b`)},
	{"negativeEmotions", compileAll(`울지\s*마`, `약해`, `못\s*해`, `실패`, `잘못했`, `나빠`,
		`(?i)\b(don't cry|you failed|too weak)\b`)},
	{"dangerous", compileAll(`따라\s*해\s*봐`, `만지[면어]`, `먹어\s*봐`, `뛰어\s*내려`, `혼자\s*가`,
		`(?i)\b(try this at home|touch it|jump off|go alone)\b`)},
}

var (
	onomatopoeia = regexp.MustCompile(`(?i)[ㅋㅎ]{2,}|!{2,}|우와|와아|쏴|팡|뻥|쿵|짠|반짝|깡충|데굴|삐빅|뿅|\b(whoosh|pop|splash|boom|zoom|ding|yay|wow|swish|plop)\b|ぴか|わあ|ふわ`)
	positive     = regexp.MustCompile(`(?i)좋아|사랑|행복|기쁘|신나|재밌|즐거|따뜻|예쁘|멋지|대단|잘\s*했|\b(love|happy|fun|great|wonderful|amazing|warm|cozy|smile|yay)\b|すごい|たのしい|うれしい`)
)

// ValidateStoryText 检查单段叙述文本
func ValidateStoryText(text string, age catalog.AgeGroup) Result {
	s := newScorer()

	for _, cat := range forbiddenPatterns {
		for _, p := range cat.patterns {
			loc := p.FindStringIndex(text)
			if loc == nil {
				continue
			}
			s.penalize(costCriticalText, Issue{
				Type:     SeverityCritical,
				Category: cat.name,
				Message:  fmt.Sprintf("forbidden expression: %q", text[loc[0]:loc[1]]),
				Context:  snippet(text, loc[0], loc[1]),
			}, "")
		}
	}

	cfg, err := catalog.AgeGroupOf(age)
	if err != nil {
		cfg = catalog.MustAgeGroupOf(catalog.AgeElementary)
	}
	sentences := catalog.SplitSentences(text)
	if len(sentences) > cfg.MaxSentencesPerPanel {
		s.penalize(costSentences, Issue{
			Type:     SeverityWarning,
			Category: "length",
			Message:  fmt.Sprintf("too many sentences: %d (max %d)", len(sentences), cfg.MaxSentencesPerPanel),
		}, fmt.Sprintf("reduce to %d sentence(s)", cfg.MaxSentencesPerPanel))
	}
	for i, sentence := range sentences {
		if n := len(strings.Fields(sentence)); n > cfg.MaxWordsPerSentence {
			s.penalize(costLongSentence, Issue{
				Type:     SeverityWarning,
				Category: "length",
				Message:  fmt.Sprintf("sentence %d has too many words: %d (max %d)", i+1, n, cfg.MaxWordsPerSentence),
			}, fmt.Sprintf("shorten sentence %d", i+1))
		}
	}

	if age == catalog.AgeToddler && !onomatopoeia.MatchString(text) {
		s.penalize(costOnomatopoeia, Issue{
			Type:     SeveritySuggestion,
			Category: "engagement",
			Message:  "toddler text works best with a sound word",
		}, "add a sound word such as whoosh, pop or 우와")
	}

	if utf8.RuneCountInString(text) > 20 && !positive.MatchString(text) {
		s.penalize(costPositive, Issue{
			Type:     SeveritySuggestion,
			Category: "tone",
			Message:  "no positive expression found",
		}, "add a warm, positive expression")
	}

	return s.result()
}
