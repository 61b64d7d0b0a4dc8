package safety

import (
	"fmt"
	"regexp"

	"logitoon-ai-api/internal/workflow/catalog"
)

type alternative struct {
	from *regexp.Regexp
	word string
	to   string
}

func alt(word, to string) alternative {
	return alternative{from: wordPattern(word), word: word, to: to}
}

// altRepeat 键的最后一个字符可重复，替换后不会与后续字符重新拼出键
func altRepeat(word, to string) alternative {
	return alternative{from: regexp.MustCompile(regexp.QuoteMeta(word) + `+`), word: word, to: to}
}

// 安全替换表，按顺序应用；替换结果不含任何键，保证幂等
var safeAlternatives = []alternative{
	alt("죽었", "멀리 여행을 떠났"),
	alt("죽음", "긴 여행"),
	alt("무서워", "조금 떨렸지만 용기를 냈"),
	alt("공포", "깜짝 놀람"),
	alt("때렸", "살짝 건드렸"),
	alt("부수", "분해하"),
	alt("싸웠", "경쟁했"),
	alt("못해", "연습하면 할 수 있"),
	alt("실패", "다시 도전할 기회"),
	alt("울지 마", "울어도 괜찮아"),
	alt("약해", "천천히 강해지는 중이"),
	alt("혼자 가", "어른과 함께 가"),
	altRepeat("만져봐", "어른에게 물어보고 만져"),
	alt("died", "went on a long journey"),
	alt("dead", "far away"),
	alt("scary", "surprising"),
	alt("stupid", "silly"),
	alt("dumb", "silly"),
	alt("ugly", "unusual"),
	alt("hate", "don't like"),
	alt("don't cry", "it's okay to cry"),
	alt("you failed", "you can try again"),
	alt("go alone", "go with a grown-up"),
}

// Correction 改写结果
type Correction struct {
	Corrected string   `json:"corrected"`
	Changes   []string `json:"changes"`
}

// AutoCorrectText 用安全表达替换风险词，返回改写后的文本与变更列表
func AutoCorrectText(text string) Correction {
	c := Correction{Corrected: text, Changes: []string{}}
	for _, a := range safeAlternatives {
		if !a.from.MatchString(c.Corrected) {
			continue
		}
		c.Corrected = a.from.ReplaceAllLiteralString(c.Corrected, a.to)
		c.Changes = append(c.Changes, fmt.Sprintf("%q → %q", a.word, a.to))
	}
	return c
}

// Changed 是否发生了替换
func (c Correction) Changed() bool {
	return len(c.Changes) > 0
}

// CorrectAndValidate 检查文本，未通过时改写一次再复检
func CorrectAndValidate(text string, age catalog.AgeGroup) (string, Result, Correction) {
	r := ValidateStoryText(text, age)
	if r.Passed {
		return text, r, Correction{Corrected: text, Changes: []string{}}
	}
	c := AutoCorrectText(text)
	if !c.Changed() {
		return text, r, c
	}
	return c.Corrected, ValidateStoryText(c.Corrected, age), c
}
