package catalog

import (
	"fmt"
	"strings"
)

var languageNames = map[string]string{
	"en": "English",
	"ko": "Korean",
	"ja": "Japanese",
	"zh": "Chinese",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
}

// LanguageName 语言代码转显示名，未知代码原样返回
func LanguageName(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return code
}

// LanguageDirective 渲染输出语言段落
func LanguageDirective(code string) string {
	return fmt.Sprintf("# OUTPUT LANGUAGE\nWrite every narrative, title and summary in %s. Keep JSON keys in English.", LanguageName(code))
}
