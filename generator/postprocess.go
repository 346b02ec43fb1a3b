package generator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	fenceOpenRe    = regexp.MustCompile("^```[a-zA-Z]*\\s*\n?")
	fenceCloseRe   = regexp.MustCompile("\n?```\\s*$")
	leadingHeadRe  = regexp.MustCompile(`^\s*\\(?:sub)*section\*?\s*\{[^}]*\}\s*`)
	documentWrapRe = regexp.MustCompile(`(?s)\\begin\{document\}(.*)\\end\{document\}`)
)

// StripFences removes a surrounding markdown code fence, if any.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = fenceOpenRe.ReplaceAllString(s, "")
	s = fenceCloseRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ExtractJSON returns the outermost JSON object in a model response.
func ExtractJSON(raw string) (string, error) {
	s := StripFences(raw)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", errors.New("no JSON object in model output")
	}
	return s[start : end+1], nil
}

// CleanBody 清理模型返回的 LaTeX 正文：去掉代码块、文档包裹和多余的标题行。
func CleanBody(raw string) (string, error) {
	s := StripFences(raw)
	if m := documentWrapRe.FindStringSubmatch(s); len(m) == 2 {
		s = m[1]
	}
	s = leadingHeadRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyResponse
	}
	return s, nil
}

// IsNotFound reports whether a locate answer is the NotFound sentinel.
func IsNotFound(answer string) bool {
	a := strings.Trim(strings.TrimSpace(answer), `"'.`)
	return a == "" || strings.EqualFold(a, NotFound)
}
