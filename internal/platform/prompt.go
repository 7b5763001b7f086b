package platform

import (
	"fmt"
	"strings"
)

const welcomeTemplate = "أهلًا %s! أنا بوت الدعم الخاص بـ %s. اسألني ما تشاء وسأساعدك فورًا 😉"

// greetings are matched after stripping trailing punctuation and
// normalizing the alif+tanwin spelling, so "مرحبا!" and "مرحباً" both hit.
var greetings = map[string]struct{}{
	"مرحبا":       {},
	"أهلا":        {},
	"أهلًا":       {},
	"السلام عليكم": {},
	"هاي":         {},
	"سلام":        {},
}

// IsGreeting reports whether the user text is a bare greeting that should
// get the canned welcome instead of a model call.
func IsGreeting(text string) bool {
	t := strings.Trim(text, ".!؟ ")
	t = strings.ReplaceAll(t, "اً", "ا")
	_, ok := greetings[t]
	return ok
}

// WelcomeMessage renders the canned welcome for a user and company.
func WelcomeMessage(userName, companyName string) string {
	if userName == "" {
		userName = "صديقي"
	}
	if companyName == "" {
		companyName = "الشركة"
	}
	return fmt.Sprintf(welcomeTemplate, userName, companyName)
}

// BuildSystemPrompt renders the assistant persona from the company
// document. Pure function of its input: the same profile always yields
// the same prompt.
func BuildSystemPrompt(company map[string]any) string {
	name := strOr(company, "name", "الشركة")
	city := str(company, "city")
	hours := sub(company, "hours")
	days := strings.Join(strList(hours, "days"), ", ")
	from := str(hours, "from")
	to := str(hours, "to")
	phone := sub(company, "phone")
	cc := strOr(phone, "cc", "+962")
	number := str(phone, "number")
	extra := str(company, "prompt")

	return strings.TrimSpace(fmt.Sprintf(`
أنت مساعد دعم لبق يتحدث العربية الفصحى بنبرة ودودة، مع خفة لطيفة دون مبالغة.
اسم الشركة: %s. المدينة: %s.
ساعات العمل: من %s إلى %s. الأيام: %s.
رقم التواصل (أرسله نصيًا فقط ولا تنطقه بالصوت): %s %s.
التزم بنطاق خدمات الشركة، واقترح حلولًا وعروضًا بشكل مقنع.
إذا خرج السؤال عن النطاق، أعد الحوار بلطف إلى الموضوع الأساسي.
معلومات الشركة/الإرشادات: %s
عند التحية، استخدم اسم الشخص إن توفّر وعرّف بنفسك بلطف.
`, name, city, from, to, days, cc, number, extra))
}

// The company document is schemaless JSON, so field access goes through
// these tolerant helpers.

func str(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func strOr(m map[string]any, key, fallback string) string {
	if v := str(m, key); v != "" {
		return v
	}
	return fallback
}

func sub(m map[string]any, key string) map[string]any {
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return nil
}

func strList(m map[string]any, key string) []string {
	switch v := m[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
