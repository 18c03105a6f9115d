package concept

import (
	"strings"

	"github.com/kailas-cloud/refurnish/internal/domain/placement"
)

type words struct {
	none, unknown, furniture, noPreference string
	style, preferUsed, tags, budget       string
	tagSep, currency                      string
}

var wordsByLang = map[placement.Language]words{
	placement.English: {
		none:         "None",
		unknown:      "Unknown",
		furniture:    "Furniture",
		noPreference: "No special preferences",
		style:        "- Style preference: ",
		preferUsed:   "- Prefer second-hand furniture",
		tags:         "- Special requirement tags: ",
		budget:       "- Budget range: ",
		tagSep:       ", ",
		currency:     " CNY",
	},
	placement.Chinese: {
		none:         "无",
		unknown:      "未知",
		furniture:    "家具",
		noPreference: "无特殊偏好",
		style:        "- 风格偏好：",
		preferUsed:   "- 优先推荐二手家具",
		tags:         "- 特殊需求标签：",
		budget:       "- 预算范围：",
		tagSep:       "、",
		currency:     "元",
	},
}

func wordsFor(lang placement.Language) words {
	return wordsByLang[lang.Normalize()]
}

// PreferenceText renders the user's preferences as instruction lines, one per
// stated preference, in the preference language.
func PreferenceText(p placement.Preferences) string {
	w := wordsFor(p.Language())
	var lines []string
	if s := strings.TrimSpace(p.Style()); s != "" {
		lines = append(lines, w.style+s)
	}
	if p.PrefersUsed() {
		lines = append(lines, w.preferUsed)
	}
	if tags := nonBlank(p.FeatureTags()); len(tags) > 0 {
		lines = append(lines, w.tags+strings.Join(tags, w.tagSep))
	}
	if b := p.Budget(); b != nil {
		lines = append(lines, w.budget+b.String()+w.currency)
	}
	if len(lines) == 0 {
		return w.noPreference
	}
	return strings.Join(lines, "\n")
}

func nonBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
