// Package taxonomy ships the category constants the ranking engine depends
// on: the coarse-to-medium keyword table, the onboarding category subset and
// the minor-keyword extraction rules. The tables are behavioral contract and
// must not be mutated at runtime.
package taxonomy

import (
	"regexp"
	"strings"
)

// Other is the medium classification for titles matching no keyword.
const Other = "その他"

// Categories lists the 13 major categories in canonical order. Keyword scans
// iterate this slice so classification stays deterministic.
var Categories = []string{
	"政治",
	"経済",
	"国際",
	"IT・テクノロジー",
	"スポーツ",
	"エンタメ",
	"科学",
	"社会",
	"地方",
	"ビジネス",
	"生活",
	"環境",
	"文化",
}

// Keywords maps each major category to its medium-level keyword list.
var Keywords = map[string][]string{
	"政治":       {"選挙", "国会", "内閣", "与党", "野党", "外交", "防衛", "憲法", "政策", "行政"},
	"経済":       {"株式", "為替", "金融", "企業", "雇用", "貿易", "景気", "物価", "税制", "投資", "不動産"},
	"国際":       {"米国", "中国", "韓国", "北朝鮮", "ロシア", "EU", "中東", "アジア", "国連", "紛争"},
	"IT・テクノロジー": {"AI", "人工知能", "スマホ", "セキュリティ", "SNS", "半導体", "ロボット", "宇宙", "通信", "ゲーム", "アプリ"},
	"スポーツ":     {"野球", "サッカー", "テニス", "ゴルフ", "バスケ", "陸上", "水泳", "格闘技", "相撲", "競馬", "五輪", "ラグビー"},
	"エンタメ":     {"映画", "音楽", "ドラマ", "アニメ", "芸能", "お笑い", "漫画", "舞台", "アイドル", "バラエティ"},
	"科学":       {"宇宙", "医療", "環境", "気候", "生物", "物理", "化学", "研究", "ノーベル", "発見"},
	"社会":       {"事件", "事故", "裁判", "福祉", "教育", "医療", "災害", "犯罪", "少子化", "高齢化"},
	"地方":       {"観光", "祭り", "特産", "自治体", "再開発", "過疎", "移住", "地域"},
	"ビジネス":     {"起業", "決算", "M&A", "IPO", "マーケティング", "人事", "経営"},
	"生活":       {"健康", "グルメ", "レシピ", "育児", "住まい", "ファッション", "旅行"},
	"環境":       {"気候変動", "脱炭素", "再生可能", "リサイクル", "生態系", "温暖化"},
	"文化":       {"文学", "美術", "歴史", "伝統", "哲学", "宗教", "建築"},
}

// OnboardingCategories is the subset presented during onboarding and used as
// the reference set for missing-category reporting.
var OnboardingCategories = []string{
	"政治",
	"経済",
	"国際",
	"IT・テクノロジー",
	"スポーツ",
	"エンタメ",
	"科学",
	"社会",
	"地方",
}

var (
	// Katakana proper-noun runs of 3+ characters.
	katakanaRe = regexp.MustCompile(`[ァ-ヴー]{3,}`)
	// Text inside 「…」 brackets.
	bracketRe = regexp.MustCompile(`「([^」]+)」`)
)

// commonKeywords are generic terms excluded from minor-keyword extraction.
var commonKeywords = map[string]struct{}{
	"ニュース":    {},
	"テレビ":     {},
	"インター":    {},
	"サービス":    {},
	"システム":    {},
	"プロジェクト":  {},
	"コメント":    {},
	"開発":      {},
	"リリース":    {},
	"アップデート":  {},
	"機能":      {},
	"アプリ":     {},
	"サイト":     {},
	"対応":      {},
}

// IsCommonKeyword reports whether s is on the extraction blocklist.
func IsCommonKeyword(s string) bool {
	_, ok := commonKeywords[s]
	return ok
}

// SplitMajor splits a comma-joined category field into trimmed labels.
// Labels are trimmed but never case-folded; the tags are Japanese.
func SplitMajor(category string) []string {
	if category == "" {
		return nil
	}
	var out []string
	for _, c := range strings.Split(category, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// ClassifyMedium returns the first medium keyword found in the title,
// scanning the article's own categories first and the full table second.
// Titles matching nothing classify as Other.
func ClassifyMedium(title, category string) string {
	for _, cat := range SplitMajor(category) {
		for _, kw := range Keywords[cat] {
			if strings.Contains(title, kw) {
				return kw
			}
		}
	}
	for _, cat := range Categories {
		for _, kw := range Keywords[cat] {
			if strings.Contains(title, kw) {
				return kw
			}
		}
	}
	return Other
}

// ExtractMinorKeywords pulls up to five distinctive keywords out of a title:
// katakana runs of three or more characters plus bracketed 「…」 substrings,
// minus the common-term blocklist.
func ExtractMinorKeywords(title string) []string {
	var keywords []string
	for _, m := range katakanaRe.FindAllString(title, -1) {
		if !IsCommonKeyword(m) {
			keywords = append(keywords, m)
		}
	}
	for _, m := range bracketRe.FindAllStringSubmatch(title, -1) {
		keywords = append(keywords, m[1])
	}
	return dedupe(keywords, 5)
}

// bulletRe strips list markers and numbering out of LLM keyword output.
var bulletRe = regexp.MustCompile(`[\n・\-\*\d+\.\)]+`)

// ParseKeywordList normalizes a comma-separated keyword response from an
// LLM: markers removed, short tokens and blocklisted terms dropped,
// order-preserving dedupe.
func ParseKeywordList(content string) []string {
	content = bulletRe.ReplaceAllString(content, " ")
	var keywords []string
	for _, kw := range strings.Split(content, ",") {
		kw = strings.TrimSpace(kw)
		if kw == "" || len([]rune(kw)) < 2 {
			continue
		}
		if IsCommonKeyword(kw) {
			continue
		}
		if strings.HasPrefix(kw, "キーワード") || strings.HasPrefix(kw, "Keywords") {
			continue
		}
		keywords = append(keywords, kw)
	}
	return dedupe(keywords, 0)
}

// dedupe removes duplicates preserving order; limit 0 means unlimited.
func dedupe(in []string, limit int) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
