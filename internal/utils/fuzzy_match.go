package utils

import (
	"strings"
	"unicode"
)

// municipalitySuffixes are stripped from the end of a ward or city name
var municipalitySuffixes = []string{"市", "区", "町", "村"}

// romanizedWards maps romanized municipality names to the form stored in the
// corpus (kanji without the trailing suffix)
var romanizedWards = map[string]string{
	// 23 special wards
	"chiyoda":    "千代田",
	"chuo":       "中央",
	"minato":     "港",
	"shinjuku":   "新宿",
	"bunkyo":     "文京",
	"taito":      "台東",
	"sumida":     "墨田",
	"koto":       "江東",
	"shinagawa":  "品川",
	"meguro":     "目黒",
	"ota":        "大田",
	"setagaya":   "世田谷",
	"shibuya":    "渋谷",
	"nakano":     "中野",
	"suginami":   "杉並",
	"toshima":    "豊島",
	"kita":       "北",
	"arakawa":    "荒川",
	"itabashi":   "板橋",
	"nerima":     "練馬",
	"adachi":     "足立",
	"katsushika": "葛飾",
	"edogawa":    "江戸川",
	// Tama area cities
	"hachioji":        "八王子",
	"tachikawa":       "立川",
	"musashino":       "武蔵野",
	"mitaka":          "三鷹",
	"ome":             "青梅",
	"fuchu":           "府中",
	"akishima":        "昭島",
	"chofu":           "調布",
	"machida":         "町田",
	"koganei":         "小金井",
	"kodaira":         "小平",
	"hino":            "日野",
	"higashimurayama": "東村山",
	"kokubunji":       "国分寺",
	"kunitachi":       "国立",
	"fussa":           "福生",
	"komae":           "狛江",
	"higashiyamato":   "東大和",
	"kiyose":          "清瀬",
	"higashikurume":   "東久留米",
	"musashimurayama": "武蔵村山",
	"tama":            "多摩",
	"inagi":           "稲城",
	"hamura":          "羽村",
	"akiruno":         "あきる野",
	"nishitokyo":      "西東京",
	// Nishitama and island towns and villages
	"mizuho":     "瑞穂",
	"hinode":     "日の出",
	"hinohara":   "檜原",
	"okutama":    "奥多摩",
	"oshima":     "大島",
	"niijima":    "新島",
	"kozushima":  "神津島",
	"miyake":     "三宅",
	"mikurajima": "御蔵島",
	"hachijo":    "八丈",
	"aogashima":  "青ヶ島",
	"ogasawara":  "小笠原",
}

// tokyoMunicipalities holds the stored form of every Tokyo municipality.
// 利島 has no romanized entry since "toshima" already names 豊島.
var tokyoMunicipalities = func() map[string]struct{} {
	m := map[string]struct{}{"利島": {}}
	for _, kanji := range romanizedWards {
		m[kanji] = struct{}{}
	}
	return m
}()

// romanizedSuffixes are dropped before looking a romanized name up
var romanizedSuffixes = []string{" city", " ward", "-ku", " ku", "-shi", " shi", "ku", "shi"}

// StripMunicipalitySuffix removes one trailing 市/区/町/村, keeping the name
// intact when nothing would remain
func StripMunicipalitySuffix(name string) string {
	name = strings.TrimSpace(name)
	for _, suffix := range municipalitySuffixes {
		if trimmed := strings.TrimSuffix(name, suffix); trimmed != name && trimmed != "" {
			return trimmed
		}
	}
	return name
}

// IsTokyoMunicipality reports whether name is the stored form of a Tokyo
// ward, city, town or village
func IsTokyoMunicipality(name string) bool {
	_, ok := tokyoMunicipalities[name]
	return ok
}

// CanonicalWard returns the stored form of a ward name. Romanized names of
// Tokyo municipalities ("Shibuya", "Shibuya-ku", "Hachioji City") map to kanji
// and kanji names lose their 市/区/町/村 suffix. A name that is already a
// known municipality (羽村, 町田) is returned unchanged, and unknown names keep
// their suffix, so CanonicalWard(CanonicalWard(x)) == CanonicalWard(x).
func CanonicalWard(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	if isASCII(name) {
		key := strings.ToLower(name)
		if kanji, ok := romanizedWards[key]; ok {
			return kanji
		}
		for _, suffix := range romanizedSuffixes {
			trimmed := strings.TrimSpace(strings.TrimSuffix(key, suffix))
			if trimmed == key || trimmed == "" {
				continue
			}
			if kanji, ok := romanizedWards[trimmed]; ok {
				return kanji
			}
		}
		return name
	}

	if IsTokyoMunicipality(name) {
		return name
	}
	if stripped := StripMunicipalitySuffix(name); IsTokyoMunicipality(stripped) {
		return stripped
	}
	return name
}

// CanonicalStation drops a trailing 駅 or " Station" from a station name
func CanonicalStation(name string) string {
	name = strings.TrimSpace(name)
	if trimmed := strings.TrimSuffix(name, "駅"); trimmed != "" {
		name = trimmed
	}
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, " station") && len(name) > len(" station") {
		name = strings.TrimSpace(name[:len(name)-len(" station")])
	}
	return name
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}
