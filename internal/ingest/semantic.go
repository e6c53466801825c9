package ingest

import (
	"fmt"
	"strings"
	"text/template"

	"landprice/internal/model"
)

var priceTierWords = map[int]string{
	1: "非常に低い",
	2: "低い",
	3: "平均的な",
	4: "高い",
	5: "非常に高い",
}

var changeTierWords = map[int]string{
	1: "大きく下落している",
	2: "やや下落傾向の",
	3: "横ばいの",
	4: "やや上昇傾向の",
	5: "大きく上昇している",
}

var distanceTierWords = map[int]string{
	1: "駅のすぐ近く",
	2: "駅に近い",
	3: "駅から標準的な距離",
	4: "駅からやや遠い",
	5: "駅から遠い",
}

const semanticTemplate = `東京都{{.Ward}}の{{.Usage}}の地点です。` +
	`{{if .Station}}最寄り駅は{{.Station}}駅で、距離は{{.DistanceToStation}}m（徒歩約{{.TimeToStation}}分、{{distanceWord .DistanceToStationTier}}）です。{{end}}` +
	`地価は1平方メートルあたり{{yen .Price}}円で、東京都内では{{priceWord .PriceTier}}水準（価格帯{{.PriceTier}}/5、下位から{{pct .PricePercentile}}%）です。` +
	`前年からの変動率は{{signed .ChangeRate}}%で、{{changeWord .ChangeRateTier}}地点（変動率帯{{.ChangeRateTier}}/5、下位から{{pct .ChangeRatePercentile}}%）です。` +
	`{{if .IsMaxPrice}}東京都内で最も地価が高い地点です。{{end}}` +
	`{{if .IsMinPrice}}東京都内で最も地価が低い地点です。{{end}}` +
	`{{if .IsTop1PercentPrice}}地価は上位1%に入ります。{{end}}` +
	`{{if .IsBottom1PercentPrice}}地価は下位1%に入ります。{{end}}` +
	`{{if .IsMaxChangeRate}}東京都内で最も地価の上昇率が高い地点です。{{end}}` +
	`{{if .IsMinChangeRate}}東京都内で最も地価の変動率が低い地点です。{{end}}` +
	`{{if .IsTop1PercentChange}}変動率は上位1%に入ります。{{end}}` +
	`{{if .IsBottom1PercentChange}}変動率は下位1%に入ります。{{end}}` +
	`{{with .UsageDetail}}利用状況：{{.}}。{{end}}` +
	`{{with .SurroundingDetail}}周辺の状況：{{.}}。{{end}}`

var semanticTmpl = template.Must(template.New("semantic_text").Funcs(template.FuncMap{
	"priceWord":    func(t int) string { return priceTierWords[t] },
	"changeWord":   func(t int) string { return changeTierWords[t] },
	"distanceWord": func(t int) string { return distanceTierWords[t] },
	"yen":          groupThousands,
	"pct":          func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"signed":       func(v float64) string { return fmt.Sprintf("%+.1f", v) },
}).Parse(semanticTemplate))

// RenderSemanticText describes a record in prose. The text is both the
// embedding source and the grounding context handed to the generator.
func RenderSemanticText(lp model.LandPrice) (string, error) {
	var b strings.Builder
	if err := semanticTmpl.Execute(&b, lp); err != nil {
		return "", fmt.Errorf("failed to render semantic text: %w", err)
	}
	return b.String(), nil
}

func groupThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
