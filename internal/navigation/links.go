package navigation

import (
	"fmt"
	"net/url"
	"strconv"

	"recycle.ecomap.kr/internal/models"
)

const (
	kakaoMapHost = "map.kakao.com"
	naverMapHost = "map.naver.com"
)

// Links are the deep links offered for one bin.
type Links struct {
	Roadview        string `json:"roadview"`
	KakaoDirections string `json:"kakao_directions"`
	NaverDirections string `json:"naver_directions"`
}

// ForBin builds the street-level view link and the two walking directions links
// for a bin. Names are percent-encoded, so every link is plain ASCII.
func ForBin(bin models.BinRecord) Links {
	lat := formatCoord(bin.Latitude)
	lng := formatCoord(bin.Longitude)
	name := url.PathEscape(bin.Name)

	return Links{
		Roadview:        fmt.Sprintf("https://%s/link/roadview/%s,%s", kakaoMapHost, lat, lng),
		KakaoDirections: fmt.Sprintf("https://%s/link/to/%s,%s,%s", kakaoMapHost, name, lat, lng),
		NaverDirections: fmt.Sprintf("https://%s/p/directions/-/%s,%s,%s,,/-/walk", naverMapHost, lng, lat, name),
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
