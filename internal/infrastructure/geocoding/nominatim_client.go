package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// DefaultNominatimURL 公開Nominatimサーバー
const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// NominatimClient はNominatim検索APIを使用したジオコーディングの実装
type NominatimClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewNominatimClient は新しいクライアントを生成する
func NewNominatimClient(baseURL, userAgent string, timeout time.Duration) *NominatimClient {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &NominatimClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GeocodeCenter は都市名から代表点（経度・緯度）を取得する
// 該当なしの場合は (nil, nil) を返す
func (n *NominatimClient) GeocodeCenter(ctx context.Context, query string) (*orb.Point, error) {
	results, err := n.search(ctx, query, false)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("緯度のパースに失敗 (%q): %w", results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("経度のパースに失敗 (%q): %w", results[0].Lon, err)
	}
	return &orb.Point{lon, lat}, nil
}

// GeocodeBoundary は都市名から行政境界ポリゴンを取得する
// 該当なし、または面のジオメトリがない場合は (nil, nil) を返す
func (n *NominatimClient) GeocodeBoundary(ctx context.Context, query string) (orb.MultiPolygon, error) {
	results, err := n.search(ctx, query, true)
	if err != nil {
		return nil, err
	}

	for _, r := range results {
		if r.GeoJSON == nil {
			continue
		}
		switch g := r.GeoJSON.Geometry().(type) {
		case orb.Polygon:
			return orb.MultiPolygon{g}, nil
		case orb.MultiPolygon:
			return g, nil
		}
	}
	return nil, nil
}

func (n *NominatimClient) search(ctx context.Context, query string, withPolygon bool) ([]nominatimPlace, error) {
	// 1. APIリクエストURLを構築
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("limit", "1")
	if withPolygon {
		params.Set("polygon_geojson", "1")
		params.Set("limit", "5")
	}
	reqURL := fmt.Sprintf("%s/search?%s", n.baseURL, params.Encode())

	// 2. HTTPリクエストを作成・実行
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエストの作成に失敗: %w", err)
	}
	if n.userAgent != "" {
		req.Header.Set("User-Agent", n.userAgent)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("APIリクエストに失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("APIからエラーステータスが返されました: %s", resp.Status)
	}

	// 3. JSONレスポンスをパース
	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("JSONのパースに失敗: %w", err)
	}
	return places, nil
}

// --- Nominatim APIのレスポンスをパースするための構造体 ---

type nominatimPlace struct {
	PlaceID     int64             `json:"place_id"`
	DisplayName string            `json:"display_name"`
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	Category    string            `json:"category"`
	Type        string            `json:"type"`
	GeoJSON     *geojson.Geometry `json:"geojson,omitempty"`
}
