package osm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"github.com/KamilS31/LI-Project/internal/domain/model"
	"github.com/KamilS31/LI-Project/internal/domain/repository"
)

// DefaultOverpassURL 公開Overpassサーバー
const DefaultOverpassURL = "https://overpass-api.de/api/interpreter"

// overpassTimeoutSeconds サーバー側のクエリタイムアウト
const overpassTimeoutSeconds = 180

// 道路ネットワークのフィルター（自動車・歩行者）
const (
	driveFilter = `way["highway"]["area"!~"yes"]["highway"!~"abandoned|bridleway|bus_guideway|construction|corridor|cycleway|elevator|escalator|footway|no|path|pedestrian|planned|platform|proposed|raceway|razed|service|steps|track"]["motor_vehicle"!~"no"]["motorcar"!~"no"]["service"!~"alley|driveway|emergency_access|parking|parking_aisle|private"]`
	walkFilter  = `way["highway"]["area"!~"yes"]["highway"!~"abandoned|bus_guideway|construction|cycleway|motor|no|planned|platform|proposed|raceway|razed"]["foot"!~"no"]["service"!~"private"]`
)

// OverpassClient はOverpass APIを使用したOSM地物取得の実装
type OverpassClient struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
}

// NewOverpassClient は新しいクライアントを生成する
func NewOverpassClient(endpoint, userAgent string, timeout time.Duration) repository.FeatureProvider {
	if endpoint == "" {
		endpoint = DefaultOverpassURL
	}
	if timeout <= 0 {
		timeout = (overpassTimeoutSeconds + 20) * time.Second
	}
	return &OverpassClient{
		endpoint:   endpoint,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// DriveNetwork は自動車が通行できる道路を取得する
func (o *OverpassClient) DriveNetwork(ctx context.Context, bound orb.Bound) ([]*model.OSMFeature, error) {
	return o.fetch(ctx, bound, lineGeometry, driveFilter)
}

// WalkNetwork は歩行者が通行できる道を取得する
func (o *OverpassClient) WalkNetwork(ctx context.Context, bound orb.Bound) ([]*model.OSMFeature, error) {
	return o.fetch(ctx, bound, lineGeometry, walkFilter)
}

// GreenSpaces は公園・森林などの緑地を取得する
func (o *OverpassClient) GreenSpaces(ctx context.Context, bound orb.Bound) ([]*model.OSMFeature, error) {
	return o.fetch(ctx, bound, areaGeometry, tagStatements(model.GreenSpaceTags)...)
}

// ServiceAmenities はamenity / shop / officeタグを持つ地物を取得する
func (o *OverpassClient) ServiceAmenities(ctx context.Context, bound orb.Bound) ([]*model.OSMFeature, error) {
	statements := make([]string, 0, len(model.ServiceAmenityKeys))
	for _, key := range model.ServiceAmenityKeys {
		statements = append(statements, fmt.Sprintf(`nwr["%s"]`, key))
	}
	return o.fetch(ctx, bound, areaGeometry, statements...)
}

// PopulatedPlaces はpopulationタグを持つ地物を取得する
func (o *OverpassClient) PopulatedPlaces(ctx context.Context, bound orb.Bound) ([]*model.OSMFeature, error) {
	return o.fetch(ctx, bound, areaGeometry, fmt.Sprintf(`nwr["%s"]`, model.PopulationKey))
}

// Cycleways は自転車道を取得する（自転車道ファイルがない場合の代替）
func (o *OverpassClient) Cycleways(ctx context.Context, bound orb.Bound) ([]*model.OSMFeature, error) {
	return o.fetch(ctx, bound, lineGeometry,
		`way["highway"="cycleway"]`,
		`way["cycleway"~"^(lane|track)$"]`,
		`way["bicycle"="designated"]`,
	)
}

// tagStatements はキー → 値の候補からOverpassのステートメントを作る
func tagStatements(tags map[string][]string) []string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	// マップの順序に依存しないクエリにする
	slices.Sort(keys)

	var statements []string
	for _, k := range keys {
		statements = append(statements, fmt.Sprintf(`nwr["%s"~"^(%s)$"]`, k, strings.Join(tags[k], "|")))
	}
	return statements
}

// BuildQuery はステートメントを境界ボックスで絞り込むOverpass QLを組み立てる
func BuildQuery(bound orb.Bound, statements ...string) string {
	bbox := strings.Join([]string{
		formatCoord(bound.Min.Lat()),
		formatCoord(bound.Min.Lon()),
		formatCoord(bound.Max.Lat()),
		formatCoord(bound.Max.Lon()),
	}, ",")

	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];(", overpassTimeoutSeconds)
	for _, s := range statements {
		fmt.Fprintf(&b, "%s(%s);", s, bbox)
	}
	b.WriteString(");out geom;")
	return b.String()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (o *OverpassClient) fetch(ctx context.Context, bound orb.Bound, mode geometryMode, statements ...string) ([]*model.OSMFeature, error) {
	query := BuildQuery(bound, statements...)

	form := url.Values{}
	form.Set("data", query)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("リクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if o.userAgent != "" {
		req.Header.Set("User-Agent", o.userAgent)
	}

	start := time.Now()
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Overpass APIリクエストに失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Overpass APIからエラーステータスが返されました: %s", resp.Status)
	}

	var apiResp overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("JSONのパースに失敗: %w", err)
	}
	// タイムアウトやメモリ不足でも途中までの要素と共にremarkが返る
	if apiResp.Remark != "" {
		return nil, fmt.Errorf("Overpass APIエラー: %s", apiResp.Remark)
	}

	features := make([]*model.OSMFeature, 0, len(apiResp.Elements))
	for _, el := range apiResp.Elements {
		g := el.geometry(mode)
		if g == nil {
			continue
		}
		features = append(features, &model.OSMFeature{
			ID:       el.ID,
			Type:     el.Type,
			Tags:     el.Tags,
			Geometry: g,
		})
	}
	log.Printf("🗺️  Overpass: %d要素 → %d地物 (%v)", len(apiResp.Elements), len(features), time.Since(start).Round(time.Millisecond))
	return features, nil
}

// --- Overpass APIのレスポンスをパースするための構造体 ---

type overpassResponse struct {
	Elements []element `json:"elements"`
	Remark   string    `json:"remark,omitempty"`
}

type element struct {
	Type     string            `json:"type"`
	ID       int64             `json:"id"`
	Lat      float64           `json:"lat"`
	Lon      float64           `json:"lon"`
	Tags     map[string]string `json:"tags"`
	Geometry []latLon          `json:"geometry"`
	Members  []member          `json:"members"`
}

type member struct {
	Type     string   `json:"type"`
	Ref      int64    `json:"ref"`
	Role     string   `json:"role"`
	Geometry []latLon `json:"geometry"`
}

type latLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
