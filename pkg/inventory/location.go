package inventory

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/width"
)

// DefaultFloors are the floors of the plant that hold zones
// ゾーンを持つフロアの既定値
var DefaultFloors = []string{"2F", "4F", "5F", "6F"}

// DefaultZones are the zone labels of a floor, row by row
// フロア内ゾーンの既定値（行順）
var DefaultZones = []string{"A1", "A2", "A3", "B1", "B2", "B3", "C1", "C2", "C3"}

var specialLocations = map[string]bool{
	LocationConsumed:   true,
	LocationUnassigned: true,
	LocationDisposed:   true,
	LocationOutsourced: true,
	LocationWarehouse:  true,
}

// legacyTokens maps location tokens written by the previous spreadsheet workflow
var legacyTokens = map[string]string{
	"소진":  LocationConsumed,
	"미지정": LocationUnassigned,
	"폐기":  LocationDisposed,
	"외주":  LocationOutsourced,
	"창고":  LocationWarehouse,
}

// legacyFloor converts "4층" to "4F"
func legacyFloor(token string) string {
	if n := strings.TrimSuffix(token, "층"); n != token && n != "" {
		return n + "F"
	}
	return token
}

// SpecialLocations returns the closed set of single-token locations in display order
// 単一トークンの特殊ロケーションを表示順で返す
func SpecialLocations() []string {
	return []string{LocationWarehouse, LocationConsumed, LocationUnassigned, LocationDisposed, LocationOutsourced}
}

// IsSpecialLocation reports whether loc is one of the closed-set locations
func IsSpecialLocation(loc string) bool {
	return specialLocations[strings.TrimSpace(loc)]
}

// LotKey folds a lot number for case-insensitive comparison.
// Full-width input from scanners is narrowed first.
// ロット番号を大文字小文字を区別しない比較用に正規化（全角は半角へ）
func LotKey(lot string) string {
	return cases.Fold().String(width.Narrow.String(strings.TrimSpace(lot)))
}

// SameLot reports whether two lot numbers match case-insensitively
func SameLot(a, b string) bool {
	return LotKey(a) == LotKey(b)
}

// LocationScheme knows the floors and zones used to normalize locations
// ロケーション正規化に使うフロアとゾーンの定義
type LocationScheme struct {
	Floors []string `yaml:"floors" mapstructure:"floors"`
	Zones  []string `yaml:"zones" mapstructure:"zones"`
}

// DefaultLocationScheme returns the plant layout used when none is configured
func DefaultLocationScheme() LocationScheme {
	return LocationScheme{
		Floors: append([]string(nil), DefaultFloors...),
		Zones:  append([]string(nil), DefaultZones...),
	}
}

// IsFloor reports whether token is a configured floor
func (s LocationScheme) IsFloor(token string) bool {
	for _, f := range s.Floors {
		if f == token {
			return true
		}
	}
	return false
}

// IsZone reports whether token is a configured zone label
func (s LocationScheme) IsZone(token string) bool {
	for _, z := range s.Zones {
		if z == token {
			return true
		}
	}
	return false
}

// Normalize maps a stored location into the canonical vocabulary:
// whitespace is trimmed, special tokens pass through, legacy "4F-A1" becomes "4F A1",
// and a bare floor becomes "<floor> unassigned". Korean tokens of the old sheets are translated.
// 保存されたロケーションを正規形に変換
func (s LocationScheme) Normalize(raw string) string {
	loc := strings.TrimSpace(raw)
	if loc == "" {
		return ""
	}
	if t, ok := legacyTokens[loc]; ok {
		loc = t
	}
	if specialLocations[loc] {
		return loc
	}

	if strings.Contains(loc, "-") {
		parts := strings.SplitN(loc, "-", 2)
		floor := strings.TrimSpace(parts[0])
		zone := strings.TrimSpace(parts[1])
		if floor != "" && zone != "" {
			loc = floor + " " + zone
		}
	}

	fields := strings.Fields(loc)
	if len(fields) > 0 {
		fields[0] = legacyFloor(fields[0])
	}
	loc = strings.Join(fields, " ")
	if s.IsFloor(loc) {
		return loc + " " + LocationUnassigned
	}
	return loc
}

// Format builds a location from a floor (or special token) and a zone
// フロア（または特殊トークン）とゾーンからロケーションを組み立てる
func (s LocationScheme) Format(floor, zone string) string {
	floor = strings.TrimSpace(floor)
	zone = strings.TrimSpace(zone)
	if specialLocations[floor] {
		return floor
	}
	if zone == "" {
		return s.Normalize(floor)
	}
	return floor + " " + zone
}

// SplitLocation returns the floor and zone parts of a normalized location.
// Special locations come back as their own floor with an empty zone.
// 正規化済みロケーションをフロアとゾーンに分割
func SplitLocation(loc string) (floor, zone string) {
	loc = strings.TrimSpace(loc)
	if loc == "" || specialLocations[loc] {
		return loc, ""
	}
	fields := strings.Fields(loc)
	if len(fields) == 1 {
		return fields[0], ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}
