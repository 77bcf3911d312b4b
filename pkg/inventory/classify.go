package inventory

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Product lines and warehouse categories written by the classifier
// 分類器が付与する製品ラインと倉庫区分
const (
	ProductLineNeedleShot     = "needleshot"
	ProductLineFacial         = "facial"
	ProductLineConsigned      = "consigned"
	ProductLineConsignedPaid  = "consigned(paid)"
	ProductLineConsignedFree  = "consigned(free)"
	WarehouseCategoryInHouse  = "in-house"
	WarehouseCategoryStore    = "warehouse"
	WarehouseCategoryDefect   = "defect"
	WarehouseCategoryExternal = "outsourced"
)

// ClassificationRules holds the code sets used to derive product lines and warehouse categories
// 製品ライン・倉庫区分の判定に使うコード集合
type ClassificationRules struct {
	NeedleShotCodes   []string `yaml:"needleshot_codes"`
	FacialCodes       []string `yaml:"facial_codes"`
	InHouseWarehouses []string `yaml:"inhouse_warehouses"`
	StorageWarehouses []string `yaml:"storage_warehouses"`
	DefectWarehouses  []string `yaml:"defect_warehouses"`
	PaidTradeTypes    []string `yaml:"paid_trade_types"`
	FreeTradeTypes    []string `yaml:"free_trade_types"`
}

// DefaultClassificationRules returns the plant's built-in code sets
// 組み込みのコード集合を返す
func DefaultClassificationRules() ClassificationRules {
	return ClassificationRules{
		NeedleShotCodes: []string{
			"3VTCLOS-010", "3VTCLOS-006", "3VTCLOS-007", "3VTCLOS-008",
			"3VTCLOS-011", "3VTCLOS-013", "3VTCLOS-047",
		},
		FacialCodes: []string{
			"3VTCLOS-023", "3VTCLOS-024", "3VTCLOS-060", "3VTCLOS-061",
			"3VTCLOS-062", "3VTCLOS-063", "3VTCLOS-064", "3VTCLOS-065",
		},
		InHouseWarehouses: []string{"WC301", "WC501", "WC502", "WC503", "WC504"},
		StorageWarehouses: []string{"WH001", "WH102", "WH201", "WH701", "WH301", "WH601", "WH401", "WH506"},
		DefectWarehouses:  []string{"WH202", "WH302"},
		PaidTradeTypes:    []string{"paid", "유상"},
		FreeTradeTypes:    []string{"free", "무상"},
	}
}

// LoadClassificationRules decodes rules from YAML. Sets absent from the document keep their defaults.
// YAMLから分類ルールを読み込む（未指定の項目は既定値のまま）
func LoadClassificationRules(r io.Reader) (ClassificationRules, error) {
	rules := DefaultClassificationRules()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&rules); err != nil && err != io.EOF {
		return DefaultClassificationRules(), fmt.Errorf("分類ルールの読み込みに失敗しました: %w", err)
	}
	return rules, nil
}

// ClassifyProductLine derives the product line of an in-house item code
// 自社品目コードから製品ラインを判定
func (r ClassificationRules) ClassifyProductLine(itemCode string) string {
	code := strings.TrimSpace(itemCode)
	if code == "" {
		return ""
	}
	if contains(r.NeedleShotCodes, code) {
		return ProductLineNeedleShot
	}
	if contains(r.FacialCodes, code) {
		return ProductLineFacial
	}
	return ""
}

// TradeTypeLine derives the product line of a consigned receipt from its trade type
// 支給品の有償・無償区分から製品ラインを判定
func (r ClassificationRules) TradeTypeLine(tradeType string) string {
	t := strings.TrimSpace(tradeType)
	switch {
	case t != "" && containsFold(r.PaidTradeTypes, t):
		return ProductLineConsignedPaid
	case t != "" && containsFold(r.FreeTradeTypes, t):
		return ProductLineConsignedFree
	default:
		return ProductLineConsigned
	}
}

// WarehouseCategory maps a warehouse/workshop code to its category
// 倉庫・作業場コードを大分類に変換
func (r ClassificationRules) WarehouseCategory(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	switch {
	case c == "":
		return WarehouseCategoryExternal
	case contains(r.InHouseWarehouses, c):
		return WarehouseCategoryInHouse
	case contains(r.StorageWarehouses, c):
		return WarehouseCategoryStore
	case contains(r.DefectWarehouses, c):
		return WarehouseCategoryDefect
	default:
		return WarehouseCategoryExternal
	}
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsFold(set []string, v string) bool {
	for _, s := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
