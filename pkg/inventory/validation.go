package inventory

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
)

var referencePattern = regexp.MustCompile(`^[A-Za-z0-9_./-]+$`)

// ValidateLotNumber ロット番号の形式をバリデーション
func ValidateLotNumber(lot string) error {
	if strings.TrimSpace(lot) == "" {
		return NewValidationError("lot", "ロット番号が空です", lot)
	}
	if len(lot) > 100 {
		return NewValidationError("lot", "ロット番号が長すぎます", lot)
	}
	if !IsPrintable(lot) {
		return NewValidationError("lot", "ロット番号に制御文字が含まれています", lot)
	}
	return nil
}

// ValidateReference 作業番号・入荷番号の形式をバリデーション
func ValidateReference(reference string) error {
	ref := strings.TrimSpace(reference)
	if ref == "" {
		return NewValidationError("reference", "参照番号が空です", reference)
	}
	if len(ref) > 100 {
		return NewValidationError("reference", "参照番号が長すぎます", reference)
	}
	if !referencePattern.MatchString(ref) {
		return NewValidationError("reference", "参照番号に無効な文字が含まれています", reference)
	}
	return nil
}

// ValidateSourceKind 参照元種別をバリデーション
func ValidateSourceKind(kind SourceKind) error {
	switch kind {
	case SourceInHouse, SourceConsigned:
		return nil
	}
	return NewValidationError("kind", "無効な参照元種別です", string(kind))
}

// ValidateQuantity 数量をバリデーション
func ValidateQuantity(quantity float64) error {
	if math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return NewValidationError("quantity", "数量が数値ではありません", fmt.Sprintf("%g", quantity))
	}
	if quantity < 0 {
		return NewValidationError("quantity", "負の数量は許可されていません", fmt.Sprintf("%g", quantity))
	}
	return nil
}

// ValidateDestination 移動先ロケーションをバリデーション
// Special locations, or "<floor> <zone>" with a configured floor and zone.
func ValidateDestination(location string, scheme LocationScheme) error {
	loc := strings.TrimSpace(location)
	if loc == "" {
		return NewValidationError("destination", "移動先が指定されていません", location)
	}
	if IsSpecialLocation(loc) {
		return nil
	}
	floor, zone := SplitLocation(loc)
	if !scheme.IsFloor(floor) {
		return NewValidationError("destination", "無効なフロアです", location)
	}
	if zone != LocationUnassigned && !scheme.IsZone(zone) {
		return NewValidationError("destination", "無効なゾーンです", location)
	}
	return nil
}

// ValidateStatus ステータスをバリデーション（開集合のため長さと文字のみ）
func ValidateStatus(status string) error {
	if len(status) > 50 {
		return NewValidationError("status", "ステータスが長すぎます", status)
	}
	if !IsPrintable(status) {
		return NewValidationError("status", "ステータスに制御文字が含まれています", status)
	}
	return nil
}

// ValidateMoveRequest 移動要求をバリデーション
func ValidateMoveRequest(req MoveRequest, scheme LocationScheme) error {
	if err := ValidateLotNumber(req.Lot); err != nil {
		return err
	}
	for _, n := range req.DrumNumbers {
		if n <= 0 {
			return NewValidationError("drum_numbers", "ドラム番号は1以上である必要があります", fmt.Sprintf("%d", n))
		}
	}
	for n, q := range req.NewQuantities {
		if err := ValidateQuantity(q); err != nil {
			return NewValidationError(fmt.Sprintf("new_quantities[%d]", n), err.(*ValidationError).Message, fmt.Sprintf("%g", q))
		}
	}
	if err := ValidateDestination(req.Destination, scheme); err != nil {
		return err
	}
	return ValidateStatus(req.StatusOverride)
}

// IsPrintable 文字列に制御文字が含まれないかをチェック
func IsPrintable(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}
