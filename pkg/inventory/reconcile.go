package inventory

import "strings"

// EnsureLot makes sure a referenced lot has drum rows in the ledger.
// A lot that already has a row (exact match on the stored value) is left untouched, so the first
// reconciliation wins. Otherwise drums are generated from the total quantity; a quantity that yields
// no drums leaves the ledger unchanged. The returned slice holds the rows that were appended.
// 参照されたロットのドラム行を台帳に用意する（先勝ち・数量0なら何もしない）
func EnsureLot(ledger Ledger, spec LotSpec, defaultLocation string) (Ledger, []DrumRecord) {
	if ledger.HasLot(spec.Lot) {
		return ledger, nil
	}

	drums := GenerateDrums(spec.TotalQuantity)
	if len(drums) == 0 {
		return ledger, nil
	}

	status := strings.TrimSpace(spec.InitialStatus)
	if status == "" {
		status = StatusAwaitingProduction
	}
	location := strings.TrimSpace(defaultLocation)
	if location == "" {
		location = LocationUnassigned
	}

	added := make([]DrumRecord, 0, len(drums))
	for _, d := range drums {
		added = append(added, DrumRecord{
			ItemCode:    spec.ItemCode,
			ItemName:    spec.ItemName,
			Lot:         spec.Lot,
			ProductLine: spec.ProductLine,
			MfgDate:     spec.MfgDate,
			Status:      status,
			DrumNumber:  d.Number,
			QuantityKg:  d.Quantity,
			Location:    location,
		})
	}

	out := make(Ledger, 0, len(ledger)+len(added))
	out = append(out, ledger...)
	out = append(out, added...)
	return out, added
}

// LotSpecFromOrder converts an order/receipt lookup into reconciliation input
// 作業・入荷の照会結果をロット作成入力に変換
func LotSpecFromOrder(order OrderRecord, initialStatus string) LotSpec {
	spec := LotSpec{
		Lot:           strings.TrimSpace(order.Lot),
		ItemCode:      strings.TrimSpace(order.ItemCode),
		ItemName:      strings.TrimSpace(order.ItemName),
		ProductLine:   order.ProductLine,
		MfgDate:       strings.TrimSpace(order.Date),
		InitialStatus: initialStatus,
	}
	if order.Quantity != nil {
		spec.TotalQuantity = *order.Quantity
	}
	return spec
}
