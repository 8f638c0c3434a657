package warehouse

// Unit model: a material's stock quantity lives in its base unit (bottle,
// kg). A packaging unit (carton of 40 bottles) is a stock-entry convenience
// only and is never what Quantity is stored in.
// 単位モデル：資材の在庫数量は基本単位（bottle、kgなど）で保持する。梱包単位
// （40本入りカートンなど）は入庫入力の便宜のためだけに存在し、Quantityが
// 梱包単位で保存されることはない

// PackagedQuantity converts a package count into base units
// 梱包数を基本単位数へ換算
func PackagedQuantity(packages, unitsPerPackage float64) float64 {
	return packages * unitsPerPackage
}

// HasPackaging reports whether the material carries packaging metadata
// 資材が梱包情報を持つかどうかを返す
func (m *Material) HasPackaging() bool {
	return m.PackagingUnit != "" && m.UnitsPerPackage > 0
}

// SetPackagedQuantity sets the material's stock from a package count. It
// fails when the material has no packaging configured.
// 梱包数から在庫数量を設定する。梱包情報が未設定の場合は失敗する
func (m *Material) SetPackagedQuantity(packages float64) error {
	if !m.HasPackaging() {
		return ErrPackagingNotConfigured
	}
	if packages < 0 {
		return NewValidationError("packages", "梱包数は0以上である必要があります", formatFloat(packages))
	}
	m.Quantity = PackagedQuantity(packages, m.UnitsPerPackage)
	return nil
}

// Packages returns the current stock expressed in packaging units, for
// display only. Zero when no packaging is configured.
// 現在庫を梱包単位で返す（表示用）。梱包情報がない場合は0
func (m *Material) Packages() float64 {
	if !m.HasPackaging() {
		return 0
	}
	return m.Quantity / m.UnitsPerPackage
}
