package warehouse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateID 実体IDの形式をバリデーション
func ValidateID(field, id string) error {
	if id == "" {
		return NewValidationError(field, "IDが空です", id)
	}
	if len(id) > 255 {
		return NewValidationError(field, "IDが長すぎます", id)
	}
	// 英数字、ハイフン、アンダースコアのみ許可
	if !idPattern.MatchString(id) {
		return NewValidationError(field, "IDに無効な文字が含まれています", id)
	}
	return nil
}

// ValidateName 名称をバリデーション
func ValidateName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return NewValidationError(field, "名称が空です", name)
	}
	if len(name) > 500 {
		return NewValidationError(field, "名称が長すぎます", name)
	}
	return nil
}

// ValidateWarehouseType 倉庫種別をバリデーション
func ValidateWarehouseType(t WarehouseType) error {
	switch t {
	case WarehouseTypeMain, WarehouseTypeBranch:
		return nil
	}
	return NewValidationError("type", "無効な倉庫種別です", string(t))
}

// ValidateSection セクションをバリデーション
func ValidateSection(s Section) error {
	switch s {
	case SectionCoffee, SectionRestaurant, SectionLaundry, SectionRooms:
		return nil
	}
	return NewValidationError("section", "無効なセクションです", string(s))
}

// ValidateQuantity 数量をバリデーション
func ValidateQuantity(field string, quantity float64, allowNegative bool) error {
	if !allowNegative && quantity < 0 {
		return NewValidationError(field, "負の数量は許可されていません", formatFloat(quantity))
	}
	if quantity < -999999999 || quantity > 999999999 {
		return NewValidationError(field, "数量が有効範囲を超えています", formatFloat(quantity))
	}
	return nil
}

// ValidateWarehouse 倉庫全体をバリデーション
func ValidateWarehouse(w *Warehouse) error {
	if w == nil {
		return NewValidationError("warehouse", "倉庫が指定されていません", "nil")
	}
	if err := ValidateID("warehouse_id", w.ID); err != nil {
		return err
	}
	if err := ValidateName("name", w.Name); err != nil {
		return err
	}
	if err := ValidateWarehouseType(w.Type); err != nil {
		return err
	}
	return nil
}

// ValidateMaterial 資材全体をバリデーション
func ValidateMaterial(m *Material) error {
	if m == nil {
		return NewValidationError("material", "資材が指定されていません", "nil")
	}
	if err := ValidateID("material_id", m.ID); err != nil {
		return err
	}
	if err := ValidateName("name", m.Name); err != nil {
		return err
	}
	if strings.TrimSpace(m.Unit) == "" {
		return NewValidationError("unit", "基本単位が空です", m.Unit)
	}
	if err := ValidateQuantity("quantity", m.Quantity, false); err != nil {
		return err
	}
	if err := ValidateQuantity("min_quantity", m.MinQuantity, false); err != nil {
		return err
	}
	// 梱包単位はペアでのみ有効
	if m.PackagingUnit != "" && m.UnitsPerPackage <= 0 {
		return NewValidationError("units_per_package", "梱包あたりの単位数は正の値である必要があります", formatFloat(m.UnitsPerPackage))
	}
	if m.PackagingUnit == "" && m.UnitsPerPackage != 0 {
		return NewValidationError("packaging_unit", "梱包単位名が指定されていません", m.PackagingUnit)
	}
	return nil
}

// ValidateProduct 商品全体をバリデーション
func ValidateProduct(p *Product) error {
	if p == nil {
		return NewValidationError("product", "商品が指定されていません", "nil")
	}
	if err := ValidateID("product_id", p.ID); err != nil {
		return err
	}
	if err := ValidateName("name", p.Name); err != nil {
		return err
	}
	if err := ValidateSection(p.Section); err != nil {
		return err
	}
	if p.Price < 0 {
		return NewValidationError("price", "価格は0以上である必要があります", formatFloat(p.Price))
	}
	if len(p.Materials) == 0 {
		return NewValidationError("materials", "レシピが空です", "[]")
	}
	seen := make(map[string]bool, len(p.Materials))
	for i, line := range p.Materials {
		if err := ValidateID("materials.material_id", line.MaterialID); err != nil {
			return err
		}
		if line.QuantityUsed <= 0 {
			return NewValidationError("materials.quantity_used", "消費量は正の値である必要があります", formatFloat(line.QuantityUsed))
		}
		if seen[line.MaterialID] {
			return NewValidationError("materials.material_id", "レシピ内で資材IDが重複しています", fmt.Sprintf("%s (index %d)", line.MaterialID, i))
		}
		seen[line.MaterialID] = true
	}
	return nil
}

// ValidateTransferItems 移動対象リストをバリデーション
func ValidateTransferItems(items []TransferItem) error {
	if len(items) == 0 {
		return NewValidationError("items", "移動対象が空です", "[]")
	}
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		if err := ValidateID("items.material_id", item.MaterialID); err != nil {
			return err
		}
		if item.Quantity <= 0 {
			return NewValidationError("items.quantity", "移動量は正の値である必要があります", formatFloat(item.Quantity))
		}
		if seen[item.MaterialID] {
			return NewValidationError("items.material_id", "移動対象内で資材IDが重複しています", fmt.Sprintf("%s (index %d)", item.MaterialID, i))
		}
		seen[item.MaterialID] = true
	}
	return nil
}

// ValidateTransferRequest 移動申請全体をバリデーション
func ValidateTransferRequest(r *TransferRequest) error {
	if r == nil {
		return NewValidationError("request", "移動申請が指定されていません", "nil")
	}
	if err := ValidateID("request_id", r.ID); err != nil {
		return err
	}
	if err := ValidateID("from_warehouse", r.FromWarehouse); err != nil {
		return err
	}
	if err := ValidateID("to_warehouse", r.ToWarehouse); err != nil {
		return err
	}
	if r.FromWarehouse == r.ToWarehouse {
		return NewValidationError("to_warehouse", "移動元と移動先が同じです", r.ToWarehouse)
	}
	if strings.TrimSpace(r.RequestedBy) == "" {
		return NewValidationError("requested_by", "申請者が空です", r.RequestedBy)
	}
	return ValidateTransferItems(r.Items)
}

// formatFloat 数値をエラーメッセージ用に整形
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
