package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// POStatus 采购订单状态
type POStatus string

const (
	POStatusDraft         POStatus = "DRAFT"
	POStatusApproved      POStatus = "APPROVED"
	POStatusPartiallyPaid POStatus = "PARTIALLY_PAID"
	POStatusFullyPaid     POStatus = "FULLY_PAID"
)

// poTransitions 允许的人工状态流转，FULLY_PAID 为终态
var poTransitions = map[POStatus][]POStatus{
	POStatusDraft:         {POStatusApproved},
	POStatusApproved:      {POStatusPartiallyPaid, POStatusFullyPaid},
	POStatusPartiallyPaid: {POStatusFullyPaid},
	POStatusFullyPaid:     {},
}

// Valid 是否为已知状态
func (s POStatus) Valid() bool {
	_, ok := poTransitions[s]
	return ok
}

// CanTransitionTo 校验状态流转
func (s POStatus) CanTransitionTo(next POStatus) bool {
	for _, allowed := range poTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PurchaseOrder 采购订单
type PurchaseOrder struct {
	ID          string          `json:"id" gorm:"primaryKey;type:uuid"`
	PONumber    string          `json:"poNumber" gorm:"column:po_number;size:50;uniqueIndex;not null"`
	VendorID    string          `json:"vendorId" gorm:"type:uuid;not null;index"`
	PODate      Date            `json:"poDate" gorm:"column:po_date;not null"`
	TotalAmount decimal.Decimal `json:"totalAmount" gorm:"type:decimal(12,2);not null"`
	DueDate     Date            `json:"dueDate" gorm:"not null"`
	Status      POStatus        `json:"status" gorm:"size:20;not null;default:DRAFT;index"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`

	// 关联
	Vendor   *Vendor             `json:"vendor,omitempty" gorm:"foreignKey:VendorID"`
	Items    []PurchaseOrderItem `json:"items,omitempty" gorm:"foreignKey:PurchaseOrderID"`
	Payments []Payment           `json:"payments,omitempty" gorm:"foreignKey:PurchaseOrderID"`
}

func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

// PurchaseOrderItem 采购订单行项
type PurchaseOrderItem struct {
	ID              string          `json:"id" gorm:"primaryKey;type:uuid"`
	PurchaseOrderID string          `json:"purchaseOrderId" gorm:"type:uuid;not null;index"`
	Description     string          `json:"description" gorm:"type:text;not null"`
	Quantity        decimal.Decimal `json:"quantity" gorm:"type:decimal(12,3);not null;check:quantity > 0"`
	UnitPrice       decimal.Decimal `json:"unitPrice" gorm:"type:decimal(12,2);not null;check:unit_price > 0"`
	LineTotal       decimal.Decimal `json:"lineTotal" gorm:"type:decimal(12,2);not null"`
}

func (PurchaseOrderItem) TableName() string {
	return "purchase_order_items"
}

// ComputeLineTotal 行金额 = 数量 × 单价，保留两位小数
func ComputeLineTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(quantity).Round(2)
}

// SumLineTotals 订单总额
func SumLineTotals(items []PurchaseOrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal)
	}
	return total
}
