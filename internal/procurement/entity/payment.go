package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod 付款方式
type PaymentMethod string

const (
	PaymentMethodNEFT   PaymentMethod = "NEFT"
	PaymentMethodUPI    PaymentMethod = "UPI"
	PaymentMethodRTGS   PaymentMethod = "RTGS"
	PaymentMethodCheque PaymentMethod = "CHEQUE"
	PaymentMethodCash   PaymentMethod = "CASH"
)

// Valid 是否为已知付款方式
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodNEFT, PaymentMethodUPI, PaymentMethodRTGS, PaymentMethodCheque, PaymentMethodCash:
		return true
	}
	return false
}

// Payment 付款记录，写入后不可修改
type Payment struct {
	ID               string          `json:"id" gorm:"primaryKey;type:uuid"`
	PaymentReference string          `json:"paymentReference" gorm:"size:50;uniqueIndex;not null"`
	PurchaseOrderID  string          `json:"purchaseOrderId" gorm:"type:uuid;not null;index"`
	PaymentDate      Date            `json:"paymentDate" gorm:"not null"`
	AmountPaid       decimal.Decimal `json:"amountPaid" gorm:"type:decimal(12,2);not null;check:amount_paid > 0"`
	PaymentMethod    PaymentMethod   `json:"paymentMethod" gorm:"size:20;not null"`
	Notes            *string         `json:"notes" gorm:"type:text"`
	CreatedAt        time.Time       `json:"createdAt"`

	// 关联
	PurchaseOrder *PurchaseOrder `json:"purchaseOrder,omitempty" gorm:"foreignKey:PurchaseOrderID"`
}

func (Payment) TableName() string {
	return "payments"
}

// SumPayments 已付总额
func SumPayments(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.AmountPaid)
	}
	return total
}

// AllModels 需要迁移的全部表
func AllModels() []interface{} {
	return []interface{}{
		&Vendor{},
		&PurchaseOrder{},
		&PurchaseOrderItem{},
		&Payment{},
	}
}
