package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// 金额以JSON数字输出，而非字符串
	decimal.MarshalJSONWithoutQuotes = true
}

// VendorStatus 供应商状态
type VendorStatus string

const (
	VendorStatusActive   VendorStatus = "ACTIVE"
	VendorStatusInactive VendorStatus = "INACTIVE"
)

// Valid 是否为已知状态
func (s VendorStatus) Valid() bool {
	return s == VendorStatusActive || s == VendorStatusInactive
}

// PaymentTerms 付款账期（天）
type PaymentTerms int

const (
	PaymentTerms15 PaymentTerms = 15
	PaymentTerms30 PaymentTerms = 30
	PaymentTerms45 PaymentTerms = 45
	PaymentTerms60 PaymentTerms = 60

	DefaultPaymentTerms = PaymentTerms30
)

// Valid 是否为允许的账期
func (t PaymentTerms) Valid() bool {
	switch t {
	case PaymentTerms15, PaymentTerms30, PaymentTerms45, PaymentTerms60:
		return true
	}
	return false
}

// Days 账期天数
func (t PaymentTerms) Days() int {
	return int(t)
}

// Vendor 供应商
type Vendor struct {
	ID            string       `json:"id" gorm:"primaryKey;type:uuid"`
	VendorName    string       `json:"vendorName" gorm:"size:255;uniqueIndex;not null"`
	ContactPerson string       `json:"contactPerson" gorm:"size:255;not null"`
	Email         string       `json:"email" gorm:"size:255;uniqueIndex;not null"`
	PhoneNumber   string       `json:"phoneNumber" gorm:"size:20;not null"`
	PaymentTerms  PaymentTerms `json:"paymentTerms" gorm:"not null;default:30;check:payment_terms IN (15,30,45,60)"`
	Status        VendorStatus `json:"status" gorm:"size:20;not null;default:ACTIVE"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`

	// 关联
	PurchaseOrders []PurchaseOrder `json:"purchaseOrders,omitempty" gorm:"foreignKey:VendorID"`
}

func (Vendor) TableName() string {
	return "vendors"
}

// IsActive 是否可下单
func (v *Vendor) IsActive() bool {
	return v.Status == VendorStatusActive
}
