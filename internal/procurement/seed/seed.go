package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitfantasy/procurement/internal/procurement/entity"
	"github.com/bitfantasy/procurement/internal/procurement/service"
	"go.uber.org/zap"
)

// ErrAlreadySeeded 库中已有供应商时不再写入演示数据
var ErrAlreadySeeded = errors.New("database already contains vendors")

// Summary 写入结果
type Summary struct {
	Vendors  []*entity.Vendor
	Orders   []*entity.PurchaseOrder
	Payments []*entity.Payment
}

type demoOrder struct {
	vendor int
	items  []service.CreatePOItemRequest
}

type demoPayment struct {
	order  int
	amount float64 // 0 表示付清订单
	method entity.PaymentMethod
	notes  string
}

func terms(t entity.PaymentTerms) *entity.PaymentTerms { return &t }

func active() *entity.VendorStatus {
	s := entity.VendorStatusActive
	return &s
}

var demoVendors = []service.CreateVendorRequest{
	{VendorName: "Tech Solutions Ltd", ContactPerson: "Rajesh Kumar", Email: "rajesh@techsolutions.com", PhoneNumber: "+91-9876543210", PaymentTerms: terms(30), Status: active()},
	{VendorName: "Office Supplies Co", ContactPerson: "Priya Sharma", Email: "priya@officesupplies.com", PhoneNumber: "+91-9876543211", PaymentTerms: terms(15), Status: active()},
	{VendorName: "Manufacturing Parts Inc", ContactPerson: "Amit Patel", Email: "amit@mfgparts.com", PhoneNumber: "+91-9876543212", PaymentTerms: terms(45), Status: active()},
}

var demoOrders = []demoOrder{
	{vendor: 0, items: []service.CreatePOItemRequest{
		{Description: "Laptop Dell XPS 15", Quantity: 5, UnitPrice: 85000},
		{Description: "Wireless Mouse", Quantity: 10, UnitPrice: 1200},
	}},
	{vendor: 1, items: []service.CreatePOItemRequest{
		{Description: "A4 Paper Reams", Quantity: 50, UnitPrice: 250},
		{Description: "Pens (Box of 100)", Quantity: 20, UnitPrice: 150},
	}},
	{vendor: 2, items: []service.CreatePOItemRequest{
		{Description: "Steel Rods (10mm)", Quantity: 100, UnitPrice: 500},
		{Description: "Bolts & Nuts Set", Quantity: 200, UnitPrice: 50},
	}},
}

var demoPayments = []demoPayment{
	{order: 0, amount: 200000, method: entity.PaymentMethodNEFT, notes: "Partial payment - 50% advance"},
	{order: 1, method: entity.PaymentMethodUPI, notes: "Full payment"},
	{order: 2, amount: 25000, method: entity.PaymentMethodRTGS, notes: "Initial payment"},
}

// Run 通过业务服务写入演示数据：三个供应商、三张已审批订单、三笔付款
func Run(ctx context.Context, svcs *service.Services, logger *zap.Logger) (*Summary, error) {
	existing, err := svcs.Vendor.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrAlreadySeeded
	}

	sum := &Summary{}

	for i := range demoVendors {
		req := demoVendors[i]
		v, err := svcs.Vendor.Register(ctx, &req)
		if err != nil {
			return sum, fmt.Errorf("create vendor %s: %w", req.VendorName, err)
		}
		logger.Info("Seeded vendor", zap.String("vendor", v.VendorName))
		sum.Vendors = append(sum.Vendors, v)
	}

	for _, o := range demoOrders {
		po, err := svcs.PO.Create(ctx, &service.CreatePORequest{
			VendorID: sum.Vendors[o.vendor].ID,
			Items:    o.items,
		})
		if err != nil {
			return sum, fmt.Errorf("create purchase order: %w", err)
		}
		po, err = svcs.PO.UpdateStatus(ctx, po.ID, entity.POStatusApproved)
		if err != nil {
			return sum, fmt.Errorf("approve %s: %w", po.PONumber, err)
		}
		logger.Info("Seeded purchase order",
			zap.String("po_number", po.PONumber),
			zap.String("total", po.TotalAmount.StringFixed(2)),
		)
		sum.Orders = append(sum.Orders, po)
	}

	today := entity.Today().String()
	for _, p := range demoPayments {
		po := sum.Orders[p.order]
		amount := p.amount
		if amount == 0 {
			amount = po.TotalAmount.InexactFloat64()
		}
		notes := p.notes
		payment, err := svcs.Payment.Record(ctx, &service.RecordPaymentRequest{
			PurchaseOrderID: po.ID,
			PaymentDate:     today,
			AmountPaid:      amount,
			PaymentMethod:   p.method,
			Notes:           &notes,
		})
		if err != nil {
			return sum, fmt.Errorf("pay %s: %w", po.PONumber, err)
		}
		logger.Info("Seeded payment",
			zap.String("reference", payment.PaymentReference),
			zap.String("amount", payment.AmountPaid.StringFixed(2)),
		)
		sum.Payments = append(sum.Payments, payment)
	}

	return sum, nil
}
