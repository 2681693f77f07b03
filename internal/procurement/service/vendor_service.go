package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bitfantasy/procurement/internal/procurement/entity"
	"github.com/bitfantasy/procurement/internal/procurement/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const msgVendorConflict = "Vendor name or email already exists"

// VendorService 供应商服务
type VendorService struct {
	repo        *repository.VendorRepository
	logger      *zap.Logger
	invalidator Invalidator
}

func NewVendorService(repo *repository.VendorRepository, logger *zap.Logger) *VendorService {
	return &VendorService{repo: repo, logger: logger}
}

// SetInvalidator 设置缓存失效回调，供应商名称出现在统计结果中
func (s *VendorService) SetInvalidator(inv Invalidator) {
	s.invalidator = inv
}

// CreateVendorRequest 创建供应商请求
type CreateVendorRequest struct {
	VendorName    string               `json:"vendorName" binding:"required,max=255"`
	ContactPerson string               `json:"contactPerson" binding:"required,max=255"`
	Email         string               `json:"email" binding:"required,email,max=255"`
	PhoneNumber   string               `json:"phoneNumber" binding:"required,max=20"`
	PaymentTerms  *entity.PaymentTerms `json:"paymentTerms" binding:"omitempty,oneof=15 30 45 60"`
	Status        *entity.VendorStatus `json:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
}

// UpdateVendorRequest 更新供应商请求，仅处理非空字段
type UpdateVendorRequest struct {
	VendorName    *string              `json:"vendorName" binding:"omitempty,min=1,max=255"`
	ContactPerson *string              `json:"contactPerson" binding:"omitempty,min=1,max=255"`
	Email         *string              `json:"email" binding:"omitempty,email,max=255"`
	PhoneNumber   *string              `json:"phoneNumber" binding:"omitempty,min=1,max=20"`
	PaymentTerms  *entity.PaymentTerms `json:"paymentTerms" binding:"omitempty,oneof=15 30 45 60"`
	Status        *entity.VendorStatus `json:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
}

func (r *CreateVendorRequest) validate() error {
	if strings.TrimSpace(r.VendorName) == "" || strings.TrimSpace(r.ContactPerson) == "" ||
		strings.TrimSpace(r.Email) == "" || strings.TrimSpace(r.PhoneNumber) == "" {
		return validationError("vendorName, contactPerson, email and phoneNumber are required")
	}
	if r.PaymentTerms != nil && !r.PaymentTerms.Valid() {
		return validationError("paymentTerms must be one of 15, 30, 45, 60")
	}
	if r.Status != nil && !r.Status.Valid() {
		return validationError("status must be ACTIVE or INACTIVE")
	}
	return nil
}

func (r *UpdateVendorRequest) validate() error {
	for _, f := range []*string{r.VendorName, r.ContactPerson, r.Email, r.PhoneNumber} {
		if f != nil && strings.TrimSpace(*f) == "" {
			return validationError("vendor fields must not be empty")
		}
	}
	if r.PaymentTerms != nil && !r.PaymentTerms.Valid() {
		return validationError("paymentTerms must be one of 15, 30, 45, 60")
	}
	if r.Status != nil && !r.Status.Valid() {
		return validationError("status must be ACTIVE or INACTIVE")
	}
	return nil
}

// Register 登记供应商
func (s *VendorService) Register(ctx context.Context, req *CreateVendorRequest) (*entity.Vendor, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByNameOrEmail(ctx, req.VendorName, req.Email, "")
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &Error{Kind: ErrConflict, Message: msgVendorConflict}
	}

	vendor := &entity.Vendor{
		ID:            uuid.New().String(),
		VendorName:    req.VendorName,
		ContactPerson: req.ContactPerson,
		Email:         req.Email,
		PhoneNumber:   req.PhoneNumber,
		PaymentTerms:  entity.DefaultPaymentTerms,
		Status:        entity.VendorStatusActive,
	}
	if req.PaymentTerms != nil {
		vendor.PaymentTerms = *req.PaymentTerms
	}
	if req.Status != nil {
		vendor.Status = *req.Status
	}

	if err := s.repo.Create(ctx, vendor); err != nil {
		return nil, conflictFrom(err, msgVendorConflict)
	}

	s.logger.Info("vendor registered",
		zap.String("vendor_id", vendor.ID),
		zap.String("vendor_name", vendor.VendorName),
	)
	return vendor, nil
}

// List 供应商列表
func (s *VendorService) List(ctx context.Context) ([]entity.Vendor, error) {
	return s.repo.FindAll(ctx)
}

// Get 供应商详情（含采购订单及付款）
func (s *VendorService) Get(ctx context.Context, id string) (*entity.Vendor, error) {
	vendor, err := s.repo.FindWithOrders(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Vendor", id)
	}
	return vendor, err
}

// Update 部分更新供应商
func (s *VendorService) Update(ctx context.Context, id string, req *UpdateVendorRequest) (*entity.Vendor, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	vendor, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Vendor", id)
	}
	if err != nil {
		return nil, err
	}

	if req.VendorName != nil || req.Email != nil {
		var name, email string
		if req.VendorName != nil {
			name = *req.VendorName
		}
		if req.Email != nil {
			email = *req.Email
		}
		exists, err := s.repo.ExistsByNameOrEmail(ctx, name, email, id)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, &Error{Kind: ErrConflict, Message: msgVendorConflict}
		}
	}

	if req.VendorName != nil {
		vendor.VendorName = *req.VendorName
	}
	if req.ContactPerson != nil {
		vendor.ContactPerson = *req.ContactPerson
	}
	if req.Email != nil {
		vendor.Email = *req.Email
	}
	if req.PhoneNumber != nil {
		vendor.PhoneNumber = *req.PhoneNumber
	}
	if req.PaymentTerms != nil {
		vendor.PaymentTerms = *req.PaymentTerms
	}
	if req.Status != nil {
		vendor.Status = *req.Status
	}

	if err := s.repo.Update(ctx, vendor); err != nil {
		return nil, conflictFrom(err, msgVendorConflict)
	}

	s.logger.Info("vendor updated", zap.String("vendor_id", vendor.ID))
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}
	return vendor, nil
}

// AssertActive 校验供应商存在且为启用状态
func (s *VendorService) AssertActive(ctx context.Context, id string) (*entity.Vendor, error) {
	vendor, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Vendor", id)
	}
	if err != nil {
		return nil, err
	}
	if !vendor.IsActive() {
		return nil, &Error{Kind: ErrInvalidState, Message: "Cannot create PO for inactive vendor"}
	}
	return vendor, nil
}
