package repository

import (
	"context"

	"github.com/bitfantasy/procurement/internal/procurement/entity"
	"gorm.io/gorm"
)

// VendorRepository 供应商仓库
type VendorRepository struct {
	db *gorm.DB
}

func NewVendorRepository(db *gorm.DB) *VendorRepository {
	return &VendorRepository{db: db}
}

// FindAll 全部供应商，按创建时间倒序
func (r *VendorRepository) FindAll(ctx context.Context) ([]entity.Vendor, error) {
	var vendors []entity.Vendor
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&vendors).Error
	return vendors, err
}

// FindByID 根据ID查找供应商
func (r *VendorRepository) FindByID(ctx context.Context, id string) (*entity.Vendor, error) {
	var v entity.Vendor
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&v).Error
	if err != nil {
		return nil, translate(err)
	}
	return &v, nil
}

// FindWithOrders 查找供应商及其采购订单、付款
func (r *VendorRepository) FindWithOrders(ctx context.Context, id string) (*entity.Vendor, error) {
	var v entity.Vendor
	err := r.db.WithContext(ctx).
		Preload("PurchaseOrders", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Preload("PurchaseOrders.Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&v).Error
	if err != nil {
		return nil, translate(err)
	}
	return &v, nil
}

// ExistsByNameOrEmail 名称或邮箱是否已被其他供应商占用，excludeID 为空时检查全部
func (r *VendorRepository) ExistsByNameOrEmail(ctx context.Context, name, email, excludeID string) (bool, error) {
	query := r.db.WithContext(ctx).Model(&entity.Vendor{})

	switch {
	case name != "" && email != "":
		query = query.Where("vendor_name = ? OR email = ?", name, email)
	case name != "":
		query = query.Where("vendor_name = ?", name)
	case email != "":
		query = query.Where("email = ?", email)
	default:
		return false, nil
	}
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create 创建供应商
func (r *VendorRepository) Create(ctx context.Context, v *entity.Vendor) error {
	return translate(r.db.WithContext(ctx).Create(v).Error)
}

// Update 更新供应商
func (r *VendorRepository) Update(ctx context.Context, v *entity.Vendor) error {
	return translate(r.db.WithContext(ctx).Omit("PurchaseOrders").Save(v).Error)
}
