package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// pgUniqueViolation PostgreSQL unique_violation
const pgUniqueViolation = "23505"

// Repositories 采购仓库集合
type Repositories struct {
	Vendor  *VendorRepository
	PO      *PORepository
	Payment *PaymentRepository
}

// NewRepositories 创建采购仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Vendor:  NewVendorRepository(db),
		PO:      NewPORepository(db),
		Payment: NewPaymentRepository(db),
	}
}

// translate 将驱动错误转换为仓库错误
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// referencePrefix 当日编号前缀，如 PO-20240305
func referencePrefix(kind string, now time.Time) string {
	return fmt.Sprintf("%s-%s", kind, now.UTC().Format("20060102"))
}

// formatReference 前缀 + 三位序号
func formatReference(prefix string, count int64) string {
	return fmt.Sprintf("%s-%03d", prefix, count+1)
}
