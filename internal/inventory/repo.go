package inventory

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MalayathiGeetha/Motor-Part/pkg/db/models"
	"github.com/MalayathiGeetha/Motor-Part/pkg/pagination"
)

// Postgres names the part code constraint; sqlite reports the column.
var partCodeConstraints = []string{"parts_part_code_key", "parts.part_code"}

// Repository is the part stock store. Stock columns are only changed through
// AddStock and DeductStock.
type Repository struct {
	db *gorm.DB
}

// NewRepository returns a parts repository bound to the provided database.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, part *models.Part) error {
	return r.db.WithContext(ctx).Create(part).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Part, error) {
	var part models.Part
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&part).Error; err != nil {
		return nil, err
	}
	return &part, nil
}

// FindByIDForUpdate loads the part and holds its row lock until the
// transaction ends. sqlite ignores the locking clause; its single writer
// already serializes transactions.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Part, error) {
	var part models.Part
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&part).Error
	if err != nil {
		return nil, err
	}
	return &part, nil
}

func (r *Repository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Part{}).
		Where("part_code = ?", code).
		Count(&count).Error
	return count > 0, err
}

// UpdateDetails writes the non-stock columns of part.
func (r *Repository) UpdateDetails(ctx context.Context, part *models.Part) error {
	return r.db.WithContext(ctx).
		Model(part).
		Select("part_name", "description", "unit_price", "reorder_threshold", "rack_location", "image_url", "updated_at").
		Updates(part).Error
}

// AddStock increments the stock counter and returns the new level.
func (r *Repository) AddStock(ctx context.Context, id uuid.UUID, qty int) (int, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Part{}).
		Where("id = ?", id).
		UpdateColumn("current_stock", gorm.Expr("current_stock + ?", qty))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return r.stockLevel(ctx, id)
}

// DeductStock subtracts qty only when enough stock exists. ok is false when the
// guard rejected the update.
func (r *Repository) DeductStock(ctx context.Context, id uuid.UUID, qty int) (newStock int, ok bool, err error) {
	result := r.db.WithContext(ctx).
		Model(&models.Part{}).
		Where("id = ? AND current_stock >= ?", id, qty).
		UpdateColumn("current_stock", gorm.Expr("current_stock - ?", qty))
	if result.Error != nil {
		return 0, false, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, false, nil
	}
	newStock, err = r.stockLevel(ctx, id)
	return newStock, err == nil, err
}

func (r *Repository) stockLevel(ctx context.Context, id uuid.UUID) (int, error) {
	var stock int
	err := r.db.WithContext(ctx).
		Model(&models.Part{}).
		Select("current_stock").
		Where("id = ?", id).
		Scan(&stock).Error
	return stock, err
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Part{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

type listParams struct {
	Limit  int
	Cursor *pagination.Cursor
}

// List pages through parts, newest registration first.
func (r *Repository) List(ctx context.Context, params listParams) ([]models.Part, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.Part{})
	if params.Cursor != nil {
		query = query.Where("created_at < ? OR (created_at = ? AND id <= ?)", params.Cursor.At, params.Cursor.At, params.Cursor.ID)
	}

	var parts []models.Part
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(params.Limit)).Find(&parts).Error; err != nil {
		return nil, nil, err
	}

	page, next := pagination.Split(parts, params.Limit, func(p models.Part) pagination.Cursor {
		return pagination.Cursor{At: p.CreatedAt, ID: p.ID.String()}
	})
	return page, next, nil
}

// ListIDs returns every part id ordered by code.
func (r *Repository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Part{}).
		Order("part_code ASC").
		Pluck("id", &ids).Error
	return ids, err
}

// Search matches q case-insensitively as a substring of name, code, or rack location.
func (r *Repository) Search(ctx context.Context, q string) ([]models.Part, error) {
	pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
	var parts []models.Part
	err := r.db.WithContext(ctx).
		Where(`LOWER(part_name) LIKE ? ESCAPE '\' OR LOWER(part_code) LIKE ? ESCAPE '\' OR LOWER(COALESCE(rack_location, '')) LIKE ? ESCAPE '\'`, pattern, pattern, pattern).
		Order("part_code ASC").
		Find(&parts).Error
	return parts, err
}

type valuationRow struct {
	UnitPrice    decimal.Decimal
	CurrentStock int
}

// Valuation returns the part count and the sum of price times stock.
func (r *Repository) Valuation(ctx context.Context) (int64, decimal.Decimal, error) {
	var rows []valuationRow
	if err := r.db.WithContext(ctx).
		Model(&models.Part{}).
		Select("unit_price", "current_stock").
		Find(&rows).Error; err != nil {
		return 0, decimal.Zero, err
	}
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.UnitPrice.Mul(decimal.NewFromInt(int64(row.CurrentStock))))
	}
	return int64(len(rows)), total, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
