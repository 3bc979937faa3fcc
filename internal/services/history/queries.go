package history

import (
	"context"

	"storefront-system/internal/database/models"
)

type UserSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type OrderSummary struct {
	ID         int64  `json:"id"`
	TotalPrice string `json:"totalPrice"`
	IsPaid     bool   `json:"isPaid"`
}

// Entry is a ledger row with its weak references resolved for display.
// A reference that no longer resolves is left nil.
type Entry struct {
	models.StockHistory
	User  *UserSummary  `json:"user,omitempty"`
	Order *OrderSummary `json:"order,omitempty"`
}

type ProductHistoryResponse struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Entries []Entry `json:"entries"`
}

func (l *Ledger) GetProductStockHistory(ctx context.Context, productID int64, limit int) (*ProductHistoryResponse, error) {
	limit = clampLimit(limit, defaultProductLimit)

	var rows []models.StockHistory
	if err := l.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return &ProductHistoryResponse{Success: false, Message: "database error"}, err
	}

	entries, err := l.resolve(ctx, rows)
	if err != nil {
		return &ProductHistoryResponse{Success: false, Message: "database error"}, err
	}

	return &ProductHistoryResponse{
		Success: true,
		Message: "Stock history retrieved successfully",
		Entries: entries,
	}, nil
}

func (l *Ledger) resolve(ctx context.Context, rows []models.StockHistory) ([]Entry, error) {
	userIDs := map[int64]struct{}{}
	orderIDs := map[int64]struct{}{}
	for _, r := range rows {
		if r.UserID != nil {
			userIDs[*r.UserID] = struct{}{}
		}
		if r.OrderID != nil {
			orderIDs[*r.OrderID] = struct{}{}
		}
	}

	users := map[int64]*UserSummary{}
	if len(userIDs) > 0 {
		var found []models.User
		if err := l.db.WithContext(ctx).Select("id", "name", "email").
			Where("id IN ?", keys(userIDs)).Find(&found).Error; err != nil {
			return nil, err
		}
		for _, u := range found {
			users[u.ID] = &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
		}
	}

	orders := map[int64]*OrderSummary{}
	if len(orderIDs) > 0 {
		var found []models.Order
		if err := l.db.WithContext(ctx).Select("id", "total_price", "is_paid").
			Where("id IN ?", keys(orderIDs)).Find(&found).Error; err != nil {
			return nil, err
		}
		for _, o := range found {
			orders[o.ID] = &OrderSummary{ID: o.ID, TotalPrice: o.TotalPrice, IsPaid: o.IsPaid}
		}
	}

	entries := make([]Entry, len(rows))
	for i, r := range rows {
		entries[i] = Entry{StockHistory: r}
		if r.UserID != nil {
			entries[i].User = users[*r.UserID]
		}
		if r.OrderID != nil {
			entries[i].Order = orders[*r.OrderID]
		}
	}
	return entries, nil
}

func keys(m map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

type Query struct {
	Page         int                 `form:"page"`
	Limit        int                 `form:"limit"`
	MovementType models.MovementType `form:"movementType"`
	ProductID    int64               `form:"productId"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type AllHistoryResponse struct {
	Success    bool                  `json:"success"`
	Message    string                `json:"message"`
	Entries    []models.StockHistory `json:"entries"`
	Pagination Pagination            `json:"pagination"`
}

func (l *Ledger) GetAllStockHistory(ctx context.Context, q Query) (*AllHistoryResponse, error) {
	page := max(q.Page, 1)
	limit := clampLimit(q.Limit, defaultPageSize)

	query := l.db.WithContext(ctx).Model(&models.StockHistory{})
	if q.MovementType != "" {
		query = query.Where("movement_type = ?", q.MovementType)
	}
	if q.ProductID > 0 {
		query = query.Where("product_id = ?", q.ProductID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return &AllHistoryResponse{Success: false, Message: "database error"}, err
	}

	var rows []models.StockHistory
	if err := query.Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&rows).Error; err != nil {
		return &AllHistoryResponse{Success: false, Message: "database error"}, err
	}

	return &AllHistoryResponse{
		Success: true,
		Message: "Stock history retrieved successfully",
		Entries: rows,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages(total, limit),
		},
	}, nil
}

type MovementStats struct {
	MovementType models.MovementType `json:"movementType"`
	Count        int64               `json:"count"`
	NetChange    int64               `json:"netChange"`
}

type StatisticsResponse struct {
	Success      bool                  `json:"success"`
	Message      string                `json:"message"`
	TotalEntries int64                 `json:"totalEntries"`
	ByType       []MovementStats       `json:"byType"`
	Recent       []models.StockHistory `json:"recent"`
}

func (l *Ledger) GetStockHistoryStatistics(ctx context.Context) (*StatisticsResponse, error) {
	var byType []MovementStats
	if err := l.db.WithContext(ctx).Model(&models.StockHistory{}).
		Select("movement_type, COUNT(*) AS count, COALESCE(SUM(quantity_change), 0) AS net_change").
		Group("movement_type").
		Order("movement_type").
		Scan(&byType).Error; err != nil {
		return &StatisticsResponse{Success: false, Message: "database error"}, err
	}

	var total int64
	for _, s := range byType {
		total += s.Count
	}

	var recent []models.StockHistory
	if err := l.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(recentEntries).
		Find(&recent).Error; err != nil {
		return &StatisticsResponse{Success: false, Message: "database error"}, err
	}

	return &StatisticsResponse{
		Success:      true,
		Message:      "Stock history statistics retrieved successfully",
		TotalEntries: total,
		ByType:       byType,
		Recent:       recent,
	}, nil
}
