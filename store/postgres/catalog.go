package postgres

import (
	"context"
	"database/sql"

	"github.com/converge-ai/convergeai/internal/xerrors"
	"github.com/converge-ai/convergeai/store"
)

func (d *DB) ListCategories(ctx context.Context, activeOnly bool) ([]store.Category, error) {
	query := `SELECT id, name, slug, description, active FROM categories`
	if activeOnly {
		query += ` WHERE active = true`
	}
	query += ` ORDER BY name ASC`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, wrap(err, "list categories")
	}
	defer rows.Close()

	var out []store.Category
	for rows.Next() {
		var c store.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.Active); err != nil {
			return nil, wrap(err, "scan category")
		}
		out = append(out, c)
	}
	return out, wrap(rows.Err(), "iterate categories")
}

func (d *DB) ListSubcategories(ctx context.Context, q store.FindSubcategories) ([]store.Subcategory, error) {
	where, args := []string{"1 = 1"}, []any{}
	if q.CategoryID != nil {
		where = append(where, "category_id = "+placeholder(len(args)+1))
		args = append(args, *q.CategoryID)
	}
	if q.ActiveOnly {
		where = append(where, "active = true")
	}

	query := `SELECT id, category_id, name, slug, description, active FROM subcategories WHERE ` + join(where, " AND ") + ` ORDER BY name ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap(err, "list subcategories")
	}
	defer rows.Close()

	var out []store.Subcategory
	for rows.Next() {
		var s store.Subcategory
		if err := rows.Scan(&s.ID, &s.CategoryID, &s.Name, &s.Slug, &s.Description, &s.Active); err != nil {
			return nil, wrap(err, "scan subcategory")
		}
		out = append(out, s)
	}
	return out, wrap(rows.Err(), "iterate subcategories")
}

func (d *DB) ListRateCards(ctx context.Context, q store.FindRateCards) ([]store.RateCard, error) {
	where := []string{"subcategory_id = " + placeholder(1)}
	args := []any{q.SubcategoryID}
	if q.ActiveOnly {
		where = append(where, "active = true")
	}

	query := `SELECT id, subcategory_id, provider_id, name, price, duration_mins, active
		FROM rate_cards WHERE ` + join(where, " AND ") + ` ORDER BY price ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap(err, "list rate cards")
	}
	defer rows.Close()

	var out []store.RateCard
	for rows.Next() {
		var r store.RateCard
		if err := rows.Scan(&r.ID, &r.SubcategoryID, &r.ProviderID, &r.Name, &r.Price, &r.DurationMins, &r.Active); err != nil {
			return nil, wrap(err, "scan rate card")
		}
		out = append(out, r)
	}
	return out, wrap(rows.Err(), "iterate rate cards")
}

func (d *DB) GetRateCard(ctx context.Context, id uint64) (store.RateCard, error) {
	var r store.RateCard
	row := d.db.QueryRowContext(ctx, `SELECT id, subcategory_id, provider_id, name, price, duration_mins, active
		FROM rate_cards WHERE id = `+placeholder(1), id)
	if err := row.Scan(&r.ID, &r.SubcategoryID, &r.ProviderID, &r.Name, &r.Price, &r.DurationMins, &r.Active); err != nil {
		if err == sql.ErrNoRows {
			return store.RateCard{}, xerrors.New(xerrors.KindNotFound, "rate card not found")
		}
		return store.RateCard{}, wrap(err, "get rate card")
	}
	return r, nil
}

func (d *DB) Search(ctx context.Context, q store.CatalogSearch) ([]store.RateCard, error) {
	where, args := []string{"rc.active = true"}, []any{}
	if q.Query != "" {
		where = append(where, "rc.name ILIKE "+placeholder(len(args)+1))
		args = append(args, "%"+q.Query+"%")
	}
	if q.CategoryID != nil {
		where = append(where, "sc.category_id = "+placeholder(len(args)+1))
		args = append(args, *q.CategoryID)
	}
	if q.SubcategoryID != nil {
		where = append(where, "rc.subcategory_id = "+placeholder(len(args)+1))
		args = append(args, *q.SubcategoryID)
	}
	if q.MinPrice != nil {
		where = append(where, "rc.price >= "+placeholder(len(args)+1))
		args = append(args, *q.MinPrice)
	}
	if q.MaxPrice != nil {
		where = append(where, "rc.price <= "+placeholder(len(args)+1))
		args = append(args, *q.MaxPrice)
	}
	if q.Pincode != nil {
		where = append(where, "EXISTS (SELECT 1 FROM serviceable_pincodes sp WHERE sp.provider_id = rc.provider_id AND sp.pincode = "+placeholder(len(args)+1)+")")
		args = append(args, *q.Pincode)
	}

	query := `SELECT rc.id, rc.subcategory_id, rc.provider_id, rc.name, rc.price, rc.duration_mins, rc.active
		FROM rate_cards rc JOIN subcategories sc ON sc.id = rc.subcategory_id
		WHERE ` + join(where, " AND ") + ` ORDER BY rc.price ASC LIMIT 20`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap(err, "search rate cards")
	}
	defer rows.Close()

	var out []store.RateCard
	for rows.Next() {
		var r store.RateCard
		if err := rows.Scan(&r.ID, &r.SubcategoryID, &r.ProviderID, &r.Name, &r.Price, &r.DurationMins, &r.Active); err != nil {
			return nil, wrap(err, "scan rate card")
		}
		out = append(out, r)
	}
	return out, wrap(rows.Err(), "iterate rate card search")
}

func (d *DB) IsServiceable(ctx context.Context, providerID uint64, pincode string) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM serviceable_pincodes WHERE provider_id = `+placeholder(1)+` AND pincode = `+placeholder(2)+`)`,
		providerID, pincode).Scan(&exists)
	return exists, wrap(err, "check serviceability")
}

func join(parts []string, sep string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += sep + p
	}
	return out
}
