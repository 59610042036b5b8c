package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/onnride/vehicle-rental/internal/engine"
	"github.com/onnride/vehicle-rental/internal/model"
)

const vehicleColumns = `id, name, type, capacity_global, capacity_by_location,
       price_per_hour, price_7_days, price_15_days, price_30_days,
       status, created_at, updated_at`

func scanVehicle(scan func(dest ...any) error) (*model.Vehicle, error) {
	var (
		v       model.Vehicle
		byLoc   []byte
		price7  sql.NullInt64
		price15 sql.NullInt64
		price30 sql.NullInt64
	)
	err := scan(
		&v.ID, &v.Name, &v.Type, &v.CapacityGlobal, &byLoc,
		&v.PricePerHour, &price7, &price15, &price30,
		&v.Status, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(byLoc) > 0 {
		if err := json.Unmarshal(byLoc, &v.CapacityByLocation); err != nil {
			return nil, err
		}
	}
	v.Price7Days = price7.Int64
	v.Price15Days = price15.Int64
	v.Price30Days = price30.Int64
	return &v, nil
}

func vehicleByID(ctx context.Context, q querier, id string) (*model.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = ?`
	v, err := scanVehicle(q.QueryRowContext(ctx, query, id).Scan)
	if err == sql.ErrNoRows {
		return nil, engine.ErrVehicleNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// VehicleRepo provides the catalogue reads for browsing and the CRUD
// the admin surface needs.
type VehicleRepo struct {
	db *sql.DB
}

func NewVehicleRepo(db *sql.DB) *VehicleRepo { return &VehicleRepo{db: db} }

func (r *VehicleRepo) GetByID(ctx context.Context, id string) (*model.Vehicle, error) {
	return vehicleByID(ctx, r.db, id)
}

// List returns vehicles ordered by name. vtype filters by category when
// non-empty; activeOnly hides maintenance and retired vehicles, which
// is what the public catalogue wants.
func (r *VehicleRepo) List(ctx context.Context, vtype string, activeOnly bool) ([]model.Vehicle, error) {
	q := `SELECT ` + vehicleColumns + ` FROM vehicles`
	args := []any{}
	where := ""
	if activeOnly {
		where = ` WHERE status = 'active'`
	}
	if vtype != "" {
		if where == "" {
			where = ` WHERE type = ?`
		} else {
			where += ` AND type = ?`
		}
		args = append(args, vtype)
	}
	q += where + ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Vehicle, 0)
	for rows.Next() {
		v, err := scanVehicle(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *VehicleRepo) Create(ctx context.Context, v *model.Vehicle) error {
	byLoc, err := capacityJSON(v.CapacityByLocation)
	if err != nil {
		return err
	}
	const q = `INSERT INTO vehicles
	    (id, name, type, capacity_global, capacity_by_location,
	     price_per_hour, price_7_days, price_15_days, price_30_days, status)
	    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, q,
		v.ID, v.Name, v.Type, v.CapacityGlobal, byLoc,
		v.PricePerHour, nullInt(v.Price7Days), nullInt(v.Price15Days), nullInt(v.Price30Days), v.Status,
	)
	return err
}

func (r *VehicleRepo) Update(ctx context.Context, v *model.Vehicle) error {
	byLoc, err := capacityJSON(v.CapacityByLocation)
	if err != nil {
		return err
	}
	const q = `UPDATE vehicles
	    SET name = ?, type = ?, capacity_global = ?, capacity_by_location = ?,
	        price_per_hour = ?, price_7_days = ?, price_15_days = ?, price_30_days = ?, status = ?
	    WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q,
		v.Name, v.Type, v.CapacityGlobal, byLoc,
		v.PricePerHour, nullInt(v.Price7Days), nullInt(v.Price15Days), nullInt(v.Price30Days), v.Status,
		v.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return engine.ErrVehicleNotFound
	}
	return nil
}

// Delete removes a vehicle that has no bookings. A vehicle with any
// booking history is retired instead of deleted so past bookings keep
// their join target; that case returns ErrConflict.
func (r *VehicleRepo) Delete(ctx context.Context, id string) error {
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE vehicle_id = ?`, id).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM vehicles WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return engine.ErrVehicleNotFound
	}
	return nil
}

func capacityJSON(byLoc map[string]int) (any, error) {
	if len(byLoc) == 0 {
		return nil, nil
	}
	return json.Marshal(byLoc)
}

func nullInt(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}
