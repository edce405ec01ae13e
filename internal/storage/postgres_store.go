package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/lib/pq"

	"github.com/example/order-fulfillment/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	var driver sql.NullString
	err := p.db.QueryRowContext(ctx,
		`SELECT id, status, driver_id, restaurant_id, customer_id, dest_lat, dest_lng, total_cents, created_at
		   FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.Status, &driver, &o.RestaurantID, &o.CustomerID,
			&o.Destination.Lat, &o.Destination.Lng, &o.TotalCents, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	o.DriverID = driver.String
	return &o, nil
}

func (p *PostgresStore) UpdateOrder(ctx context.Context, id string, status models.OrderStatus, driverID string) error {
	var res sql.Result
	var err error
	if driverID != "" {
		res, err = p.db.ExecContext(ctx,
			`UPDATE orders SET status=$1, driver_id=$2, updated_at=$3 WHERE id=$4`,
			status, driverID, time.Now(), id)
	} else {
		res, err = p.db.ExecContext(ctx,
			`UPDATE orders SET status=$1, updated_at=$2 WHERE id=$3`,
			status, time.Now(), id)
	}
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) EligibleDrivers(ctx context.Context, restaurantID string) ([]models.Driver, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, name, restaurant_id, available FROM drivers
		  WHERE restaurant_id=$1 AND available=true`, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Driver
	for rows.Next() {
		var d models.Driver
		if err := rows.Scan(&d.ID, &d.Name, &d.RestaurantID, &d.Available); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *PostgresStore) UpsertSubscription(ctx context.Context, sub models.Subscription) error {
	now := time.Now()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO push_subscriptions(recipient, endpoint, p256dh, auth, created_at, updated_at)
		 VALUES($1,$2,$3,$4,$5,$5)
		 ON CONFLICT (endpoint) DO UPDATE
		    SET recipient=EXCLUDED.recipient, p256dh=EXCLUDED.p256dh,
		        auth=EXCLUDED.auth, updated_at=EXCLUDED.updated_at`,
		sub.Recipient, sub.Endpoint, sub.P256dh, sub.Auth, now)
	return err
}

func (p *PostgresStore) SubscriptionsFor(ctx context.Context, recipient string) ([]models.Subscription, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT recipient, endpoint, p256dh, auth, created_at, updated_at
		   FROM push_subscriptions WHERE recipient=$1`, recipient)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Subscription
	for rows.Next() {
		var s models.Subscription
		if err := rows.Scan(&s.Recipient, &s.Endpoint, &s.P256dh, &s.Auth, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *PostgresStore) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE endpoint=$1`, endpoint)
	return err
}

func (p *PostgresStore) DeleteByRecipient(ctx context.Context, recipient string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE recipient=$1`, recipient)
	return err
}

func (p *PostgresStore) NotificationsEnabled(ctx context.Context, recipient string) (bool, error) {
	var enabled bool
	err := p.db.QueryRowContext(ctx,
		`SELECT notifications_enabled FROM recipients WHERE id=$1`, recipient).Scan(&enabled)
	if errors.Is(err, sql.ErrNoRows) {
		// unknown recipients default to enabled; opting out requires a row
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return enabled, nil
}
