package database

import (
	"context"
	"database/sql"

	"github.com/sirupsen/logrus"
)

// migrations are idempotent CREATE statements run at startup. Column
// changes to existing deployments still happen by hand; this only
// bootstraps a fresh schema.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
	    id            CHAR(36)     NOT NULL,
	    email         VARCHAR(255) NOT NULL,
	    name          VARCHAR(255) NOT NULL DEFAULT '',
	    password_hash VARCHAR(255) NOT NULL,
	    role          VARCHAR(16)  NOT NULL DEFAULT 'user',
	    created_at    TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
	    updated_at    TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	    PRIMARY KEY (id),
	    UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS vehicles (
	    id                   CHAR(36)     NOT NULL,
	    name                 VARCHAR(255) NOT NULL,
	    type                 VARCHAR(64)  NOT NULL,
	    capacity_global      INT          NOT NULL DEFAULT 0,
	    capacity_by_location JSON         NULL,
	    price_per_hour       BIGINT       NOT NULL,
	    price_7_days         BIGINT       NULL,
	    price_15_days        BIGINT       NULL,
	    price_30_days        BIGINT       NULL,
	    status               VARCHAR(16)  NOT NULL DEFAULT 'active',
	    created_at           TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
	    updated_at           TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	    PRIMARY KEY (id),
	    KEY idx_vehicles_type (type)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS bookings (
	    id                CHAR(36)     NOT NULL,
	    user_id           CHAR(36)     NOT NULL,
	    vehicle_id        CHAR(36)     NOT NULL,
	    location          VARCHAR(128) NOT NULL,
	    start_time        DATETIME     NOT NULL,
	    end_time          DATETIME     NOT NULL,
	    status            VARCHAR(16)  NOT NULL DEFAULT 'pending',
	    payment_status    VARCHAR(16)  NOT NULL DEFAULT 'pending',
	    total_price       BIGINT       NOT NULL,
	    coupon_code       VARCHAR(64)  NULL,
	    payment_reference VARCHAR(128) NULL,
	    payment_details   JSON         NULL,
	    created_at        TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
	    updated_at        TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	    PRIMARY KEY (id),
	    UNIQUE KEY uq_bookings_payment_ref (payment_reference),
	    KEY idx_bookings_user (user_id),
	    KEY idx_bookings_overlap (vehicle_id, location, start_time, end_time),
	    CONSTRAINT fk_bookings_user    FOREIGN KEY (user_id)    REFERENCES users (id),
	    CONSTRAINT fk_bookings_vehicle FOREIGN KEY (vehicle_id) REFERENCES vehicles (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS coupons (
	    id                  CHAR(36)    NOT NULL,
	    code                VARCHAR(64) NOT NULL,
	    discount_type       VARCHAR(16) NOT NULL,
	    discount_value      BIGINT      NOT NULL,
	    max_discount_amount BIGINT      NULL,
	    min_booking_amount  BIGINT      NULL,
	    valid_from          DATETIME    NULL,
	    valid_until         DATETIME    NULL,
	    usage_limit         INT         NULL,
	    times_used          INT         NOT NULL DEFAULT 0,
	    is_active           BOOLEAN     NOT NULL DEFAULT TRUE,
	    created_at          TIMESTAMP   NOT NULL DEFAULT CURRENT_TIMESTAMP,
	    updated_at          TIMESTAMP   NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	    PRIMARY KEY (id),
	    UNIQUE KEY uq_coupons_code (code)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the schema when it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	logrus.Info("database schema up to date")
	return nil
}
