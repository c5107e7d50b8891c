//go:build unit || e2e

package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// Salon is a seeded shop with its catalog and staff.
type Salon struct {
	TenantID uuid.UUID
	ShopID   uuid.UUID
	Barbers  []uuid.UUID
	Services []uuid.UUID
}

// SeedSalon creates a shop open around the clock with two barbers and two services (45 and 30 minutes, 80 in total).
func SeedSalon(t *testing.T, db DBLike) Salon {
	t.Helper()

	tenantID := uuid.New()
	shopID := CreateTestShop(t, db, tenantID, "Main street", "UTC")
	for day := range 7 {
		SetWorkingHours(t, db, tenantID, shopID, time.Weekday(day), 0, 0, true)
	}

	barbers := []uuid.UUID{
		uuid.MustParse("00000000-0000-0000-0000-0000000000b1"),
		uuid.MustParse("00000000-0000-0000-0000-0000000000b2"),
	}
	for _, id := range barbers {
		AddStaff(t, db, tenantID, shopID, id, "barber")
	}

	return Salon{
		TenantID: tenantID,
		ShopID:   shopID,
		Barbers:  barbers,
		Services: []uuid.UUID{
			CreateTestService(t, db, tenantID, shopID, "Cut", 45, 50),
			CreateTestService(t, db, tenantID, shopID, "Wash", 30, 30),
		},
	}
}

func CreateTestShop(t *testing.T, db DBLike, tenantID uuid.UUID, name, timezone string) uuid.UUID {
	t.Helper()

	shopID := uuid.New()
	_, err := db.Exec(context.Background(),
		"INSERT INTO shops (id, tenant_id, name, timezone) VALUES ($1, $2, $3, NULLIF($4, ''))",
		shopID, tenantID, name, timezone)
	require.NoError(t, err)
	return shopID
}

func CreateTestService(t *testing.T, db DBLike, tenantID, shopID uuid.UUID, name string, minutes int, price float64) uuid.UUID {
	t.Helper()

	serviceID := uuid.New()
	_, err := db.Exec(context.Background(),
		"INSERT INTO services (id, tenant_id, shop_id, name, duration_minutes, price) VALUES ($1, $2, $3, $4, $5, $6)",
		serviceID, tenantID, shopID, name, minutes, price)
	require.NoError(t, err)
	return serviceID
}

func AddStaff(t *testing.T, db DBLike, tenantID, shopID, userID uuid.UUID, role string) {
	t.Helper()

	_, err := db.Exec(context.Background(),
		"INSERT INTO shop_staff (tenant_id, shop_id, user_id, role) VALUES ($1, $2, $3, $4)",
		tenantID, shopID, userID, role)
	require.NoError(t, err)
}

func SetWorkingHours(t *testing.T, db DBLike, tenantID, shopID uuid.UUID, weekday time.Weekday, openMin, closeMin int, open24h bool) {
	t.Helper()

	ctx := context.Background()
	_, err := db.Exec(ctx,
		"DELETE FROM shop_working_hours WHERE tenant_id = $1 AND shop_id = $2 AND weekday = $3",
		tenantID, shopID, int(weekday))
	require.NoError(t, err)
	_, err = db.Exec(ctx,
		"INSERT INTO shop_working_hours (tenant_id, shop_id, weekday, open_minutes, close_minutes, open_24h) VALUES ($1, $2, $3, $4, $5, $6)",
		tenantID, shopID, int(weekday), openMin, closeMin, open24h)
	require.NoError(t, err)
}

// SetSetting stores a raw JSON value in tenant_settings.
func SetSetting(t *testing.T, db DBLike, tenantID uuid.UUID, key, value string) {
	t.Helper()

	_, err := db.Exec(context.Background(),
		`INSERT INTO tenant_settings (tenant_id, key, value) VALUES ($1, $2, $3::jsonb)
		 ON CONFLICT (tenant_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		tenantID, key, value)
	require.NoError(t, err)
}

func CountRows(t *testing.T, db DBLike, query string, args ...any) int {
	t.Helper()

	var n int
	require.NoError(t, db.QueryRow(context.Background(), query, args...).Scan(&n))
	return n
}

var (
	buildTruncateOnce sync.Once
	truncateSQL       atomic.Value // string
)

// truncates all tables
func ResetDB(pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	buildTruncateOnce.Do(func() {
		rows, err := pool.Query(ctx, `
		  SELECT 'public.' || quote_ident(tablename)
		  FROM pg_tables
		  WHERE schemaname = 'public'
		    AND tablename NOT IN ('schema_migrations')`)
		if err != nil {
			truncateSQL.Store("")
			return
		}
		defer rows.Close()
		var tables []string
		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				truncateSQL.Store("")
				return
			}
			tables = append(tables, t)
		}
		if rows.Err() != nil {
			truncateSQL.Store("")
			return
		}
		if len(tables) == 0 {
			truncateSQL.Store("SELECT 1")
			return
		}
		truncateSQL.Store("TRUNCATE " + strings.Join(tables, ", ") + " CASCADE;")
	})
	sqlAny := truncateSQL.Load()
	if sqlAny == nil || sqlAny.(string) == "" {
		return fmt.Errorf("failed to build TRUNCATE SQL")
	}
	_, err := pool.Exec(ctx, sqlAny.(string))
	return err
}
