package accounts

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// Repository resolves the owning account of an inbound call.
type Repository interface {
	FindByVapiPhoneNumber(ctx context.Context, phoneNumberID string) (Account, error)
	Get(ctx context.Context, id string) (Account, error)
}

// NOTE: PostgresRepository reads the users table maintained by the dashboard.
// vapi_phone_number holds the vendor's phone-number id, not the E.164 number.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `id, email, business_name, booking_link, auto_sms_enabled, vapi_phone_number, notification_preferences`

func (p *PostgresRepository) FindByVapiPhoneNumber(ctx context.Context, phoneNumberID string) (Account, error) {
	phoneNumberID = strings.TrimSpace(phoneNumberID)
	if phoneNumberID == "" {
		return Account{}, ErrNotFound
	}
	const q = `
SELECT ` + accountColumns + `
FROM users
WHERE vapi_phone_number = $1
LIMIT 1
`
	return scanAccount(p.db.QueryRowContext(ctx, q, phoneNumberID))
}

func (p *PostgresRepository) Get(ctx context.Context, id string) (Account, error) {
	const q = `
SELECT ` + accountColumns + `
FROM users
WHERE id = $1
`
	return scanAccount(p.db.QueryRowContext(ctx, q, id))
}

func scanAccount(row *sql.Row) (Account, error) {
	var (
		a        Account
		email    sql.NullString
		business sql.NullString
		booking  sql.NullString
		autoSMS  sql.NullBool
		vapiID   sql.NullString
		prefsRaw []byte
	)
	if err := row.Scan(&a.ID, &email, &business, &booking, &autoSMS, &vapiID, &prefsRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	a.Email = email.String
	a.BusinessName = business.String
	a.BookingLink = booking.String
	a.AutoSMSEnabled = autoSMS.Bool
	a.VapiPhoneNumber = vapiID.String
	a.Preferences = parsePreferences(prefsRaw)
	return a, nil
}
