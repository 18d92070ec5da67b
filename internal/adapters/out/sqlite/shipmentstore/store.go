// Package shipmentstore is the SQLite implementation of ports.DraftStore,
// used for single-node deployments and local development.
package shipmentstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"freight/internal/core/domain/model/kernel"
	"freight/internal/core/domain/model/shipment"
	"freight/internal/core/ports"
	"freight/internal/pkg/errs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var _ ports.DraftStore = (*SQLiteStore)(nil)

type SQLiteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open connects to dsn and applies pending migrations. ":memory:" is
// supported and keeps a single connection so every query sees the same database.
func Open(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err = runMigrations(db.DB); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type shipmentRow struct {
	ID             string         `db:"id"`
	ShipmentID     sql.NullString `db:"shipment_id"`
	CompanyID      string         `db:"company_id"`
	CreatedBy      string         `db:"created_by"`
	CreationMethod string         `db:"creation_method"`
	Status         string         `db:"status"`
	DocumentsState string         `db:"documents_state"`
	DraftVersion   int            `db:"draft_version"`
	Content        string         `db:"content"`
	Totals         string         `db:"totals"`
	Documents      string         `db:"documents"`
	CreatedAt      string         `db:"created_at"`
	UpdatedAt      string         `db:"updated_at"`
	BookedAt       sql.NullString `db:"booked_at"`

	// Copies of documents.attempts and documents.lastAttemptAt for the retry query.
	DocumentAttempts      int            `db:"document_attempts"`
	LastDocumentAttemptAt sql.NullString `db:"last_document_attempt_at"`
}

func (s *SQLiteStore) FindByField(
	ctx context.Context,
	field ports.Field,
	value string,
	limit int,
) ([]*shipment.Shipment, error) {
	return s.FindWhere(ctx, ports.Criteria{field: value}, limit)
}

func (s *SQLiteStore) FindWhere(ctx context.Context, criteria ports.Criteria, limit int) ([]*shipment.Shipment, error) {
	where, args, err := whereClause(criteria)
	if err != nil {
		return nil, err
	}

	query := "SELECT * FROM shipments WHERE " + where + " ORDER BY updated_at DESC, rowid DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	return s.selectShipments(ctx, query, args...)
}

func (s *SQLiteStore) FindDocumentRetries(ctx context.Context, maxAttempts, limit int) ([]*shipment.Shipment, error) {
	query := `
		SELECT * FROM shipments
		WHERE status = ?
			AND documents_state IN (?, ?, ?)
			AND document_attempts < ?
		ORDER BY COALESCE(last_document_attempt_at, booked_at, updated_at) ASC, rowid ASC`
	args := []any{
		shipment.Booked.String(),
		string(shipment.DocumentsPending), string(shipment.DocumentsPartial), string(shipment.DocumentsFailed),
		maxAttempts,
	}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.selectShipments(ctx, query, args...)
}

func (s *SQLiteStore) selectShipments(ctx context.Context, query string, args ...any) ([]*shipment.Shipment, error) {
	var rows []shipmentRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	out := make([]*shipment.Shipment, 0, len(rows))
	for i := range rows {
		sh, rowErr := rowToShipment(&rows[i])
		if rowErr != nil {
			return nil, rowErr
		}
		out = append(out, sh)
	}
	return out, nil
}

func (s *SQLiteStore) CountByField(ctx context.Context, field ports.Field, value string) (int64, error) {
	where, args, err := whereClause(ports.Criteria{field: value})
	if err != nil {
		return 0, err
	}

	var count int64
	err = s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM shipments WHERE "+where, args...)
	return count, err
}

func (s *SQLiteStore) GetByKey(ctx context.Context, key kernel.UUID) (*shipment.Shipment, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	var row shipmentRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM shipments WHERE id = ?", key.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NewObjectNotFoundError("shipment", key.String())
		}
		return nil, err
	}
	return rowToShipment(&row)
}

func (s *SQLiteStore) Insert(ctx context.Context, sh *shipment.Shipment) (kernel.UUID, error) {
	if err := sh.Validate(); err != nil {
		return kernel.UUID{}, err
	}
	if sh.IsPersisted() {
		return kernel.UUID{}, errs.NewValueIsInvalidErrorWithCause("shipment", errors.New("already has a record key"))
	}

	key := kernel.NewUUID()
	now := s.now().UTC()
	row, err := shipmentToRow(sh)
	if err != nil {
		return kernel.UUID{}, err
	}
	row.ID = key.String()
	row.CreatedAt = formatTime(now)
	row.UpdatedAt = row.CreatedAt

	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO shipments (
			id, shipment_id, company_id, created_by, creation_method, status,
			documents_state, draft_version, content, totals, documents,
			created_at, updated_at, booked_at,
			document_attempts, last_document_attempt_at
		) VALUES (
			:id, :shipment_id, :company_id, :created_by, :creation_method, :status,
			:documents_state, :draft_version, :content, :totals, :documents,
			:created_at, :updated_at, :booked_at,
			:document_attempts, :last_document_attempt_at
		)`, row)
	if err != nil {
		return kernel.UUID{}, err
	}
	return key, nil
}

func (s *SQLiteStore) Update(ctx context.Context, sh *shipment.Shipment) error {
	if err := sh.Validate(); err != nil {
		return err
	}
	if err := sh.Key().Validate(); err != nil {
		return err
	}

	row, err := shipmentToRow(sh)
	if err != nil {
		return err
	}
	row.UpdatedAt = formatTime(s.now().UTC())

	query := `
		UPDATE shipments SET
			shipment_id = :shipment_id,
			status = :status,
			documents_state = :documents_state,
			draft_version = :draft_version,
			content = :content,
			totals = :totals,
			documents = :documents,
			updated_at = :updated_at,
			booked_at = :booked_at,
			document_attempts = :document_attempts,
			last_document_attempt_at = :last_document_attempt_at
		WHERE id = :id
			AND (shipment_id IS NULL OR shipment_id = :shipment_id)`
	if sh.Status() != shipment.Booked {
		query += " AND status <> '" + shipment.Booked.String() + "'"
	}

	result, err := s.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var exists int
	if err = s.db.GetContext(ctx, &exists, "SELECT COUNT(*) FROM shipments WHERE id = ?", row.ID); err != nil {
		return err
	}
	if exists == 0 {
		return errs.NewObjectNotFoundError("shipment", sh.Key().String())
	}
	return errs.NewStaleWriteError(sh.Key().String())
}

// whereClause builds a deterministic conjunction from already validated fields.
func whereClause(criteria ports.Criteria) (string, []any, error) {
	if err := criteria.Validate(); err != nil {
		return "", nil, err
	}

	fields := make([]string, 0, len(criteria))
	for f := range criteria {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+" = ?")
		args = append(args, criteria[ports.Field(f)])
	}
	return strings.Join(parts, " AND "), args, nil
}

func shipmentToRow(sh *shipment.Shipment) (shipmentRow, error) {
	snap := sh.Snapshot()

	content, err := json.Marshal(snap.Content)
	if err != nil {
		return shipmentRow{}, fmt.Errorf("encode content: %w", err)
	}
	totals, err := json.Marshal(snap.Totals)
	if err != nil {
		return shipmentRow{}, fmt.Errorf("encode totals: %w", err)
	}
	documents, err := json.Marshal(snap.Documents)
	if err != nil {
		return shipmentRow{}, fmt.Errorf("encode documents: %w", err)
	}

	row := shipmentRow{
		CompanyID:      snap.CompanyID,
		CreatedBy:      snap.CreatedBy,
		CreationMethod: snap.CreationMethod.String(),
		Status:         snap.Status.String(),
		DocumentsState: string(snap.Documents.State()),
		DraftVersion:   snap.DraftVersion,
		Content:        string(content),
		Totals:         string(totals),
		Documents:      string(documents),

		DocumentAttempts: snap.Documents.Attempts,
	}
	if !snap.Key.IsZero() {
		row.ID = snap.Key.String()
	}
	if !snap.ShipmentID.IsZero() {
		row.ShipmentID = sql.NullString{String: snap.ShipmentID.String(), Valid: true}
	}
	if snap.BookedAt != nil {
		row.BookedAt = sql.NullString{String: formatTime(*snap.BookedAt), Valid: true}
	}
	if at := snap.Documents.LastAttemptAt; at != nil {
		row.LastDocumentAttemptAt = sql.NullString{String: formatTime(*at), Valid: true}
	}
	return row, nil
}

func rowToShipment(row *shipmentRow) (*shipment.Shipment, error) {
	key, err := kernel.UUIDFromString(row.ID)
	if err != nil {
		return nil, err
	}

	snap := shipment.Snapshot{
		Key:          key,
		CompanyID:    row.CompanyID,
		CreatedBy:    row.CreatedBy,
		DraftVersion: row.DraftVersion,
	}
	if row.ShipmentID.Valid {
		if snap.ShipmentID, err = kernel.ParseShipmentID(row.ShipmentID.String); err != nil {
			return nil, err
		}
	}
	if snap.Status, err = shipment.ParseStatus(row.Status); err != nil {
		return nil, err
	}
	if snap.CreationMethod, err = shipment.ParseCreationMethod(row.CreationMethod); err != nil {
		return nil, err
	}
	if err = errors.Join(
		json.Unmarshal([]byte(row.Content), &snap.Content),
		json.Unmarshal([]byte(row.Totals), &snap.Totals),
		json.Unmarshal([]byte(row.Documents), &snap.Documents),
	); err != nil {
		return nil, fmt.Errorf("decode shipment %s: %w", row.ID, err)
	}
	if snap.CreatedAt, err = parseTime(row.CreatedAt); err != nil {
		return nil, err
	}
	if snap.UpdatedAt, err = parseTime(row.UpdatedAt); err != nil {
		return nil, err
	}
	if row.BookedAt.Valid {
		bookedAt, parseErr := parseTime(row.BookedAt.String)
		if parseErr != nil {
			return nil, parseErr
		}
		snap.BookedAt = &bookedAt
	}

	return shipment.RestoreShipment(snap)
}

// timeLayout has fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
