package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"claims-portal/internal/domain"
	"claims-portal/internal/repository"
)

const createClaimTables = `
CREATE TABLE IF NOT EXISTS claims (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	policy_number TEXT NOT NULL DEFAULT '',
	policyholder_id TEXT NOT NULL,
	policyholder_name TEXT NOT NULL DEFAULT '',
	claim_type TEXT NOT NULL DEFAULT '',
	date_of_incident TEXT NOT NULL DEFAULT '',
	claimed_amount REAL NOT NULL DEFAULT 0,
	description TEXT NOT NULL DEFAULT '',
	fraud INTEGER NULL,
	status TEXT NOT NULL,
	ledger_topic_id TEXT NOT NULL DEFAULT '',
	ledger_transaction_id TEXT NOT NULL DEFAULT '',
	ledger_raw TEXT NULL
);
CREATE TABLE IF NOT EXISTS claim_documents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	claim_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	size INTEGER NOT NULL DEFAULT 0,
	url TEXT NOT NULL DEFAULT '',
	data_url TEXT NOT NULL DEFAULT '',
	FOREIGN KEY(claim_id) REFERENCES claims(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_claim_documents_claim_id ON claim_documents(claim_id);
CREATE TABLE IF NOT EXISTS claim_status_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	claim_id TEXT NOT NULL,
	status TEXT NOT NULL,
	recorded_at TEXT NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	FOREIGN KEY(claim_id) REFERENCES claims(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_claim_status_history_claim_id ON claim_status_history(claim_id);
`

const selectClaimColumns = `
SELECT id, policy_number, policyholder_id, policyholder_name, claim_type, date_of_incident, claimed_amount, description, fraud, status, ledger_topic_id, ledger_transaction_id, ledger_raw
FROM claims`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type ClaimRepository struct {
	db *sql.DB
}

func NewClaimRepository(db *sql.DB) repository.ClaimRepository {
	return &ClaimRepository{db: db}
}

func (r *ClaimRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createClaimTables); err != nil {
		return fmt.Errorf("create claim tables: %w", err)
	}
	return nil
}

func (r *ClaimRepository) Seed(ctx context.Context, claims []domain.Claim) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM claim_status_history`, `DELETE FROM claim_documents`, `DELETE FROM claims`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear claims: %w", err)
		}
	}

	// oldest first so the highest sequence belongs to the first claim shown
	for i := len(claims) - 1; i >= 0; i-- {
		if err := insertClaim(ctx, tx, claims[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

func (r *ClaimRepository) List(ctx context.Context) ([]domain.Claim, error) {
	rows, err := r.db.QueryContext(ctx, selectClaimColumns+` ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}

	var claims []domain.Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		claims = append(claims, *claim)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate claims: %w", err)
	}
	rows.Close()

	docs, err := r.loadDocuments(ctx, "")
	if err != nil {
		return nil, err
	}
	history, err := r.loadHistory(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range claims {
		claims[i].Documents = docs[claims[i].ID]
		if claims[i].Documents == nil {
			claims[i].Documents = []domain.ClaimFile{}
		}
		claims[i].StatusHistory = history[claims[i].ID]
	}
	return claims, nil
}

func (r *ClaimRepository) Get(ctx context.Context, id string) (*domain.Claim, error) {
	row := r.db.QueryRowContext(ctx, selectClaimColumns+` WHERE id=?`, id)
	claim, err := scanClaim(row)
	if err != nil {
		return nil, err
	}

	docs, err := r.loadDocuments(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := r.loadHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	claim.Documents = docs[id]
	if claim.Documents == nil {
		claim.Documents = []domain.ClaimFile{}
	}
	claim.StatusHistory = history[id]
	return claim, nil
}

func (r *ClaimRepository) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM claims WHERE id=?`, id).Scan(&n); err != nil {
		return false, fmt.Errorf("count claim: %w", err)
	}
	return n > 0, nil
}

func (r *ClaimRepository) Insert(ctx context.Context, claim domain.Claim) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM claims WHERE id=?`, claim.ID).Scan(&n); err != nil {
		return fmt.Errorf("count claim: %w", err)
	}
	if n > 0 {
		return repository.ErrDuplicateClaim
	}
	if err := insertClaim(ctx, tx, claim); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit claim insert: %w", err)
	}
	return nil
}

func (r *ClaimRepository) AppendStatus(ctx context.Context, id string, update domain.ClaimStatusUpdate) (*domain.Claim, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE claims SET status=? WHERE id=?`, string(update.Status), id)
	if err != nil {
		return nil, fmt.Errorf("update claim status: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("claim status rows affected: %w", err)
	}
	if aff == 0 {
		return nil, repository.ErrClaimNotFound
	}
	if err := insertHistory(ctx, tx, id, update); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit status update: %w", err)
	}

	return r.Get(ctx, id)
}

// Close drops the in-memory database with the last connection.
func (r *ClaimRepository) Close() error {
	return r.db.Close()
}

func insertClaim(ctx context.Context, db execer, claim domain.Claim) error {
	var (
		fraud     any
		topicID   string
		txID      string
		ledgerRaw any
	)
	if claim.Fraud != nil {
		fraud = *claim.Fraud
	}
	if claim.Ledger != nil {
		topicID = claim.Ledger.TopicID
		txID = claim.Ledger.TransactionID
		if len(claim.Ledger.Raw) > 0 {
			ledgerRaw = string(claim.Ledger.Raw)
		}
	}

	if _, err := db.ExecContext(ctx, `
INSERT INTO claims (id, policy_number, policyholder_id, policyholder_name, claim_type, date_of_incident, claimed_amount, description, fraud, status, ledger_topic_id, ledger_transaction_id, ledger_raw)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		claim.ID,
		claim.PolicyNumber,
		claim.PolicyholderID,
		claim.PolicyholderName,
		claim.ClaimType,
		claim.DateOfIncident,
		claim.ClaimedAmount,
		claim.Description,
		fraud,
		string(claim.Status),
		topicID,
		txID,
		ledgerRaw,
	); err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return repository.ErrDuplicateClaim
		}
		return fmt.Errorf("insert claim: %w", err)
	}

	for i, doc := range claim.Documents {
		if _, err := db.ExecContext(ctx, `
INSERT INTO claim_documents (claim_id, position, name, type, size, url, data_url)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
			claim.ID,
			i,
			doc.Name,
			doc.Type,
			doc.Size,
			doc.URL,
			doc.DataURL,
		); err != nil {
			return fmt.Errorf("insert claim document: %w", err)
		}
	}

	for _, update := range claim.StatusHistory {
		if err := insertHistory(ctx, db, claim.ID, update); err != nil {
			return err
		}
	}
	return nil
}

func insertHistory(ctx context.Context, db execer, claimID string, update domain.ClaimStatusUpdate) error {
	if _, err := db.ExecContext(ctx, `
INSERT INTO claim_status_history (claim_id, status, recorded_at, notes)
VALUES (?, ?, ?, ?)`,
		claimID,
		string(update.Status),
		update.Timestamp.UTC().Format(time.RFC3339Nano),
		update.Notes,
	); err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}
	return nil
}

// loadDocuments returns documents grouped by claim id. An empty id loads all.
func (r *ClaimRepository) loadDocuments(ctx context.Context, id string) (map[string][]domain.ClaimFile, error) {
	query := `SELECT claim_id, name, type, size, url, data_url FROM claim_documents`
	var args []any
	if id != "" {
		query += ` WHERE claim_id=?`
		args = append(args, id)
	}
	query += ` ORDER BY claim_id, position ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query claim documents: %w", err)
	}
	defer rows.Close()

	out := map[string][]domain.ClaimFile{}
	for rows.Next() {
		var (
			claimID string
			doc     domain.ClaimFile
		)
		if err := rows.Scan(&claimID, &doc.Name, &doc.Type, &doc.Size, &doc.URL, &doc.DataURL); err != nil {
			return nil, fmt.Errorf("scan claim document: %w", err)
		}
		out[claimID] = append(out[claimID], doc)
	}
	return out, rows.Err()
}

// loadHistory returns status history grouped by claim id in insertion order.
func (r *ClaimRepository) loadHistory(ctx context.Context, id string) (map[string][]domain.ClaimStatusUpdate, error) {
	query := `SELECT claim_id, status, recorded_at, notes FROM claim_status_history`
	var args []any
	if id != "" {
		query += ` WHERE claim_id=?`
		args = append(args, id)
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query status history: %w", err)
	}
	defer rows.Close()

	out := map[string][]domain.ClaimStatusUpdate{}
	for rows.Next() {
		var (
			claimID    string
			status     string
			recordedAt string
			update     domain.ClaimStatusUpdate
		)
		if err := rows.Scan(&claimID, &status, &recordedAt, &update.Notes); err != nil {
			return nil, fmt.Errorf("scan status history: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("parse status timestamp: %w", err)
		}
		update.Status = domain.ClaimStatus(status)
		update.Timestamp = ts
		out[claimID] = append(out[claimID], update)
	}
	return out, rows.Err()
}

func scanClaim(scanner interface {
	Scan(dest ...any) error
}) (*domain.Claim, error) {
	var (
		claim     domain.Claim
		fraud     sql.NullInt64
		status    string
		topicID   string
		txID      string
		ledgerRaw sql.NullString
	)

	if err := scanner.Scan(
		&claim.ID,
		&claim.PolicyNumber,
		&claim.PolicyholderID,
		&claim.PolicyholderName,
		&claim.ClaimType,
		&claim.DateOfIncident,
		&claim.ClaimedAmount,
		&claim.Description,
		&fraud,
		&status,
		&topicID,
		&txID,
		&ledgerRaw,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrClaimNotFound
		}
		return nil, fmt.Errorf("scan claim: %w", err)
	}

	claim.Status = domain.ClaimStatus(status)
	if fraud.Valid {
		v := int(fraud.Int64)
		claim.Fraud = &v
	}
	if topicID != "" || txID != "" || ledgerRaw.Valid {
		claim.Ledger = &domain.LedgerRef{TopicID: topicID, TransactionID: txID}
		if ledgerRaw.Valid {
			claim.Ledger.Raw = json.RawMessage(ledgerRaw.String)
		}
	}

	return &claim, nil
}
