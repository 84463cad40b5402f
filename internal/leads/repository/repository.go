package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"leadflow_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("lead not found")
	// ErrStatusMismatch means a status-guarded update found a different status.
	ErrStatusMismatch = errors.New("lead status changed concurrently")
	// ErrDuplicateExternalID means another lead of the company already holds
	// the external contact id.
	ErrDuplicateExternalID = errors.New("external contact id already in use")
)

const (
	pgUniqueViolation          = "23505"
	externalContactIDUniqueIdx = "leads_company_external_contact_unique"
)

// querier is the subset of pgx shared by the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository struct {
	pool *pgxpool.Pool
	q    querier
	inTx bool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, q: pool}
}

// WithTx runs fn in a transaction. Nested calls reuse the open transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(tx LeadStore) error) error {
	if r.inTx {
		return fn(r)
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&Repository{pool: r.pool, q: tx, inTx: true})
	})
}

const leadColumns = `id, company_id, external_contact_id, name, phone, email, address, city, state, zip,
	buyer_type, company_name, project_type, referral_source, lead_source, notes, contract_price_cents,
	not_sold_reason, status, appointment_date, appointment_time, install_date, install_tentative,
	sync_source, last_synced_at, created_at, updated_at`

func scanLead(row pgx.Row) (domain.Lead, error) {
	var (
		lead       domain.Lead
		status     string
		syncSource string
	)
	err := row.Scan(
		&lead.ID, &lead.CompanyID, &lead.ExternalContactID, &lead.Name, &lead.Phone, &lead.Email,
		&lead.Address, &lead.City, &lead.State, &lead.Zip,
		&lead.BuyerType, &lead.CompanyName, &lead.ProjectType, &lead.ReferralSource, &lead.LeadSource,
		&lead.Notes, &lead.ContractPriceCents,
		&lead.NotSoldReason, &status, &lead.AppointmentDate, &lead.AppointmentTime, &lead.InstallDate, &lead.InstallTentative,
		&syncSource, &lead.LastSyncedAt, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return domain.Lead{}, err
	}
	lead.Status = domain.Status(status)
	lead.SyncSource = domain.SyncSource(syncSource)
	return lead, nil
}

func (r *Repository) queryOne(ctx context.Context, query string, args ...any) (domain.Lead, error) {
	lead, err := scanLead(r.q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, companyID uuid.UUID) (domain.Lead, error) {
	return r.queryOne(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1 AND company_id = $2`, id, companyID)
}

func (r *Repository) LockByID(ctx context.Context, id uuid.UUID, companyID uuid.UUID) (domain.Lead, error) {
	return r.queryOne(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1 AND company_id = $2 FOR UPDATE`, id, companyID)
}

func (r *Repository) FindByExternalID(ctx context.Context, companyID uuid.UUID, externalID string) (domain.Lead, error) {
	return r.queryOne(ctx, `
		SELECT `+leadColumns+`
		FROM leads WHERE company_id = $1 AND external_contact_id = $2
	`, companyID, externalID)
}

// FindByPhone returns the most recently created lead with the phone.
func (r *Repository) FindByPhone(ctx context.Context, companyID uuid.UUID, phone string) (domain.Lead, error) {
	return r.queryOne(ctx, `
		SELECT `+leadColumns+`
		FROM leads WHERE company_id = $1 AND phone = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, companyID, phone)
}

// FindByEmail returns the most recently created lead with the email.
func (r *Repository) FindByEmail(ctx context.Context, companyID uuid.UUID, email string) (domain.Lead, error) {
	return r.queryOne(ctx, `
		SELECT `+leadColumns+`
		FROM leads WHERE company_id = $1 AND email = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, companyID, email)
}

// CreateLead inserts lead and returns the stored row. ID is always
// store-assigned; zero timestamps default to now().
func (r *Repository) CreateLead(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	created, err := r.queryOne(ctx, `
		INSERT INTO leads (
			company_id, external_contact_id, name, phone, email, address, city, state, zip,
			buyer_type, company_name, project_type, referral_source, lead_source, notes, contract_price_cents,
			not_sold_reason, status, appointment_date, appointment_time, install_date, install_tentative,
			sync_source, last_synced_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9,
			$10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22,
			$23, $24, COALESCE($25, now()), COALESCE($26, now())
		)
		RETURNING `+leadColumns,
		lead.CompanyID, lead.ExternalContactID, lead.Name, lead.Phone, lead.Email, lead.Address, lead.City, lead.State, lead.Zip,
		lead.BuyerType, lead.CompanyName, lead.ProjectType, lead.ReferralSource, lead.LeadSource, lead.Notes, lead.ContractPriceCents,
		lead.NotSoldReason, string(lead.Status), lead.AppointmentDate, lead.AppointmentTime, lead.InstallDate, lead.InstallTentative,
		string(lead.SyncSource), lead.LastSyncedAt, nullableTime(lead.CreatedAt), nullableTime(lead.UpdatedAt),
	)
	if isExternalIDConflict(err) {
		return domain.Lead{}, ErrDuplicateExternalID
	}
	return created, err
}

// UpdateLead builds one UPDATE from assignments. Write-once columns are
// guarded in SQL so a concurrent writer that already filled them wins.
func (r *Repository) UpdateLead(ctx context.Context, id uuid.UUID, companyID uuid.UUID, assignments []domain.Assignment, expectedStatus *domain.Status) (domain.Lead, error) {
	if len(assignments) == 0 && expectedStatus == nil {
		return r.GetByID(ctx, id, companyID)
	}

	query, args, err := buildLeadUpdate(id, companyID, assignments, expectedStatus)
	if err != nil {
		return domain.Lead{}, err
	}

	lead, err := r.queryOne(ctx, query, args...)
	if isExternalIDConflict(err) {
		return domain.Lead{}, ErrDuplicateExternalID
	}
	if errors.Is(err, ErrNotFound) && expectedStatus != nil {
		if _, getErr := r.GetByID(ctx, id, companyID); getErr == nil {
			return domain.Lead{}, ErrStatusMismatch
		}
	}
	return lead, err
}

func buildLeadUpdate(id uuid.UUID, companyID uuid.UUID, assignments []domain.Assignment, expectedStatus *domain.Status) (string, []interface{}, error) {
	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1
	touchedUpdatedAt := false

	for _, a := range lastPerField(assignments) {
		value, err := columnValue(a)
		if err != nil {
			return "", nil, err
		}
		column := string(a.Field)
		if domain.IsWriteOnce(a.Field) {
			setClauses = append(setClauses, fmt.Sprintf("%s = CASE WHEN COALESCE(%s, '') = '' THEN $%d ELSE %s END", column, column, argIdx, column))
		} else {
			setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		}
		args = append(args, value)
		argIdx++
		if a.Field == domain.FieldUpdatedAt {
			touchedUpdatedAt = true
		}
	}

	if !touchedUpdatedAt {
		setClauses = append(setClauses, "updated_at = now()")
	}

	where := fmt.Sprintf("id = $%d AND company_id = $%d", argIdx, argIdx+1)
	args = append(args, id, companyID)
	argIdx += 2
	if expectedStatus != nil {
		where += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(*expectedStatus))
	}

	query := fmt.Sprintf(`UPDATE leads SET %s WHERE %s RETURNING %s`, strings.Join(setClauses, ", "), where, leadColumns)
	return query, args, nil
}

// MarkSynced records a completed outbound push without touching updated_at.
func (r *Repository) MarkSynced(ctx context.Context, id uuid.UUID, companyID uuid.UUID, at time.Time, externalContactID string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE leads
		SET last_synced_at = $3,
			external_contact_id = COALESCE(external_contact_id, NULLIF($4, ''))
		WHERE id = $1 AND company_id = $2
	`, id, companyID, at, externalContactID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type ListParams struct {
	CompanyID uuid.UUID
	Status    *domain.Status
	Search    string
	Offset    int
	Limit     int
	SortBy    string
	SortOrder string
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]domain.Lead, int, error) {
	whereClause, args, argIdx := buildLeadListWhere(params)

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM leads WHERE %s", whereClause)
	if err := r.q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortColumn := mapLeadSortColumn(params.SortBy)
	sortOrder := "DESC"
	if params.SortOrder == "asc" {
		sortOrder = "ASC"
	}

	args = append(args, params.Limit, params.Offset)

	query := fmt.Sprintf(`
		SELECT %s
		FROM leads
		WHERE %s
		ORDER BY %s %s, id
		LIMIT $%d OFFSET $%d
	`, leadColumns, whereClause, sortColumn, sortOrder, argIdx, argIdx+1)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	leads := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		leads = append(leads, lead)
	}

	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}

	return leads, total, nil
}

func buildLeadListWhere(params ListParams) (string, []interface{}, int) {
	// Company ID is always the first filter (mandatory for tenant isolation)
	whereClauses := []string{"company_id = $1"}
	args := []interface{}{params.CompanyID}
	argIdx := 2

	if params.Status != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, string(*params.Status))
		argIdx++
	}
	if params.Search != "" {
		searchPattern := "%" + params.Search + "%"
		whereClauses = append(whereClauses, fmt.Sprintf(
			"(name ILIKE $%d OR phone ILIKE $%d OR email ILIKE $%d OR city ILIKE $%d)",
			argIdx, argIdx, argIdx, argIdx,
		))
		args = append(args, searchPattern)
		argIdx++
	}

	return strings.Join(whereClauses, " AND "), args, argIdx
}

func mapLeadSortColumn(sortBy string) string {
	switch sortBy {
	case "name":
		return "name"
	case "status":
		return "status"
	case "city":
		return "city"
	case "appointmentDate":
		return "appointment_date"
	case "updatedAt":
		return "updated_at"
	default:
		return "created_at"
	}
}

// columnValue converts an assignment into a driver value, rejecting
// unknown fields and unexpected value types.
func columnValue(a domain.Assignment) (any, error) {
	switch a.Field {
	case domain.FieldName, domain.FieldPhone, domain.FieldEmail, domain.FieldAddress, domain.FieldCity,
		domain.FieldState, domain.FieldZip, domain.FieldBuyerType, domain.FieldCompanyName,
		domain.FieldProjectType, domain.FieldReferralSource, domain.FieldLeadSource, domain.FieldNotes,
		domain.FieldNotSoldReason, domain.FieldAppointmentTime:
		if v, ok := a.Value.(string); ok {
			return v, nil
		}
	case domain.FieldExternalContactID:
		if v, ok := a.Value.(*string); ok {
			return v, nil
		}
	case domain.FieldContractPriceCents:
		if v, ok := a.Value.(*int64); ok {
			return v, nil
		}
	case domain.FieldAppointmentDate, domain.FieldInstallDate, domain.FieldLastSyncedAt:
		if v, ok := a.Value.(*time.Time); ok {
			return v, nil
		}
	case domain.FieldUpdatedAt:
		if v, ok := a.Value.(*time.Time); ok && v != nil {
			return *v, nil
		}
	case domain.FieldInstallTentative:
		if v, ok := a.Value.(bool); ok {
			return v, nil
		}
	case domain.FieldStatus:
		if v, ok := a.Value.(domain.Status); ok {
			return string(v), nil
		}
	case domain.FieldSyncSource:
		if v, ok := a.Value.(domain.SyncSource); ok {
			return string(v), nil
		}
	default:
		return nil, fmt.Errorf("lead field %q is not assignable", a.Field)
	}
	return nil, fmt.Errorf("lead field %q: unexpected value type %T", a.Field, a.Value)
}

// lastPerField keeps the final assignment of each field, in first-seen
// order; Postgres rejects two assignments to one column.
func lastPerField(assignments []domain.Assignment) []domain.Assignment {
	index := make(map[domain.Field]int, len(assignments))
	out := make([]domain.Assignment, 0, len(assignments))
	for _, a := range assignments {
		if i, ok := index[a.Field]; ok {
			out[i] = a
			continue
		}
		index[a.Field] = len(out)
		out = append(out, a)
	}
	return out
}

func isExternalIDConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == externalContactIDUniqueIdx
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
