package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/oasis-app/oasis-service/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned on unique constraint violations.
var ErrDuplicate = errors.New("already exists")

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// CreateUser creates a new user together with an empty account.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO oasis.users (username, email, password_hash, alerts_enabled)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	err = tx.QueryRowContext(ctx, query, user.Username, user.Email, user.PasswordHash, user.AlertsEnabled).
		Scan(&user.ID, &user.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO oasis.accounts (user_id) VALUES ($1)`, user.ID); err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user: %w", err)
	}
	return nil
}

// FindUserByEmail retrieves a user by email
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, username, email, password_hash, alerts_enabled, created_at
		FROM oasis.users
		WHERE email = $1`
	err := r.db.QueryRowContext(ctx, query, email).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.AlertsEnabled, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// ListAlertUsers returns users that opted in to crisis alerts.
func (r *Repository) ListAlertUsers(ctx context.Context) ([]models.User, error) {
	query, args, err := psql.
		Select("id", "username", "email", "alerts_enabled", "created_at").
		From("oasis.users").
		Where(sq.Eq{"alerts_enabled": true}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.AlertsEnabled, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// FindAccountByUserID retrieves the user's account
func (r *Repository) FindAccountByUserID(ctx context.Context, userID int64) (*models.Account, error) {
	account := &models.Account{}
	query := `
		SELECT id, user_id, balance, currency, created_at, updated_at
		FROM oasis.accounts
		WHERE user_id = $1`
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&account.ID, &account.UserID, &account.Balance, &account.Currency, &account.CreatedAt, &account.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return account, nil
}

// UpsertHousehold stores the user's household profile
func (r *Repository) UpsertHousehold(ctx context.Context, h *models.HouseholdProfile) error {
	query := `
		INSERT INTO oasis.households (user_id, household_size, monthly_income, children, pregnant, zip_code, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id) DO UPDATE
		SET household_size = EXCLUDED.household_size,
		    monthly_income = EXCLUDED.monthly_income,
		    children = EXCLUDED.children,
		    pregnant = EXCLUDED.pregnant,
		    zip_code = EXCLUDED.zip_code,
		    updated_at = CURRENT_TIMESTAMP
		RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, h.UserID, h.HouseholdSize, h.MonthlyIncome, h.Children, h.Pregnant, h.ZipCode).
		Scan(&h.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save household: %w", err)
	}
	return nil
}

// GetHousehold retrieves the user's household profile
func (r *Repository) GetHousehold(ctx context.Context, userID int64) (*models.HouseholdProfile, error) {
	h := &models.HouseholdProfile{}
	query := `
		SELECT user_id, household_size, monthly_income, children, pregnant, zip_code, updated_at
		FROM oasis.households
		WHERE user_id = $1`
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&h.UserID, &h.HouseholdSize, &h.MonthlyIncome, &h.Children, &h.Pregnant, &h.ZipCode, &h.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find household: %w", err)
	}
	return h, nil
}

// SaveEligibility appends a calculation to the user's history
func (r *Repository) SaveEligibility(ctx context.Context, rec *models.EligibilityRecord) error {
	household, err := json.Marshal(rec.Household)
	if err != nil {
		return fmt.Errorf("failed to encode household: %w", err)
	}
	result, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	query := `
		INSERT INTO oasis.eligibility_history (user_id, household, result, total_monthly)
		VALUES ($1, $2, $3, $4)
		RETURNING id, calculated_at`
	err = r.db.QueryRowContext(ctx, query, rec.UserID, household, result, rec.Result.TotalMonthly).
		Scan(&rec.ID, &rec.CalculatedAt)
	if err != nil {
		return fmt.Errorf("failed to save eligibility: %w", err)
	}
	return nil
}

// ListEligibility returns the user's most recent calculations, newest first
func (r *Repository) ListEligibility(ctx context.Context, userID int64, limit uint64) ([]models.EligibilityRecord, error) {
	query, args, err := eligibilityQuery(userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligibility: %w", err)
	}
	defer rows.Close()

	records := make([]models.EligibilityRecord, 0)
	for rows.Next() {
		var (
			rec               models.EligibilityRecord
			household, result []byte
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &household, &result, &rec.CalculatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan eligibility: %w", err)
		}
		if err := json.Unmarshal(household, &rec.Household); err != nil {
			return nil, fmt.Errorf("failed to decode household: %w", err)
		}
		if err := json.Unmarshal(result, &rec.Result); err != nil {
			return nil, fmt.Errorf("failed to decode result: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func eligibilityQuery(userID int64, limit uint64) (string, []any, error) {
	return psql.
		Select("id", "user_id", "household", "result", "calculated_at").
		From("oasis.eligibility_history").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("calculated_at DESC", "id DESC").
		Limit(limit).
		ToSql()
}

// AddTransaction records a transaction and applies it to the account balance
func (r *Repository) AddTransaction(ctx context.Context, t *models.Transaction) (float64, error) {
	delta := t.Amount
	if t.Type == models.TransactionExpense {
		delta = -t.Amount
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO oasis.transactions (account_id, amount, type, category, description, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	err = tx.QueryRowContext(ctx, query, t.AccountID, t.Amount, t.Type, t.Category, t.Description, t.OccurredAt).
		Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to create transaction: %w", err)
	}

	var balance float64
	err = tx.QueryRowContext(ctx, `
		UPDATE oasis.accounts SET balance = balance + $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
		RETURNING balance`, delta, t.AccountID).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("failed to update balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return balance, nil
}

// ListTransactions returns an account's transactions since the given time,
// oldest first. A zero since returns everything.
func (r *Repository) ListTransactions(ctx context.Context, accountID int64, since time.Time) ([]models.Transaction, error) {
	query, args, err := transactionsQuery(accountID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]models.Transaction, 0)
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Amount, &t.Type, &t.Category, &t.Description, &t.OccurredAt, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func transactionsQuery(accountID int64, since time.Time) (string, []any, error) {
	builder := psql.
		Select("id", "account_id", "amount", "type", "category", "description", "occurred_at", "created_at").
		From("oasis.transactions").
		Where(sq.Eq{"account_id": accountID}).
		OrderBy("occurred_at", "id")
	if !since.IsZero() {
		builder = builder.Where(sq.GtOrEq{"occurred_at": since})
	}
	return builder.ToSql()
}

// SaveHealthSnapshot stores a financial health summary
func (r *Repository) SaveHealthSnapshot(ctx context.Context, userID int64, h models.FinancialHealthSummary) error {
	query := `
		INSERT INTO oasis.health_snapshots (user_id, score, crisis_date, days_until_crisis, recommendations)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, userID, h.Score, h.CrisisDate, h.DaysUntilCrisis, pq.Array(h.Recommendations))
	if err != nil {
		return fmt.Errorf("failed to save health snapshot: %w", err)
	}
	return nil
}

// CreateEBTCard stores a linked card; CardNumber must already be encrypted
func (r *Repository) CreateEBTCard(ctx context.Context, card *models.EBTCard) error {
	query := `
		INSERT INTO oasis.ebt_cards (user_id, card_number, hmac, snap_balance, cash_balance)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, card.UserID, card.CardNumber, card.HMAC, card.SNAPBalance, card.CashBalance).
		Scan(&card.ID, &card.CreatedAt, &card.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

// ListEBTCards returns the user's cards with encrypted card numbers
func (r *Repository) ListEBTCards(ctx context.Context, userID int64) ([]models.EBTCard, error) {
	query := `
		SELECT id, user_id, card_number, hmac, snap_balance, cash_balance, created_at, updated_at
		FROM oasis.ebt_cards
		WHERE user_id = $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	cards := make([]models.EBTCard, 0)
	for rows.Next() {
		var c models.EBTCard
		if err := rows.Scan(&c.ID, &c.UserID, &c.CardNumber, &c.HMAC, &c.SNAPBalance, &c.CashBalance, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// UpdateEBTBalance sets the balances of a user's card
func (r *Repository) UpdateEBTBalance(ctx context.Context, userID, cardID int64, snap, cash float64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE oasis.ebt_cards
		SET snap_balance = $1, cash_balance = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3 AND user_id = $4`, snap, cash, cardID, userID)
	if err != nil {
		return fmt.Errorf("failed to update card balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update card balance: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveChatMessage appends a message to a conversation
func (r *Repository) SaveChatMessage(ctx context.Context, m *models.ChatMessage) error {
	query := `
		INSERT INTO oasis.chat_messages (user_id, conversation_id, role, intent, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, m.UserID, m.ConversationID, m.Role, m.Intent, m.Content).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save chat message: %w", err)
	}
	return nil
}

// ListChatMessages returns the last limit messages of a conversation, oldest first
func (r *Repository) ListChatMessages(ctx context.Context, userID int64, conversationID string, limit uint64) ([]models.ChatMessage, error) {
	query, args, err := chatWindowQuery(userID, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]models.ChatMessage, 0)
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.ConversationID, &m.Role, &m.Intent, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// chatWindowQuery selects the newest limit messages and re-sorts them
// oldest first.
func chatWindowQuery(userID int64, conversationID string, limit uint64) (string, []any, error) {
	recent := psql.
		Select("id", "user_id", "conversation_id", "role", "intent", "content", "created_at").
		From("oasis.chat_messages").
		Where(sq.Eq{"user_id": userID, "conversation_id": conversationID}).
		OrderBy("id DESC").
		Limit(limit)
	return psql.
		Select("*").
		FromSelect(recent, "recent").
		OrderBy("id").
		ToSql()
}
