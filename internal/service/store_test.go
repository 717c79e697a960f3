package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/oasis-app/oasis-service/internal/models"
	"github.com/oasis-app/oasis-service/internal/repository"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	users        map[string]*models.User
	accounts     map[int64]*models.Account
	households   map[int64]models.HouseholdProfile
	eligibility  []models.EligibilityRecord
	transactions map[int64][]models.Transaction
	snapshots    []models.FinancialHealthSummary
	cards        []models.EBTCard
	messages     []models.ChatMessage

	failAccount     bool
	failEligibility bool
	nextID          int64
}

func newMemStore() *memStore {
	return &memStore{
		users:        map[string]*models.User{},
		accounts:     map[int64]*models.Account{},
		households:   map[int64]models.HouseholdProfile{},
		transactions: map[int64][]models.Transaction{},
	}
}

var errStore = errors.New("store unavailable")

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) CreateUser(_ context.Context, u *models.User) error {
	if _, ok := m.users[u.Email]; ok {
		return repository.ErrDuplicate
	}
	u.ID = m.id()
	cp := *u
	m.users[u.Email] = &cp
	m.accounts[u.ID] = &models.Account{ID: m.id(), UserID: u.ID, Currency: "USD"}
	return nil
}

func (m *memStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := m.users[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) ListAlertUsers(context.Context) ([]models.User, error) {
	out := []models.User{}
	for _, u := range m.users {
		if u.AlertsEnabled {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) FindAccountByUserID(_ context.Context, userID int64) (*models.Account, error) {
	if m.failAccount {
		return nil, errStore
	}
	a, ok := m.accounts[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) UpsertHousehold(_ context.Context, h *models.HouseholdProfile) error {
	m.households[h.UserID] = *h
	return nil
}

func (m *memStore) GetHousehold(_ context.Context, userID int64) (*models.HouseholdProfile, error) {
	h, ok := m.households[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &h, nil
}

func (m *memStore) SaveEligibility(_ context.Context, rec *models.EligibilityRecord) error {
	if m.failEligibility {
		return errStore
	}
	rec.ID = m.id()
	m.eligibility = append(m.eligibility, *rec)
	return nil
}

func (m *memStore) ListEligibility(_ context.Context, userID int64, limit uint64) ([]models.EligibilityRecord, error) {
	out := []models.EligibilityRecord{}
	for i := len(m.eligibility) - 1; i >= 0 && uint64(len(out)) < limit; i-- {
		if m.eligibility[i].UserID == userID {
			out = append(out, m.eligibility[i])
		}
	}
	return out, nil
}

func (m *memStore) AddTransaction(_ context.Context, t *models.Transaction) (float64, error) {
	t.ID = m.id()
	m.transactions[t.AccountID] = append(m.transactions[t.AccountID], *t)
	for _, a := range m.accounts {
		if a.ID == t.AccountID {
			if t.Type == models.TransactionExpense {
				a.Balance -= t.Amount
			} else {
				a.Balance += t.Amount
			}
			return a.Balance, nil
		}
	}
	return 0, repository.ErrNotFound
}

func (m *memStore) ListTransactions(_ context.Context, accountID int64, since time.Time) ([]models.Transaction, error) {
	out := []models.Transaction{}
	for _, t := range m.transactions[accountID] {
		if since.IsZero() || !t.OccurredAt.Before(since) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) SaveHealthSnapshot(_ context.Context, _ int64, h models.FinancialHealthSummary) error {
	m.snapshots = append(m.snapshots, h)
	return nil
}

func (m *memStore) CreateEBTCard(_ context.Context, c *models.EBTCard) error {
	for _, existing := range m.cards {
		if existing.UserID == c.UserID && existing.HMAC == c.HMAC {
			return repository.ErrDuplicate
		}
	}
	c.ID = m.id()
	m.cards = append(m.cards, *c)
	return nil
}

func (m *memStore) ListEBTCards(_ context.Context, userID int64) ([]models.EBTCard, error) {
	out := []models.EBTCard{}
	for _, c := range m.cards {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) UpdateEBTBalance(_ context.Context, userID, cardID int64, snap, cash float64) error {
	for i := range m.cards {
		if m.cards[i].ID == cardID && m.cards[i].UserID == userID {
			m.cards[i].SNAPBalance, m.cards[i].CashBalance = snap, cash
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memStore) SaveChatMessage(_ context.Context, msg *models.ChatMessage) error {
	msg.ID = m.id()
	m.messages = append(m.messages, *msg)
	return nil
}

func (m *memStore) ListChatMessages(_ context.Context, userID int64, conversationID string, limit uint64) ([]models.ChatMessage, error) {
	out := []models.ChatMessage{}
	for _, msg := range m.messages {
		if msg.UserID == userID && msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	if uint64(len(out)) > limit {
		out = out[uint64(len(out))-limit:]
	}
	return out, nil
}
