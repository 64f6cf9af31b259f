package service

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/utafrali/shopcart/internal/auth"
	"github.com/utafrali/shopcart/internal/domain"
	"github.com/utafrali/shopcart/internal/event"
	pkgkafka "github.com/utafrali/shopcart/pkg/kafka"
)

// --- Mock Account Repository ---

type mockAccountRepository struct {
	mock.Mock
}

func (m *mockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *mockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *mockAccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *mockAccountRepository) List(ctx context.Context) ([]domain.Account, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Account), args.Error(1)
}

// --- Mock Session Repository ---

type mockSessionRepository struct {
	mock.Mock
}

func (m *mockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *mockSessionRepository) GetActiveByAccount(ctx context.Context, accountID string) (*domain.Session, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *mockSessionRepository) DeleteExpired(ctx context.Context, accountID string) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *mockSessionRepository) Revoke(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

func (m *mockSessionRepository) RevokeByAccount(ctx context.Context, accountID string) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

// --- Mock Item Repository ---

type mockItemRepository struct {
	mock.Mock
}

func (m *mockItemRepository) Create(ctx context.Context, item *domain.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *mockItemRepository) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Item), args.Error(1)
}

func (m *mockItemRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Item, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]domain.Item), args.Error(1)
}

func (m *mockItemRepository) List(ctx context.Context) ([]domain.Item, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Item), args.Error(1)
}

// --- Mock Cart Repository ---

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) AddLine(ctx context.Context, ownerID, itemID string, quantity int) error {
	args := m.Called(ctx, ownerID, itemID, quantity)
	return args.Error(0)
}

func (m *mockCartRepository) RemoveLine(ctx context.Context, ownerID, itemID string) error {
	args := m.Called(ctx, ownerID, itemID)
	return args.Error(0)
}

func (m *mockCartRepository) Get(ctx context.Context, ownerID string) (*domain.Cart, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepository) ListAll(ctx context.Context) ([]domain.Cart, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Cart), args.Error(1)
}

// --- Mock Order Repository ---

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) CreateFromCart(ctx context.Context, order *domain.Order, expectedVersion int64) error {
	args := m.Called(ctx, order, expectedVersion)
	return args.Error(0)
}

func (m *mockOrderRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Order, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *mockOrderRepository) GetByIDForOwner(ctx context.Context, id, ownerID string) (*domain.Order, error) {
	args := m.Called(ctx, id, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) ListAll(ctx context.Context) ([]domain.OrderSummary, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.OrderSummary), args.Error(1)
}

// --- Mock Catalog Gateway ---

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Resolve(ctx context.Context, itemID string) (*domain.Item, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Item), args.Error(1)
}

func (m *mockGateway) ResolveAll(ctx context.Context, itemIDs []string) (map[string]domain.Item, error) {
	args := m.Called(ctx, itemIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Item), args.Error(1)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestJWTManager() *auth.JWTManager {
	return auth.NewJWTManager("test-secret-key-for-testing", 24*time.Hour)
}

func newTestEventProducer() *event.Producer {
	logger := newTestLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	kafkaProducer := pkgkafka.NewProducer(kafkaCfg, logger)
	return event.NewProducer(kafkaProducer, logger)
}

// hashForTest creates a bcrypt hash with cost 4 for fast tests.
func hashForTest(password string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(password), 4)
	if err != nil {
		panic(err)
	}
	return string(h)
}
