package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"ai-studytool-be/internal/entity"
	"ai-studytool-be/pkg/credit"
	"ai-studytool-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChargeDrawsFreeBeforePaid(t *testing.T) {
	f := newFixture(10)
	userId := uuid.New()
	f.store.seedWallet(userId, 10, 5, testNow)
	ctx := context.Background()

	res, err := f.wallet.Charge(ctx, ChargeRequest{UserId: userId, ToolType: "summary", Cost: 7})
	require.NoError(t, err)

	assert.Equal(t, credit.Allocation{Free: 5, Paid: 2}, res.Allocation)
	assert.Equal(t, 0, res.Wallet.FreeCredits)
	assert.Equal(t, 8, res.Wallet.PaidCredits)
	assert.Equal(t, 10, f.store.used(userId, testNow))
	assert.Equal(t, 8, f.store.paid(userId))

	require.Equal(t, 1, f.store.transactionCount())
	tx := f.store.transactions[0]
	assert.Equal(t, entity.CreditTransactionSpend, tx.TransactionType)
	assert.Equal(t, -7, tx.Amount)
	assert.Equal(t, 5, tx.FreeAmount)
	assert.Equal(t, 2, tx.PaidAmount)
	assert.Equal(t, 8, tx.PaidBalanceAfter)
	require.NotNil(t, tx.ServiceUsed)
	assert.Equal(t, "summary", *tx.ServiceUsed)

	spent := f.publisher.ofType(events.TypeCreditsSpent)
	require.Len(t, spent, 1)
	assert.Equal(t, 8, spent[0].(events.BaseEvent).Int("total_credits"))
}

func TestChargeRejectsWhenShortAndLeavesBalance(t *testing.T) {
	f := newFixture(2)
	userId := uuid.New()
	f.store.seedWallet(userId, 1, 0, testNow)

	_, err := f.wallet.Charge(context.Background(), ChargeRequest{UserId: userId, ToolType: "questions", Cost: 4})

	var insufficient *credit.InsufficientCreditsError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 4, insufficient.Required)
	assert.Equal(t, 3, insufficient.Available)
	assert.Equal(t, 1, f.store.paid(userId))
	assert.Equal(t, 0, f.store.used(userId, testNow))
	assert.Zero(t, f.store.transactionCount())
	assert.Empty(t, f.publisher.ofType(events.TypeCreditsSpent))
}

func TestChargeWithoutWallet(t *testing.T) {
	f := newFixture(10)

	_, err := f.wallet.Charge(context.Background(), ChargeRequest{UserId: uuid.New(), ToolType: "summary", Cost: 1})
	assert.ErrorIs(t, err, credit.ErrWalletNotFound)

	_, err = f.wallet.GetWallet(context.Background(), uuid.New())
	assert.ErrorIs(t, err, credit.ErrWalletNotFound)
}

func TestChargeRejectsNonPositiveCost(t *testing.T) {
	f := newFixture(10)
	userId := uuid.New()
	f.store.seedWallet(userId, 10, 0, testNow)

	_, err := f.wallet.Charge(context.Background(), ChargeRequest{UserId: userId, ToolType: "summary", Cost: 0})
	assert.ErrorIs(t, err, credit.ErrInvalidTool)
	assert.Zero(t, f.store.transactionCount())
}

func TestConcurrentChargesNeverOverspend(t *testing.T) {
	const (
		attempts = 25
		cost     = 3
	)
	f := newFixture(5)
	userId := uuid.New()
	f.store.seedWallet(userId, 17, 0, testNow)
	total := 5 + 17

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		succeeded    int
		insufficient int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.wallet.Charge(context.Background(), ChargeRequest{UserId: userId, ToolType: "summary", Cost: cost})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if credit.IsInsufficientCredits(err) {
				insufficient++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, total/cost, succeeded)
	assert.Equal(t, attempts-total/cost, insufficient)
	assert.GreaterOrEqual(t, f.store.paid(userId), 0)
	assert.LessOrEqual(t, f.store.used(userId, testNow), 5)

	spent := f.store.used(userId, testNow) + (17 - f.store.paid(userId))
	assert.Equal(t, succeeded*cost, spent)
	assert.Equal(t, succeeded, f.store.transactionCount())
}

func TestDailyAllowanceResetsOnNewDate(t *testing.T) {
	f := newFixture(20)
	userId := uuid.New()
	f.store.seedWallet(userId, 3, 25, testNow)
	ctx := context.Background()

	w, err := f.wallet.GetWallet(ctx, userId)
	require.NoError(t, err)
	assert.Equal(t, 0, w.FreeCredits)
	assert.Equal(t, 25, w.UsedToday)
	assert.Equal(t, 3, w.TotalCredits)

	f.clock.Advance(24 * time.Hour)

	w, err = f.wallet.GetWallet(ctx, userId)
	require.NoError(t, err)
	assert.Equal(t, 20, w.FreeCredits)
	assert.Equal(t, 0, w.UsedToday)
	assert.Equal(t, 23, w.TotalCredits)
}

// tickingClock moves forward on every read, so any second Now() inside one charge
// would land on a different day when started just before midnight.
type tickingClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func TestChargeAcrossMidnightUsesOneUsageDay(t *testing.T) {
	f := newFixture(10)
	userId := uuid.New()
	lastSecond := time.Date(2026, 3, 10, 23, 59, 59, 0, time.UTC)
	f.store.seedWallet(userId, 0, 9, lastSecond)

	clock := &tickingClock{now: lastSecond, step: time.Second}
	wallets := NewWalletService(f.store, f.cache, clock, f.publisher, f.log)

	res, err := wallets.Charge(context.Background(), ChargeRequest{UserId: userId, ToolType: "summary", Cost: 1})
	require.NoError(t, err)

	assert.Equal(t, credit.Allocation{Free: 1}, res.Allocation)
	assert.Equal(t, 10, f.store.used(userId, lastSecond))
	assert.Equal(t, 0, f.store.used(userId, lastSecond.Add(time.Second)))
	require.Equal(t, 1, f.store.transactionCount())
	assert.Equal(t, lastSecond, f.store.transactions[0].CreatedAt)
}

func TestChargeCompletesPendingRequest(t *testing.T) {
	f := newFixture(10)
	userId := uuid.New()
	f.store.seedWallet(userId, 0, 0, testNow)
	requestId := uuid.New()
	f.store.requests[requestId] = &entity.AiRequest{Id: requestId, UserId: userId, ToolType: "summary", Status: entity.AiRequestStatusPending, CreatedAt: testNow}

	_, err := f.wallet.Charge(context.Background(), ChargeRequest{
		UserId: userId, ToolType: "summary", Cost: 2,
		RelatedId: &requestId, CompleteRequest: true, ProcessingTimeMs: 420,
	})
	require.NoError(t, err)

	req := f.store.requests[requestId]
	assert.Equal(t, entity.AiRequestStatusSuccess, req.Status)
	assert.Equal(t, int64(420), req.ProcessingTimeMs)
	assert.Equal(t, 2, f.store.used(userId, testNow))
}

func TestChargeRollsBackWhenRequestAlreadyFinalized(t *testing.T) {
	f := newFixture(0)
	userId := uuid.New()
	f.store.seedWallet(userId, 5, 0, testNow)
	requestId := uuid.New()
	reason := "request abandoned before completion"
	f.store.requests[requestId] = &entity.AiRequest{Id: requestId, UserId: userId, ToolType: "summary", Status: entity.AiRequestStatusFailed, ErrorMessage: &reason, CreatedAt: testNow}

	_, err := f.wallet.Charge(context.Background(), ChargeRequest{
		UserId: userId, ToolType: "summary", Cost: 3,
		RelatedId: &requestId, CompleteRequest: true,
	})
	require.ErrorIs(t, err, credit.ErrRequestNotPending)

	assert.Equal(t, 5, f.store.paid(userId))
	assert.Equal(t, 0, f.store.transactionCount())
	assert.Equal(t, entity.AiRequestStatusFailed, f.store.requests[requestId].Status)
	assert.Empty(t, f.publisher.ofType(events.TypeCreditsSpent))
}

func TestCreditCostsFollowConfig(t *testing.T) {
	f := newFixture(10)
	pricing, _ := json.Marshal(map[string]int{"summary": 5, "questions": 5})
	f.store.creditConfigs[entity.CreditConfigToolPricing] = &entity.CreditConfig{Key: entity.CreditConfigToolPricing, Value: pricing}
	f.setTool("summary", true, 1.5, 0)
	f.setTool("questions", true, 1.0, 0)
	ctx := context.Background()

	assert.Equal(t, 8, f.wallet.GetCreditCost(ctx, "summary"))
	assert.Equal(t, 5, f.wallet.GetCreditCost(ctx, "questions"))
	assert.Equal(t, 0, f.wallet.GetCreditCost(ctx, "translate"))

	_, err := f.wallet.HasEnoughCredits(ctx, uuid.New(), "translate")
	assert.ErrorIs(t, err, credit.ErrInvalidTool)

	costs := f.wallet.GetCreditCosts(ctx)
	require.Len(t, costs, 2)
	assert.Equal(t, "questions", costs[0].ToolType)
	assert.Equal(t, 8, costs[1].CreditsRequired)
}

func TestHasEnoughCredits(t *testing.T) {
	f := newFixture(1)
	userId := uuid.New()
	f.store.seedWallet(userId, 0, 0, testNow)
	ctx := context.Background()

	ok, err := f.wallet.HasEnoughCredits(ctx, userId, "summary")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.wallet.HasEnoughCredits(ctx, userId, "questions")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAddPaidCreditsWritesGrant(t *testing.T) {
	f := newFixture(0)
	userId := uuid.New()
	f.store.seedWallet(userId, 4, 0, testNow)

	w, err := f.wallet.AddPaidCredits(context.Background(), userId, 6, "promo")
	require.NoError(t, err)
	assert.Equal(t, 10, w.PaidCredits)
	assert.Equal(t, 10, f.store.paid(userId))

	page, err := f.wallet.ListTransactions(context.Background(), &userId, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "grant", page.Items[0].TransactionType)
	assert.Equal(t, 6, page.Items[0].Amount)
	assert.Equal(t, int64(1), page.Pagination.Total)

	_, err = f.wallet.AddPaidCredits(context.Background(), userId, 0, "")
	assert.Error(t, err)
}

func TestConfigChangeVisibleOnlyAfterTTL(t *testing.T) {
	f := newFixture(10)
	f.setTool("summary", true, 1.0, 0)
	ctx := context.Background()

	assert.Equal(t, 1, f.wallet.GetCreditCost(ctx, "summary"))

	f.setTool("summary", false, 3.0, 0)
	assert.Equal(t, 1, f.wallet.GetCreditCost(ctx, "summary"))
	assert.NoError(t, f.gate.CheckEnabled(ctx, "summary"))

	f.clock.Advance(time.Minute)
	assert.Equal(t, 3, f.wallet.GetCreditCost(ctx, "summary"))
	assert.ErrorIs(t, f.gate.CheckEnabled(ctx, "summary"), credit.ErrToolDisabled)
}
