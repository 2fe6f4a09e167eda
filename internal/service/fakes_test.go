package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"ai-studytool-be/internal/entity"
	"ai-studytool-be/internal/pkg/logger"
	"ai-studytool-be/internal/repository/contract"
	"ai-studytool-be/internal/repository/specification"
	"ai-studytool-be/internal/repository/unitofwork"
	"ai-studytool-be/pkg/credit"
	"ai-studytool-be/pkg/events"
	"ai-studytool-be/pkg/studytool"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// clock
// ---------------------------------------------------------------------------

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// ---------------------------------------------------------------------------
// store + unit of work
// ---------------------------------------------------------------------------

// fakeStore mimics the parts of postgres the services rely on: committed state,
// per-wallet row locks held until commit or rollback, and buffered transactional writes.
type fakeStore struct {
	mu sync.Mutex

	users         map[uuid.UUID]*entity.User
	wallets       map[uuid.UUID]*entity.Wallet
	usage         map[string]int
	transactions  []*entity.CreditTransaction
	requests      map[uuid.UUID]*entity.AiRequest
	toolConfigs   map[string]*entity.ToolConfig
	creditConfigs map[string]*entity.CreditConfig
	histories     []*entity.History

	verifications []*entity.EmailVerificationToken
	resets        []*entity.PasswordResetToken
	refreshTokens []*entity.UserRefreshToken
	providers     []*entity.UserProvider

	lockMu  sync.Mutex
	rowLock map[uuid.UUID]*sync.Mutex

	configLoadErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         map[uuid.UUID]*entity.User{},
		wallets:       map[uuid.UUID]*entity.Wallet{},
		usage:         map[string]int{},
		requests:      map[uuid.UUID]*entity.AiRequest{},
		toolConfigs:   map[string]*entity.ToolConfig{},
		creditConfigs: map[string]*entity.CreditConfig{},
		rowLock:       map[uuid.UUID]*sync.Mutex{},
	}
}

func usageKey(userId uuid.UUID, date time.Time) string {
	return userId.String() + "|" + date.Format("2006-01-02")
}

func (s *fakeStore) lockFor(userId uuid.UUID) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	m, ok := s.rowLock[userId]
	if !ok {
		m = &sync.Mutex{}
		s.rowLock[userId] = m
	}
	return m
}

func (s *fakeStore) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUow{store: s}
}

// seedWallet creates a user and a wallet with the given paid balance and today's usage.
func (s *fakeStore) seedWallet(userId uuid.UUID, paid, usedToday int, today time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userId] = &entity.User{Id: userId, Email: userId.String() + "@example.com", FullName: "Test User", Role: entity.UserRoleUser, Status: entity.UserStatusActive}
	s.wallets[userId] = &entity.Wallet{Id: uuid.New(), UserId: userId, PaidCredits: paid}
	if usedToday > 0 {
		s.usage[usageKey(userId, credit.UsageDate(today))] = usedToday
	}
}

func (s *fakeStore) paid(userId uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.wallets[userId]; ok {
		return w.PaidCredits
	}
	return -1
}

func (s *fakeStore) used(userId uuid.UUID, day time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage[usageKey(userId, credit.UsageDate(day))]
}

func (s *fakeStore) requestList() []*entity.AiRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.AiRequest, 0, len(s.requests))
	for _, r := range s.requests {
		cp := *r
		out = append(out, &cp)
	}
	return out
}

func (s *fakeStore) transactionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transactions)
}

type fakeUow struct {
	store *fakeStore
	inTx  bool
	ops   []func(*fakeStore)
	held  []*sync.Mutex
}

func (u *fakeUow) Begin(ctx context.Context) error {
	if u.inTx {
		return errors.New("transaction already started")
	}
	u.inTx = true
	return nil
}

func (u *fakeUow) Commit() error {
	if !u.inTx {
		return errors.New("no transaction to commit")
	}
	u.store.mu.Lock()
	for _, op := range u.ops {
		op(u.store)
	}
	u.store.mu.Unlock()
	u.finish()
	return nil
}

func (u *fakeUow) Rollback() error {
	if !u.inTx {
		return nil
	}
	u.finish()
	return nil
}

func (u *fakeUow) finish() {
	u.inTx = false
	u.ops = nil
	for _, m := range u.held {
		m.Unlock()
	}
	u.held = nil
}

func (u *fakeUow) write(op func(*fakeStore)) {
	if u.inTx {
		u.ops = append(u.ops, op)
		return
	}
	u.store.mu.Lock()
	op(u.store)
	u.store.mu.Unlock()
}

func (u *fakeUow) UserRepository() contract.UserRepository {
	return &fakeUserRepo{u}
}

func (u *fakeUow) WalletRepository() contract.WalletRepository {
	return &fakeWalletRepo{u}
}

func (u *fakeUow) CreditTransactionRepository() contract.CreditTransactionRepository {
	return &fakeTransactionRepo{u}
}

func (u *fakeUow) AiRequestRepository() contract.AiRequestRepository {
	return &fakeAiRequestRepo{u}
}

func (u *fakeUow) ToolConfigRepository() contract.ToolConfigRepository {
	return &fakeToolConfigRepo{u}
}

func (u *fakeUow) HistoryRepository() contract.HistoryRepository {
	return &fakeHistoryRepo{u}
}

// ---------------------------------------------------------------------------
// spec evaluation
// ---------------------------------------------------------------------------

type row struct {
	id        uuid.UUID
	userId    uuid.UUID
	email     string
	fullName  string
	role      string
	toolType  string
	status    string
	code      string
	tokenHash string
	provider  string
	subject   string
	expiresAt time.Time
	createdAt time.Time
}

func matches(specs []specification.Specification, r row) bool {
	for _, sp := range specs {
		switch v := sp.(type) {
		case specification.ByID:
			if v.ID != r.id {
				return false
			}
		case specification.UserOwnedBy:
			if v.UserID != r.userId {
				return false
			}
		case specification.ByEmail:
			if v.Email != r.email {
				return false
			}
		case specification.ByToolType:
			if v.ToolType != r.toolType {
				return false
			}
		case specification.ByStatus:
			if v.Status != r.status {
				return false
			}
		case specification.CreatedBefore:
			if !r.createdAt.Before(v.Time) {
				return false
			}
		case specification.CreatedAfter:
			if !r.createdAt.After(v.Time) {
				return false
			}
		case specification.ExpiresAfter:
			if !r.expiresAt.After(v.Time) {
				return false
			}
		case specification.ByCode:
			if v.Code != r.code {
				return false
			}
		case specification.ByTokenHash:
			if v.Hash != r.tokenHash {
				return false
			}
		case specification.ByProvider:
			if v.Name != r.provider || v.Subject != r.subject {
				return false
			}
		case specification.ByRole:
			if v.Role != r.role {
				return false
			}
		case specification.UserSearch:
			q := strings.ToLower(strings.TrimSpace(v.Query))
			if q != "" && !strings.Contains(strings.ToLower(r.email), q) && !strings.Contains(strings.ToLower(r.fullName), q) {
				return false
			}
		case specification.FilterBy:
			if v.Field == "status" && v.Value != r.status {
				return false
			}
		}
	}
	return true
}

// window applies OrderBy created_at and Pagination the way the SQL would.
func window[T any](items []T, createdAt func(T) time.Time, specs []specification.Specification) []T {
	for _, sp := range specs {
		if o, ok := sp.(specification.OrderBy); ok && o.Field == "created_at" {
			sort.SliceStable(items, func(i, j int) bool {
				if o.Desc {
					return createdAt(items[i]).After(createdAt(items[j]))
				}
				return createdAt(items[i]).Before(createdAt(items[j]))
			})
		}
	}
	for _, sp := range specs {
		if p, ok := sp.(specification.Pagination); ok {
			if p.Offset >= len(items) {
				return []T{}
			}
			end := p.Offset + p.Limit
			if end > len(items) {
				end = len(items)
			}
			items = items[p.Offset:end]
		}
	}
	return items
}

// ---------------------------------------------------------------------------
// repositories
// ---------------------------------------------------------------------------

type fakeUserRepo struct{ u *fakeUow }

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.u.store.mu.Lock()
	for _, existing := range r.u.store.users {
		if existing.Email == user.Email {
			r.u.store.mu.Unlock()
			return errors.New("duplicate email")
		}
	}
	r.u.store.mu.Unlock()

	cp := *user
	r.u.write(func(s *fakeStore) { s.users[cp.Id] = &cp })
	return nil
}

func (r *fakeUserRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	all, _ := r.FindAll(ctx, specs...)
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (r *fakeUserRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.User, error) {
	r.u.store.mu.Lock()
	defer r.u.store.mu.Unlock()
	var out []*entity.User
	for _, u := range r.u.store.users {
		if matches(specs, row{id: u.Id, email: u.Email, fullName: u.FullName, role: string(u.Role), status: string(u.Status), createdAt: u.CreatedAt}) {
			cp := *u
			out = append(out, &cp)
		}
	}
	return window(out, func(u *entity.User) time.Time { return u.CreatedAt }, specs), nil
}

func (r *fakeUserRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

func (r *fakeUserRepo) update(userId uuid.UUID, fn func(*entity.User)) error {
	r.u.store.mu.Lock()
	_, ok := r.u.store.users[userId]
	r.u.store.mu.Unlock()
	if !ok {
		return errors.New("record not found")
	}
	r.u.write(func(s *fakeStore) {
		if u, ok := s.users[userId]; ok {
			fn(u)
		}
	})
	return nil
}

func (r *fakeUserRepo) UpdateProfile(ctx context.Context, user *entity.User) error {
	fullName, avatar := user.FullName, user.AvatarURL
	return r.update(user.Id, func(u *entity.User) {
		u.FullName = fullName
		u.AvatarURL = avatar
	})
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, userId uuid.UUID, hash string) error {
	return r.update(userId, func(u *entity.User) { u.PasswordHash = &hash })
}

func (r *fakeUserRepo) MarkEmailVerified(ctx context.Context, userId uuid.UUID, at time.Time) error {
	return r.update(userId, func(u *entity.User) {
		u.EmailVerified = true
		u.EmailVerifiedAt = &at
	})
}

func (r *fakeUserRepo) TouchLastLogin(ctx context.Context, userId uuid.UUID, at time.Time) error {
	return r.update(userId, func(u *entity.User) { u.LastLoginAt = &at })
}

func (r *fakeUserRepo) CreateEmailVerificationToken(ctx context.Context, token *entity.EmailVerificationToken) error {
	cp := *token
	r.u.write(func(s *fakeStore) { s.verifications = append(s.verifications, &cp) })
	return nil
}

func (r *fakeUserRepo) FindEmailVerificationToken(ctx context.Context, specs ...specification.Specification) (*entity.EmailVerificationToken, error) {
	r.u.store.mu.Lock()
	defer r.u.store.mu.Unlock()
	var found *entity.EmailVerificationToken
	for _, t := range r.u.store.verifications {
		if matches(specs, row{id: t.Id, userId: t.UserId, code: t.Code, expiresAt: t.ExpiresAt, createdAt: t.CreatedAt}) {
			if found == nil || t.CreatedAt.After(found.CreatedAt) {
				found = t
			}
		}
	}
	if found == nil {
		return nil, nil
	}
	cp := *found
	return &cp, nil
}

func (r *fakeUserRepo) DeleteEmailVerificationTokens(ctx context.Context, userId uuid.UUID) error {
	r.u.write(func(s *fakeStore) {
		kept := s.verifications[:0]
		for _, t := range s.verifications {
			if t.UserId != userId {
				kept = append(kept, t)
			}
		}
		s.verifications = kept
	})
	return nil
}

func (r *fakeUserRepo) CreatePasswordResetToken(ctx context.Context, token *entity.PasswordResetToken) error {
	cp := *token
	r.u.write(func(s *fakeStore) { s.resets = append(s.resets, &cp) })
	return nil
}

func (r *fakeUserRepo) FindPasswordResetToken(ctx context.Context, specs ...specification.Specification) (*entity.PasswordResetToken, error) {
	r.u.store.mu.Lock()
	defer r.u.store.mu.Unlock()
	var found *entity.PasswordResetToken
	for _, t := range r.u.store.resets {
		if matches(specs, row{id: t.Id, userId: t.UserId, tokenHash: t.TokenHash, expiresAt: t.ExpiresAt, createdAt: t.CreatedAt}) {
			if found == nil || t.CreatedAt.After(found.CreatedAt) {
				found = t
			}
		}
	}
	if found == nil {
		return nil, nil
	}
	cp := *found
	return &cp, nil
}

func (r *fakeUserRepo) ConsumePasswordResetToken(ctx context.Context, id uuid.UUID) (bool, error) {
	r.u.store.mu.Lock()
	unused := false
	for _, t := range r.u.store.resets {
		if t.Id == id && !t.Used {
			unused = true
		}
	}
	r.u.store.mu.Unlock()
	if !unused {
		return false, nil
	}
	r.u.write(func(s *fakeStore) {
		for _, t := range s.resets {
			if t.Id == id {
				t.Used = true
			}
		}
	})
	return true, nil
}

func (r *fakeUserRepo) DeletePasswordResetTokens(ctx context.Context, userId uuid.UUID) error {
	r.u.write(func(s *fakeStore) {
		kept := s.resets[:0]
		for _, t := range s.resets {
			if t.UserId != userId {
				kept = append(kept, t)
			}
		}
		s.resets = kept
	})
	return nil
}

func (r *fakeUserRepo) CreateRefreshToken(ctx context.Context, token *entity.UserRefreshToken) error {
	cp := *token
	r.u.write(func(s *fakeStore) { s.refreshTokens = append(s.refreshTokens, &cp) })
	return nil
}

func (r *fakeUserRepo) FindRefreshToken(ctx context.Context, specs ...specification.Specification) (*entity.UserRefreshToken, error) {
	r.u.store.mu.Lock()
	defer r.u.store.mu.Unlock()
	for _, t := range r.u.store.refreshTokens {
		if matches(specs, row{id: t.Id, userId: t.UserId, tokenHash: t.TokenHash, expiresAt: t.ExpiresAt, createdAt: t.CreatedAt}) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) RevokeRefreshToken(ctx context.Context, id uuid.UUID) (bool, error) {
	r.u.store.mu.Lock()
	active := false
	for _, t := range r.u.store.refreshTokens {
		if t.Id == id && !t.Revoked {
			active = true
		}
	}
	r.u.store.mu.Unlock()
	if !active {
		return false, nil
	}
	r.u.write(func(s *fakeStore) {
		for _, t := range s.refreshTokens {
			if t.Id == id {
				t.Revoked = true
			}
		}
	})
	return true, nil
}

func (r *fakeUserRepo) RevokeAllRefreshTokens(ctx context.Context, userId uuid.UUID) error {
	r.u.write(func(s *fakeStore) {
		for _, t := range s.refreshTokens {
			if t.UserId == userId {
				t.Revoked = true
			}
		}
	})
	return nil
}

func (r *fakeUserRepo) SaveUserProvider(ctx context.Context, provider *entity.UserProvider) error {
	cp := *provider
	r.u.write(func(s *fakeStore) {
		for _, p := range s.providers {
			if p.ProviderName == cp.ProviderName && p.ProviderUserId == cp.ProviderUserId {
				p.AvatarURL = cp.AvatarURL
				return
			}
		}
		s.providers = append(s.providers, &cp)
	})
	return nil
}

func (r *fakeUserRepo) FindUserProvider(ctx context.Context, specs ...specification.Specification) (*entity.UserProvider, error) {
	r.u.store.mu.Lock()
	defer r.u.store.mu.Unlock()
	for _, p := range r.u.store.providers {
		if matches(specs, row{id: p.Id, userId: p.UserId, provider: p.ProviderName, subject: p.ProviderUserId, createdAt: p.CreatedAt}) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindUserProviders(ctx context.Context, userId uuid.UUID) ([]*entity.UserProvider, error) {
	r.u.store.mu.Lock()
	defer r.u.store.mu.Unlock()
	var out []*entity.UserProvider
	for _, p := range r.u.store.providers {
		if p.UserId == userId {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeWalletRepo struct{ u *fakeUow }

func (r *fakeWalletRepo) Create(ctx context.Context, wallet *entity.Wallet) error {
	cp := *wallet
	r.u.write(func(s *fakeStore) { s.wallets[cp.UserId] = &cp })
	return nil
}

func (r *fakeWalletRepo) FindByUserId(ctx context.Context, userId uuid.UUID) (*entity.Wallet, error) {
	r.u.store.mu.Lock()
	defer r.u.store.mu.Unlock()
	w, ok := r.u.store.wallets[userId]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *fakeWalletRepo) FindByUserIdForUpdate(ctx context.Context, userId uuid.UUID) (*entity.Wallet, error) {
	if r.u.inTx {
		m := r.u.store.lockFor(userId)
		m.Lock()
		r.u.held = append(r.u.held, m)
	}
	return r.FindByUserId(ctx, userId)
}

func (r *fakeWalletRepo) DeductPaidCredits(ctx context.Context, userId uuid.UUID, amount int) (bool, error) {
	r.u.store.mu.Lock()
	w, ok := r.u.store.wallets[userId]
	enough := ok && w.PaidCredits >= amount
	r.u.store.mu.Unlock()
	if !enough {
		return false, nil
	}
	r.u.write(func(s *fakeStore) { s.wallets[userId].PaidCredits -= amount })
	return true, nil
}

func (r *fakeWalletRepo) AddPaidCredits(ctx context.Context, userId uuid.UUID, amount int) error {
	r.u.store.mu.Lock()
	_, ok := r.u.store.wallets[userId]
	r.u.store.mu.Unlock()
	if !ok {
		return errors.New("record not found")
	}
	r.u.write(func(s *fakeStore) { s.wallets[userId].PaidCredits += amount })
	return nil
}

func (r *fakeWalletRepo) FindDailyUsage(ctx context.Context, userId uuid.UUID, usageDate time.Time) (*entity.DailyFreeUsage, error) {
	r.u.store.mu.Lock()
	defer r.u.store.mu.Unlock()
	used, ok := r.u.store.usage[usageKey(userId, usageDate)]
	if !ok {
		return nil, nil
	}
	return &entity.DailyFreeUsage{UserId: userId, UsageDate: usageDate, UsedCredits: used}, nil
}

func (r *fakeWalletRepo) IncrementDailyUsage(ctx context.Context, userId uuid.UUID, usageDate time.Time, amount int) error {
	key := usageKey(userId, usageDate)
	r.u.write(func(s *fakeStore) { s.usage[key] += amount })
	return nil
}

type fakeTransactionRepo struct{ u *fakeUow }

func (r *fakeTransactionRepo) Create(ctx context.Context, tx *entity.CreditTransaction) error {
	cp := *tx
	r.u.write(func(s *fakeStore) { s.transactions = append(s.transactions, &cp) })
	return nil
}

func (r *fakeTransactionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.CreditTransaction, error) {
	r.u.store.mu.Lock()
	var out []*entity.CreditTransaction
	for _, t := range r.u.store.transactions {
		if matches(specs, row{id: t.Id, userId: t.UserId, createdAt: t.CreatedAt}) {
			cp := *t
			out = append(out, &cp)
		}
	}
	r.u.store.mu.Unlock()
	return window(out, func(t *entity.CreditTransaction) time.Time { return t.CreatedAt }, specs), nil
}

func (r *fakeTransactionRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

type fakeAiRequestRepo struct{ u *fakeUow }

func (r *fakeAiRequestRepo) Create(ctx context.Context, req *entity.AiRequest) error {
	cp := *req
	r.u.write(func(s *fakeStore) { s.requests[cp.Id] = &cp })
	return nil
}

func (r *fakeAiRequestRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.AiRequest, error) {
	all, _ := r.FindAll(ctx, specs...)
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (r *fakeAiRequestRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AiRequest, error) {
	r.u.store.mu.Lock()
	var out []*entity.AiRequest
	for _, q := range r.u.store.requests {
		if matches(specs, row{id: q.Id, userId: q.UserId, toolType: q.ToolType, status: string(q.Status), createdAt: q.CreatedAt}) {
			cp := *q
			out = append(out, &cp)
		}
	}
	r.u.store.mu.Unlock()
	return window(out, func(q *entity.AiRequest) time.Time { return q.CreatedAt }, specs), nil
}

func (r *fakeAiRequestRepo) FindLastSuccessful(ctx context.Context, userId uuid.UUID, toolType string) (*entity.AiRequest, error) {
	all, _ := r.FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.ByToolType{ToolType: toolType},
		specification.ByStatus{Status: string(entity.AiRequestStatusSuccess)},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (r *fakeAiRequestRepo) Complete(ctx context.Context, id uuid.UUID, status entity.AiRequestStatus, processingTimeMs int64, errMsg *string) (bool, error) {
	r.u.store.mu.Lock()
	q, ok := r.u.store.requests[id]
	pending := ok && q.Status == entity.AiRequestStatusPending
	r.u.store.mu.Unlock()
	if !pending {
		return false, nil
	}
	r.u.write(func(s *fakeStore) {
		q, ok := s.requests[id]
		if !ok || q.Status != entity.AiRequestStatusPending {
			return
		}
		q.Status = status
		q.ProcessingTimeMs = processingTimeMs
		q.ErrorMessage = errMsg
	})
	return true, nil
}

func (r *fakeAiRequestRepo) FailStalePending(ctx context.Context, olderThan time.Time, reason string) (int64, error) {
	r.u.store.mu.Lock()
	defer r.u.store.mu.Unlock()
	var n int64
	for _, q := range r.u.store.requests {
		if q.Status == entity.AiRequestStatusPending && q.CreatedAt.Before(olderThan) {
			msg := reason
			q.Status = entity.AiRequestStatusFailed
			q.ErrorMessage = &msg
			n++
		}
	}
	return n, nil
}

func (r *fakeAiRequestRepo) UsageStats(ctx context.Context, specs ...specification.Specification) ([]*entity.ToolUsageStat, error) {
	all, _ := r.FindAll(ctx, specs...)
	byTool := map[string]*entity.ToolUsageStat{}
	totalMs := map[string]int64{}
	for _, q := range all {
		st, ok := byTool[q.ToolType]
		if !ok {
			st = &entity.ToolUsageStat{ToolType: q.ToolType}
			byTool[q.ToolType] = st
		}
		st.TotalRequests++
		switch q.Status {
		case entity.AiRequestStatusSuccess:
			st.SuccessfulCount++
			st.TotalCredits += int64(q.CreditsUsed)
			totalMs[q.ToolType] += q.ProcessingTimeMs
		case entity.AiRequestStatusFailed:
			st.FailedCount++
		}
	}
	out := make([]*entity.ToolUsageStat, 0, len(byTool))
	for tool, st := range byTool {
		if st.SuccessfulCount > 0 {
			st.AvgProcessingTime = float64(totalMs[tool]) / float64(st.SuccessfulCount)
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ToolType < out[j].ToolType })
	return out, nil
}

type fakeToolConfigRepo struct{ u *fakeUow }

func (r *fakeToolConfigRepo) FindAllToolConfigs(ctx context.Context) ([]*entity.ToolConfig, error) {
	r.u.store.mu.Lock()
	defer r.u.store.mu.Unlock()
	if r.u.store.configLoadErr != nil {
		return nil, r.u.store.configLoadErr
	}
	out := make([]*entity.ToolConfig, 0, len(r.u.store.toolConfigs))
	for _, t := range r.u.store.toolConfigs {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ToolId < out[j].ToolId })
	return out, nil
}

func (r *fakeToolConfigRepo) UpsertToolConfigs(ctx context.Context, configs []*entity.ToolConfig) error {
	r.u.write(func(s *fakeStore) {
		for _, c := range configs {
			cp := *c
			s.toolConfigs[cp.ToolId] = &cp
		}
	})
	return nil
}

func (r *fakeToolConfigRepo) FindAllCreditConfigs(ctx context.Context) ([]*entity.CreditConfig, error) {
	r.u.store.mu.Lock()
	defer r.u.store.mu.Unlock()
	if r.u.store.configLoadErr != nil {
		return nil, r.u.store.configLoadErr
	}
	out := make([]*entity.CreditConfig, 0, len(r.u.store.creditConfigs))
	for _, c := range r.u.store.creditConfigs {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeToolConfigRepo) FindCreditConfig(ctx context.Context, key string) (*entity.CreditConfig, error) {
	r.u.store.mu.Lock()
	defer r.u.store.mu.Unlock()
	c, ok := r.u.store.creditConfigs[key]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *fakeToolConfigRepo) UpsertCreditConfig(ctx context.Context, cfg *entity.CreditConfig) error {
	cp := *cfg
	r.u.write(func(s *fakeStore) { s.creditConfigs[cp.Key] = &cp })
	return nil
}

type fakeHistoryRepo struct{ u *fakeUow }

func (r *fakeHistoryRepo) Create(ctx context.Context, h *entity.History) error {
	cp := *h
	r.u.write(func(s *fakeStore) { s.histories = append(s.histories, &cp) })
	return nil
}

func (r *fakeHistoryRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.History, error) {
	all, _ := r.FindAll(ctx, specs...)
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (r *fakeHistoryRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.History, error) {
	r.u.store.mu.Lock()
	var out []*entity.History
	for _, h := range r.u.store.histories {
		if matches(specs, row{id: h.Id, userId: h.UserId, toolType: h.ToolType, createdAt: h.CreatedAt}) {
			cp := *h
			out = append(out, &cp)
		}
	}
	r.u.store.mu.Unlock()
	return window(out, func(h *entity.History) time.Time { return h.CreatedAt }, specs), nil
}

func (r *fakeHistoryRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

func (r *fakeHistoryRepo) DeleteOwned(ctx context.Context, id, userId uuid.UUID) (int64, error) {
	r.u.store.mu.Lock()
	defer r.u.store.mu.Unlock()
	kept := r.u.store.histories[:0]
	var n int64
	for _, h := range r.u.store.histories {
		if h.Id == id && h.UserId == userId {
			n++
			continue
		}
		kept = append(kept, h)
	}
	r.u.store.histories = kept
	return n, nil
}

func (r *fakeHistoryRepo) DeleteAllOwned(ctx context.Context, userId uuid.UUID) (int64, error) {
	r.u.store.mu.Lock()
	defer r.u.store.mu.Unlock()
	kept := r.u.store.histories[:0]
	var n int64
	for _, h := range r.u.store.histories {
		if h.UserId == userId {
			n++
			continue
		}
		kept = append(kept, h)
	}
	r.u.store.histories = kept
	return n, nil
}

// ---------------------------------------------------------------------------
// collaborators
// ---------------------------------------------------------------------------

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *fakePublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) ofType(t string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

type fakeRunner struct {
	mu        sync.Mutex
	out       *studytool.Output
	err       error
	calls     int
	lastModel string
	onRun     func()
}

func (r *fakeRunner) Run(ctx context.Context, s studytool.Settings, text, model string) (*studytool.Output, error) {
	r.mu.Lock()
	r.calls++
	r.lastModel = model
	hook := r.onRun
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	if r.err != nil {
		return nil, r.err
	}
	if r.out != nil {
		return r.out, nil
	}
	return &studytool.Output{Result: "ok", Raw: "ok"}, nil
}

func (r *fakeRunner) ProviderName() string {
	return "ollama"
}

func (r *fakeRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// ---------------------------------------------------------------------------
// fixture
// ---------------------------------------------------------------------------

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store     *fakeStore
	clock     *fakeClock
	cache     *credit.ConfigCache
	publisher *fakePublisher
	wallet    IWalletService
	gate      IUsageGateService
	mailer    *fakeMailer
	log       logger.ILogger
}

func newFixture(dailyFree int) *fixture {
	store := newFakeStore()
	clock := newFakeClock(testNow)
	log := logger.NewNopLogger()
	cache := credit.NewConfigCache(NewToolConfigSource(store, log), clock, time.Minute, credit.Defaults{DailyFreeLimit: dailyFree}, log)
	pub := &fakePublisher{}
	return &fixture{
		store:     store,
		clock:     clock,
		cache:     cache,
		publisher: pub,
		wallet:    NewWalletService(store, cache, clock, pub, log),
		gate:      NewUsageGateService(store, cache, clock, log),
		mailer:    &fakeMailer{},
		log:       log,
	}
}

func (f *fixture) setTool(id string, enabled bool, multiplier float64, cooldown int) {
	f.store.mu.Lock()
	f.store.toolConfigs[id] = &entity.ToolConfig{
		ToolId:          id,
		ToolName:        id,
		Enabled:         enabled,
		CostMultiplier:  multiplier,
		CooldownSeconds: cooldown,
		MinChars:        1,
		MaxChars:        5000,
	}
	f.store.mu.Unlock()
}
