package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"travel-expense-api/internal/model"
	"travel-expense-api/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func parseUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}

func newUUID() uuid.UUID {
	return uuid.New()
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// fakeDB is the shared in-memory state behind the fake repositories. Values
// are stored by value; reads hand out copies so a rolled-back transaction
// leaves the store untouched.
type fakeDB struct {
	users             map[uuid.UUID]model.User
	refreshTokens     map[string]model.RefreshToken
	prepayments       map[uuid.UUID]model.Prepayment
	reports           map[uuid.UUID]model.TravelExpenseReport
	expenses          map[uuid.UUID]model.Expense
	approvals         []model.Approval
	histories         []model.ApprovalHistory
	expenseRejections []model.ExpenseRejectionHistory
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		users:         make(map[uuid.UUID]model.User),
		refreshTokens: make(map[string]model.RefreshToken),
		prepayments:   make(map[uuid.UUID]model.Prepayment),
		reports:       make(map[uuid.UUID]model.TravelExpenseReport),
		expenses:      make(map[uuid.UUID]model.Expense),
	}
}

func (db *fakeDB) snapshot() *fakeDB {
	clone := newFakeDB()
	for k, v := range db.users {
		clone.users[k] = v
	}
	for k, v := range db.refreshTokens {
		clone.refreshTokens[k] = v
	}
	for k, v := range db.prepayments {
		clone.prepayments[k] = v
	}
	for k, v := range db.reports {
		clone.reports[k] = v
	}
	for k, v := range db.expenses {
		clone.expenses[k] = v
	}
	clone.approvals = append([]model.Approval(nil), db.approvals...)
	clone.histories = append([]model.ApprovalHistory(nil), db.histories...)
	clone.expenseRejections = append([]model.ExpenseRejectionHistory(nil), db.expenseRejections...)
	return clone
}

func (db *fakeDB) restore(from *fakeDB) {
	db.users = from.users
	db.refreshTokens = from.refreshTokens
	db.prepayments = from.prepayments
	db.reports = from.reports
	db.expenses = from.expenses
	db.approvals = from.approvals
	db.histories = from.histories
	db.expenseRejections = from.expenseRejections
}

// fakeTxManager restores the pre-transaction state when fn returns an error,
// mirroring a database rollback.
type fakeTxManager struct {
	db *fakeDB
}

func (t *fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	before := t.db.snapshot()
	if err := fn(ctx); err != nil {
		t.db.restore(before)
		return err
	}
	return nil
}

// --- User repository ---

type fakeUserRepo struct {
	db *fakeDB
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.db.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	user, ok := r.db.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &user, nil
}

func (r *fakeUserRepo) GetByIDWithSupervisor(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.SupervisorID != nil {
		if supervisor, ok := r.db.users[*user.SupervisorID]; ok {
			user.Supervisor = &supervisor
		}
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, user := range r.db.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, user := range r.db.users {
		if user.Username == username {
			u := user
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) List(_ context.Context, page, limit int) ([]model.User, int64, error) {
	var users []model.User
	for _, user := range r.db.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, int64(len(users)), nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	if _, ok := r.db.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *user
	stored.Supervisor = nil
	r.db.users[user.ID] = stored
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.db.users, id)
	return nil
}

func (r *fakeUserRepo) CountApprovers(_ context.Context, profile string) (int64, error) {
	var count int64
	for _, user := range r.db.users {
		if user.Profile == profile && user.IsApprover {
			count++
		}
	}
	return count, nil
}

func (r *fakeUserRepo) CreateRefreshToken(_ context.Context, token *model.RefreshToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	r.db.refreshTokens[token.Token] = *token
	return nil
}

func (r *fakeUserRepo) GetRefreshToken(_ context.Context, token string) (*model.RefreshToken, error) {
	stored, ok := r.db.refreshTokens[token]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &stored, nil
}

func (r *fakeUserRepo) DeleteRefreshToken(_ context.Context, token string) error {
	delete(r.db.refreshTokens, token)
	return nil
}

// --- Prepayment repository ---

type fakePrepaymentRepo struct {
	db *fakeDB
}

func (r *fakePrepaymentRepo) Create(_ context.Context, p *model.Prepayment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.db.prepayments[p.ID] = *p
	return nil
}

func (r *fakePrepaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Prepayment, error) {
	p, ok := r.db.prepayments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r *fakePrepaymentRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Prepayment, error) {
	return r.FindByID(ctx, id)
}

func (r *fakePrepaymentRepo) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.Prepayment, error) {
	return r.FindByID(ctx, id)
}

func (r *fakePrepaymentRepo) List(_ context.Context, filter repository.PrepaymentFilter) ([]model.Prepayment, int64, error) {
	var result []model.Prepayment
	for _, p := range r.db.prepayments {
		if filter.RequesterID != nil && p.RequesterID != *filter.RequesterID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		result = append(result, p)
	}
	return result, int64(len(result)), nil
}

func (r *fakePrepaymentRepo) Update(_ context.Context, p *model.Prepayment) error {
	if _, ok := r.db.prepayments[p.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *p
	stored.Requester = nil
	stored.Country = nil
	stored.Currency = nil
	r.db.prepayments[p.ID] = stored
	return nil
}

// --- Report repository ---

type fakeReportRepo struct {
	db *fakeDB
}

func (r *fakeReportRepo) Create(_ context.Context, report *model.TravelExpenseReport) error {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	r.db.reports[report.ID] = *report
	return nil
}

func (r *fakeReportRepo) FindByID(_ context.Context, id uuid.UUID) (*model.TravelExpenseReport, error) {
	report, ok := r.db.reports[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &report, nil
}

func (r *fakeReportRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.TravelExpenseReport, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeReportRepo) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.TravelExpenseReport, error) {
	report, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.PrepaymentID != nil {
		if prepayment, ok := r.db.prepayments[*report.PrepaymentID]; ok {
			report.Prepayment = &prepayment
		}
	}
	return report, nil
}

func (r *fakeReportRepo) FindByPrepaymentID(_ context.Context, prepaymentID uuid.UUID) (*model.TravelExpenseReport, error) {
	for _, report := range r.db.reports {
		if report.PrepaymentID != nil && *report.PrepaymentID == prepaymentID {
			found := report
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeReportRepo) List(_ context.Context, filter repository.ReportFilter) ([]model.TravelExpenseReport, int64, error) {
	var result []model.TravelExpenseReport
	for _, report := range r.db.reports {
		if filter.RequesterID != nil && report.RequesterID != *filter.RequesterID {
			continue
		}
		if filter.Status != "" && report.Status != filter.Status {
			continue
		}
		if filter.ReportType != "" && report.ReportType != filter.ReportType {
			continue
		}
		result = append(result, report)
	}
	return result, int64(len(result)), nil
}

func (r *fakeReportRepo) Update(_ context.Context, report *model.TravelExpenseReport) error {
	if _, ok := r.db.reports[report.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *report
	stored.Requester = nil
	stored.Prepayment = nil
	stored.Expenses = nil
	r.db.reports[report.ID] = stored
	return nil
}

// --- Expense repository ---

type fakeExpenseRepo struct {
	db *fakeDB
}

func (r *fakeExpenseRepo) Create(_ context.Context, expense *model.Expense) error {
	if expense.ID == uuid.Nil {
		expense.ID = uuid.New()
	}
	r.db.expenses[expense.ID] = *expense
	return nil
}

func (r *fakeExpenseRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Expense, error) {
	expense, ok := r.db.expenses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &expense, nil
}

func (r *fakeExpenseRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Expense, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeExpenseRepo) ListByReport(_ context.Context, reportID uuid.UUID) ([]model.Expense, error) {
	var result []model.Expense
	for _, expense := range r.db.expenses {
		if expense.ReportID == reportID {
			result = append(result, expense)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ExpenseDate.Before(result[j].ExpenseDate)
	})
	return result, nil
}

func (r *fakeExpenseRepo) Update(_ context.Context, expense *model.Expense) error {
	if _, ok := r.db.expenses[expense.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *expense
	stored.Report = nil
	stored.Category = nil
	stored.Supplier = nil
	stored.Currency = nil
	r.db.expenses[expense.ID] = stored
	return nil
}

func (r *fakeExpenseRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.db.expenses, id)
	return nil
}

// --- History repository ---

type fakeHistoryRepo struct {
	db *fakeDB
}

func (r *fakeHistoryRepo) AppendApproval(_ context.Context, record *model.Approval) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	r.db.approvals = append(r.db.approvals, *record)
	return nil
}

func (r *fakeHistoryRepo) AppendHistory(_ context.Context, record *model.ApprovalHistory) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	r.db.histories = append(r.db.histories, *record)
	return nil
}

func (r *fakeHistoryRepo) AppendExpenseRejection(_ context.Context, record *model.ExpenseRejectionHistory) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	r.db.expenseRejections = append(r.db.expenseRejections, *record)
	return nil
}

func (r *fakeHistoryRepo) ListHistory(_ context.Context, entityType string, entityID uuid.UUID, page, limit int) ([]model.ApprovalHistory, int64, error) {
	var result []model.ApprovalHistory
	for _, entry := range r.db.histories {
		if entry.EntityType == entityType && entry.EntityID == entityID {
			result = append(result, entry)
		}
	}
	return result, int64(len(result)), nil
}

func (r *fakeHistoryRepo) ListApprovals(_ context.Context, entityType string, entityID uuid.UUID) ([]model.Approval, error) {
	var result []model.Approval
	for _, approval := range r.db.approvals {
		if approval.EntityType == entityType && approval.EntityID == entityID {
			result = append(result, approval)
		}
	}
	return result, nil
}

func (r *fakeHistoryRepo) ListExpenseRejections(_ context.Context, reportID uuid.UUID) ([]model.ExpenseRejectionHistory, error) {
	var result []model.ExpenseRejectionHistory
	for _, rejection := range r.db.expenseRejections {
		if rejection.ReportID == reportID {
			result = append(result, rejection)
		}
	}
	return result, nil
}

// --- Notifier and SAP generator spies ---

type notifiedEvent struct {
	Event      string
	EntityType string
	EntityID   uuid.UUID
	Payload    map[string]any
}

type spyNotifier struct {
	events []notifiedEvent
}

func (n *spyNotifier) Notify(event string, entityType string, entityID uuid.UUID, payload map[string]any) {
	n.events = append(n.events, notifiedEvent{Event: event, EntityType: entityType, EntityID: entityID, Payload: payload})
}

type fakeSAPGenerator struct {
	expensesCalls     int
	compensationCalls int
	// compensationPrepaids records the prepaid amount passed to each
	// compensation file call, formatted to two decimals.
	compensationPrepaids []string
	failExpenses         bool
	failCompensation     bool
}

func (g *fakeSAPGenerator) GenerateExpensesFile(_ context.Context, report *model.TravelExpenseReport, _ []model.Expense) (string, error) {
	g.expensesCalls++
	if g.failExpenses {
		return "", errors.New("excel writer failed")
	}
	return fmt.Sprintf("/data/sap/expenses_%s.xlsx", report.ID), nil
}

func (g *fakeSAPGenerator) GenerateCompensationFile(_ context.Context, report *model.TravelExpenseReport, _ []model.Expense, prepaid decimal.Decimal) (string, error) {
	g.compensationCalls++
	g.compensationPrepaids = append(g.compensationPrepaids, prepaid.StringFixed(2))
	if g.failCompensation {
		return "", errors.New("excel writer failed")
	}
	return fmt.Sprintf("/data/sap/compensation_%s.xlsx", report.ID), nil
}

// --- Environment builder ---

// testEnv wires every service against one shared fake store.
type testEnv struct {
	db       *fakeDB
	notifier *spyNotifier
	sapGen   *fakeSAPGenerator

	prepayments PrepaymentService
	reports     ReportService
	expenses    ExpenseService
	users       UserService

	// seeded principals
	employee   *model.User
	supervisor *model.User
	accountant *model.User
	treasurer  *model.User
}

func newTestEnv() *testEnv {
	db := newFakeDB()
	userRepo := &fakeUserRepo{db: db}
	prepaymentRepo := &fakePrepaymentRepo{db: db}
	reportRepo := &fakeReportRepo{db: db}
	expenseRepo := &fakeExpenseRepo{db: db}
	historyRepo := &fakeHistoryRepo{db: db}
	txManager := &fakeTxManager{db: db}
	notifier := &spyNotifier{}
	sapGen := &fakeSAPGenerator{}

	env := &testEnv{
		db:       db,
		notifier: notifier,
		sapGen:   sapGen,
		prepayments: NewPrepaymentService(
			prepaymentRepo, reportRepo, userRepo, historyRepo, txManager, notifier),
		reports: NewReportService(
			reportRepo, prepaymentRepo, expenseRepo, userRepo, historyRepo, txManager, notifier, sapGen),
		expenses: NewExpenseService(
			expenseRepo, reportRepo, prepaymentRepo, userRepo, historyRepo, txManager, notifier, sapGen),
		users: NewUserService(userRepo),
	}

	env.supervisor = env.seedUser("supervisor", model.ProfileManager, true, nil)
	env.employee = env.seedUser("employee", model.ProfileEmployee, false, &env.supervisor.ID)
	env.accountant = env.seedUser("accountant", model.ProfileAccounting, true, nil)
	env.treasurer = env.seedUser("treasurer", model.ProfileTreasury, true, nil)
	return env
}

func (e *testEnv) seedUser(username, profile string, isApprover bool, supervisorID *uuid.UUID) *model.User {
	user := model.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        username + "@example.com",
		Password:     "x",
		Profile:      profile,
		IsApprover:   isApprover,
		SupervisorID: supervisorID,
	}
	e.db.users[user.ID] = user
	return &user
}

func (e *testEnv) removeApprovers(profile string) {
	for id, user := range e.db.users {
		if user.Profile == profile {
			delete(e.db.users, id)
		}
	}
}

func (e *testEnv) seedPrepayment(requesterID uuid.UUID, status model.PrepaymentStatus, amount string) *model.Prepayment {
	p := model.Prepayment{
		ID:          uuid.New(),
		Reason:      "conference travel",
		CountryID:   uuid.New(),
		CurrencyID:  uuid.New(),
		Amount:      mustDecimal(amount),
		StartDate:   date(2026, 9, 1),
		EndDate:     date(2026, 9, 10),
		Status:      status,
		RequesterID: requesterID,
	}
	e.db.prepayments[p.ID] = p
	return &p
}

func (e *testEnv) seedReport(requesterID uuid.UUID, status model.ReportStatus, prepaymentID *uuid.UUID) *model.TravelExpenseReport {
	report := model.TravelExpenseReport{
		ID:           uuid.New(),
		ReportType:   model.ReportTypePrepayment,
		PrepaymentID: prepaymentID,
		Status:       status,
		RequesterID:  requesterID,
	}
	if prepaymentID == nil {
		report.ReportType = model.ReportTypeReimbursement
		start := date(2026, 9, 1)
		end := date(2026, 9, 10)
		report.StartDate = &start
		report.EndDate = &end
	}
	e.db.reports[report.ID] = report
	return &report
}

func (e *testEnv) seedExpense(reportID uuid.UUID, amount string, status model.ExpenseStatus) *model.Expense {
	expense := model.Expense{
		ID:             uuid.New(),
		ReportID:       reportID,
		CategoryID:     uuid.New(),
		DocumentType:   model.DocTypeBoleta,
		DocumentNumber: "B-0001",
		Amount:         mustDecimal(amount),
		CurrencyID:     uuid.New(),
		ExpenseDate:    date(2026, 9, 2),
		Status:         status,
	}
	e.db.expenses[expense.ID] = expense
	return &expense
}

func (e *testEnv) historyCount(entityType string, entityID uuid.UUID) int {
	count := 0
	for _, entry := range e.db.histories {
		if entry.EntityType == entityType && entry.EntityID == entityID {
			count++
		}
	}
	return count
}

func (e *testEnv) approvalCount(entityType string, entityID uuid.UUID) int {
	count := 0
	for _, approval := range e.db.approvals {
		if approval.EntityType == entityType && approval.EntityID == entityID {
			count++
		}
	}
	return count
}
