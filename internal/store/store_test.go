package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manara-erp/manara/internal/ledger"
	"github.com/manara-erp/manara/internal/masterdata"
)

type failingRepo struct {
	*MemoryRepository
	fail error
}

func (r *failingRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r.fail != nil {
		return r.MemoryRepository.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			if err := fn(ctx, tx); err != nil {
				return err
			}
			return r.fail
		})
	}
	return r.MemoryRepository.WithTx(ctx, fn)
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func seededStore(t *testing.T, repo Repository) *Store {
	t.Helper()
	ctx := context.Background()
	s := New(repo, nil)
	s.WithClock(func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) })
	cost := dec("6")
	_, err := s.AddEntity(ctx, masterdata.Product{
		ID: "p1", Name: "Rice", Price: dec("10"), Cost: &cost, MinThreshold: 5,
		Stocks: []masterdata.WarehouseStock{{WarehouseID: "w1", Quantity: 20}},
	})
	require.NoError(t, err)
	_, err = s.AddEntity(ctx, masterdata.Product{ID: "p2", Name: "Oil", Price: dec("4")})
	require.NoError(t, err)
	_, err = s.AddEntity(ctx, masterdata.Safe{ID: "s1", Name: "Main", Balance: dec("1000")})
	require.NoError(t, err)
	_, err = s.AddEntity(ctx, masterdata.Customer{ID: "c1", Name: "Amal"})
	require.NoError(t, err)
	_, err = s.AddEntity(ctx, masterdata.Employee{ID: "e1", Name: "Huda", BaseSalary: dec("900")})
	require.NoError(t, err)
	return s
}

func sale(id string, qty int, total string) ledger.Transaction {
	return ledger.Transaction{
		ID: id, Type: ledger.TypeSale, WarehouseID: "w1", SafeID: "s1", EntityID: "c1", EntityName: "Amal",
		TotalAmount: dec(total),
		Items:       []ledger.TransactionItem{{ProductID: "p1", ProductName: "Rice", Quantity: qty, Price: dec("10"), Cost: dec("6")}},
	}
}

func TestAppendSaleUpdatesStockAndSafe(t *testing.T) {
	s := seededStore(t, nil)
	outcome, err := s.Append(context.Background(), sale("t1", 3, "30"))
	require.NoError(t, err)
	require.False(t, outcome.HasWarnings())
	require.Equal(t, "2024-05-01", outcome.Transaction.Date)

	p, ok := Get[masterdata.Product](s, "p1")
	require.True(t, ok)
	qty, _ := p.StockAt("w1")
	require.Equal(t, 17, qty)

	balance, ok := s.SafeBalance("s1")
	require.True(t, ok)
	require.True(t, balance.Equal(dec("1030")))
	require.Len(t, s.Transactions(), 1)
}

func TestAppendOversellReportsWarning(t *testing.T) {
	s := seededStore(t, nil)
	outcome, err := s.Append(context.Background(), sale("t1", 25, "250"))
	require.NoError(t, err)
	require.Len(t, outcome.Warnings, 1)
	require.Equal(t, ledger.WarnInsufficientStock, outcome.Warnings[0].Kind)

	p, _ := Get[masterdata.Product](s, "p1")
	qty, _ := p.StockAt("w1")
	require.Equal(t, 0, qty)
	balance, _ := s.SafeBalance("s1")
	require.True(t, balance.Equal(dec("1250")))
}

func TestAppendGeneratesIDAndRejectsDuplicates(t *testing.T) {
	s := seededStore(t, nil)
	tx := sale("", 1, "10")
	outcome, err := s.Append(context.Background(), tx)
	require.NoError(t, err)
	require.NotEmpty(t, outcome.Transaction.ID)

	tx.ID = outcome.Transaction.ID
	_, err = s.Append(context.Background(), tx)
	require.ErrorIs(t, err, ErrDuplicateTransaction)
	require.Len(t, s.Transactions(), 1)
}

func TestAppendRejectsDirectAccounting(t *testing.T) {
	s := seededStore(t, nil)
	_, err := s.Append(context.Background(), ledger.Transaction{Type: ledger.TypeAccounting, TotalAmount: dec("5")})
	require.ErrorIs(t, err, ErrAccountingViaEntry)
}

func TestAppendInvalidTransaction(t *testing.T) {
	s := seededStore(t, nil)
	_, err := s.Append(context.Background(), ledger.Transaction{Type: "refund"})
	require.ErrorIs(t, err, ledger.ErrInvalidTransaction)
	require.Empty(t, s.Transactions())
}

func TestAccountingEntryMirrorsIntoLog(t *testing.T) {
	s := seededStore(t, nil)
	ctx := context.Background()
	outcome, err := s.AppendAccountingEntry(ctx, ledger.AccountingEntry{
		ID: "ACC-1", Type: ledger.EntryExpense, Category: "rent", Amount: dec("200"), SafeID: "s1",
	})
	require.NoError(t, err)
	require.Equal(t, "ACC-1", outcome.Transaction.ID)
	require.Equal(t, ledger.TypeAccounting, outcome.Transaction.Type)

	entries := s.AccountingEntries()
	require.Len(t, entries, 1)
	mirror, ok := s.Transaction("ACC-1")
	require.True(t, ok)
	require.True(t, mirror.TotalAmount.Equal(entries[0].Amount))
	require.Equal(t, entries[0].Date, mirror.Date)

	balance, _ := s.SafeBalance("s1")
	require.True(t, balance.Equal(dec("800")))

	_, err = s.AppendAccountingEntry(ctx, ledger.AccountingEntry{Type: ledger.EntryRevenue, Amount: decimal.Zero, SafeID: "s1"})
	require.ErrorIs(t, err, ledger.ErrInvalidEntry)
}

func TestAccountingEntryAgainstUnknownSafeWarns(t *testing.T) {
	s := seededStore(t, nil)
	outcome, err := s.AppendAccountingEntry(context.Background(), ledger.AccountingEntry{
		Type: ledger.EntryRevenue, Category: "misc", Amount: dec("5"), SafeID: "ghost",
	})
	require.NoError(t, err)
	require.Len(t, outcome.Warnings, 1)
	require.Equal(t, ledger.WarnReferenceNotFound, outcome.Warnings[0].Kind)
	require.Len(t, s.AccountingEntries(), 1)
}

func TestPaySalaryRecordsPaymentAndTransaction(t *testing.T) {
	s := seededStore(t, nil)
	outcome, err := s.PaySalary(context.Background(), ledger.SalaryPayment{
		EmployeeID: "e1", EmployeeName: "Huda", Month: 4, Year: 2024, NetSalary: dec("950"), SafeID: "s1",
	})
	require.NoError(t, err)
	require.Equal(t, "salary: Huda (4/2024)", outcome.Transaction.EntityName)
	require.Len(t, s.SalaryPayments(), 1)
	balance, _ := s.SafeBalance("s1")
	require.True(t, balance.Equal(dec("50")))
}

func TestFailedPersistenceLeavesStateUntouched(t *testing.T) {
	repo := &failingRepo{MemoryRepository: NewMemoryRepository()}
	s := seededStore(t, repo)
	repo.fail = errors.New("disk full")

	_, err := s.Append(context.Background(), sale("t1", 3, "30"))
	require.Error(t, err)
	require.Empty(t, s.Transactions())
	p, _ := Get[masterdata.Product](s, "p1")
	qty, _ := p.StockAt("w1")
	require.Equal(t, 20, qty)
	balance, _ := s.SafeBalance("s1")
	require.True(t, balance.Equal(dec("1000")))

	_, err = s.AppendAccountingEntry(context.Background(), ledger.AccountingEntry{
		Type: ledger.EntryRevenue, Category: "misc", Amount: dec("5"), SafeID: "s1",
	})
	require.Error(t, err)
	require.Empty(t, s.AccountingEntries())

	snap, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, snap.Transactions)
}

func TestReplayReproducesCurrentState(t *testing.T) {
	s := seededStore(t, nil)
	ctx := context.Background()
	_, err := s.Append(ctx, ledger.Transaction{
		Type: ledger.TypePurchase, WarehouseID: "w2", SafeID: "s1", TotalAmount: dec("40"),
		Items: []ledger.TransactionItem{{ProductID: "p2", Quantity: 10, Cost: dec("4")}},
	})
	require.NoError(t, err)
	_, err = s.Append(ctx, sale("", 30, "300"))
	require.NoError(t, err)
	_, err = s.Append(ctx, ledger.Transaction{
		Type: ledger.TypeTransfer, FromWarehouseID: "w2", ToWarehouseID: "w1",
		Items: []ledger.TransactionItem{{ProductID: "p2", Quantity: 4}},
	})
	require.NoError(t, err)
	_, err = s.AppendAccountingEntry(ctx, ledger.AccountingEntry{Type: ledger.EntryRevenue, Category: "misc", Amount: dec("12.5"), SafeID: "s1"})
	require.NoError(t, err)

	require.Empty(t, s.Verify())

	result := s.Replay()
	require.Equal(t, 0, result.Stocks["p1"]["w1"])
	require.Equal(t, 6, result.Stocks["p2"]["w2"])
	require.Equal(t, 4, result.Stocks["p2"]["w1"])
	require.True(t, result.Balances["s1"].Equal(dec("1272.5")))
	require.Len(t, result.Warnings, 1)
}

func TestReplayStartsFromOpeningStocks(t *testing.T) {
	products := []masterdata.Product{{
		ID:            "p1",
		Stocks:        []masterdata.WarehouseStock{{WarehouseID: "w1", Quantity: 9}},
		OpeningStocks: []masterdata.WarehouseStock{{WarehouseID: "w1", Quantity: 10}},
	}}
	result := Replay(products, nil, nil)
	require.Equal(t, 10, result.Stocks["p1"]["w1"])
}

func TestLoadRestoresPersistedState(t *testing.T) {
	repo := NewMemoryRepository()
	s := seededStore(t, repo)
	ctx := context.Background()
	_, err := s.Append(ctx, sale("t1", 2, "20"))
	require.NoError(t, err)
	_, err = s.AppendAccountingEntry(ctx, ledger.AccountingEntry{ID: "ACC-1", Type: ledger.EntryRevenue, Category: "misc", Amount: dec("5"), SafeID: "s1"})
	require.NoError(t, err)

	restored := New(repo, nil)
	require.NoError(t, restored.Load(ctx))
	require.Len(t, restored.Transactions(), 2)
	require.Len(t, restored.AccountingEntries(), 1)
	balance, _ := restored.SafeBalance("s1")
	require.True(t, balance.Equal(dec("1025")))
	p, _ := Get[masterdata.Product](restored, "p1")
	qty, _ := p.StockAt("w1")
	require.Equal(t, 18, qty)
	require.Empty(t, restored.Verify())

	_, err = restored.Append(ctx, sale("t1", 1, "10"))
	require.ErrorIs(t, err, ErrDuplicateTransaction)
}

func TestUpdateEntityKeepsLedgerOwnedFields(t *testing.T) {
	s := seededStore(t, nil)
	ctx := context.Background()
	_, err := s.Append(ctx, sale("t1", 5, "50"))
	require.NoError(t, err)

	_, err = s.UpdateEntity(ctx, masterdata.Product{ID: "p1", Name: "Basmati", Price: dec("12"), Stocks: []masterdata.WarehouseStock{{WarehouseID: "w1", Quantity: 999}}})
	require.NoError(t, err)
	p, _ := Get[masterdata.Product](s, "p1")
	require.Equal(t, "Basmati", p.Name)
	qty, _ := p.StockAt("w1")
	require.Equal(t, 15, qty)

	_, err = s.UpdateEntity(ctx, masterdata.Safe{ID: "s1", Name: "Front desk", Balance: dec("1")})
	require.NoError(t, err)
	balance, _ := s.SafeBalance("s1")
	require.True(t, balance.Equal(dec("1050")))
	require.Empty(t, s.Verify())

	_, err = s.UpdateEntity(ctx, masterdata.Customer{ID: "missing"})
	require.ErrorIs(t, err, masterdata.ErrNotFound)
}

func TestRemoveEntityKeepsTransactions(t *testing.T) {
	s := seededStore(t, nil)
	ctx := context.Background()
	_, err := s.Append(ctx, sale("t1", 1, "10"))
	require.NoError(t, err)
	require.NoError(t, s.RemoveEntity(ctx, masterdata.KindCustomer, "c1"))
	_, ok := s.Entity(masterdata.KindCustomer, "c1")
	require.False(t, ok)
	require.Len(t, s.Transactions(), 1)
	require.ErrorIs(t, s.RemoveEntity(ctx, masterdata.KindCustomer, "c1"), masterdata.ErrNotFound)
}

func TestReAddingLoggedIDIsRejected(t *testing.T) {
	s := seededStore(t, nil)
	ctx := context.Background()
	_, err := s.Append(ctx, ledger.Transaction{
		Type: ledger.TypePurchase, WarehouseID: "w1", SafeID: "s1", TotalAmount: dec("24"),
		Items: []ledger.TransactionItem{{ProductID: "p2", Quantity: 6}},
	})
	require.NoError(t, err)

	require.NoError(t, s.RemoveEntity(ctx, masterdata.KindProduct, "p2"))
	_, err = s.AddEntity(ctx, masterdata.Product{ID: "p2", Name: "Oil"})
	require.ErrorIs(t, err, ErrReferencedID)

	require.NoError(t, s.RemoveEntity(ctx, masterdata.KindSafe, "s1"))
	_, err = s.AddEntity(ctx, masterdata.Safe{ID: "s1", Name: "Main"})
	require.ErrorIs(t, err, ErrReferencedID)

	_, err = s.Append(ctx, ledger.Transaction{
		Type: ledger.TypeSale, WarehouseID: "w1",
		Items: []ledger.TransactionItem{{ProductID: "p9", Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = s.AddEntity(ctx, masterdata.Product{ID: "p9", Name: "Salt"})
	require.ErrorIs(t, err, ErrReferencedID)

	_, err = s.AddEntity(ctx, masterdata.Product{ID: "p3", Name: "Flour"})
	require.NoError(t, err)
	_, err = s.AddEntity(ctx, masterdata.Customer{ID: "c9", Name: "Rania"})
	require.NoError(t, err)
	require.Empty(t, s.Verify())
}

func TestAddEntityDuplicateAndGeneratedID(t *testing.T) {
	s := seededStore(t, nil)
	ctx := context.Background()
	_, err := s.AddEntity(ctx, masterdata.Customer{ID: "c1"})
	require.ErrorIs(t, err, masterdata.ErrDuplicateID)

	added, err := s.AddEntity(ctx, &masterdata.Branch{Name: "North"})
	require.NoError(t, err)
	require.NotEmpty(t, added.EntityID())
	require.Len(t, s.Entities(masterdata.KindBranch), 1)
}

func TestHooksRunAfterCommit(t *testing.T) {
	s := seededStore(t, nil)
	var appended []string
	var changed []string
	s.OnAppend(func(ctx context.Context, outcome ledger.Outcome) {
		appended = append(appended, outcome.Transaction.ID)
	})
	s.OnEntityChange(func(ctx context.Context, kind masterdata.Kind, id string) {
		changed = append(changed, fmt.Sprintf("%s/%s", kind, id))
	})
	ctx := context.Background()
	_, err := s.Append(ctx, sale("t1", 1, "10"))
	require.NoError(t, err)
	_, err = s.AddEntity(ctx, masterdata.Warehouse{ID: "w9"})
	require.NoError(t, err)
	require.Equal(t, []string{"t1"}, appended)
	require.Equal(t, []string{"warehouse/w9"}, changed)
}

func TestConcurrentAppendsAreSerialised(t *testing.T) {
	s := seededStore(t, nil)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Append(ctx, sale("", 1, "10"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	require.Len(t, s.Transactions(), 20)
	p, _ := Get[masterdata.Product](s, "p1")
	qty, _ := p.StockAt("w1")
	require.Equal(t, 0, qty)
	balance, _ := s.SafeBalance("s1")
	require.True(t, balance.Equal(dec("1200")))
	require.Empty(t, s.Verify())
}

func TestRecentTransactionsNewestFirst(t *testing.T) {
	s := seededStore(t, nil)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		_, err := s.Append(ctx, sale(id, 1, "10"))
		require.NoError(t, err)
	}
	recent := s.RecentTransactions(2)
	require.Len(t, recent, 2)
	require.Equal(t, "c", recent[0].ID)
	require.Equal(t, "b", recent[1].ID)
	require.Len(t, s.RecentTransactions(0), 3)
}
