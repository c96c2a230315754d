package statement

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/manara-erp/manara/internal/ledger"
	"github.com/manara-erp/manara/internal/masterdata"
	"github.com/manara-erp/manara/internal/store"
	_ "github.com/manara-erp/manara/testing"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func sampleLog() []ledger.Transaction {
	return []ledger.Transaction{
		{ID: "t3", Date: "2024-03-05", Type: ledger.TypeAccounting, EntityID: "c1", SafeID: "s1", TotalAmount: d("50"), IsRevenue: true, EntityName: "settlement: Amal"},
		{ID: "t1", Date: "2024-03-01", Type: ledger.TypeSale, EntityID: "c1", SafeID: "s1", TotalAmount: d("100")},
		{ID: "t2", Date: "2024-03-01", Type: ledger.TypeSale, EntityID: "c1", TotalAmount: d("30")},
		{ID: "t4", Date: "2024-03-02", Type: ledger.TypePurchase, EntityID: "sup1", SafeID: "s1", TotalAmount: d("70")},
		{ID: "t5", Date: "2024-03-03", Type: ledger.TypeAccounting, SafeID: "s1", TotalAmount: d("20"), EntityName: "expense: rent"},
		{ID: "t6", Date: "2024-03-04", Type: ledger.TypeSalary, SafeID: "s1", TotalAmount: d("15")},
		{ID: "t7", Date: "2024-03-04", Type: ledger.TypeAccounting, EntityID: "sup1", SafeID: "s1", TotalAmount: d("40")},
	}
}

func TestBuildCustomerStatement(t *testing.T) {
	st := Build(sampleLog(), Query{Kind: AccountCustomer, AccountID: "c1"})
	require.Len(t, st.Rows, 3)
	require.Equal(t, []string{"t1", "t2", "t3"}, []string{st.Rows[0].TransactionID, st.Rows[1].TransactionID, st.Rows[2].TransactionID})
	require.True(t, st.Rows[0].Balance.Equal(d("100")))
	require.True(t, st.Rows[1].Balance.Equal(d("130")))
	require.True(t, st.Rows[2].Credit.Equal(d("50")))
	require.True(t, st.Rows[2].Balance.Equal(d("80")))
	require.True(t, st.TotalDebit.Equal(d("130")))
	require.True(t, st.TotalCredit.Equal(d("50")))
	require.True(t, st.Net.Equal(d("80")))
	require.Equal(t, LabelDebit, st.Label)
}

func TestBuildSupplierStatement(t *testing.T) {
	st := Build(sampleLog(), Query{Kind: AccountSupplier, AccountID: "sup1"})
	require.Len(t, st.Rows, 2)
	require.True(t, st.Rows[0].Credit.Equal(d("70")))
	require.True(t, st.Rows[1].Debit.Equal(d("40")))
	require.True(t, st.Net.Equal(d("-30")))
	require.Equal(t, LabelCredit, st.Label)
}

func TestBuildSafeStatementUsesRevenueFlag(t *testing.T) {
	st := Build(sampleLog(), Query{Kind: AccountSafe, AccountID: "s1"})
	require.Len(t, st.Rows, 6)
	// 100 - 70 - 20 - 15 - 40 + 50
	require.True(t, st.Net.Equal(d("5")))
	last := st.Rows[len(st.Rows)-1]
	require.Equal(t, "t3", last.TransactionID)
	require.True(t, last.Debit.Equal(d("50")))
	require.True(t, last.Balance.Equal(st.TotalDebit.Sub(st.TotalCredit)))
}

func TestBuildDateWindowIsInclusive(t *testing.T) {
	st := Build(sampleLog(), Query{Kind: AccountSafe, AccountID: "s1", From: "2024-03-02", To: "2024-03-04"})
	require.Len(t, st.Rows, 4)
	require.Equal(t, "2024-03-02", st.Rows[0].Date)
	require.Equal(t, "2024-03-04", st.Rows[3].Date)

	st = Build(sampleLog(), Query{Kind: AccountCustomer, AccountID: "c1", To: "2024-03-01"})
	require.Len(t, st.Rows, 2)
}

func TestBuildUnknownAccountIsEmpty(t *testing.T) {
	st := Build(sampleLog(), Query{Kind: AccountCustomer, AccountID: "nobody"})
	require.Empty(t, st.Rows)
	require.True(t, st.Net.IsZero())
	require.Equal(t, LabelDebit, st.Label)
}

func TestBuildIsDeterministic(t *testing.T) {
	log := sampleLog()
	q := Query{Kind: AccountSafe, AccountID: "s1"}
	require.Equal(t, Build(log, q), Build(log, q))
	require.Equal(t, "t3", log[0].ID)
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind("supplier")
	require.NoError(t, err)
	require.Equal(t, AccountSupplier, kind)
	_, err = ParseKind("warehouse")
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestSettleBuildsEntry(t *testing.T) {
	st := Build(sampleLog(), Query{Kind: AccountSupplier, AccountID: "sup1"})
	st.AccountName = "Nour Trading"
	entry, err := Settle(st, SettleInput{SafeID: "s1"})
	require.NoError(t, err)
	require.Equal(t, ledger.EntryExpense, entry.Type)
	require.True(t, entry.Amount.Equal(d("30")))
	require.Equal(t, SettlementCategory, entry.Category)
	require.Equal(t, "settlement: Nour Trading", entry.Note)
	require.Equal(t, "sup1", entry.EntityID)
	require.Equal(t, "supplier", entry.EntityType)
	require.Contains(t, entry.ID, "PAY-")

	_, err = Settle(st, SettleInput{})
	require.ErrorIs(t, err, ErrSafeRequired)

	safe := Build(sampleLog(), Query{Kind: AccountSafe, AccountID: "s1"})
	_, err = Settle(safe, SettleInput{SafeID: "s1"})
	require.ErrorIs(t, err, ErrSettlementUnsupported)

	empty := Build(nil, Query{Kind: AccountCustomer, AccountID: "c9"})
	_, err = Settle(empty, SettleInput{SafeID: "s1"})
	require.ErrorIs(t, err, ErrNothingToSettle)
}

func TestSettlementClearsCustomerBalance(t *testing.T) {
	ctx := context.Background()
	s := store.New(nil, nil)
	_, err := s.AddEntity(ctx, masterdata.Safe{ID: "S", Name: "Till", Balance: d("0")})
	require.NoError(t, err)
	_, err = s.AddEntity(ctx, masterdata.Customer{ID: "C", Name: "Amal"})
	require.NoError(t, err)
	_, err = s.Append(ctx, ledger.Transaction{Date: "2024-01-01", Type: ledger.TypeSale, EntityID: "C", TotalAmount: d("500")})
	require.NoError(t, err)

	st := Build(s.Transactions(), Query{Kind: AccountCustomer, AccountID: "C"})
	require.True(t, st.Net.Equal(d("500")))

	entry, err := Settle(st, SettleInput{SafeID: "S", Date: "2024-01-02"})
	require.NoError(t, err)
	_, err = s.AppendAccountingEntry(ctx, entry)
	require.NoError(t, err)

	st = Build(s.Transactions(), Query{Kind: AccountCustomer, AccountID: "C"})
	require.True(t, st.Rows[len(st.Rows)-1].Balance.IsZero())
	balance, _ := s.SafeBalance("S")
	require.True(t, balance.Equal(d("500")))
}
