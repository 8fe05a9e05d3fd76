package repository

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BookForge/app/models"
	"github.com/ManuelReschke/BookForge/internal/pkg/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := database.OpenSQLite(dsn)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestCreditRepository_GetOrCreateProvisionsOnce(t *testing.T) {
	repo := NewCreditRepository(newTestDB(t))

	uc, created, err := repo.GetOrCreate("user-1", 30)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 30, uc.Credits)

	uc, created, err = repo.GetOrCreate("user-1", 100)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 30, uc.Credits)

	txs, err := repo.ListTransactions("user-1", 10)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TransactionInitialAllocation, txs[0].TransactionType)
	assert.Equal(t, 30, txs[0].Amount)
}

func TestCreditRepository_Deduct(t *testing.T) {
	repo := NewCreditRepository(newTestDB(t))
	_, _, err := repo.GetOrCreate("user-1", 20)
	require.NoError(t, err)

	balance, ok, err := repo.Deduct("user-1", 12, models.TransactionChapterGeneration, "2 chapters")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 8, balance)

	balance, ok, err = repo.Deduct("user-1", 12, models.TransactionChapterGeneration, "2 chapters")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 8, balance)

	txs, err := repo.ListTransactions("user-1", 10)
	require.NoError(t, err)
	// initial allocation + one successful deduction
	require.Len(t, txs, 2)
	sum := 0
	for _, tx := range txs {
		sum += tx.Amount
	}
	assert.Equal(t, balance, sum)
}

func TestCreditRepository_AddRequiresRow(t *testing.T) {
	repo := NewCreditRepository(newTestDB(t))

	_, err := repo.Add("ghost", 10, models.TransactionPurchase, "")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, _, err = repo.GetOrCreate("user-1", 5)
	require.NoError(t, err)
	balance, err := repo.Add("user-1", 50, models.TransactionPurchase, "starter")
	require.NoError(t, err)
	assert.Equal(t, 55, balance)
}

func TestPaymentRepository_OrderDedupByReceipt(t *testing.T) {
	repo := NewPaymentRepository(newTestDB(t))

	first := &models.PaymentOrder{GatewayOrderID: "order_1", UserID: "u", Receipt: "r1", PackageID: "starter", Credits: 50, Amount: 500, Currency: "USD"}
	created, stored, err := repo.CreateOrderIfNotExists(first)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "order_1", stored.GatewayOrderID)

	dup := &models.PaymentOrder{GatewayOrderID: "order_2", UserID: "u", Receipt: "r1", PackageID: "starter", Credits: 50, Amount: 500, Currency: "USD"}
	created, stored, err = repo.CreateOrderIfNotExists(dup)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "order_1", stored.GatewayOrderID)
}

func TestPaymentRepository_CreditOnce(t *testing.T) {
	db := newTestDB(t)
	credits := NewCreditRepository(db)
	repo := NewPaymentRepository(db)

	_, _, err := credits.GetOrCreate("u", 30)
	require.NoError(t, err)
	_, _, err = repo.CreateOrderIfNotExists(&models.PaymentOrder{GatewayOrderID: "order_1", UserID: "u", Receipt: "r1", PackageID: "starter", Credits: 50, Amount: 500, Currency: "USD"})
	require.NoError(t, err)

	_, v, err := repo.CreateVerificationIfNotExists(&models.PaymentVerification{
		GatewayPaymentID: "pay_1", GatewayOrderID: "order_1", UserID: "u", Credits: 50, SignatureValid: true,
	})
	require.NoError(t, err)

	balance, credited, err := repo.CreditOnce(v.ID, "starter package")
	require.NoError(t, err)
	assert.True(t, credited)
	assert.Equal(t, 80, balance)

	balance, credited, err = repo.CreditOnce(v.ID, "starter package")
	require.NoError(t, err)
	assert.False(t, credited)
	assert.Equal(t, 80, balance)

	order, err := repo.GetOrderByGatewayID("order_1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentOrderStatusPaid, order.Status)

	created, _, err := repo.CreateVerificationIfNotExists(&models.PaymentVerification{
		GatewayPaymentID: "pay_1", GatewayOrderID: "order_1", UserID: "u", Credits: 50,
	})
	require.NoError(t, err)
	assert.False(t, created)
}

func TestDirectorRepository_ChaptersOrderedAndUpserted(t *testing.T) {
	repo := NewDirectorRepository(newTestDB(t))
	project := &models.DirectorProject{ID: "p1", UserID: "u", Title: "Book", Idea: "idea", Language: "English"}
	require.NoError(t, repo.CreateProject(project))

	require.NoError(t, repo.SaveChapter(&models.DirectorChapter{ProjectID: "p1", Number: 2, Title: "Two", Content: "b"}))
	require.NoError(t, repo.SaveChapter(&models.DirectorChapter{ProjectID: "p1", Number: 1, Title: "One", Content: "a"}))
	require.NoError(t, repo.SaveChapter(&models.DirectorChapter{ProjectID: "p1", Number: 2, Title: "Two revised", Content: "b2"}))

	got, err := repo.GetProject("u", "p1")
	require.NoError(t, err)
	require.Len(t, got.Chapters, 2)
	assert.Equal(t, 1, got.Chapters[0].Number)
	assert.Equal(t, "Two revised", got.Chapters[1].Title)
	assert.Equal(t, "b2", got.Chapters[1].Content)

	_, err = repo.GetProject("someone-else", "p1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestExportRepository_Status(t *testing.T) {
	repo := NewExportRepository(newTestDB(t))
	rec := &models.ExportJobRecord{ID: "e1", UserID: "u", Title: "Book", Format: models.ExportFormatPDF, Status: models.ExportStatusQueued}
	require.NoError(t, repo.Create(rec))
	require.NoError(t, repo.SetJobID("e1", "job-1"))
	require.NoError(t, repo.UpdateStatus("e1", models.ExportStatusCompleted, "exports/u/e1.pdf", "https://cdn/e1.pdf", ""))

	got, err := repo.GetForUser("u", "e1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", got.JobID)
	assert.Equal(t, models.ExportStatusCompleted, got.Status)
	assert.Equal(t, "https://cdn/e1.pdf", got.URL)

	_, err = repo.GetForUser("other", "e1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.ErrorIs(t, repo.UpdateStatus("missing", models.ExportStatusFailed, "", "", "x"), gorm.ErrRecordNotFound)
}

func TestInitializeFactory_ReplacesGlobalSet(t *testing.T) {
	registryMu.Lock()
	registry = nil
	registryMu.Unlock()
	assert.Panics(t, func() { GetGlobalRepositories() })

	first := InitializeFactory(newTestDB(t))
	assert.Same(t, first, GetGlobalRepositories())
	assert.NotNil(t, first.Credit)
	assert.NotNil(t, first.Export)

	second := InitializeFactory(newTestDB(t))
	assert.Same(t, second, GetGlobalRepositories())
	assert.NotSame(t, first, second)
}
