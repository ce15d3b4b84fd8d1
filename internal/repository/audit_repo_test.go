package repository_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/axelbon/pos-backend/internal/model"
	"github.com/axelbon/pos-backend/internal/repository"
	"github.com/axelbon/pos-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newRepo(t *testing.T) repository.AuditLogRepository {
	t.Helper()
	return repository.NewAuditLogRepository(testutil.SetupTestDB(t))
}

// assertSameLog compares every field, created_at by instant.
func assertSameLog(t *testing.T, want, got *model.AuditLog) {
	t.Helper()
	require.NotNil(t, got)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at: want %v got %v", want.CreatedAt, got.CreatedAt)

	w, g := *want, *got
	w.CreatedAt, g.CreatedAt = time.Time{}, time.Time{}
	assert.Equal(t, w, g)
}

func mustCount(t *testing.T, repo repository.AuditLogRepository) int64 {
	t.Helper()
	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestSave_InsertAssignsIDAndCreatedAt(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	before := time.Now().Add(-time.Second)
	saved, err := repo.Save(ctx, model.NewAuditLog(7, model.ActionLogin))
	require.NoError(t, err)

	assert.Equal(t, int64(1), saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())
	assert.True(t, saved.CreatedAt.After(before))
	assert.Nil(t, saved.Reason)

	found, err := repo.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	assertSameLog(t, saved, found)

	require.NoError(t, repo.DeleteByID(ctx, saved.ID))

	found, err = repo.FindByID(ctx, saved.ID)
	assert.Nil(t, found)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSave_RoundTripsEveryField(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	in := model.NewAuditLog(12, model.ActionUpdateProduct,
		model.WithReason("cost price corrected"),
		model.WithCategory(3),
		model.WithProduct(44),
		model.WithSupplier(5),
		model.WithUser(6),
		model.WithRole(2),
	)
	saved, err := repo.Save(ctx, in)
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	assertSameLog(t, saved, found)
	assert.Equal(t, "cost price corrected", *found.Reason)
	assert.Equal(t, int64(44), *found.ProductID)
}

func TestSave_ReturnsRowAsStored(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	saved, err := repo.Save(ctx, model.NewAuditLog(9, model.ActionPriceChange, model.WithProduct(17)))
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, *found, *saved)
}

func TestSave_IgnoresCallerCreatedAt(t *testing.T) {
	repo := newRepo(t)

	in := model.NewAuditLog(1, model.ActionLogin)
	in.CreatedAt = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

	saved, err := repo.Save(context.Background(), in)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), saved.CreatedAt, time.Minute)
}

func TestSave_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name string
		log  *model.AuditLog
	}{
		{name: "missing auditor", log: &model.AuditLog{Action: model.ActionLogin}},
		{name: "missing action", log: &model.AuditLog{AuditorID: 7}},
		{name: "unknown action", log: &model.AuditLog{AuditorID: 7, Action: "EXPLODE"}},
		{name: "empty record", log: &model.AuditLog{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newRepo(t)

			out, err := repo.Save(context.Background(), tt.log)
			assert.Nil(t, out)
			assert.ErrorIs(t, err, repository.ErrConstraintViolation)
			assert.Zero(t, tt.log.ID)
			assert.Equal(t, int64(0), mustCount(t, repo))
		})
	}
}

func TestSave_ReasonTooLong(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	_, err := repo.Save(ctx, model.NewAuditLog(3, model.ActionStockAdjust))
	require.NoError(t, err)
	before := mustCount(t, repo)

	_, err = repo.Save(ctx, model.NewAuditLog(3, model.ActionStockAdjust,
		model.WithReason(strings.Repeat("x", 101))))
	require.ErrorIs(t, err, repository.ErrConstraintViolation)
	assert.Contains(t, err.Error(), "reason")

	assert.Equal(t, before, mustCount(t, repo))
}

func TestSave_ReasonLimitCountsCharacters(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	_, err := repo.Save(ctx, model.NewAuditLog(3, model.ActionStockAdjust,
		model.WithReason(strings.Repeat("x", 100))))
	require.NoError(t, err)

	_, err = repo.Save(ctx, model.NewAuditLog(3, model.ActionStockAdjust,
		model.WithReason(strings.Repeat("é", 100))))
	require.NoError(t, err)

	assert.Equal(t, int64(2), mustCount(t, repo))
}

func TestSave_UpdateKeepsCreatedAt(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	saved, err := repo.Save(ctx, model.NewAuditLog(7, model.ActionLogin, model.WithReason("first")))
	require.NoError(t, err)
	created := saved.CreatedAt

	update := *saved
	update.Reason = nil
	update.Action = model.ActionLogout
	update.CreatedAt = created.Add(48 * time.Hour)

	out, err := repo.Save(ctx, &update)
	require.NoError(t, err)
	assert.True(t, created.Equal(out.CreatedAt))
	assert.Equal(t, model.ActionLogout, out.Action)
	assert.Nil(t, out.Reason)

	found, err := repo.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.True(t, created.Equal(found.CreatedAt))
	assert.Nil(t, found.Reason)
	assert.Equal(t, int64(1), mustCount(t, repo))
}

func TestSave_UpdateUnknownID(t *testing.T) {
	repo := newRepo(t)

	l := model.NewAuditLog(7, model.ActionLogin)
	l.ID = 99

	_, err := repo.Save(context.Background(), l)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, int64(0), mustCount(t, repo))
}

func TestSave_UpdateValidates(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	saved, err := repo.Save(ctx, model.NewAuditLog(7, model.ActionLogin))
	require.NoError(t, err)

	saved.AuditorID = 0
	_, err = repo.Save(ctx, saved)
	assert.ErrorIs(t, err, repository.ErrConstraintViolation)

	found, err := repo.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), found.AuditorID)
}

func TestSave_Nil(t *testing.T) {
	repo := newRepo(t)
	_, err := repo.Save(context.Background(), nil)
	assert.Error(t, err)
}

func TestSave_ConcurrentInsertsGetDistinctIDs(t *testing.T) {
	repo := newRepo(t)

	const n = 20
	ids := make([]int64, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			saved, err := repo.Save(context.Background(), model.NewAuditLog(int64(i+1), model.ActionCreateSale))
			if err != nil {
				return err
			}
			ids[i] = saved.ID
			return nil
		})
	}
	require.NoError(t, g.Wait())

	seen := make(map[int64]bool, n)
	for _, id := range ids {
		assert.NotZero(t, id)
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Equal(t, int64(n), mustCount(t, repo))
}

func TestSaveAll_CommitsTogether(t *testing.T) {
	repo := newRepo(t)

	saved, err := repo.SaveAll(context.Background(), []*model.AuditLog{
		model.NewAuditLog(1, model.ActionLogin),
		model.NewAuditLog(1, model.ActionCreateSale, model.WithProduct(9)),
		model.NewAuditLog(1, model.ActionLogout),
	})
	require.NoError(t, err)
	require.Len(t, saved, 3)
	for _, l := range saved {
		assert.NotZero(t, l.ID)
	}
	assert.Equal(t, int64(3), mustCount(t, repo))
}

func TestSaveAll_RollsBackOnViolation(t *testing.T) {
	repo := newRepo(t)

	_, err := repo.SaveAll(context.Background(), []*model.AuditLog{
		model.NewAuditLog(1, model.ActionLogin),
		{AuditorID: 1},
	})
	require.ErrorIs(t, err, repository.ErrConstraintViolation)
	assert.Equal(t, int64(0), mustCount(t, repo))
}

func TestFindByID_NeverIssued(t *testing.T) {
	repo := newRepo(t)

	found, err := repo.FindByID(context.Background(), 12345)
	assert.Nil(t, found)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestExistsByID(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	saved, err := repo.Save(ctx, model.NewAuditLog(1, model.ActionLogin))
	require.NoError(t, err)

	ok, err := repo.ExistsByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ExistsByID(ctx, saved.ID+1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func seed(t *testing.T, repo repository.AuditLogRepository, n int) []*model.AuditLog {
	t.Helper()
	out := make([]*model.AuditLog, 0, n)
	for i := 0; i < n; i++ {
		saved, err := repo.Save(context.Background(), model.NewAuditLog(int64(i%3+1), model.ActionStockAdjust))
		require.NoError(t, err)
		out = append(out, saved)
	}
	return out
}

func TestFindAll_FreshQueryEachCall(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	seed(t, repo, 3)
	all, err = repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{all[0].ID, all[1].ID, all[2].ID})

	seed(t, repo, 1)
	all, err = repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestFindAllByID_SkipsMissing(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	seed(t, repo, 4)

	found, err := repo.FindAllByID(ctx, []int64{4, 2, 77})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, int64(2), found[0].ID)
	assert.Equal(t, int64(4), found[1].ID)

	found, err = repo.FindAllByID(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestFindPage_NewestFirst(t *testing.T) {
	repo := newRepo(t)
	seed(t, repo, 5)

	page, err := repo.FindPage(context.Background(), repository.PageRequest{
		Offset: 0, Limit: 2, Sort: "created_at", Desc: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(5), page.Items[0].ID)
	assert.Equal(t, int64(4), page.Items[1].ID)

	last, err := repo.FindPage(context.Background(), repository.PageRequest{
		Offset: 4, Limit: 2, Sort: "CreatedAt", Desc: true,
	})
	require.NoError(t, err)
	require.Len(t, last.Items, 1)
	assert.Equal(t, int64(1), last.Items[0].ID)
}

func TestFindPage_DefaultSortIsPrimaryKey(t *testing.T) {
	repo := newRepo(t)
	seed(t, repo, 3)

	page, err := repo.FindPage(context.Background(), repository.PageRequest{Offset: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(2), page.Items[0].ID)
}

func TestFindPage_Invalid(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	_, err := repo.FindPage(ctx, repository.PageRequest{Limit: 0})
	assert.ErrorIs(t, err, repository.ErrInvalidPage)

	_, err = repo.FindPage(ctx, repository.PageRequest{Offset: -1, Limit: 5})
	assert.ErrorIs(t, err, repository.ErrInvalidPage)

	_, err = repo.FindPage(ctx, repository.PageRequest{Limit: 5, Sort: "id; DROP TABLE audit_log"})
	assert.ErrorIs(t, err, repository.ErrInvalidPage)
}

func TestIterate_Batches(t *testing.T) {
	repo := newRepo(t)
	seed(t, repo, 5)

	var sizes []int
	var ids []int64
	err := repo.Iterate(context.Background(), 2, func(batch []model.AuditLog) error {
		sizes = append(sizes, len(batch))
		for _, l := range batch {
			ids = append(ids, l.ID)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, sizes)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids)
}

func TestIterate_StopsOnError(t *testing.T) {
	repo := newRepo(t)
	seed(t, repo, 5)

	stop := errors.New("stop")
	calls := 0
	err := repo.Iterate(context.Background(), 2, func(batch []model.AuditLog) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestDeleteByID_Absent(t *testing.T) {
	repo := newRepo(t)

	err := repo.DeleteByID(context.Background(), 5)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDelete_Record(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	logs := seed(t, repo, 2)

	require.NoError(t, repo.Delete(ctx, logs[0]))
	assert.Equal(t, int64(1), mustCount(t, repo))

	assert.ErrorIs(t, repo.Delete(ctx, logs[0]), repository.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, nil), repository.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, model.NewAuditLog(1, model.ActionLogin)), repository.ErrNotFound)
}

func TestOperations_CanceledContext(t *testing.T) {
	repo := newRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Save(ctx, model.NewAuditLog(1, model.ActionLogin))
	assert.ErrorIs(t, err, context.Canceled)
}
