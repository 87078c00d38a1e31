package suratmasuk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipas/persuratan/internal/cache"
	"github.com/sipas/persuratan/internal/database"
	"github.com/sipas/persuratan/internal/models"
	"github.com/sipas/persuratan/internal/testutil"
)

type mockStore struct {
	items      map[string]*models.SuratMasuk
	listCalls  int
	batchCalls int
	batchErr   error
	nextID     int
}

func newMockStore() *mockStore {
	return &mockStore{items: map[string]*models.SuratMasuk{}}
}

func (m *mockStore) ListAll(_ context.Context) ([]models.SuratMasuk, error) {
	m.listCalls++
	out := []models.SuratMasuk{}
	for _, s := range m.items {
		out = append(out, *s)
	}
	return out, nil
}

func (m *mockStore) GetByID(_ context.Context, id string) (*models.SuratMasuk, error) {
	if s, ok := m.items[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, database.ErrNotFound
}

func (m *mockStore) Create(_ context.Context, p models.CreateSuratMasukParams) (*models.SuratMasuk, error) {
	m.nextID++
	s := &models.SuratMasuk{
		ID: fmt.Sprintf("m-%d", m.nextID), NomorSurat: p.NomorSurat, AsalSurat: p.AsalSurat, Perihal: p.Perihal,
		TanggalSurat: p.TanggalSurat, TanggalTerima: p.TanggalTerima, Sifat: p.Sifat, CreatedBy: p.CreatedBy,
		CreatedAt: time.Now(),
	}
	m.items[s.ID] = s
	cp := *s
	return &cp, nil
}

func (m *mockStore) CreateBatch(ctx context.Context, batch []models.CreateSuratMasukParams) (int, error) {
	m.batchCalls++
	if m.batchErr != nil {
		return 0, m.batchErr
	}
	for _, p := range batch {
		if _, err := m.Create(ctx, p); err != nil {
			return 0, err
		}
	}
	return len(batch), nil
}

func (m *mockStore) Update(_ context.Context, id string, p models.UpdateSuratMasukParams) (*models.SuratMasuk, error) {
	s, ok := m.items[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	if p.TanggalTerima != nil {
		s.TanggalTerima = *p.TanggalTerima
	}
	if p.Disposisi != nil {
		s.Disposisi = *p.Disposisi
	}
	cp := *s
	return &cp, nil
}

func (m *mockStore) Delete(_ context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func newTestService(t *testing.T) (*Service, *mockStore, cache.Store) {
	t.Helper()
	logger := testutil.NullLogger()
	store := cache.NewMemory(logger)
	loader := cache.NewLoader(store)
	inv := cache.NewInvalidator(store, logger).WithLoader(loader)
	ms := newMockStore()
	return NewService(ms, loader, inv, 60, logger), ms, store
}

func validParams() models.CreateSuratMasukParams {
	return models.CreateSuratMasukParams{
		NomorSurat:    "005/123/Kec/2026",
		AsalSurat:     "Kecamatan Sukamaju",
		Perihal:       "Laporan bulanan",
		TanggalSurat:  models.NewDate(2026, time.March, 1),
		TanggalTerima: models.NewDate(2026, time.March, 3),
	}
}

func TestService_CreateAndInvalidate(t *testing.T) {
	svc, ms, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.All(ctx)
	require.NoError(t, err)
	assert.True(t, store.Has(cache.KeySuratMasuk))

	created, err := svc.Create(ctx, "u-1", validParams())
	require.NoError(t, err)
	assert.Equal(t, "u-1", created.CreatedBy)
	assert.Equal(t, models.SifatBiasa, created.Sifat)
	assert.False(t, store.Has(cache.KeySuratMasuk))

	resp, err := svc.List(ctx, models.SuratMasukFilterParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.TotalCount)
	assert.Equal(t, 2, ms.listCalls)
}

func TestService_CreateRejectsReceivedBeforeWritten(t *testing.T) {
	svc, _, _ := newTestService(t)
	p := validParams()
	p.TanggalTerima = models.NewDate(2026, time.February, 28)

	_, err := svc.Create(context.Background(), "u-1", p)
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, CodeInvalidInput, svcErr.Code)
}

func TestService_UpdateChecksDates(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, "u-1", validParams())
	require.NoError(t, err)

	early := models.NewDate(2026, time.January, 1)
	_, err = svc.Update(ctx, created.ID, models.UpdateSuratMasukParams{TanggalTerima: &early})
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, CodeInvalidInput, svcErr.Code)

	disposisi := "Teruskan ke Sekretaris"
	updated, err := svc.Update(ctx, created.ID, models.UpdateSuratMasukParams{Disposisi: &disposisi})
	require.NoError(t, err)
	assert.Equal(t, disposisi, updated.Disposisi)

	_, err = svc.Update(ctx, "missing", models.UpdateSuratMasukParams{Disposisi: &disposisi})
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, CodeNotFound, svcErr.Code)
}

func TestService_Delete(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, "u-1", validParams())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	var svcErr *ServiceError
	require.ErrorAs(t, svc.Delete(ctx, created.ID), &svcErr)
	assert.Equal(t, CodeNotFound, svcErr.Code)
}

func TestService_ImportCSV(t *testing.T) {
	svc, ms, store := newTestService(t)
	ctx := context.Background()
	_, err := svc.All(ctx)
	require.NoError(t, err)

	sheet := strings.Join([]string{
		"nomor_surat;asal_surat;perihal;tanggal_surat;tanggal_terima;sifat",
		"001/A/2026;Dinas A;Undangan;01/03/2026;02/03/2026;penting",
		"002/B/2026;Dinas B;Laporan;2026-03-05;2026-03-04;biasa",
		"003/C/2026;Dinas C;Edaran;kemarin;2026-03-04;biasa",
		"004/D/2026;Dinas D;Permohonan;2026-03-05;2026-03-06;",
	}, "\n")

	result, err := svc.ImportCSV(ctx, "u-1", strings.NewReader(sheet))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	require.Len(t, result.Failed, 2)
	assert.Equal(t, 2, result.Failed[0].Row)
	assert.Equal(t, 3, result.Failed[1].Row)
	assert.Equal(t, 1, ms.batchCalls)
	assert.False(t, store.Has(cache.KeySuratMasuk), "import must evict suratMasukData once")
}

func TestService_ImportFailureIsNotCached(t *testing.T) {
	svc, ms, _ := newTestService(t)
	ms.batchErr = errors.New("connection reset")

	_, err := svc.Import(context.Background(), "u-1", []models.CreateSuratMasukParams{validParams()})
	assert.Error(t, err)
	assert.Empty(t, ms.items)
}

func TestParseCSV_Header(t *testing.T) {
	_, _, err := ParseCSV(strings.NewReader(""))
	assert.Error(t, err)

	_, _, err = ParseCSV(strings.NewReader("nomor_surat,perihal\nx,y\n"))
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Contains(t, svcErr.Message, "asal_surat")

	rows, failed, err := ParseCSV(strings.NewReader("\ufeffTanggal_Terima,Nomor_Surat,Asal_Surat,Perihal,Tanggal_Surat\n2026-01-02,1/X,Desa,Hal,2026-01-01\n"))
	require.NoError(t, err)
	assert.Empty(t, failed)
	require.Len(t, rows, 1)
	assert.Equal(t, "1/X", rows[0].Params.NomorSurat)
	assert.Equal(t, 1, rows[0].Number)
}

func TestFilter(t *testing.T) {
	mk := func(id string, terima models.Date, sifat models.Sifat, asal string) models.SuratMasuk {
		return models.SuratMasuk{ID: id, TanggalTerima: terima, TanggalSurat: terima, Sifat: sifat, AsalSurat: asal}
	}
	all := []models.SuratMasuk{
		mk("a", models.NewDate(2025, time.December, 1), models.SifatBiasa, "Bupati"),
		mk("b", models.NewDate(2026, time.January, 2), models.SifatSegera, "Camat"),
		mk("c", models.NewDate(2026, time.February, 3), models.SifatBiasa, "Camat"),
	}

	got := Filter(all, models.SuratMasukFilterParams{Tahun: 2026, Query: "camat"})
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)

	got = Filter(all, models.SuratMasukFilterParams{Sifat: "SEGERA"})
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
}
