package surat

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipas/persuratan/internal/cache"
	"github.com/sipas/persuratan/internal/database"
	"github.com/sipas/persuratan/internal/models"
	"github.com/sipas/persuratan/internal/testutil"
)

type counterKey struct {
	kode  string
	tahun int
}

type mockStore struct {
	mu        sync.Mutex
	items     map[string]*models.Surat
	counters  map[counterKey]int
	listCalls int
	nextID    int
}

func newMockStore() *mockStore {
	return &mockStore{items: map[string]*models.Surat{}, counters: map[counterKey]int{}}
}

func (m *mockStore) ListAll(_ context.Context) ([]models.Surat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	out := []models.Surat{}
	for _, s := range m.items {
		out = append(out, *s)
	}
	return out, nil
}

func (m *mockStore) GetByID(_ context.Context, id string) (*models.Surat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.items[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, database.ErrNotFound
}

func (m *mockStore) PeekNomorUrut(_ context.Context, kode string, tahun int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[counterKey{kode, tahun}] + 1, nil
}

func (m *mockStore) next(kode string, tahun int) int {
	k := counterKey{kode, tahun}
	m.counters[k]++
	return m.counters[k]
}

func (m *mockStore) CreateNumbered(_ context.Context, p models.CreateSuratParams) (*models.Surat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tahun := p.TanggalSurat.Year()
	urut := m.next(p.KategoriKode, tahun)
	m.nextID++
	s := &models.Surat{
		ID:           fmt.Sprintf("s-%d", m.nextID),
		NomorSurat:   models.FormatNomorSurat(p.KategoriKode, urut, tahun),
		KategoriKode: p.KategoriKode,
		NomorUrut:    urut,
		Tahun:        tahun,
		TanggalSurat: p.TanggalSurat,
		Tujuan:       p.Tujuan,
		Perihal:      p.Perihal,
		Sifat:        p.Sifat,
		CreatedBy:    p.CreatedBy,
		CreatedAt:    time.Now(),
	}
	m.items[s.ID] = s
	cp := *s
	return &cp, nil
}

func (m *mockStore) Update(_ context.Context, id string, p models.UpdateSuratParams) (*models.Surat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	renumber := models.NeedsRenumber(*s, p)
	if p.KategoriKode != nil {
		s.KategoriKode = *p.KategoriKode
	}
	if p.TanggalSurat != nil {
		s.TanggalSurat = *p.TanggalSurat
	}
	if p.Perihal != nil {
		s.Perihal = *p.Perihal
	}
	if renumber {
		s.Tahun = s.TanggalSurat.Year()
		s.NomorUrut = m.next(s.KategoriKode, s.Tahun)
		s.NomorSurat = models.FormatNomorSurat(s.KategoriKode, s.NomorUrut, s.Tahun)
	}
	cp := *s
	return &cp, nil
}

func (m *mockStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

type notFoundError struct{}

func (notFoundError) Error() string     { return "kategori not found" }
func (notFoundError) ErrorCode() string { return CodeNotFound }

type fakeKategori map[string]bool

func (f fakeKategori) FindByKode(_ context.Context, kode string) (*models.Kategori, error) {
	if !f[kode] {
		return nil, notFoundError{}
	}
	return &models.Kategori{Kode: kode}, nil
}

func newTestService(t *testing.T) (*Service, *mockStore, cache.Store) {
	t.Helper()
	logger := testutil.NullLogger()
	store := cache.NewMemory(logger)
	loader := cache.NewLoader(store)
	inv := cache.NewInvalidator(store, logger).WithLoader(loader)
	ms := newMockStore()
	kat := fakeKategori{"000": true, "000.1": true, "800": true}
	return NewService(ms, kat, loader, inv, 60, logger), ms, store
}

func validParams(kode string, d models.Date) models.CreateSuratParams {
	return models.CreateSuratParams{KategoriKode: kode, TanggalSurat: d, Tujuan: "Dinas Pendidikan", Perihal: "Undangan rapat"}
}

func TestService_CreateNumbersSequentially(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	d := models.NewDate(2026, time.February, 3)

	first, err := svc.Create(ctx, "u-1", validParams("000.1", d))
	require.NoError(t, err)
	second, err := svc.Create(ctx, "u-1", validParams("000.1", d))
	require.NoError(t, err)
	other, err := svc.Create(ctx, "u-1", validParams("800", d))
	require.NoError(t, err)

	assert.Equal(t, "000.1/001/2026", first.NomorSurat)
	assert.Equal(t, "000.1/002/2026", second.NomorSurat)
	assert.Equal(t, "800/001/2026", other.NomorSurat)
	assert.Equal(t, "u-1", first.CreatedBy)
	assert.Equal(t, models.SifatBiasa, first.Sifat)
}

func TestService_CreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	d := models.NewDate(2026, time.February, 3)

	_, err := svc.Create(ctx, "u-1", validParams("999", d))
	assertCode(t, err, CodeInvalidInput)

	_, err = svc.Create(ctx, "u-1", validParams("000", models.Date{}))
	assertCode(t, err, CodeInvalidInput)

	p := validParams("000", d)
	p.Sifat = "urgent"
	_, err = svc.Create(ctx, "u-1", p)
	assertCode(t, err, CodeInvalidInput)
}

func TestService_CreateInvalidatesList(t *testing.T) {
	svc, ms, store := newTestService(t)
	ctx := context.Background()
	d := models.NewDate(2026, time.February, 3)

	resp, err := svc.List(ctx, models.SuratFilterParams{})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.TotalCount)
	assert.True(t, store.Has(cache.KeySurat))

	_, err = svc.Create(ctx, "u-1", validParams("000", d))
	require.NoError(t, err)
	assert.False(t, store.Has(cache.KeySurat), "create must evict suratData")

	resp, err = svc.List(ctx, models.SuratFilterParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.TotalCount)
	assert.Equal(t, 2, ms.listCalls)

	_, err = svc.List(ctx, models.SuratFilterParams{})
	require.NoError(t, err)
	assert.Equal(t, 2, ms.listCalls, "unchanged data is served from cache")
}

func TestService_UpdateRenumbers(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	d := models.NewDate(2026, time.February, 3)

	created, err := svc.Create(ctx, "u-1", validParams("000", d))
	require.NoError(t, err)

	perihal := "Undangan rapat koordinasi"
	kept, err := svc.Update(ctx, created.ID, models.UpdateSuratParams{Perihal: &perihal})
	require.NoError(t, err)
	assert.Equal(t, created.NomorSurat, kept.NomorSurat)

	sameYear := models.NewDate(2026, time.March, 1)
	kept, err = svc.Update(ctx, created.ID, models.UpdateSuratParams{TanggalSurat: &sameYear})
	require.NoError(t, err)
	assert.Equal(t, "000/001/2026", kept.NomorSurat)

	kode := "800"
	moved, err := svc.Update(ctx, created.ID, models.UpdateSuratParams{KategoriKode: &kode})
	require.NoError(t, err)
	assert.Equal(t, "800/001/2026", moved.NomorSurat)

	nextYear := models.NewDate(2027, time.January, 4)
	moved, err = svc.Update(ctx, created.ID, models.UpdateSuratParams{TanggalSurat: &nextYear})
	require.NoError(t, err)
	assert.Equal(t, "800/001/2027", moved.NomorSurat)

	missing := "999"
	_, err = svc.Update(ctx, created.ID, models.UpdateSuratParams{KategoriKode: &missing})
	assertCode(t, err, CodeInvalidInput)

	_, err = svc.Update(ctx, "nope", models.UpdateSuratParams{Perihal: &perihal})
	assertCode(t, err, CodeNotFound)
}

func TestService_PreviewNomor(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	d := models.NewDate(2026, time.May, 20)

	preview, err := svc.PreviewNomor(ctx, "000.1", d)
	require.NoError(t, err)
	assert.Equal(t, "000.1/001/2026", preview.NomorSurat)

	// previewing does not allocate
	preview, err = svc.PreviewNomor(ctx, "000.1", d)
	require.NoError(t, err)
	assert.Equal(t, 1, preview.NomorUrut)

	_, err = svc.Create(ctx, "u-1", validParams("000.1", d))
	require.NoError(t, err)
	preview, err = svc.PreviewNomor(ctx, "000.1", d)
	require.NoError(t, err)
	assert.Equal(t, "000.1/002/2026", preview.NomorSurat)

	_, err = svc.PreviewNomor(ctx, "999", d)
	assertCode(t, err, CodeInvalidInput)
}

func TestService_Delete(t *testing.T) {
	svc, _, store := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "u-1", validParams("000", models.NewDate(2026, time.June, 1)))
	require.NoError(t, err)
	_, err = svc.All(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.False(t, store.Has(cache.KeySurat))
	assertCode(t, svc.Delete(ctx, created.ID), CodeNotFound)
}

func TestFilter(t *testing.T) {
	mk := func(id, kode string, d models.Date, perihal string) models.Surat {
		return models.Surat{
			ID: id, KategoriKode: kode, Tahun: d.Year(), TanggalSurat: d, Perihal: perihal,
			NomorSurat: models.FormatNomorSurat(kode, 1, d.Year()), Tujuan: "Camat",
		}
	}
	all := []models.Surat{
		mk("a", "000", models.NewDate(2025, time.December, 30), "Laporan akhir tahun"),
		mk("b", "000.1", models.NewDate(2026, time.January, 10), "Undangan"),
		mk("c", "800", models.NewDate(2026, time.March, 5), "Cuti pegawai"),
	}

	ids := func(list []models.Surat) []string {
		out := []string{}
		for _, s := range list {
			out = append(out, s.ID)
		}
		return out
	}

	assert.Equal(t, []string{"c", "b", "a"}, ids(Filter(all, models.SuratFilterParams{})))
	assert.Equal(t, []string{"c", "b"}, ids(Filter(all, models.SuratFilterParams{Tahun: 2026})))
	assert.Equal(t, []string{"b", "a"}, ids(Filter(all, models.SuratFilterParams{Kategori: "000"})))
	assert.Equal(t, []string{"c"}, ids(Filter(all, models.SuratFilterParams{Query: "CUTI"})))
	assert.Equal(t, []string{"b"}, ids(Filter(all, models.SuratFilterParams{Query: "000.1/"})))
	assert.Equal(t, []string{"b"}, ids(Filter(all, models.SuratFilterParams{
		From: models.NewDate(2026, time.January, 1),
		To:   models.NewDate(2026, time.January, 31),
	})))
}

func TestService_ListPaginates(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		_, err := svc.Create(ctx, "u-1", validParams("000", models.NewDate(2026, time.April, i)))
		require.NoError(t, err)
	}

	resp, err := svc.List(ctx, models.SuratFilterParams{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 5, resp.TotalCount)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, 4, resp.Items[0].TanggalSurat.Day())
	assert.Equal(t, 3, resp.Items[1].TanggalSurat.Day())
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, code, svcErr.Code)
}
