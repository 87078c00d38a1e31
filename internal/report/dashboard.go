package report

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/sipas/persuratan/internal/models"
)

// MonthCount is the number of letters recorded in one month
type MonthCount struct {
	Bulan       int    `json:"bulan"`
	Nama        string `json:"nama"`
	SuratKeluar int    `json:"suratKeluar"`
	SuratMasuk  int    `json:"suratMasuk"`
}

// KategoriCount is the number of outgoing letters under a top-level kategori
type KategoriCount struct {
	Kode   string `json:"kode"`
	Jumlah int    `json:"jumlah"`
}

// Dashboard summarises one year of correspondence
type Dashboard struct {
	Tahun              int                  `json:"tahun"`
	TotalSuratKeluar   int                  `json:"totalSuratKeluar"`
	TotalSuratMasuk    int                  `json:"totalSuratMasuk"`
	Bulanan            []MonthCount         `json:"bulanan"`
	PerKategori        []KategoriCount      `json:"perKategori"`
	SuratMasukPerSifat map[models.Sifat]int `json:"suratMasukPerSifat"`
}

// Dashboard counts letters per month for year, or the current year when
// year is zero. Outgoing letters count by tanggal surat, incoming by
// tanggal terima.
func (s *Service) Dashboard(ctx context.Context, year int) (*Dashboard, error) {
	if year == 0 {
		year = s.now().Year()
	}

	keluar, err := s.surat.All(ctx)
	if err != nil {
		return nil, err
	}
	masuk, err := s.suratMasuk.All(ctx)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		Tahun:              year,
		Bulanan:            make([]MonthCount, 12),
		PerKategori:        []KategoriCount{},
		SuratMasukPerSifat: map[models.Sifat]int{},
	}
	for m := time.January; m <= time.December; m++ {
		d.Bulanan[m-1] = MonthCount{Bulan: int(m), Nama: MonthName(m)}
	}

	perKategori := map[string]int{}
	for _, sr := range keluar {
		if sr.TanggalSurat.Year() != year {
			continue
		}
		d.TotalSuratKeluar++
		d.Bulanan[sr.TanggalSurat.Month()-1].SuratKeluar++
		perKategori[topLevelKode(sr.KategoriKode)]++
	}
	for _, sm := range masuk {
		if sm.TanggalTerima.Year() != year {
			continue
		}
		d.TotalSuratMasuk++
		d.Bulanan[sm.TanggalTerima.Month()-1].SuratMasuk++
		d.SuratMasukPerSifat[sm.Sifat]++
	}

	for kode, n := range perKategori {
		d.PerKategori = append(d.PerKategori, KategoriCount{Kode: kode, Jumlah: n})
	}
	sort.Slice(d.PerKategori, func(i, j int) bool {
		return models.CompareKode(d.PerKategori[i].Kode, d.PerKategori[j].Kode) < 0
	})

	return d, nil
}

func topLevelKode(kode string) string {
	if i := strings.IndexByte(kode, '.'); i >= 0 {
		return kode[:i]
	}
	return kode
}
