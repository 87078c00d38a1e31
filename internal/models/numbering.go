package models

import (
	"fmt"
	"strconv"
	"strings"
)

// NomorUrutWidth is the zero-padded width of the running count in a letter number
const NomorUrutWidth = 3

// FormatNomorSurat builds an outgoing letter number: <kode>/<urut>/<tahun>.
// The running count is zero-padded to three digits and grows past 999 as needed.
func FormatNomorSurat(kode string, urut, tahun int) string {
	return fmt.Sprintf("%s/%0*d/%d", kode, NomorUrutWidth, urut, tahun)
}

// ParseNomorSurat splits a letter number produced by FormatNomorSurat
func ParseNomorSurat(nomor string) (kode string, urut, tahun int, err error) {
	parts := strings.Split(strings.TrimSpace(nomor), "/")
	if len(parts) != 3 {
		return "", 0, 0, fmt.Errorf("nomor surat %q must have the form kode/urut/tahun", nomor)
	}

	kode = parts[0]
	if err := ValidateKategoriKode(kode); err != nil {
		return "", 0, 0, fmt.Errorf("nomor surat %q: %w", nomor, err)
	}

	urut, err = strconv.Atoi(parts[1])
	if err != nil || urut < 1 {
		return "", 0, 0, fmt.Errorf("nomor surat %q has an invalid running number", nomor)
	}

	tahun, err = strconv.Atoi(parts[2])
	if err != nil || tahun < 1900 || tahun > 9999 {
		return "", 0, 0, fmt.Errorf("nomor surat %q has an invalid year", nomor)
	}

	return kode, urut, tahun, nil
}
