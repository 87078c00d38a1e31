package models

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// KategoriLevel is the depth of a classification code
type KategoriLevel string

const (
	KategoriLevelUtama   KategoriLevel = "utama"
	KategoriLevelSub     KategoriLevel = "sub"
	KategoriLevelRincian KategoriLevel = "rincian"
)

// ChildLevel returns the level a child of parent would have.
// A rincian code cannot have children.
func ChildLevel(parent KategoriLevel) (KategoriLevel, bool) {
	switch parent {
	case "":
		return KategoriLevelUtama, true
	case KategoriLevelUtama:
		return KategoriLevelSub, true
	case KategoriLevelSub:
		return KategoriLevelRincian, true
	}
	return "", false
}

// Kategori is a node of the classification tree used to number letters
type Kategori struct {
	ID         string        `json:"id"`
	Kode       string        `json:"kode"`
	Nama       string        `json:"nama"`
	ParentID   *string       `json:"parentId,omitempty"`
	Level      KategoriLevel `json:"level"`
	Keterangan string        `json:"keterangan,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// CreateKategoriParams represents parameters for creating a kategori.
// Level is derived from the parent by the service.
type CreateKategoriParams struct {
	Kode       string        `json:"kode"`
	Nama       string        `json:"nama"`
	ParentID   *string       `json:"parentId,omitempty"`
	Keterangan string        `json:"keterangan,omitempty"`
	Level      KategoriLevel `json:"-"`
}

// UpdateKategoriParams represents parameters for updating a kategori
type UpdateKategoriParams struct {
	Nama       *string `json:"nama,omitempty"`
	Keterangan *string `json:"keterangan,omitempty"`
}

// KategoriNode is a kategori with its children, for tree rendering
type KategoriNode struct {
	Kategori
	Children []*KategoriNode `json:"children"`
}

// Category is a flattened, selectable kategori option
type Category struct {
	Kode  string        `json:"kode"`
	Label string        `json:"label"`
	Level KategoriLevel `json:"level"`
}

var kodeRegex = regexp.MustCompile(`^[0-9]+(\.[0-9]+)*$`)

// ValidateKategoriKode checks the dotted numeric form, e.g. 000.1.2
func ValidateKategoriKode(kode string) error {
	if strings.TrimSpace(kode) == "" {
		return &ValidationError{Field: "kode", Message: "kode is required"}
	}
	if !kodeRegex.MatchString(kode) {
		return &ValidationError{Field: "kode", Message: "kode must be digits separated by dots"}
	}
	return nil
}

// ValidateChildKode checks that a child code extends its parent's code by one segment
func ValidateChildKode(parentKode, kode string) error {
	if err := ValidateKategoriKode(kode); err != nil {
		return err
	}
	if parentKode == "" {
		if strings.Contains(kode, ".") {
			return &ValidationError{Field: "kode", Message: "a top-level kode cannot contain dots"}
		}
		return nil
	}
	rest := strings.TrimPrefix(kode, parentKode+".")
	if rest == kode || strings.Contains(rest, ".") {
		return &ValidationError{Field: "kode", Message: "kode must be the parent kode followed by one segment"}
	}
	return nil
}

// CompareKode orders codes segment by segment numerically, so 000.2 < 000.10
func CompareKode(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		ai, aErr := strconv.Atoi(as[i])
		bi, bErr := strconv.Atoi(bs[i])
		if aErr != nil || bErr != nil {
			if c := strings.Compare(as[i], bs[i]); c != 0 {
				return c
			}
			continue
		}
		if ai != bi {
			if ai < bi {
				return -1
			}
			return 1
		}
		if c := strings.Compare(as[i], bs[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	}
	return 0
}

// SortKategori sorts in place by code
func SortKategori(list []Kategori) {
	sort.SliceStable(list, func(i, j int) bool {
		return CompareKode(list[i].Kode, list[j].Kode) < 0
	})
}

// BuildKategoriTree arranges a flat list into root nodes ordered by code.
// Entries whose parent is missing from the list are treated as roots.
func BuildKategoriTree(list []Kategori) []*KategoriNode {
	sorted := make([]Kategori, len(list))
	copy(sorted, list)
	SortKategori(sorted)

	nodes := make(map[string]*KategoriNode, len(sorted))
	for _, k := range sorted {
		nodes[k.ID] = &KategoriNode{Kategori: k, Children: []*KategoriNode{}}
	}

	roots := []*KategoriNode{}
	for _, k := range sorted {
		node := nodes[k.ID]
		if k.ParentID != nil {
			if parent, ok := nodes[*k.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}

// FlattenCategories produces the selectable options for letter forms.
// Labels read "kode - ancestor / ... / nama".
func FlattenCategories(list []Kategori) []Category {
	byID := make(map[string]Kategori, len(list))
	for _, k := range list {
		byID[k.ID] = k
	}

	sorted := make([]Kategori, len(list))
	copy(sorted, list)
	SortKategori(sorted)

	out := make([]Category, 0, len(sorted))
	for _, k := range sorted {
		names := []string{k.Nama}
		seen := map[string]bool{k.ID: true}
		for p := k.ParentID; p != nil; {
			parent, ok := byID[*p]
			if !ok || seen[parent.ID] {
				break
			}
			seen[parent.ID] = true
			names = append([]string{parent.Nama}, names...)
			p = parent.ParentID
		}
		out = append(out, Category{
			Kode:  k.Kode,
			Label: k.Kode + " - " + strings.Join(names, " / "),
			Level: k.Level,
		})
	}
	return out
}

// FindKategoriByKode looks a code up in a list
func FindKategoriByKode(list []Kategori, kode string) (Kategori, bool) {
	for _, k := range list {
		if k.Kode == kode {
			return k, true
		}
	}
	return Kategori{}, false
}
