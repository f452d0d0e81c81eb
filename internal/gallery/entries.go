package gallery

import (
	"fmt"
	"slices"

	"github.com/geolocate-mvp/zipgallery/internal/archive"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// collectImages keeps image files and numbers them in container order.
func collectImages(entries []archive.Entry) []EntryRef {
	refs := make([]EntryRef, 0, len(entries))
	for _, e := range entries {
		if e.IsDir || !archive.IsImageName(e.Name) {
			continue
		}
		refs = append(refs, EntryRef{
			Name:      e.Name,
			Path:      e.Path,
			SizeBytes: entrySize(e),
			Ordinal:   len(refs),
			Source:    e,
		})
	}
	return refs
}

func entrySize(e archive.Entry) int64 {
	switch {
	case e.SizeHint > 0:
		return e.SizeHint
	case e.CompressedSize > 0:
		return e.CompressedSize
	default:
		return 0
	}
}

// sortEntries orders refs by display name using the collation rules of tag.
// Names that collate equal keep their discovery order.
func sortEntries(refs []EntryRef, tag language.Tag) {
	col := collate.New(tag, collate.IgnoreCase)
	slices.SortStableFunc(refs, func(a, b EntryRef) int {
		return col.CompareString(a.Name, b.Name)
	})
}

// SizeLabel formats a byte count the way the upload form does.
func SizeLabel(n int64) string {
	return fmt.Sprintf("%.1f KB", float64(n)/1024)
}

// Labels holds the user-visible strings the gallery pushes to its renderer.
type Labels struct {
	Idle       string
	Loading    string
	Empty      string
	Found      string // takes the image count
	BadArchive string
	Pager      string // takes page and page count
}

var labelSets = map[language.Base]Labels{
	language.MustParseBase("ru"): {
		Idle:       "Архив не выбран",
		Loading:    "Чтение архива…",
		Empty:      "В архиве нет изображений",
		Found:      "Найдено изображений: %d",
		BadArchive: "Не удалось прочитать архив",
		Pager:      "стр. %d из %d",
	},
	language.MustParseBase("en"): {
		Idle:       "No archive selected",
		Loading:    "Reading archive…",
		Empty:      "No images found in archive",
		Found:      "Images found: %d",
		BadArchive: "Could not read archive",
		Pager:      "page %d of %d",
	},
}

// LabelsFor returns the label set for tag, falling back to English.
func LabelsFor(tag language.Tag) Labels {
	base, _ := tag.Base()
	if l, ok := labelSets[base]; ok {
		return l
	}
	return labelSets[language.MustParseBase("en")]
}
