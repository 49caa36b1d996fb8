package irt

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

var fitHeader = []string{"item_id", "outfit", "outfit_t", "outfit_p", "infit", "infit_t", "infit_p"}

// WriteFitCSV renders fit rows as CSV with a header row.
func WriteFitCSV(w io.Writer, rows []FitRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(fitHeader); err != nil {
		return errors.Wrap(err, "cannot write fit csv header")
	}
	for _, r := range rows {
		rec := []string{
			r.ItemID,
			fixed2(r.Outfit), fixed2(r.OutfitT), fixed2(r.OutfitP),
			fixed2(r.Infit), fixed2(r.InfitT), fixed2(r.InfitP),
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrapf(err, "cannot write fit csv row for item %s", r.ItemID)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "cannot flush fit csv")
}

func fixed2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
