package web

import (
	"fmt"

	"github.com/ringsaturn/tzf"
)

// TZFResolver resolves IANA zone names from coordinates using an embedded
// timezone boundary dataset.
type TZFResolver struct {
	finder tzf.F
}

// NewTZFResolver builds the resolver. The dataset is loaded once and reused.
func NewTZFResolver() (*TZFResolver, error) {
	finder, err := tzf.NewDefaultFinder()
	if err != nil {
		return nil, fmt.Errorf("load timezone finder: %w", err)
	}
	return &TZFResolver{finder: finder}, nil
}

// TimezoneName returns the IANA zone containing the coordinate, or the empty
// string when the point matches no zone.
func (r *TZFResolver) TimezoneName(lat, lon float64) string {
	return r.finder.GetTimezoneName(lon, lat)
}
