package gap

import "context"

// ListFilter narrows gap listings. Zero values mean no filter.
type ListFilter struct {
	Clinic           string
	MeasureCode      string
	OnlyNonCompliant bool
}

type Repository interface {
	BulkInsert(ctx context.Context, gaps []*MeasureGap) error
	DeleteAll(ctx context.Context) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*MeasureGap, int, error)
	Clinics(ctx context.Context) ([]string, error)
	Measures(ctx context.Context) ([]string, error)
}
