package domain

// Row is what the list has at a logical index: either a loaded comment or
// a pending slot ahead of the loaded data.
type Row interface {
	RowIndex() int
	isRow()
}

// LoadedRow is an index backed by a fetched comment
type LoadedRow struct {
	Index   int
	Comment Comment
}

// PendingRow is an index with no data yet; it renders as a skeleton
type PendingRow struct {
	Index int
}

func (r LoadedRow) RowIndex() int  { return r.Index }
func (r PendingRow) RowIndex() int { return r.Index }

func (LoadedRow) isRow()  {}
func (PendingRow) isRow() {}
