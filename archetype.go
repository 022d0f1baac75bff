package archecs

import (
	"unsafe"
)

// ChunkLen is the fixed row count of one storage chunk. It is a compile-time
// constant power of two (not configurable at runtime): query fetches derive
// a row's chunk index with a bit shift, and that only works if the chunk
// size never varies. 256 is the reference value spec.md names.
const ChunkLen = 256

// ChunkShift satisfies 1<<ChunkShift == ChunkLen.
const ChunkShift = 8

func rowChunk(row int) int       { return row >> ChunkShift }
func rowInChunk(row int) int     { return row & (ChunkLen - 1) }
func chunksFor(rows int) int     { return (rows + ChunkLen - 1) / ChunkLen }

// column is one archetype's storage for a single component type: a slice of
// fixed-size chunks, plus epoch stamps at column, chunk, and row
// granularity. A zero-sized component (elemSize == 0) carries no byte
// storage at all, only epoch stamps, and its pointer is a non-null sentinel
// built from the type's alignment.
type column struct {
	info        *ComponentInfo
	elemSize    uintptr
	chunks      [][]byte
	chunkEpochs []EpochID
	rowEpochs   []EpochID
	columnEpoch EpochID
}

func newColumn(info *ComponentInfo) *column {
	return &column{info: info, elemSize: info.Size}
}

// ptr returns the address of row's element in this column. For a zero-sized
// component it returns a stable non-null pointer derived from the type's
// alignment, per spec.md's "Zero-sized columns use the type's alignment as a
// non-null sentinel pointer".
func (c *column) ptr(row int) unsafe.Pointer {
	if c.elemSize == 0 {
		return unsafe.Pointer(uintptr(c.info.Align))
	}
	chunk := c.chunks[rowChunk(row)]
	return unsafe.Pointer(&chunk[uintptr(rowInChunk(row))*c.elemSize])
}

func (c *column) growTo(rows int) {
	needed := chunksFor(rows)
	for len(c.chunks) < needed {
		var chunk []byte
		if c.elemSize > 0 {
			chunk = make([]byte, ChunkLen*int(c.elemSize))
		}
		c.chunks = append(c.chunks, chunk)
		c.chunkEpochs = append(c.chunkEpochs, 0)
	}
	for len(c.rowEpochs) < rows {
		c.rowEpochs = append(c.rowEpochs, 0)
	}
}

// stamp bumps row, its containing chunk, and the column itself to epoch if
// they are not already at least that recent.
func (c *column) stamp(row int, epoch EpochID) {
	c.rowEpochs[row] = epoch
	ci := rowChunk(row)
	if c.chunkEpochs[ci] < epoch {
		c.chunkEpochs[ci] = epoch
	}
	if c.columnEpoch < epoch {
		c.columnEpoch = epoch
	}
}

func (c *column) copyRow(dstRow, srcRow int) {
	if c.elemSize > 0 {
		dst := unsafe.Slice((*byte)(c.ptr(dstRow)), c.elemSize)
		src := unsafe.Slice((*byte)(c.ptr(srcRow)), c.elemSize)
		copy(dst, src)
	}
	c.rowEpochs[dstRow] = c.rowEpochs[srcRow]
}

// Archetype owns storage for every entity that shares one exact set of
// component types. Rows are dense [0,len); swap_remove is the only deletion
// primitive. Column order is stable for the Archetype's lifetime; for
// archetypes a World creates it is ascending ComponentID order.
type Archetype struct {
	index    uint32
	mask     componentMask
	key      string
	columns  map[ComponentID]*column
	order    []ComponentID // stable iteration/column order
	entities []EntityID
	len      int

	// borrows is the per-(archetype,column) runtime-borrow cell set spec.md
	// §4.6 describes: acquiring a view locks every (archetype,column) pair
	// the query may touch, not the World as a whole, so a QueryMut over Pos
	// never contends with one over Vel.
	borrows map[ComponentID]*borrowState
}

func newArchetype(index uint32, mask componentMask, infos []*ComponentInfo) *Archetype {
	a := &Archetype{
		index:   index,
		mask:    mask,
		key:     mask.key(),
		columns: make(map[ComponentID]*column, len(infos)),
		order:   make([]ComponentID, 0, len(infos)),
		borrows: make(map[ComponentID]*borrowState, len(infos)),
	}
	for _, info := range infos {
		a.columns[info.ID] = newColumn(info)
		a.order = append(a.order, info.ID)
		a.borrows[info.ID] = &borrowState{}
	}
	return a
}

// columnBorrow returns the runtime-borrow cell for column id, or nil if this
// archetype has no such column.
func (a *Archetype) columnBorrow(id ComponentID) *borrowState {
	return a.borrows[id]
}

// Index is this archetype's position in World.Archetypes().
func (a *Archetype) Index() uint32 { return a.index }

// Len is the number of live rows.
func (a *Archetype) Len() int { return a.len }

// Mask is the archetype's component set.
func (a *Archetype) Mask() componentMask { return a.mask }

// HasComponent reports whether this archetype carries a column for id.
func (a *Archetype) HasComponent(id ComponentID) bool {
	_, ok := a.columns[id]
	return ok
}

// ComponentIDs returns the stable column order for this archetype.
func (a *Archetype) ComponentIDs() []ComponentID {
	out := make([]ComponentID, len(a.order))
	copy(out, a.order)
	return out
}

// Entity returns the EntityID stored at row.
func (a *Archetype) Entity(row int) EntityID { return a.entities[row] }

func (a *Archetype) growTo(rows int) {
	for _, col := range a.columns {
		col.growTo(rows)
	}
	for len(a.entities) < rows {
		a.entities = append(a.entities, 0)
	}
}

// Spawn appends a new row for id, invoking write once per column (in the
// archetype's stable order) so the caller can install the bundle's data,
// then stamps every column's row/chunk/column epoch to epoch. Returns the
// new row index.
func (a *Archetype) Spawn(id EntityID, epoch EpochID, write func(colID ComponentID, ptr unsafe.Pointer)) int {
	row := a.len
	a.growTo(row + 1)
	a.entities[row] = id
	a.len++
	for _, colID := range a.order {
		col := a.columns[colID]
		write(colID, col.ptr(row))
		col.stamp(row, epoch)
	}
	return row
}

// DespawnUnchecked swap-removes row, running each column's on-drop hook and
// drop glue first. It returns the EntityID that was moved into row to fill
// the gap (nil if row was already the last row).
func (a *Archetype) DespawnUnchecked(row int, enc *ActionEncoder) *EntityID {
	despawned := a.entities[row]
	for _, colID := range a.order {
		col := a.columns[colID]
		ptr := col.ptr(row)
		if col.info.OnDrop != nil {
			col.info.OnDrop(despawned, ptr, enc)
		}
		if col.info.Drop != nil {
			col.info.Drop(ptr)
		}
	}
	last := a.len - 1
	var moved *EntityID
	if row != last {
		movedID := a.entities[last]
		a.entities[row] = movedID
		for _, colID := range a.order {
			a.columns[colID].copyRow(row, last)
		}
		moved = &movedID
	}
	a.len--
	a.entities = a.entities[:a.len]
	return moved
}

// Get returns a pointer to column id's value at row, or nil if this
// archetype has no such column.
func (a *Archetype) Get(row int, id ComponentID) unsafe.Pointer {
	col, ok := a.columns[id]
	if !ok {
		return nil
	}
	return col.ptr(row)
}

// GetMut behaves like Get but additionally stamps row/chunk/column with
// epoch, recording that the value was (or may have been) written.
func (a *Archetype) GetMut(row int, id ComponentID, epoch EpochID) unsafe.Pointer {
	col, ok := a.columns[id]
	if !ok {
		return nil
	}
	col.stamp(row, epoch)
	return col.ptr(row)
}

// Set overwrites column id's value at row with the bytes at src, running the
// replace hook (and, if it asks for it, the drop glue) on the old value
// first, then stamps epochs.
func (a *Archetype) Set(row int, id ComponentID, src unsafe.Pointer, epoch EpochID, enc *ActionEncoder) {
	col, ok := a.columns[id]
	if !ok {
		return
	}
	dst := col.ptr(row)
	entityID := a.entities[row]
	runDrop := true
	if col.info.OnReplace != nil {
		runDrop = col.info.OnReplace(entityID, dst, src, enc)
	}
	if runDrop && col.info.Drop != nil {
		col.info.Drop(dst)
	}
	if col.elemSize > 0 {
		copy(unsafe.Slice((*byte)(dst), col.elemSize), unsafe.Slice((*byte)(src), col.elemSize))
	}
	col.stamp(row, epoch)
}

// DropErased runs the on-drop hook and drop glue for column id at row,
// without removing the row (used right before the row is moved to an
// archetype that no longer has this column).
func (a *Archetype) DropErased(row int, id ComponentID, enc *ActionEncoder) {
	col, ok := a.columns[id]
	if !ok {
		return
	}
	ptr := col.ptr(row)
	entityID := a.entities[row]
	if col.info.OnDrop != nil {
		col.info.OnDrop(entityID, ptr, enc)
	}
	if col.info.Drop != nil {
		col.info.Drop(ptr)
	}
}

// Reserve pre-grows every column's chunk storage to accommodate `additional`
// more rows without a reallocation during the hot path.
func (a *Archetype) Reserve(additional int) {
	if additional <= 0 {
		return
	}
	a.growTo(a.len + additional)
}

// CopyShared copies every column present in both a and dst from srcRow (in
// a) to dstRow (in dst, which must already have a row allocated there),
// carrying each column's row epoch across unchanged. Used by insert/remove
// transitions to move unrelated component data across an archetype change.
func (a *Archetype) CopyShared(srcRow int, dst *Archetype, dstRow int) {
	for _, colID := range a.order {
		dstCol, ok := dst.columns[colID]
		if !ok {
			continue
		}
		srcCol := a.columns[colID]
		if srcCol.elemSize > 0 {
			s := unsafe.Slice((*byte)(srcCol.ptr(srcRow)), srcCol.elemSize)
			d := unsafe.Slice((*byte)(dstCol.ptr(dstRow)), dstCol.elemSize)
			copy(d, s)
		}
		dstCol.rowEpochs[dstRow] = srcCol.rowEpochs[srcRow]
		ci := rowChunk(dstRow)
		if dstCol.chunkEpochs[ci] < srcCol.rowEpochs[srcRow] {
			dstCol.chunkEpochs[ci] = srcCol.rowEpochs[srcRow]
		}
		if dstCol.columnEpoch < srcCol.rowEpochs[srcRow] {
			dstCol.columnEpoch = srcCol.rowEpochs[srcRow]
		}
	}
}

// appendRawRow grows the archetype by one row for id, without writing any
// column data or stamping epochs (the caller does that through GetMut/
// CopyShared immediately after). Returns the new row index.
func (a *Archetype) appendRawRow(id EntityID) int {
	row := a.len
	a.growTo(row + 1)
	a.entities[row] = id
	a.len++
	return row
}

// removeRowRaw swap-removes row without running any drop hook or glue (the
// caller is responsible for having already dropped or moved every column's
// value beforehand). Returns the EntityID moved into row, if any.
func (a *Archetype) removeRowRaw(row int) *EntityID {
	last := a.len - 1
	var moved *EntityID
	if row != last {
		movedID := a.entities[last]
		a.entities[row] = movedID
		for _, colID := range a.order {
			a.columns[colID].copyRow(row, last)
		}
		moved = &movedID
	}
	a.len--
	a.entities = a.entities[:a.len]
	return moved
}

// RowEpoch returns the per-row epoch stamp for column id at row (0 if the
// archetype has no such column).
func (a *Archetype) RowEpoch(row int, id ComponentID) EpochID {
	col, ok := a.columns[id]
	if !ok {
		return 0
	}
	return col.rowEpochs[row]
}

// ChunkEpoch returns the chunk-wide epoch stamp covering row's chunk for
// column id.
func (a *Archetype) ChunkEpoch(row int, id ComponentID) EpochID {
	col, ok := a.columns[id]
	if !ok {
		return 0
	}
	return col.chunkEpochs[rowChunk(row)]
}

// ColumnEpoch returns the column-wide epoch stamp for id.
func (a *Archetype) ColumnEpoch(id ComponentID) EpochID {
	col, ok := a.columns[id]
	if !ok {
		return 0
	}
	return col.columnEpoch
}

// NumChunks reports how many chunks hold live rows (== how many chunk groups
// a fetch over this archetype must visit). Chunks allocated beyond that by
// Reserve or left over after removals are not counted.
func (a *Archetype) NumChunks() int {
	return chunksFor(a.len)
}

// ChunkBounds returns the half-open row range [lo,hi) for chunk index ci.
func (a *Archetype) ChunkBounds(ci int) (lo, hi int) {
	lo = ci * ChunkLen
	hi = lo + ChunkLen
	if hi > a.len {
		hi = a.len
	}
	return lo, hi
}
