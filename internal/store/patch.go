package store

// Patch is a requested change to a keyed collection.
type Patch[T any] struct {
	Added   []T
	Updated []T
	Removed []T
}

// Empty reports whether the patch carries no items.
func (p Patch[T]) Empty() bool {
	return len(p.Added) == 0 && len(p.Updated) == 0 && len(p.Removed) == 0
}

// CollectionDelta is the accepted part of a patch, stamped with its timestamp.
// Removed lists the items as they were indexed, not the objects passed in.
type CollectionDelta[T any] struct {
	Added   []T
	Updated []T
	Removed []T
	TS      int64
}

// Empty reports whether the delta carries no items.
func (d CollectionDelta[T]) Empty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0
}

// storage is the capability set a collection variant provides to the shared
// batch algorithm. begin and commit bracket one patch; commit is where
// variants that defer work (the array's removal sweep) finish it.
type storage[K comparable, T any] interface {
	begin()
	addItem(k K, item T)
	updateItem(k K, old, item T)
	removeItem(k K, item T)
	commit()
}

// applyPatch applies p to index and st in the fixed order added, updated,
// removed, and returns the accepted subset.
//
// Added keys are validated before anything is touched, so a DUPLICATE_KEY
// error leaves the collection exactly as it was. Updated and removed entries
// whose key is absent are skipped without error.
func applyPatch[K comparable, T any](name string, index map[K]T, key func(T) K, st storage[K, T], p Patch[T]) (Patch[T], error) {
	var out Patch[T]
	if p.Empty() {
		return out, nil
	}

	if len(p.Added) > 0 {
		pending := make(map[K]struct{}, len(p.Added))
		for _, item := range p.Added {
			k := key(item)
			if _, ok := index[k]; ok {
				return out, newDuplicateKeyError(name, k)
			}
			if _, ok := pending[k]; ok {
				return out, newDuplicateKeyError(name, k)
			}
			pending[k] = struct{}{}
		}
	}

	st.begin()

	for _, item := range p.Added {
		k := key(item)
		index[k] = item
		st.addItem(k, item)
		out.Added = append(out.Added, item)
	}

	for _, item := range p.Updated {
		k := key(item)
		old, ok := index[k]
		if !ok {
			continue
		}
		index[k] = item
		st.updateItem(k, old, item)
		out.Updated = append(out.Updated, item)
	}

	for _, item := range p.Removed {
		k := key(item)
		old, ok := index[k]
		if !ok {
			continue
		}
		delete(index, k)
		st.removeItem(k, old)
		out.Removed = append(out.Removed, old)
	}

	st.commit()
	return out, nil
}
