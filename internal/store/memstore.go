package store

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemStore implements Store in memory. It exists for tests: same
// filter semantics as the Mongo implementation, no server required.
// Transactions take an exclusive lock and roll the data back on error,
// so multi-record transitions are atomic with a single winner under
// contention.
type MemStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

type txKey struct{}

func NewMemStore() *MemStore {
	return &MemStore{collections: make(map[string]*memCollection)}
}

func (s *MemStore) Collection(name string) Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collectionLocked(name)
}

func (s *MemStore) collectionLocked(name string) *memCollection {
	coll, ok := s.collections[name]
	if !ok {
		coll = &memCollection{store: s}
		s.collections[name] = coll
	}
	return coll
}

func (s *MemStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		// Already inside a transaction; join it.
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.snapshotLocked()
	err := fn(context.WithValue(ctx, txKey{}, struct{}{}))
	if err != nil {
		s.restoreLocked(snapshot)
	}
	return err
}

func (s *MemStore) snapshotLocked() map[string][]bson.M {
	snapshot := make(map[string][]bson.M, len(s.collections))
	for name, coll := range s.collections {
		docs := make([]bson.M, len(coll.docs))
		for i, doc := range coll.docs {
			docs[i] = cloneDoc(doc)
		}
		snapshot[name] = docs
	}
	return snapshot
}

func (s *MemStore) restoreLocked(snapshot map[string][]bson.M) {
	for name, docs := range snapshot {
		s.collections[name].docs = docs
	}
	for name, coll := range s.collections {
		if _, ok := snapshot[name]; !ok {
			coll.docs = nil
		}
	}
}

// enter acquires the store lock unless ctx is already inside a
// transaction (which holds it exclusively). Returns the release func.
func (s *MemStore) enter(ctx context.Context, write bool) func() {
	if ctx.Value(txKey{}) != nil {
		return func() {}
	}
	if write {
		s.mu.Lock()
		return s.mu.Unlock
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

type memCollection struct {
	store *MemStore
	docs  []bson.M
}

func (c *memCollection) InsertOne(ctx context.Context, doc interface{}) (primitive.ObjectID, error) {
	normalized, err := toDoc(doc)
	if err != nil {
		return primitive.NilObjectID, err
	}

	id, ok := normalized["_id"].(primitive.ObjectID)
	if !ok || id.IsZero() {
		id = primitive.NewObjectID()
		normalized["_id"] = id
	}

	release := c.store.enter(ctx, true)
	defer release()

	c.docs = append(c.docs, normalized)
	return id, nil
}

func (c *memCollection) FindOne(ctx context.Context, filter bson.M, out interface{}) error {
	release := c.store.enter(ctx, false)
	defer release()

	for _, doc := range c.docs {
		if matchDoc(doc, filter) {
			return decodeDoc(doc, out)
		}
	}
	return ErrNoDocuments
}

func (c *memCollection) Find(ctx context.Context, filter bson.M, opts FindOptions, out interface{}) error {
	release := c.store.enter(ctx, false)
	defer release()

	var matches []bson.M
	for _, doc := range c.docs {
		if matchDoc(doc, filter) {
			matches = append(matches, doc)
		}
	}

	if len(opts.Sort) > 0 {
		sort.SliceStable(matches, func(i, j int) bool {
			for _, field := range opts.Sort {
				left, _ := lookupField(matches[i], field.Key)
				right, _ := lookupField(matches[j], field.Key)
				cmp, ok := compareValues(left, right)
				if !ok || cmp == 0 {
					continue
				}
				if field.Desc {
					return cmp > 0
				}
				return cmp < 0
			}
			return false
		})
	}

	if opts.Limit > 0 && int64(len(matches)) > opts.Limit {
		matches = matches[:opts.Limit]
	}

	return decodeDocs(matches, out)
}

func (c *memCollection) UpdateOne(ctx context.Context, filter, update bson.M) (int64, error) {
	release := c.store.enter(ctx, true)
	defer release()

	for _, doc := range c.docs {
		if matchDoc(doc, filter) {
			if err := applyUpdate(doc, update); err != nil {
				return 0, err
			}
			return 1, nil
		}
	}
	return 0, nil
}

func (c *memCollection) UpdateMany(ctx context.Context, filter, update bson.M) (int64, error) {
	release := c.store.enter(ctx, true)
	defer release()

	var matched int64
	for _, doc := range c.docs {
		if matchDoc(doc, filter) {
			if err := applyUpdate(doc, update); err != nil {
				return matched, err
			}
			matched++
		}
	}
	return matched, nil
}

func (c *memCollection) DeleteOne(ctx context.Context, filter bson.M) (int64, error) {
	release := c.store.enter(ctx, true)
	defer release()

	for i, doc := range c.docs {
		if matchDoc(doc, filter) {
			c.docs = append(c.docs[:i], c.docs[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (c *memCollection) DeleteMany(ctx context.Context, filter bson.M) (int64, error) {
	release := c.store.enter(ctx, true)
	defer release()

	var kept []bson.M
	var deleted int64
	for _, doc := range c.docs {
		if matchDoc(doc, filter) {
			deleted++
			continue
		}
		kept = append(kept, doc)
	}
	c.docs = kept
	return deleted, nil
}

func (c *memCollection) Count(ctx context.Context, filter bson.M) (int64, error) {
	release := c.store.enter(ctx, false)
	defer release()

	var count int64
	for _, doc := range c.docs {
		if matchDoc(doc, filter) {
			count++
		}
	}
	return count, nil
}

// Document plumbing. Everything is normalized through bson so the
// in-memory values carry the same primitive types a Mongo round trip
// would produce.

func toDoc(doc interface{}) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize document: %w", err)
	}
	var normalized bson.M
	if err := bson.Unmarshal(raw, &normalized); err != nil {
		return nil, fmt.Errorf("failed to normalize document: %w", err)
	}
	return normalized, nil
}

func cloneDoc(doc bson.M) bson.M {
	clone, err := toDoc(doc)
	if err != nil {
		// bson.M always round-trips.
		panic(err)
	}
	return clone
}

func decodeDoc(doc bson.M, out interface{}) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}

func decodeDocs(docs []bson.M, out interface{}) error {
	outValue := reflect.ValueOf(out)
	if outValue.Kind() != reflect.Ptr || outValue.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("out must be a pointer to a slice, got %T", out)
	}

	sliceValue := outValue.Elem()
	elemType := sliceValue.Type().Elem()
	result := reflect.MakeSlice(sliceValue.Type(), 0, len(docs))

	for _, doc := range docs {
		elem := reflect.New(elemType)
		if err := decodeDoc(doc, elem.Interface()); err != nil {
			return err
		}
		result = reflect.Append(result, elem.Elem())
	}

	sliceValue.Set(result)
	return nil
}

func lookupField(doc bson.M, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var current interface{} = doc
	for _, part := range parts {
		m, ok := current.(bson.M)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func setField(doc bson.M, path string, value interface{}) {
	parts := strings.Split(path, ".")
	current := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(bson.M)
		if !ok {
			next = bson.M{}
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

func unsetField(doc bson.M, path string) {
	parts := strings.Split(path, ".")
	current := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(bson.M)
		if !ok {
			return
		}
		current = next
	}
	delete(current, parts[len(parts)-1])
}

func matchDoc(doc bson.M, filter bson.M) bool {
	for key, cond := range filter {
		if key == "$or" {
			if !matchOr(doc, cond) {
				return false
			}
			continue
		}

		value, present := lookupField(doc, key)
		if condDoc, ok := asFilterDoc(cond); ok && hasOperator(condDoc) {
			if !matchOperators(value, present, condDoc) {
				return false
			}
			continue
		}

		if !present {
			return false
		}
		if !valuesEqual(value, cond) {
			return false
		}
	}
	return true
}

func matchOr(doc bson.M, cond interface{}) bool {
	branches := reflect.ValueOf(cond)
	if branches.Kind() != reflect.Slice {
		return false
	}
	for i := 0; i < branches.Len(); i++ {
		branch, ok := asFilterDoc(branches.Index(i).Interface())
		if !ok {
			continue
		}
		if matchDoc(doc, branch) {
			return true
		}
	}
	return false
}

func matchOperators(value interface{}, present bool, ops bson.M) bool {
	for op, arg := range ops {
		switch op {
		case "$lt":
			cmp, ok := compareValues(value, arg)
			if !ok || cmp >= 0 {
				return false
			}
		case "$gt":
			cmp, ok := compareValues(value, arg)
			if !ok || cmp <= 0 {
				return false
			}
		case "$ne":
			if present && valuesEqual(value, arg) {
				return false
			}
		case "$in":
			if !matchIn(value, arg) {
				return false
			}
		case "$exists":
			want, _ := arg.(bool)
			if present != want {
				return false
			}
		case "$regex":
			if !matchRegex(value, arg, ops["$options"]) {
				return false
			}
		case "$options":
			// Consumed by $regex.
		default:
			return false
		}
	}
	return true
}

func matchIn(value, arg interface{}) bool {
	list := reflect.ValueOf(arg)
	if list.Kind() != reflect.Slice {
		return false
	}
	for i := 0; i < list.Len(); i++ {
		if valuesEqual(value, list.Index(i).Interface()) {
			return true
		}
	}
	return false
}

func matchRegex(value, pattern, opts interface{}) bool {
	str, ok := value.(string)
	if !ok {
		return false
	}

	var expr, flags string
	switch p := pattern.(type) {
	case primitive.Regex:
		expr, flags = p.Pattern, p.Options
	case string:
		expr = p
		flags, _ = opts.(string)
	default:
		return false
	}

	if strings.Contains(flags, "i") {
		expr = "(?i)" + expr
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return false
	}
	return re.MatchString(str)
}

func asFilterDoc(v interface{}) (bson.M, bool) {
	switch doc := v.(type) {
	case bson.M:
		return doc, true
	case map[string]interface{}:
		return doc, true
	default:
		return nil, false
	}
}

func hasOperator(doc bson.M) bool {
	for key := range doc {
		if strings.HasPrefix(key, "$") {
			return true
		}
	}
	return false
}

func applyUpdate(doc bson.M, update bson.M) error {
	for op, arg := range update {
		fields, ok := asFilterDoc(arg)
		if !ok {
			return fmt.Errorf("update operator %s requires a document", op)
		}

		switch op {
		case "$set":
			for path, value := range fields {
				normalized, err := normalizeValue(value)
				if err != nil {
					return err
				}
				setField(doc, path, normalized)
			}
		case "$unset":
			for path := range fields {
				unsetField(doc, path)
			}
		case "$inc":
			for path, delta := range fields {
				current, _ := lookupField(doc, path)
				setField(doc, path, numericValue(current)+numericValue(delta))
			}
		default:
			return fmt.Errorf("unsupported update operator %s", op)
		}
	}
	return nil
}

func normalizeValue(value interface{}) (interface{}, error) {
	wrapped, err := toDoc(bson.M{"v": value})
	if err != nil {
		return nil, err
	}
	return wrapped["v"], nil
}

func numericValue(v interface{}) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func valuesEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	cmp, ok := compareValues(a, b)
	return ok && cmp == 0
}

// compareValues orders two values of compatible types. The bool result
// is false for incomparable pairs.
func compareValues(a, b interface{}) (int, bool) {
	av, aok := normalizeComparable(a)
	bv, bok := normalizeComparable(b)
	if !aok || !bok {
		return 0, false
	}

	switch x := av.(type) {
	case string:
		y, ok := bv.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case int64:
		y, ok := bv.(int64)
		if !ok {
			if f, fok := bv.(float64); fok {
				return compareFloats(float64(x), f), true
			}
			return 0, false
		}
		return compareInts(x, y), true
	case float64:
		switch y := bv.(type) {
		case float64:
			return compareFloats(x, y), true
		case int64:
			return compareFloats(x, float64(y)), true
		}
		return 0, false
	case bool:
		y, ok := bv.(bool)
		if !ok {
			return 0, false
		}
		if x == y {
			return 0, true
		}
		if !x {
			return -1, true
		}
		return 1, true
	default:
		return 0, false
	}
}

func normalizeComparable(v interface{}) (interface{}, bool) {
	switch x := v.(type) {
	case primitive.ObjectID:
		return x.Hex(), true
	case string:
		return x, true
	case bool:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case float64:
		return x, true
	case time.Time:
		return x.UnixMilli(), true
	case primitive.DateTime:
		return int64(x), true
	default:
		return nil, false
	}
}

func compareInts(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
