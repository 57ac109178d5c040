package store

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"testing"
)

func TestDerive(t *testing.T) {
	s := New[string, int]()

	total := Derive[map[string]int, int](s.All(), func(m map[string]int, _ bool) (int, bool) {
		sum := 0
		for _, v := range m {
			sum += v
		}
		return sum, len(m) > 0
	})
	defer total.Close()

	if _, ok := total.Get(); ok {
		t.Fatalf("total of an empty store should be undefined")
	}

	s.Key("a").Set(2)
	s.Key("b").Set(3)

	if v, ok := total.Get(); !ok || v != 5 {
		t.Fatalf("total should be 5, not %d", v)
	}
}

func TestDeriveComposes(t *testing.T) {
	s := New[string, int]()
	s.Key("a").Set(1)

	names := Derive[map[string]int, []string](s.All(), func(m map[string]int, _ bool) ([]string, bool) {
		res := make([]string, 0, len(m))
		for k := range m {
			res = append(res, k)
		}
		sort.Strings(res)
		return res, true
	})
	count := Derive[[]string, int](names, func(n []string, _ bool) (int, bool) {
		return len(n), true
	})

	var counts []int
	count.Subscribe(func(c int, _ bool) {
		counts = append(counts, c)
	})

	s.Key("b").Set(1)
	s.Key("c").Set(1)

	if v, _ := names.Get(); !reflect.DeepEqual(v, []string{"a", "b", "c"}) {
		t.Fatalf("names should be [a b c], not %v", v)
	}
	if !reflect.DeepEqual(counts, []int{2, 3}) {
		t.Fatalf("count subscriber should see [2 3], not %v", counts)
	}

	names.Close()
	s.Key("d").Set(1)

	if v, _ := count.Get(); v != 3 {
		t.Fatalf("closed view should stop recomputing, count is %d", v)
	}
}

func TestDeriveFromCell(t *testing.T) {
	s := New(WithMerge[string, record](mergeRecord))

	name := Derive[record, string](s.Key("x"), func(r record, ok bool) (string, bool) {
		if !ok {
			return "", false
		}
		return r.Name, true
	})
	defer name.Close()

	s.Key("x").Merge(record{Name: "general"})
	s.Key("y").Merge(record{Name: "other"})

	if v, ok := name.Get(); !ok || v != "general" {
		t.Fatalf("name should be general, not %q", v)
	}
}

// lateWriteSource writes to its cell while a subscription is being set up,
// as a concurrent writer could.
type lateWriteSource struct {
	*Cell[string, int]
	value int
}

func (s lateWriteSource) Subscribe(fn func(int, bool)) func() {
	s.Set(s.value)
	return s.Cell.Subscribe(fn)
}

func TestDeriveSeesWritesDuringSetup(t *testing.T) {
	s := New[string, int]()
	s.Key("x").Set(1)

	double := Derive[int, int](lateWriteSource{Cell: s.Key("x"), value: 2}, func(v int, ok bool) (int, bool) {
		return v * 2, ok
	})
	defer double.Close()

	if v, ok := double.Get(); !ok || v != 4 {
		t.Fatalf("a write made while subscribing should be seen, got %d", v)
	}
}

func TestDeriveConcurrentWrites(t *testing.T) {
	s := New[string, int]()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Key(fmt.Sprintf("%d-%d", i, j)).Set(j)
			}
		}(i)
	}

	views := make([]*Derived[int], 0, 20)
	for i := 0; i < 20; i++ {
		views = append(views, Derive[map[string]int, int](s.All(), func(m map[string]int, _ bool) (int, bool) {
			return len(m), true
		}))
	}
	wg.Wait()

	for i, v := range views {
		if n, _ := v.Get(); n != 400 {
			t.Fatalf("view %d should count 400 keys, got %d", i, n)
		}
		v.Close()
	}
}
