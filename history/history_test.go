package history

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddGet(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	rolls := []int{7, 2, 12, 5, 6, 7, 8, 9, 3, 4, 11, 10, 7, 7, 6, 8}

	e, err := s.Add(ctx, 96, rolls)
	if err != nil {
		t.Fatal(err)
	}
	rolls[0] = 2 // the entry keeps its own copy

	got, err := s.Get(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if want := 7; got.Rolls[0] != want {
		t.Errorf("want first roll %v, got %v", want, got.Rolls[0])
	}
	if !reflect.DeepEqual(e.Rolls, got.Rolls) || e.Tempo != got.Tempo || e.ID != got.ID {
		t.Errorf("\nwant: %+v\ngot:  %+v", e, got)
	}
	if !e.Created.Equal(got.Created) {
		t.Errorf("want created %v, got %v", e.Created, got.Created)
	}
}

func TestGetNotFound(t *testing.T) {
	s := openTest(t)
	if _, err := s.Get(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	var ids []uuid.UUID
	for n := 0; n < 5; n++ {
		e, err := s.Add(ctx, float64(100+n), []int{n + 2})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, e.ID)
	}

	all, err := s.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if want, got := 5, len(all); want != got {
		t.Fatalf("want %v entries, got %v", want, got)
	}
	for i, e := range all {
		if want, got := ids[len(ids)-1-i], e.ID; want != got {
			t.Errorf("entry %d: want %v, got %v", i, want, got)
		}
	}

	latest, err := s.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if want, got := 2, len(latest); want != got {
		t.Fatalf("want %v entries, got %v", want, got)
	}
	if want, got := 104.0, latest[0].Tempo; want != got {
		t.Errorf("want newest tempo %v, got %v", want, got)
	}
}

func TestOpenRequiresDir(t *testing.T) {
	if _, err := Open(Options{}); err == nil {
		t.Error("expected error without Dir")
	}
}

func TestReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s, err := Open(Options{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	e, err := s.Add(ctx, 120, []int{7})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(Options{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.Get(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if want, got := e.Rolls, got.Rolls; !reflect.DeepEqual(want, got) {
		t.Errorf("want rolls %v, got %v", want, got)
	}
}
