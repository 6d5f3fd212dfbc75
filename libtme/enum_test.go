package libtme

import (
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/fine-structures/tme"
)

func TestCountForSize(t *testing.T) {
	expect := []struct {
		n     int
		count string
	}{
		{0, "0"},
		{1, "64"},
		{2, "20736"},
		{3, "16777216"},
		{4, "25600000000"},
	}
	for _, e := range expect {
		if got := CountForSize(e.n).String(); got != e.count {
			t.Fatalf("CountForSize(%d) = %s, want %s", e.n, got, e.count)
		}
	}

	// 16^n * (n+1)^(2n), checked the long way
	for n := 1; n < 20; n++ {
		want := big.NewInt(1)
		for i := 0; i < n; i++ {
			want.Mul(want, big.NewInt(16*int64(n+1)*int64(n+1)))
		}
		if CountForSize(n).Cmp(want) != 0 {
			t.Fatalf("CountForSize(%d) mismatch", n)
		}
	}
}

func TestBaseOffset(t *testing.T) {
	expect := []string{"0", "0", "64", "20800", "16798016"}
	for n, want := range expect {
		if got := BaseOffset(n).String(); got != want {
			t.Fatalf("BaseOffset(%d) = %s, want %s", n, got, want)
		}
	}

	// Callers own what they get back
	off := BaseOffset(3)
	off.SetInt64(-1)
	if BaseOffset(3).String() != "20800" {
		t.Fatal("BaseOffset handed out shared storage")
	}
}

func TestLocate(t *testing.T) {
	expect := []struct {
		idx   string
		n     int
		local string
	}{
		{"0", 1, "0"},
		{"63", 1, "63"},
		{"64", 2, "0"},
		{"20799", 2, "20735"},
		{"20800", 3, "0"},
		{"16798015", 3, "16777215"},
		{"16798016", 4, "0"},
		{"22580604002", 4, "22563805986"},
	}
	for _, e := range expect {
		idx, _ := new(big.Int).SetString(e.idx, 10)
		n, local, err := Locate(idx)
		if err != nil {
			t.Fatal(err)
		}
		if n != e.n || local.String() != e.local {
			t.Fatalf("Locate(%s) = (%d, %v), want (%d, %s)", e.idx, n, local, e.n, e.local)
		}
	}

	_, _, err := Locate(big.NewInt(-1))
	if !errors.Is(err, tme.ErrRange) {
		t.Fatalf("expected ErrRange, got %v", err)
	}
}

func TestLocateLarge(t *testing.T) {
	for _, n := range []int{7, 31, 100} {
		first := BaseOffset(n)
		last := new(big.Int).Add(first, CountForSize(n))
		last.Sub(last, big.NewInt(1))

		for _, idx := range []*big.Int{first, last} {
			got, local, err := Locate(idx)
			if err != nil {
				t.Fatal(err)
			}
			if got != n {
				t.Fatalf("Locate(BaseOffset(%d)+...) landed in size %d", n, got)
			}
			if local.Cmp(new(big.Int).Sub(idx, first)) != 0 {
				t.Fatalf("local index mismatch for size %d", n)
			}
		}
	}
}

func TestLocateConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			idx := BaseOffset(n)
			got, _, err := Locate(idx)
			if err != nil || got != n {
				t.Errorf("Locate for size %d got %d (%v)", n, got, err)
			}
		}(40 + i)
	}
	wg.Wait()
}
