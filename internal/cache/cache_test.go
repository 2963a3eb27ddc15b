package cache_test

import (
	"crypto/sha256"
	"testing"

	"github.com/google/go-cmp/cmp"

	"cffi/internal/cache"
	"cffi/internal/diagfmt"
)

func TestPutGet(t *testing.T) {
	c, err := cache.OpenDir(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	hash := sha256.Sum256([]byte("struct p { int x; };"))
	key := cache.KeyFor(hash, "x86_64-linux-gnu")

	var miss cache.Payload
	if ok, err := c.Get(key, &miss); ok || err != nil {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}

	in := cache.Payload{
		Target: "x86_64-linux-gnu",
		Report: diagfmt.LayoutReport{
			File:   "p.h",
			Target: "x86_64-linux-gnu",
			Records: []diagfmt.RecordReport{{Name: "p", Kind: "struct", Size: 4, Align: 4,
				Fields: []diagfmt.FieldReport{{Name: "x", Type: "int", Size: 4}}}},
			Typedefs:  []diagfmt.TypedefReport{},
			Functions: []diagfmt.FunctionReport{},
		},
	}
	if err := c.Put(key, &in); err != nil {
		t.Fatalf("Put: %v", err)
	}
	var out cache.Payload
	ok, err := c.Get(key, &out)
	if !ok || err != nil {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("payload (-put +get):\n%s", diff)
	}

	if ok, _ := c.Get(cache.KeyFor(hash, "i386-linux-gnu"), &out); ok {
		t.Errorf("key must depend on the target")
	}

	if err := c.DropAll(); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	if ok, err := c.Get(key, &out); ok || err != nil {
		t.Errorf("after DropAll: ok=%v err=%v", ok, err)
	}
	if err := c.Put(key, &in); err != nil {
		t.Errorf("Put after DropAll: %v", err)
	}
}
