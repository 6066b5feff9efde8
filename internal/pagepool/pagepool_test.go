package pagepool

import "testing"

func TestPagesAreIndependentAndCorrectlySized(t *testing.T) {
	p := New(4, 16)

	for i := 0; i < 4; i++ {
		page := p.Page(i)
		if len(page) != 16 {
			t.Fatalf("page %d: got len %d, want 16", i, len(page))
		}
		page[0] = byte(i + 1)
	}

	for i := 0; i < 4; i++ {
		page := p.Page(i)
		if page[0] != byte(i+1) {
			t.Fatalf("page %d: contents overwritten by another page, got %d", i, page[0])
		}
	}
}

func TestNewPanicsOnInvalidSize(t *testing.T) {
	cases := []struct{ nbuf, bsize int }{
		{0, 16}, {4, 0}, {-1, 16},
	}
	for _, c := range cases {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("expected panic for nbuf=%d bsize=%d", c.nbuf, c.bsize)
				}
			}()
			New(c.nbuf, c.bsize)
		}()
	}
}
