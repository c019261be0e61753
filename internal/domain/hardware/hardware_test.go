package hardware

import (
	"sync"
	"testing"
)

func TestAcc_NilSafe(t *testing.T) {
	var a *Acc
	a.AddCPU(1)
	a.AddPayloadIORead(1)
	a.AddPayloadIndexIORead(1)
	a.AddVectorIORead(1)
	if !a.Usage().IsZero() {
		t.Error("nil accumulator should report zero usage")
	}
}

func TestAcc_Concurrent(t *testing.T) {
	a := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.AddCPU(2)
			a.AddVectorIORead(4)
		}()
	}
	wg.Wait()

	u := a.Usage()
	if u.CPU != 100 || u.VectorIORead != 200 {
		t.Errorf("usage = %+v", u)
	}
}

func TestUsage_GetSet(t *testing.T) {
	var u Usage
	for i, name := range Counters {
		u.Set(name, int64(i+1))
	}
	for i, name := range Counters {
		if got := u.Get(name); got != int64(i+1) {
			t.Errorf("Get(%q) = %d, want %d", name, got, i+1)
		}
	}
	if u.Get("unknown") != 0 {
		t.Error("unknown counter should read as 0")
	}
}
