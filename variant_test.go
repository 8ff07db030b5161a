package purc

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInstance(t *testing.T) *Instance {
	t.Helper()
	cfg := DefaultConfig()
	cfg.LogOutput = io.Discard
	return New(cfg)
}

func TestMakeScalars(t *testing.T) {
	inst := newTestInstance(t)
	defer inst.Close()

	t.Run("Reserved constants are shared", func(t *testing.T) {
		u1 := inst.MakeUndefined()
		u2 := inst.MakeUndefined()
		assert.Same(t, u1, u2)
		assert.Equal(t, KindUndefined, u1.Kind())

		n := inst.MakeNull()
		assert.Equal(t, KindNull, n.Kind())

		bt := inst.MakeBoolean(true)
		bf := inst.MakeBoolean(false)
		assert.NotSame(t, bt, bf)
		got, err := bt.Boolean()
		require.NoError(t, err)
		assert.True(t, got)

		inst.Unref(u1)
		inst.Unref(u2)
		inst.Unref(n)
		inst.Unref(bt)
		inst.Unref(bf)
	})

	t.Run("Numbers", func(t *testing.T) {
		num := inst.MakeNumber(3.5)
		f, err := num.Number()
		require.NoError(t, err)
		assert.Equal(t, 3.5, f)

		li := inst.MakeLongInt(-42)
		i, err := li.LongInt()
		require.NoError(t, err)
		assert.Equal(t, int64(-42), i)

		ld := inst.MakeLongDouble(2.25)
		d, err := ld.LongDouble()
		require.NoError(t, err)
		assert.Equal(t, 2.25, d)

		// wrong-kind access fails with the type error
		_, err = num.LongInt()
		assert.Equal(t, CodeWrongDataType, CodeOf(err))

		inst.Unref(num)
		inst.Unref(li)
		inst.Unref(ld)
	})

	t.Run("Strings reject invalid UTF-8", func(t *testing.T) {
		s, err := inst.MakeString("hello")
		require.NoError(t, err)
		text, err := s.StringText()
		require.NoError(t, err)
		assert.Equal(t, "hello", text)
		inst.Unref(s)

		_, err = inst.MakeString(string([]byte{0xff, 0xfe}))
		assert.Equal(t, CodeInvalidValue, CodeOf(err))
		assert.Equal(t, CodeInvalidValue, inst.LastError().Code)
	})

	t.Run("Atom strings intern their text", func(t *testing.T) {
		a1, err := inst.MakeAtomString("shared")
		require.NoError(t, err)
		a2, err := inst.MakeAtomString("shared")
		require.NoError(t, err)
		assert.Equal(t, a1.at, a2.at)
		assert.Equal(t, inst.Atom("shared"), a1.at)
		inst.Unref(a1)
		inst.Unref(a2)
	})

	t.Run("Byte sequences copy their input", func(t *testing.T) {
		buf := []byte{1, 2, 3}
		bs := inst.MakeByteSequence(buf)
		buf[0] = 99
		got, err := bs.Bytes()
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3}, got)
		inst.Unref(bs)
	})
}

func TestReusePool(t *testing.T) {
	inst := newTestInstance(t)
	defer inst.Close()

	v := inst.MakeNumber(1)
	serial := v.serial
	inst.Unref(v)

	stat := inst.UsageStat()
	assert.Equal(t, uint64(1), stat.NrReserved)

	// the next allocation reuses the pooled backing, keeping its serial
	v2 := inst.MakeNumber(2)
	assert.Equal(t, serial, v2.serial)
	stat = inst.UsageStat()
	assert.Equal(t, uint64(0), stat.NrReserved)
	assert.Equal(t, uint64(1), stat.NrValues[KindNumber])
	inst.Unref(v2)
}

func TestUsageStatTracksPayloadBytes(t *testing.T) {
	inst := newTestInstance(t)
	defer inst.Close()

	s, err := inst.MakeString("four")
	require.NoError(t, err)
	stat := inst.UsageStat()
	assert.Equal(t, uint64(4), stat.SzMem[KindString])
	assert.Equal(t, uint64(4), stat.SzTotalMem)

	inst.Unref(s)
	stat = inst.UsageStat()
	assert.Equal(t, uint64(0), stat.SzMem[KindString])
	assert.Equal(t, uint64(0), stat.SzTotalMem)
}

func TestRefCountDiscipline(t *testing.T) {
	inst := newTestInstance(t)
	defer inst.Close()

	t.Run("Container ref and unref are transitively neutral", func(t *testing.T) {
		num := inst.MakeNumber(7)
		arr, err := inst.MakeArray(num)
		require.NoError(t, err)
		assert.Equal(t, uint32(2), num.RefCount())

		inst.Ref(arr)
		assert.Equal(t, uint32(3), num.RefCount())
		inst.Unref(arr)
		assert.Equal(t, uint32(2), num.RefCount())

		inst.Unref(arr)
		assert.Equal(t, uint32(1), num.RefCount())
		inst.Unref(num)
	})

	t.Run("Underflow panics", func(t *testing.T) {
		v := inst.MakeNumber(1)
		inst.Unref(v)
		assert.Panics(t, func() { inst.Unref(v) })
	})

	t.Run("Native release hook runs once", func(t *testing.T) {
		released := 0
		nv, err := inst.MakeNative("entity", &NativeOps{
			OnRelease: func(any) { released++ },
		})
		require.NoError(t, err)
		inst.Ref(nv)
		inst.Unref(nv)
		assert.Equal(t, 0, released)
		inst.Unref(nv)
		assert.Equal(t, 1, released)
	})
}

func TestDynamicVariant(t *testing.T) {
	inst := newTestInstance(t)
	defer inst.Close()

	_, err := inst.MakeDynamic(nil, nil)
	assert.Equal(t, CodeInvalidValue, CodeOf(err))

	getter := func(root *Variant, args []*Variant) (*Variant, error) {
		return inst.MakeNumber(1), nil
	}
	dv, err := inst.MakeDynamic(getter, nil)
	require.NoError(t, err)
	require.NotNil(t, dv.DynamicGetter())
	assert.Nil(t, dv.DynamicSetter())

	out, err := dv.DynamicGetter()(dv, nil)
	require.NoError(t, err)
	f, err := out.Number()
	require.NoError(t, err)
	assert.Equal(t, 1.0, f)
	inst.Unref(out)
	inst.Unref(dv)
}

func TestLastErrorSlot(t *testing.T) {
	inst := newTestInstance(t)
	defer inst.Close()

	assert.Nil(t, inst.LastError())
	_, err := inst.MakeString(string([]byte{0x80}))
	require.Error(t, err)
	assert.Equal(t, err, error(inst.LastError()))

	inst.ClearError()
	assert.Nil(t, inst.LastError())
}

func TestInstanceCloseTwicePanics(t *testing.T) {
	inst := newTestInstance(t)
	inst.Close()
	assert.Panics(t, func() { inst.Close() })
}

func TestCloseResetsReservedStat(t *testing.T) {
	inst := newTestInstance(t)

	v := inst.MakeNumber(1)
	inst.Unref(v)
	require.Equal(t, uint64(1), inst.UsageStat().NrReserved)

	// draining the pool empties the reserved count with it
	inst.Close()
	assert.Equal(t, uint64(0), inst.UsageStat().NrReserved)
}
